package scanner

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/dockerscanner/scanner-bridge/internal/models"
	"github.com/stretchr/testify/require"
)

func TestBuildCommand_DefaultReportsDir(t *testing.T) {
	req, err := NewScanRequest("alpine:latest", "", "/ws", "")
	require.NoError(t, err)

	spec, err := BuildCommand("scanner", req)
	require.NoError(t, err)

	require.Equal(t, "scanner", spec.Executable)
	require.Equal(t, []string{
		"scan",
		"--image", "alpine:latest",
		"--output-dir", "/ws/reports",
		"--format", "markdown,html",
	}, spec.Args)
	require.Equal(t, "/ws/reports", spec.ReportsDir)
}

func TestBuildCommand_RelativeDockerfileAppendedLast(t *testing.T) {
	req, err := NewScanRequest("myregistry.io/app:v1", "sub/Dockerfile", "/ws", "")
	require.NoError(t, err)

	spec, err := BuildCommand("scanner", req)
	require.NoError(t, err)

	n := len(spec.Args)
	require.Equal(t, []string{"--dockerfile", "/ws/sub/Dockerfile"}, spec.Args[n-2:])
	require.Equal(t, []string{
		"scan",
		"--image", "myregistry.io/app:v1",
		"--output-dir", "/ws/reports",
		"--format", "markdown,html",
	}, spec.Args[:n-2])
}

func TestBuildCommand_Deterministic(t *testing.T) {
	req := &models.ScanRequest{
		Image:          "alpine:3.20",
		DockerfilePath: "build/Dockerfile",
		WorkspaceRoot:  "/ws",
		ReportsDir:     "/ws/out",
	}

	first, err := BuildCommand("scanner", req)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		again, err := BuildCommand("scanner", req)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestBuildCommand_ReportsDirAlwaysAbsolute(t *testing.T) {
	tests := []struct {
		name       string
		reportsDir string
		want       string
	}{
		{name: "empty", reportsDir: "", want: "/ws/reports"},
		{name: "relative", reportsDir: "out/scans", want: "/ws/out/scans"},
		{name: "dot relative", reportsDir: "./reports", want: "/ws/reports"},
		{name: "absolute", reportsDir: "/var/reports", want: "/var/reports"},
		{name: "unclean absolute", reportsDir: "/var/x/../reports", want: "/var/reports"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &models.ScanRequest{Image: "alpine", WorkspaceRoot: "/ws", ReportsDir: tt.reportsDir}
			spec, err := BuildCommand("scanner", req)
			require.NoError(t, err)
			require.Equal(t, tt.want, spec.Args[4])
			require.True(t, filepath.IsAbs(spec.Args[4]))
		})
	}
}

func TestResolveDockerfile(t *testing.T) {
	tests := []struct {
		name       string
		dockerfile string
		want       string
	}{
		{name: "relative", dockerfile: "sub/Dockerfile", want: "/ws/sub/Dockerfile"},
		{name: "dot relative", dockerfile: "./Dockerfile", want: "/ws/Dockerfile"},
		{name: "parent", dockerfile: "../other/Dockerfile", want: "/other/Dockerfile"},
		{name: "absolute", dockerfile: "/src/Dockerfile", want: "/src/Dockerfile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveDockerfile("/ws", tt.dockerfile)
			require.Equal(t, tt.want, got)
			require.Equal(t, got, ResolveDockerfile("/ws", got), "resolution must be idempotent")
		})
	}
}

func TestRelativeDockerfile(t *testing.T) {
	require.Equal(t, "sub/Dockerfile", RelativeDockerfile("/ws", "/ws/sub/Dockerfile"))
	require.Equal(t, "/elsewhere/Dockerfile", RelativeDockerfile("/ws", "/elsewhere/Dockerfile"))
	require.Equal(t, "/ws/Dockerfile", RelativeDockerfile("", "/ws/Dockerfile"))

	// dot-prefixed directories inside the workspace are not parent references
	require.Equal(t, "..cache/Dockerfile", RelativeDockerfile("/ws", "/ws/..cache/Dockerfile"))
	require.Equal(t, "/Dockerfile", RelativeDockerfile("/ws", "/Dockerfile"))
	require.Equal(t, "/wsx/Dockerfile", RelativeDockerfile("/ws", "/wsx/Dockerfile"))
}

func TestBuildCommand_Executable(t *testing.T) {
	req := &models.ScanRequest{Image: "alpine", WorkspaceRoot: "/ws"}

	tests := []struct {
		executable string
		want       string
	}{
		{executable: "", want: "scanner"},
		{executable: "scanner", want: "scanner"},
		{executable: "/opt/bin/scanner", want: "/opt/bin/scanner"},
		{executable: "./bin/scanner", want: "/ws/bin/scanner"},
		{executable: "tools/scanner", want: "/ws/tools/scanner"},
	}

	for _, tt := range tests {
		t.Run(tt.executable, func(t *testing.T) {
			spec, err := BuildCommand(tt.executable, req)
			require.NoError(t, err)
			require.Equal(t, tt.want, spec.Executable)
		})
	}
}

func TestNewScanRequest(t *testing.T) {
	req, err := NewScanRequest("  alpine:latest \n", "  Dockerfile ", "/ws", "custom")
	require.NoError(t, err)
	require.Equal(t, "alpine:latest", req.Image)
	require.Equal(t, "Dockerfile", req.DockerfilePath)
	require.Equal(t, "/ws", req.WorkspaceRoot)
	require.Equal(t, "/ws/custom", req.ReportsDir)
	require.NotEmpty(t, req.RequestID)

	blank, err := NewScanRequest("alpine", "   ", "/ws", "")
	require.NoError(t, err)
	require.False(t, blank.HasDockerfile())

	rel, err := NewScanRequest("alpine", "", "", "")
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(rel.WorkspaceRoot))
	require.True(t, filepath.IsAbs(rel.ReportsDir))
}

func TestNewScanRequest_EmptyImage(t *testing.T) {
	for _, image := range []string{"", "   ", "\t\n"} {
		_, err := NewScanRequest(image, "", "/ws", "")
		var invalid *InvalidRequestError
		require.True(t, errors.As(err, &invalid), "image %q", image)
		require.Equal(t, "image", invalid.Field)
	}
}

func TestBuildCommand_InvalidRequest(t *testing.T) {
	_, err := BuildCommand("scanner", &models.ScanRequest{Image: " ", WorkspaceRoot: "/ws"})
	var invalid *InvalidRequestError
	require.ErrorAs(t, err, &invalid)

	_, err = BuildCommand("scanner", &models.ScanRequest{Image: "alpine", WorkspaceRoot: "ws"})
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, "workspace root", invalid.Field)

	_, err = BuildCommand("scanner", nil)
	require.ErrorAs(t, err, &invalid)
}

func TestFormatCommandLine(t *testing.T) {
	spec := models.CommandSpec{
		Executable: "scanner",
		Args:       []string{"scan", "--image", "my image", "--dockerfile", "/ws/Docker file"},
	}
	require.Equal(t, `scanner scan --image "my image" --dockerfile "/ws/Docker file"`, FormatCommandLine(spec))
	// display formatting must not touch the spec
	require.Equal(t, "my image", spec.Args[2])
}
