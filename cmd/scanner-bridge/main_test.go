package main

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dockerscanner/scanner-bridge/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeScanner(t *testing.T, body string) string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skipf("skipped, binary sh not available: %v", err)
	}

	path := filepath.Join(t.TempDir(), "scanner")
	require.NoError(t, os.WriteFile(path, []byte("#!"+sh+"\n"+body+"\n"), 0755))
	return path
}

// execute runs the root command with a fake scanner configured through the environment
func execute(t *testing.T, cliPath, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("SCANNER_BRIDGE_CONFIG", "")
	t.Setenv("SCANNER_CLI_PATH", cliPath)
	t.Setenv("SCANNER_REPORTS_DIR", "")
	t.Setenv("LOG_LEVEL", "")

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestScanCommand_Flags(t *testing.T) {
	workspace := t.TempDir()
	cli := fakeScanner(t, `echo "$@"`)

	stdout, stderr, err := execute(t, cli, "", "scan", "--image", "alpine:latest", "--dockerfile", "Dockerfile", "--workspace", workspace)
	require.NoError(t, err)

	reports := filepath.Join(workspace, "reports")
	assert.Contains(t, stdout, "Scanning image: alpine:latest (Dockerfile: Dockerfile)\n")
	assert.Contains(t, stdout, "scan --image alpine:latest --output-dir "+reports+" --format markdown,html --dockerfile "+filepath.Join(workspace, "Dockerfile")+"\n")
	assert.Contains(t, stdout, "\nDone. Reports in "+reports+"\n")
	assert.Contains(t, stderr, "Scan complete. Reports in "+reports)
}

func TestScanCommand_Prompts(t *testing.T) {
	workspace := t.TempDir()
	cli := fakeScanner(t, `echo "$@"`)

	stdout, _, err := execute(t, cli, "nginx:1.25\n\n", "scan", "--workspace", workspace)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Scanning image: nginx:1.25\n")
	assert.NotContains(t, stdout, "--dockerfile")
}

func TestScanCommand_AbortedPrompt(t *testing.T) {
	workspace := t.TempDir()
	marker := filepath.Join(workspace, "ran")
	cli := fakeScanner(t, `touch `+marker)

	stdout, _, err := execute(t, cli, "", "scan", "--workspace", workspace)
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.NoFileExists(t, marker)
}

func TestScanCommand_FromDockerfile(t *testing.T) {
	workspace := t.TempDir()
	cli := fakeScanner(t, `echo "$@"`)

	stdout, _, err := execute(t, cli, "redis:7\n", "scan", "--workspace", workspace, "--from-dockerfile", "build/Dockerfile")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Scanning image: redis:7 (Dockerfile: "+filepath.Join("build", "Dockerfile")+")\n")
	assert.Contains(t, stdout, "--dockerfile "+filepath.Join(workspace, "build", "Dockerfile")+"\n")
}

func TestScanCommand_ExitStatusMirrorsScanner(t *testing.T) {
	workspace := t.TempDir()
	cli := fakeScanner(t, `echo vulnerable >&2; exit 4`)

	_, stderr, err := execute(t, cli, "", "scan", "--image", "alpine:latest", "--workspace", workspace)

	var exitErr *exitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 4, exitErr.code)
	assert.Contains(t, stderr, "Scan failed (exit code 4). See output.")
}

func TestScanCommand_LaunchFailure(t *testing.T) {
	workspace := t.TempDir()

	_, stderr, err := execute(t, filepath.Join(workspace, "missing"), "", "scan", "--image", "alpine:latest", "--workspace", workspace)

	var exitErr *exitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.code)
	assert.Contains(t, stderr, "Could not launch scanner")
}

func TestScanCommand_BlankImageFlag(t *testing.T) {
	workspace := t.TempDir()

	_, _, err := execute(t, fakeScanner(t, `exit 0`), "", "scan", "--image", "  ", "--dockerfile", "Dockerfile", "--workspace", workspace)
	require.ErrorContains(t, err, "image is required")
}

func TestCheckCommand(t *testing.T) {
	workspace := t.TempDir()
	cli := fakeScanner(t, `exit 0`)

	stdout, _, err := execute(t, cli, "", "check", "--workspace", workspace)
	require.NoError(t, err)
	assert.Contains(t, stdout, "scanner:     "+cli)
	assert.Contains(t, stdout, "reports dir: "+filepath.Join(workspace, "reports"))

	_, _, err = execute(t, filepath.Join(workspace, "missing"), "", "check", "--workspace", workspace)
	require.ErrorContains(t, err, "scanner not found")
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := execute(t, "scanner", "", "version")
	require.NoError(t, err)
	assert.Equal(t, "scanner-bridge dev\n", stdout)
}

func TestExitStatus(t *testing.T) {
	tests := []struct {
		name    string
		outcome models.Outcome
		want    int
	}{
		{name: "success", outcome: models.Outcome{Success: true}, want: 0},
		{name: "scanner exit code", outcome: models.Outcome{ExitCode: 3, Failure: models.FailureProcess}, want: 3},
		{name: "launch failure", outcome: models.Outcome{ExitCode: -1, Failure: models.FailureLaunch}, want: 1},
		{name: "overflow", outcome: models.Outcome{ExitCode: -1, Failure: models.FailureOverflow}, want: 1},
		{name: "cancelled", outcome: models.Outcome{ExitCode: -1, Failure: models.FailureCancelled}, want: exitInterrupted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := exitStatus(tt.outcome)
			if tt.want == 0 {
				require.NoError(t, err)
				return
			}
			var exitErr *exitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, tt.want, exitErr.code)
		})
	}
}
