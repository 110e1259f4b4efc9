package scanner

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dockerscanner/scanner-bridge/internal/models"
	"github.com/google/uuid"
)

const (
	// ScanSubcommand is the scanner subcommand every invocation runs
	ScanSubcommand = "scan"

	// ReportFormats is passed verbatim to --format
	ReportFormats = "markdown,html"
)

// NewScanRequest validates raw host input and turns it into a ScanRequest.
// reportsDir may be relative, in which case it is resolved against the workspace root.
func NewScanRequest(image, dockerfile, workspaceRoot, reportsDir string) (*models.ScanRequest, error) {
	image = strings.TrimSpace(image)
	if image == "" {
		return nil, &InvalidRequestError{Field: "image", Message: "is required"}
	}

	if workspaceRoot == "" {
		workspaceRoot = "."
	}
	root, err := filepath.Abs(workspaceRoot)
	if err != nil {
		return nil, &InvalidRequestError{Field: "workspace root", Message: err.Error()}
	}

	if reportsDir == "" {
		reportsDir = "reports"
	}

	return &models.ScanRequest{
		RequestID:      uuid.NewString(),
		Image:          image,
		DockerfilePath: strings.TrimSpace(dockerfile),
		WorkspaceRoot:  root,
		ReportsDir:     resolveAgainst(root, reportsDir),
	}, nil
}

// BuildCommand derives the scanner invocation for req. It does no I/O:
// equal inputs always produce the same argument vector.
//
//	<scanner> scan --image <IMAGE> --output-dir <REPORTS_DIR> --format markdown,html [--dockerfile <PATH>]
func BuildCommand(executable string, req *models.ScanRequest) (models.CommandSpec, error) {
	if req == nil || strings.TrimSpace(req.Image) == "" {
		return models.CommandSpec{}, &InvalidRequestError{Field: "image", Message: "is required"}
	}
	if !filepath.IsAbs(req.WorkspaceRoot) {
		return models.CommandSpec{}, &InvalidRequestError{
			Field:   "workspace root",
			Message: fmt.Sprintf("must be absolute, got %q", req.WorkspaceRoot),
		}
	}

	reportsDir := req.ReportsDir
	if reportsDir == "" {
		reportsDir = "reports"
	}
	reportsDir = resolveAgainst(req.WorkspaceRoot, reportsDir)

	args := []string{
		ScanSubcommand,
		"--image", req.Image,
		"--output-dir", reportsDir,
		"--format", ReportFormats,
	}

	// --dockerfile is always the final pair
	if req.HasDockerfile() {
		args = append(args, "--dockerfile", ResolveDockerfile(req.WorkspaceRoot, req.DockerfilePath))
	}

	return models.CommandSpec{
		Executable: resolveExecutable(req.WorkspaceRoot, executable),
		Args:       args,
		ReportsDir: reportsDir,
	}, nil
}

// ResolveDockerfile makes a Dockerfile path absolute relative to the workspace root.
// Absolute paths pass through, so resolving twice gives the same result.
func ResolveDockerfile(workspaceRoot, dockerfile string) string {
	return resolveAgainst(workspaceRoot, dockerfile)
}

// RelativeDockerfile expresses an open editor file relative to the workspace
// root when it lives inside it, as the VS Code command did.
func RelativeDockerfile(workspaceRoot, dockerfile string) string {
	if workspaceRoot == "" {
		return dockerfile
	}
	rel, err := filepath.Rel(workspaceRoot, dockerfile)
	if err != nil || rel == "" || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return dockerfile
	}
	return rel
}

// FormatCommandLine renders a spec for display only; it is never handed to a shell
func FormatCommandLine(spec models.CommandSpec) string {
	parts := spec.Argv()
	for i, p := range parts {
		if p == "" || strings.ContainsAny(p, " \t\n\"'\\$`") {
			parts[i] = strconv.Quote(p)
		}
	}
	return strings.Join(parts, " ")
}

func resolveAgainst(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

// resolveExecutable leaves bare names for PATH lookup at launch and anchors
// relative paths such as ./bin/scanner at the workspace root
func resolveExecutable(root, executable string) string {
	if executable == "" {
		executable = "scanner"
	}
	if filepath.IsAbs(executable) || !strings.ContainsRune(filepath.ToSlash(executable), '/') {
		return executable
	}
	return filepath.Join(root, executable)
}
