package models

// ScanRequest represents a validated request to scan a container image
type ScanRequest struct {
	// Request ID for tracing
	RequestID string

	// Image reference, trimmed (e.g. alpine:latest or myregistry.io/app:v1)
	Image string

	// Dockerfile path as supplied by the user, empty when absent.
	// Relative paths are resolved against WorkspaceRoot when the command is built.
	DockerfilePath string

	// Absolute project root, also the working directory of the scanner
	WorkspaceRoot string

	// Absolute directory the scanner writes its reports to
	ReportsDir string
}

// HasDockerfile reports whether the user supplied a Dockerfile
func (r *ScanRequest) HasDockerfile() bool {
	return r.DockerfilePath != ""
}

// CommandSpec is the executable and argument vector derived from a ScanRequest
type CommandSpec struct {
	Executable string
	Args       []string

	// ReportsDir is carried along so the outcome can name it
	ReportsDir string
}

// Argv returns the executable followed by its arguments
func (c CommandSpec) Argv() []string {
	argv := make([]string, 0, len(c.Args)+1)
	argv = append(argv, c.Executable)
	return append(argv, c.Args...)
}
