// Package host drives scans the way the IDE front-ends do: ask for an image
// and an optional Dockerfile, stream the scanner output, report the result.
package host

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dockerscanner/scanner-bridge/internal/models"
	"github.com/dockerscanner/scanner-bridge/pkg/logging"
	"github.com/dockerscanner/scanner-bridge/pkg/scanner"
	"github.com/sirupsen/logrus"
)

const (
	// Title is shown by hosts that have a window or dialog title
	Title = "Docker Scanner"

	// DefaultImage pre-fills the image prompt
	DefaultImage = "alpine:latest"

	imagePrompt               = "Image to scan (e.g. alpine:latest or myregistry.io/app:v1)"
	imageForDockerfilePrompt  = "Image to scan (e.g. alpine:latest). Dockerfile will be scanned for misconfigurations."
	dockerfilePrompt          = "Optional Dockerfile path (relative to project or absolute). Leave empty to skip."
	dockerfileRequiredMessage = "Open a Dockerfile first."
)

// UI is what a host must provide
type UI interface {
	// Prompt asks for one line of input. ok is false when the user cancelled.
	Prompt(label, defaultValue string) (value string, ok bool)

	// AppendOutput appends text verbatim to the output panel
	AppendOutput(text string)

	// ShowInfo and ShowError display a notification
	ShowInfo(message string)
	ShowError(message string)
}

// Session runs scans for one workspace on behalf of a UI
type Session struct {
	backend       scanner.Backend
	ui            UI
	workspaceRoot string
	logger        *logrus.Logger
}

// NewSession creates a session rooted at workspaceRoot
func NewSession(backend scanner.Backend, ui UI, workspaceRoot string, logger *logrus.Logger) *Session {
	return &Session{
		backend:       backend,
		ui:            ui,
		workspaceRoot: workspaceRoot,
		logger:        logger,
	}
}

// ScanImage prompts for an image and an optional Dockerfile, then scans.
// It returns nil without error when the user cancels a prompt.
func (s *Session) ScanImage(ctx context.Context) (*models.Outcome, error) {
	image, ok := s.promptImage(imagePrompt)
	if !ok {
		return nil, nil
	}

	dockerfile, ok := s.ui.Prompt(dockerfilePrompt, "")
	if !ok {
		dockerfile = ""
	}

	return s.Run(ctx, image, dockerfile)
}

// ScanDockerfile scans an image together with the Dockerfile open in the editor
func (s *Session) ScanDockerfile(ctx context.Context, dockerfilePath string) (*models.Outcome, error) {
	if dockerfilePath == "" || !IsDockerfile(dockerfilePath) {
		s.ui.ShowError(dockerfileRequiredMessage)
		return nil, nil
	}

	image, ok := s.promptImage(imageForDockerfilePrompt)
	if !ok {
		return nil, nil
	}

	root, err := filepath.Abs(s.workspaceRoot)
	if err != nil {
		root = s.workspaceRoot
	}
	return s.Run(ctx, image, scanner.RelativeDockerfile(root, dockerfilePath))
}

// Run scans image without prompting. Invalid input is returned as an
// *scanner.InvalidRequestError and nothing is launched.
func (s *Session) Run(ctx context.Context, image, dockerfile string) (*models.Outcome, error) {
	req, err := s.backend.NewRequest(image, dockerfile, s.workspaceRoot)
	if err != nil {
		return nil, err
	}
	spec, err := s.backend.BuildCommand(req)
	if err != nil {
		return nil, err
	}

	header := "Scanning image: " + req.Image
	if req.HasDockerfile() {
		header += fmt.Sprintf(" (Dockerfile: %s)", req.DockerfilePath)
	}
	s.ui.AppendOutput(header + "\n")
	s.ui.AppendOutput("Running: " + scanner.FormatCommandLine(spec) + "\n")

	logging.LogWithRequestID(s.logger, req.RequestID).
		WithField("image_ref", req.Image).
		Debug("Invoking scanner")

	inv := s.backend.Invoke(ctx, spec, req.WorkspaceRoot)
	outcome := Relay(inv, s.ui.AppendOutput)
	s.report(outcome)
	return &outcome, nil
}

// Relay forwards every output chunk to appendOutput and returns the outcome
func Relay(inv *scanner.Invocation, appendOutput func(string)) models.Outcome {
	for ev := range inv.Events() {
		if ev.IsOutcome() {
			return drainOutcome(inv, *ev.Outcome)
		}
		appendOutput(ev.Chunk.Text)
	}
	// the outcome event is skipped when the invocation was cancelled
	return inv.Wait()
}

func drainOutcome(inv *scanner.Invocation, outcome models.Outcome) models.Outcome {
	<-inv.Done()
	return outcome
}

func (s *Session) report(outcome models.Outcome) {
	switch {
	case outcome.Success:
		s.ui.AppendOutput("\n" + outcome.Message + "\n")
		s.ui.ShowInfo("Scan complete. Reports in " + outcome.ReportsDir)
	case outcome.Failure == models.FailureLaunch:
		s.ui.AppendOutput("Error: " + outcome.Message + "\n")
		s.ui.ShowError("Could not launch scanner: " + launchCause(outcome.Err))
	case outcome.Failure == models.FailureProcess && outcome.ExitCode >= 0:
		s.ui.ShowError(fmt.Sprintf("Scan failed (exit code %d). See output.", outcome.ExitCode))
	default:
		s.ui.AppendOutput("\n" + outcome.Message + "\n")
		s.ui.ShowError(outcome.Message)
	}
}

// promptImage treats a blank answer like a dismissed prompt
func (s *Session) promptImage(label string) (string, bool) {
	image, ok := s.ui.Prompt(label, DefaultImage)
	if !ok || strings.TrimSpace(image) == "" {
		return "", false
	}
	return image, true
}

func launchCause(err error) string {
	var launchErr *scanner.LaunchError
	if errors.As(err, &launchErr) && launchErr.Err != nil {
		return launchErr.Err.Error()
	}
	if err != nil {
		return err.Error()
	}
	return "unknown error"
}

// IsDockerfile reports whether path names a Dockerfile
// (Dockerfile, Dockerfile.dev, app.Dockerfile, app.dockerfile)
func IsDockerfile(path string) bool {
	base := filepath.Base(path)
	lower := strings.ToLower(base)
	return lower == "dockerfile" ||
		strings.HasPrefix(lower, "dockerfile.") ||
		strings.HasSuffix(lower, ".dockerfile") ||
		strings.HasSuffix(lower, ".containerfile") ||
		lower == "containerfile"
}
