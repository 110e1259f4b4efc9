package scanner

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/dockerscanner/scanner-bridge/internal/models"
	"github.com/dockerscanner/scanner-bridge/pkg/config"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Orchestrator turns scan requests into running scanner processes
type Orchestrator struct {
	config *config.Config
	logger *logrus.Logger
}

// NewOrchestrator creates a new Orchestrator instance
func NewOrchestrator(cfg *config.Config, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		config: cfg,
		logger: logger,
	}
}

// NewRequest validates host input using the configured reports directory
func (o *Orchestrator) NewRequest(image, dockerfile, workspaceRoot string) (*models.ScanRequest, error) {
	return NewScanRequest(image, dockerfile, workspaceRoot, o.config.Scanner.ReportsDir)
}

// BuildCommand derives the command for req using the configured executable
func (o *Orchestrator) BuildCommand(req *models.ScanRequest) (models.CommandSpec, error) {
	return BuildCommand(o.config.Scanner.CLIPath, req)
}

// Invoke launches spec in cwd and returns immediately. Cancelling ctx has
// the same effect as calling Cancel on the returned invocation.
func (o *Orchestrator) Invoke(ctx context.Context, spec models.CommandSpec, cwd string) *Invocation {
	maxOutput, err := o.config.Scanner.MaxOutputBytes()
	if err != nil {
		o.logger.WithError(err).Warn("Ignoring invalid scanner.max_output_size")
		maxOutput = 0
	}

	id := uuid.NewString()
	logger := o.logger.WithFields(logrus.Fields{
		"invocation_id": id,
		"executable":    spec.Executable,
	})

	inv := newInvocation(ctx, id, spec, cwd, maxOutput, logger)
	go inv.run()
	return inv
}

// Scan builds the command for req and invokes it in the workspace root
func (o *Orchestrator) Scan(ctx context.Context, req *models.ScanRequest) (*Invocation, error) {
	spec, err := o.BuildCommand(req)
	if err != nil {
		return nil, err
	}

	o.logger.WithFields(logrus.Fields{
		"request_id": req.RequestID,
		"image_ref":  req.Image,
		"dockerfile": req.DockerfilePath,
		"reports":    spec.ReportsDir,
	}).Info("Starting image scan")

	return o.Invoke(ctx, spec, req.WorkspaceRoot), nil
}

// ResolveExecutable finds the scanner executable Invoke would run for
// workspaceRoot, looking bare names up on PATH
func (o *Orchestrator) ResolveExecutable(workspaceRoot string) (string, error) {
	root, err := filepath.Abs(workspaceRoot)
	if err != nil {
		return "", err
	}
	executable := resolveExecutable(root, o.config.Scanner.CLIPath)
	resolved, err := exec.LookPath(executable)
	if err != nil {
		return "", fmt.Errorf("scanner not found at %s: %w", executable, err)
	}
	return resolved, nil
}

// ValidateConfig checks if the scanner executable is available for workspaceRoot
func (o *Orchestrator) ValidateConfig(workspaceRoot string) error {
	_, err := o.ResolveExecutable(workspaceRoot)
	return err
}
