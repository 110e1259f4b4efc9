package scanner

import (
	"context"

	"github.com/dockerscanner/scanner-bridge/internal/models"
)

// Backend is the surface hosts use to run scans
type Backend interface {
	// NewRequest validates raw host input
	NewRequest(image, dockerfile, workspaceRoot string) (*models.ScanRequest, error)

	// BuildCommand derives the scanner command for a request
	BuildCommand(req *models.ScanRequest) (models.CommandSpec, error)

	// Invoke launches the scanner without blocking and returns its handle
	Invoke(ctx context.Context, spec models.CommandSpec, cwd string) *Invocation

	// ValidateConfig checks that the scanner executable resolves for a workspace
	ValidateConfig(workspaceRoot string) error
}

var _ Backend = (*Orchestrator)(nil)
