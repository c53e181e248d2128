package commands

import (
	"context"

	"printvault/internal/domain"
	"printvault/internal/ports"
)

// HealthResult is the service status derived from the storage report.
// Status is OK when the backend answered and its base directory exists,
// DEGRADED otherwise.
type HealthResult struct {
	Status  string
	Storage domain.HealthReport
}

// HealthCommand checks the storage backend
type HealthCommand struct {
	storage ports.RemoteStorage
}

// NewHealthCommand creates a new HealthCommand
func NewHealthCommand(storage ports.RemoteStorage) *HealthCommand {
	return &HealthCommand{storage: storage}
}

func (c *HealthCommand) Execute(ctx context.Context) *HealthResult {
	report := c.storage.Health(ctx)
	status := domain.HealthOK
	if !report.OK() || !report.BaseDirExists {
		status = domain.HealthDegraded
	}
	return &HealthResult{Status: status, Storage: report}
}
