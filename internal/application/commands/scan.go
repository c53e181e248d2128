package commands

import (
	"context"
	"fmt"

	"printvault/internal/application"
	"printvault/internal/domain"
)

// ScanArmyResult contains the result of scanning one army
type ScanArmyResult struct {
	Scan    *domain.ArmyScan
	Message string
}

// ScanArmyCommand reconciles one army's folder into the catalog
type ScanArmyCommand struct {
	reconciler *application.Reconciler
	ArmyID     string
}

// NewScanArmyCommand creates a new ScanArmyCommand
func NewScanArmyCommand(reconciler *application.Reconciler, armyID string) *ScanArmyCommand {
	return &ScanArmyCommand{reconciler: reconciler, ArmyID: armyID}
}

func (c *ScanArmyCommand) Validate() error {
	return application.ValidateRequired("armyID", c.ArmyID)
}

// Execute runs the scan command
func (c *ScanArmyCommand) Execute(ctx context.Context) (*ScanArmyResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	scan, err := c.reconciler.ScanArmy(ctx, c.ArmyID)
	if err != nil {
		return nil, fmt.Errorf("failed to scan army %s: %w", c.ArmyID, err)
	}
	return &ScanArmyResult{
		Scan:    scan,
		Message: fmt.Sprintf("%s: %d new unit(s), %d updated", c.ArmyID, scan.Added, scan.Updated),
	}, nil
}

// ScanAllResult contains the result of scanning every army
type ScanAllResult struct {
	Summary *domain.ScanSummary
	Message string
}

// ScanAllCommand reconciles every army in the catalog
type ScanAllCommand struct {
	reconciler *application.Reconciler
}

// NewScanAllCommand creates a new ScanAllCommand
func NewScanAllCommand(reconciler *application.Reconciler) *ScanAllCommand {
	return &ScanAllCommand{reconciler: reconciler}
}

// Execute runs the scan-all command
func (c *ScanAllCommand) Execute(ctx context.Context) (*ScanAllResult, error) {
	summary, err := c.reconciler.ScanAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan armies: %w", err)
	}
	msg := fmt.Sprintf("Scanned %d armies: %d new unit(s), %d updated", summary.ArmiesScanned, summary.UnitsAdded, summary.UnitsUpdated)
	if n := len(summary.Errors); n > 0 {
		msg += fmt.Sprintf(", %d error(s)", n)
	}
	return &ScanAllResult{Summary: summary, Message: msg}, nil
}
