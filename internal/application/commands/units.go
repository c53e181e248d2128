package commands

import (
	"context"
	"fmt"

	"printvault/internal/application"
	"printvault/internal/domain"
)

// ListArmiesCommand returns every army in the catalog
type ListArmiesCommand struct {
	catalog *application.Catalog
}

// NewListArmiesCommand creates a new ListArmiesCommand
func NewListArmiesCommand(catalog *application.Catalog) *ListArmiesCommand {
	return &ListArmiesCommand{catalog: catalog}
}

func (c *ListArmiesCommand) Execute(ctx context.Context) ([]domain.Army, error) {
	return c.catalog.Armies(ctx)
}

// GetArmyCommand returns one army
type GetArmyCommand struct {
	catalog *application.Catalog
	ArmyID  string
}

// NewGetArmyCommand creates a new GetArmyCommand
func NewGetArmyCommand(catalog *application.Catalog, armyID string) *GetArmyCommand {
	return &GetArmyCommand{catalog: catalog, ArmyID: armyID}
}

func (c *GetArmyCommand) Execute(ctx context.Context) (*domain.Army, error) {
	if err := application.ValidateRequired("armyID", c.ArmyID); err != nil {
		return nil, err
	}
	return c.catalog.Army(ctx, c.ArmyID)
}

// UpsertArmyResult contains the result of saving an army
type UpsertArmyResult struct {
	Army    domain.Army
	Created bool
	Message string
}

// UpsertArmyCommand creates an army or updates its metadata
type UpsertArmyCommand struct {
	catalog *application.Catalog
	ArmyID  string
	Army    domain.Army
}

// NewUpsertArmyCommand creates a new UpsertArmyCommand
func NewUpsertArmyCommand(catalog *application.Catalog, armyID string, army domain.Army) *UpsertArmyCommand {
	return &UpsertArmyCommand{catalog: catalog, ArmyID: armyID, Army: army}
}

// Validate checks that the army ID is a faction segment matching the body
// and that the allegiance is usable as a path segment.
func (c *UpsertArmyCommand) Validate() error {
	if err := application.ValidateRequired("armyID", c.ArmyID); err != nil {
		return err
	}
	if domain.Sanitize(c.ArmyID) != c.ArmyID {
		return &application.ValidationError{
			Field:   "armyID",
			Message: fmt.Sprintf("army ID must be a sanitized faction name, got: %s", c.ArmyID),
		}
	}
	if c.Army.ID != "" && c.Army.ID != c.ArmyID {
		return &application.ValidationError{
			Field:   "armyID",
			Message: fmt.Sprintf("army ID %s does not match body ID %s", c.ArmyID, c.Army.ID),
		}
	}
	if err := application.ValidateRequired(domain.FieldAllegiance, c.Army.Allegiance); err != nil {
		return err
	}
	_, err := domain.SanitizeSegment(domain.FieldAllegiance, c.Army.Allegiance)
	return err
}

func (c *UpsertArmyCommand) Execute(ctx context.Context) (*UpsertArmyResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	army := c.Army
	army.ID = c.ArmyID
	army.Allegiance = domain.Sanitize(army.Allegiance)
	for i := range army.Units {
		army.Units[i].Normalize()
	}

	created, err := c.catalog.UpsertArmy(ctx, army)
	if err != nil {
		return nil, fmt.Errorf("failed to save army: %w", err)
	}
	verb := "Updated"
	if created {
		verb = "Created"
	}
	return &UpsertArmyResult{
		Army:    army,
		Created: created,
		Message: fmt.Sprintf("%s army %s", verb, army.ID),
	}, nil
}

// UpsertUnitResult contains the result of saving a unit
type UpsertUnitResult struct {
	Unit    domain.Unit
	Created bool
	Message string
}

// UpsertUnitCommand saves a unit record edited by hand
type UpsertUnitCommand struct {
	catalog *application.Catalog
	ArmyID  string
	UnitID  string
	Unit    domain.Unit
}

// NewUpsertUnitCommand creates a new UpsertUnitCommand
func NewUpsertUnitCommand(catalog *application.Catalog, armyID, unitID string, unit domain.Unit) *UpsertUnitCommand {
	return &UpsertUnitCommand{catalog: catalog, ArmyID: armyID, UnitID: unitID, Unit: unit}
}

// Validate checks the IDs. The unit ID is the merge key used by scans, so it
// must be the sanitized unit name.
func (c *UpsertUnitCommand) Validate() error {
	if err := application.ValidateRequired("armyID", c.ArmyID); err != nil {
		return err
	}
	if err := application.ValidateRequired("unitID", c.UnitID); err != nil {
		return err
	}
	if domain.Sanitize(c.UnitID) != c.UnitID {
		return &application.ValidationError{
			Field:   "unitID",
			Message: fmt.Sprintf("unit ID must be a sanitized name, got: %s", c.UnitID),
		}
	}
	if c.Unit.ID != "" && c.Unit.ID != c.UnitID {
		return &application.ValidationError{
			Field:   "unitID",
			Message: fmt.Sprintf("unit ID %s does not match body ID %s", c.UnitID, c.Unit.ID),
		}
	}
	if err := application.ValidateRequired("name", c.Unit.Name); err != nil {
		return err
	}
	if want := domain.Sanitize(c.Unit.Name); want != c.UnitID {
		return &application.ValidationError{
			Field:   "unitID",
			Message: fmt.Sprintf("unit ID %s does not match name %q, expected %s", c.UnitID, c.Unit.Name, want),
		}
	}
	return nil
}

func (c *UpsertUnitCommand) Execute(ctx context.Context) (*UpsertUnitResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	unit := c.Unit
	unit.ID = c.UnitID
	unit.Normalize()

	created, err := c.catalog.UpsertUnit(ctx, c.ArmyID, unit)
	if err != nil {
		return nil, fmt.Errorf("failed to save unit: %w", err)
	}
	verb := "Updated"
	if created {
		verb = "Created"
	}
	return &UpsertUnitResult{
		Unit:    unit,
		Created: created,
		Message: fmt.Sprintf("%s unit %s in %s", verb, unit.ID, c.ArmyID),
	}, nil
}

// MessageResult is returned by commands whose only output is a message
type MessageResult struct {
	Message string
}

// DeleteUnitCommand removes a unit record. Remote files stay in place.
type DeleteUnitCommand struct {
	catalog *application.Catalog
	ArmyID  string
	UnitID  string
}

// NewDeleteUnitCommand creates a new DeleteUnitCommand
func NewDeleteUnitCommand(catalog *application.Catalog, armyID, unitID string) *DeleteUnitCommand {
	return &DeleteUnitCommand{catalog: catalog, ArmyID: armyID, UnitID: unitID}
}

func (c *DeleteUnitCommand) Execute(ctx context.Context) (*MessageResult, error) {
	if err := application.ValidateRequired("armyID", c.ArmyID); err != nil {
		return nil, err
	}
	if err := application.ValidateRequired("unitID", c.UnitID); err != nil {
		return nil, err
	}
	if err := c.catalog.DeleteUnit(ctx, c.ArmyID, c.UnitID); err != nil {
		return nil, fmt.Errorf("failed to delete unit: %w", err)
	}
	return &MessageResult{Message: fmt.Sprintf("Deleted unit %s from %s (files kept)", c.UnitID, c.ArmyID)}, nil
}

// RemoveFileEntryCommand drops one file entry from a unit record. The remote
// file is not deleted.
type RemoveFileEntryCommand struct {
	catalog  *application.Catalog
	ArmyID   string
	UnitID   string
	FileName string
}

// NewRemoveFileEntryCommand creates a new RemoveFileEntryCommand
func NewRemoveFileEntryCommand(catalog *application.Catalog, armyID, unitID, fileName string) *RemoveFileEntryCommand {
	return &RemoveFileEntryCommand{catalog: catalog, ArmyID: armyID, UnitID: unitID, FileName: fileName}
}

func (c *RemoveFileEntryCommand) Execute(ctx context.Context) (*MessageResult, error) {
	for _, f := range []struct{ name, value string }{
		{"armyID", c.ArmyID}, {"unitID", c.UnitID}, {"fileName", c.FileName},
	} {
		if err := application.ValidateRequired(f.name, f.value); err != nil {
			return nil, err
		}
	}
	if err := c.catalog.RemoveFileEntry(ctx, c.ArmyID, c.UnitID, c.FileName); err != nil {
		return nil, fmt.Errorf("failed to remove file entry: %w", err)
	}
	return &MessageResult{Message: fmt.Sprintf("Removed %s from %s/%s", c.FileName, c.ArmyID, c.UnitID)}, nil
}
