package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"printvault/internal/domain"
	"printvault/internal/ports"
)

// maxConflictRetries bounds how often Update reloads after a version conflict
const maxConflictRetries = 3

// Catalog is the read-modify-write gate in front of a CatalogStore. Writers in
// this process are serialized by a mutex; writers in other processes are
// caught by the store's version check and retried.
type Catalog struct {
	store  ports.CatalogStore
	key    string
	logger *zap.Logger

	mu sync.Mutex
}

// NewCatalog creates a Catalog over store using the default document key.
func NewCatalog(store ports.CatalogStore, logger *zap.Logger) *Catalog {
	return NewCatalogWithKey(store, domain.CatalogKey, logger)
}

// NewCatalogWithKey creates a Catalog for a specific document key.
func NewCatalogWithKey(store ports.CatalogStore, key string, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	if key == "" {
		key = domain.CatalogKey
	}
	return &Catalog{store: store, key: key, logger: logger}
}

// Load returns the current document and its version. A missing document is
// an empty catalog at version 0.
func (c *Catalog) Load(ctx context.Context) (*domain.GameData, uint64, error) {
	data, version, err := c.store.Get(ctx, c.key)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.GameData{Armies: []domain.Army{}}, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read catalog: %w", err)
	}

	var gd domain.GameData
	if err := json.Unmarshal(data, &gd); err != nil {
		return nil, 0, fmt.Errorf("failed to decode catalog: %w", err)
	}
	if gd.Armies == nil {
		gd.Armies = []domain.Army{}
	}
	return &gd, version, nil
}

// Update applies fn to a freshly loaded document and writes it back when fn
// reports a change. fn may run more than once if another writer gets in
// first, so it must derive everything from the document it is given.
func (c *Catalog) Update(ctx context.Context, fn func(*domain.GameData) (bool, error)) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for attempt := 0; ; attempt++ {
		gd, version, err := c.Load(ctx)
		if err != nil {
			return false, err
		}

		changed, err := fn(gd)
		if err != nil || !changed {
			return false, err
		}

		data, err := json.MarshalIndent(gd, "", "  ")
		if err != nil {
			return false, fmt.Errorf("failed to encode catalog: %w", err)
		}

		_, err = c.store.Set(ctx, c.key, data, version)
		if err == nil {
			return true, nil
		}
		if errors.Is(err, domain.ErrConflict) && attempt < maxConflictRetries {
			c.logger.Warn("catalog changed underneath, retrying",
				zap.Int("attempt", attempt+1),
				zap.Uint64("version", version))
			continue
		}
		return false, fmt.Errorf("failed to write catalog: %w", err)
	}
}

// Armies returns every army in the catalog.
func (c *Catalog) Armies(ctx context.Context) ([]domain.Army, error) {
	gd, _, err := c.Load(ctx)
	if err != nil {
		return nil, err
	}
	return gd.Armies, nil
}

// Army returns one army or a *domain.NotFoundError.
func (c *Catalog) Army(ctx context.Context, id string) (*domain.Army, error) {
	gd, _, err := c.Load(ctx)
	if err != nil {
		return nil, err
	}
	army := gd.FindArmy(id)
	if army == nil {
		return nil, &domain.NotFoundError{Kind: "army", Path: id}
	}
	return army, nil
}

// UpsertArmy creates an army or replaces its metadata. Units already in the
// catalog are kept when the incoming army carries none.
func (c *Catalog) UpsertArmy(ctx context.Context, army domain.Army) (bool, error) {
	isNew := false
	_, err := c.Update(ctx, func(gd *domain.GameData) (bool, error) {
		existing := gd.FindArmy(army.ID)
		if existing == nil {
			isNew = true
			if army.Units == nil {
				army.Units = []domain.Unit{}
			}
			gd.Armies = append(gd.Armies, army)
			return true, nil
		}
		isNew = false
		units := existing.Units
		*existing = army
		if existing.Units == nil {
			existing.Units = units
		}
		return true, nil
	})
	return isNew, err
}

// UpsertUnit replaces or appends one unit record of an existing army.
func (c *Catalog) UpsertUnit(ctx context.Context, armyID string, unit domain.Unit) (bool, error) {
	isNew := false
	_, err := c.Update(ctx, func(gd *domain.GameData) (bool, error) {
		army := gd.FindArmy(armyID)
		if army == nil {
			return false, &domain.NotFoundError{Kind: "army", Path: armyID}
		}
		isNew = army.UpsertUnit(unit)
		return true, nil
	})
	return isNew, err
}

// DeleteUnit removes a unit record. Remote files are left alone.
func (c *Catalog) DeleteUnit(ctx context.Context, armyID, unitID string) error {
	_, err := c.Update(ctx, func(gd *domain.GameData) (bool, error) {
		army := gd.FindArmy(armyID)
		if army == nil {
			return false, &domain.NotFoundError{Kind: "army", Path: armyID}
		}
		if !army.RemoveUnit(unitID) {
			return false, &domain.NotFoundError{Kind: "unit", Path: armyID + "/" + unitID}
		}
		return true, nil
	})
	return err
}

// RemoveFileEntry drops one file entry from a unit record.
func (c *Catalog) RemoveFileEntry(ctx context.Context, armyID, unitID, fileName string) error {
	_, err := c.Update(ctx, func(gd *domain.GameData) (bool, error) {
		army := gd.FindArmy(armyID)
		if army == nil {
			return false, &domain.NotFoundError{Kind: "army", Path: armyID}
		}
		unit := army.FindUnit(unitID)
		if unit == nil {
			return false, &domain.NotFoundError{Kind: "unit", Path: armyID + "/" + unitID}
		}
		if !unit.RemoveFileEntry(fileName) {
			return false, &domain.NotFoundError{Kind: "entry", Path: armyID + "/" + unitID + "/" + fileName}
		}
		return true, nil
	})
	return err
}

// Export returns the stored document as indented JSON.
func (c *Catalog) Export(ctx context.Context) ([]byte, error) {
	gd, _, err := c.Load(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(gd, "", "  ")
}

// Import replaces the whole document after checking that data decodes.
func (c *Catalog) Import(ctx context.Context, data []byte) error {
	var incoming domain.GameData
	if err := json.Unmarshal(data, &incoming); err != nil {
		return &ValidationError{Field: "catalog", Message: fmt.Sprintf("invalid catalog JSON: %v", err)}
	}
	for i := range incoming.Armies {
		army := &incoming.Armies[i]
		seen := make(map[string]bool, len(army.Units))
		for j := range army.Units {
			army.Units[j].Normalize()
			id := army.Units[j].ID
			if seen[id] {
				return &ValidationError{Field: "catalog", Message: fmt.Sprintf("army %s has more than one unit with ID %s", army.ID, id)}
			}
			seen[id] = true
		}
	}
	_, err := c.Update(ctx, func(gd *domain.GameData) (bool, error) {
		*gd = incoming
		return true, nil
	})
	return err
}

// Clear deletes the stored document.
func (c *Catalog) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Clear(ctx, c.key); err != nil {
		return fmt.Errorf("failed to clear catalog: %w", err)
	}
	return nil
}
