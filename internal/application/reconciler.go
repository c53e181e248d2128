package application

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"printvault/internal/domain"
	"printvault/internal/ports"
)

// Reconciler imports unit folders found on the remote store into the catalog.
// Listings are taken before the catalog is locked; the merge itself runs
// inside Catalog.Update and only writes when something changed.
type Reconciler struct {
	storage     ports.RemoteStorage
	catalog     *Catalog
	logger      *zap.Logger
	concurrency int

	group singleflight.Group
}

// NewReconciler creates a Reconciler. concurrency bounds how many army
// folders ScanAll lists at once.
func NewReconciler(storage ports.RemoteStorage, catalog *Catalog, logger *zap.Logger, concurrency int) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Reconciler{
		storage:     storage,
		catalog:     catalog,
		logger:      logger,
		concurrency: concurrency,
	}
}

// armySnapshot is the remote state of one army folder
type armySnapshot struct {
	army    domain.Army
	path    string
	folders []domain.UnitFolder
	errors  []domain.ScanError
	err     error
}

// ScanArmy reconciles one army's folder. Concurrent calls for the same army
// share a single run.
func (r *Reconciler) ScanArmy(ctx context.Context, armyID string) (*domain.ArmyScan, error) {
	if err := ValidateRequired("armyID", armyID); err != nil {
		return nil, err
	}
	v, err, _ := r.group.Do("army:"+armyID, func() (any, error) {
		return r.scanArmy(ctx, armyID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.ArmyScan), nil
}

// ScanAll reconciles every army in the catalog and writes the catalog once.
// An army whose folder cannot be listed is reported in the summary errors
// and does not stop the others.
func (r *Reconciler) ScanAll(ctx context.Context) (*domain.ScanSummary, error) {
	v, err, _ := r.group.Do("all", func() (any, error) {
		return r.scanAll(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.ScanSummary), nil
}

func (r *Reconciler) scanArmy(ctx context.Context, armyID string) (*domain.ArmyScan, error) {
	start := time.Now()
	army, err := r.catalog.Army(ctx, armyID)
	if err != nil {
		return nil, err
	}

	snap := r.snapshot(ctx, *army)
	if snap.err != nil {
		return nil, fmt.Errorf("failed to list army %s: %w", armyID, snap.err)
	}

	var result domain.ArmyScan
	_, err = r.catalog.Update(ctx, func(gd *domain.GameData) (bool, error) {
		result = r.merge(gd, snap)
		return result.Changed(), nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("army scanned",
		zap.String("army", armyID),
		zap.Int("added", result.Added),
		zap.Int("updated", result.Updated),
		zap.Int("errors", len(result.Errors)),
		zap.Duration("took", time.Since(start)))
	return &result, nil
}

func (r *Reconciler) scanAll(ctx context.Context) (*domain.ScanSummary, error) {
	start := time.Now()
	armies, err := r.catalog.Armies(ctx)
	if err != nil {
		return nil, err
	}

	snaps := make([]armySnapshot, len(armies))
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, army := range armies {
		g.Go(func() error {
			snaps[i] = r.snapshot(ctx, army)
			return nil
		})
	}
	_ = g.Wait()

	summary := &domain.ScanSummary{Errors: []domain.ScanError{}, Armies: []domain.ArmyScan{}}
	persisted, err := r.catalog.Update(ctx, func(gd *domain.GameData) (bool, error) {
		*summary = domain.ScanSummary{Errors: []domain.ScanError{}, Armies: []domain.ArmyScan{}}
		changed := false
		for _, snap := range snaps {
			if snap.err != nil {
				summary.Add(domain.ArmyScan{
					ArmyID: snap.army.ID,
					Path:   snap.path,
					Units:  []domain.UnitScan{},
					Errors: []domain.ScanError{scanError(snap.army.ID, snap.path, snap.err)},
				})
				continue
			}
			result := r.merge(gd, snap)
			changed = changed || result.Changed()
			summary.Add(result)
		}
		return changed, nil
	})
	if err != nil {
		return nil, err
	}
	summary.Persisted = persisted
	summary.Duration = time.Since(start)

	r.logger.Info("scan finished",
		zap.Int("armies", summary.ArmiesScanned),
		zap.Int("added", summary.UnitsAdded),
		zap.Int("updated", summary.UnitsUpdated),
		zap.Int("errors", len(summary.Errors)),
		zap.Bool("persisted", persisted),
		zap.Duration("took", summary.Duration))
	return summary, nil
}

// snapshot lists the army folder and every unit folder below it. A unit
// folder that cannot be listed is recorded and skipped.
func (r *Reconciler) snapshot(ctx context.Context, army domain.Army) armySnapshot {
	snap := armySnapshot{army: army}

	armyPath, err := domain.ArmyPath(army.Allegiance, army.ID)
	if err != nil {
		snap.err = err
		return snap
	}
	snap.path = armyPath

	entries, err := r.storage.List(ctx, armyPath)
	if err != nil {
		snap.err = err
		return snap
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for _, entry := range entries {
		if !entry.IsDirectory {
			continue
		}
		dir := path.Join(armyPath, entry.Name)
		g.Go(func() error {
			files, err := r.storage.List(ctx, dir)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				r.logger.Warn("unit folder listing failed", zap.String("path", dir), zap.Error(err))
				snap.errors = append(snap.errors, scanError(army.ID, dir, err))
				return nil
			}
			snap.folders = append(snap.folders, domain.UnitFolder{Name: entry.Name, Dir: dir, Files: files})
			return nil
		})
	}
	_ = g.Wait()

	sortFolders(snap.folders)
	return snap
}

// merge applies a snapshot to the catalog document.
func (r *Reconciler) merge(gd *domain.GameData, snap armySnapshot) domain.ArmyScan {
	result := domain.ArmyScan{
		ArmyID: snap.army.ID,
		Path:   snap.path,
		Units:  []domain.UnitScan{},
		Errors: append([]domain.ScanError(nil), snap.errors...),
	}

	army := gd.FindArmy(snap.army.ID)
	if army == nil {
		// removed from the catalog while we were listing
		result.Errors = append(result.Errors, scanError(snap.army.ID, snap.path,
			&domain.NotFoundError{Kind: "army", Path: snap.army.ID}))
		return result
	}

	// folders whose names sanitize alike are one unit
	var ids []string
	groups := make(map[string][]domain.UnitFolder)
	for _, folder := range snap.folders {
		if !folder.HasFiles() {
			continue
		}
		id, err := domain.SanitizeSegment(domain.FieldUnit, folder.Name)
		if err != nil {
			result.Errors = append(result.Errors, scanError(army.ID, folder.Dir, err))
			continue
		}
		if _, ok := groups[id]; !ok {
			ids = append(ids, id)
		}
		groups[id] = append(groups[id], folder)
	}

	for _, id := range ids {
		folders := groups[id]
		scan, err := domain.MergeUnitFolders(army, folders)
		if err != nil {
			result.Errors = append(result.Errors, scanError(army.ID, folders[0].Dir, err))
			continue
		}
		switch scan.Change {
		case domain.UnitAdded:
			result.Added++
		case domain.UnitUpdated:
			result.Updated++
		default:
			continue
		}
		result.Units = append(result.Units, scan)
	}
	return result
}

func scanError(armyID, p string, err error) domain.ScanError {
	return domain.ScanError{
		ArmyID: armyID,
		Path:   p,
		Code:   string(domain.CodeOf(err)),
		Error:  err.Error(),
	}
}

func sortFolders(folders []domain.UnitFolder) {
	slices.SortFunc(folders, func(a, b domain.UnitFolder) int { return strings.Compare(a.Name, b.Name) })
}
