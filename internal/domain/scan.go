package domain

import (
	"fmt"
	"path"
	"slices"
	"strings"
	"time"
)

// UnitChange classifies what a reconciliation pass did to one unit
type UnitChange int

const (
	UnitUnchanged UnitChange = iota
	UnitAdded
	UnitUpdated
)

func (c UnitChange) String() string {
	switch c {
	case UnitAdded:
		return "added"
	case UnitUpdated:
		return "updated"
	default:
		return "unchanged"
	}
}

// UnitFolder is the remote view of one unit folder captured by a scan.
type UnitFolder struct {
	Name  string // folder name as listed
	Dir   string // relative path, allegiance/faction/folder
	Files []RemoteFileRecord
}

// HasFiles reports whether the folder contains at least one regular file.
func (f UnitFolder) HasFiles() bool {
	return slices.ContainsFunc(f.Files, func(r RemoteFileRecord) bool { return !r.IsDirectory })
}

// PreviewPath returns the relative path of the folder's preview image.
func (f UnitFolder) PreviewPath() (string, bool) {
	for _, r := range f.Files {
		if !r.IsDirectory && IsPreviewName(r.Name) {
			return path.Join(f.Dir, r.Name), true
		}
	}
	return "", false
}

// Entries builds file entries for the payload files, sorted by name.
func (f UnitFolder) Entries() []StlFileEntry {
	entries := []StlFileEntry{}
	for _, r := range f.Files {
		if r.IsDirectory || !IsPayloadName(r.Name) {
			continue
		}
		entries = append(entries, StlFileEntry{
			Name:         DisplayName(r.Name),
			Size:         HumanSize(r.Size),
			Path:         path.Join(f.Dir, r.Name),
			IsCompressed: DisplayName(r.Name) != r.Name,
		})
	}
	slices.SortFunc(entries, func(a, b StlFileEntry) int { return strings.Compare(a.Path, b.Path) })
	return entries
}

// UnitScan is the per-unit outcome of merging a folder into the catalog.
type UnitScan struct {
	Change       UnitChange `json:"-"`
	ChangeName   string     `json:"change"`
	Unit         Unit       `json:"unit"`
	FilesAdded   []string   `json:"filesAdded,omitempty"`
	FilesRemoved []string   `json:"filesRemoved,omitempty"`
	PreviewSet   bool       `json:"previewSet,omitempty"`
}

// MergeUnitFolder reconciles one remote unit folder into army. Existing units
// keep every field except their file list, which follows the remote folder
// as a set keyed by storage name, and a missing preview pointer. Units are
// never removed here.
func MergeUnitFolder(army *Army, f UnitFolder) (UnitScan, error) {
	return MergeUnitFolders(army, []UnitFolder{f})
}

// MergeUnitFolders reconciles every folder whose name sanitizes to the same
// unit ID as one unit. Their files are unioned; on a storage name collision
// the first folder wins, and the first folder's name titles a new unit.
func MergeUnitFolders(army *Army, folders []UnitFolder) (UnitScan, error) {
	if len(folders) == 0 {
		return UnitScan{}, fmt.Errorf("no unit folders to merge: %w", ErrInvalid)
	}
	f := folders[0]
	id, err := SanitizeSegment(FieldUnit, f.Name)
	if err != nil {
		return UnitScan{}, err
	}
	var remote []StlFileEntry
	taken := make(map[string]bool)
	preview, hasPreview := "", false
	for _, folder := range folders {
		other, err := SanitizeSegment(FieldUnit, folder.Name)
		if err != nil {
			return UnitScan{}, err
		}
		if other != id {
			return UnitScan{}, fmt.Errorf("folders %q and %q are different units: %w", f.Name, folder.Name, ErrInvalid)
		}
		for _, e := range folder.Entries() {
			if taken[e.StorageName()] {
				continue
			}
			taken[e.StorageName()] = true
			remote = append(remote, e)
		}
		if !hasPreview {
			preview, hasPreview = folder.PreviewPath()
		}
	}
	if remote == nil {
		remote = []StlFileEntry{}
	}

	existing := army.FindUnit(id)
	if existing == nil {
		u := NewDiscoveredUnit(f.Name)
		u.ID = id
		u.StlFiles = remote
		if hasPreview {
			u.PreviewImage = preview
		}
		army.Units = append(army.Units, u)
		scan := UnitScan{Change: UnitAdded, Unit: u, PreviewSet: hasPreview}
		for _, e := range remote {
			scan.FilesAdded = append(scan.FilesAdded, e.StorageName())
		}
		scan.ChangeName = scan.Change.String()
		return scan, nil
	}

	scan := UnitScan{Change: UnitUnchanged}
	remoteByName := make(map[string]StlFileEntry, len(remote))
	for _, e := range remote {
		remoteByName[e.StorageName()] = e
	}

	seen := make(map[string]bool, len(existing.StlFiles))
	kept := make([]StlFileEntry, 0, len(existing.StlFiles)+len(remote))
	modified := false
	for _, e := range existing.StlFiles {
		key := e.StorageName()
		r, ok := remoteByName[key]
		if !ok {
			scan.FilesRemoved = append(scan.FilesRemoved, key)
			continue
		}
		if seen[key] {
			// duplicate entry for the same file
			modified = true
			continue
		}
		seen[key] = true
		if e.Size != r.Size {
			e.Size = r.Size
			modified = true
		}
		if e.Path == "" {
			e.Path = r.Path
			modified = true
		}
		kept = append(kept, e)
	}
	for _, r := range remote {
		if !seen[r.StorageName()] {
			kept = append(kept, r)
			scan.FilesAdded = append(scan.FilesAdded, r.StorageName())
		}
	}

	if len(scan.FilesAdded) > 0 || len(scan.FilesRemoved) > 0 {
		modified = true
	}
	if modified {
		existing.StlFiles = kept
	}
	if existing.PreviewImage == "" && hasPreview {
		existing.PreviewImage = preview
		scan.PreviewSet = true
		modified = true
	}
	if modified {
		scan.Change = UnitUpdated
	}
	scan.Unit = *existing
	scan.ChangeName = scan.Change.String()
	return scan, nil
}

// ScanError records a subtree that could not be reconciled.
type ScanError struct {
	ArmyID string `json:"armyId"`
	Path   string `json:"path,omitempty"`
	Code   string `json:"code"`
	Error  string `json:"error"`
}

// ArmyScan is the outcome of reconciling one army folder.
type ArmyScan struct {
	ArmyID  string      `json:"armyId"`
	Path    string      `json:"path"`
	Units   []UnitScan  `json:"units"`
	Added   int         `json:"added"`
	Updated int         `json:"updated"`
	Errors  []ScanError `json:"errors,omitempty"`
}

// Changed reports whether the army record was modified.
func (s ArmyScan) Changed() bool {
	return s.Added > 0 || s.Updated > 0
}

// ScanSummary aggregates a scan across armies
type ScanSummary struct {
	ArmiesScanned int           `json:"armiesScanned"`
	UnitsAdded    int           `json:"unitsAdded"`
	UnitsUpdated  int           `json:"unitsUpdated"`
	Armies        []ArmyScan    `json:"armies"`
	Errors        []ScanError   `json:"errors"`
	Persisted     bool          `json:"persisted"`
	Duration      time.Duration `json:"duration"`
}

// Add folds an army result into the summary.
func (s *ScanSummary) Add(a ArmyScan) {
	s.ArmiesScanned++
	s.UnitsAdded += a.Added
	s.UnitsUpdated += a.Updated
	s.Armies = append(s.Armies, a)
	s.Errors = append(s.Errors, a.Errors...)
}
