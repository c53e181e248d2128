package domain

import (
	"encoding/json"
	"fmt"
	"path"
	"slices"
	"strings"
)

// CatalogKey is the document key under which GameData is stored
const CatalogKey = "gameData"

// Defaults for units synthesized from a scanned folder
const (
	DefaultMove     = `6"`
	DefaultHealth   = 1
	DefaultSave     = "6+"
	DefaultControl  = 1
	DefaultUnitSize = "1"
	DefaultKeyword  = "Infantry"
)

// GameData is the catalog document: every army and its units.
type GameData struct {
	Armies []Army `json:"armies"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Army is a faction's unit collection. ID is the faction path segment.
type Army struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	Allegiance string `json:"allegiance"`
	Units      []Unit `json:"units"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Stats are the unit profile values shown on a warscroll
type Stats struct {
	Move    string `json:"move"`
	Health  int    `json:"health"`
	Save    string `json:"save"`
	Control int    `json:"control"`
}

// Weapon is one weapon profile of a unit
type Weapon struct {
	Name    string `json:"name"`
	Type    string `json:"type,omitempty"` // "melee" or "ranged"
	Range   string `json:"range,omitempty"`
	Attacks string `json:"attacks"`
	Hit     string `json:"hit"`
	Wound   string `json:"wound"`
	Rend    string `json:"rend"`
	Damage  string `json:"damage"`
}

// StlFileEntry is a file attached to a unit record. Size is human-readable.
// Path is the storage-relative path, which may differ from Name when the file
// is stored compressed.
type StlFileEntry struct {
	Name             string   `json:"name"`
	Size             string   `json:"size"`
	Path             string   `json:"path,omitempty"`
	Variant          string   `json:"variant,omitempty"`
	IsCompressed     bool     `json:"isCompressed,omitempty"`
	CompressionRatio *float64 `json:"compressionRatio,omitempty"`
}

// StorageName is the remote file name the entry refers to; reconciliation
// keys entries by it.
func (e StlFileEntry) StorageName() string {
	if e.Path != "" {
		return path.Base(e.Path)
	}
	return e.Name
}

// Unit is one catalog unit. ID is the sanitized name and the reconciliation
// merge key within its army.
type Unit struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Points       int            `json:"points"`
	Stats        Stats          `json:"stats"`
	UnitSize     string         `json:"unitSize,omitempty"`
	Keywords     []string       `json:"keywords"`
	Weapons      []Weapon       `json:"weapons"`
	Abilities    []Ability      `json:"abilities"`
	StlFiles     []StlFileEntry `json:"stlFiles"`
	PreviewImage string         `json:"previewImage,omitempty"`
	IsCustom     bool           `json:"isCustom"`
	Notes        string         `json:"notes,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// NewDiscoveredUnit synthesizes a unit for a folder found on the remote
// store that the catalog does not know yet.
func NewDiscoveredUnit(folder string) Unit {
	return Unit{
		ID:   Sanitize(folder),
		Name: TitleFromSlug(folder),
		Stats: Stats{
			Move:    DefaultMove,
			Health:  DefaultHealth,
			Save:    DefaultSave,
			Control: DefaultControl,
		},
		UnitSize:  DefaultUnitSize,
		Keywords:  []string{DefaultKeyword},
		Weapons:   []Weapon{},
		Abilities: []Ability{},
		StlFiles:  []StlFileEntry{},
		IsCustom:  false,
	}
}

// Normalize fills nil slices and derives a missing ID from the name.
func (u *Unit) Normalize() {
	if u.ID == "" {
		u.ID = Sanitize(u.Name)
	}
	if u.Keywords == nil {
		u.Keywords = []string{}
	}
	if u.Weapons == nil {
		u.Weapons = []Weapon{}
	}
	if u.Abilities == nil {
		u.Abilities = []Ability{}
	}
	if u.StlFiles == nil {
		u.StlFiles = []StlFileEntry{}
	}
}

// FindArmy returns a pointer into d.Armies or nil.
func (d *GameData) FindArmy(id string) *Army {
	for i := range d.Armies {
		if d.Armies[i].ID == id {
			return &d.Armies[i]
		}
	}
	return nil
}

// FindUnit returns a pointer into a.Units or nil.
func (a *Army) FindUnit(id string) *Unit {
	for i := range a.Units {
		if a.Units[i].ID == id {
			return &a.Units[i]
		}
	}
	return nil
}

// UpsertUnit replaces the unit with the same ID or appends it. It reports
// whether the unit was new.
func (a *Army) UpsertUnit(u Unit) bool {
	if existing := a.FindUnit(u.ID); existing != nil {
		*existing = u
		return false
	}
	a.Units = append(a.Units, u)
	return true
}

// RemoveUnit deletes the unit record and reports whether it existed.
func (a *Army) RemoveUnit(id string) bool {
	before := len(a.Units)
	a.Units = slices.DeleteFunc(a.Units, func(u Unit) bool { return u.ID == id })
	return len(a.Units) != before
}

// RemoveFileEntry drops the entry whose name or storage name matches.
func (u *Unit) RemoveFileEntry(name string) bool {
	before := len(u.StlFiles)
	u.StlFiles = slices.DeleteFunc(u.StlFiles, func(e StlFileEntry) bool {
		return e.Name == name || e.StorageName() == name
	})
	return len(u.StlFiles) != before
}

// Clone returns a deep copy via the JSON encoding, which also carries Extra.
func (d *GameData) Clone() (*GameData, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var out GameData
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AbilityKind tags the two shapes an ability takes in the catalog
type AbilityKind int

const (
	AbilitySimple AbilityKind = iota
	AbilityDetailed
)

// Ability is either a bare name or a name with a description. Simple
// abilities encode as a JSON string, detailed ones as an object.
type Ability struct {
	Kind        AbilityKind
	Name        string
	Description string
}

// SimpleAbility builds a name-only ability.
func SimpleAbility(name string) Ability {
	return Ability{Kind: AbilitySimple, Name: name}
}

// DetailedAbility builds an ability with a description.
func DetailedAbility(name, description string) Ability {
	return Ability{Kind: AbilityDetailed, Name: name, Description: description}
}

type detailedAbility struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (a Ability) MarshalJSON() ([]byte, error) {
	if a.Kind == AbilityDetailed {
		return json.Marshal(detailedAbility{Name: a.Name, Description: a.Description})
	}
	return json.Marshal(a.Name)
}

func (a *Ability) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	if strings.HasPrefix(trimmed, `"`) {
		var name string
		if err := json.Unmarshal(b, &name); err != nil {
			return err
		}
		*a = SimpleAbility(name)
		return nil
	}
	if strings.HasPrefix(trimmed, "{") {
		var d detailedAbility
		if err := json.Unmarshal(b, &d); err != nil {
			return err
		}
		*a = DetailedAbility(d.Name, d.Description)
		return nil
	}
	return fmt.Errorf("ability must be a string or an object, got %s", trimmed)
}

// The aliases below drop the custom methods so the default encoding can be
// used for the modelled fields while unknown members go through Extra.
type (
	gameDataAlias GameData
	armyAlias     Army
	unitAlias     Unit
)

var (
	gameDataFields = jsonFieldNames(GameData{})
	armyFields     = jsonFieldNames(Army{})
	unitFields     = jsonFieldNames(Unit{})
)

func (d GameData) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(gameDataAlias(d), d.Extra)
}

func (d *GameData) UnmarshalJSON(b []byte) error {
	var a gameDataAlias
	extra, err := unmarshalWithExtra(b, &a, gameDataFields)
	if err != nil {
		return err
	}
	a.Extra = extra
	*d = GameData(a)
	return nil
}

func (a Army) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(armyAlias(a), a.Extra)
}

func (a *Army) UnmarshalJSON(b []byte) error {
	var al armyAlias
	extra, err := unmarshalWithExtra(b, &al, armyFields)
	if err != nil {
		return err
	}
	al.Extra = extra
	*a = Army(al)
	return nil
}

func (u Unit) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(unitAlias(u), u.Extra)
}

func (u *Unit) UnmarshalJSON(b []byte) error {
	var a unitAlias
	extra, err := unmarshalWithExtra(b, &a, unitFields)
	if err != nil {
		return err
	}
	a.Extra = extra
	*u = Unit(a)
	return nil
}
