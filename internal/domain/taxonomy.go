package domain

import (
	"path"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Taxonomy field names, used in validation and path errors
const (
	FieldAllegiance = "allegiance"
	FieldFaction    = "faction"
	FieldUnit       = "unit"
)

// TaxonomyPath is the (allegiance, faction, unit) triple that addresses a unit
// folder on the remote store. Fields hold sanitized segments.
type TaxonomyPath struct {
	Allegiance string
	Faction    string
	Unit       string
}

// Sanitize turns a free-text label into a path segment: lowercase, every
// character outside [a-z0-9] becomes '-', runs of '-' collapse, and leading or
// trailing '-' are trimmed. Non-ASCII letters are not transliterated, they are
// dropped like any other separator.
// e.g., "Stormcast Eternals" -> "stormcast-eternals"
func Sanitize(label string) string {
	var b strings.Builder
	b.Grow(len(label))

	pendingHyphen := false
	for _, r := range strings.ToLower(label) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// SanitizeSegment sanitizes label and fails when nothing survives.
func SanitizeSegment(field, label string) (string, error) {
	seg := Sanitize(label)
	if seg == "" {
		return "", &InvalidPathSegmentError{Field: field, Label: label}
	}
	return seg, nil
}

// NewTaxonomyPath sanitizes all three labels.
func NewTaxonomyPath(allegiance, faction, unit string) (TaxonomyPath, error) {
	a, err := SanitizeSegment(FieldAllegiance, allegiance)
	if err != nil {
		return TaxonomyPath{}, err
	}
	f, err := SanitizeSegment(FieldFaction, faction)
	if err != nil {
		return TaxonomyPath{}, err
	}
	u, err := SanitizeSegment(FieldUnit, unit)
	if err != nil {
		return TaxonomyPath{}, err
	}
	return TaxonomyPath{Allegiance: a, Faction: f, Unit: u}, nil
}

// Path returns the slash-joined relative folder path.
func (p TaxonomyPath) Path() string {
	return p.Allegiance + "/" + p.Faction + "/" + p.Unit
}

func (p TaxonomyPath) Segments() []string {
	return []string{p.Allegiance, p.Faction, p.Unit}
}

// ArmyPath returns the folder holding all unit folders of the faction.
func (p TaxonomyPath) ArmyPath() string {
	return p.Allegiance + "/" + p.Faction
}

// File returns the relative path of a file inside the unit folder.
func (p TaxonomyPath) File(name string) string {
	return path.Join(p.Path(), name)
}

// ResolvePath maps display labels to the relative unit folder path.
// e.g., ("Order", "Stormcast Eternals", "Liberators") -> "order/stormcast-eternals/liberators"
func ResolvePath(allegiance, faction, unit string) (string, error) {
	p, err := NewTaxonomyPath(allegiance, faction, unit)
	if err != nil {
		return "", err
	}
	return p.Path(), nil
}

// ArmyPath resolves the faction folder used as a reconciliation subtree.
func ArmyPath(allegiance, faction string) (string, error) {
	a, err := SanitizeSegment(FieldAllegiance, allegiance)
	if err != nil {
		return "", err
	}
	f, err := SanitizeSegment(FieldFaction, faction)
	if err != nil {
		return "", err
	}
	return a + "/" + f, nil
}

// TitleFromSlug builds a display name from a folder name.
// e.g., "stormcast-eternals" -> "Stormcast Eternals"
func TitleFromSlug(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' })
	// Casers keep state, so each call gets its own.
	return cases.Title(language.Und).String(strings.Join(words, " "))
}
