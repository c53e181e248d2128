package application

import (
	"fmt"
	"strings"

	"printvault/internal/domain"
)

// ValidateRequired checks if a string field is non-empty (after trimming whitespace).
// Returns a ValidationError if the field is empty.
func ValidateRequired(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		// Format field name with spaces for error message (e.g., "armyID" -> "army ID")
		displayName := formatFieldName(fieldName)
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("%s is required", displayName),
		}
	}
	return nil
}

// formatFieldName converts camelCase field names to space-separated words
// for more readable error messages (e.g., "unitID" -> "unit ID")
func formatFieldName(fieldName string) string {
	replacements := map[string]string{
		"armyID":   "army ID",
		"unitID":   "unit ID",
		"fileName": "file name",
		"stlFiles": "STL files",
	}

	if formatted, ok := replacements[fieldName]; ok {
		return formatted
	}

	return fieldName
}

// ValidateTaxonomy checks that all three labels are present and resolve to
// usable path segments.
func ValidateTaxonomy(allegiance, faction, unit string) (domain.TaxonomyPath, error) {
	for _, f := range []struct{ name, value string }{
		{domain.FieldAllegiance, allegiance},
		{domain.FieldFaction, faction},
		{domain.FieldUnit, unit},
	} {
		if err := ValidateRequired(f.name, f.value); err != nil {
			return domain.TaxonomyPath{}, err
		}
	}
	return domain.NewTaxonomyPath(allegiance, faction, unit)
}

// ValidateFileName rejects names that would escape the unit folder. The name
// itself is otherwise stored unmodified.
func ValidateFileName(fieldName, name string) error {
	if err := ValidateRequired(fieldName, name); err != nil {
		return err
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("invalid %s: %q", formatFieldName(fieldName), name),
		}
	}
	return nil
}

// ValidateUploadFile applies the file-type policy and the size limit to one
// upload part. A maxSize of zero disables the size check.
func ValidateUploadFile(fieldName, name, mimeType string, size, maxSize int64) error {
	if err := ValidateFileName(fieldName, name); err != nil {
		return err
	}
	if !domain.AcceptedFile(name, mimeType) {
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("file type not allowed: %s", name),
		}
	}
	if maxSize > 0 && size > maxSize {
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("%s exceeds the maximum size of %s", name, domain.HumanSize(maxSize)),
		}
	}
	return nil
}
