package application

import (
	"context"

	"printvault/internal/domain"
	"printvault/internal/ports"
)

// ResolvePath maps display labels to the relative unit folder path. Missing
// labels are reported as validation errors before sanitizing.
func ResolvePath(allegiance, faction, unit string) (string, error) {
	if _, err := ValidateTaxonomy(allegiance, faction, unit); err != nil {
		return "", err
	}
	return domain.ResolvePath(allegiance, faction, unit)
}

// DirectoryExists collapses a probe to a boolean: only a positive answer
// counts, transport errors read as missing.
func DirectoryExists(ctx context.Context, s ports.RemoteStorage, dir string) bool {
	return s.Probe(ctx, dir).Exists()
}
