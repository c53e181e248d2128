package styles

import (
	"strings"
	"testing"

	"printvault/internal/domain"
)

func TestStatusKeepsWord(t *testing.T) {
	for _, s := range []string{domain.HealthOK, domain.HealthDegraded, domain.HealthError} {
		if got := Status(s); !strings.Contains(got, s) {
			t.Fatalf("Status(%q) = %q, want it to contain the status", s, got)
		}
	}
}

func TestChangeMarkers(t *testing.T) {
	tests := []struct {
		name   string
		marker string
	}{
		{"added", "+ added"},
		{"updated", "~ updated"},
		{"unchanged", "unchanged"},
	}
	for _, tt := range tests {
		if got := Change(tt.name); !strings.Contains(got, tt.marker) {
			t.Errorf("Change(%q) = %q, want %q", tt.name, got, tt.marker)
		}
	}
}
