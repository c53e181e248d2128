package application

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printvault/internal/domain"
)

func TestValidateRequired(t *testing.T) {
	tests := []struct {
		name      string
		fieldName string
		value     string
		wantErr   bool
		wantMsg   string
	}{
		{name: "valid value", fieldName: "allegiance", value: "Order"},
		{name: "empty string", fieldName: "unitID", value: "", wantErr: true, wantMsg: "unit ID is required"},
		{name: "whitespace only", fieldName: "faction", value: "   ", wantErr: true, wantMsg: "faction is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequired(tt.fieldName, tt.value)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var valErr *ValidationError
			require.True(t, errors.As(err, &valErr), "expected ValidationError, got %T", err)
			assert.Equal(t, tt.fieldName, valErr.Field)
			assert.Equal(t, tt.wantMsg, valErr.Message)
			assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestValidateTaxonomy(t *testing.T) {
	p, err := ValidateTaxonomy("Chaos", "skaven", "Clanrats")
	require.NoError(t, err)
	assert.Equal(t, "chaos/skaven/clanrats", p.Path())

	_, err = ValidateTaxonomy("Chaos", "", "Clanrats")
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, domain.FieldFaction, valErr.Field)

	_, err = ValidateTaxonomy("Chaos", "skaven", "!!!")
	assert.Equal(t, domain.CodeInvalidPath, domain.CodeOf(err))
}

func TestValidateUploadFile(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		mimeType string
		size     int64
		wantErr  bool
	}{
		{name: "stl", fileName: "troop.stl", mimeType: "application/octet-stream", size: 10},
		{name: "original name kept even with spaces", fileName: "Troop Leader (v2).stl", size: 10},
		{name: "too big", fileName: "troop.stl", size: 2048, wantErr: true},
		{name: "path traversal", fileName: "../troop.stl", size: 10, wantErr: true},
		{name: "disallowed type", fileName: "troop.obj", size: 10, wantErr: true},
		{name: "missing name", fileName: "", size: 10, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUploadFile("stlFiles", tt.fileName, tt.mimeType, tt.size, 1024)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
				return
			}
			assert.NoError(t, err)
		})
	}
}
