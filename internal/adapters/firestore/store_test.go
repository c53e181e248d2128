package firestore

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"printvault/internal/adapters/catalogtest"
	"printvault/internal/ports"
)

func TestStoreContract(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	catalogtest.Run(t, func(t *testing.T) ports.CatalogStore {
		s, err := Dial(context.Background(), "test-project", "catalog-"+uuid.NewString())
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}
