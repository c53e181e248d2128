package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printvault/internal/adapters/memory"
	"printvault/internal/domain"
)

type reconcilerFixture struct {
	storage *memory.Storage
	store   *memory.CatalogStore
	catalog *Catalog
	rec     *Reconciler
}

func newReconcilerFixture(t *testing.T, doc string) *reconcilerFixture {
	t.Helper()
	f := &reconcilerFixture{
		storage: memory.NewStorage(),
		store:   memory.NewCatalogStore(),
	}
	if doc != "" {
		seedCatalog(t, f.store, doc)
	}
	f.catalog = NewCatalog(f.store, nil)
	f.rec = NewReconciler(f.storage, f.catalog, nil, 2)
	return f
}

func (f *reconcilerFixture) export(t *testing.T) string {
	t.Helper()
	out, err := f.catalog.Export(context.Background())
	require.NoError(t, err)
	return string(out)
}

const skavenCatalog = `{"armies":[
  {"id":"skaven","allegiance":"chaos","units":[
    {"id":"clanrats","name":"Clanrats","points":100,"notes":"hand edited","isCustom":true,
     "stats":{"move":"6\"","health":1,"save":"5+","control":1},
     "keywords":["Infantry"],"weapons":[],"abilities":["Strength in Numbers"],
     "stlFiles":[{"name":"a.stl","size":"1 B"},{"name":"b.stl","size":"1 B"}]}
  ]},
  {"id":"stormcast-eternals","allegiance":"order","units":[]}
]}`

func TestScanArmyDriftAndDiscovery(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture(t, skavenCatalog)
	f.storage.Put("chaos/skaven/clanrats/a.stl", []byte("a"))
	f.storage.Put("chaos/skaven/clanrats/c.stl", []byte("c"))
	f.storage.Put("chaos/skaven/plague-monks/monk.stl.xz", []byte("xz"))
	f.storage.Put("chaos/skaven/plague-monks/preview.jpg", []byte("jpg"))
	f.storage.Put("chaos/skaven/empty-folder/.keep/x.stl", []byte("nested only"))

	result, err := f.rec.ScanArmy(ctx, "skaven")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 1, result.Updated)
	assert.Empty(t, result.Errors)

	army, err := f.catalog.Army(ctx, "skaven")
	require.NoError(t, err)

	clanrats := army.FindUnit("clanrats")
	require.NotNil(t, clanrats)
	assert.Equal(t, []string{"a.stl", "c.stl"}, []string{clanrats.StlFiles[0].Name, clanrats.StlFiles[1].Name})
	assert.Equal(t, "hand edited", clanrats.Notes)
	assert.Equal(t, 100, clanrats.Points)
	assert.Equal(t, []domain.Ability{domain.SimpleAbility("Strength in Numbers")}, clanrats.Abilities)

	monks := army.FindUnit("plague-monks")
	require.NotNil(t, monks)
	assert.Equal(t, "Plague Monks", monks.Name)
	assert.Equal(t, "chaos/skaven/plague-monks/preview.jpg", monks.PreviewImage)
	require.Len(t, monks.StlFiles, 1)
	assert.Equal(t, "monk.stl", monks.StlFiles[0].Name)
	assert.True(t, monks.StlFiles[0].IsCompressed)

	assert.Nil(t, army.FindUnit("empty-folder"), "folders without files are skipped")
}

func TestScanArmyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture(t, skavenCatalog)
	f.storage.Put("chaos/skaven/clanrats/a.stl", []byte("a"))
	f.storage.Put("chaos/skaven/rat-ogors/ogor.stl", []byte("ogor"))

	_, err := f.rec.ScanArmy(ctx, "skaven")
	require.NoError(t, err)
	before := f.export(t)
	writes := f.store.Writes(domain.CatalogKey)

	second, err := f.rec.ScanArmy(ctx, "skaven")
	require.NoError(t, err)
	assert.Zero(t, second.Added)
	assert.Zero(t, second.Updated)
	assert.Empty(t, second.Units)
	assert.Equal(t, before, f.export(t))
	assert.Equal(t, writes, f.store.Writes(domain.CatalogKey), "no write when nothing changed")
}

func TestScanArmyFoldersWithTheSameUnitID(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture(t, skavenCatalog)
	f.storage.Put("chaos/skaven/Clan Rats/a.stl", []byte("a"))
	f.storage.Put("chaos/skaven/clan-rats/b.stl", []byte("b"))

	first, err := f.rec.ScanArmy(ctx, "skaven")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Added)
	assert.Zero(t, first.Updated)
	writes := f.store.Writes(domain.CatalogKey)

	for i := 0; i < 2; i++ {
		again, err := f.rec.ScanArmy(ctx, "skaven")
		require.NoError(t, err)
		assert.Zero(t, again.Added)
		assert.Zero(t, again.Updated)
	}
	assert.Equal(t, writes, f.store.Writes(domain.CatalogKey))

	army, err := f.catalog.Army(ctx, "skaven")
	require.NoError(t, err)
	unit := army.FindUnit("clan-rats")
	require.NotNil(t, unit)
	require.Len(t, unit.StlFiles, 2)
	assert.Equal(t, "a.stl", unit.StlFiles[0].Name)
	assert.Equal(t, "b.stl", unit.StlFiles[1].Name)
}

func TestScanArmyUnknownArmy(t *testing.T) {
	f := newReconcilerFixture(t, skavenCatalog)
	_, err := f.rec.ScanArmy(context.Background(), "nurgle")
	assert.True(t, domain.IsNotFound(err))

	_, err = f.rec.ScanArmy(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestScanArmyListingFailure(t *testing.T) {
	f := newReconcilerFixture(t, skavenCatalog)
	f.storage.FailList("chaos/skaven", memory.InjectedConnectionError())

	_, err := f.rec.ScanArmy(context.Background(), "skaven")
	require.Error(t, err)
	assert.Equal(t, domain.CodeConnection, domain.CodeOf(err))
}

func TestScanAllIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture(t, skavenCatalog)
	f.storage.Put("chaos/skaven/clanrats/a.stl", []byte("a"))
	f.storage.Put("order/stormcast-eternals/liberators/liberator.stl", []byte("lib"))
	f.storage.FailList("chaos/skaven", memory.InjectedConnectionError())

	summary, err := f.rec.ScanAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.ArmiesScanned)
	assert.Equal(t, 1, summary.UnitsAdded)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, "skaven", summary.Errors[0].ArmyID)
	assert.Equal(t, string(domain.CodeConnection), summary.Errors[0].Code)
	assert.True(t, summary.Persisted)

	stormcast, err := f.catalog.Army(ctx, "stormcast-eternals")
	require.NoError(t, err)
	assert.NotNil(t, stormcast.FindUnit("liberators"))

	// the failed army's record is untouched
	skaven, err := f.catalog.Army(ctx, "skaven")
	require.NoError(t, err)
	assert.Len(t, skaven.FindUnit("clanrats").StlFiles, 2)
}

func TestScanAllUnitFolderFailureIsReported(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture(t, skavenCatalog)
	f.storage.Put("chaos/skaven/clanrats/a.stl", []byte("a"))
	f.storage.Put("chaos/skaven/rat-ogors/ogor.stl", []byte("ogor"))
	f.storage.FailList("chaos/skaven/rat-ogors", memory.InjectedConnectionError())

	summary, err := f.rec.ScanAll(ctx)
	require.NoError(t, err)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, "chaos/skaven/rat-ogors", summary.Errors[0].Path)
	assert.Equal(t, 1, summary.UnitsUpdated)
}

func TestScanAllWritesOnce(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture(t, skavenCatalog)
	f.storage.Put("chaos/skaven/rat-ogors/ogor.stl", []byte("ogor"))
	f.storage.Put("order/stormcast-eternals/liberators/liberator.stl", []byte("lib"))

	before := f.store.Writes(domain.CatalogKey)
	summary, err := f.rec.ScanAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.UnitsAdded)
	assert.Equal(t, before+1, f.store.Writes(domain.CatalogKey))

	again, err := f.rec.ScanAll(ctx)
	require.NoError(t, err)
	assert.False(t, again.Persisted)
	assert.Equal(t, before+1, f.store.Writes(domain.CatalogKey))
}
