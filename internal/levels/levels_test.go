package levels

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/minigames/internal/tangram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const repoPack = "../../levels/shapes.yaml"

func TestLoadRepositoryPack(t *testing.T) {
	levels, err := LoadPack(repoPack)
	require.NoError(t, err)
	require.Len(t, levels, 2)

	square := levels[0]
	assert.Equal(t, 2, square.ID)
	assert.Equal(t, "Square", square.Name)
	assert.Equal(t, tangram.Pose{X: 17, Y: 17, Rotation: 180}, square.Pieces[1].Solution)
	assert.Equal(t, []float64{0, 90, 180, 270}, levels[1].Pieces[0].ValidRotations)
}

func TestParsePackRejectsInvalidLevel(t *testing.T) {
	_, err := ParsePack([]byte(`
levels:
  - id: 9
    name: broken
    board_size: {width: 100, height: 100}
    pieces: []
`))
	assert.ErrorIs(t, err, tangram.ErrInvalidLevel)

	_, err = ParsePack([]byte("levels: [oops"))
	assert.Error(t, err)
}

func TestCatalogueGetReturnsCopy(t *testing.T) {
	c, err := NewCatalogue(tangram.BuiltinLevels()...)
	require.NoError(t, err)

	a, err := c.Get(1)
	require.NoError(t, err)
	a.Pieces[0].Solution.X = 999

	b, err := c.Get(1)
	require.NoError(t, err)
	assert.NotEqual(t, 999.0, b.Pieces[0].Solution.X)

	_, err = c.Get(42)
	assert.ErrorIs(t, err, ErrLevelNotFound)
}

func TestLoadMergesPackOverBuiltins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pack.yaml")
	data, err := os.ReadFile(repoPack)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	c, err := Load(context.Background(), path, nil)
	require.NoError(t, err)

	ids := []int{}
	for _, l := range c.List() {
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []int{1, 2, 3}, ids)
}

func TestLoadMissingPack(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func mockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return NewStore(sqlx.NewDb(raw, "postgres")), mock
}

func TestStoreListDecodesDefinitions(t *testing.T) {
	store, mock := mockStore(t)
	level := tangram.BuiltinLevels()[0]
	level.ID = 7
	def, err := json.Marshal(level)
	require.NoError(t, err)

	now := time.Now()
	mock.ExpectQuery("SELECT id, name, definition, enabled").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "definition", "enabled", "created_at", "updated_at"}).
			AddRow(7, "Arrow again", def, true, now, now))

	got, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 7, got[0].ID)
	assert.Len(t, got[0].Pieces, len(level.Pieces))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogueSaveWritesThrough(t *testing.T) {
	store, mock := mockStore(t)
	c, err := NewCatalogue()
	require.NoError(t, err)
	c.store = store

	level := tangram.BuiltinLevels()[0]
	level.ID = 5
	mock.ExpectExec("INSERT INTO levels").
		WithArgs(5, level.Name, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, c.Save(context.Background(), level))
	_, err = c.Get(5)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	bad := level
	bad.Pieces = nil
	assert.ErrorIs(t, c.Save(context.Background(), bad), tangram.ErrInvalidLevel)
}

func TestStoreDisableUnknownLevel(t *testing.T) {
	store, mock := mockStore(t)
	mock.ExpectExec("UPDATE levels SET enabled = FALSE").
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, store.Disable(context.Background(), 3), ErrLevelNotFound)
}

func TestCatalogueRemove(t *testing.T) {
	cat, err := NewCatalogue(tangram.BuiltinLevels()...)
	require.NoError(t, err)

	require.NoError(t, cat.Remove(context.Background(), 1))
	_, err = cat.Get(1)
	assert.ErrorIs(t, err, ErrLevelNotFound)
	assert.ErrorIs(t, cat.Remove(context.Background(), 1), ErrLevelNotFound)
}
