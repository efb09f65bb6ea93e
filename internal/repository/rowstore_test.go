package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRowStore runs the behaviour every RowStore backend has to share.
func testRowStore(t *testing.T, store RowStore) {
	ctx := context.Background()

	_, found, err := store.FindTable(ctx, "42")
	require.NoError(t, err)
	assert.False(t, found)

	h, err := store.CreateTable(ctx, "42", "Артикул")
	require.NoError(t, err)
	assert.Equal(t, "42", h.Title)

	found42, found, err := store.FindTable(ctx, "42")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, h, found42)

	values, err := store.ColumnValues(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, []string{"Артикул"}, values)

	for _, v := range []string{"A", "B (2)", "C"} {
		require.NoError(t, store.AppendRow(ctx, h, v))
	}
	require.NoError(t, store.UpdateRow(ctx, h, 3, "B (3)"))

	values, err = store.ColumnValues(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, []string{"Артикул", "A", "B (3)", "C"}, values)

	require.NoError(t, store.DeleteRows(ctx, h, 2, 2))
	values, err = store.ColumnValues(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, []string{"Артикул", "B (3)", "C"}, values)

	require.NoError(t, store.AppendRow(ctx, h, "D"))
	values, err = store.ColumnValues(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, []string{"Артикул", "B (3)", "C", "D"}, values)

	require.NoError(t, store.DeleteRows(ctx, h, 2, 4))
	values, err = store.ColumnValues(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, []string{"Артикул"}, values)

	other, err := store.CreateTable(ctx, "-7", "Артикул")
	require.NoError(t, err)
	assert.NotEqual(t, h.ID, other.ID)
	require.NoError(t, store.AppendRow(ctx, other, "X"))

	values, err = store.ColumnValues(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, []string{"Артикул"}, values)

	assert.ErrorIs(t, store.UpdateRow(ctx, h, 0, "bad"), ErrRowOutOfRange)
	assert.ErrorIs(t, store.DeleteRows(ctx, h, 3, 2), ErrRowOutOfRange)
}

func TestMemoryRowStore(t *testing.T) {
	store := NewMemoryRowStore()
	defer store.Close()
	testRowStore(t, store)
}

func TestMemoryRowStoreDeleteBeyondEnd(t *testing.T) {
	store := NewMemoryRowStore()
	ctx := context.Background()

	h, err := store.CreateTable(ctx, "1", "Артикул")
	require.NoError(t, err)
	require.NoError(t, store.AppendRow(ctx, h, "A"))

	assert.ErrorIs(t, store.DeleteRows(ctx, h, 5, 6), ErrRowOutOfRange)
	require.NoError(t, store.DeleteRows(ctx, h, 2, 10))

	values, err := store.ColumnValues(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, []string{"Артикул"}, values)
}

func TestSQLiteRowStore(t *testing.T) {
	store, err := NewSQLiteRowStore(filepath.Join(t.TempDir(), "purchases.db"))
	require.NoError(t, err)
	defer store.Close()
	testRowStore(t, store)
}

func TestSQLiteRowStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "purchases.db")
	ctx := context.Background()

	store, err := NewSQLiteRowStore(path)
	require.NoError(t, err)
	h, err := store.CreateTable(ctx, "9", "Артикул")
	require.NoError(t, err)
	require.NoError(t, store.AppendRow(ctx, h, "Bolt (5)"))
	require.NoError(t, store.Close())

	store, err = NewSQLiteRowStore(path)
	require.NoError(t, err)
	defer store.Close()

	got, found, err := store.FindTable(ctx, "9")
	require.NoError(t, err)
	require.True(t, found)

	values, err := store.ColumnValues(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, []string{"Артикул", "Bolt (5)"}, values)
}

func TestSQLDialectRebind(t *testing.T) {
	q := `SELECT id FROM purchase_rows WHERE table_id = ? LIMIT ? OFFSET ?`
	assert.Equal(t, q, sqliteDialect.rebind(q))
	assert.Equal(t, q, mysqlDialect.rebind(q))
	assert.Equal(t, `SELECT id FROM purchase_rows WHERE table_id = $1 LIMIT $2 OFFSET $3`, postgresDialect.rebind(q))
}
