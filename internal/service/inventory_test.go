package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"purchasebot/internal/cache"
	"purchasebot/internal/model"
	"purchasebot/internal/repository"
)

const chat = model.ChatID(-100123)

func newTestService(t *testing.T) (*InventoryService, *repository.MemoryRowStore) {
	t.Helper()
	store := repository.NewMemoryRowStore()
	mem := cache.NewMemoryCache()
	t.Cleanup(func() { mem.Close() })
	return NewInventoryService(store, cache.NewTableCache(mem)), store
}

func TestGetOrCreateTableCreatesHeader(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	h, err := svc.GetOrCreateTable(ctx, chat)
	require.NoError(t, err)
	assert.Equal(t, "-100123", h.Title)

	values, err := store.ColumnValues(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, []string{TableHeader}, values)

	again, err := svc.GetOrCreateTable(ctx, chat)
	require.NoError(t, err)
	assert.Equal(t, h, again)
}

func TestAddOrMergeMergesQuantities(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	text, err := svc.AddOrMerge(ctx, chat, "X", 2)
	require.NoError(t, err)
	assert.Equal(t, "X (2)", text)

	text, err = svc.AddOrMerge(ctx, chat, "X", 3)
	require.NoError(t, err)
	assert.Equal(t, "X (5)", text)

	list, err := svc.List(ctx, chat)
	require.NoError(t, err)
	assert.Equal(t, []string{"X (5)"}, list)
}

func TestAddOrMergeNormalizesNames(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddOrMerge(ctx, chat, "Hex  Bolt", 1)
	require.NoError(t, err)
	_, err = svc.AddOrMerge(ctx, chat, "hex bolt", 1)
	require.NoError(t, err)

	entries, err := svc.Entries(ctx, chat)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].Quantity)
	assert.Equal(t, "hex bolt", entries[0].Name)
}

func TestAddOrMergeKeepsInsertionOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"C", "A", "B"} {
		_, err := svc.AddOrMerge(ctx, chat, name, 1)
		require.NoError(t, err)
	}
	_, err := svc.AddOrMerge(ctx, chat, "A", 4)
	require.NoError(t, err)

	list, err := svc.List(ctx, chat)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A (5)", "B"}, list)
}

func TestRemoveAt(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"A", "B", "C"} {
		_, err := svc.AddOrMerge(ctx, chat, name, 1)
		require.NoError(t, err)
	}

	removed, err := svc.RemoveAt(ctx, chat, 1)
	require.NoError(t, err)
	assert.Equal(t, "B", removed)

	list, err := svc.List(ctx, chat)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, list)

	_, err = svc.RemoveAt(ctx, chat, 5)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = svc.RemoveAt(ctx, chat, -1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	list, err = svc.List(ctx, chat)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, list)
}

func TestRemoveAtSkipsBlankRows(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	h, err := svc.GetOrCreateTable(ctx, chat)
	require.NoError(t, err)
	for _, v := range []string{"A", "", "B", "  ", "C"} {
		require.NoError(t, store.AppendRow(ctx, h, v))
	}

	list, err := svc.List(ctx, chat)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, list)

	removed, err := svc.RemoveAt(ctx, chat, 2)
	require.NoError(t, err)
	assert.Equal(t, "C", removed)

	list, err = svc.List(ctx, chat)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, list)
}

func TestClearIsIdempotent(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Clear(ctx, chat))

	_, err := svc.AddOrMerge(ctx, chat, "A", 1)
	require.NoError(t, err)
	_, err = svc.AddOrMerge(ctx, chat, "B", 2)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, chat))
	require.NoError(t, svc.Clear(ctx, chat))

	list, err := svc.List(ctx, chat)
	require.NoError(t, err)
	assert.Empty(t, list)

	h, err := svc.GetOrCreateTable(ctx, chat)
	require.NoError(t, err)
	values, err := store.ColumnValues(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, []string{TableHeader}, values)
}

func TestStats(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddOrMerge(ctx, chat, "Bolt", 5)
	require.NoError(t, err)
	_, err = svc.AddOrMerge(ctx, chat, "Nut", 1)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, chat)
	require.NoError(t, err)
	assert.Equal(t, model.InventoryStats{Entries: 2, Units: 6}, stats)
}

func TestChatsAreIsolated(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddOrMerge(ctx, 1, "A", 1)
	require.NoError(t, err)
	_, err = svc.AddOrMerge(ctx, 2, "B", 1)
	require.NoError(t, err)

	list, err := svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, list)
}

type failingStore struct {
	repository.RowStore
	err error
}

func (s failingStore) FindTable(ctx context.Context, title string) (repository.Handle, bool, error) {
	return repository.Handle{}, false, s.err
}

func TestStoreFailureIsWrapped(t *testing.T) {
	mem := cache.NewMemoryCache()
	defer mem.Close()

	boom := errors.New("quota exceeded")
	svc := NewInventoryService(failingStore{err: boom}, cache.NewTableCache(mem))

	_, err := svc.List(context.Background(), chat)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, boom)

	_, err = svc.AddOrMerge(context.Background(), chat, "A", 1)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
