package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"purchasebot/internal/cache"
	"purchasebot/internal/model"
	"purchasebot/internal/repository"
	"purchasebot/pkg/itemcodec"
)

// TableHeader is the fixed value of row 1 in every sub-table.
const TableHeader = "Артикул"

var (
	// ErrStoreUnavailable wraps any failure of the backing row store.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrIndexOutOfRange is returned when a position does not address a current entry.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// InventoryService keeps one ordered purchase list per chat on top of a RowStore.
// Read-modify-write operations are not atomic; the service expects a single
// caller (the update processor) to serialize all mutations.
type InventoryService struct {
	store  repository.RowStore
	tables *cache.TableCache
}

// NewInventoryService creates a new inventory service.
func NewInventoryService(store repository.RowStore, tables *cache.TableCache) *InventoryService {
	return &InventoryService{store: store, tables: tables}
}

func unavailable(op string, chat model.ChatID, err error) error {
	log.Printf("[InventoryService] %s failed for chat %d: %v", op, chat, err)
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// GetOrCreateTable returns the sub-table handle for chat, creating the sub-table
// on first use. Handles are cached for the lifetime of the cache.
func (s *InventoryService) GetOrCreateTable(ctx context.Context, chat model.ChatID) (repository.Handle, error) {
	if h, ok, err := s.tables.Get(ctx, chat); err != nil {
		log.Printf("[InventoryService] Table cache read failed for chat %d: %v", chat, err)
	} else if ok {
		return h, nil
	}

	title := chat.TableTitle()
	h, found, err := s.store.FindTable(ctx, title)
	if err != nil {
		return repository.Handle{}, unavailable("find table", chat, err)
	}
	if !found {
		h, err = s.store.CreateTable(ctx, title, TableHeader)
		if err != nil {
			return repository.Handle{}, unavailable("create table", chat, err)
		}
		log.Printf("[InventoryService] Created table %q", title)
	}

	if err := s.tables.Put(ctx, chat, h); err != nil {
		log.Printf("[InventoryService] Table cache write failed for chat %d: %v", chat, err)
	}
	return h, nil
}

// snapshot is one read of a sub-table: the non-empty data rows and the 1-based
// row number each of them lives at.
type snapshot struct {
	handle repository.Handle
	texts  []string
	rows   []int
	raw    int
}

func (s *InventoryService) load(ctx context.Context, chat model.ChatID) (*snapshot, error) {
	h, err := s.GetOrCreateTable(ctx, chat)
	if err != nil {
		return nil, err
	}

	values, err := s.store.ColumnValues(ctx, h)
	if err != nil {
		return nil, unavailable("read rows", chat, err)
	}

	snap := &snapshot{handle: h, raw: len(values)}
	for i, v := range values {
		if i == 0 || strings.TrimSpace(v) == "" {
			continue
		}
		snap.texts = append(snap.texts, v)
		snap.rows = append(snap.rows, i+1)
	}
	return snap, nil
}

// List returns the chat's entry texts in storage order, header and blank rows excluded.
func (s *InventoryService) List(ctx context.Context, chat model.ChatID) ([]string, error) {
	snap, err := s.load(ctx, chat)
	if err != nil {
		return nil, err
	}
	if snap.texts == nil {
		return []string{}, nil
	}
	return snap.texts, nil
}

// Entries returns the chat's list as parsed entries with their current positions.
func (s *InventoryService) Entries(ctx context.Context, chat model.ChatID) ([]model.Entry, error) {
	texts, err := s.List(ctx, chat)
	if err != nil {
		return nil, err
	}

	entries := make([]model.Entry, len(texts))
	for i, text := range texts {
		name, qty := itemcodec.Parse(text)
		entries[i] = model.Entry{Name: name, Quantity: qty, Position: i, Text: text}
	}
	return entries, nil
}

// AddOrMerge adds qty of name to the chat's list. An entry whose parsed name
// matches case- and whitespace-insensitively is rewritten in place with the
// summed quantity; otherwise a new row is appended. Returns the stored text.
func (s *InventoryService) AddOrMerge(ctx context.Context, chat model.ChatID, name string, qty int) (string, error) {
	snap, err := s.load(ctx, chat)
	if err != nil {
		return "", err
	}

	key := itemcodec.Normalize(name)
	for i, text := range snap.texts {
		existingName, existingQty := itemcodec.Parse(text)
		if itemcodec.Normalize(existingName) != key {
			continue
		}

		merged := itemcodec.Format(name, existingQty+qty)
		if err := s.store.UpdateRow(ctx, snap.handle, snap.rows[i], merged); err != nil {
			return "", unavailable("update row", chat, err)
		}
		return merged, nil
	}

	text := itemcodec.Format(name, qty)
	if err := s.store.AppendRow(ctx, snap.handle, text); err != nil {
		return "", unavailable("append row", chat, err)
	}
	return text, nil
}

// RemoveAt deletes the entry at position and returns its text. The position is
// validated against a fresh read of the list.
func (s *InventoryService) RemoveAt(ctx context.Context, chat model.ChatID, position int) (string, error) {
	snap, err := s.load(ctx, chat)
	if err != nil {
		return "", err
	}
	if position < 0 || position >= len(snap.texts) {
		return "", ErrIndexOutOfRange
	}

	row := snap.rows[position]
	if err := s.store.DeleteRows(ctx, snap.handle, row, row); err != nil {
		return "", unavailable("delete row", chat, err)
	}
	return snap.texts[position], nil
}

// Clear deletes every data row, leaving the header. Clearing an empty list is a no-op.
func (s *InventoryService) Clear(ctx context.Context, chat model.ChatID) error {
	snap, err := s.load(ctx, chat)
	if err != nil {
		return err
	}
	if snap.raw <= 1 {
		return nil
	}

	if err := s.store.DeleteRows(ctx, snap.handle, 2, snap.raw); err != nil {
		return unavailable("clear rows", chat, err)
	}
	return nil
}

// Stats counts the chat's entries and the sum of their quantities.
func (s *InventoryService) Stats(ctx context.Context, chat model.ChatID) (model.InventoryStats, error) {
	entries, err := s.Entries(ctx, chat)
	if err != nil {
		return model.InventoryStats{}, err
	}

	stats := model.InventoryStats{Entries: len(entries)}
	for _, e := range entries {
		stats.Units += e.Quantity
	}
	return stats, nil
}
