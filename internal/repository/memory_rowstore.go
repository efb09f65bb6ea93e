package repository

import (
	"context"
	"sync"
)

// MemoryRowStore is an in-process RowStore. Use it for development and tests;
// nothing survives a restart.
type MemoryRowStore struct {
	mu     sync.RWMutex
	tables map[string]*memoryTable
	nextID int64
}

type memoryTable struct {
	id   int64
	rows []string
}

// NewMemoryRowStore creates an empty store.
func NewMemoryRowStore() *MemoryRowStore {
	return &MemoryRowStore{tables: make(map[string]*memoryTable)}
}

// FindTable looks up a sub-table by title.
func (s *MemoryRowStore) FindTable(ctx context.Context, title string) (Handle, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[title]
	if !ok {
		return Handle{}, false, nil
	}
	return Handle{ID: t.id, Title: title}, true, nil
}

// CreateTable creates a sub-table holding only the header row.
func (s *MemoryRowStore) CreateTable(ctx context.Context, title, header string) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tables[title]; ok {
		return Handle{ID: t.id, Title: title}, nil
	}

	s.nextID++
	s.tables[title] = &memoryTable{id: s.nextID, rows: []string{header}}
	return Handle{ID: s.nextID, Title: title}, nil
}

// ColumnValues returns a copy of the sub-table rows.
func (s *MemoryRowStore) ColumnValues(ctx context.Context, h Handle) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[h.Title]
	if !ok {
		return []string{}, nil
	}
	return append([]string{}, t.rows...), nil
}

// AppendRow adds a row at the end.
func (s *MemoryRowStore) AppendRow(ctx context.Context, h Handle, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.table(h)
	t.rows = append(t.rows, value)
	return nil
}

// UpdateRow replaces the value of an existing row.
func (s *MemoryRowStore) UpdateRow(ctx context.Context, h Handle, row int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.table(h)
	if row < 1 || row > len(t.rows) {
		return ErrRowOutOfRange
	}
	t.rows[row-1] = value
	return nil
}

// DeleteRows removes rows start..end inclusive, clamped to the table size.
func (s *MemoryRowStore) DeleteRows(ctx context.Context, h Handle, start, end int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.table(h)
	if start < 1 || end < start || start > len(t.rows) {
		return ErrRowOutOfRange
	}
	if end > len(t.rows) {
		end = len(t.rows)
	}
	t.rows = append(t.rows[:start-1], t.rows[end:]...)
	return nil
}

// Close is a no-op.
func (s *MemoryRowStore) Close() error {
	return nil
}

// table returns the sub-table for h, recreating it when it was never created
// through this store. Callers hold s.mu.
func (s *MemoryRowStore) table(h Handle) *memoryTable {
	t, ok := s.tables[h.Title]
	if !ok {
		t = &memoryTable{id: h.ID}
		s.tables[h.Title] = t
	}
	return t
}

// Ensure MemoryRowStore implements RowStore
var _ RowStore = (*MemoryRowStore)(nil)
