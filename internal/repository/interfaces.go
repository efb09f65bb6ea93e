package repository

import (
	"context"
	"errors"
)

// Handle references one sub-table of a row store.
type Handle struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// ErrRowOutOfRange is returned when a row number does not exist in a sub-table.
var ErrRowOutOfRange = errors.New("row out of range")

// RowStore is a spreadsheet-like store: named sub-tables holding one text
// value per row in column A. Rows are numbered from 1 and row 1 is the header.
// Deleting rows shifts the following rows up.
type RowStore interface {
	// FindTable looks up a sub-table by title.
	FindTable(ctx context.Context, title string) (Handle, bool, error)

	// CreateTable creates a sub-table whose first row holds header.
	CreateTable(ctx context.Context, title, header string) (Handle, error)

	// ColumnValues returns column A from row 1 on. Blank cells are returned as "".
	ColumnValues(ctx context.Context, h Handle) ([]string, error)

	// AppendRow adds a row after the last one.
	AppendRow(ctx context.Context, h Handle, value string) error

	// UpdateRow replaces the value of an existing row.
	UpdateRow(ctx context.Context, h Handle, row int, value string) error

	// DeleteRows removes rows start..end inclusive.
	DeleteRows(ctx context.Context, h Handle, start, end int) error

	// Close releases the underlying connection.
	Close() error
}
