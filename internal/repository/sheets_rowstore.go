package repository

import (
	"context"
	"fmt"
	"log"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	sheetInitialRows = 100
	sheetInitialCols = 2
)

// SheetsRowStore implements RowStore on top of one Google spreadsheet.
// Every sub-table is a worksheet of that spreadsheet.
type SheetsRowStore struct {
	srv           *sheets.Service
	spreadsheetID string
}

// NewSheetsRowStore authorizes with a service-account JSON key and opens the spreadsheet.
func NewSheetsRowStore(ctx context.Context, spreadsheetID string, credentialsJSON []byte) (*SheetsRowStore, error) {
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse google credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	return newSheetsRowStore(ctx, srv, spreadsheetID)
}

func newSheetsRowStore(ctx context.Context, srv *sheets.Service, spreadsheetID string) (*SheetsRowStore, error) {
	spreadsheet, err := srv.Spreadsheets.Get(spreadsheetID).Fields("spreadsheetId,properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}

	log.Printf("[SheetsRowStore] Opened spreadsheet %q (%s)", spreadsheet.Properties.Title, spreadsheetID)
	return &SheetsRowStore{srv: srv, spreadsheetID: spreadsheetID}, nil
}

// FindTable looks up a worksheet by title.
func (s *SheetsRowStore) FindTable(ctx context.Context, title string) (Handle, bool, error) {
	spreadsheet, err := s.srv.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return Handle{}, false, fmt.Errorf("failed to list worksheets: %w", err)
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == title {
			return Handle{ID: sheet.Properties.SheetId, Title: title}, true, nil
		}
	}
	return Handle{}, false, nil
}

// CreateTable adds a worksheet and writes the header into A1.
func (s *SheetsRowStore) CreateTable(ctx context.Context, title, header string) (Handle, error) {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: title,
					GridProperties: &sheets.GridProperties{
						RowCount:    sheetInitialRows,
						ColumnCount: sheetInitialCols,
					},
				},
			},
		}},
	}

	resp, err := s.srv.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return Handle{}, fmt.Errorf("failed to add worksheet %s: %w", title, err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil {
		return Handle{}, fmt.Errorf("failed to add worksheet %s: empty reply", title)
	}

	h := Handle{ID: resp.Replies[0].AddSheet.Properties.SheetId, Title: title}
	if err := s.UpdateRow(ctx, h, 1, header); err != nil {
		return Handle{}, err
	}

	log.Printf("[SheetsRowStore] Created worksheet %s (sheet id %d)", title, h.ID)
	return h, nil
}

// ColumnValues reads column A of the worksheet.
func (s *SheetsRowStore) ColumnValues(ctx context.Context, h Handle) ([]string, error) {
	resp, err := s.srv.Spreadsheets.Values.Get(s.spreadsheetID, columnRange(h.Title)).
		MajorDimension("COLUMNS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read worksheet %s: %w", h.Title, err)
	}

	if len(resp.Values) == 0 {
		return []string{}, nil
	}

	values := make([]string, len(resp.Values[0]))
	for i, v := range resp.Values[0] {
		values[i] = fmt.Sprint(v)
	}
	return values, nil
}

// AppendRow inserts a row after the last non-empty one.
func (s *SheetsRowStore) AppendRow(ctx context.Context, h Handle, value string) error {
	_, err := s.srv.Spreadsheets.Values.Append(s.spreadsheetID, columnRange(h.Title), singleCell(value)).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append to worksheet %s: %w", h.Title, err)
	}
	return nil
}

// UpdateRow overwrites cell A<row>.
func (s *SheetsRowStore) UpdateRow(ctx context.Context, h Handle, row int, value string) error {
	if row < 1 {
		return ErrRowOutOfRange
	}

	_, err := s.srv.Spreadsheets.Values.Update(s.spreadsheetID, cellRange(h.Title, row), singleCell(value)).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update %s!A%d: %w", h.Title, row, err)
	}
	return nil
}

// DeleteRows removes whole rows so the rows below move up.
func (s *SheetsRowStore) DeleteRows(ctx context.Context, h Handle, start, end int) error {
	if start < 1 || end < start {
		return ErrRowOutOfRange
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:         h.ID,
					Dimension:       "ROWS",
					StartIndex:      int64(start - 1),
					EndIndex:        int64(end),
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}

	if _, err := s.srv.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete rows %d-%d of %s: %w", start, end, h.Title, err)
	}
	return nil
}

// Close is a no-op; the HTTP client has nothing to release.
func (s *SheetsRowStore) Close() error {
	return nil
}

func singleCell(value string) *sheets.ValueRange {
	return &sheets.ValueRange{Values: [][]interface{}{{value}}}
}

func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func columnRange(title string) string {
	return quoteTitle(title) + "!A:A"
}

func cellRange(title string, row int) string {
	return fmt.Sprintf("%s!A%d", quoteTitle(title), row)
}

// Ensure SheetsRowStore implements RowStore
var _ RowStore = (*SheetsRowStore)(nil)
