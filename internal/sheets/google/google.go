package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

const (
	valueInput = "USER_ENTERED"
	dateLayout = "2006-01-02"
)

// Header is the first row of the mirror sheet.
var Header = []any{"ID", "Owner", "Date", "Type", "Category", "Note", "Amount"}

// values is the subset of the Sheets values API the mirror needs.
type values interface {
	Get(ctx context.Context, rng string) ([][]any, error)
	Update(ctx context.Context, rng string, rows [][]any) error
	Append(ctx context.Context, rng string, rows [][]any) error
	Clear(ctx context.Context, rng string) error
}

// Mirror keeps one sheet row per transaction, keyed by the id in column A.
type Mirror struct {
	api   values
	sheet string
}

var _ ports.TransactionMirror = (*Mirror)(nil)

type Options struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// NewMirror connects to the spreadsheet with service account credentials.
func NewMirror(ctx context.Context, opts Options) (*Mirror, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if strings.TrimSpace(opts.SheetName) == "" {
		return nil, errors.New("missing GOOGLE_SHEET_NAME")
	}

	svc, err := newSheetsService(ctx, opts.ServiceAccountJSON, opts.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Mirror{
		api:   &serviceValues{svc: svc, spreadsheetID: opts.SpreadsheetID},
		sheet: opts.SheetName,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Falls back to GOOGLE_APPLICATION_CREDENTIALS when neither inline JSON nor a file is given.
func newSheetsService(ctx context.Context, serviceAccountJSON, serviceAccountFile string) (*gsheet.Service, error) {
	serviceAccountJSON = strings.TrimSpace(serviceAccountJSON)
	serviceAccountFile = strings.TrimSpace(serviceAccountFile)

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

// UpsertTransaction rewrites the row holding tx.ID, or appends one.
func (m *Mirror) UpsertTransaction(ctx context.Context, tx core.Transaction) error {
	ids, err := m.api.Get(ctx, m.sheet+"!A:A")
	if err != nil {
		return fmt.Errorf("read ids from %s: %w", m.sheet, err)
	}

	row := ToRow(tx)
	if n := FindRow(ids, tx.ID); n > 0 {
		rng := fmt.Sprintf("%s!A%d:G%d", m.sheet, n, n)
		if err := m.api.Update(ctx, rng, [][]any{row}); err != nil {
			return fmt.Errorf("update %s: %w", rng, err)
		}
		slog.DebugContext(ctx, "Updated mirror row", "transaction_id", tx.ID, "sheets_row", n)
		return nil
	}

	rows := [][]any{row}
	if len(ids) == 0 {
		rows = [][]any{Header, row}
	}
	if err := m.api.Append(ctx, m.sheet+"!A:G", rows); err != nil {
		return fmt.Errorf("append to %s: %w", m.sheet, err)
	}
	slog.DebugContext(ctx, "Appended mirror row", "transaction_id", tx.ID)
	return nil
}

// DeleteTransaction clears the row holding id. A missing row is not an error.
func (m *Mirror) DeleteTransaction(ctx context.Context, id string) error {
	ids, err := m.api.Get(ctx, m.sheet+"!A:A")
	if err != nil {
		return fmt.Errorf("read ids from %s: %w", m.sheet, err)
	}

	n := FindRow(ids, id)
	if n == 0 {
		slog.DebugContext(ctx, "Mirror row already absent", "transaction_id", id)
		return nil
	}
	rng := fmt.Sprintf("%s!A%d:G%d", m.sheet, n, n)
	if err := m.api.Clear(ctx, rng); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

// FindRow returns the 1-based row whose first cell equals id, or 0.
func FindRow(column [][]any, id string) int {
	if id == "" {
		return 0
	}
	for i, row := range column {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i + 1
		}
	}
	return 0
}

// ToRow lays tx out in Header order.
func ToRow(tx core.Transaction) []any {
	date := ""
	if !tx.Date.IsZero() {
		date = tx.Date.UTC().Format(dateLayout)
	}
	return []any{
		tx.ID,
		tx.OwnerID,
		date,
		string(tx.Type),
		tx.Category,
		tx.Note,
		tx.Amount.StringFixed(2),
	}
}

type serviceValues struct {
	svc           *gsheet.Service
	spreadsheetID string
}

func (s *serviceValues) Get(ctx context.Context, rng string) ([][]any, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (s *serviceValues) Update(ctx context.Context, rng string, rows [][]any) error {
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption(valueInput).Context(ctx).Do()
	return err
}

func (s *serviceValues) Append(ctx context.Context, rng string, rows [][]any) error {
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption(valueInput).InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}

func (s *serviceValues) Clear(ctx context.Context, rng string) error {
	_, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	return err
}
