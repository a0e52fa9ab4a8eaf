package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	ports "trainingclub/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// valuesAppender is the part of the Sheets API the client needs.
type valuesAppender interface {
	append(ctx context.Context, spreadsheetID, rng string, vr *gsheet.ValueRange) (string, error)
}

type sheetsValues struct {
	svc *gsheet.Service
}

func (s sheetsValues) append(ctx context.Context, spreadsheetID, rng string, vr *gsheet.ValueRange) (string, error) {
	resp, err := s.svc.Spreadsheets.Values.Append(spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	if resp.Updates != nil {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

type Client struct {
	values        valuesAppender
	spreadsheetID string
}

var _ ports.RowAppender = (*Client)(nil)

// Options selects the spreadsheet and the service account used to reach it.
// CredentialsJSON wins over CredentialsFile; with neither set
// GOOGLE_APPLICATION_CREDENTIALS is consulted.
type Options struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	credentials, err := loadCredentials(ctx, opts)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", spreadsheetID)
	return &Client{values: sheetsValues{svc: svc}, spreadsheetID: spreadsheetID}, nil
}

func loadCredentials(ctx context.Context, opts Options) ([]byte, error) {
	inline := strings.TrimSpace(opts.CredentialsJSON)
	file := strings.TrimSpace(opts.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.InfoContext(ctx, "Using inline JSON credentials", "json_length", len(inline))
		return []byte(inline), nil
	case file != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// AppendRow appends r after the last non-empty row of "<year> <tab>".
func (c *Client) AppendRow(ctx context.Context, r ports.Row) (string, error) {
	if c.values == nil {
		return "", errors.New("sheets service not initialized")
	}
	if len(r.Values) == 0 {
		return "", errors.New("empty row")
	}
	sheet := yearPrefixedName(r.Tab, r.Year)
	if sheet == "" {
		return "", errors.New("missing tab name")
	}

	rng := fmt.Sprintf("'%s'!A:A", sheet)
	vr := &gsheet.ValueRange{Values: [][]any{r.Values}}
	ref, err := c.values.append(ctx, c.spreadsheetID, rng, vr)
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}
	return ref, nil
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
