package google

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ports "trainingclub/internal/sheets"

	gsheet "google.golang.org/api/sheets/v4"
)

type fakeValues struct {
	ranges []string
	rows   [][]any
	err    error
}

func (f *fakeValues) append(_ context.Context, _ string, rng string, vr *gsheet.ValueRange) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.ranges = append(f.ranges, rng)
	f.rows = append(f.rows, vr.Values...)
	return strings.TrimSuffix(rng, "A:A") + "A2:D2", nil
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Options{SpreadsheetID: "sheet"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

func TestLoadCredentials(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sa.json")
	if err := os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)

	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"inline wins", Options{CredentialsJSON: `{"inline":true}`, CredentialsFile: path}, `{"inline":true}`},
		{"file", Options{CredentialsFile: path}, `{"type":"service_account"}`},
		{"application default path", Options{}, `{"type":"service_account"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := loadCredentials(context.Background(), tt.opts)
			if err != nil {
				t.Fatalf("loadCredentials: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}

	if _, err := loadCredentials(context.Background(), Options{CredentialsFile: filepath.Join(dir, "missing.json")}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestAppendRow(t *testing.T) {
	fake := &fakeValues{}
	c := &Client{values: fake, spreadsheetID: "sheet"}

	ref, err := c.AppendRow(context.Background(), ports.Row{Tab: ports.TabAttendance, Year: 2024, Values: []any{"2024-03-10", "Ana Jovic"}})
	if err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
	if ref != "'2024 Attendance'!A2:D2" {
		t.Errorf("ref = %q", ref)
	}
	if fake.ranges[0] != "'2024 Attendance'!A:A" {
		t.Errorf("range = %q", fake.ranges[0])
	}
	if fake.rows[0][1] != "Ana Jovic" {
		t.Errorf("row = %v", fake.rows[0])
	}

	if _, err := c.AppendRow(context.Background(), ports.Row{Tab: ports.TabAttendance, Year: 2024}); err == nil {
		t.Error("expected error for empty row")
	}

	fake.err = errors.New("quota exceeded")
	if _, err := c.AppendRow(context.Background(), ports.Row{Tab: ports.TabFees, Year: 2024, Values: []any{1}}); err == nil || !strings.Contains(err.Error(), "2024 Fees") {
		t.Errorf("expected wrapped error naming the sheet, got %v", err)
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Ledger", 2024, "2024 Ledger"},
		{" Fees ", 2025, "2025 Fees"},
		{"2023 Prices", 2025, "2023 Prices"},
		{"", 2025, ""},
		{"20x4 Odd", 2025, "2025 20x4 Odd"},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}
