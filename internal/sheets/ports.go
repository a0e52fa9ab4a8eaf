package sheets

import "context"

// Row is one spreadsheet line destined for a year-scoped tab.
type Row struct {
	Tab    string
	Year   int
	Values []any
}

// RowAppender is the outbound port of the export worker.
type RowAppender interface {
	AppendRow(ctx context.Context, r Row) (rowRef string, err error)
}

// Tab base names. Adapters prefix them with the row's year.
const (
	TabAttendance = "Attendance"
	TabFees       = "Fees"
	TabLedger     = "Ledger"
	TabPrices     = "Prices"
)
