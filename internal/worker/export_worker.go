package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"trainingclub/internal/amqp"
	"trainingclub/internal/core"
	clublog "trainingclub/internal/log"
	"trainingclub/internal/metrics"
	"trainingclub/internal/sheets"
	"trainingclub/internal/storage"
)

// ExportWorker mirrors club events into spreadsheet rows. Rows are reloaded
// from SQLite so the sheet reflects the committed state.
type ExportWorker struct {
	storage *storage.SQLiteRepository
	sheets  sheets.RowAppender
	metrics *metrics.Metrics
}

func NewExportWorker(storage *storage.SQLiteRepository, sheets sheets.RowAppender, m *metrics.Metrics) *ExportWorker {
	return &ExportWorker{storage: storage, sheets: sheets, metrics: m}
}

// HandleEvent appends the row for one event message. Events whose row has
// since been deleted are skipped. Messages that can never produce a row
// return an error wrapping amqp.ErrPoison so they are dropped; any other
// failure is returned so the message is requeued.
func (w *ExportWorker) HandleEvent(ctx context.Context, msg *amqp.EventMessage) error {
	log := clublog.FromContext(ctx).WithComponent(clublog.ComponentWorker)
	fields := clublog.NewFields().WithEvent(msg.Type, msg.ID).WithOperation(clublog.OpExport)
	log.DebugContext(ctx, "Processing event message", fields.ToSlice()...)

	row, err := w.rowFor(ctx, msg)
	if errors.Is(err, core.ErrNotFound) {
		log.WarnContext(ctx, "Row no longer exists, skipping export", fields.WithError(err).ToSlice()...)
		w.metrics.RowExported(tabFor(msg.Type), "skipped")
		return nil
	}
	if errors.Is(err, amqp.ErrPoison) {
		log.ErrorContext(ctx, "Dropping malformed event", fields.WithError(err).ToSlice()...)
		w.metrics.RowExported(tabFor(msg.Type), "dropped")
		return fmt.Errorf("build %s row: %w", msg.Type, err)
	}
	if err != nil {
		return fmt.Errorf("build %s row: %w", msg.Type, err)
	}

	fields[clublog.FieldSheetsTab] = row.Tab
	ref, err := w.sheets.AppendRow(ctx, row)
	if err != nil {
		w.metrics.RowExported(row.Tab, "error")
		return fmt.Errorf("append to sheets: %w", err)
	}
	w.metrics.RowExported(row.Tab, "ok")

	fields[clublog.FieldSheetsRef] = ref
	log.InfoContext(ctx, "Exported event", fields.ToSlice()...)
	return nil
}

// poison wraps err as a message that retrying cannot fix.
func poison(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), amqp.ErrPoison)
}

func tabFor(eventType string) string {
	switch core.EventType(eventType) {
	case core.EventAttendanceRecorded:
		return sheets.TabAttendance
	case core.EventFeeUpdated:
		return sheets.TabFees
	case core.EventLedgerCreated, core.EventLedgerDeleted:
		return sheets.TabLedger
	case core.EventPriceCreated:
		return sheets.TabPrices
	}
	return "unknown"
}

func (w *ExportWorker) rowFor(ctx context.Context, msg *amqp.EventMessage) (sheets.Row, error) {
	switch core.EventType(msg.Type) {
	case core.EventAttendanceRecorded:
		return w.attendanceRow(ctx, msg.ID)
	case core.EventFeeUpdated:
		return w.feeRow(ctx, msg.MemberID, msg.ID)
	case core.EventLedgerCreated:
		return w.ledgerRow(ctx, msg.ID)
	case core.EventLedgerDeleted:
		return reversalRow(msg)
	case core.EventPriceCreated:
		return w.priceRow(ctx, msg.ID)
	}
	return sheets.Row{}, poison("unsupported event type %q", msg.Type)
}

func (w *ExportWorker) attendanceRow(ctx context.Context, id string) (sheets.Row, error) {
	n, err := parseID(id)
	if err != nil {
		return sheets.Row{}, err
	}
	rec, err := w.storage.GetAttendance(ctx, n)
	if err != nil {
		return sheets.Row{}, err
	}
	return sheets.Row{
		Tab:    sheets.TabAttendance,
		Year:   rec.At.Year(),
		Values: []any{core.DayKey(rec.At), rec.At.Format("15:04"), rec.MemberName, rec.MemberID},
	}, nil
}

// feeRow expects id in the "YYYY-MM" form published with fee.updated.
func (w *ExportWorker) feeRow(ctx context.Context, memberID, id string) (sheets.Row, error) {
	ym, err := time.Parse("2006-01", id)
	if err != nil {
		return sheets.Row{}, poison("fee period %q: %v", id, err)
	}
	fs, err := w.storage.GetFeeStatus(ctx, memberID, ym.Year(), int(ym.Month()))
	if err != nil {
		return sheets.Row{}, err
	}
	m, err := w.storage.GetMember(ctx, memberID)
	if err != nil {
		return sheets.Row{}, err
	}
	paidAt := ""
	if fs.PaidAt != nil {
		paidAt = fs.PaidAt.Format(core.TimestampLayout)
	}
	return sheets.Row{
		Tab:    sheets.TabFees,
		Year:   fs.Year,
		Values: []any{fs.Month, m.FullName(), m.Email, yesNo(fs.IsPaid), paidAt},
	}, nil
}

func (w *ExportWorker) ledgerRow(ctx context.Context, id string) (sheets.Row, error) {
	n, err := parseID(id)
	if err != nil {
		return sheets.Row{}, err
	}
	e, err := w.storage.GetLedgerEntry(ctx, n)
	if err != nil {
		return sheets.Row{}, err
	}
	return sheets.Row{
		Tab:    sheets.TabLedger,
		Year:   e.Date.Year(),
		Values: []any{core.DayKey(e.Date), e.Description, string(e.Type), e.Category, e.Amount.Euros(), e.Notes, e.ID},
	}, nil
}

// reversalRow cancels a deleted entry with a row of the opposite amount.
// The deleted row cannot be reloaded, so its values come from the message.
func reversalRow(msg *amqp.EventMessage) (sheets.Row, error) {
	cents, err := strconv.ParseInt(msg.Data["amount_cents"], 10, 64)
	if err != nil {
		return sheets.Row{}, poison("ledger.deleted %s: amount_cents: %v", msg.ID, err)
	}
	date, err := time.Parse(core.DateLayout, msg.Data["date"])
	if err != nil {
		return sheets.Row{}, poison("ledger.deleted %s: date: %v", msg.ID, err)
	}
	desc := strings.TrimSpace("[deleted] " + msg.Data["description"])
	return sheets.Row{
		Tab:    sheets.TabLedger,
		Year:   date.Year(),
		Values: []any{msg.Data["date"], desc, msg.Data["type"], msg.Data["category"], core.Cents(-cents).Euros(), msg.Data["notes"], msg.ID},
	}, nil
}

func (w *ExportWorker) priceRow(ctx context.Context, id string) (sheets.Row, error) {
	n, err := parseID(id)
	if err != nil {
		return sheets.Row{}, err
	}
	p, err := w.storage.GetPrice(ctx, n)
	if err != nil {
		return sheets.Row{}, err
	}
	return sheets.Row{
		Tab:    sheets.TabPrices,
		Year:   p.EffectiveFrom.Year(),
		Values: []any{core.DayKey(p.EffectiveFrom), p.Price.Euros(), p.Description, p.ID},
	}, nil
}

func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return 0, poison("event id %q: %v", id, err)
	}
	return n, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
