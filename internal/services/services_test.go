package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainingclub/internal/core"
	"trainingclub/internal/storage"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []core.Event
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, e core.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []core.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]core.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	svc   *Services
	pub   *recordingPublisher
	clock *movableClock
}

type movableClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *movableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *movableClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "club.db"), time.UTC)
	require.NoError(t, err)

	clock := &movableClock{t: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	pub := &recordingPublisher{}
	svc := New(Deps{Store: store, Clock: clock, Publisher: pub})
	t.Cleanup(func() { svc.Close() })
	return &fixture{svc: svc, pub: pub, clock: clock}
}

func (f *fixture) member(t *testing.T, given, family, email string) core.Member {
	t.Helper()
	m, err := f.svc.Members.Create(context.Background(), core.Member{GivenName: given, FamilyName: family, Email: email})
	require.NoError(t, err)
	return m
}

func TestCheckInSameDayIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.member(t, "Ana", "Jovic", "ana@example.com")

	res, err := f.svc.Attendance.CheckIn(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Jovic", res.MemberName)

	f.clock.Set(time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC))
	_, err = f.svc.Attendance.CheckInByCode(ctx, core.EncodeCheckInCode(m))
	assert.ErrorIs(t, err, core.ErrAlreadyRecorded)

	_, err = f.svc.Attendance.CheckInAt(ctx, m.ID, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, core.ErrAlreadyRecorded)

	f.clock.Set(time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC))
	_, err = f.svc.Attendance.CheckInByCode(ctx, core.EncodeCheckInCode(m))
	require.NoError(t, err)

	assert.Equal(t, []core.EventType{core.EventAttendanceRecorded, core.EventAttendanceRecorded}, f.pub.types())
}

func TestCheckInErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Attendance.CheckInByCode(ctx, "CLUB|only-two")
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = f.svc.Attendance.CheckInByCode(ctx, "CLUB|x@example.com|missing")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = f.svc.Attendance.CheckIn(ctx, "  ")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCheckInAtUsesClubLocalDay(t *testing.T) {
	ctx := context.Background()
	loc, err := core.LoadLocation("Europe/Belgrade")
	require.NoError(t, err)
	store, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "club.db"), loc)
	require.NoError(t, err)
	svc := New(Deps{Store: store, Clock: core.FixedClock{T: time.Date(2024, 3, 10, 9, 0, 0, 0, loc)}})
	defer svc.Close()

	m, err := svc.Members.Create(ctx, core.Member{GivenName: "Ana", FamilyName: "Jovic", Email: "ana@example.com"})
	require.NoError(t, err)

	// 23:30 UTC on the 9th is 00:30 on the 10th in Belgrade
	res, err := svc.Attendance.CheckInAt(ctx, m.ID, time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10", core.DayKey(res.Record.At))

	_, err = svc.Attendance.CheckIn(ctx, m.ID)
	assert.ErrorIs(t, err, core.ErrAlreadyRecorded)
}

func TestMemberHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.member(t, "Ana", "Jovic", "ana@example.com")

	for _, ts := range []time.Time{
		time.Date(2024, 1, 5, 18, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 10, 18, 0, 0, 0, time.UTC),
	} {
		_, err := f.svc.Attendance.CheckInAt(ctx, m.ID, ts)
		require.NoError(t, err)
	}

	h, err := f.svc.Attendance.MemberHistory(ctx, m.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, h.Total)
	require.Len(t, h.Months, 2)
	assert.Equal(t, "01/2024", h.Months[0].Label)
	assert.Equal(t, 1, h.Months[0].Count)
	assert.Equal(t, "02/2024", h.Months[1].Label)
	assert.Equal(t, 1, h.Months[1].Count)

	h, err = f.svc.Attendance.MemberHistory(ctx, m.ID, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, h.Total, "end date is inclusive of the whole day")

	cal, err := f.svc.Attendance.MonthlyCounts(ctx, 2024, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, cal.Counts[10])
	assert.Equal(t, 29, cal.DaysInMonth)

	_, err = f.svc.Attendance.MonthlyCounts(ctx, 2024, 13)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestSetPaid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.member(t, "Ana", "Jovic", "ana@example.com")
	b := f.member(t, "Boris", "Abramovic", "boris@example.com")

	for i := 0; i < 2; i++ {
		fs, err := f.svc.Fees.SetPaid(ctx, m.ID, 2024, 6, true)
		require.NoError(t, err)
		assert.True(t, fs.IsPaid)
	}

	grid, err := f.svc.Fees.YearGrid(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, grid.Rows, 2)
	assert.Equal(t, b.ID, grid.Rows[0].MemberID, "ordered by family name")
	assert.True(t, grid.Rows[1].Paid[5])
	assert.False(t, grid.Rows[1].Paid[4])

	cases := []struct {
		name        string
		member      string
		year, month int
		want        error
	}{
		{"year too low", m.ID, 2019, 1, core.ErrInvalidArgument},
		{"year too high", m.ID, 2031, 1, core.ErrInvalidArgument},
		{"month zero", m.ID, 2024, 0, core.ErrInvalidArgument},
		{"empty member", "", 2024, 1, core.ErrNotFound},
		{"unknown member", "ghost", 2024, 1, core.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Fees.SetPaid(ctx, tc.member, tc.year, tc.month, true)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestPriceSchedule(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	p, err := f.svc.Prices.PriceEffectiveOn(ctx, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, p.IsDefault)
	assert.Equal(t, core.DefaultMonthlyPrice, p.Price.Cents)

	added, err := f.svc.Prices.AddPrice(ctx, core.Cents(5500), time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), "spring")
	require.NoError(t, err)

	p, err = f.svc.Prices.PriceEffectiveOn(ctx, added.EffectiveFrom)
	require.NoError(t, err)
	assert.Equal(t, int64(5500), p.Price.Cents)
	assert.False(t, p.IsDefault)

	p, err = f.svc.Prices.PriceEffectiveOn(ctx, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, p.IsDefault, "never resolves a price that starts later")

	_, err = f.svc.Prices.AddPrice(ctx, core.Cents(0), time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), "")
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
	_, err = f.svc.Prices.AddPrice(ctx, core.Cents(100001), time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), "")
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	assert.Contains(t, f.pub.types(), core.EventPriceCreated)
}

func TestReportsSeePricesFromOtherWriters(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "club.db")
	clock := &movableClock{t: time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)}

	open := func() *Services {
		store, err := storage.NewSQLiteRepository(path, time.UTC)
		require.NoError(t, err)
		svc := New(Deps{Store: store, Clock: clock})
		t.Cleanup(func() { svc.Close() })
		return svc
	}
	reader, writer := open(), open()

	m, err := reader.Members.Create(ctx, core.Member{GivenName: "Ana", FamilyName: "Jovic", Email: "ana@example.com"})
	require.NoError(t, err)
	_, err = reader.Fees.SetPaid(ctx, m.ID, 2024, 6, true)
	require.NoError(t, err)

	bal, err := reader.Summary.MonthlyBalance(ctx, 2024)
	require.NoError(t, err)
	assert.Equal(t, core.DefaultMonthlyPrice, bal.Months[5].Amount.Cents)

	_, err = writer.Prices.AddPrice(ctx, core.Cents(12000), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), "summer")
	require.NoError(t, err)

	bal, err = reader.Summary.MonthlyBalance(ctx, 2024)
	require.NoError(t, err)
	assert.Equal(t, int64(12000), bal.Months[5].Amount.Cents)

	p, err := reader.Prices.PriceEffectiveOn(ctx, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(12000), p.Price.Cents)
}

func TestLedgerAndReports(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.clock.Set(time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC))

	_, err := f.svc.Prices.AddPrice(ctx, core.Cents(10000), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "")
	require.NoError(t, err)
	_, err = f.svc.Prices.AddPrice(ctx, core.Cents(12000), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), "")
	require.NoError(t, err)

	for i, email := range []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com", "e@example.com"} {
		m := f.member(t, "M", string(rune('A'+i)), email)
		_, err := f.svc.Fees.SetPaid(ctx, m.ID, 2024, 6, true)
		require.NoError(t, err)
	}

	bal, err := f.svc.Summary.MonthlyBalance(ctx, 2024)
	require.NoError(t, err)
	assert.Equal(t, int64(60000), bal.Months[5].Amount.Cents)
	assert.Equal(t, int64(60000), bal.Total.Cents)

	exp, err := f.svc.Ledger.CreateEntry(ctx, core.LedgerEntry{Description: "Mats", Amount: core.Cents(5000), Type: core.Expense, Date: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, int64(-5000), exp.Amount.Cents, "expense stored negative")
	inc, err := f.svc.Ledger.CreateEntry(ctx, core.LedgerEntry{Description: "Seminar", Amount: core.Cents(-3000), Type: core.Income, Date: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, int64(3000), inc.Amount.Cents, "income stored positive")

	rep, err := f.svc.Summary.PaymentsReport(ctx, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(5000), rep.TotalExpenses.Cents)
	assert.Equal(t, int64(3000), rep.OtherIncome.Cents)
	assert.Equal(t, int64(-2000), rep.Net.Cents)

	rep, err = f.svc.Summary.PaymentsReport(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(60000), rep.MembershipIncome.Cents, "defaults to year to date")

	sum, err := f.svc.Summary.RangeSummary(ctx, time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, sum.Months, 1)
	assert.Equal(t, int64(5000), sum.Months[0].Expenses.Cents, "bucket takes the whole month")
	assert.Empty(t, sum.Entries, "listed entries are clipped to the clamped day")

	sum, err = f.svc.Summary.RangeSummary(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, sum.Months, 1)
	assert.Equal(t, "07/2024", sum.Months[0].Label)

	list, err := f.svc.Ledger.ListEntries(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, f.svc.Ledger.DeleteEntry(ctx, exp.ID))
	assert.ErrorIs(t, f.svc.Ledger.DeleteEntry(ctx, exp.ID), core.ErrNotFound)

	types := f.pub.types()
	assert.Contains(t, types, core.EventLedgerCreated)
	assert.Contains(t, types, core.EventLedgerDeleted)
	assert.Contains(t, types, core.EventFeeUpdated)
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pub.err = errors.New("broker down")

	_, err := f.svc.Ledger.CreateEntry(ctx, core.LedgerEntry{Description: "Tape", Amount: core.Cents(500), Type: core.Expense, Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)})
	assert.NoError(t, err)
}

func TestMembersResolveAndRoles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.member(t, "Ana", "Jovic", "ana@example.com")
	assert.Equal(t, core.RoleMember, m.Role)
	assert.Equal(t, "2024-03-10", core.DayKey(m.JoinedAt))

	res, err := f.svc.Members.Resolve(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, MatchedByID, res.MatchedBy)

	res, err = f.svc.Members.AssignRole(ctx, "ANA@example.com", "trainer")
	require.NoError(t, err)
	assert.Equal(t, MatchedByEmail, res.MatchedBy)
	assert.Equal(t, core.RoleTrainer, res.Member.Role)

	_, err = f.svc.Members.AssignRole(ctx, "ghost@example.com", "Admin")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = f.svc.Members.AssignRole(ctx, m.ID, "Owner")
	assert.ErrorIs(t, err, core.ErrInvalidRole)

	m.Rank = "purple belt"
	m.Role = core.RoleAdmin
	updated, err := f.svc.Members.Update(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, "purple belt", updated.Rank)
	assert.Equal(t, core.RoleTrainer, updated.Role, "update does not change the role")

	found, err := f.svc.Members.Search(ctx, "jov")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	_, err = f.svc.Members.Create(ctx, core.Member{GivenName: "Ana", FamilyName: "Other", Email: "ana@example.com"})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	require.NoError(t, f.svc.Members.Delete(ctx, m.ID))
	_, err = f.svc.Members.Get(ctx, m.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
