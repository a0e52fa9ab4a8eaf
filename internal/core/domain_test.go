package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		err  error
		kind *Error
	}{
		{ErrInvalidYear, ErrInvalidArgument},
		{ErrInvalidCheckInCode, ErrInvalidArgument},
		{NotFoundf("member %s not found", "x"), ErrNotFound},
		{AlreadyRecordedf("already checked in"), ErrAlreadyRecorded},
		{StorageError("insert", errors.New("disk full")), ErrStorage},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.kind) {
			t.Fatalf("%v should match %s", tc.err, tc.kind.Kind)
		}
	}
	if errors.Is(ErrInvalidYear, ErrInvalidMonth) {
		t.Fatal("distinct messages must not match each other")
	}
	if errors.Is(ErrNotFound, ErrStorage) {
		t.Fatal("kinds must not cross")
	}
	wrapped := StorageError("insert", ErrInvalidAmount)
	if KindOf(wrapped) != KindInvalidArgument {
		t.Fatalf("domain errors pass through StorageError, got %s", KindOf(wrapped))
	}
	if !strings.Contains(StorageError("insert", errors.New("disk full")).Error(), "disk full") {
		t.Fatal("driver message should be surfaced")
	}
}

func TestValidateYearMonth(t *testing.T) {
	cases := []struct {
		year, month int
		want        error
	}{
		{2024, 1, nil},
		{2020, 12, nil},
		{2030, 6, nil},
		{2019, 5, ErrInvalidYear},
		{2031, 5, ErrInvalidYear},
		{2024, 0, ErrInvalidMonth},
		{2024, 13, ErrInvalidMonth},
	}
	for _, tc := range cases {
		if got := ValidateYearMonth(tc.year, tc.month); got != tc.want {
			t.Fatalf("%d-%d expected %v, got %v", tc.year, tc.month, tc.want, got)
		}
	}
}

func TestLedgerEntryNormalize(t *testing.T) {
	cases := []struct {
		typ  PaymentType
		in   int64
		want int64
	}{
		{Expense, 5000, -5000},
		{Expense, -5000, -5000},
		{Income, -3000, 3000},
		{Income, 3000, 3000},
	}
	for _, tc := range cases {
		e := LedgerEntry{Type: tc.typ, Amount: Cents(tc.in)}.Normalize()
		if e.Amount.Cents != tc.want {
			t.Fatalf("%s %d expected %d, got %d", tc.typ, tc.in, tc.want, e.Amount.Cents)
		}
	}
}

func TestLedgerEntryValidate(t *testing.T) {
	base := LedgerEntry{
		Description: "Mats",
		Amount:      Cents(-5000),
		Type:        Expense,
		Date:        time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Category:    "Equipment",
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid entry rejected: %v", err)
	}

	mutate := []struct {
		name string
		fn   func(e *LedgerEntry)
	}{
		{"empty description", func(e *LedgerEntry) { e.Description = "  " }},
		{"long description", func(e *LedgerEntry) { e.Description = strings.Repeat("a", 201) }},
		{"zero amount", func(e *LedgerEntry) { e.Amount = Cents(0) }},
		{"too large", func(e *LedgerEntry) { e.Amount = Cents(1000001) }},
		{"bad type", func(e *LedgerEntry) { e.Type = "Refund" }},
		{"no date", func(e *LedgerEntry) { e.Date = time.Time{} }},
		{"long category", func(e *LedgerEntry) { e.Category = strings.Repeat("c", 51) }},
	}
	for _, m := range mutate {
		t.Run(m.name, func(t *testing.T) {
			e := base
			m.fn(&e)
			if err := e.Validate(); !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("expected invalid argument, got %v", err)
			}
		})
	}
}

func TestMemberValidate(t *testing.T) {
	m := Member{GivenName: "Ana", FamilyName: "Jovic", Email: "ana@example.com"}
	if err := m.Validate(); err != nil {
		t.Fatal(err)
	}
	if m.FullName() != "Ana Jovic" {
		t.Fatalf("got %q", m.FullName())
	}
	bad := []Member{
		{FamilyName: "Jovic", Email: "ana@example.com"},
		{GivenName: "Ana", Email: "ana@example.com"},
		{GivenName: "Ana", FamilyName: "Jovic", Email: "not-an-email"},
		{GivenName: "Ana", FamilyName: "Jovic", Email: "a|b@example.com"},
		{GivenName: "Ana", FamilyName: "Jovic", Email: "ana@example.com", Role: "Owner"},
	}
	for i, b := range bad {
		if err := b.Validate(); err == nil {
			t.Fatalf("case %d should fail", i)
		}
	}
}

func TestRoles(t *testing.T) {
	r, err := ParseRole("trainer")
	if err != nil || r != RoleTrainer {
		t.Fatalf("got %q, %v", r, err)
	}
	if _, err := ParseRole("owner"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	if !RoleAdmin.Allows(RoleTrainer) || !RoleTrainer.Allows(RoleMember) {
		t.Fatal("higher roles include lower ones")
	}
	if RoleMember.Allows(RoleTrainer) || Role("").Allows(RoleMember) {
		t.Fatal("lower or empty roles must not escalate")
	}
}

func TestCheckInCode(t *testing.T) {
	m := Member{ID: "8c1f", Email: "ana@example.com"}
	code := EncodeCheckInCode(m)
	if code != "CLUB|ana@example.com|8c1f" {
		t.Fatalf("got %q", code)
	}
	id, err := ParseCheckInCode(code)
	if err != nil || id != "8c1f" {
		t.Fatalf("got %q, %v", id, err)
	}
	for _, bad := range []string{"", "CLUB|ana@example.com", "CLUB||", "garbage"} {
		if _, err := ParseCheckInCode(bad); !errors.Is(err, ErrInvalidCheckInCode) {
			t.Fatalf("%q expected ErrInvalidCheckInCode, got %v", bad, err)
		}
	}
}

func TestPriceSchedule(t *testing.T) {
	d := func(y int, m time.Month, day int) time.Time { return time.Date(y, m, day, 0, 0, 0, 0, time.UTC) }
	s := NewPriceSchedule([]MembershipPrice{
		{ID: 2, Price: Cents(12000), EffectiveFrom: d(2024, 6, 1)},
		{ID: 1, Price: Cents(10000), EffectiveFrom: d(2024, 1, 1)},
		{ID: 3, Price: Cents(11000), EffectiveFrom: d(2024, 6, 1)},
	})

	cases := []struct {
		on        time.Time
		want      int64
		isDefault bool
	}{
		{d(2023, 12, 31), DefaultMonthlyPrice, true},
		{d(2024, 1, 1), 10000, false},
		{d(2024, 5, 31), 10000, false},
		{d(2024, 6, 1), 11000, false}, // same day, latest id wins
		{time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC), 11000, false},
	}
	for _, tc := range cases {
		got := s.EffectiveOn(tc.on)
		if got.Price.Cents != tc.want || got.IsDefault != tc.isDefault {
			t.Fatalf("%s expected %d default=%v, got %+v", tc.on, tc.want, tc.isDefault, got)
		}
		if !got.IsDefault && got.From.After(tc.on) {
			t.Fatalf("resolved a price effective after %s", tc.on)
		}
	}
}
