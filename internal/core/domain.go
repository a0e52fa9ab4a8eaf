package core

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MinFeeYear = 2020
	MaxFeeYear = 2030

	// DefaultMonthlyPrice applies when no price row is effective yet.
	DefaultMonthlyPrice int64 = 4000

	MaxPriceCents       int64 = 100000
	MaxLedgerCents      int64 = 1000000
	MaxDescriptionLen         = 200
	MaxCategoryLen            = 50
	MaxMemberNameLen          = 100
	MemberSearchLimit         = 10
)

const (
	RoleAdmin   Role = "Admin"
	RoleTrainer Role = "Trainer"
	RoleMember  Role = "Member"
)

const (
	Income  PaymentType = "Income"
	Expense PaymentType = "Expense"
)

type (
	Role string

	PaymentType string

	Member struct {
		ID         string
		GivenName  string
		FamilyName string
		Email      string
		BirthDate  time.Time
		Rank       string
		JoinedAt   time.Time
		Role       Role
		CreatedAt  time.Time
	}

	AttendanceRecord struct {
		ID         int64
		MemberID   string
		MemberName string
		At         time.Time
	}

	FeeStatus struct {
		MemberID  string
		Year      int
		Month     int
		IsPaid    bool
		PaidAt    *time.Time
		CreatedAt time.Time
	}

	MembershipPrice struct {
		ID            int64
		Price         Money
		EffectiveFrom time.Time
		Description   string
		IsActive      bool
		CreatedAt     time.Time
	}

	LedgerEntry struct {
		ID          int64
		Description string
		Amount      Money // signed: Income > 0, Expense < 0
		Type        PaymentType
		Date        time.Time
		Category    string
		Notes       string
		CreatedAt   time.Time
	}
)

func ParseRole(s string) (Role, error) {
	for _, r := range []Role{RoleAdmin, RoleTrainer, RoleMember} {
		if strings.EqualFold(strings.TrimSpace(s), string(r)) {
			return r, nil
		}
	}
	return "", ErrInvalidRole
}

// Allows reports whether a principal holding r may act with the required role.
// Admin implies Trainer implies Member.
func (r Role) Allows(required Role) bool {
	return r.rank() >= required.rank() && required.rank() > 0
}

func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleTrainer:
		return 2
	case RoleMember:
		return 1
	}
	return 0
}

func ParsePaymentType(s string) (PaymentType, error) {
	switch {
	case strings.EqualFold(s, string(Income)):
		return Income, nil
	case strings.EqualFold(s, string(Expense)):
		return Expense, nil
	}
	return "", ErrInvalidPaymentType
}

// FullName is the display name used on check-in confirmations.
func (m Member) FullName() string {
	return strings.TrimSpace(m.GivenName + " " + m.FamilyName)
}

func (m Member) Validate() error {
	if strings.TrimSpace(m.GivenName) == "" {
		return Invalidf("given name is required")
	}
	if strings.TrimSpace(m.FamilyName) == "" {
		return Invalidf("family name is required")
	}
	if utf8.RuneCountInString(m.GivenName) > MaxMemberNameLen || utf8.RuneCountInString(m.FamilyName) > MaxMemberNameLen {
		return Invalidf("name too long (max %d characters)", MaxMemberNameLen)
	}
	if _, err := mail.ParseAddress(m.Email); err != nil || strings.Contains(m.Email, "|") {
		return Invalidf("invalid email %q", m.Email)
	}
	if m.Role != "" {
		if _, err := ParseRole(string(m.Role)); err != nil {
			return err
		}
	}
	return nil
}

func ValidateYearMonth(year, month int) error {
	if year < MinFeeYear || year > MaxFeeYear {
		return ErrInvalidYear
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

func ValidatePrice(p Money) error {
	if p.Cents <= 0 || p.Cents > MaxPriceCents {
		return ErrInvalidPrice
	}
	return nil
}

// Normalize forces the stored sign from the entry type: expenses negative,
// income positive, whatever the caller sent.
func (e LedgerEntry) Normalize() LedgerEntry {
	e.Description = strings.TrimSpace(e.Description)
	e.Category = strings.TrimSpace(e.Category)
	e.Notes = strings.TrimSpace(e.Notes)
	switch e.Type {
	case Income:
		e.Amount = e.Amount.Abs()
	case Expense:
		e.Amount = e.Amount.Abs().Neg()
	}
	return e
}

func (e LedgerEntry) Validate() error {
	if strings.TrimSpace(e.Description) == "" {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(e.Description) > MaxDescriptionLen {
		return Invalidf("description too long (max %d characters)", MaxDescriptionLen)
	}
	if e.Type != Income && e.Type != Expense {
		return ErrInvalidPaymentType
	}
	abs := e.Amount.Abs().Cents
	if abs < 1 || abs > MaxLedgerCents {
		return ErrInvalidAmount
	}
	if e.Date.IsZero() {
		return Invalidf("date is required")
	}
	if utf8.RuneCountInString(e.Category) > MaxCategoryLen {
		return Invalidf("category too long (max %d characters)", MaxCategoryLen)
	}
	return nil
}
