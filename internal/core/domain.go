package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Daily   RecurrenceType = "daily"
	Weekly  RecurrenceType = "weekly"
	Monthly RecurrenceType = "monthly"
	None    RecurrenceType = "none"
)

type (
	// RecurrenceType identifies how often a recurring expense fires.
	// None is a valid stored value that never produces occurrences.
	RecurrenceType string

	Money struct {
		Cents int64 `json:"cents"`
	}

	Category struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Icon      string    `json:"icon"`
		Color     string    `json:"color"`
		IsDefault bool      `json:"isDefault"`
		CreatedAt time.Time `json:"createdAt"`
	}

	// Expense is always stored in the base currency. OriginalAmount and
	// OriginalCurrency are set only when the amount was entered in a
	// foreign currency.
	Expense struct {
		ID               string    `json:"id"`
		Title            string    `json:"title"`
		Amount           Money     `json:"amount"`
		OriginalAmount   *Money    `json:"originalAmount,omitempty"`
		OriginalCurrency string    `json:"originalCurrency,omitempty"`
		CategoryID       string    `json:"categoryId"`
		Date             time.Time `json:"date"`
		Note             string    `json:"note,omitempty"`
		CreatedAt        time.Time `json:"createdAt"`
		RecurringID      string    `json:"recurringExpenseId,omitempty"`
	}

	// RecurringExpense is a rule that materializes one Expense per due
	// occurrence. LastGenerated is the watermark of the most recent
	// occurrence already materialized; zero means none yet.
	RecurringExpense struct {
		ID            string         `json:"id"`
		Title         string         `json:"title"`
		Amount        Money          `json:"amount"`
		CategoryID    string         `json:"categoryId"`
		Note          string         `json:"note,omitempty"`
		Recurrence    RecurrenceType `json:"recurrenceType"`
		StartDate     time.Time      `json:"startDate"`
		EndDate       time.Time      `json:"endDate"`
		LastGenerated time.Time      `json:"lastGenerated"`
		IsActive      bool           `json:"isActive"`
		CreatedAt     time.Time      `json:"createdAt"`
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyTitle        = errors.New("empty title")
	ErrEmptyCategory     = errors.New("empty category")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidRecurrence = errors.New("invalid recurrence type")
)

// Valid reports whether t is one of the known recurrence types,
// including None.
func (t RecurrenceType) Valid() bool {
	switch t {
	case Daily, Weekly, Monthly, None:
		return true
	}
	return false
}

// Generates reports whether t can produce occurrences.
func (t RecurrenceType) Generates() bool {
	switch t {
	case Daily, Weekly, Monthly:
		return true
	}
	return false
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if len(strings.TrimSpace(e.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(e.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (re RecurringExpense) Validate() error {
	if len(strings.TrimSpace(re.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(re.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	if err := re.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(re.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if !re.Recurrence.Valid() {
		return ErrInvalidRecurrence
	}
	if re.StartDate.IsZero() {
		return errors.New("invalid start date: date cannot be zero")
	}
	if !re.EndDate.IsZero() && re.EndDate.Before(re.StartDate) {
		return errors.New("end date must not be before start date")
	}
	return nil
}

// DateOnly normalizes t to midnight UTC. Expense dates and recurrence
// watermarks are civil dates; time-of-day never participates in the
// calendar math.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewDate builds a UTC midnight date from year, month, day.
func NewDate(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
