package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
	Annual  Frequency = "ANNUAL"
)

const (
	StatusActive    ProjectStatus = "ACTIVE"
	StatusCompleted ProjectStatus = "COMPLETED"
	StatusCancelled ProjectStatus = "CANCELLED"
)

// DateLayout is the canonical wire and storage format for dates.
const DateLayout = "2006-01-02"

// TaxableThreshold is the asset value above which personal property tax applies.
var TaxableThreshold = Money{Cents: 150000}

// AssessmentRate is the share of an asset's value that is assessed for tax.
var AssessmentRate = decimal.NewFromFloat(0.25)

type (
	Frequency     string
	ProjectStatus string

	Date struct {
		time.Time
	}

	Project struct {
		ID              int64
		Name            string
		MonthlyRetainer Money
		CostRate        Money // per hour
		Status          ProjectStatus
		PlannedHours    decimal.Decimal
	}

	Transaction struct {
		ID          int64
		Date        Date
		Description string
		Amount      Money // signed: positive income, negative expense
		Category    string
		PassThrough bool
		ProjectIDs  []int64
	}

	RecurringTransaction struct {
		ID          int64
		Description string
		Amount      Money
		Category    string
		Frequency   Frequency
		NextDate    Date
		PassThrough bool
		ProjectIDs  []int64
	}

	TimeEntry struct {
		ID          int64
		ProjectID   int64
		Date        Date
		Hours       decimal.Decimal
		Description string
	}

	Asset struct {
		ID           int64
		Name         string
		Value        Money
		PurchaseDate Date
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidHours     = errors.New("invalid hours")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidStatus    = errors.New("invalid project status")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyName        = errors.New("empty name")
	ErrTextTooLong      = errors.New("text too long (max 200 characters)")
	ErrNotFound         = errors.New("not found")
)

const maxTextLength = 200

// Frequencies lists the supported recurrence frequencies in display order.
func Frequencies() []Frequency {
	return []Frequency{Weekly, Monthly, Annual}
}

// ParseFrequency accepts any casing; an empty value yields Monthly.
func ParseFrequency(s string) (Frequency, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Monthly, nil
	}
	f := Frequency(s)
	if !f.Valid() {
		return "", ErrInvalidFrequency
	}
	return f, nil
}

func (f Frequency) Valid() bool {
	switch f {
	case Weekly, Monthly, Annual:
		return true
	}
	return false
}

// Statuses lists the project statuses in display order.
func Statuses() []ProjectStatus {
	return []ProjectStatus{StatusActive, StatusCompleted, StatusCancelled}
}

// ParseProjectStatus accepts any casing; an empty value yields StatusActive.
func ParseProjectStatus(s string) (ProjectStatus, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return StatusActive, nil
	}
	st := ProjectStatus(s)
	if !st.Valid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}

func (s ProjectStatus) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return DateOf(t), nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String formats the date as YYYY-MM-DD; the zero date renders empty.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func validateText(s string, empty error) error {
	if strings.TrimSpace(s) == "" {
		return empty
	}
	if len(s) > maxTextLength {
		return ErrTextTooLong
	}
	return nil
}

func (p Project) Validate() error {
	if err := validateText(p.Name, ErrEmptyName); err != nil {
		return err
	}
	if p.MonthlyRetainer.IsNegative() || p.CostRate.IsNegative() {
		return ErrInvalidAmount
	}
	if !p.Status.Valid() {
		return ErrInvalidStatus
	}
	if p.PlannedHours.IsNegative() {
		return ErrInvalidHours
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if err := validateText(t.Description, ErrEmptyDescription); err != nil {
		return err
	}
	if t.Amount.IsZero() {
		return ErrInvalidAmount
	}
	return nil
}

// IsIncome reports whether the transaction adds to gross income.
func (t Transaction) IsIncome() bool {
	return t.Amount.IsPositive()
}

func (rt RecurringTransaction) Validate() error {
	if err := validateText(rt.Description, ErrEmptyDescription); err != nil {
		return err
	}
	if rt.Amount.IsZero() {
		return ErrInvalidAmount
	}
	if !rt.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	return rt.NextDate.Validate()
}

func (te TimeEntry) Validate() error {
	if te.ProjectID <= 0 {
		return ErrNotFound
	}
	if err := te.Date.Validate(); err != nil {
		return err
	}
	if !te.Hours.IsPositive() {
		return ErrInvalidHours
	}
	return nil
}

func (a Asset) Validate() error {
	if err := validateText(a.Name, ErrEmptyName); err != nil {
		return err
	}
	if a.Value.IsNegative() {
		return ErrInvalidAmount
	}
	return a.PurchaseDate.Validate()
}

// IsTaxable reports whether the asset exceeds the personal property threshold.
func (a Asset) IsTaxable() bool {
	return a.Value.Cents > TaxableThreshold.Cents
}

// AssessedValue is the portion of the value subject to assessment.
func (a Asset) AssessedValue() Money {
	return a.Value.Times(AssessmentRate)
}
