package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// Date is a calendar date stored as ISO-8601 text (YYYY-MM-DD).
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Customer struct {
		ID        int64
		Name      string
		Phone     string
		Location  string
		CreatedAt time.Time
	}

	Sale struct {
		ID          int64
		CustomerID  int64
		Item        string
		Category    string
		SubCategory string
		TotalPrice  Money
		SaleDate    Date
		Paid        Money
		Remaining   Money
	}

	Payment struct {
		ID          int64
		SaleID      int64
		Amount      Money
		PaymentDate Date
		Note        string
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyName     = errors.New("empty customer name")
	ErrEmptyPhone    = errors.New("empty customer phone")
	ErrEmptyLocation = errors.New("empty customer location")
	ErrEmptyItem     = errors.New("empty sale item")
)

const dateLayout = "2006-01-02"

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO-8601 date (YYYY-MM-DD). Impossible calendar dates
// such as 2024-02-30 are rejected by time.Parse, which keeps the monthly
// day-range reports exact.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String renders the date in its stored ISO-8601 form.
func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (c Customer) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(c.Phone) == "" {
		return ErrEmptyPhone
	}
	if strings.TrimSpace(c.Location) == "" {
		return ErrEmptyLocation
	}
	return nil
}

func (s Sale) Validate() error {
	if strings.TrimSpace(s.Item) == "" {
		return ErrEmptyItem
	}
	if len(s.Item) > 200 {
		return errors.New("item too long (max 200 characters)")
	}
	if s.TotalPrice.Cents < 0 {
		return ErrInvalidAmount
	}
	return s.SaleDate.Validate()
}

func (p Payment) Validate() error {
	if p.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	return p.PaymentDate.Validate()
}
