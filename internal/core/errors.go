package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for the ledger's business rules. The HTTP layer maps
// these to response statuses with errors.Is/errors.As.
var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrSaleNotFound     = errors.New("sale not found")
	ErrDuplicatePhone   = errors.New("phone number already exists")
)

// OverpaymentError rejects a payment whose amount exceeds the sale's
// current remaining balance.
type OverpaymentError struct {
	SaleID    int64
	Amount    Money
	Remaining Money
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("payment of %s exceeds remaining balance of %s on sale %d",
		e.Amount, e.Remaining, e.SaleID)
}

// CategoryErrorKind distinguishes an unknown category from an unknown
// sub-category under a known one.
type CategoryErrorKind string

const (
	UnknownCategory    CategoryErrorKind = "unknown_category"
	UnknownSubCategory CategoryErrorKind = "unknown_sub_category"
)

// CategoryError reports a category/sub-category pair the catalog does not
// allow. Allowed carries the valid choices for the caller's benefit.
type CategoryError struct {
	Kind        CategoryErrorKind
	Category    string
	SubCategory string
	Allowed     []string
}

func (e *CategoryError) Error() string {
	switch e.Kind {
	case UnknownCategory:
		return fmt.Sprintf("invalid category %q, choose from %v", e.Category, e.Allowed)
	default:
		return fmt.Sprintf("invalid sub_category %q for %q, choose from %v", e.SubCategory, e.Category, e.Allowed)
	}
}
