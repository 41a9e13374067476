package events

import (
	"encoding/json"
	"time"
)

// Event kinds carried on the ledger events queue.
const (
	KindSaleCreated   = "sale.created"
	KindPaymentPosted = "payment.posted"
)

// LedgerEvent is a lightweight notification emitted after a ledger write
// commits. Consumers fetch full records from the store when they need
// more than the identifiers and amounts carried here.
type LedgerEvent struct {
	Kind           string    `json:"kind"`
	SaleID         int64     `json:"sale_id"`
	PaymentID      int64     `json:"payment_id,omitempty"`
	CustomerID     int64     `json:"customer_id,omitempty"`
	AmountCents    int64     `json:"amount_cents"`
	RemainingCents int64     `json:"remaining_cents"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewSaleCreatedEvent builds the event published after a sale insert.
func NewSaleCreatedEvent(saleID, customerID, totalCents int64) *LedgerEvent {
	return &LedgerEvent{
		Kind:        KindSaleCreated,
		SaleID:      saleID,
		CustomerID:  customerID,
		AmountCents: totalCents,
		Timestamp:   time.Now(),
	}
}

// NewPaymentPostedEvent builds the event published after a payment commit.
func NewPaymentPostedEvent(paymentID, saleID, amountCents, remainingCents int64) *LedgerEvent {
	return &LedgerEvent{
		Kind:           KindPaymentPosted,
		SaleID:         saleID,
		PaymentID:      paymentID,
		AmountCents:    amountCents,
		RemainingCents: remainingCents,
		Timestamp:      time.Now(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes an event from JSON bytes.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
