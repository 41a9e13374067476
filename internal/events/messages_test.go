package events

import (
	"testing"
)

func TestLedgerEventRoundTrip(t *testing.T) {
	event := NewPaymentPostedEvent(7, 3, 5000, 2500)

	data, err := event.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	decoded, err := LedgerEventFromJSON(data)
	if err != nil {
		t.Fatalf("LedgerEventFromJSON: %v", err)
	}

	if decoded.Kind != KindPaymentPosted {
		t.Errorf("kind = %q, want %q", decoded.Kind, KindPaymentPosted)
	}
	if decoded.PaymentID != 7 || decoded.SaleID != 3 {
		t.Errorf("ids = payment %d / sale %d, want 7/3", decoded.PaymentID, decoded.SaleID)
	}
	if decoded.AmountCents != 5000 || decoded.RemainingCents != 2500 {
		t.Errorf("amounts = %d/%d, want 5000/2500", decoded.AmountCents, decoded.RemainingCents)
	}
	if decoded.Timestamp.IsZero() {
		t.Error("timestamp lost in round trip")
	}
}

func TestSaleCreatedEventShape(t *testing.T) {
	event := NewSaleCreatedEvent(11, 4, 12000)

	if event.Kind != KindSaleCreated {
		t.Errorf("kind = %q, want %q", event.Kind, KindSaleCreated)
	}
	if event.CustomerID != 4 || event.SaleID != 11 {
		t.Errorf("ids = customer %d / sale %d, want 4/11", event.CustomerID, event.SaleID)
	}
	if event.AmountCents != 12000 {
		t.Errorf("amount = %d, want 12000", event.AmountCents)
	}
	if event.PaymentID != 0 {
		t.Errorf("payment id = %d, want 0 for sale events", event.PaymentID)
	}

	if _, err := LedgerEventFromJSON([]byte("{broken")); err == nil {
		t.Error("expected decode error for malformed payload")
	}
}
