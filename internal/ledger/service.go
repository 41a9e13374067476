// Package ledger owns the write paths for customers, sales and payments.
// It is the only component that mutates paid/remaining, validates category
// pairs against the injected catalog, and keeps the balance invariant
// remaining == total_price - paid across every posting.
package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"vendite/internal/catalog"
	"vendite/internal/core"
	"vendite/internal/events"
	"vendite/internal/storage"
)

// EventPublisher emits ledger events after a write commits. A nil
// publisher disables events; publish failures never fail the write.
type EventPublisher interface {
	Publish(ctx context.Context, event *events.LedgerEvent) error
	Close() error
}

type Service struct {
	store     *storage.Repository
	catalog   *catalog.Catalog
	publisher EventPublisher
}

// CreateSaleInput carries a sale-creation request. InitialPaid, when
// positive, is recorded as a regular payment after the insert so the
// payment trail stays complete.
type CreateSaleInput struct {
	CustomerID  int64
	Item        string
	Category    string
	SubCategory string
	TotalPrice  core.Money
	SaleDate    core.Date
	InitialPaid core.Money
}

// CustomerDetail is a customer with their sales and aggregated balances.
type CustomerDetail struct {
	Customer       core.Customer
	Sales          []core.Sale
	TotalPurchased core.Money
	TotalPaid      core.Money
	TotalRemaining core.Money
}

// SaleDetail is a sale joined with its customer and payment history.
type SaleDetail struct {
	Sale     storage.SaleWithCustomer
	Payments []core.Payment
}

func NewService(store *storage.Repository, cat *catalog.Catalog, publisher EventPublisher) *Service {
	return &Service{
		store:     store,
		catalog:   cat,
		publisher: publisher,
	}
}

// Catalog exposes the injected category catalog for read-only use.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// CreateCustomer inserts a customer, rejecting duplicate phone numbers.
func (s *Service) CreateCustomer(ctx context.Context, name, phone, location string) (core.Customer, error) {
	c := core.Customer{Name: name, Phone: phone, Location: location}
	if err := c.Validate(); err != nil {
		return core.Customer{}, err
	}
	return s.store.CreateCustomer(ctx, c)
}

// ListCustomers returns all customers ordered by name.
func (s *Service) ListCustomers(ctx context.Context) ([]core.Customer, error) {
	return s.store.ListCustomers(ctx)
}

// GetCustomer returns a customer with their sales and balance totals.
func (s *Service) GetCustomer(ctx context.Context, id int64) (CustomerDetail, error) {
	customer, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		return CustomerDetail{}, err
	}
	sales, err := s.store.ListSalesByCustomer(ctx, id)
	if err != nil {
		return CustomerDetail{}, err
	}

	detail := CustomerDetail{Customer: customer, Sales: sales}
	for _, sale := range sales {
		detail.TotalPurchased = detail.TotalPurchased.Add(sale.TotalPrice)
		detail.TotalPaid = detail.TotalPaid.Add(sale.Paid)
		detail.TotalRemaining = detail.TotalRemaining.Add(sale.Remaining)
	}
	return detail, nil
}

// CreateSale validates the category pair and customer reference, inserts
// the sale with paid = 0, and records any initial payment through the
// normal posting path so the invariant holds at every step.
func (s *Service) CreateSale(ctx context.Context, in CreateSaleInput) (core.Sale, error) {
	sale := core.Sale{
		CustomerID:  in.CustomerID,
		Item:        in.Item,
		Category:    in.Category,
		SubCategory: in.SubCategory,
		TotalPrice:  in.TotalPrice,
		SaleDate:    in.SaleDate,
	}
	if err := sale.Validate(); err != nil {
		return core.Sale{}, err
	}
	if err := s.catalog.Validate(in.Category, in.SubCategory); err != nil {
		return core.Sale{}, err
	}
	if in.InitialPaid.Cents < 0 {
		return core.Sale{}, core.ErrInvalidAmount
	}
	if in.InitialPaid.Cents > in.TotalPrice.Cents {
		return core.Sale{}, &core.OverpaymentError{
			Amount: in.InitialPaid, Remaining: in.TotalPrice,
		}
	}

	created, err := s.store.CreateSale(ctx, sale)
	if err != nil {
		return core.Sale{}, err
	}
	s.publish(ctx, events.NewSaleCreatedEvent(created.ID, created.CustomerID, created.TotalPrice.Cents))

	if in.InitialPaid.Cents > 0 {
		_, updated, err := s.PostPayment(ctx, created.ID, in.InitialPaid, in.SaleDate, "Initial payment")
		if err != nil {
			return core.Sale{}, fmt.Errorf("record initial payment: %w", err)
		}
		created = updated
	}
	return created, nil
}

// ListSales returns all sales with their customers, newest first.
func (s *Service) ListSales(ctx context.Context) ([]storage.SaleWithCustomer, error) {
	return s.store.ListSales(ctx)
}

// GetSale returns a sale with its customer and payment history.
func (s *Service) GetSale(ctx context.Context, id int64) (SaleDetail, error) {
	sale, err := s.store.GetSale(ctx, id)
	if err != nil {
		return SaleDetail{}, err
	}
	payments, err := s.store.ListPaymentsBySale(ctx, id)
	if err != nil {
		return SaleDetail{}, err
	}
	return SaleDetail{Sale: sale, Payments: payments}, nil
}

// PostPayment records a payment against a sale and returns the payment
// and the sale's updated balance. Overpayment and the atomic balance
// update are enforced inside the store transaction.
func (s *Service) PostPayment(ctx context.Context, saleID int64, amount core.Money, date core.Date, note string) (core.Payment, core.Sale, error) {
	payment := core.Payment{
		SaleID:      saleID,
		Amount:      amount,
		PaymentDate: date,
		Note:        note,
	}
	if err := payment.Validate(); err != nil {
		return core.Payment{}, core.Sale{}, err
	}

	stored, sale, err := s.store.PostPayment(ctx, payment)
	if err != nil {
		return core.Payment{}, core.Sale{}, err
	}
	s.publish(ctx, events.NewPaymentPostedEvent(stored.ID, sale.ID, stored.Amount.Cents, sale.Remaining.Cents))
	return stored, sale, nil
}

func (s *Service) publish(ctx context.Context, event *events.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", event.Kind, "sale_id", event.SaleID, "error", err)
	}
}

// Close closes the store and the event publisher.
func (s *Service) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("events: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}
	return nil
}
