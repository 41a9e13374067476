// Package reports answers read-only aggregation queries over the ledger's
// stored data. It never mutates sale or payment rows.
package reports

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"vendite/internal/core"
	"vendite/internal/storage"
)

type Engine struct {
	store *storage.Repository
}

func NewEngine(store *storage.Repository) *Engine {
	return &Engine{store: store}
}

// MonthlySummary aggregates payments and sales for one calendar month,
// plus the global outstanding balance across all sales.
type MonthlySummary struct {
	Year               int
	Month              int
	PaymentsReceived   core.Money
	PaymentsCount      int64
	NewSalesTotal      core.Money
	NewSalesCount      int64
	OutstandingBalance core.Money
}

// YearMonth renders the summary's month as "YYYY-MM".
func (s MonthlySummary) YearMonth() string {
	return fmt.Sprintf("%04d-%02d", s.Year, s.Month)
}

// Outstanding lists every sale still carrying a balance and their total.
type Outstanding struct {
	Sales []storage.SaleWithCustomer
	Total core.Money
}

// MonthlySummary computes the summary for the given year and month.
// Dates are ISO text, so the fixed day-range 01..31 covers exactly the
// month: shorter months simply have no higher day values stored, and
// upstream date validation rejects impossible dates like 2024-02-30.
// The three component queries are independent reads and run concurrently.
func (e *Engine) MonthlySummary(ctx context.Context, year, month int) (MonthlySummary, error) {
	if month < 1 || month > 12 {
		return MonthlySummary{}, fmt.Errorf("invalid month %d", month)
	}

	start := fmt.Sprintf("%04d-%02d-01", year, month)
	end := fmt.Sprintf("%04d-%02d-31", year, month)

	summary := MonthlySummary{Year: year, Month: month}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, count, err := e.store.PaymentsInRange(gctx, start, end)
		if err != nil {
			return err
		}
		summary.PaymentsReceived = total
		summary.PaymentsCount = count
		return nil
	})
	g.Go(func() error {
		total, count, err := e.store.SalesInRange(gctx, start, end)
		if err != nil {
			return err
		}
		summary.NewSalesTotal = total
		summary.NewSalesCount = count
		return nil
	})
	g.Go(func() error {
		total, err := e.store.OutstandingTotal(gctx)
		if err != nil {
			return err
		}
		summary.OutstandingBalance = total
		return nil
	})
	if err := g.Wait(); err != nil {
		return MonthlySummary{}, fmt.Errorf("monthly summary %s: %w", start[:7], err)
	}

	return summary, nil
}

// Outstanding returns all sales with remaining > 0, oldest first.
func (e *Engine) Outstanding(ctx context.Context) (Outstanding, error) {
	sales, total, err := e.store.OutstandingSales(ctx)
	if err != nil {
		return Outstanding{}, fmt.Errorf("outstanding sales: %w", err)
	}
	return Outstanding{Sales: sales, Total: total}, nil
}
