package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vendite/internal/core"

	_ "modernc.org/sqlite"
)

// Repository owns the SQLite store. Writes run on a single connection
// (MaxOpenConns 1) so multi-step transactions such as payment posting are
// serialized at the pool; the guarded UPDATE in PostPayment keeps the
// balance invariant even if the pool policy ever changes.
type Repository struct {
	db *sql.DB
}

// NewRepository opens (or creates) the database, runs the legacy transform
// and schema migrations, and returns a ready repository. The default
// category pair is attached to migrated legacy sales.
func NewRepository(dbPath, defaultCategory, defaultSubCategory string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	ctx := context.Background()
	if err := prepareLegacy(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare legacy schema: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if err := backfillLegacy(ctx, db, defaultCategory, defaultSubCategory); err != nil {
		db.Close()
		return nil, fmt.Errorf("backfill legacy data: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaleWithCustomer is a sale row joined with its customer, as served by
// the listing and outstanding queries.
type SaleWithCustomer struct {
	core.Sale
	CustomerName     string
	CustomerPhone    string
	CustomerLocation string
}

// CreateCustomer inserts a customer with a server-assigned timestamp.
// A phone collision maps to core.ErrDuplicatePhone.
func (r *Repository) CreateCustomer(ctx context.Context, c core.Customer) (core.Customer, error) {
	c.CreatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO customers (name, phone, location, created_at) VALUES (?, ?, ?, ?)`,
		c.Name, c.Phone, c.Location, c.CreatedAt.Format(time.RFC3339))
	if err != nil {
		if isUniqueViolation(err) {
			return core.Customer{}, core.ErrDuplicatePhone
		}
		return core.Customer{}, fmt.Errorf("insert customer: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return core.Customer{}, fmt.Errorf("customer id: %w", err)
	}

	slog.InfoContext(ctx, "Customer created", "id", c.ID, "name", c.Name)
	return c, nil
}

// GetCustomer returns a customer by id, or core.ErrCustomerNotFound.
func (r *Repository) GetCustomer(ctx context.Context, id int64) (core.Customer, error) {
	var (
		c         core.Customer
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, phone, location, created_at FROM customers WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Phone, &c.Location, &createdAt)
	if err == sql.ErrNoRows {
		return core.Customer{}, core.ErrCustomerNotFound
	}
	if err != nil {
		return core.Customer{}, fmt.Errorf("get customer: %w", err)
	}
	c.CreatedAt = parseTimestamp(createdAt)
	return c, nil
}

// ListCustomers returns all customers ordered by name.
func (r *Repository) ListCustomers(ctx context.Context) ([]core.Customer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, phone, location, created_at FROM customers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	customers := make([]core.Customer, 0, 16)
	for rows.Next() {
		var (
			c         core.Customer
			createdAt string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Location, &createdAt); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		c.CreatedAt = parseTimestamp(createdAt)
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// CreateSale inserts a sale with paid = 0 and remaining = total_price.
// The customer reference is checked in the same transaction as the insert.
func (r *Repository) CreateSale(ctx context.Context, s core.Sale) (core.Sale, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Sale{}, fmt.Errorf("begin create sale: %w", err)
	}
	defer tx.Rollback()

	var exists int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM customers WHERE id = ?`, s.CustomerID).Scan(&exists)
	if err == sql.ErrNoRows {
		return core.Sale{}, core.ErrCustomerNotFound
	}
	if err != nil {
		return core.Sale{}, fmt.Errorf("check customer: %w", err)
	}

	s.Paid = core.Money{}
	s.Remaining = s.TotalPrice
	res, err := tx.ExecContext(ctx, `
		INSERT INTO sales (customer_id, item, category, sub_category, total_price, sale_date, paid, remaining)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?)
	`, s.CustomerID, s.Item, s.Category, s.SubCategory, s.TotalPrice.Cents, s.SaleDate.String(), s.Remaining.Cents)
	if err != nil {
		return core.Sale{}, fmt.Errorf("insert sale: %w", err)
	}
	if s.ID, err = res.LastInsertId(); err != nil {
		return core.Sale{}, fmt.Errorf("sale id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.Sale{}, fmt.Errorf("commit create sale: %w", err)
	}

	slog.InfoContext(ctx, "Sale created",
		"id", s.ID, "customer_id", s.CustomerID, "item", s.Item, "total_cents", s.TotalPrice.Cents)
	return s, nil
}

// GetSale returns a sale joined with its customer, or core.ErrSaleNotFound.
func (r *Repository) GetSale(ctx context.Context, id int64) (SaleWithCustomer, error) {
	var (
		s        SaleWithCustomer
		saleDate string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT s.id, s.customer_id, s.item, s.category, s.sub_category,
		       s.total_price, s.sale_date, s.paid, s.remaining,
		       c.name, c.phone, c.location
		FROM sales s
		JOIN customers c ON s.customer_id = c.id
		WHERE s.id = ?
	`, id).Scan(&s.ID, &s.CustomerID, &s.Item, &s.Category, &s.SubCategory,
		&s.TotalPrice.Cents, &saleDate, &s.Paid.Cents, &s.Remaining.Cents,
		&s.CustomerName, &s.CustomerPhone, &s.CustomerLocation)
	if err == sql.ErrNoRows {
		return SaleWithCustomer{}, core.ErrSaleNotFound
	}
	if err != nil {
		return SaleWithCustomer{}, fmt.Errorf("get sale: %w", err)
	}
	s.SaleDate, _ = core.ParseDate(saleDate)
	return s, nil
}

// ListSales returns all sales joined with customers, newest sale_date first.
func (r *Repository) ListSales(ctx context.Context) ([]SaleWithCustomer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.customer_id, s.item, s.category, s.sub_category,
		       s.total_price, s.sale_date, s.paid, s.remaining,
		       c.name, c.phone, c.location
		FROM sales s
		JOIN customers c ON s.customer_id = c.id
		ORDER BY s.sale_date DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()
	return scanSalesWithCustomer(rows)
}

// ListSalesByCustomer returns a customer's sales, newest sale_date first.
func (r *Repository) ListSalesByCustomer(ctx context.Context, customerID int64) ([]core.Sale, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, customer_id, item, category, sub_category, total_price, sale_date, paid, remaining
		FROM sales
		WHERE customer_id = ?
		ORDER BY sale_date DESC
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list customer sales: %w", err)
	}
	defer rows.Close()

	sales := make([]core.Sale, 0, 16)
	for rows.Next() {
		var (
			s        core.Sale
			saleDate string
		)
		if err := rows.Scan(&s.ID, &s.CustomerID, &s.Item, &s.Category, &s.SubCategory,
			&s.TotalPrice.Cents, &saleDate, &s.Paid.Cents, &s.Remaining.Cents); err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		s.SaleDate, _ = core.ParseDate(saleDate)
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

// ListPaymentsBySale returns a sale's payments ordered by payment_date.
func (r *Repository) ListPaymentsBySale(ctx context.Context, saleID int64) ([]core.Payment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sale_id, amount, payment_date, note
		FROM payments
		WHERE sale_id = ?
		ORDER BY payment_date
	`, saleID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	payments := make([]core.Payment, 0, 8)
	for rows.Next() {
		var (
			p           core.Payment
			paymentDate string
		)
		if err := rows.Scan(&p.ID, &p.SaleID, &p.Amount.Cents, &paymentDate, &p.Note); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		p.PaymentDate, _ = core.ParseDate(paymentDate)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// PostPayment records a payment and moves the sale's balance in one
// transaction. The read establishes the current remaining for the
// overpayment check; the UPDATE re-checks it (remaining >= amount) so two
// postings racing on the same sale can never jointly overpay. Returns the
// stored payment and the sale's post-payment state.
func (r *Repository) PostPayment(ctx context.Context, p core.Payment) (core.Payment, core.Sale, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Payment{}, core.Sale{}, fmt.Errorf("begin post payment: %w", err)
	}
	defer tx.Rollback()

	var (
		s        core.Sale
		saleDate string
	)
	err = tx.QueryRowContext(ctx, `
		SELECT id, customer_id, item, category, sub_category, total_price, sale_date, paid, remaining
		FROM sales WHERE id = ?
	`, p.SaleID).Scan(&s.ID, &s.CustomerID, &s.Item, &s.Category, &s.SubCategory,
		&s.TotalPrice.Cents, &saleDate, &s.Paid.Cents, &s.Remaining.Cents)
	if err == sql.ErrNoRows {
		return core.Payment{}, core.Sale{}, core.ErrSaleNotFound
	}
	if err != nil {
		return core.Payment{}, core.Sale{}, fmt.Errorf("read sale balance: %w", err)
	}
	s.SaleDate, _ = core.ParseDate(saleDate)

	if p.Amount.Cents > s.Remaining.Cents {
		return core.Payment{}, core.Sale{}, &core.OverpaymentError{
			SaleID: s.ID, Amount: p.Amount, Remaining: s.Remaining,
		}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE sales
		SET paid = paid + ?, remaining = remaining - ?
		WHERE id = ? AND remaining >= ?
	`, p.Amount.Cents, p.Amount.Cents, p.SaleID, p.Amount.Cents)
	if err != nil {
		return core.Payment{}, core.Sale{}, fmt.Errorf("update sale balance: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return core.Payment{}, core.Sale{}, fmt.Errorf("update sale balance: %w", err)
	} else if n == 0 {
		return core.Payment{}, core.Sale{}, &core.OverpaymentError{
			SaleID: s.ID, Amount: p.Amount, Remaining: s.Remaining,
		}
	}

	ins, err := tx.ExecContext(ctx,
		`INSERT INTO payments (sale_id, amount, payment_date, note) VALUES (?, ?, ?, ?)`,
		p.SaleID, p.Amount.Cents, p.PaymentDate.String(), p.Note)
	if err != nil {
		return core.Payment{}, core.Sale{}, fmt.Errorf("insert payment: %w", err)
	}
	if p.ID, err = ins.LastInsertId(); err != nil {
		return core.Payment{}, core.Sale{}, fmt.Errorf("payment id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.Payment{}, core.Sale{}, fmt.Errorf("commit post payment: %w", err)
	}

	s.Paid = s.Paid.Add(p.Amount)
	s.Remaining = s.Remaining.Sub(p.Amount)

	slog.InfoContext(ctx, "Payment posted",
		"id", p.ID, "sale_id", p.SaleID, "amount_cents", p.Amount.Cents, "remaining_cents", s.Remaining.Cents)
	return p, s, nil
}

// PaymentsInRange sums payment amounts with payment_date inside the
// inclusive ISO date range.
func (r *Repository) PaymentsInRange(ctx context.Context, start, end string) (core.Money, int64, error) {
	var (
		total sql.NullInt64
		count int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT SUM(amount), COUNT(*) FROM payments WHERE payment_date BETWEEN ? AND ?`,
		start, end).Scan(&total, &count)
	if err != nil {
		return core.Money{}, 0, fmt.Errorf("sum payments in range: %w", err)
	}
	return core.Money{Cents: total.Int64}, count, nil
}

// SalesInRange sums sale totals with sale_date inside the inclusive ISO
// date range.
func (r *Repository) SalesInRange(ctx context.Context, start, end string) (core.Money, int64, error) {
	var (
		total sql.NullInt64
		count int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT SUM(total_price), COUNT(*) FROM sales WHERE sale_date BETWEEN ? AND ?`,
		start, end).Scan(&total, &count)
	if err != nil {
		return core.Money{}, 0, fmt.Errorf("sum sales in range: %w", err)
	}
	return core.Money{Cents: total.Int64}, count, nil
}

// OutstandingTotal sums remaining across all sales regardless of date.
func (r *Repository) OutstandingTotal(ctx context.Context) (core.Money, error) {
	var total sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT SUM(remaining) FROM sales`).Scan(&total)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum outstanding: %w", err)
	}
	return core.Money{Cents: total.Int64}, nil
}

// OutstandingSales returns every sale with remaining > 0, oldest first,
// together with the total still owed on them.
func (r *Repository) OutstandingSales(ctx context.Context) ([]SaleWithCustomer, core.Money, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.customer_id, s.item, s.category, s.sub_category,
		       s.total_price, s.sale_date, s.paid, s.remaining,
		       c.name, c.phone, c.location
		FROM sales s
		JOIN customers c ON s.customer_id = c.id
		WHERE s.remaining > 0
		ORDER BY s.sale_date
	`)
	if err != nil {
		return nil, core.Money{}, fmt.Errorf("list outstanding sales: %w", err)
	}
	defer rows.Close()

	sales, err := scanSalesWithCustomer(rows)
	if err != nil {
		return nil, core.Money{}, err
	}

	var total core.Money
	for _, s := range sales {
		total = total.Add(s.Remaining)
	}
	return sales, total, nil
}

func scanSalesWithCustomer(rows *sql.Rows) ([]SaleWithCustomer, error) {
	sales := make([]SaleWithCustomer, 0, 32)
	for rows.Next() {
		var (
			s        SaleWithCustomer
			saleDate string
		)
		if err := rows.Scan(&s.ID, &s.CustomerID, &s.Item, &s.Category, &s.SubCategory,
			&s.TotalPrice.Cents, &saleDate, &s.Paid.Cents, &s.Remaining.Cents,
			&s.CustomerName, &s.CustomerPhone, &s.CustomerLocation); err != nil {
			return nil, fmt.Errorf("scan sale row: %w", err)
		}
		s.SaleDate, _ = core.ParseDate(saleDate)
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// parseTimestamp tolerates both RFC3339 timestamps written by this code
// and the "YYYY-MM-DD HH:MM:SS" form SQLite's CURRENT_TIMESTAMP produces.
func parseTimestamp(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}
