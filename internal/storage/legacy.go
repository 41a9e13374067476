package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// The pre-normalization schema kept a single flat sales table with no
// customer reference. Detection and transformation happen at startup,
// before any request is served:
//
//  1. If a sales table exists without a customer_id column, rename it and
//     the payments table to *_old holding names. The original rows stay
//     intact under the holding names until the final drop, so a crash at
//     any later step leaves a state a rerun completes from.
//  2. RunMigrations creates the current tables (IF NOT EXISTS, so a retry
//     is a no-op).
//  3. If holding tables exist, backfill in one transaction: insert the
//     synthetic customer, copy sales with verbatim ids so payment
//     references stay valid, copy payments unchanged, drop the holding
//     tables. Either all of it commits or none of it does.

const (
	legacyCustomerName     = "Legacy Customer"
	legacyCustomerPhone    = "0000000000"
	legacyCustomerLocation = "Unknown"
)

// prepareLegacy renames legacy-shaped tables to their holding names.
// It is a no-op when the store is empty or already on the current schema.
func prepareLegacy(ctx context.Context, db *sql.DB) error {
	legacy, err := hasLegacySalesTable(ctx, db)
	if err != nil {
		return err
	}
	if !legacy {
		return nil
	}

	slog.Warn("Legacy schema detected, renaming tables for migration")

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin legacy rename: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `ALTER TABLE sales RENAME TO sales_old`); err != nil {
		return fmt.Errorf("rename sales: %w", err)
	}
	if ok, err := tableExistsTx(ctx, tx, "payments"); err != nil {
		return err
	} else if ok {
		if _, err := tx.ExecContext(ctx, `ALTER TABLE payments RENAME TO payments_old`); err != nil {
			return fmt.Errorf("rename payments: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit legacy rename: %w", err)
	}
	return nil
}

// backfillLegacy moves held rows into the current schema and drops the
// holding tables. Sale ids are carried verbatim so payments_old rows keep
// resolving; remaining is recomputed, never trusted from the old store.
func backfillLegacy(ctx context.Context, db *sql.DB, defaultCategory, defaultSubCategory string) error {
	held, err := tableExists(ctx, db, "sales_old")
	if err != nil {
		return err
	}
	if !held {
		return nil
	}

	slog.Warn("Migrating legacy sales data")

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin legacy backfill: %w", err)
	}
	defer tx.Rollback()

	// The synthetic customer's id is whatever the store assigns, captured
	// here; a fixed id would misattribute sales when customers already exist.
	legacyID, err := ensureLegacyCustomer(ctx, tx)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO sales (id, customer_id, item, category, sub_category, total_price, sale_date, paid, remaining)
		SELECT id, ?, item, ?, ?, total_price, sale_date, paid, total_price - paid
		FROM sales_old
	`, legacyID, defaultCategory, defaultSubCategory)
	if err != nil {
		return fmt.Errorf("copy legacy sales: %w", err)
	}
	salesMoved, _ := res.RowsAffected()

	var paymentsMoved int64
	if ok, err := tableExistsTx(ctx, tx, "payments_old"); err != nil {
		return err
	} else if ok {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO payments (id, sale_id, amount, payment_date, note)
			SELECT id, sale_id, amount, payment_date, note
			FROM payments_old
		`)
		if err != nil {
			return fmt.Errorf("copy legacy payments: %w", err)
		}
		paymentsMoved, _ = res.RowsAffected()
		if _, err := tx.ExecContext(ctx, `DROP TABLE payments_old`); err != nil {
			return fmt.Errorf("drop payments_old: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DROP TABLE sales_old`); err != nil {
		return fmt.Errorf("drop sales_old: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit legacy backfill: %w", err)
	}

	slog.Info("Legacy migration complete",
		"legacy_customer_id", legacyID,
		"sales_migrated", salesMoved,
		"payments_migrated", paymentsMoved)
	return nil
}

func ensureLegacyCustomer(ctx context.Context, tx *sql.Tx) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM customers WHERE phone = ?`, legacyCustomerPhone).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("look up legacy customer: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO customers (name, phone, location) VALUES (?, ?, ?)`,
		legacyCustomerName, legacyCustomerPhone, legacyCustomerLocation)
	if err != nil {
		return 0, fmt.Errorf("insert legacy customer: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("legacy customer id: %w", err)
	}
	return id, nil
}

func hasLegacySalesTable(ctx context.Context, db *sql.DB) (bool, error) {
	exists, err := tableExists(ctx, db, "sales")
	if err != nil || !exists {
		return false, err
	}

	rows, err := db.QueryContext(ctx, `PRAGMA table_info(sales)`)
	if err != nil {
		return false, fmt.Errorf("inspect sales columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name, typ string
			notNull   int
			dflt      sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return false, fmt.Errorf("scan sales column: %w", err)
		}
		if name == "customer_id" {
			return false, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, err
	}
	return true, nil
}

func tableExists(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var found string
	err := db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return true, nil
}

func tableExistsTx(ctx context.Context, tx *sql.Tx, name string) (bool, error) {
	var found string
	err := tx.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return true, nil
}
