package store

import (
	"context"
	"database/sql"
	"fmt"

	"pos-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// GetCustomerByPhone retrieves a customer by phone number
func (s *Store) GetCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	var customer models.Customer
	err := s.db.GetContext(ctx, &customer,
		"SELECT * FROM customers WHERE phone = $1", phone)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("customer %s: %w", phone, models.ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr("get customer", err)
	}
	return &customer, nil
}

// EnsureCustomer creates a customer for the phone number if none exists and
// returns the current row either way.
func (s *Store) EnsureCustomer(ctx context.Context, phone, name, email string) (*models.Customer, error) {
	var customer models.Customer
	query := `
		INSERT INTO customers (phone, name, email, loyalty_points, total_spent, total_orders)
		VALUES ($1, $2, $3, 0, 0, 0)
		ON CONFLICT (phone) DO UPDATE SET updated_at = NOW()
		RETURNING *`
	err := s.db.GetContext(ctx, &customer, query, phone, name, email)
	if err != nil {
		return nil, wrapErr("ensure customer", err)
	}
	return &customer, nil
}

// RecordCustomerPurchase bumps the customer's spend counters. The update is
// commutative so concurrent checkouts for the same customer never lose an
// increment.
func (s *Store) RecordCustomerPurchase(ctx context.Context, phone string, amount decimal.Decimal) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE customers
		SET total_spent = total_spent + $1, total_orders = total_orders + 1, updated_at = NOW()
		WHERE phone = $2`,
		amount, phone)
	if err != nil {
		return wrapErr("record customer purchase", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return wrapErr("record customer purchase", err)
	}
	if rows == 0 {
		return fmt.Errorf("customer %s: %w", phone, models.ErrNotFound)
	}
	return nil
}

// insertLoyaltyTransaction appends one entry to the append-only ledger within
// the caller's transaction. Entries are never mutated or deleted.
func insertLoyaltyTransaction(ctx context.Context, tx *sqlx.Tx, txn *models.LoyaltyTransaction) error {
	query := `
		INSERT INTO loyalty_transactions (customer_phone, invoice_number, type, points, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	return tx.GetContext(ctx, txn, query,
		txn.CustomerPhone, txn.InvoiceNumber, txn.Type, txn.Points, txn.Description)
}

func customerExists(ctx context.Context, tx *sqlx.Tx, phone string) (bool, error) {
	var exists bool
	err := tx.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM customers WHERE phone = $1)", phone)
	return exists, err
}

// RedeemPoints decrements the loyalty balance and appends the REDEEMED ledger
// entry in one transaction, so the balance always equals the ledger sum. The
// compare-and-swap guard means a concurrent redemption can never overdraw; a
// zero-row update against an existing customer means the balance was too low.
func (s *Store) RedeemPoints(ctx context.Context, phone string, points int, txn *models.LoyaltyTransaction) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrapErr("begin redeem tx", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE customers
		SET loyalty_points = loyalty_points - $1, updated_at = NOW()
		WHERE phone = $2 AND loyalty_points >= $1`,
		points, phone)
	if err != nil {
		return wrapErr("redeem points", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return wrapErr("redeem points", err)
	}
	if rows == 0 {
		exists, err := customerExists(ctx, tx, phone)
		if err != nil {
			return wrapErr("redeem points", err)
		}
		if !exists {
			return fmt.Errorf("customer %s: %w", phone, models.ErrNotFound)
		}
		return fmt.Errorf("customer %s: %w", phone, models.ErrInsufficientBalance)
	}

	if err := insertLoyaltyTransaction(ctx, tx, txn); err != nil {
		return wrapErr("insert redeem transaction", err)
	}

	if err := tx.Commit(); err != nil {
		return wrapErr("commit redeem tx", err)
	}
	return nil
}

// AddPoints credits earned points and appends the ledger entry in one
// transaction. A non-empty eventID also claims the event in processed_events
// inside the same transaction; a redelivered event loses the claim and the
// whole credit becomes a no-op instead of a double accrual.
func (s *Store) AddPoints(ctx context.Context, phone string, points int, txn *models.LoyaltyTransaction, eventID, eventType string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrapErr("begin add points tx", err)
	}
	defer tx.Rollback()

	if eventID != "" {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
			eventID, eventType)
		if err != nil {
			return wrapErr("claim event", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return wrapErr("claim event", err)
		}
		if rows == 0 {
			return nil
		}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE customers
		SET loyalty_points = loyalty_points + $1, updated_at = NOW()
		WHERE phone = $2`,
		points, phone)
	if err != nil {
		return wrapErr("add points", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return wrapErr("add points", err)
	}
	if rows == 0 {
		return fmt.Errorf("customer %s: %w", phone, models.ErrNotFound)
	}

	if err := insertLoyaltyTransaction(ctx, tx, txn); err != nil {
		return wrapErr("insert earn transaction", err)
	}

	if err := tx.Commit(); err != nil {
		return wrapErr("commit add points tx", err)
	}
	return nil
}

// AdjustPoints applies a signed administrative correction and appends the
// ADJUSTED ledger entry in one transaction. The balance must stay non-negative
// after the adjustment or nothing is written.
func (s *Store) AdjustPoints(ctx context.Context, phone string, delta int, txn *models.LoyaltyTransaction) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrapErr("begin adjust tx", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE customers
		SET loyalty_points = loyalty_points + $1, updated_at = NOW()
		WHERE phone = $2 AND loyalty_points + $1 >= 0`,
		delta, phone)
	if err != nil {
		return wrapErr("adjust points", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return wrapErr("adjust points", err)
	}
	if rows == 0 {
		exists, err := customerExists(ctx, tx, phone)
		if err != nil {
			return wrapErr("adjust points", err)
		}
		if !exists {
			return fmt.Errorf("customer %s: %w", phone, models.ErrNotFound)
		}
		return fmt.Errorf("adjustment would overdraw balance for %s: %w", phone, models.ErrValidation)
	}

	if err := insertLoyaltyTransaction(ctx, tx, txn); err != nil {
		return wrapErr("insert adjust transaction", err)
	}

	if err := tx.Commit(); err != nil {
		return wrapErr("commit adjust tx", err)
	}
	return nil
}

// GetLoyaltyTransactions retrieves a customer's ledger, newest first
func (s *Store) GetLoyaltyTransactions(ctx context.Context, phone string) ([]models.LoyaltyTransaction, error) {
	var txns []models.LoyaltyTransaction
	err := s.db.SelectContext(ctx, &txns,
		"SELECT * FROM loyalty_transactions WHERE customer_phone = $1 ORDER BY created_at DESC", phone)
	if err != nil {
		return nil, wrapErr("get loyalty transactions", err)
	}
	return txns, nil
}

// SumTransactionPoints re-derives a balance from the ledger for audit. It
// must always equal customers.loyalty_points for the same phone.
func (s *Store) SumTransactionPoints(ctx context.Context, phone string) (int, error) {
	var sum int
	err := s.db.GetContext(ctx, &sum,
		"SELECT COALESCE(SUM(points), 0) FROM loyalty_transactions WHERE customer_phone = $1", phone)
	if err != nil {
		return 0, wrapErr("sum transaction points", err)
	}
	return sum, nil
}
