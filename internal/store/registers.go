package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pos-service/internal/models"

	"github.com/shopspring/decimal"
)

// OpenRegister creates the register row for a calendar date. The unique
// constraint on date makes a concurrent duplicate open an ErrConflict.
func (s *Store) OpenRegister(ctx context.Context, day *models.CashRegisterDay) error {
	query := `
		INSERT INTO cash_registers (
			date, opening_balance, total_sales, total_returns, total_expenses,
			closing_balance, state, notes)
		VALUES ($1, $2, 0, 0, 0, 0, $3, $4)
		RETURNING id, created_at, updated_at`
	err := s.db.GetContext(ctx, day, query,
		day.Date, day.OpeningBalance, models.RegisterStateOpen, day.Notes)
	return wrapErr("open register", err)
}

// GetRegisterByDate retrieves the register day for a calendar date
func (s *Store) GetRegisterByDate(ctx context.Context, date time.Time) (*models.CashRegisterDay, error) {
	var day models.CashRegisterDay
	err := s.db.GetContext(ctx, &day,
		"SELECT * FROM cash_registers WHERE date = $1", date)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("register for %s: %w", date.Format("2006-01-02"), models.ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr("get register", err)
	}
	return &day, nil
}

// addToRegisterTotal applies a commutative increment to one running total,
// guarded on the register being OPEN. Sales, returns and expenses may race
// against the same day; ordering between them never changes the result.
func (s *Store) addToRegisterTotal(ctx context.Context, date time.Time, column string, amount decimal.Decimal) error {
	query := fmt.Sprintf(`
		UPDATE cash_registers
		SET %s = %s + $1, updated_at = NOW()
		WHERE date = $2 AND state = $3`, column, column)
	res, err := s.db.ExecContext(ctx, query, amount, date, models.RegisterStateOpen)
	if err != nil {
		return wrapErr("update register total", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return wrapErr("update register total", err)
	}
	if rows == 0 {
		return fmt.Errorf("no open register for %s: %w", date.Format("2006-01-02"), models.ErrNotFound)
	}
	return nil
}

// AddToSales accumulates a cash sale into the open register day
func (s *Store) AddToSales(ctx context.Context, date time.Time, amount decimal.Decimal) error {
	return s.addToRegisterTotal(ctx, date, "total_sales", amount)
}

// AddToReturns accumulates a cash refund into the open register day
func (s *Store) AddToReturns(ctx context.Context, date time.Time, amount decimal.Decimal) error {
	return s.addToRegisterTotal(ctx, date, "total_returns", amount)
}

// AddExpense appends an expense and bumps the running total in one
// transaction, guarded on the register being OPEN.
func (s *Store) AddExpense(ctx context.Context, date time.Time, expense *models.Expense) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrapErr("begin expense tx", err)
	}
	defer tx.Rollback()

	var registerID int64
	err = tx.GetContext(ctx, &registerID, `
		UPDATE cash_registers
		SET total_expenses = total_expenses + $1, updated_at = NOW()
		WHERE date = $2 AND state = $3
		RETURNING id`,
		expense.Amount, date, models.RegisterStateOpen)
	if err == sql.ErrNoRows {
		return fmt.Errorf("no open register for %s: %w", date.Format("2006-01-02"), models.ErrNotFound)
	}
	if err != nil {
		return wrapErr("update register expenses", err)
	}

	expense.RegisterID = registerID
	err = tx.GetContext(ctx, expense, `
		INSERT INTO cash_expenses (register_id, category, description, amount)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		expense.RegisterID, expense.Category, expense.Description, expense.Amount)
	if err != nil {
		return wrapErr("insert expense", err)
	}

	if err := tx.Commit(); err != nil {
		return wrapErr("commit expense tx", err)
	}
	return nil
}

// CloseRegister computes the closing balance and transitions OPEN -> CLOSED.
// The transition is terminal for the date.
func (s *Store) CloseRegister(ctx context.Context, date time.Time) (*models.CashRegisterDay, error) {
	var day models.CashRegisterDay
	err := s.db.GetContext(ctx, &day, `
		UPDATE cash_registers
		SET closing_balance = opening_balance + total_sales - total_returns - total_expenses,
		    state = $1, updated_at = NOW()
		WHERE date = $2 AND state = $3
		RETURNING *`,
		models.RegisterStateClosed, date, models.RegisterStateOpen)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no open register for %s: %w", date.Format("2006-01-02"), models.ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr("close register", err)
	}
	return &day, nil
}

// GetExpenses retrieves all expenses recorded against a register day
func (s *Store) GetExpenses(ctx context.Context, registerID int64) ([]models.Expense, error) {
	var expenses []models.Expense
	err := s.db.SelectContext(ctx, &expenses,
		"SELECT * FROM cash_expenses WHERE register_id = $1 ORDER BY created_at", registerID)
	if err != nil {
		return nil, wrapErr("get expenses", err)
	}
	return expenses, nil
}

// GetRegisterHistory retrieves register days in [from, to], newest first
func (s *Store) GetRegisterHistory(ctx context.Context, from, to time.Time) ([]models.CashRegisterDay, error) {
	var days []models.CashRegisterDay
	err := s.db.SelectContext(ctx, &days,
		"SELECT * FROM cash_registers WHERE date >= $1 AND date <= $2 ORDER BY date DESC", from, to)
	if err != nil {
		return nil, wrapErr("get register history", err)
	}
	return days, nil
}
