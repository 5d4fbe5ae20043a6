package store

import (
	"context"
	"database/sql"
	"fmt"

	"pos-service/internal/models"
)

// CreateReturnWithItems persists the return record and flips the invoice's
// returned flag in one transaction. The flag flip is a check-and-set on
// returned = FALSE, so of two concurrent returns against the same invoice
// exactly one commits; the loser sees ErrConflict.
func (s *Store) CreateReturnWithItems(ctx context.Context, ret *models.ReturnRecord, items []models.ReturnItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrapErr("begin return tx", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE invoices SET returned = TRUE WHERE invoice_number = $1 AND returned = FALSE",
		ret.InvoiceNumber)
	if err != nil {
		return wrapErr("mark invoice returned", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return wrapErr("mark invoice returned", err)
	}
	if rows == 0 {
		return fmt.Errorf("invoice %s already returned: %w", ret.InvoiceNumber, models.ErrConflict)
	}

	query := `
		INSERT INTO returns (
			return_number, invoice_number, return_reason, return_method,
			total_return_amount, total_return_gst, cash_refund, wallet_credit, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err = tx.GetContext(ctx, ret, query,
		ret.ReturnNumber, ret.InvoiceNumber, ret.ReturnReason, ret.ReturnMethod,
		ret.TotalReturnAmount, ret.TotalReturnGST, ret.CashRefund,
		ret.WalletCredit, ret.Notes)
	if err != nil {
		return wrapErr("insert return", err)
	}

	itemQuery := `
		INSERT INTO return_items (
			return_id, invoice_item_id, original_quantity, return_quantity,
			unit_price, return_amount, return_gst)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	for i := range items {
		items[i].ReturnID = ret.ID
		err = tx.GetContext(ctx, &items[i].ID, itemQuery,
			items[i].ReturnID, items[i].InvoiceItemID, items[i].OriginalQuantity,
			items[i].ReturnQuantity, items[i].UnitPrice, items[i].ReturnAmount,
			items[i].ReturnGST)
		if err != nil {
			return wrapErr("insert return item", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapErr("commit return tx", err)
	}
	return nil
}

// GetReturnByNumber retrieves a return record by its unique number
func (s *Store) GetReturnByNumber(ctx context.Context, returnNumber string) (*models.ReturnRecord, error) {
	var ret models.ReturnRecord
	err := s.db.GetContext(ctx, &ret,
		"SELECT * FROM returns WHERE return_number = $1", returnNumber)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("return %s: %w", returnNumber, models.ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr("get return", err)
	}
	return &ret, nil
}

// GetReturnItems retrieves all items belonging to a return record
func (s *Store) GetReturnItems(ctx context.Context, returnID int64) ([]models.ReturnItem, error) {
	var items []models.ReturnItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM return_items WHERE return_id = $1 ORDER BY id", returnID)
	if err != nil {
		return nil, wrapErr("get return items", err)
	}
	return items, nil
}
