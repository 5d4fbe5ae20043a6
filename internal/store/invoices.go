package store

import (
	"context"
	"database/sql"
	"fmt"

	"pos-service/internal/models"
)

// CreateInvoiceWithItems persists an invoice and its items in one
// transaction. The invoice ID and created_at are filled in on success.
func (s *Store) CreateInvoiceWithItems(ctx context.Context, invoice *models.Invoice, items []models.InvoiceItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrapErr("begin invoice tx", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO invoices (
			invoice_number, customer_phone, total_mrp, total_discount,
			total_final_price, total_base_amount, total_gst, total_cgst,
			total_sgst, payment_method, loyalty_points_earned,
			loyalty_points_redeemed, loyalty_discount_amount, returned, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, FALSE, $14)
		RETURNING id, created_at`

	err = tx.GetContext(ctx, invoice, query,
		invoice.InvoiceNumber, invoice.CustomerPhone, invoice.TotalMRP,
		invoice.TotalDiscount, invoice.TotalFinalPrice, invoice.TotalBaseAmount,
		invoice.TotalGST, invoice.TotalCGST, invoice.TotalSGST,
		invoice.PaymentMethod, invoice.LoyaltyPointsEarned,
		invoice.LoyaltyPointsRedeemed, invoice.LoyaltyDiscountAmount, invoice.Notes)
	if err != nil {
		return wrapErr("insert invoice", err)
	}

	itemQuery := `
		INSERT INTO invoice_items (
			invoice_id, barcode, name, quantity, unit_mrp, final_price,
			base_amount, gst_amount, cgst_amount, sgst_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	for i := range items {
		items[i].InvoiceID = invoice.ID
		err = tx.GetContext(ctx, &items[i].ID, itemQuery,
			items[i].InvoiceID, items[i].Barcode, items[i].Name,
			items[i].Quantity, items[i].UnitMRP, items[i].FinalPrice,
			items[i].BaseAmount, items[i].GSTAmount, items[i].CGSTAmount,
			items[i].SGSTAmount)
		if err != nil {
			return wrapErr("insert invoice item", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapErr("commit invoice tx", err)
	}
	return nil
}

// GetInvoiceByNumber retrieves an invoice by its unique number
func (s *Store) GetInvoiceByNumber(ctx context.Context, invoiceNumber string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := s.db.GetContext(ctx, &invoice,
		"SELECT * FROM invoices WHERE invoice_number = $1", invoiceNumber)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("invoice %s: %w", invoiceNumber, models.ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr("get invoice", err)
	}
	return &invoice, nil
}

// GetInvoiceItems retrieves all items belonging to an invoice
func (s *Store) GetInvoiceItems(ctx context.Context, invoiceID int64) ([]models.InvoiceItem, error) {
	var items []models.InvoiceItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM invoice_items WHERE invoice_id = $1 ORDER BY id", invoiceID)
	if err != nil {
		return nil, wrapErr("get invoice items", err)
	}
	return items, nil
}
