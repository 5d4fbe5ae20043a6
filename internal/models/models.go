package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CatalogItem is a read-only view of an inventory record owned by the
// external catalog service. The billing core only ever reads it.
type CatalogItem struct {
	ID        int64           `db:"id" json:"id"`
	Barcode   string          `db:"barcode" json:"barcode"`
	Name      string          `db:"name" json:"name"`
	MRP       decimal.Decimal `db:"mrp" json:"mrp"`
	Available int             `db:"available" json:"available"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// Invoice is a completed checkout. Created once; the returned flag flips true
// exactly once and is never reset.
type Invoice struct {
	ID                    int64           `db:"id" json:"id"`
	InvoiceNumber         string          `db:"invoice_number" json:"invoice_number"`
	CustomerPhone         string          `db:"customer_phone" json:"customer_phone,omitempty"`
	TotalMRP              decimal.Decimal `db:"total_mrp" json:"total_mrp"`
	TotalDiscount         decimal.Decimal `db:"total_discount" json:"total_discount"`
	TotalFinalPrice       decimal.Decimal `db:"total_final_price" json:"total_final_price"`
	TotalBaseAmount       decimal.Decimal `db:"total_base_amount" json:"total_base_amount"`
	TotalGST              decimal.Decimal `db:"total_gst" json:"total_gst"`
	TotalCGST             decimal.Decimal `db:"total_cgst" json:"total_cgst"`
	TotalSGST             decimal.Decimal `db:"total_sgst" json:"total_sgst"`
	PaymentMethod         string          `db:"payment_method" json:"payment_method"`
	LoyaltyPointsEarned   int             `db:"loyalty_points_earned" json:"loyalty_points_earned"`
	LoyaltyPointsRedeemed int             `db:"loyalty_points_redeemed" json:"loyalty_points_redeemed"`
	LoyaltyDiscountAmount decimal.Decimal `db:"loyalty_discount_amount" json:"loyalty_discount_amount"`
	Returned              bool            `db:"returned" json:"returned"`
	Notes                 string          `db:"notes" json:"notes,omitempty"`
	CreatedAt             time.Time       `db:"created_at" json:"created_at"`
}

// InvoiceItem is one line of an invoice, owned exclusively by it.
// FinalPrice is this item's MRP-weighted share of the post-discount total.
type InvoiceItem struct {
	ID         int64           `db:"id" json:"id"`
	InvoiceID  int64           `db:"invoice_id" json:"invoice_id"`
	Barcode    string          `db:"barcode" json:"barcode"`
	Name       string          `db:"name" json:"name"`
	Quantity   int             `db:"quantity" json:"quantity"`
	UnitMRP    decimal.Decimal `db:"unit_mrp" json:"unit_mrp"`
	FinalPrice decimal.Decimal `db:"final_price" json:"final_price"`
	BaseAmount decimal.Decimal `db:"base_amount" json:"base_amount"`
	GSTAmount  decimal.Decimal `db:"gst_amount" json:"gst_amount"`
	CGSTAmount decimal.Decimal `db:"cgst_amount" json:"cgst_amount"`
	SGSTAmount decimal.Decimal `db:"sgst_amount" json:"sgst_amount"`
}

// Customer keyed by phone number. Loyalty balance always equals the running
// sum of the customer's loyalty transaction deltas.
type Customer struct {
	ID            int64           `db:"id" json:"id"`
	Phone         string          `db:"phone" json:"phone"`
	Name          string          `db:"name" json:"name,omitempty"`
	Email         string          `db:"email" json:"email,omitempty"`
	LoyaltyPoints int             `db:"loyalty_points" json:"loyalty_points"`
	TotalSpent    decimal.Decimal `db:"total_spent" json:"total_spent"`
	TotalOrders   int             `db:"total_orders" json:"total_orders"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// LoyaltyTransaction is an append-only ledger entry. Points is signed:
// positive for EARNED, negative for REDEEMED, either for ADJUSTED.
type LoyaltyTransaction struct {
	ID            int64     `db:"id" json:"id"`
	CustomerPhone string    `db:"customer_phone" json:"customer_phone"`
	InvoiceNumber string    `db:"invoice_number" json:"invoice_number,omitempty"`
	Type          string    `db:"type" json:"type"`
	Points        int       `db:"points" json:"points"`
	Description   string    `db:"description" json:"description"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// ReturnRecord is the single return allowed against an invoice. Exactly one
// of CashRefund/WalletCredit is nonzero; store credit uses WalletCredit.
type ReturnRecord struct {
	ID                int64           `db:"id" json:"id"`
	ReturnNumber      string          `db:"return_number" json:"return_number"`
	InvoiceNumber     string          `db:"invoice_number" json:"invoice_number"`
	ReturnReason      string          `db:"return_reason" json:"return_reason,omitempty"`
	ReturnMethod      string          `db:"return_method" json:"return_method"`
	TotalReturnAmount decimal.Decimal `db:"total_return_amount" json:"total_return_amount"`
	TotalReturnGST    decimal.Decimal `db:"total_return_gst" json:"total_return_gst"`
	CashRefund        decimal.Decimal `db:"cash_refund" json:"cash_refund"`
	WalletCredit      decimal.Decimal `db:"wallet_credit" json:"wallet_credit"`
	Notes             string          `db:"notes" json:"notes,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}

// ReturnItem records how many units of one invoice item were returned.
type ReturnItem struct {
	ID               int64           `db:"id" json:"id"`
	ReturnID         int64           `db:"return_id" json:"return_id"`
	InvoiceItemID    int64           `db:"invoice_item_id" json:"invoice_item_id"`
	OriginalQuantity int             `db:"original_quantity" json:"original_quantity"`
	ReturnQuantity   int             `db:"return_quantity" json:"return_quantity"`
	UnitPrice        decimal.Decimal `db:"unit_price" json:"unit_price"`
	ReturnAmount     decimal.Decimal `db:"return_amount" json:"return_amount"`
	ReturnGST        decimal.Decimal `db:"return_gst" json:"return_gst"`
}

// CashRegisterDay is one open/close cycle of the cash drawer. Exactly one row
// may exist per calendar date.
type CashRegisterDay struct {
	ID             int64           `db:"id" json:"id"`
	Date           time.Time       `db:"date" json:"date"`
	OpeningBalance decimal.Decimal `db:"opening_balance" json:"opening_balance"`
	TotalSales     decimal.Decimal `db:"total_sales" json:"total_sales"`
	TotalReturns   decimal.Decimal `db:"total_returns" json:"total_returns"`
	TotalExpenses  decimal.Decimal `db:"total_expenses" json:"total_expenses"`
	ClosingBalance decimal.Decimal `db:"closing_balance" json:"closing_balance"`
	State          string          `db:"state" json:"state"`
	Notes          string          `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// NetCash is opening + sales - returns - expenses; the same formula applies
// while OPEN and after close.
func (d *CashRegisterDay) NetCash() decimal.Decimal {
	return d.OpeningBalance.Add(d.TotalSales).Sub(d.TotalReturns).Sub(d.TotalExpenses)
}

// Expense is an append-only cash outflow within an OPEN register day.
type Expense struct {
	ID          int64           `db:"id" json:"id"`
	RegisterID  int64           `db:"register_id" json:"register_id"`
	Category    string          `db:"category" json:"category"`
	Description string          `db:"description" json:"description"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// Discount types
const (
	DiscountTypeNone    = "NONE"
	DiscountTypePercent = "PERCENT"
	DiscountTypeFixed   = "FIXED"
)

// Payment methods
const (
	PaymentMethodCash = "CASH"
	PaymentMethodCard = "CARD"
	PaymentMethodUPI  = "UPI"
)

// Return methods
const (
	ReturnMethodCash        = "CASH"
	ReturnMethodWallet      = "WALLET"
	ReturnMethodStoreCredit = "STORE_CREDIT"
)

// Loyalty transaction types
const (
	LoyaltyTypeEarned   = "EARNED"
	LoyaltyTypeRedeemed = "REDEEMED"
	LoyaltyTypeAdjusted = "ADJUSTED"
)

// Register states
const (
	RegisterStateOpen   = "OPEN"
	RegisterStateClosed = "CLOSED"
)

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
