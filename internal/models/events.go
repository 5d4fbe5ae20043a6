package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeInvoiceCreated = "INVOICE_CREATED"
	EventTypeReturnCreated  = "RETURN_CREATED"
	EventTypePointsRedeemed = "POINTS_REDEEMED"
	EventTypePointsEarned   = "POINTS_EARNED"
	EventTypeRegisterOpened = "REGISTER_OPENED"
	EventTypeRegisterClosed = "REGISTER_CLOSED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// InvoiceCreatedEvent published when a checkout completes
type InvoiceCreatedEvent struct {
	BaseEvent
	InvoiceNumber   string            `json:"invoice_number"`
	CustomerPhone   string            `json:"customer_phone,omitempty"`
	TotalFinalPrice decimal.Decimal   `json:"total_final_price"`
	PaymentMethod   string            `json:"payment_method"`
	Items           []InvoiceItemData `json:"items"`
}

// ReturnCreatedEvent published when a return is processed
type ReturnCreatedEvent struct {
	BaseEvent
	ReturnNumber      string          `json:"return_number"`
	InvoiceNumber     string          `json:"invoice_number"`
	ReturnMethod      string          `json:"return_method"`
	TotalReturnAmount decimal.Decimal `json:"total_return_amount"`
}

// PointsRedeemedEvent published when loyalty points are redeemed
type PointsRedeemedEvent struct {
	BaseEvent
	CustomerPhone  string          `json:"customer_phone"`
	Points         int             `json:"points"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

// PointsEarnedEvent published when loyalty points accrue
type PointsEarnedEvent struct {
	BaseEvent
	CustomerPhone string `json:"customer_phone"`
	InvoiceNumber string `json:"invoice_number"`
	Points        int    `json:"points"`
}

// RegisterOpenedEvent published when a cash register day opens
type RegisterOpenedEvent struct {
	BaseEvent
	Date           string          `json:"date"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// RegisterClosedEvent published when a cash register day closes
type RegisterClosedEvent struct {
	BaseEvent
	Date           string          `json:"date"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
}

// InvoiceItemData represents item data in events
type InvoiceItemData struct {
	Barcode    string          `json:"barcode"`
	Quantity   int             `json:"quantity"`
	UnitMRP    decimal.Decimal `json:"unit_mrp"`
	FinalPrice decimal.Decimal `json:"final_price"`
}
