package service

import (
	"context"
	"fmt"
	"time"

	"pos-service/internal/broker"
	"pos-service/internal/models"
	"pos-service/internal/money"
	"pos-service/internal/redisclient"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CheckoutService turns a cart into a persisted invoice. Pricing is pure
// calculation; everything around it is collaborator side effects: inventory
// depletion, loyalty redemption, the cash drawer and the event stream.
type CheckoutService struct {
	store           *store.Store
	redis           *redisclient.Client
	eventPublisher  *broker.EventPublisher
	inventoryClient *InventoryClient
	loyalty         *LoyaltyService
	cashRegister    *CashRegisterService
	logger          *zap.Logger
	gstRatePercent  decimal.Decimal
	earnDivisor     int
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	store *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
	inventoryClient *InventoryClient,
	loyalty *LoyaltyService,
	cashRegister *CashRegisterService,
	gstRatePercent float64,
	earnDivisor int,
) *CheckoutService {
	return &CheckoutService{
		store:           store,
		redis:           redis,
		eventPublisher:  eventPublisher,
		inventoryClient: inventoryClient,
		loyalty:         loyalty,
		cashRegister:    cashRegister,
		logger:          util.GetLogger(),
		gstRatePercent:  decimal.NewFromFloat(gstRatePercent),
		earnDivisor:     earnDivisor,
	}
}

const idempotencyTTL = 24 * time.Hour

// CheckoutItemRequest represents one scanned line of the cart
type CheckoutItemRequest struct {
	Barcode  string `json:"barcode" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

// CheckoutRequest represents a request to complete a sale
type CheckoutRequest struct {
	Items                 []CheckoutItemRequest `json:"items" binding:"required,min=1,dive"`
	CustomerPhone         string                `json:"customer_phone,omitempty"`
	CustomerName          string                `json:"customer_name,omitempty"`
	DiscountType          string                `json:"discount_type,omitempty"`
	DiscountValue         decimal.Decimal       `json:"discount_value,omitempty"`
	LoyaltyPointsRedeemed int                   `json:"loyalty_points_redeemed,omitempty"`
	PaymentMethod         string                `json:"payment_method" binding:"required"`
	IdempotencyKey        string                `json:"idempotency_key,omitempty"`
	Notes                 string                `json:"notes,omitempty"`
}

// CheckoutResponse represents the response after a completed sale
type CheckoutResponse struct {
	InvoiceNumber       string          `json:"invoice_number"`
	TotalFinalPrice     decimal.Decimal `json:"total_final_price"`
	LoyaltyPointsEarned int             `json:"loyalty_points_earned"`
	Message             string          `json:"message"`
}

// Checkout completes a sale end to end
func (s *CheckoutService) Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutResponse, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Checkout")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	// Conflicts and timeouts are retryable; a retried request carrying the
	// same key replays the original invoice instead of charging twice.
	if req.IdempotencyKey != "" {
		if resp := s.replayByIdempotencyKey(ctx, req.IdempotencyKey); resp != nil {
			return resp, nil
		}
	}

	switch req.PaymentMethod {
	case models.PaymentMethodCash, models.PaymentMethodCard, models.PaymentMethodUPI:
	default:
		util.CheckoutsFailedTotal.WithLabelValues("invalid_payment_method").Inc()
		return nil, fmt.Errorf("unknown payment method %q: %w", req.PaymentMethod, models.ErrValidation)
	}

	if req.LoyaltyPointsRedeemed > 0 && req.CustomerPhone == "" {
		util.CheckoutsFailedTotal.WithLabelValues("no_customer").Inc()
		return nil, fmt.Errorf("redemption without customer phone: %w", models.ErrValidation)
	}

	// Cash sales land in the drawer; a day without an open register cannot
	// take cash.
	if req.PaymentMethod == models.PaymentMethodCash {
		if err := s.cashRegister.RequireOpen(ctx); err != nil {
			util.CheckoutsFailedTotal.WithLabelValues("register_closed").Inc()
			return nil, err
		}
	}

	lines := make([]CartLine, 0, len(req.Items))
	for _, item := range req.Items {
		catalogItem, err := s.inventoryClient.GetItem(ctx, item.Barcode)
		if err != nil {
			util.CheckoutsFailedTotal.WithLabelValues("unknown_barcode").Inc()
			return nil, err
		}
		if catalogItem.Available < item.Quantity {
			util.CheckoutsFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, fmt.Errorf("insufficient stock for %s: %w", item.Barcode, models.ErrConflict)
		}
		lines = append(lines, CartLine{
			Barcode:  catalogItem.Barcode,
			Name:     catalogItem.Name,
			Quantity: item.Quantity,
			UnitMRP:  catalogItem.MRP,
		})
	}

	availablePoints := 0
	if req.CustomerPhone != "" {
		customer, err := s.store.EnsureCustomer(ctx, req.CustomerPhone, req.CustomerName, "")
		if err != nil {
			util.CheckoutsFailedTotal.WithLabelValues("db_error").Inc()
			return nil, err
		}
		availablePoints = customer.LoyaltyPoints
	}

	totals, err := ComputeTotals(lines, req.DiscountType, req.DiscountValue,
		req.LoyaltyPointsRedeemed, availablePoints, s.gstRatePercent)
	if err != nil {
		util.CheckoutsFailedTotal.WithLabelValues("pricing").Inc()
		return nil, err
	}

	invoiceNumber := newInvoiceNumber()

	if err := s.depleteInventory(ctx, req.Items); err != nil {
		util.CheckoutsFailedTotal.WithLabelValues("depletion").Inc()
		return nil, err
	}

	if req.LoyaltyPointsRedeemed > 0 {
		if err := s.loyalty.Redeem(ctx, req.CustomerPhone, req.LoyaltyPointsRedeemed, invoiceNumber); err != nil {
			s.restockInventory(ctx, req.Items)
			util.CheckoutsFailedTotal.WithLabelValues("redemption").Inc()
			return nil, err
		}
	}

	earnedPoints := 0
	if req.CustomerPhone != "" {
		earnedPoints = EarnedPoints(totals.TotalFinalPrice, s.earnDivisor)
	}

	invoice := &models.Invoice{
		InvoiceNumber:         invoiceNumber,
		CustomerPhone:         req.CustomerPhone,
		TotalMRP:              money.Round2(totals.TotalMRP),
		TotalDiscount:         money.Round2(totals.TotalDiscount),
		TotalFinalPrice:       money.Round2(totals.TotalFinalPrice),
		TotalBaseAmount:       money.Round2(totals.Tax.Base),
		TotalGST:              money.Round2(totals.Tax.GST),
		TotalCGST:             money.Round2(totals.Tax.CGST),
		TotalSGST:             money.Round2(totals.Tax.SGST),
		PaymentMethod:         req.PaymentMethod,
		LoyaltyPointsEarned:   earnedPoints,
		LoyaltyPointsRedeemed: req.LoyaltyPointsRedeemed,
		LoyaltyDiscountAmount: money.Round2(totals.LoyaltyDiscount),
		Notes:                 req.Notes,
	}

	items := make([]models.InvoiceItem, len(totals.Lines))
	for i, line := range totals.Lines {
		items[i] = models.InvoiceItem{
			Barcode:    line.Barcode,
			Name:       line.Name,
			Quantity:   line.Quantity,
			UnitMRP:    line.UnitMRP,
			FinalPrice: money.Round2(line.FinalPrice),
			BaseAmount: money.Round2(line.Tax.Base),
			GSTAmount:  money.Round2(line.Tax.GST),
			CGSTAmount: money.Round2(line.Tax.CGST),
			SGSTAmount: money.Round2(line.Tax.SGST),
		}
	}

	if err := s.store.CreateInvoiceWithItems(ctx, invoice, items); err != nil {
		s.restockInventory(ctx, req.Items)
		if req.LoyaltyPointsRedeemed > 0 {
			s.refundRedemption(ctx, req.CustomerPhone, req.LoyaltyPointsRedeemed, invoiceNumber)
		}
		util.CheckoutsFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to persist invoice: %w", err)
	}

	if req.IdempotencyKey != "" {
		if err := s.redis.SetIdempotencyKey(ctx, req.IdempotencyKey, invoiceNumber, idempotencyTTL); err != nil {
			s.logger.Warn("Failed to store idempotency key",
				zap.String("invoice_number", invoiceNumber),
				zap.Error(err))
		}
	}

	util.CheckoutsTotal.Inc()
	s.logger.Info("Invoice created",
		zap.String("invoice_number", invoiceNumber),
		zap.String("total_final_price", invoice.TotalFinalPrice.String()),
		zap.String("payment_method", req.PaymentMethod))

	if req.CustomerPhone != "" {
		if err := s.store.RecordCustomerPurchase(ctx, req.CustomerPhone, invoice.TotalFinalPrice); err != nil {
			s.logger.Error("Failed to record customer purchase",
				zap.String("phone", req.CustomerPhone),
				zap.Error(err))
		}
	}

	if req.PaymentMethod == models.PaymentMethodCash {
		if err := s.cashRegister.RecordSale(ctx, invoice.TotalFinalPrice); err != nil {
			s.logger.Error("Failed to record cash sale on drawer",
				zap.String("invoice_number", invoiceNumber),
				zap.Error(err))
		}
	}

	eventItems := make([]models.InvoiceItemData, len(totals.Lines))
	for i, line := range totals.Lines {
		eventItems[i] = models.InvoiceItemData{
			Barcode:    line.Barcode,
			Quantity:   line.Quantity,
			UnitMRP:    line.UnitMRP,
			FinalPrice: money.Round2(line.FinalPrice),
		}
	}

	event := &models.InvoiceCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeInvoiceCreated,
			Timestamp: time.Now(),
		},
		InvoiceNumber:   invoiceNumber,
		CustomerPhone:   req.CustomerPhone,
		TotalFinalPrice: invoice.TotalFinalPrice,
		PaymentMethod:   req.PaymentMethod,
		Items:           eventItems,
	}
	if err := s.eventPublisher.PublishInvoiceCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish InvoiceCreated event", zap.Error(err))
	}

	return &CheckoutResponse{
		InvoiceNumber:       invoiceNumber,
		TotalFinalPrice:     invoice.TotalFinalPrice,
		LoyaltyPointsEarned: earnedPoints,
		Message:             "Invoice created successfully",
	}, nil
}

// replayByIdempotencyKey returns the previously created invoice for a retried
// request, or nil when the key is unknown
func (s *CheckoutService) replayByIdempotencyKey(ctx context.Context, key string) *CheckoutResponse {
	invoiceNumber, err := s.redis.GetIdempotencyKey(ctx, key)
	if err != nil {
		s.logger.Warn("Idempotency key lookup failed, proceeding as new request",
			zap.Error(err))
		return nil
	}
	if invoiceNumber == "" {
		return nil
	}

	invoice, err := s.store.GetInvoiceByNumber(ctx, invoiceNumber)
	if err != nil {
		s.logger.Warn("Idempotency key points at missing invoice, proceeding as new request",
			zap.String("invoice_number", invoiceNumber),
			zap.Error(err))
		return nil
	}

	s.logger.Info("Duplicate checkout request detected",
		zap.String("idempotency_key", key),
		zap.String("invoice_number", invoiceNumber))

	return &CheckoutResponse{
		InvoiceNumber:       invoice.InvoiceNumber,
		TotalFinalPrice:     invoice.TotalFinalPrice,
		LoyaltyPointsEarned: invoice.LoyaltyPointsEarned,
		Message:             "Invoice already created",
	}
}

// depleteInventory subtracts each sold quantity, rolling back earlier lines
// when a later one loses its availability race.
func (s *CheckoutService) depleteInventory(ctx context.Context, items []CheckoutItemRequest) error {
	for i, item := range items {
		if err := s.inventoryClient.Deplete(ctx, item.Barcode, item.Quantity); err != nil {
			s.restockInventory(ctx, items[:i])
			return err
		}
	}
	return nil
}

// restockInventory compensates a failed checkout by adding quantities back
func (s *CheckoutService) restockInventory(ctx context.Context, items []CheckoutItemRequest) {
	for _, item := range items {
		if err := s.inventoryClient.Restock(ctx, item.Barcode, item.Quantity); err != nil {
			s.logger.Error("Failed to compensate inventory depletion",
				zap.String("barcode", item.Barcode),
				zap.Error(err))
		}
	}
}

// refundRedemption compensates a committed redemption after the invoice write
// failed, via the same ledger the redemption went through.
func (s *CheckoutService) refundRedemption(ctx context.Context, phone string, points int, invoiceNumber string) {
	desc := fmt.Sprintf("Reversal of redemption for failed invoice %s", invoiceNumber)
	if err := s.loyalty.Adjust(ctx, phone, points, desc); err != nil {
		s.logger.Error("Failed to compensate redemption",
			zap.String("phone", phone),
			zap.Int("points", points),
			zap.Error(err))
	}
}

// GetInvoice retrieves an invoice with its items by number
func (s *CheckoutService) GetInvoice(ctx context.Context, invoiceNumber string) (*models.Invoice, []models.InvoiceItem, error) {
	invoice, err := s.store.GetInvoiceByNumber(ctx, invoiceNumber)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.store.GetInvoiceItems(ctx, invoice.ID)
	if err != nil {
		return nil, nil, err
	}

	return invoice, items, nil
}
