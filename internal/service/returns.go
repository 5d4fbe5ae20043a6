package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pos-service/internal/broker"
	"pos-service/internal/models"
	"pos-service/internal/money"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReturnService processes at most one return per invoice. Refunds are based on
// what the customer actually paid per unit (the discounted, tax-inclusive
// final price), never on MRP.
type ReturnService struct {
	store           *store.Store
	eventPublisher  *broker.EventPublisher
	inventoryClient *InventoryClient
	cashRegister    *CashRegisterService
	logger          *zap.Logger
}

// NewReturnService creates a new return service
func NewReturnService(
	store *store.Store,
	eventPublisher *broker.EventPublisher,
	inventoryClient *InventoryClient,
	cashRegister *CashRegisterService,
) *ReturnService {
	return &ReturnService{
		store:           store,
		eventPublisher:  eventPublisher,
		inventoryClient: inventoryClient,
		cashRegister:    cashRegister,
		logger:          util.GetLogger(),
	}
}

// ReturnItemRequest selects how many units of one invoice item come back
type ReturnItemRequest struct {
	InvoiceItemID  int64 `json:"invoice_item_id" binding:"required"`
	ReturnQuantity int   `json:"return_quantity" binding:"min=0"`
}

// ReturnRequest represents a request to process a return
type ReturnRequest struct {
	InvoiceNumber string              `json:"invoice_number" binding:"required"`
	Items         []ReturnItemRequest `json:"items" binding:"required,min=1,dive"`
	ReturnReason  string              `json:"return_reason,omitempty"`
	ReturnMethod  string              `json:"return_method" binding:"required"`
	Notes         string              `json:"notes,omitempty"`
}

// ReturnResponse represents the response after a processed return
type ReturnResponse struct {
	ReturnNumber      string          `json:"return_number"`
	TotalReturnAmount decimal.Decimal `json:"total_return_amount"`
	Message           string          `json:"message"`
}

// InvoiceLookup is the pre-return view of an invoice
type InvoiceLookup struct {
	Invoice   *models.Invoice      `json:"invoice"`
	Items     []models.InvoiceItem `json:"items"`
	CanReturn bool                 `json:"can_return"`
}

// LookupInvoice retrieves an invoice for the returns screen
func (s *ReturnService) LookupInvoice(ctx context.Context, invoiceNumber string) (*InvoiceLookup, error) {
	invoice, err := s.store.GetInvoiceByNumber(ctx, invoiceNumber)
	if err != nil {
		return nil, err
	}

	items, err := s.store.GetInvoiceItems(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}

	return &InvoiceLookup{
		Invoice:   invoice,
		Items:     items,
		CanReturn: !invoice.Returned,
	}, nil
}

// computeReturnItems prices the returned units. Pure calculation: per-unit
// price is final_price / quantity at full precision, the refund and its GST
// share are rounded once at the end.
func computeReturnItems(invoiceItems []models.InvoiceItem, reqs []ReturnItemRequest) ([]models.ReturnItem, decimal.Decimal, decimal.Decimal, error) {
	byID := make(map[int64]*models.InvoiceItem, len(invoiceItems))
	for i := range invoiceItems {
		byID[invoiceItems[i].ID] = &invoiceItems[i]
	}

	var (
		items       []models.ReturnItem
		totalAmount = decimal.Zero
		totalGST    = decimal.Zero
	)

	for _, req := range reqs {
		item, ok := byID[req.InvoiceItemID]
		if !ok {
			return nil, decimal.Zero, decimal.Zero,
				fmt.Errorf("invoice item %d not on invoice: %w", req.InvoiceItemID, models.ErrValidation)
		}
		if req.ReturnQuantity < 0 || req.ReturnQuantity > item.Quantity {
			return nil, decimal.Zero, decimal.Zero,
				fmt.Errorf("return quantity %d of %d for item %d: %w",
					req.ReturnQuantity, item.Quantity, item.ID, models.ErrValidation)
		}
		if req.ReturnQuantity == 0 {
			continue
		}

		qty := decimal.NewFromInt(int64(item.Quantity))
		retQty := decimal.NewFromInt(int64(req.ReturnQuantity))
		unitPrice := item.FinalPrice.Div(qty)
		amount := money.Round2(unitPrice.Mul(retQty))
		gst := money.Round2(item.GSTAmount.Div(qty).Mul(retQty))

		items = append(items, models.ReturnItem{
			InvoiceItemID:    item.ID,
			OriginalQuantity: item.Quantity,
			ReturnQuantity:   req.ReturnQuantity,
			UnitPrice:        money.Round2(unitPrice),
			ReturnAmount:     amount,
			ReturnGST:        gst,
		})
		totalAmount = totalAmount.Add(amount)
		totalGST = totalGST.Add(gst)
	}

	if len(items) == 0 {
		return nil, decimal.Zero, decimal.Zero,
			fmt.Errorf("nothing to return: %w", models.ErrValidation)
	}

	return items, totalAmount, totalGST, nil
}

// ProcessReturn validates and persists a return against an invoice
func (s *ReturnService) ProcessReturn(ctx context.Context, req *ReturnRequest) (*ReturnResponse, error) {
	ctx, span := util.StartSpan(ctx, "ReturnService.ProcessReturn")
	defer span.End()

	switch req.ReturnMethod {
	case models.ReturnMethodCash, models.ReturnMethodWallet, models.ReturnMethodStoreCredit:
	default:
		util.ReturnsFailedTotal.WithLabelValues("invalid_method").Inc()
		return nil, fmt.Errorf("unknown return method %q: %w", req.ReturnMethod, models.ErrValidation)
	}

	invoice, err := s.store.GetInvoiceByNumber(ctx, req.InvoiceNumber)
	if err != nil {
		util.ReturnsFailedTotal.WithLabelValues("not_found").Inc()
		return nil, err
	}
	// Early reject; the transactional check-and-set below is authoritative.
	if invoice.Returned {
		util.ReturnConflictsTotal.Inc()
		return nil, fmt.Errorf("invoice %s already returned: %w", req.InvoiceNumber, models.ErrConflict)
	}

	if req.ReturnMethod == models.ReturnMethodCash {
		if err := s.cashRegister.RequireOpen(ctx); err != nil {
			util.ReturnsFailedTotal.WithLabelValues("register_closed").Inc()
			return nil, err
		}
	}

	invoiceItems, err := s.store.GetInvoiceItems(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}

	returnItems, totalAmount, totalGST, err := computeReturnItems(invoiceItems, req.Items)
	if err != nil {
		util.ReturnsFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	ret := &models.ReturnRecord{
		ReturnNumber:      newReturnNumber(),
		InvoiceNumber:     req.InvoiceNumber,
		ReturnReason:      req.ReturnReason,
		ReturnMethod:      req.ReturnMethod,
		TotalReturnAmount: totalAmount,
		TotalReturnGST:    totalGST,
		Notes:             req.Notes,
	}
	if req.ReturnMethod == models.ReturnMethodCash {
		ret.CashRefund = totalAmount
	} else {
		ret.WalletCredit = totalAmount
	}

	if err := s.store.CreateReturnWithItems(ctx, ret, returnItems); err != nil {
		if errors.Is(err, models.ErrConflict) {
			util.ReturnConflictsTotal.Inc()
		} else {
			util.ReturnsFailedTotal.WithLabelValues("db_error").Inc()
		}
		return nil, err
	}

	util.ReturnsTotal.Inc()
	s.logger.Info("Return processed",
		zap.String("return_number", ret.ReturnNumber),
		zap.String("invoice_number", req.InvoiceNumber),
		zap.String("total_return_amount", totalAmount.String()))

	s.restockReturnedItems(ctx, invoiceItems, returnItems)

	if req.ReturnMethod == models.ReturnMethodCash {
		if err := s.cashRegister.RecordReturn(ctx, totalAmount); err != nil {
			s.logger.Error("Failed to record cash refund on drawer",
				zap.String("return_number", ret.ReturnNumber),
				zap.Error(err))
		}
	}

	event := &models.ReturnCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeReturnCreated,
			Timestamp: time.Now(),
		},
		ReturnNumber:      ret.ReturnNumber,
		InvoiceNumber:     req.InvoiceNumber,
		ReturnMethod:      req.ReturnMethod,
		TotalReturnAmount: totalAmount,
	}
	if err := s.eventPublisher.PublishReturnCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish ReturnCreated event", zap.Error(err))
	}

	return &ReturnResponse{
		ReturnNumber:      ret.ReturnNumber,
		TotalReturnAmount: totalAmount,
		Message:           "Return processed successfully",
	}, nil
}

// restockReturnedItems puts returned units back into the catalog
func (s *ReturnService) restockReturnedItems(ctx context.Context, invoiceItems []models.InvoiceItem, returnItems []models.ReturnItem) {
	barcodes := make(map[int64]string, len(invoiceItems))
	for _, item := range invoiceItems {
		barcodes[item.ID] = item.Barcode
	}

	for _, item := range returnItems {
		if err := s.inventoryClient.Restock(ctx, barcodes[item.InvoiceItemID], item.ReturnQuantity); err != nil {
			s.logger.Error("Failed to restock returned item",
				zap.String("barcode", barcodes[item.InvoiceItemID]),
				zap.Int("quantity", item.ReturnQuantity),
				zap.Error(err))
		}
	}
}

// GetReturn retrieves a return record with its items by number
func (s *ReturnService) GetReturn(ctx context.Context, returnNumber string) (*models.ReturnRecord, []models.ReturnItem, error) {
	ret, err := s.store.GetReturnByNumber(ctx, returnNumber)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.store.GetReturnItems(ctx, ret.ID)
	if err != nil {
		return nil, nil, err
	}

	return ret, items, nil
}
