package service

import (
	"context"
	"fmt"
	"time"

	"pos-service/internal/broker"
	"pos-service/internal/models"
	"pos-service/internal/redisclient"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const loyaltyCacheTTL = 10 * time.Minute

// LoyaltyService maintains customer point balances and the append-only
// transaction ledger behind them. Every balance mutation commits together
// with its ledger entry, so the balance always equals the ledger sum. The
// database is the source of truth; Redis only provides a fast pre-check for
// redemptions.
type LoyaltyService struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
	earnDivisor    int
}

// NewLoyaltyService creates a new loyalty service
func NewLoyaltyService(
	store *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
	earnDivisor int,
) *LoyaltyService {
	return &LoyaltyService{
		store:          store,
		redis:          redis,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
		earnDivisor:    earnDivisor,
	}
}

// Earn accrues points for a completed invoice: one point per earnDivisor
// currency units of final price. A non-empty eventID ties the credit to the
// consumed InvoiceCreated event, claimed in the same transaction, so a
// redelivered event never double-credits. Returns the points credited.
func (s *LoyaltyService) Earn(ctx context.Context, phone, invoiceNumber string, finalPrice decimal.Decimal, eventID string) (int, error) {
	ctx, span := util.StartSpan(ctx, "LoyaltyService.Earn")
	defer span.End()

	points := EarnedPoints(finalPrice, s.earnDivisor)
	if points == 0 {
		// Nothing to credit, but the event is still consumed exactly once
		if eventID != "" {
			if err := s.store.MarkEventProcessed(ctx, eventID, models.EventTypeInvoiceCreated); err != nil {
				return 0, err
			}
		}
		return 0, nil
	}

	txn := &models.LoyaltyTransaction{
		CustomerPhone: phone,
		InvoiceNumber: invoiceNumber,
		Type:          models.LoyaltyTypeEarned,
		Points:        points,
		Description:   fmt.Sprintf("Earned on invoice %s", invoiceNumber),
	}
	if err := s.store.AddPoints(ctx, phone, points, txn, eventID, models.EventTypeInvoiceCreated); err != nil {
		return 0, fmt.Errorf("failed to credit points: %w", err)
	}

	if err := s.redis.InvalidateLoyaltyBalance(ctx, phone); err != nil {
		s.logger.Warn("Failed to invalidate loyalty cache",
			zap.String("phone", phone),
			zap.Error(err))
	}

	util.LoyaltyPointsEarnedTotal.Add(float64(points))
	s.logger.Info("Loyalty points earned",
		zap.String("phone", phone),
		zap.String("invoice_number", invoiceNumber),
		zap.Int("points", points))

	event := &models.PointsEarnedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePointsEarned,
			Timestamp: time.Now(),
		},
		CustomerPhone: phone,
		InvoiceNumber: invoiceNumber,
		Points:        points,
	}
	if err := s.eventPublisher.PublishPointsEarned(ctx, event); err != nil {
		s.logger.Error("Failed to publish PointsEarned event", zap.Error(err))
	}

	return points, nil
}

// Redeem debits points at one currency unit per point. The cached balance
// rejects obvious overdrafts without a database round trip; the conditional
// UPDATE plus ledger insert commit as one transaction in the store.
func (s *LoyaltyService) Redeem(ctx context.Context, phone string, points int, invoiceNumber string) error {
	ctx, span := util.StartSpan(ctx, "LoyaltyService.Redeem")
	defer span.End()

	if points <= 0 {
		return fmt.Errorf("redemption of %d points: %w", points, models.ErrValidation)
	}

	outcome, err := s.redis.TryRedeemPoints(ctx, phone, points)
	if err != nil {
		s.logger.Warn("Redis redemption pre-check failed, falling back to DB",
			zap.String("phone", phone),
			zap.Error(err))
		outcome = redisclient.RedeemUncached
	}
	if outcome == redisclient.RedeemDenied {
		util.LoyaltyRedemptionsFailedTotal.WithLabelValues("insufficient_balance").Inc()
		return fmt.Errorf("customer %s: %w", phone, models.ErrInsufficientBalance)
	}

	txn := &models.LoyaltyTransaction{
		CustomerPhone: phone,
		InvoiceNumber: invoiceNumber,
		Type:          models.LoyaltyTypeRedeemed,
		Points:        -points,
		Description:   fmt.Sprintf("Redeemed %d points", points),
	}
	if err := s.store.RedeemPoints(ctx, phone, points, txn); err != nil {
		if outcome == redisclient.RedeemOK {
			if relErr := s.redis.ReleasePoints(ctx, phone, points); relErr != nil {
				s.logger.Error("Failed to release points after DB rejection",
					zap.String("phone", phone),
					zap.Error(relErr))
			}
		}
		util.LoyaltyRedemptionsFailedTotal.WithLabelValues("db_rejected").Inc()
		return err
	}

	util.LoyaltyRedemptionsTotal.Inc()
	s.logger.Info("Loyalty points redeemed",
		zap.String("phone", phone),
		zap.Int("points", points))

	event := &models.PointsRedeemedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePointsRedeemed,
			Timestamp: time.Now(),
		},
		CustomerPhone:  phone,
		Points:         points,
		DiscountAmount: decimal.NewFromInt(int64(points)),
	}
	if err := s.eventPublisher.PublishPointsRedeemed(ctx, event); err != nil {
		s.logger.Error("Failed to publish PointsRedeemed event", zap.Error(err))
	}

	return nil
}

// Adjust applies a signed administrative correction to a balance. The balance
// may never go negative; the correction and its ledger entry commit together.
func (s *LoyaltyService) Adjust(ctx context.Context, phone string, delta int, description string) error {
	ctx, span := util.StartSpan(ctx, "LoyaltyService.Adjust")
	defer span.End()

	if delta == 0 {
		return fmt.Errorf("zero adjustment: %w", models.ErrValidation)
	}

	txn := &models.LoyaltyTransaction{
		CustomerPhone: phone,
		Type:          models.LoyaltyTypeAdjusted,
		Points:        delta,
		Description:   description,
	}
	if err := s.store.AdjustPoints(ctx, phone, delta, txn); err != nil {
		return err
	}

	if err := s.redis.InvalidateLoyaltyBalance(ctx, phone); err != nil {
		s.logger.Warn("Failed to invalidate loyalty cache",
			zap.String("phone", phone),
			zap.Error(err))
	}

	s.logger.Info("Loyalty balance adjusted",
		zap.String("phone", phone),
		zap.Int("delta", delta))

	return nil
}

// Balance retrieves the customer row, seeding the cached balance for the
// redemption fast path.
func (s *LoyaltyService) Balance(ctx context.Context, phone string) (*models.Customer, error) {
	customer, err := s.store.GetCustomerByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}

	if err := s.redis.SetLoyaltyBalance(ctx, phone, customer.LoyaltyPoints, loyaltyCacheTTL); err != nil {
		s.logger.Warn("Failed to seed loyalty cache",
			zap.String("phone", phone),
			zap.Error(err))
	}

	return customer, nil
}

// Transactions retrieves a customer's ledger, newest first
func (s *LoyaltyService) Transactions(ctx context.Context, phone string) ([]models.LoyaltyTransaction, error) {
	if _, err := s.store.GetCustomerByPhone(ctx, phone); err != nil {
		return nil, err
	}
	return s.store.GetLoyaltyTransactions(ctx, phone)
}
