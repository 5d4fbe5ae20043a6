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

const registerLockTTL = 10 * time.Second

// CashRegisterService tracks the physical cash drawer across daily open/close
// cycles. Only CASH flows touch it; card and UPI settle outside the drawer.
type CashRegisterService struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewCashRegisterService creates a new cash register service
func NewCashRegisterService(
	store *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
) *CashRegisterService {
	return &CashRegisterService{
		store:          store,
		redis:          redis,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// RegisterStatus is the drawer snapshot returned by Status.
type RegisterStatus struct {
	Register *models.CashRegisterDay `json:"register"`
	NetCash  decimal.Decimal         `json:"net_cash"`
	Expenses []models.Expense        `json:"expenses"`
}

func today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Open starts the register day with a counted opening float. At most one
// register row may exist per date; the Redis lock narrows the race window and
// the unique constraint settles it.
func (s *CashRegisterService) Open(ctx context.Context, openingBalance decimal.Decimal, notes string) (*models.CashRegisterDay, error) {
	ctx, span := util.StartSpan(ctx, "CashRegisterService.Open")
	defer span.End()

	if openingBalance.IsNegative() {
		return nil, fmt.Errorf("negative opening balance: %w", models.ErrValidation)
	}

	date := today()
	lockKey := fmt.Sprintf("register-open:%s", date.Format("2006-01-02"))

	acquired, err := s.redis.AcquireLock(ctx, lockKey, registerLockTTL)
	if err != nil {
		s.logger.Warn("Register open lock unavailable, relying on unique constraint",
			zap.Error(err))
	} else if !acquired {
		return nil, fmt.Errorf("register for %s is being opened: %w", date.Format("2006-01-02"), models.ErrConflict)
	} else {
		defer func() {
			if err := s.redis.ReleaseLock(ctx, lockKey); err != nil {
				s.logger.Warn("Failed to release register open lock", zap.Error(err))
			}
		}()
	}

	day := &models.CashRegisterDay{
		Date:           date,
		OpeningBalance: openingBalance,
		Notes:          notes,
	}
	if err := s.store.OpenRegister(ctx, day); err != nil {
		return nil, err
	}

	util.RegisterOpensTotal.Inc()
	s.logger.Info("Cash register opened",
		zap.String("date", date.Format("2006-01-02")),
		zap.String("opening_balance", openingBalance.String()))

	event := &models.RegisterOpenedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeRegisterOpened,
			Timestamp: time.Now(),
		},
		Date:           date.Format("2006-01-02"),
		OpeningBalance: openingBalance,
	}
	if err := s.eventPublisher.PublishRegisterOpened(ctx, event); err != nil {
		s.logger.Error("Failed to publish RegisterOpened event", zap.Error(err))
	}

	return day, nil
}

// RequireOpen verifies an OPEN register exists for today. Cash checkouts and
// cash refunds call this before committing anything.
func (s *CashRegisterService) RequireOpen(ctx context.Context) error {
	day, err := s.store.GetRegisterByDate(ctx, today())
	if err != nil {
		return err
	}
	if day.State != models.RegisterStateOpen {
		return fmt.Errorf("register for %s is closed: %w", day.Date.Format("2006-01-02"), models.ErrNotFound)
	}
	return nil
}

// RecordSale accumulates a cash sale into today's drawer
func (s *CashRegisterService) RecordSale(ctx context.Context, amount decimal.Decimal) error {
	return s.store.AddToSales(ctx, today(), amount)
}

// RecordReturn accumulates a cash refund into today's drawer
func (s *CashRegisterService) RecordReturn(ctx context.Context, amount decimal.Decimal) error {
	return s.store.AddToReturns(ctx, today(), amount)
}

// AddExpense records a cash outflow against the open register day
func (s *CashRegisterService) AddExpense(ctx context.Context, category, description string, amount decimal.Decimal) (*models.Expense, error) {
	ctx, span := util.StartSpan(ctx, "CashRegisterService.AddExpense")
	defer span.End()

	if !amount.IsPositive() {
		return nil, fmt.Errorf("expense amount must be positive: %w", models.ErrValidation)
	}

	expense := &models.Expense{
		Category:    category,
		Description: description,
		Amount:      amount,
	}
	if err := s.store.AddExpense(ctx, today(), expense); err != nil {
		return nil, err
	}

	util.RegisterExpensesTotal.Inc()
	s.logger.Info("Register expense recorded",
		zap.String("category", category),
		zap.String("amount", amount.String()))

	return expense, nil
}

// Close settles today's drawer: closing = opening + sales - returns - expenses.
// The CLOSED state is terminal for the date.
func (s *CashRegisterService) Close(ctx context.Context) (*models.CashRegisterDay, error) {
	ctx, span := util.StartSpan(ctx, "CashRegisterService.Close")
	defer span.End()

	day, err := s.store.CloseRegister(ctx, today())
	if err != nil {
		return nil, err
	}

	util.RegisterClosesTotal.Inc()
	s.logger.Info("Cash register closed",
		zap.String("date", day.Date.Format("2006-01-02")),
		zap.String("closing_balance", day.ClosingBalance.String()))

	event := &models.RegisterClosedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeRegisterClosed,
			Timestamp: time.Now(),
		},
		Date:           day.Date.Format("2006-01-02"),
		ClosingBalance: day.ClosingBalance,
	}
	if err := s.eventPublisher.PublishRegisterClosed(ctx, event); err != nil {
		s.logger.Error("Failed to publish RegisterClosed event", zap.Error(err))
	}

	return day, nil
}

// Status snapshots today's drawer with its running net cash and expense list.
// The net cash formula is identical before and after close.
func (s *CashRegisterService) Status(ctx context.Context) (*RegisterStatus, error) {
	day, err := s.store.GetRegisterByDate(ctx, today())
	if err != nil {
		return nil, err
	}

	expenses, err := s.store.GetExpenses(ctx, day.ID)
	if err != nil {
		return nil, err
	}

	return &RegisterStatus{
		Register: day,
		NetCash:  day.NetCash(),
		Expenses: expenses,
	}, nil
}

// History retrieves past register days in [from, to], newest first
func (s *CashRegisterService) History(ctx context.Context, from, to time.Time) ([]models.CashRegisterDay, error) {
	return s.store.GetRegisterHistory(ctx, from, to)
}
