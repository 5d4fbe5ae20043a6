package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pos-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

const uniqueViolation = "23505"

// wrapErr translates driver-level failures into the service error taxonomy.
// Deadline expiry becomes the retryable ErrTimeout; unique-key collisions
// become ErrConflict.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, models.ErrTimeout)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, models.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// GetCatalogItemByBarcode reads one inventory record from the catalog tables.
// The catalog is owned by an external service; this store only reads it.
func (s *Store) GetCatalogItemByBarcode(ctx context.Context, barcode string) (*models.CatalogItem, error) {
	var item models.CatalogItem
	err := s.db.GetContext(ctx, &item,
		"SELECT * FROM inventory_items WHERE barcode = $1", barcode)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("catalog item %s: %w", barcode, models.ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr("get catalog item", err)
	}
	return &item, nil
}

// DepleteCatalogItem subtracts sold quantity from the catalog record. The
// guard keeps availability non-negative; depletion is an idempotent side
// effect owned by the inventory collaborator, so a lost race is a conflict.
func (s *Store) DepleteCatalogItem(ctx context.Context, barcode string, quantity int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE inventory_items SET available = available - $1 WHERE barcode = $2 AND available >= $1",
		quantity, barcode)
	if err != nil {
		return wrapErr("deplete catalog item", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return wrapErr("deplete catalog item", err)
	}
	if rows == 0 {
		return fmt.Errorf("deplete catalog item %s: %w", barcode, models.ErrConflict)
	}
	return nil
}

// RestockCatalogItem adds returned quantity back to the catalog record.
func (s *Store) RestockCatalogItem(ctx context.Context, barcode string, quantity int) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE inventory_items SET available = available + $1 WHERE barcode = $2",
		quantity, barcode)
	return wrapErr("restock catalog item", err)
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	if err != nil {
		return false, wrapErr("check event processed", err)
	}
	return exists, nil
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return wrapErr("mark event processed", err)
}
