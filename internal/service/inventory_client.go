package service

import (
	"context"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/redisclient"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"go.uber.org/zap"
)

const catalogCacheTTL = 5 * time.Minute

// InventoryClient resolves barcodes against the catalog owned by the external
// inventory service. Reads go through a Redis cache; quantity changes hit the
// database and invalidate the cached record.
type InventoryClient struct {
	store  *store.Store
	redis  *redisclient.Client
	logger *zap.Logger
}

// NewInventoryClient creates a new inventory client
func NewInventoryClient(store *store.Store, redis *redisclient.Client) *InventoryClient {
	return &InventoryClient{
		store:  store,
		redis:  redis,
		logger: util.GetLogger(),
	}
}

// GetItem resolves one barcode, cache first
func (ic *InventoryClient) GetItem(ctx context.Context, barcode string) (*models.CatalogItem, error) {
	ctx, span := util.StartSpan(ctx, "InventoryClient.GetItem")
	defer span.End()

	cached, err := ic.redis.GetCachedCatalogItem(ctx, barcode)
	if err != nil {
		ic.logger.Warn("Catalog cache read failed, falling back to DB",
			zap.String("barcode", barcode),
			zap.Error(err))
	}
	if cached != nil {
		return cached, nil
	}

	item, err := ic.store.GetCatalogItemByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}

	if err := ic.redis.CacheCatalogItem(ctx, item, catalogCacheTTL); err != nil {
		ic.logger.Warn("Failed to cache catalog item",
			zap.String("barcode", barcode),
			zap.Error(err))
	}

	return item, nil
}

// Deplete subtracts sold quantity from the catalog record. Depletion is an
// idempotent side effect owned by the inventory collaborator.
func (ic *InventoryClient) Deplete(ctx context.Context, barcode string, quantity int) error {
	ctx, span := util.StartSpan(ctx, "InventoryClient.Deplete")
	defer span.End()

	if err := ic.store.DepleteCatalogItem(ctx, barcode, quantity); err != nil {
		return err
	}

	if err := ic.redis.InvalidateCatalogItem(ctx, barcode); err != nil {
		ic.logger.Warn("Failed to invalidate catalog cache",
			zap.String("barcode", barcode),
			zap.Error(err))
	}

	return nil
}

// Restock adds returned quantity back to the catalog record
func (ic *InventoryClient) Restock(ctx context.Context, barcode string, quantity int) error {
	ctx, span := util.StartSpan(ctx, "InventoryClient.Restock")
	defer span.End()

	if err := ic.store.RestockCatalogItem(ctx, barcode, quantity); err != nil {
		return err
	}

	if err := ic.redis.InvalidateCatalogItem(ctx, barcode); err != nil {
		ic.logger.Warn("Failed to invalidate catalog cache",
			zap.String("barcode", barcode),
			zap.Error(err))
	}

	return nil
}
