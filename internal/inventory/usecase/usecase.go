package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fekuna/omnipos-marketplace-service/internal/inventory"
	"github.com/fekuna/omnipos-marketplace-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-marketplace-service/internal/model"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/apperror"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/cache"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/logger"
)

const (
	lockTTL      = 5 * time.Second
	lockAttempts = 3
	lockBackoff  = 100 * time.Millisecond

	referencePurchase = "purchase"
	referenceSale     = "sale"
	referenceRefund   = "refund"
)

type inventoryUseCase struct {
	repo   inventory.Repository
	cache  cache.Cache
	logger logger.ZapLogger
	now    func() time.Time
}

// NewInventoryUseCase serializes adjustments through cache locks when c is
// non-nil; row locks in Postgres still apply either way.
func NewInventoryUseCase(repo inventory.Repository, c cache.Cache, log logger.ZapLogger) inventory.UseCase {
	return &inventoryUseCase{
		repo:   repo,
		cache:  c,
		logger: log,
		now:    time.Now,
	}
}

func (uc *inventoryUseCase) GetProductInventory(ctx context.Context, vendorID, productID string, locationID *string) (*model.Inventory, error) {
	inv, err := uc.repo.GetByProduct(ctx, vendorID, productID, locationID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return &model.Inventory{VendorID: vendorID, LocationID: locationID, ProductID: productID}, nil
	}
	return inv, nil
}

func (uc *inventoryUseCase) ListInventory(ctx context.Context, filters *dto.InventoryFilters) ([]model.Inventory, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

func (uc *inventoryUseCase) ListLowStock(ctx context.Context, vendorID string, locationID *string, page, pageSize int) ([]model.Inventory, int, error) {
	return uc.repo.FindAll(ctx, &dto.InventoryFilters{
		VendorID:   vendorID,
		LocationID: locationID,
		LowStock:   true,
		Page:       page,
		PageSize:   pageSize,
	})
}

func (uc *inventoryUseCase) AdjustInventory(ctx context.Context, input *dto.AdjustInventoryInput) (*model.Inventory, error) {
	if input.ProductID == "" {
		return nil, apperror.InvalidInput("product_id is required")
	}
	if input.QuantityChange == 0 || !finite(input.QuantityChange) {
		return nil, apperror.InvalidInput("quantity_change must be a non-zero number")
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, apperror.InvalidInput("reason is required")
	}

	lockKey := fmt.Sprintf("lock:inventory:%s:%s", input.VendorID, input.ProductID)
	if input.LocationID != nil {
		lockKey += ":" + *input.LocationID
	}
	release, err := uc.lock(ctx, lockKey)
	if err != nil {
		return nil, err
	}
	defer release()

	items, err := uc.repo.ApplyBatch(ctx, &inventory.Batch{
		VendorID:      input.VendorID,
		LocationID:    input.LocationID,
		MovementType:  model.MovementAdjustment,
		ReferenceType: "manual",
		Notes:         input.Reason,
		CreatedBy:     input.UserID,
		Changes:       []inventory.StockChange{{ProductID: input.ProductID, Delta: input.QuantityChange}},
		At:            uc.now(),
	})
	if err != nil {
		return nil, mapError(err)
	}

	uc.logger.Info("inventory adjusted",
		zap.String("vendor_id", input.VendorID),
		zap.String("product_id", input.ProductID),
		zap.Float64("change", input.QuantityChange),
		zap.Float64("quantity", items[0].Quantity),
	)
	return &items[0], nil
}

func (uc *inventoryUseCase) ReceiveInventory(ctx context.Context, input *dto.ReceiveInventoryInput) ([]model.Inventory, error) {
	if strings.TrimSpace(input.ReferenceID) == "" {
		return nil, apperror.InvalidInput("reference_id is required")
	}
	changes, err := toChanges(input.Items, 1)
	if err != nil {
		return nil, err
	}

	items, err := uc.repo.ApplyBatch(ctx, &inventory.Batch{
		VendorID:      input.VendorID,
		LocationID:    input.LocationID,
		MovementType:  model.MovementReceive,
		ReferenceType: referencePurchase,
		ReferenceID:   input.ReferenceID,
		Notes:         input.Notes,
		CreatedBy:     input.UserID,
		Changes:       changes,
		At:            uc.now(),
	})
	if err != nil {
		return nil, mapError(err)
	}
	uc.logger.Info("inventory received",
		zap.String("vendor_id", input.VendorID),
		zap.String("reference_id", input.ReferenceID),
		zap.Int("items", len(changes)),
	)
	return items, nil
}

func (uc *inventoryUseCase) SetReorderPoint(ctx context.Context, input *dto.ReorderPointInput) (*model.Inventory, error) {
	if input.ProductID == "" {
		return nil, apperror.InvalidInput("product_id is required")
	}
	if input.ReorderPoint < 0 || !finite(input.ReorderPoint) {
		return nil, apperror.InvalidInput("reorder_point must not be negative")
	}
	inv, err := uc.repo.SetReorderPoint(ctx, input.VendorID, input.ProductID, input.LocationID, input.ReorderPoint, uc.now())
	if err != nil {
		return nil, mapError(err)
	}
	return inv, nil
}

func (uc *inventoryUseCase) ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.InventoryMovement, int, error) {
	return uc.repo.ListMovements(ctx, filters)
}

func (uc *inventoryUseCase) DeductForSale(ctx context.Context, input *dto.StockMovementInput) error {
	return uc.applyOnce(ctx, input, model.MovementSale, referenceSale, input.OrderID, -1)
}

func (uc *inventoryUseCase) RestockForReturn(ctx context.Context, input *dto.StockMovementInput) error {
	ref := input.ReferenceID
	if ref == "" {
		ref = input.OrderID
	}
	return uc.applyOnce(ctx, input, model.MovementReturn, referenceRefund, ref, 1)
}

// applyOnce skips references that already produced movements, which makes
// redelivered events harmless.
func (uc *inventoryUseCase) applyOnce(ctx context.Context, input *dto.StockMovementInput, movement, refType, refID string, sign float64) error {
	if refID == "" {
		return apperror.InvalidInput("order reference is required")
	}
	if len(input.Items) == 0 {
		return nil
	}
	done, err := uc.repo.HasMovement(ctx, input.VendorID, refType, refID)
	if err != nil {
		return err
	}
	if done {
		uc.logger.Info("stock movement already applied", zap.String("reference_type", refType), zap.String("reference_id", refID))
		return nil
	}

	changes, err := toChanges(input.Items, sign)
	if err != nil {
		return err
	}
	_, err = uc.repo.ApplyBatch(ctx, &inventory.Batch{
		VendorID:      input.VendorID,
		LocationID:    input.LocationID,
		MovementType:  movement,
		ReferenceType: refType,
		ReferenceID:   refID,
		Notes:         "order " + input.OrderID,
		CreatedBy:     "system",
		Changes:       changes,
		At:            uc.now(),
	})
	return mapError(err)
}

// lock takes the per-stock cache lock, retrying briefly before reporting the
// item as busy.
func (uc *inventoryUseCase) lock(ctx context.Context, key string) (func(), error) {
	if uc.cache == nil {
		return func() {}, nil
	}
	token := uuid.NewString()
	for i := 0; i < lockAttempts; i++ {
		ok, err := uc.cache.AcquireLock(ctx, key, token, lockTTL)
		if err != nil {
			uc.logger.Error("failed to acquire inventory lock", zap.String("key", key), zap.Error(err))
		}
		if ok {
			return func() {
				if err := uc.cache.ReleaseLock(context.WithoutCancel(ctx), key, token); err != nil {
					uc.logger.Warn("failed to release inventory lock", zap.String("key", key), zap.Error(err))
				}
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockBackoff):
		}
	}
	return nil, apperror.New(apperror.KindUnavailable, "inventory is busy, try again")
}

func toChanges(items []dto.ReceiveItem, sign float64) ([]inventory.StockChange, error) {
	if len(items) == 0 {
		return nil, apperror.InvalidInput("at least one item is required")
	}
	changes := make([]inventory.StockChange, 0, len(items))
	for i, it := range items {
		if it.ProductID == "" {
			return nil, apperror.InvalidInput("items[%d].product_id is required", i)
		}
		if it.Quantity <= 0 || !finite(it.Quantity) {
			return nil, apperror.InvalidInput("items[%d].quantity must be positive", i)
		}
		changes = append(changes, inventory.StockChange{ProductID: it.ProductID, Delta: sign * it.Quantity})
	}
	return changes, nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, inventory.ErrInsufficientStock) {
		return apperror.Wrap(apperror.KindInvalidInput, inventory.ErrInsufficientStock.Error(), err)
	}
	if errors.Is(err, inventory.ErrUnknownProduct) {
		return apperror.Wrap(apperror.KindInvalidInput, err.Error(), err)
	}
	return err
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
