package usecase

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	inventorydto "github.com/fekuna/omnipos-marketplace-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-marketplace-service/internal/model"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/apperror"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-marketplace-service/internal/woocommerce"
)

const pushWorkers = 4

type VendorReader interface {
	GetVendor(ctx context.Context, id string) (*model.Vendor, error)
}

type ProductLister interface {
	FindWithWooCommerceID(ctx context.Context, vendorID string) ([]model.Product, error)
}

type StockLister interface {
	ListInventory(ctx context.Context, filters *inventorydto.InventoryFilters) ([]model.Inventory, int, error)
}

type syncUseCase struct {
	vendors   VendorReader
	products  ProductLister
	stock     StockLister
	newClient woocommerce.ClientFactory
	logger    logger.ZapLogger
}

func NewSyncUseCase(vendors VendorReader, products ProductLister, stock StockLister, newClient woocommerce.ClientFactory, log logger.ZapLogger) woocommerce.UseCase {
	return &syncUseCase{
		vendors:   vendors,
		products:  products,
		stock:     stock,
		newClient: newClient,
		logger:    log,
	}
}

func (uc *syncUseCase) client(ctx context.Context, vendorID string) (woocommerce.Client, error) {
	v, err := uc.vendors.GetVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	c, err := uc.newClient(v)
	if err != nil {
		if errors.Is(err, woocommerce.ErrNotConfigured) {
			return nil, apperror.Wrap(apperror.KindInvalidInput, "woocommerce is not configured for this vendor", err)
		}
		return nil, err
	}
	return c, nil
}

func (uc *syncUseCase) ListRemoteProducts(ctx context.Context, vendorID string, page int) (*woocommerce.Page, error) {
	c, err := uc.client(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	p, err := c.ListProducts(ctx, page)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindUpstream, "woocommerce request failed", err)
	}
	return p, nil
}

// SyncInventory pushes the vendor's total stock (all locations) for every
// tracked product linked to a WooCommerce id. Per-product failures are
// reported, not returned.
func (uc *syncUseCase) SyncInventory(ctx context.Context, vendorID string) (*woocommerce.SyncReport, error) {
	c, err := uc.client(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	products, err := uc.products.FindWithWooCommerceID(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	rows, _, err := uc.stock.ListInventory(ctx, &inventorydto.InventoryFilters{VendorID: vendorID})
	if err != nil {
		return nil, err
	}
	totals := make(map[string]float64, len(rows))
	for _, r := range rows {
		totals[r.ProductID] += r.Quantity
	}

	jobs := make(chan model.Product)
	report := &woocommerce.SyncReport{}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for i := 0; i < pushWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				qty := int(math.Floor(totals[p.ID]))
				err := c.UpdateStock(ctx, *p.WooCommerceID, qty)

				mu.Lock()
				if err != nil {
					report.Failed++
					report.Failures = append(report.Failures, woocommerce.SyncFailure{
						ProductID:     p.ID,
						WooCommerceID: *p.WooCommerceID,
						Error:         err.Error(),
					})
				} else {
					report.Pushed++
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, p := range products {
		if !p.TrackInventory || p.WooCommerceID == nil {
			continue
		}
		select {
		case jobs <- p:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.Slice(report.Failures, func(i, j int) bool { return report.Failures[i].WooCommerceID < report.Failures[j].WooCommerceID })

	uc.logger.Info("woocommerce inventory sync finished",
		zap.String("vendor_id", vendorID),
		zap.Int("pushed", report.Pushed),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}
