package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/fekuna/omnipos-marketplace-service/internal/auth"
	"github.com/fekuna/omnipos-marketplace-service/internal/inventory"
	"github.com/fekuna/omnipos-marketplace-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-marketplace-service/internal/model"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/apperror"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/logger"
)

type fakeUseCase struct {
	inventory.UseCase
	AdjustInventoryFunc  func(ctx context.Context, input *dto.AdjustInventoryInput) (*model.Inventory, error)
	ReceiveInventoryFunc func(ctx context.Context, input *dto.ReceiveInventoryInput) ([]model.Inventory, error)
	ListMovementsFunc    func(ctx context.Context, filters *dto.MovementFilters) ([]model.InventoryMovement, int, error)
	GetFunc              func(ctx context.Context, vendorID, productID string, locationID *string) (*model.Inventory, error)
}

func (f *fakeUseCase) AdjustInventory(ctx context.Context, input *dto.AdjustInventoryInput) (*model.Inventory, error) {
	return f.AdjustInventoryFunc(ctx, input)
}

func (f *fakeUseCase) ReceiveInventory(ctx context.Context, input *dto.ReceiveInventoryInput) ([]model.Inventory, error) {
	return f.ReceiveInventoryFunc(ctx, input)
}

func (f *fakeUseCase) ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.InventoryMovement, int, error) {
	return f.ListMovementsFunc(ctx, filters)
}

func (f *fakeUseCase) GetProductInventory(ctx context.Context, vendorID, productID string, locationID *string) (*model.Inventory, error) {
	return f.GetFunc(ctx, vendorID, productID, locationID)
}

func router(uc inventory.UseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(),
			auth.Principal{VendorID: "vendor-1", UserID: "user-7", Role: auth.RoleVendor}))
		c.Next()
	})
	NewInventoryHandler(uc, logger.NewNop()).RegisterRoutes(r.Group("/api/vendor"))
	return r
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAdjustInventory(t *testing.T) {
	var got *dto.AdjustInventoryInput
	uc := &fakeUseCase{AdjustInventoryFunc: func(ctx context.Context, in *dto.AdjustInventoryInput) (*model.Inventory, error) {
		got = in
		return &model.Inventory{ProductID: in.ProductID, Quantity: 4}, nil
	}}

	w := serve(router(uc), http.MethodPost, "/api/vendor/inventory/adjust",
		`{"product_id":"p-1","quantity_change":-2,"reason":"damaged"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if got.VendorID != "vendor-1" || got.UserID != "user-7" || got.LocationID != nil || got.QuantityChange != -2 {
		t.Fatalf("input = %+v", got)
	}
}

func TestAdjustInsufficientStock(t *testing.T) {
	uc := &fakeUseCase{AdjustInventoryFunc: func(ctx context.Context, in *dto.AdjustInventoryInput) (*model.Inventory, error) {
		return nil, apperror.InvalidInput("insufficient inventory")
	}}
	w := serve(router(uc), http.MethodPost, "/api/vendor/inventory/adjust", `{"product_id":"p-1","quantity_change":-50}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestReceiveInventory(t *testing.T) {
	var got *dto.ReceiveInventoryInput
	uc := &fakeUseCase{ReceiveInventoryFunc: func(ctx context.Context, in *dto.ReceiveInventoryInput) ([]model.Inventory, error) {
		got = in
		return []model.Inventory{}, nil
	}}
	w := serve(router(uc), http.MethodPost, "/api/vendor/inventory/receive",
		`{"location_id":"loc-1","reference_id":"PO-9","items":[{"product_id":"p-1","quantity":10},{"product_id":"p-2","quantity":3.5}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if *got.LocationID != "loc-1" || got.ReferenceID != "PO-9" || len(got.Items) != 2 || got.Items[1].Quantity != 3.5 {
		t.Fatalf("input = %+v", got)
	}
}

func TestProductInventoryRoute(t *testing.T) {
	uc := &fakeUseCase{GetFunc: func(ctx context.Context, vendorID, productID string, locationID *string) (*model.Inventory, error) {
		if productID != "p-9" || locationID == nil || *locationID != "loc-2" {
			t.Errorf("got %s %v", productID, locationID)
		}
		return nil, apperror.NotFound("inventory not found")
	}}
	w := serve(router(uc), http.MethodGet, "/api/vendor/inventory/products/p-9?location_id=loc-2", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestListMovementsDateParsing(t *testing.T) {
	var got *dto.MovementFilters
	uc := &fakeUseCase{ListMovementsFunc: func(ctx context.Context, f *dto.MovementFilters) ([]model.InventoryMovement, int, error) {
		got = f
		return nil, 0, nil
	}}

	w := serve(router(uc), http.MethodGet, "/api/vendor/inventory/movements?start_date=2024-05-01T00:00:00Z&movement_type=sale", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got.StartDate == nil || got.EndDate != nil || got.MovementType != "sale" {
		t.Fatalf("filters = %+v", got)
	}

	w = serve(router(uc), http.MethodGet, "/api/vendor/inventory/movements?end_date=yesterday", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}
