package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/fekuna/omnipos-marketplace-service/internal/auth"
	"github.com/fekuna/omnipos-marketplace-service/internal/model"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-marketplace-service/internal/pricing"
	"github.com/fekuna/omnipos-marketplace-service/internal/pricing/dto"
)

type fakeUseCase struct {
	pricing.UseCase
	CreateBlueprintFunc func(ctx context.Context, input *dto.BlueprintInput) (*model.PricingBlueprint, error)
	QuoteFunc           func(ctx context.Context, vendorID, productID string, quantity float64) (*pricing.Quote, error)
}

func (f *fakeUseCase) CreateBlueprint(ctx context.Context, input *dto.BlueprintInput) (*model.PricingBlueprint, error) {
	return f.CreateBlueprintFunc(ctx, input)
}

func (f *fakeUseCase) Quote(ctx context.Context, vendorID, productID string, quantity float64) (*pricing.Quote, error) {
	return f.QuoteFunc(ctx, vendorID, productID, quantity)
}

func router(uc pricing.UseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), auth.Principal{VendorID: "vendor-1", Role: auth.RoleVendor}))
		c.Next()
	})
	NewPricingHandler(uc, logger.NewNop()).RegisterRoutes(r.Group("/api/vendor"))
	return r
}

func TestCreateBlueprint(t *testing.T) {
	var got *dto.BlueprintInput
	uc := &fakeUseCase{CreateBlueprintFunc: func(ctx context.Context, in *dto.BlueprintInput) (*model.PricingBlueprint, error) {
		got = in
		return &model.PricingBlueprint{VendorID: in.VendorID, Name: in.Name}, nil
	}}
	body := `{"name":"Flower tiers","price_breaks":[{"label":"1/8","qty":3.5,"unit":"g","price":"30"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/vendor/pricing/blueprints", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	router(uc).ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if got.VendorID != "vendor-1" || len(got.PriceBreaks) != 1 || !got.PriceBreaks[0].Price.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("input = %+v", got)
	}
}

func TestQuote(t *testing.T) {
	uc := &fakeUseCase{QuoteFunc: func(ctx context.Context, vendorID, productID string, qty float64) (*pricing.Quote, error) {
		return &pricing.Quote{ProductID: productID, Quantity: qty, UnitPrice: decimal.NewFromInt(10), LineTotal: decimal.NewFromInt(35)}, nil
	}}
	req := httptest.NewRequest(http.MethodGet, "/api/vendor/pricing/quote?product_id=p-1&quantity=3.5", nil)
	w := httptest.NewRecorder()
	router(uc).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Data pricing.Quote `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Data.Quantity != 3.5 || body.Data.LineTotal.String() != "35" {
		t.Fatalf("quote = %+v", body.Data)
	}
}

func TestQuoteRejectsBadQuantity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/vendor/pricing/quote?product_id=p-1&quantity=lots", nil)
	w := httptest.NewRecorder()
	router(&fakeUseCase{}).ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}
