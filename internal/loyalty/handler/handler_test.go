package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/fekuna/omnipos-marketplace-service/internal/auth"
	"github.com/fekuna/omnipos-marketplace-service/internal/loyalty"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/apperror"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/logger"
)

type fakeUseCase struct {
	LookupMemberFunc func(ctx context.Context, vendorID, phone string) (*loyalty.Member, error)
	TriggerFunc      func(ctx context.Context, vendorID, contactID string) error
}

func (f *fakeUseCase) LookupMember(ctx context.Context, vendorID, phone string) (*loyalty.Member, error) {
	return f.LookupMemberFunc(ctx, vendorID, phone)
}

func (f *fakeUseCase) TriggerWalletPass(ctx context.Context, vendorID, contactID string) error {
	return f.TriggerFunc(ctx, vendorID, contactID)
}

func router(uc loyalty.UseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), auth.Principal{VendorID: "vendor-1", Role: auth.RoleCashier}))
		c.Next()
	})
	NewLoyaltyHandler(uc, logger.NewNop()).RegisterRoutes(r.Group("/api/vendor"))
	return r
}

func TestLookupMember(t *testing.T) {
	uc := &fakeUseCase{LookupMemberFunc: func(ctx context.Context, vendorID, phone string) (*loyalty.Member, error) {
		if vendorID != "vendor-1" || phone != "5551234567" {
			t.Errorf("vendor=%s phone=%s", vendorID, phone)
		}
		return &loyalty.Member{ContactID: "c-1"}, nil
	}}
	req := httptest.NewRequest(http.MethodGet, "/api/vendor/loyalty/members?phone=5551234567", nil)
	w := httptest.NewRecorder()
	router(uc).ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestWalletPassNotConfigured(t *testing.T) {
	uc := &fakeUseCase{TriggerFunc: func(ctx context.Context, vendorID, contactID string) error {
		return apperror.Wrap(apperror.KindInvalidInput, "alpine iq is not configured for this vendor", loyalty.ErrNotConfigured)
	}}
	req := httptest.NewRequest(http.MethodPost, "/api/vendor/loyalty/members/c-1/wallet-pass", nil)
	w := httptest.NewRecorder()
	router(uc).ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}
