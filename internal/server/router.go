// Package server assembles the HTTP and gRPC servers.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fekuna/omnipos-marketplace-service/internal/auth"
	categoryhandler "github.com/fekuna/omnipos-marketplace-service/internal/category/handler"
	inventoryhandler "github.com/fekuna/omnipos-marketplace-service/internal/inventory/handler"
	loyaltyhandler "github.com/fekuna/omnipos-marketplace-service/internal/loyalty/handler"
	orderhandler "github.com/fekuna/omnipos-marketplace-service/internal/order/handler"
	paymenthandler "github.com/fekuna/omnipos-marketplace-service/internal/payment/handler"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/logger"
	pricinghandler "github.com/fekuna/omnipos-marketplace-service/internal/pricing/handler"
	producthandler "github.com/fekuna/omnipos-marketplace-service/internal/product/handler"
	storefronthandler "github.com/fekuna/omnipos-marketplace-service/internal/storefront/handler"
	vendorhandler "github.com/fekuna/omnipos-marketplace-service/internal/tenant/handler"
	woohandler "github.com/fekuna/omnipos-marketplace-service/internal/woocommerce/handler"
)

type Handlers struct {
	Vendor      *vendorhandler.VendorHandler
	Category    *categoryhandler.CategoryHandler
	Product     *producthandler.ProductHandler
	Pricing     *pricinghandler.PricingHandler
	Inventory   *inventoryhandler.InventoryHandler
	Payment     *paymenthandler.PaymentHandler
	Order       *orderhandler.OrderHandler
	Loyalty     *loyaltyhandler.LoyaltyHandler
	WooCommerce *woohandler.WooCommerceHandler
	Storefront  *storefronthandler.StorefrontHandler
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

type RouterConfig struct {
	Development bool
	Tokens      *auth.TokenManager
	Logger      logger.ZapLogger
	Health      map[string]HealthCheck
}

func NewRouter(cfg RouterConfig, h Handlers) *gin.Engine {
	if !cfg.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(RequestID(), AccessLog(cfg.Logger), Recovery(cfg.Logger))

	r.GET("/healthz", healthz(cfg.Health))

	api := r.Group("/api")
	h.Storefront.RegisterRoutes(api)

	staff := []string{auth.RoleVendor, auth.RoleCashier, auth.RoleAdmin}
	owners := []string{auth.RoleVendor, auth.RoleAdmin}

	vendorAPI := api.Group("/vendor", Authenticate(cfg.Tokens), RequireRole(staff...))
	h.Category.RegisterRoutes(vendorAPI)
	h.Product.RegisterRoutes(vendorAPI)
	h.Pricing.RegisterRoutes(vendorAPI)
	h.Inventory.RegisterRoutes(vendorAPI)
	h.Loyalty.RegisterRoutes(vendorAPI)

	manage := vendorAPI.Group("", RequireRole(owners...))
	h.Vendor.RegisterRoutes(manage)
	h.Payment.RegisterProcessorRoutes(manage)
	h.WooCommerce.RegisterRoutes(manage)

	pos := api.Group("/pos", Authenticate(cfg.Tokens), RequireRole(staff...))
	h.Order.RegisterRoutes(pos)
	h.Payment.RegisterPOSRoutes(pos)

	admin := api.Group("/admin", Authenticate(cfg.Tokens), RequireRole(auth.RoleAdmin))
	h.Vendor.RegisterAdminRoutes(admin)

	return r
}

func healthz(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "checks": results})
	}
}
