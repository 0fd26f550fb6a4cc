package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/httpx"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-marketplace-service/internal/woocommerce"
)

type WooCommerceHandler struct {
	uc     woocommerce.UseCase
	logger logger.ZapLogger
}

func NewWooCommerceHandler(uc woocommerce.UseCase, log logger.ZapLogger) *WooCommerceHandler {
	return &WooCommerceHandler{uc: uc, logger: log}
}

func (h *WooCommerceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/woocommerce/products", h.ListRemoteProducts)
	rg.POST("/woocommerce/sync-inventory", h.SyncInventory)
}

func (h *WooCommerceHandler) ListRemoteProducts(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	page, _ := httpx.Paging(c)
	p, err := h.uc.ListRemoteProducts(c.Request.Context(), vid, page)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, p)
}

func (h *WooCommerceHandler) SyncInventory(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	report, err := h.uc.SyncInventory(c.Request.Context(), vid)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, report)
}
