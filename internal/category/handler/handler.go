package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fekuna/omnipos-marketplace-service/internal/category"
	"github.com/fekuna/omnipos-marketplace-service/internal/category/dto"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/httpx"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/logger"
)

type CategoryHandler struct {
	uc     category.UseCase
	logger logger.ZapLogger
}

func NewCategoryHandler(uc category.UseCase, log logger.ZapLogger) *CategoryHandler {
	return &CategoryHandler{uc: uc, logger: log}
}

func (h *CategoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/categories", h.ListCategories)
	rg.POST("/categories", h.CreateCategory)
	rg.GET("/categories/:id", h.GetCategory)
	rg.PUT("/categories/:id", h.UpdateCategory)
	rg.DELETE("/categories/:id", h.DeleteCategory)
}

type categoryRequest struct {
	ParentID    string `json:"parent_id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	SortOrder   int    `json:"sort_order"`
	IsActive    *bool  `json:"is_active"`
}

func (r *categoryRequest) toInput(vendorID string) dto.CreateCategoryInput {
	return dto.CreateCategoryInput{
		VendorID:    vendorID,
		ParentID:    r.ParentID,
		Name:        r.Name,
		Slug:        r.Slug,
		Description: r.Description,
		ImageURL:    r.ImageURL,
		SortOrder:   r.SortOrder,
	}
}

// Filters reads root_only, parent_id, active and include_children.
func Filters(c *gin.Context, vendorID string) *dto.CategoryFilters {
	page, pageSize := httpx.Paging(c)
	f := &dto.CategoryFilters{VendorID: vendorID, Page: page, PageSize: pageSize}

	if root, _ := strconv.ParseBool(c.Query("root_only")); root {
		empty := ""
		f.ParentID = &empty
	} else if pid := c.Query("parent_id"); pid != "" {
		f.ParentID = &pid
	}
	if raw := c.Query("active"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			f.IsActive = &v
		}
	}
	f.IncludeChildren, _ = strconv.ParseBool(c.Query("include_children"))
	return f
}

func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	var req categoryRequest
	if err := httpx.Bind(c, &req); err != nil {
		httpx.Error(c, err)
		return
	}
	in := req.toInput(vid)
	cat, err := h.uc.CreateCategory(c.Request.Context(), &in)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusCreated, cat)
}

func (h *CategoryHandler) GetCategory(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	cat, err := h.uc.GetCategory(c.Request.Context(), vid, c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, cat)
}

func (h *CategoryHandler) ListCategories(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	f := Filters(c, vid)
	items, total, err := h.uc.ListCategories(c.Request.Context(), f)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, httpx.Page{Items: items, Total: total, Page: f.Page, PageSize: f.PageSize})
}

func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	var req categoryRequest
	if err := httpx.Bind(c, &req); err != nil {
		httpx.Error(c, err)
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	cat, err := h.uc.UpdateCategory(c.Request.Context(), &dto.UpdateCategoryInput{
		ID:                  c.Param("id"),
		CreateCategoryInput: req.toInput(vid),
		IsActive:            active,
	})
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, cat)
}

func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	if err := h.uc.DeleteCategory(c.Request.Context(), vid, c.Param("id")); err != nil {
		httpx.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
