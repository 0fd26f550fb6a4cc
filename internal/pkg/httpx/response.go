// Package httpx holds the JSON envelope and request helpers shared by gin
// handlers.
package httpx

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fekuna/omnipos-marketplace-service/internal/auth"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/apperror"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/postgres"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

type Page struct {
	Items    any `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

func OK(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data})
}

// Error writes the failure envelope using the error's kind for the status.
// Ids Postgres cannot parse are reported as bad input instead of a 500.
func Error(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	if kind == apperror.KindInternal && postgres.IsInvalidText(err) {
		err = apperror.Wrap(apperror.KindInvalidInput, "malformed identifier", err)
		kind = apperror.KindInvalidInput
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(kind.HTTPStatus(), envelope{
		Success: false,
		Error:   apperror.PublicMessage(err),
		Code:    kind.String(),
	})
}

// Bind decodes the JSON body, turning decode failures into invalid input.
func Bind(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return apperror.Wrap(apperror.KindInvalidInput, "invalid request body", err)
	}
	return nil
}

// Paging reads page/page_size with defaults and an upper bound.
func Paging(c *gin.Context) (page, pageSize int) {
	page = intQuery(c, "page", 1, 1, 1<<20)
	pageSize = intQuery(c, "page_size", 20, 1, 200)
	return page, pageSize
}

func intQuery(c *gin.Context, key string, def, min, max int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// OptionalString returns nil for empty values.
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// VendorID returns the authenticated vendor, writing a 401 when absent.
func VendorID(c *gin.Context) (string, bool) {
	id := auth.GetVendorID(c.Request.Context())
	if id == "" {
		Error(c, apperror.New(apperror.KindUnauthorized, "missing vendor"))
		return "", false
	}
	return id, true
}
