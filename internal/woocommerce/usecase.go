package woocommerce

import (
	"context"
	"errors"
)

var ErrNotConfigured = errors.New("woocommerce is not configured for this vendor")

type SyncFailure struct {
	ProductID     string `json:"product_id"`
	WooCommerceID int64  `json:"woocommerce_id"`
	Error         string `json:"error"`
}

type SyncReport struct {
	Pushed   int           `json:"pushed"`
	Failed   int           `json:"failed"`
	Failures []SyncFailure `json:"failures,omitempty"`
}

type UseCase interface {
	SyncInventory(ctx context.Context, vendorID string) (*SyncReport, error)
	ListRemoteProducts(ctx context.Context, vendorID string, page int) (*Page, error)
}
