package order

import (
	"context"

	"github.com/fekuna/omnipos-marketplace-service/internal/model"
	"github.com/fekuna/omnipos-marketplace-service/internal/order/dto"
	"github.com/fekuna/omnipos-marketplace-service/internal/payment"
)

// PaymentOutcome pairs the order with the processor result. A declined card
// leaves the order unchanged.
type PaymentOutcome struct {
	Order   *model.Order    `json:"order"`
	Payment *payment.Result `json:"payment"`
}

type UseCase interface {
	CreateOrder(ctx context.Context, input *dto.CreateOrderInput) (*model.Order, error)
	GetOrder(ctx context.Context, vendorID, id string) (*model.Order, error)
	ListOrders(ctx context.Context, filters *dto.OrderFilters) ([]model.Order, int, error)
	CancelOrder(ctx context.Context, vendorID, id string) (*model.Order, error)

	PayOrder(ctx context.Context, input *dto.PayOrderInput) (*PaymentOutcome, error)
	RefundOrder(ctx context.Context, input *dto.RefundOrderInput) (*PaymentOutcome, error)
	VoidOrder(ctx context.Context, input *dto.VoidOrderInput) (*PaymentOutcome, error)
}
