package payment

import (
	"context"

	"github.com/fekuna/omnipos-marketplace-service/internal/model"
	"github.com/fekuna/omnipos-marketplace-service/internal/payment/dto"
)

type UseCase interface {
	ProcessPayment(ctx context.Context, input *dto.ProcessPaymentInput) (*Result, error)
	RefundTransaction(ctx context.Context, input *dto.RefundInput) (*Result, error)
	VoidTransaction(ctx context.Context, input *dto.VoidInput) (*Result, error)

	ListProcessors(ctx context.Context, vendorID string) ([]model.PaymentProcessor, error)
	UpsertProcessor(ctx context.Context, input *dto.UpsertProcessorInput) (*model.PaymentProcessor, error)
	DeactivateProcessor(ctx context.Context, vendorID, id string) error
}
