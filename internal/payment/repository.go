package payment

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fekuna/omnipos-marketplace-service/internal/model"
)

type Repository interface {
	// Processors
	FindActiveProcessor(ctx context.Context, vendorID string, locationID *string) (*model.PaymentProcessor, error)
	FindProcessorByID(ctx context.Context, vendorID, id string) (*model.PaymentProcessor, error)
	ListProcessors(ctx context.Context, vendorID string) ([]model.PaymentProcessor, error)
	UpsertProcessor(ctx context.Context, p *model.PaymentProcessor) error
	DeactivateProcessor(ctx context.Context, vendorID, id string) error

	// Transactions
	CreateTransaction(ctx context.Context, t *model.PaymentTransaction) error
	FindSaleByReference(ctx context.Context, vendorID, referenceID string) (*model.PaymentTransaction, error)
	SumApprovedRefunds(ctx context.Context, vendorID, saleID string) (decimal.Decimal, error)
	HasApprovedVoid(ctx context.Context, vendorID, saleID string) (bool, error)
}
