package usecase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fekuna/omnipos-marketplace-service/internal/model"
	"github.com/fekuna/omnipos-marketplace-service/internal/payment"
	"github.com/fekuna/omnipos-marketplace-service/internal/payment/dto"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/apperror"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/logger"
)

const defaultCurrency = "USD"

type paymentUseCase struct {
	repo     payment.Repository
	registry *payment.Registry
	logger   logger.ZapLogger
	now      func() time.Time
	newRef   func() string
}

func NewPaymentUseCase(repo payment.Repository, registry *payment.Registry, log logger.ZapLogger) payment.UseCase {
	return &paymentUseCase{
		repo:     repo,
		registry: registry,
		logger:   log,
		now:      time.Now,
		newRef:   func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
}

func (uc *paymentUseCase) ProcessPayment(ctx context.Context, input *dto.ProcessPaymentInput) (*payment.Result, error) {
	amount, err := validateAmount(input.Amount)
	if err != nil {
		return nil, err
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	if currency != defaultCurrency {
		return nil, apperror.InvalidInput("unsupported currency %q", input.Currency)
	}
	if err := validateID("order_id", input.OrderID); err != nil {
		return nil, err
	}
	if input.LocationID != nil {
		if err := validateID("location_id", *input.LocationID); err != nil {
			return nil, err
		}
	}

	rec, err := uc.repo.FindActiveProcessor(ctx, input.VendorID, input.LocationID)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "load payment processor", err)
	}
	if rec == nil {
		return nil, mapError(payment.ErrProcessorNotConfigured)
	}

	proc, err := uc.registry.New(rec)
	if err != nil {
		return nil, mapError(err)
	}

	ref := uc.newRef()
	log := uc.logger.With(
		zap.String("vendor_id", input.VendorID),
		zap.String("processor", proc.Name()),
		zap.String("reference_id", ref),
		zap.String("order_id", input.OrderID),
	)

	res, callErr := proc.Sale(ctx, payment.SaleRequest{
		ReferenceID: ref,
		Amount:      amount,
		PaymentType: input.TokenOrCardRef,
		InvoiceID:   input.OrderID,
	})

	tx := uc.transaction(input.VendorID, rec.ID, model.TransactionSale, ref, amount, currency, res, callErr)
	tx.OrderID = optional(input.OrderID)
	uc.record(ctx, log, tx)

	if callErr != nil {
		log.Error("payment sale failed", zap.Error(callErr))
		return nil, mapError(callErr)
	}
	log.Info("payment sale completed", zap.Bool("approved", res.Success))
	return res, nil
}

func (uc *paymentUseCase) RefundTransaction(ctx context.Context, input *dto.RefundInput) (*payment.Result, error) {
	sale, rec, err := uc.loadSale(ctx, input.VendorID, input.TransactionID)
	if err != nil {
		return nil, err
	}

	voided, err := uc.repo.HasApprovedVoid(ctx, input.VendorID, sale.ID)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "load voids", err)
	}
	if voided {
		return nil, apperror.Conflict("transaction %s is voided", input.TransactionID)
	}

	refunded, err := uc.repo.SumApprovedRefunds(ctx, input.VendorID, sale.ID)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "load refunds", err)
	}
	remaining := sale.Amount.Sub(refunded)
	if !remaining.IsPositive() {
		return nil, apperror.Conflict("transaction %s is already fully refunded", input.TransactionID)
	}

	amount := input.Amount
	if amount.IsZero() {
		amount = remaining
	}
	if amount, err = validateAmount(amount); err != nil {
		return nil, err
	}
	if amount.GreaterThan(remaining) {
		return nil, apperror.InvalidInput("refund amount %s exceeds refundable balance %s", amount.StringFixed(2), remaining.StringFixed(2))
	}

	proc, err := uc.registry.New(rec)
	if err != nil {
		return nil, mapError(err)
	}

	ref := uc.newRef()
	log := uc.logger.With(
		zap.String("vendor_id", input.VendorID),
		zap.String("processor", proc.Name()),
		zap.String("reference_id", ref),
		zap.String("original_reference_id", sale.ReferenceID),
	)

	res, callErr := proc.Return(ctx, payment.ReturnRequest{
		ReferenceID:         ref,
		OriginalReferenceID: sale.ReferenceID,
		Amount:              amount,
		OriginalAmount:      sale.Amount,
	})

	tx := uc.transaction(input.VendorID, rec.ID, model.TransactionRefund, ref, amount, sale.Currency, res, callErr)
	tx.OrderID = sale.OrderID
	tx.ParentTransactionID = &sale.ID
	uc.record(ctx, log, tx)

	if callErr != nil {
		log.Error("payment refund failed", zap.Error(callErr))
		return nil, mapError(callErr)
	}
	log.Info("payment refund completed", zap.Bool("approved", res.Success), zap.String("amount", amount.StringFixed(2)))
	return res, nil
}

func (uc *paymentUseCase) VoidTransaction(ctx context.Context, input *dto.VoidInput) (*payment.Result, error) {
	sale, rec, err := uc.loadSale(ctx, input.VendorID, input.TransactionID)
	if err != nil {
		return nil, err
	}

	voided, err := uc.repo.HasApprovedVoid(ctx, input.VendorID, sale.ID)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "load voids", err)
	}
	if voided {
		return nil, apperror.Conflict("transaction %s is already voided", input.TransactionID)
	}
	refunded, err := uc.repo.SumApprovedRefunds(ctx, input.VendorID, sale.ID)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "load refunds", err)
	}
	if refunded.IsPositive() {
		return nil, apperror.Conflict("transaction %s has refunds and can no longer be voided", input.TransactionID)
	}

	proc, err := uc.registry.New(rec)
	if err != nil {
		return nil, mapError(err)
	}

	log := uc.logger.With(
		zap.String("vendor_id", input.VendorID),
		zap.String("processor", proc.Name()),
		zap.String("reference_id", sale.ReferenceID),
	)

	res, callErr := proc.Void(ctx, payment.VoidRequest{ReferenceID: sale.ReferenceID, Amount: sale.Amount})

	tx := uc.transaction(input.VendorID, rec.ID, model.TransactionVoid, sale.ReferenceID, sale.Amount, sale.Currency, res, callErr)
	tx.OrderID = sale.OrderID
	tx.ParentTransactionID = &sale.ID
	uc.record(ctx, log, tx)

	if callErr != nil {
		log.Error("payment void failed", zap.Error(callErr))
		return nil, mapError(callErr)
	}
	log.Info("payment void completed", zap.Bool("approved", res.Success))
	return res, nil
}

// loadSale finds the approved sale behind transactionID and the processor
// that ran it.
func (uc *paymentUseCase) loadSale(ctx context.Context, vendorID, transactionID string) (*model.PaymentTransaction, *model.PaymentProcessor, error) {
	if strings.TrimSpace(transactionID) == "" {
		return nil, nil, apperror.InvalidInput("transaction_id is required")
	}
	sale, err := uc.repo.FindSaleByReference(ctx, vendorID, transactionID)
	if err != nil {
		return nil, nil, apperror.Wrap(apperror.KindInternal, "load transaction", err)
	}
	if sale == nil {
		return nil, nil, apperror.NotFound("transaction %s not found", transactionID)
	}
	if sale.Status != model.TransactionApproved {
		return nil, nil, apperror.InvalidInput("transaction %s was not approved", transactionID)
	}

	rec, err := uc.repo.FindProcessorByID(ctx, vendorID, sale.ProcessorID)
	if err != nil {
		return nil, nil, apperror.Wrap(apperror.KindInternal, "load payment processor", err)
	}
	if rec == nil || !rec.IsActive {
		return nil, nil, mapError(payment.ErrProcessorNotConfigured)
	}
	return sale, rec, nil
}

func (uc *paymentUseCase) transaction(vendorID, processorID, kind, ref string, amount decimal.Decimal, currency string, res *payment.Result, callErr error) *model.PaymentTransaction {
	tx := &model.PaymentTransaction{
		ID:              uuid.NewString(),
		VendorID:        vendorID,
		ProcessorID:     processorID,
		TransactionType: kind,
		ReferenceID:     ref,
		Amount:          amount,
		Currency:        currency,
		CreatedAt:       uc.now(),
	}
	switch {
	case callErr != nil:
		tx.Status = model.TransactionError
		tx.Message = callErr.Error()
	case res.Success:
		tx.Status = model.TransactionApproved
	default:
		tx.Status = model.TransactionDeclined
	}
	if res != nil {
		tx.Message = res.Message
		tx.AuthCode = optional(res.AuthCode)
		tx.RawResponse = res.Raw
	}
	return tx
}

// record persists the attempt. Money may already have moved upstream, so a
// failed insert is logged rather than hiding the processor's answer.
func (uc *paymentUseCase) record(ctx context.Context, log logger.ZapLogger, tx *model.PaymentTransaction) {
	if err := uc.repo.CreateTransaction(context.WithoutCancel(ctx), tx); err != nil {
		log.Error("failed to record payment transaction",
			zap.String("status", tx.Status),
			zap.String("amount", tx.Amount.StringFixed(2)),
			zap.Error(err),
		)
	}
}

func (uc *paymentUseCase) ListProcessors(ctx context.Context, vendorID string) ([]model.PaymentProcessor, error) {
	return uc.repo.ListProcessors(ctx, vendorID)
}

func (uc *paymentUseCase) UpsertProcessor(ctx context.Context, input *dto.UpsertProcessorInput) (*model.PaymentProcessor, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperror.InvalidInput("name is required")
	}
	env := input.Environment
	if env == "" {
		env = model.ProcessorEnvProduction
	}
	if env != model.ProcessorEnvProduction && env != model.ProcessorEnvSandbox {
		return nil, apperror.InvalidInput("unknown environment %q", input.Environment)
	}

	now := uc.now()
	p := &model.PaymentProcessor{
		BaseModel:         model.BaseModel{ID: input.ID, CreatedAt: now, UpdatedAt: now},
		VendorID:          input.VendorID,
		LocationID:        input.LocationID,
		Name:              strings.TrimSpace(input.Name),
		ProcessorType:     strings.ToLower(input.ProcessorType),
		Environment:       env,
		DejavooTPN:        optional(input.DejavooTPN),
		DejavooAuthKey:    optional(input.DejavooAuthKey),
		DejavooRegisterID: optional(input.DejavooRegisterID),
		IsActive:          input.IsActive,
		IsDefault:         input.IsDefault,
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
		if p.DejavooAuthKey == nil && p.ProcessorType == model.ProcessorDejavoo {
			return nil, apperror.InvalidInput("dejavoo_authkey is required")
		}
	} else {
		existing, err := uc.repo.FindProcessorByID(ctx, input.VendorID, input.ID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, apperror.NotFound("payment processor %s not found", input.ID)
		}
		p.CreatedAt = existing.CreatedAt
	}

	// Unknown types and missing credentials fail here, not at the register.
	candidate := *p
	if candidate.DejavooAuthKey == nil {
		candidate.DejavooAuthKey = optional("existing")
	}
	if _, err := uc.registry.New(&candidate); err != nil {
		return nil, mapError(err)
	}

	if err := uc.repo.UpsertProcessor(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (uc *paymentUseCase) DeactivateProcessor(ctx context.Context, vendorID, id string) error {
	err := uc.repo.DeactivateProcessor(ctx, vendorID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NotFound("payment processor %s not found", id)
	}
	return err
}

// validateID accepts an empty optional id or a UUID, which is what the
// payment_transactions columns store.
func validateID(field, id string) error {
	if id == "" {
		return nil
	}
	if err := uuid.Validate(id); err != nil {
		return apperror.InvalidInput("%s must be a UUID", field)
	}
	return nil
}

func validateAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, apperror.InvalidInput("amount must be greater than zero")
	}
	if !amount.Equal(amount.Round(2)) {
		return decimal.Zero, apperror.InvalidInput("amount %s has more than two decimal places", amount.String())
	}
	return amount, nil
}

// mapError attaches an API kind to the payment error taxonomy while keeping
// the sentinel reachable through errors.Is.
func mapError(err error) error {
	var perr *payment.ProcessorError
	switch {
	case errors.As(err, &perr):
		return apperror.Wrap(apperror.KindUpstream, "payment processor request failed", err)
	case errors.Is(err, payment.ErrProcessorNotConfigured):
		return apperror.Wrap(apperror.KindInvalidInput, payment.ErrProcessorNotConfigured.Error(), err)
	case errors.Is(err, payment.ErrPartialRefundUnsupported):
		return apperror.Wrap(apperror.KindInvalidInput, payment.ErrPartialRefundUnsupported.Error(), err)
	case errors.Is(err, payment.ErrAlreadySettled):
		return apperror.Wrap(apperror.KindConflict, payment.ErrAlreadySettled.Error(), err)
	case errors.Is(err, payment.ErrUnsupportedProcessor), errors.Is(err, payment.ErrInvalidRequest):
		return apperror.Wrap(apperror.KindInvalidInput, err.Error(), err)
	default:
		return fmt.Errorf("payment: %w", err)
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
