package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fekuna/omnipos-marketplace-service/internal/model"
	"github.com/fekuna/omnipos-marketplace-service/internal/payment"
	"github.com/fekuna/omnipos-marketplace-service/internal/payment/dto"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/apperror"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/logger"
)

type fakeRepo struct {
	processors   map[string]*model.PaymentProcessor
	transactions []*model.PaymentTransaction
	createErr    error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{processors: map[string]*model.PaymentProcessor{}}
}

func (f *fakeRepo) FindActiveProcessor(_ context.Context, vendorID string, _ *string) (*model.PaymentProcessor, error) {
	for _, p := range f.processors {
		if p.VendorID == vendorID && p.IsActive {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) FindProcessorByID(_ context.Context, vendorID, id string) (*model.PaymentProcessor, error) {
	p, ok := f.processors[id]
	if !ok || p.VendorID != vendorID {
		return nil, nil
	}
	return p, nil
}

func (f *fakeRepo) ListProcessors(_ context.Context, vendorID string) ([]model.PaymentProcessor, error) {
	var out []model.PaymentProcessor
	for _, p := range f.processors {
		if p.VendorID == vendorID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpsertProcessor(_ context.Context, p *model.PaymentProcessor) error {
	f.processors[p.ID] = p
	return nil
}

func (f *fakeRepo) DeactivateProcessor(_ context.Context, vendorID, id string) error {
	p, ok := f.processors[id]
	if !ok || p.VendorID != vendorID {
		return errors.New("not found")
	}
	p.IsActive = false
	return nil
}

func (f *fakeRepo) CreateTransaction(_ context.Context, t *model.PaymentTransaction) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.transactions = append(f.transactions, t)
	return nil
}

func (f *fakeRepo) FindSaleByReference(_ context.Context, vendorID, ref string) (*model.PaymentTransaction, error) {
	for _, t := range f.transactions {
		if t.VendorID == vendorID && t.ReferenceID == ref && t.TransactionType == model.TransactionSale {
			return t, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) SumApprovedRefunds(_ context.Context, vendorID, saleID string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, t := range f.transactions {
		if t.VendorID == vendorID && t.ParentTransactionID != nil && *t.ParentTransactionID == saleID &&
			t.TransactionType == model.TransactionRefund && t.Status == model.TransactionApproved {
			total = total.Add(t.Amount)
		}
	}
	return total, nil
}

func (f *fakeRepo) HasApprovedVoid(_ context.Context, vendorID, saleID string) (bool, error) {
	for _, t := range f.transactions {
		if t.VendorID == vendorID && t.ParentTransactionID != nil && *t.ParentTransactionID == saleID &&
			t.TransactionType == model.TransactionVoid && t.Status == model.TransactionApproved {
			return true, nil
		}
	}
	return false, nil
}

type fakeProcessor struct {
	SaleFunc   func(ctx context.Context, req payment.SaleRequest) (*payment.Result, error)
	ReturnFunc func(ctx context.Context, req payment.ReturnRequest) (*payment.Result, error)
	VoidFunc   func(ctx context.Context, req payment.VoidRequest) (*payment.Result, error)
}

func (f *fakeProcessor) Name() string { return "fake" }

func (f *fakeProcessor) Sale(ctx context.Context, req payment.SaleRequest) (*payment.Result, error) {
	if f.SaleFunc != nil {
		return f.SaleFunc(ctx, req)
	}
	return &payment.Result{Success: true, TransactionID: req.ReferenceID, AuthCode: "OK123"}, nil
}

func (f *fakeProcessor) Return(ctx context.Context, req payment.ReturnRequest) (*payment.Result, error) {
	if f.ReturnFunc != nil {
		return f.ReturnFunc(ctx, req)
	}
	return &payment.Result{Success: true, TransactionID: req.ReferenceID}, nil
}

func (f *fakeProcessor) Void(ctx context.Context, req payment.VoidRequest) (*payment.Result, error) {
	if f.VoidFunc != nil {
		return f.VoidFunc(ctx, req)
	}
	return &payment.Result{Success: true, TransactionID: req.ReferenceID}, nil
}

func setup(t *testing.T) (*paymentUseCase, *fakeRepo, *fakeProcessor) {
	t.Helper()
	repo := newFakeRepo()
	proc := &fakeProcessor{}
	reg := payment.NewRegistry()
	reg.Register("fake", func(rec *model.PaymentProcessor) (payment.Processor, error) { return proc, nil })

	repo.processors["proc-1"] = &model.PaymentProcessor{
		BaseModel:     model.BaseModel{ID: "proc-1"},
		VendorID:      "vendor-1",
		ProcessorType: "fake",
		IsActive:      true,
	}

	uc := NewPaymentUseCase(repo, reg, logger.NewNop()).(*paymentUseCase)
	n := 0
	uc.newRef = func() string {
		n++
		return "ref-" + string(rune('0'+n))
	}
	uc.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return uc, repo, proc
}

const orderID = "6f1c2a9e-3b4d-4e8f-a1c2-9d8e7f6a5b4c"

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestProcessPaymentRecordsApprovedSale(t *testing.T) {
	uc, repo, _ := setup(t)

	res, err := uc.ProcessPayment(context.Background(), &dto.ProcessPaymentInput{
		VendorID: "vendor-1",
		Amount:   money("42.10"),
		OrderID:  orderID,
	})
	if err != nil {
		t.Fatalf("ProcessPayment: %v", err)
	}
	if !res.Success || res.TransactionID != "ref-1" || res.AuthCode != "OK123" {
		t.Fatalf("unexpected result %+v", res)
	}

	if len(repo.transactions) != 1 {
		t.Fatalf("expected 1 recorded transaction, got %d", len(repo.transactions))
	}
	tx := repo.transactions[0]
	if tx.Status != model.TransactionApproved || tx.Currency != "USD" || !tx.Amount.Equal(money("42.10")) {
		t.Fatalf("recorded transaction wrong: %+v", tx)
	}
	if tx.OrderID == nil || *tx.OrderID != orderID {
		t.Fatalf("order id not recorded")
	}
}

func TestProcessPaymentWithoutProcessor(t *testing.T) {
	uc, _, _ := setup(t)

	_, err := uc.ProcessPayment(context.Background(), &dto.ProcessPaymentInput{VendorID: "vendor-x", Amount: money("1")})
	if !errors.Is(err, payment.ErrProcessorNotConfigured) {
		t.Fatalf("err = %v, want ErrProcessorNotConfigured", err)
	}
	if apperror.KindOf(err) != apperror.KindInvalidInput {
		t.Fatalf("kind = %v", apperror.KindOf(err))
	}
}

func TestProcessPaymentValidation(t *testing.T) {
	uc, _, proc := setup(t)
	cases := []struct {
		name  string
		input dto.ProcessPaymentInput
	}{
		{"zero amount", dto.ProcessPaymentInput{VendorID: "vendor-1", Amount: decimal.Zero}},
		{"negative amount", dto.ProcessPaymentInput{VendorID: "vendor-1", Amount: money("-5")}},
		{"sub-cent amount", dto.ProcessPaymentInput{VendorID: "vendor-1", Amount: money("1.005")}},
		{"foreign currency", dto.ProcessPaymentInput{VendorID: "vendor-1", Amount: money("1"), Currency: "EUR"}},
		{"order id not a uuid", dto.ProcessPaymentInput{VendorID: "vendor-1", Amount: money("1"), OrderID: "order-9"}},
		{"location id not a uuid", dto.ProcessPaymentInput{VendorID: "vendor-1", Amount: money("1"), LocationID: optional("front")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			proc.SaleFunc = func(ctx context.Context, req payment.SaleRequest) (*payment.Result, error) {
				t.Fatal("processor called for invalid input")
				return nil, nil
			}
			_, err := uc.ProcessPayment(context.Background(), &tc.input)
			if apperror.KindOf(err) != apperror.KindInvalidInput {
				t.Fatalf("err = %v, want invalid input", err)
			}
		})
	}
}

func TestProcessPaymentUpstreamFailure(t *testing.T) {
	uc, repo, proc := setup(t)
	proc.SaleFunc = func(ctx context.Context, req payment.SaleRequest) (*payment.Result, error) {
		return nil, &payment.ProcessorError{Processor: "fake", Op: "Sale", Err: context.DeadlineExceeded}
	}

	_, err := uc.ProcessPayment(context.Background(), &dto.ProcessPaymentInput{VendorID: "vendor-1", Amount: money("10")})
	var perr *payment.ProcessorError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want ProcessorError", err)
	}
	if apperror.KindOf(err) != apperror.KindUpstream {
		t.Fatalf("kind = %v", apperror.KindOf(err))
	}
	if len(repo.transactions) != 1 || repo.transactions[0].Status != model.TransactionError {
		t.Fatalf("failed attempt must be recorded as error: %+v", repo.transactions)
	}
}

func TestProcessPaymentDeclineIsResult(t *testing.T) {
	uc, repo, proc := setup(t)
	proc.SaleFunc = func(ctx context.Context, req payment.SaleRequest) (*payment.Result, error) {
		return &payment.Result{Success: false, TransactionID: req.ReferenceID, Message: "Declined"}, nil
	}

	res, err := uc.ProcessPayment(context.Background(), &dto.ProcessPaymentInput{VendorID: "vendor-1", Amount: money("10")})
	if err != nil {
		t.Fatalf("ProcessPayment: %v", err)
	}
	if res.Success {
		t.Fatal("decline reported as success")
	}
	if repo.transactions[0].Status != model.TransactionDeclined {
		t.Fatalf("status = %s", repo.transactions[0].Status)
	}
}

func TestProcessPaymentReturnsResultWhenRecordingFails(t *testing.T) {
	uc, repo, _ := setup(t)
	repo.createErr = errors.New("db down")

	res, err := uc.ProcessPayment(context.Background(), &dto.ProcessPaymentInput{VendorID: "vendor-1", Amount: money("10")})
	if err != nil {
		t.Fatalf("ProcessPayment: %v", err)
	}
	if !res.Success {
		t.Fatal("approved sale must still be reported")
	}
}

func TestRefundPartialAndOverRefund(t *testing.T) {
	uc, repo, proc := setup(t)
	ctx := context.Background()

	sale, err := uc.ProcessPayment(ctx, &dto.ProcessPaymentInput{VendorID: "vendor-1", Amount: money("50")})
	if err != nil {
		t.Fatalf("ProcessPayment: %v", err)
	}

	var sentOriginal string
	proc.ReturnFunc = func(ctx context.Context, req payment.ReturnRequest) (*payment.Result, error) {
		sentOriginal = req.OriginalReferenceID
		return &payment.Result{Success: true, TransactionID: req.ReferenceID}, nil
	}

	if _, err := uc.RefundTransaction(ctx, &dto.RefundInput{VendorID: "vendor-1", TransactionID: sale.TransactionID, Amount: money("20")}); err != nil {
		t.Fatalf("first refund: %v", err)
	}
	if sentOriginal != sale.TransactionID {
		t.Fatalf("original reference = %q", sentOriginal)
	}

	_, err = uc.RefundTransaction(ctx, &dto.RefundInput{VendorID: "vendor-1", TransactionID: sale.TransactionID, Amount: money("31")})
	if apperror.KindOf(err) != apperror.KindInvalidInput {
		t.Fatalf("over-refund err = %v", err)
	}

	res, err := uc.RefundTransaction(ctx, &dto.RefundInput{VendorID: "vendor-1", TransactionID: sale.TransactionID})
	if err != nil || !res.Success {
		t.Fatalf("remaining refund: %v %+v", err, res)
	}
	last := repo.transactions[len(repo.transactions)-1]
	if !last.Amount.Equal(money("30")) {
		t.Fatalf("remaining refund amount = %s, want 30", last.Amount)
	}

	_, err = uc.RefundTransaction(ctx, &dto.RefundInput{VendorID: "vendor-1", TransactionID: sale.TransactionID})
	if apperror.KindOf(err) != apperror.KindConflict {
		t.Fatalf("fully refunded err = %v", err)
	}
}

func TestRefundPartialUnsupported(t *testing.T) {
	uc, _, proc := setup(t)
	ctx := context.Background()
	sale, _ := uc.ProcessPayment(ctx, &dto.ProcessPaymentInput{VendorID: "vendor-1", Amount: money("50")})

	proc.ReturnFunc = func(ctx context.Context, req payment.ReturnRequest) (*payment.Result, error) {
		return nil, payment.ErrPartialRefundUnsupported
	}
	_, err := uc.RefundTransaction(ctx, &dto.RefundInput{VendorID: "vendor-1", TransactionID: sale.TransactionID, Amount: money("5")})
	if !errors.Is(err, payment.ErrPartialRefundUnsupported) {
		t.Fatalf("err = %v", err)
	}
}

func TestRefundUnknownTransaction(t *testing.T) {
	uc, _, _ := setup(t)
	_, err := uc.RefundTransaction(context.Background(), &dto.RefundInput{VendorID: "vendor-1", TransactionID: "nope"})
	if apperror.KindOf(err) != apperror.KindNotFound {
		t.Fatalf("err = %v", err)
	}
}

func TestVoidSettledAndDoubleVoid(t *testing.T) {
	uc, _, proc := setup(t)
	ctx := context.Background()
	sale, _ := uc.ProcessPayment(ctx, &dto.ProcessPaymentInput{VendorID: "vendor-1", Amount: money("15")})

	proc.VoidFunc = func(ctx context.Context, req payment.VoidRequest) (*payment.Result, error) {
		return nil, payment.ErrAlreadySettled
	}
	_, err := uc.VoidTransaction(ctx, &dto.VoidInput{VendorID: "vendor-1", TransactionID: sale.TransactionID})
	if !errors.Is(err, payment.ErrAlreadySettled) || apperror.KindOf(err) != apperror.KindConflict {
		t.Fatalf("err = %v", err)
	}

	proc.VoidFunc = nil
	if _, err := uc.VoidTransaction(ctx, &dto.VoidInput{VendorID: "vendor-1", TransactionID: sale.TransactionID}); err != nil {
		t.Fatalf("void: %v", err)
	}
	_, err = uc.VoidTransaction(ctx, &dto.VoidInput{VendorID: "vendor-1", TransactionID: sale.TransactionID})
	if apperror.KindOf(err) != apperror.KindConflict {
		t.Fatalf("double void err = %v", err)
	}
}

func TestVoidWithDeactivatedProcessor(t *testing.T) {
	uc, repo, _ := setup(t)
	ctx := context.Background()
	sale, _ := uc.ProcessPayment(ctx, &dto.ProcessPaymentInput{VendorID: "vendor-1", Amount: money("15")})

	repo.processors["proc-1"].IsActive = false
	_, err := uc.VoidTransaction(ctx, &dto.VoidInput{VendorID: "vendor-1", TransactionID: sale.TransactionID})
	if !errors.Is(err, payment.ErrProcessorNotConfigured) {
		t.Fatalf("err = %v", err)
	}
}

func TestUpsertProcessorRejectsUnknownType(t *testing.T) {
	uc, _, _ := setup(t)
	_, err := uc.UpsertProcessor(context.Background(), &dto.UpsertProcessorInput{
		VendorID:      "vendor-1",
		Name:          "Front counter",
		ProcessorType: "square",
	})
	if !errors.Is(err, payment.ErrUnsupportedProcessor) {
		t.Fatalf("err = %v", err)
	}
}

func TestRefundAfterVoidIsRejected(t *testing.T) {
	uc, _, proc := setup(t)
	ctx := context.Background()
	sale, _ := uc.ProcessPayment(ctx, &dto.ProcessPaymentInput{VendorID: "vendor-1", Amount: money("20")})

	if _, err := uc.VoidTransaction(ctx, &dto.VoidInput{VendorID: "vendor-1", TransactionID: sale.TransactionID}); err != nil {
		t.Fatalf("void: %v", err)
	}

	returns := 0
	proc.ReturnFunc = func(ctx context.Context, req payment.ReturnRequest) (*payment.Result, error) {
		returns++
		return &payment.Result{Success: true, TransactionID: req.ReferenceID}, nil
	}
	_, err := uc.RefundTransaction(ctx, &dto.RefundInput{VendorID: "vendor-1", TransactionID: sale.TransactionID})
	if apperror.KindOf(err) != apperror.KindConflict {
		t.Fatalf("err = %v, want conflict", err)
	}
	if returns != 0 {
		t.Fatalf("processor Return called %d times", returns)
	}
}

func TestVoidAfterRefundIsRejected(t *testing.T) {
	for _, amount := range []string{"5", "20"} {
		t.Run(amount, func(t *testing.T) {
			uc, _, proc := setup(t)
			ctx := context.Background()
			sale, _ := uc.ProcessPayment(ctx, &dto.ProcessPaymentInput{VendorID: "vendor-1", Amount: money("20")})

			if _, err := uc.RefundTransaction(ctx, &dto.RefundInput{VendorID: "vendor-1", TransactionID: sale.TransactionID, Amount: money(amount)}); err != nil {
				t.Fatalf("refund: %v", err)
			}

			voids := 0
			proc.VoidFunc = func(ctx context.Context, req payment.VoidRequest) (*payment.Result, error) {
				voids++
				return &payment.Result{Success: true, TransactionID: req.ReferenceID}, nil
			}
			_, err := uc.VoidTransaction(ctx, &dto.VoidInput{VendorID: "vendor-1", TransactionID: sale.TransactionID})
			if apperror.KindOf(err) != apperror.KindConflict {
				t.Fatalf("err = %v, want conflict", err)
			}
			if voids != 0 {
				t.Fatalf("processor Void called %d times", voids)
			}
		})
	}
}
