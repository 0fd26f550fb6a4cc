package usecase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fekuna/omnipos-marketplace-service/internal/event"
	"github.com/fekuna/omnipos-marketplace-service/internal/model"
	"github.com/fekuna/omnipos-marketplace-service/internal/order"
	"github.com/fekuna/omnipos-marketplace-service/internal/order/dto"
	"github.com/fekuna/omnipos-marketplace-service/internal/payment"
	paymentdto "github.com/fekuna/omnipos-marketplace-service/internal/payment/dto"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/apperror"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/broker"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/cache"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/postgres"
)

const (
	defaultCurrency = "USD"
	maxItems        = 200

	// Outlives the slowest terminal round trip.
	paymentLockTTL = 3 * time.Minute

	// Absorbs float drift when fractional quantities are summed.
	restockTolerance = 1e-9
)

type Deps struct {
	Repo      order.Repository
	Quoter    order.Quoter
	Vendors   order.VendorReader
	Payments  payment.UseCase
	Publisher broker.Publisher
	Cache     cache.Cache
	Logger    logger.ZapLogger
}

type orderUseCase struct {
	repo      order.Repository
	quoter    order.Quoter
	vendors   order.VendorReader
	payments  payment.UseCase
	publisher broker.Publisher
	cache     cache.Cache
	logger    logger.ZapLogger
	now       func() time.Time
	newNumber func(time.Time) string
}

func NewOrderUseCase(d Deps) order.UseCase {
	return &orderUseCase{
		repo:      d.Repo,
		quoter:    d.Quoter,
		vendors:   d.Vendors,
		payments:  d.Payments,
		publisher: d.Publisher,
		cache:     d.Cache,
		logger:    d.Logger,
		now:       time.Now,
		newNumber: orderNumber,
	}
}

func orderNumber(at time.Time) string {
	return fmt.Sprintf("ORD-%s-%s", at.UTC().Format("060102"), strings.ToUpper(uuid.NewString()[:8]))
}

func (uc *orderUseCase) CreateOrder(ctx context.Context, input *dto.CreateOrderInput) (*model.Order, error) {
	if len(input.Items) == 0 {
		return nil, apperror.InvalidInput("at least one item is required")
	}
	if len(input.Items) > maxItems {
		return nil, apperror.InvalidInput("an order holds at most %d items", maxItems)
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	v, err := uc.vendors.GetVendor(ctx, input.VendorID)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	o := &model.Order{
		BaseModel:     model.BaseModel{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now},
		VendorID:      input.VendorID,
		OrderNumber:   uc.newNumber(now),
		CustomerID:    input.CustomerID,
		LocationID:    input.LocationID,
		RegisterID:    input.RegisterID,
		Status:        model.OrderStatusPending,
		Currency:      currency,
		RefundedTotal: decimal.Zero,
		CreatedBy:     optional(input.UserID),
	}

	subtotal := decimal.Zero
	for i, it := range input.Items {
		if it.ProductID == "" {
			return nil, apperror.InvalidInput("items[%d].product_id is required", i)
		}
		if it.Quantity <= 0 || math.IsInf(it.Quantity, 0) || math.IsNaN(it.Quantity) {
			return nil, apperror.InvalidInput("items[%d].quantity must be positive", i)
		}
		q, err := uc.quoter.Quote(ctx, input.VendorID, it.ProductID, it.Quantity)
		if err != nil {
			return nil, err
		}

		item := model.OrderItem{
			ID:             uuid.NewString(),
			OrderID:        o.ID,
			ProductID:      q.ProductID,
			ProductName:    q.ProductName,
			Quantity:       it.Quantity,
			UnitPrice:      q.UnitPrice,
			LineTotal:      q.LineTotal,
			TrackInventory: q.TrackInventory,
		}
		if q.Break != nil {
			item.PriceBreakID = &q.Break.BreakID
		}
		o.Items = append(o.Items, item)
		subtotal = subtotal.Add(q.LineTotal)
	}

	o.Subtotal = subtotal
	o.TaxAmount = subtotal.Mul(v.TaxRate).Round(2)
	o.Total = o.Subtotal.Add(o.TaxAmount)

	if err := uc.repo.Create(ctx, o); err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, apperror.Conflict("order number %s already exists, retry", o.OrderNumber)
		}
		return nil, err
	}

	uc.logger.Info("order created",
		zap.String("vendor_id", o.VendorID),
		zap.String("order_id", o.ID),
		zap.String("order_number", o.OrderNumber),
		zap.String("total", o.Total.StringFixed(2)),
	)
	return o, nil
}

func (uc *orderUseCase) GetOrder(ctx context.Context, vendorID, id string) (*model.Order, error) {
	o, err := uc.repo.FindByID(ctx, vendorID, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, apperror.NotFound("order %s not found", id)
	}
	return o, nil
}

func (uc *orderUseCase) ListOrders(ctx context.Context, filters *dto.OrderFilters) ([]model.Order, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

func (uc *orderUseCase) CancelOrder(ctx context.Context, vendorID, id string) (*model.Order, error) {
	o, err := uc.GetOrder(ctx, vendorID, id)
	if err != nil {
		return nil, err
	}
	if o.Status != model.OrderStatusPending {
		return nil, apperror.Conflict("order %s is %s and cannot be cancelled", o.OrderNumber, o.Status)
	}
	o.Status = model.OrderStatusCancelled
	if err := uc.save(ctx, o, model.OrderStatusPending); err != nil {
		return nil, err
	}
	return o, nil
}

func (uc *orderUseCase) PayOrder(ctx context.Context, input *dto.PayOrderInput) (*order.PaymentOutcome, error) {
	release, err := uc.lock(ctx, input.VendorID, input.OrderID)
	if err != nil {
		return nil, err
	}
	defer release()

	o, err := uc.GetOrder(ctx, input.VendorID, input.OrderID)
	if err != nil {
		return nil, err
	}
	if o.Status != model.OrderStatusPending {
		return nil, apperror.Conflict("order %s is %s", o.OrderNumber, o.Status)
	}

	res, err := uc.payments.ProcessPayment(ctx, &paymentdto.ProcessPaymentInput{
		VendorID:       o.VendorID,
		LocationID:     o.LocationID,
		Amount:         o.Total,
		Currency:       o.Currency,
		TokenOrCardRef: input.TokenOrCardRef,
		OrderID:        o.ID,
		UserID:         input.UserID,
	})
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return &order.PaymentOutcome{Order: o, Payment: res}, nil
	}

	now := uc.now()
	o.Status = model.OrderStatusPaid
	o.TransactionID = &res.TransactionID
	o.PaidAt = &now
	if err := uc.save(ctx, o, model.OrderStatusPending); err != nil {
		uc.logger.Error("order charged but not marked paid",
			zap.String("order_id", o.ID),
			zap.String("transaction_id", res.TransactionID),
			zap.Error(err),
		)
		return nil, err
	}

	uc.publish(ctx, event.OrderCreated, o, o.ID, stockItems(o.Items))
	return &order.PaymentOutcome{Order: o, Payment: res}, nil
}

func (uc *orderUseCase) RefundOrder(ctx context.Context, input *dto.RefundOrderInput) (*order.PaymentOutcome, error) {
	release, err := uc.lock(ctx, input.VendorID, input.OrderID)
	if err != nil {
		return nil, err
	}
	defer release()

	o, err := uc.paidOrder(ctx, input.VendorID, input.OrderID)
	if err != nil {
		return nil, err
	}

	remaining := o.Total.Sub(o.RefundedTotal)
	amount := input.Amount.Round(2)
	if amount.IsNegative() {
		return nil, apperror.InvalidInput("amount must not be negative")
	}
	if amount.IsZero() {
		amount = remaining
	}
	if amount.GreaterThan(remaining) {
		return nil, apperror.InvalidInput("refund %s exceeds refundable balance %s", amount.StringFixed(2), remaining.StringFixed(2))
	}
	restock, items, err := restockItems(o, input.RestockItems, amount.Equal(o.Total))
	if err != nil {
		return nil, err
	}

	res, err := uc.payments.RefundTransaction(ctx, &paymentdto.RefundInput{
		VendorID:      o.VendorID,
		TransactionID: *o.TransactionID,
		Amount:        amount,
		UserID:        input.UserID,
	})
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return &order.PaymentOutcome{Order: o, Payment: res}, nil
	}

	o.RefundedTotal = o.RefundedTotal.Add(amount)
	o.Items = items
	if o.RefundedTotal.GreaterThanOrEqual(o.Total) {
		o.Status = model.OrderStatusRefunded
	}
	if err := uc.save(ctx, o, model.OrderStatusPaid); err != nil {
		uc.logger.Error("order refunded upstream but not updated",
			zap.String("order_id", o.ID),
			zap.String("transaction_id", res.TransactionID),
			zap.Error(err),
		)
		return nil, err
	}

	uc.publish(ctx, event.OrderRefunded, o, res.TransactionID, restock)
	return &order.PaymentOutcome{Order: o, Payment: res}, nil
}

func (uc *orderUseCase) VoidOrder(ctx context.Context, input *dto.VoidOrderInput) (*order.PaymentOutcome, error) {
	release, err := uc.lock(ctx, input.VendorID, input.OrderID)
	if err != nil {
		return nil, err
	}
	defer release()

	o, err := uc.paidOrder(ctx, input.VendorID, input.OrderID)
	if err != nil {
		return nil, err
	}
	if o.RefundedTotal.IsPositive() {
		return nil, apperror.Conflict("order %s is partially refunded and cannot be voided", o.OrderNumber)
	}

	res, err := uc.payments.VoidTransaction(ctx, &paymentdto.VoidInput{
		VendorID:      o.VendorID,
		TransactionID: *o.TransactionID,
		UserID:        input.UserID,
	})
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return &order.PaymentOutcome{Order: o, Payment: res}, nil
	}

	o.Status = model.OrderStatusVoided
	if err := uc.save(ctx, o, model.OrderStatusPaid); err != nil {
		uc.logger.Error("order voided upstream but not updated",
			zap.String("order_id", o.ID),
			zap.String("transaction_id", res.TransactionID),
			zap.Error(err),
		)
		return nil, err
	}

	uc.publish(ctx, event.OrderRefunded, o, res.TransactionID, stockItems(o.Items))
	return &order.PaymentOutcome{Order: o, Payment: res}, nil
}

func (uc *orderUseCase) paidOrder(ctx context.Context, vendorID, id string) (*model.Order, error) {
	o, err := uc.GetOrder(ctx, vendorID, id)
	if err != nil {
		return nil, err
	}
	if o.Status != model.OrderStatusPaid || o.TransactionID == nil {
		return nil, apperror.Conflict("order %s is %s", o.OrderNumber, o.Status)
	}
	return o, nil
}

func (uc *orderUseCase) save(ctx context.Context, o *model.Order, from string) error {
	o.UpdatedAt = uc.now()
	if err := uc.repo.UpdateStatus(ctx, o, from); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.Conflict("order %s changed concurrently", o.OrderNumber)
		}
		return err
	}
	return nil
}

// publish is best-effort: the payment already happened, so a broker failure
// is logged for replay rather than returned.
func (uc *orderUseCase) publish(ctx context.Context, eventType string, o *model.Order, ref string, items []event.OrderItemPayload) {
	if uc.publisher == nil || len(items) == 0 {
		return
	}
	evt := event.NewOrderEvent(eventType, event.OrderPayload{
		ID:          o.ID,
		VendorID:    o.VendorID,
		LocationID:  o.LocationID,
		ReferenceID: ref,
		Items:       items,
	}, uc.now())

	log := uc.logger.With(
		zap.String("event_type", eventType),
		zap.String("event_id", evt.EventID),
		zap.String("order_id", o.ID),
	)
	b, err := evt.Marshal()
	if err != nil {
		log.Error("failed to encode order event", zap.Error(err))
		return
	}
	if err := uc.publisher.Publish(context.WithoutCancel(ctx), evt.Key(), b); err != nil {
		log.Error("failed to publish order event", zap.Error(err))
		return
	}
	log.Info("order event published")
}

func (uc *orderUseCase) lock(ctx context.Context, vendorID, orderID string) (func(), error) {
	if uc.cache == nil {
		return func() {}, nil
	}
	key := fmt.Sprintf("lock:order:%s:%s", vendorID, orderID)
	token := uuid.NewString()
	ok, err := uc.cache.AcquireLock(ctx, key, token, paymentLockTTL)
	if err != nil {
		uc.logger.Error("failed to acquire order lock", zap.String("key", key), zap.Error(err))
		return nil, apperror.New(apperror.KindUnavailable, "order is busy, try again")
	}
	if !ok {
		return nil, apperror.Conflict("a payment for order %s is already in progress", orderID)
	}
	return func() {
		if err := uc.cache.ReleaseLock(context.WithoutCancel(ctx), key, token); err != nil {
			uc.logger.Warn("failed to release order lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func stockItems(items []model.OrderItem) []event.OrderItemPayload {
	out := make([]event.OrderItemPayload, 0, len(items))
	for _, it := range items {
		if it.TrackInventory {
			out = append(out, event.OrderItemPayload{ProductID: it.ProductID, Quantity: it.Quantity})
		}
	}
	return out
}

// restockItems validates requested restock lines against what earlier refunds
// have not yet put back. Without explicit lines only a refund of the whole
// order restocks, and it restocks everything left. It returns the stock events
// and a copy of the order items carrying the new restocked quantities.
func restockItems(o *model.Order, requested []dto.OrderItemInput, full bool) ([]event.OrderItemPayload, []model.OrderItem, error) {
	items := append([]model.OrderItem(nil), o.Items...)

	if len(requested) == 0 {
		if !full {
			return nil, items, nil
		}
		out := make([]event.OrderItemPayload, 0, len(items))
		for i := range items {
			left := items[i].Quantity - items[i].RestockedQuantity
			if left <= 0 {
				continue
			}
			items[i].RestockedQuantity = items[i].Quantity
			if items[i].TrackInventory {
				out = append(out, event.OrderItemPayload{ProductID: items[i].ProductID, Quantity: left})
			}
		}
		return out, items, nil
	}

	var products []string
	want := make(map[string]float64, len(requested))
	for i, r := range requested {
		if r.Quantity <= 0 || math.IsInf(r.Quantity, 0) || math.IsNaN(r.Quantity) {
			return nil, nil, apperror.InvalidInput("restock_items[%d]: quantity must be positive", i)
		}
		if _, ok := want[r.ProductID]; !ok {
			products = append(products, r.ProductID)
		}
		want[r.ProductID] += r.Quantity
	}

	available := make(map[string]float64, len(items))
	tracked := make(map[string]bool, len(items))
	for _, it := range items {
		available[it.ProductID] += it.Quantity - it.RestockedQuantity
		tracked[it.ProductID] = tracked[it.ProductID] || it.TrackInventory
	}

	out := make([]event.OrderItemPayload, 0, len(products))
	for _, pid := range products {
		left, ok := available[pid]
		if !ok {
			return nil, nil, apperror.InvalidInput("restock_items: product %s is not on the order", pid)
		}
		if want[pid] > left+restockTolerance {
			return nil, nil, apperror.InvalidInput("restock_items: product %s has %g left to restock, %g requested", pid, math.Max(left, 0), want[pid])
		}

		need := want[pid]
		for i := range items {
			if need <= 0 {
				break
			}
			if items[i].ProductID != pid {
				continue
			}
			take := math.Min(need, items[i].Quantity-items[i].RestockedQuantity)
			if take <= 0 {
				continue
			}
			items[i].RestockedQuantity = math.Min(items[i].RestockedQuantity+take, items[i].Quantity)
			need -= take
		}
		if tracked[pid] {
			out = append(out, event.OrderItemPayload{ProductID: pid, Quantity: want[pid]})
		}
	}
	return out, items, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
