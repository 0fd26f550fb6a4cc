package listener

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fekuna/omnipos-marketplace-service/internal/event"
	"github.com/fekuna/omnipos-marketplace-service/internal/inventory"
	"github.com/fekuna/omnipos-marketplace-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/broker"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/logger"
)

// InventoryListener turns order events into stock movements.
type InventoryListener struct {
	consumer broker.Reader
	uc       inventory.UseCase
	logger   logger.ZapLogger
	backoff  time.Duration
}

func NewInventoryListener(consumer broker.Reader, uc inventory.UseCase, log logger.ZapLogger) *InventoryListener {
	return &InventoryListener{
		consumer: consumer,
		uc:       uc,
		logger:   log,
		backoff:  time.Second,
	}
}

// Start blocks until ctx is cancelled.
func (l *InventoryListener) Start(ctx context.Context) {
	l.logger.Info("starting inventory listener")
	for {
		msg, err := l.consumer.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info("stopping inventory listener")
				return
			}
			l.logger.Error("failed to read kafka message", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(l.backoff):
			}
			continue
		}
		l.processMessage(ctx, msg.Value)
	}
}

func (l *InventoryListener) processMessage(ctx context.Context, value []byte) {
	evt, err := event.Decode(value)
	if err != nil {
		l.logger.Error("failed to decode order event", zap.Error(err))
		return
	}

	p := evt.Payload
	input := &dto.StockMovementInput{
		VendorID:    p.VendorID,
		LocationID:  p.LocationID,
		OrderID:     p.ID,
		ReferenceID: p.ReferenceID,
		Items:       make([]dto.ReceiveItem, 0, len(p.Items)),
	}
	for _, it := range p.Items {
		input.Items = append(input.Items, dto.ReceiveItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	log := l.logger.With(zap.String("event_type", evt.EventType), zap.String("order_id", p.ID), zap.String("vendor_id", p.VendorID))
	switch evt.EventType {
	case event.OrderCreated:
		err = l.uc.DeductForSale(ctx, input)
	case event.OrderRefunded:
		err = l.uc.RestockForReturn(ctx, input)
	default:
		return
	}
	if err != nil {
		// Paid orders are not rolled back here.
		log.Error("failed to apply order event to inventory", zap.Error(err))
		return
	}
	log.Info("order event applied to inventory", zap.Int("items", len(input.Items)))
}
