// Package event defines the order events exchanged over Kafka.
package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	OrderCreated  = "OrderCreated"
	OrderRefunded = "OrderRefunded"
)

type OrderEvent struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	Payload   OrderPayload `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

type OrderPayload struct {
	ID         string  `json:"id"`
	VendorID   string  `json:"vendor_id"`
	LocationID *string `json:"location_id,omitempty"`
	// ReferenceID identifies the payment transaction behind the event.
	ReferenceID string             `json:"reference_id"`
	Items       []OrderItemPayload `json:"items"`
}

type OrderItemPayload struct {
	ProductID string  `json:"product_id"`
	Quantity  float64 `json:"quantity"`
}

func NewOrderEvent(eventType string, payload OrderPayload, at time.Time) OrderEvent {
	return OrderEvent{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Payload:   payload,
		Timestamp: at.UTC(),
	}
}

// Key partitions events by order so one order's events stay ordered.
func (e OrderEvent) Key() string {
	return e.Payload.VendorID + ":" + e.Payload.ID
}

func (e OrderEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func Decode(b []byte) (OrderEvent, error) {
	var e OrderEvent
	err := json.Unmarshal(b, &e)
	return e, err
}
