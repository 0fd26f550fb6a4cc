// Package payment defines the processor abstraction used by the POS: a
// vendor's configured processor record selects a concrete client, and every
// client speaks the same Sale/Return/Void contract.
package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/fekuna/omnipos-marketplace-service/internal/model"
)

var (
	ErrProcessorNotConfigured   = errors.New("no active payment processor configured")
	ErrPartialRefundUnsupported = errors.New("processor does not support partial refunds")
	ErrAlreadySettled           = errors.New("transaction already settled and cannot be voided")
	ErrUnsupportedProcessor     = errors.New("unsupported payment processor type")
	ErrInvalidRequest           = errors.New("invalid payment request")
)

// ProcessorError wraps a failed call to the upstream processor: transport
// failure, timeout, or a response that could not be interpreted.
type ProcessorError struct {
	Processor  string
	Op         string
	StatusCode int
	Err        error
}

func (e *ProcessorError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: upstream status %d: %v", e.Processor, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Processor, e.Op, e.Err)
}

func (e *ProcessorError) Unwrap() error { return e.Err }

// Result is the normalized outcome of a processor call. A declined card is a
// Result with Success false, not an error.
type Result struct {
	Success       bool       `json:"success"`
	TransactionID string     `json:"transaction_id"`
	AuthCode      string     `json:"auth_code,omitempty"`
	Message       string     `json:"message,omitempty"`
	Raw           model.JSON `json:"raw,omitempty"`
}

type SaleRequest struct {
	ReferenceID string
	Amount      decimal.Decimal
	PaymentType string
	InvoiceID   string
}

type ReturnRequest struct {
	ReferenceID         string
	OriginalReferenceID string
	Amount              decimal.Decimal
	OriginalAmount      decimal.Decimal
	PaymentType         string
}

type VoidRequest struct {
	ReferenceID string
	Amount      decimal.Decimal
}

// Processor is implemented by each upstream integration.
type Processor interface {
	Name() string
	Sale(ctx context.Context, req SaleRequest) (*Result, error)
	Return(ctx context.Context, req ReturnRequest) (*Result, error)
	Void(ctx context.Context, req VoidRequest) (*Result, error)
}

// Factory builds a Processor bound to one vendor's credentials.
type Factory func(rec *model.PaymentProcessor) (Processor, error)

type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(processorType string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[processorType] = f
}

// New selects the client matching rec.ProcessorType.
func (r *Registry) New(rec *model.PaymentProcessor) (Processor, error) {
	r.mu.RLock()
	f, ok := r.factories[rec.ProcessorType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProcessor, rec.ProcessorType)
	}
	return f(rec)
}
