package dto

import "github.com/shopspring/decimal"

type ProcessPaymentInput struct {
	VendorID       string
	LocationID     *string
	Amount         decimal.Decimal
	Currency       string
	TokenOrCardRef string
	OrderID        string
	UserID         string
}

// RefundInput refunds the remaining balance of the sale when Amount is zero.
type RefundInput struct {
	VendorID      string
	TransactionID string
	Amount        decimal.Decimal
	UserID        string
}

type VoidInput struct {
	VendorID      string
	TransactionID string
	UserID        string
}

type UpsertProcessorInput struct {
	ID                string
	VendorID          string
	LocationID        *string
	Name              string
	ProcessorType     string
	Environment       string
	DejavooTPN        string
	DejavooAuthKey    string
	DejavooRegisterID string
	IsActive          bool
	IsDefault         bool
}
