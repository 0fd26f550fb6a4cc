// Package loyalty looks up customer loyalty standing with Alpine IQ.
package loyalty

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrMemberNotFound = errors.New("loyalty member not found")
	ErrNotConfigured  = errors.New("loyalty is not configured for this vendor")
)

// UpstreamError is a failed call to the loyalty provider.
type UpstreamError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("alpineiq %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("alpineiq %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

type Member struct {
	ContactID string  `json:"contact_id"`
	Phone     string  `json:"phone"`
	FirstName string  `json:"first_name,omitempty"`
	LastName  string  `json:"last_name,omitempty"`
	Points    float64 `json:"points"`
	Tier      string  `json:"tier,omitempty"`
}

// Client calls the provider on behalf of one account (userID).
type Client interface {
	LookupMember(ctx context.Context, userID, phone string) (*Member, error)
	TriggerWalletPass(ctx context.Context, userID, contactID string) error
}
