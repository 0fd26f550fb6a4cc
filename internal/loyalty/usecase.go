package loyalty

import "context"

type UseCase interface {
	LookupMember(ctx context.Context, vendorID, phone string) (*Member, error)
	TriggerWalletPass(ctx context.Context, vendorID, contactID string) error
}
