package auth

import (
	"context"

	"google.golang.org/grpc/metadata"
)

type ctxKey struct{}

// Principal identifies the caller of a vendor-scoped request.
type Principal struct {
	VendorID string
	UserID   string
	Role     string
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}

// GetVendorID prefers the authenticated principal and falls back to the
// x-vendor-id gRPC metadata.
func GetVendorID(ctx context.Context) string {
	if p, ok := FromContext(ctx); ok && p.VendorID != "" {
		return p.VendorID
	}

	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if val := md.Get("x-vendor-id"); len(val) > 0 {
			return val[0]
		}
	}
	return ""
}

func GetUserID(ctx context.Context) string {
	if p, ok := FromContext(ctx); ok {
		return p.UserID
	}
	return ""
}
