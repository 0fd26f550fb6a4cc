package server

import (
	"context"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/fekuna/omnipos-marketplace-service/internal/auth"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/logger"
)

func TestContextInterceptorLiftsMetadata(t *testing.T) {
	interceptor := ContextInterceptor(logger.NewNop())
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-vendor-id", "v-9", "x-user-id", "u-3"))
	var got auth.Principal
	_, err := interceptor(ctx, nil, info, func(ctx context.Context, req any) (any, error) {
		got, _ = auth.FromContext(ctx)
		return nil, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.VendorID != "v-9" || got.UserID != "u-3" {
		t.Fatalf("principal = %+v", got)
	}

	_, _ = interceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		if _, ok := auth.FromContext(ctx); ok {
			t.Fatal("principal set without metadata")
		}
		return nil, nil
	})
}
