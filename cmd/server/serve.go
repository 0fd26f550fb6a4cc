package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/fekuna/omnipos-marketplace-service/config"
	"github.com/fekuna/omnipos-marketplace-service/internal/auth"
	categoryhandler "github.com/fekuna/omnipos-marketplace-service/internal/category/handler"
	categoryrepo "github.com/fekuna/omnipos-marketplace-service/internal/category/repository"
	categoryuc "github.com/fekuna/omnipos-marketplace-service/internal/category/usecase"
	inventoryhandler "github.com/fekuna/omnipos-marketplace-service/internal/inventory/handler"
	inventorylistener "github.com/fekuna/omnipos-marketplace-service/internal/inventory/listener"
	inventoryrepo "github.com/fekuna/omnipos-marketplace-service/internal/inventory/repository"
	inventoryuc "github.com/fekuna/omnipos-marketplace-service/internal/inventory/usecase"
	"github.com/fekuna/omnipos-marketplace-service/internal/loyalty/alpineiq"
	loyaltyhandler "github.com/fekuna/omnipos-marketplace-service/internal/loyalty/handler"
	loyaltyuc "github.com/fekuna/omnipos-marketplace-service/internal/loyalty/usecase"
	"github.com/fekuna/omnipos-marketplace-service/internal/model"
	orderhandler "github.com/fekuna/omnipos-marketplace-service/internal/order/handler"
	orderrepo "github.com/fekuna/omnipos-marketplace-service/internal/order/repository"
	orderuc "github.com/fekuna/omnipos-marketplace-service/internal/order/usecase"
	"github.com/fekuna/omnipos-marketplace-service/internal/payment"
	"github.com/fekuna/omnipos-marketplace-service/internal/payment/dejavoo"
	paymenthandler "github.com/fekuna/omnipos-marketplace-service/internal/payment/handler"
	paymentrepo "github.com/fekuna/omnipos-marketplace-service/internal/payment/repository"
	paymentuc "github.com/fekuna/omnipos-marketplace-service/internal/payment/usecase"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/broker"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/cache"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/postgres"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/search"
	pricinghandler "github.com/fekuna/omnipos-marketplace-service/internal/pricing/handler"
	pricingrepo "github.com/fekuna/omnipos-marketplace-service/internal/pricing/repository"
	pricinguc "github.com/fekuna/omnipos-marketplace-service/internal/pricing/usecase"
	"github.com/fekuna/omnipos-marketplace-service/internal/product"
	producthandler "github.com/fekuna/omnipos-marketplace-service/internal/product/handler"
	"github.com/fekuna/omnipos-marketplace-service/internal/product/index"
	productrepo "github.com/fekuna/omnipos-marketplace-service/internal/product/repository"
	productuc "github.com/fekuna/omnipos-marketplace-service/internal/product/usecase"
	"github.com/fekuna/omnipos-marketplace-service/internal/server"
	storefronthandler "github.com/fekuna/omnipos-marketplace-service/internal/storefront/handler"
	vendorhandler "github.com/fekuna/omnipos-marketplace-service/internal/tenant/handler"
	vendorrepo "github.com/fekuna/omnipos-marketplace-service/internal/tenant/repository"
	vendoruc "github.com/fekuna/omnipos-marketplace-service/internal/tenant/usecase"
	"github.com/fekuna/omnipos-marketplace-service/internal/woocommerce"
	woohandler "github.com/fekuna/omnipos-marketplace-service/internal/woocommerce/handler"
	woouc "github.com/fekuna/omnipos-marketplace-service/internal/woocommerce/usecase"
	"github.com/fekuna/omnipos-marketplace-service/migrations"
)

var (
	serveMigrate    bool
	serveNoListener bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the gRPC health endpoint and the inventory listener",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply pending migrations before serving")
	serveCmd.Flags().BoolVar(&serveNoListener, "no-listener", false, "do not consume order events")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadEnv()
	if err != nil {
		return err
	}

	appLogger := newLogger(cfg)
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewPostgres(postgresConfig(cfg))
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()
	appLogger.Info("connected to postgres", zap.String("db_name", cfg.Postgres.DBName))

	if serveMigrate {
		if err := migrations.Run(ctx, db, appLogger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()
	appLogger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))

	kafkaCfg := &broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	}
	producer := broker.NewProducer(kafkaCfg)
	defer producer.Close()

	// Search is optional; product search falls back to Postgres.
	var productIndex product.SearchIndex
	esClient, err := search.NewClient(&search.Config{
		Addresses: cfg.Elastic.Addresses,
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
	})
	if err != nil {
		appLogger.Warn("elasticsearch unavailable, search uses postgres", zap.Error(err))
	} else {
		idx := index.NewElasticIndex(esClient)
		if err := idx.EnsureIndex(ctx); err != nil {
			appLogger.Warn("could not ensure product index", zap.Error(err))
		} else {
			productIndex = idx
		}
	}

	// Repositories
	vendorRepo := vendorrepo.NewPGRepository(db)
	categoryRepo := categoryrepo.NewPGRepository(db)
	productRepo := productrepo.NewPGRepository(db)
	pricingRepo := pricingrepo.NewPGRepository(db)
	inventoryRepo := inventoryrepo.NewPGRepository(db)
	paymentRepo := paymentrepo.NewPGRepository(db)
	orderRepo := orderrepo.NewPGRepository(db)

	// Use cases
	vendorUC := vendoruc.NewVendorUseCase(vendorRepo, redisClient, cfg.Server.StorefrontDomain, appLogger)
	categoryUC := categoryuc.NewCategoryUseCase(categoryRepo, appLogger)
	productUC := productuc.NewProductUseCase(productRepo, redisClient, productIndex, appLogger)
	pricingUC := pricinguc.NewPricingUseCase(pricingRepo, productRepo, appLogger)
	inventoryUC := inventoryuc.NewInventoryUseCase(inventoryRepo, redisClient, appLogger)

	registry := payment.NewRegistry()
	registry.Register(model.ProcessorDejavoo, dejavoo.Factory(dejavoo.Config{
		ProductionURL: cfg.Dejavoo.ProductionURL,
		SandboxURL:    cfg.Dejavoo.SandboxURL,
		ProxyTimeout:  cfg.Dejavoo.ProxyTimeout,
		HTTPTimeout:   config.Seconds(cfg.Dejavoo.HTTPTimeout),
	}, &http.Client{Timeout: config.Seconds(cfg.Dejavoo.HTTPTimeout)}))
	paymentUC := paymentuc.NewPaymentUseCase(paymentRepo, registry, appLogger)

	orderUC := orderuc.NewOrderUseCase(orderuc.Deps{
		Repo:      orderRepo,
		Quoter:    pricingUC,
		Vendors:   vendorUC,
		Payments:  paymentUC,
		Publisher: producer,
		Cache:     redisClient,
		Logger:    appLogger,
	})

	loyaltyClient := alpineiq.New(alpineiq.Config{
		BaseURL: cfg.AlpineIQ.BaseURL,
		APIKey:  cfg.AlpineIQ.APIKey,
		Timeout: config.Seconds(cfg.AlpineIQ.Timeout),
	}, &http.Client{Timeout: config.Seconds(cfg.AlpineIQ.Timeout)})
	loyaltyUC := loyaltyuc.NewLoyaltyUseCase(loyaltyClient, vendorUC, redisClient, appLogger)

	wooFactory := woocommerce.Factory(config.Seconds(cfg.WooCommerce.Timeout))
	wooUC := woouc.NewSyncUseCase(vendorUC, productRepo, inventoryUC, wooFactory, appLogger)

	if !serveNoListener {
		consumer := broker.NewConsumer(kafkaCfg)
		defer consumer.Close()
		listener := inventorylistener.NewInventoryListener(consumer, inventoryUC, appLogger)
		go listener.Start(ctx)
		appLogger.Info("inventory listener started",
			zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	router := server.NewRouter(server.RouterConfig{
		Development: cfg.IsDevelopment(),
		Tokens:      auth.NewTokenManager(cfg.JWT.SecretKey, cfg.JWT.Issuer),
		Logger:      appLogger,
		Health: map[string]server.HealthCheck{
			"postgres": db.PingContext,
			"redis": func(ctx context.Context) error {
				return redisClient.Client.Ping(ctx).Err()
			},
		},
	}, server.Handlers{
		Vendor:      vendorhandler.NewVendorHandler(vendorUC, appLogger),
		Category:    categoryhandler.NewCategoryHandler(categoryUC, appLogger),
		Product:     producthandler.NewProductHandler(productUC, appLogger),
		Pricing:     pricinghandler.NewPricingHandler(pricingUC, appLogger),
		Inventory:   inventoryhandler.NewInventoryHandler(inventoryUC, appLogger),
		Payment:     paymenthandler.NewPaymentHandler(paymentUC, appLogger),
		Order:       orderhandler.NewOrderHandler(orderUC, appLogger),
		Loyalty:     loyaltyhandler.NewLoyaltyHandler(loyaltyUC, appLogger),
		WooCommerce: woohandler.NewWooCommerceHandler(wooUC, appLogger),
		Storefront:  storefronthandler.NewStorefrontHandler(vendorUC, productUC, categoryUC, appLogger),
	})

	httpServer := &http.Server{
		Addr:              listenAddr(cfg.Server.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: config.Seconds(cfg.Server.ReadHeaderTimeout),
	}

	grpcServer, grpcHealth := server.NewGRPCServer(appLogger)
	lis, err := net.Listen("tcp", listenAddr(cfg.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		appLogger.Info("starting http server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		appLogger.Info("starting grpc server", zap.String("addr", lis.Addr().String()))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		appLogger.Info("shutting down")
	case runErr = <-errCh:
		appLogger.Error("server failed", zap.Error(runErr))
		stop()
	}

	grpcHealth.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Seconds(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("http shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
	appLogger.Info("server stopped")
	return runErr
}

func listenAddr(port string) string {
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}
