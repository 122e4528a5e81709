package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/openmarket/marketplace-backend/api/controllers"
	"github.com/openmarket/marketplace-backend/api/routes"
	"github.com/openmarket/marketplace-backend/internal/auctions"
	"github.com/openmarket/marketplace-backend/internal/bids"
	cartsvc "github.com/openmarket/marketplace-backend/internal/cart"
	"github.com/openmarket/marketplace-backend/internal/cron"
	"github.com/openmarket/marketplace-backend/internal/governance"
	"github.com/openmarket/marketplace-backend/internal/listings"
	"github.com/openmarket/marketplace-backend/internal/notifications"
	"github.com/openmarket/marketplace-backend/internal/policies"
	"github.com/openmarket/marketplace-backend/internal/purchases"
	"github.com/openmarket/marketplace-backend/pkg/config"
	"github.com/openmarket/marketplace-backend/pkg/db"
	"github.com/openmarket/marketplace-backend/pkg/logger"
	"github.com/openmarket/marketplace-backend/pkg/metrics"
	"github.com/openmarket/marketplace-backend/pkg/migrate"
	"github.com/openmarket/marketplace-backend/pkg/payment"
	"github.com/openmarket/marketplace-backend/pkg/pubsub"
	"github.com/openmarket/marketplace-backend/pkg/redis"
	"github.com/openmarket/marketplace-backend/pkg/shipping"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	readies := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}

	var events notifications.Publisher = notifications.Noop{}
	if cfg.PubSub.Enabled() {
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		events, err = notifications.NewPublisher(pubsubClient, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create event publisher", err)
			os.Exit(1)
		}
		readies["pubsub"] = pubsubClient
	}

	paymentClient, err := payment.NewClient(cfg.Payment)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment client", err)
		os.Exit(1)
	}
	shippingClient, err := shipping.NewClient(cfg.Shipping)
	if err != nil {
		logg.Error(context.Background(), "failed to create shipping client", err)
		os.Exit(1)
	}

	stores := governance.NewRegistry()
	governanceService, err := governance.NewService(stores, events, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create governance service", err)
		os.Exit(1)
	}

	listingRepo := listings.NewRepository(dbClient.DB())
	listingService, err := listings.NewService(listingRepo, governanceService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create listing service", err)
		os.Exit(1)
	}

	carts := cartsvc.NewRegistry()
	cartService, err := cartsvc.NewService(carts, listingRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	policyRegistry := policies.NewRegistry()
	policyService, err := policies.NewService(policyRegistry, governanceService)
	if err != nil {
		logg.Error(context.Background(), "failed to create policy service", err)
		os.Exit(1)
	}

	purchaseService, err := purchases.NewService(
		purchases.NewRepository(dbClient.DB()),
		dbClient,
		carts,
		listingRepo,
		policyRegistry,
		governanceService,
		paymentClient,
		shippingClient,
		events,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create purchase service", err)
		os.Exit(1)
	}

	bidService, err := bids.NewService(bids.NewEngine(), governanceService, listingRepo, purchaseService, events, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create bid service", err)
		os.Exit(1)
	}

	auctionService, err := auctions.NewService(
		auctions.NewEngine(),
		governanceService,
		listingRepo,
		purchaseService,
		auctions.TimerScheduler{},
		events,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create auction service", err)
		os.Exit(1)
	}

	// The auction engine lives in this process, so the deadline backstop
	// sweep runs here too. The Redis lock keeps overlapping cycles out when
	// the interval is shorter than a slow sweep.
	sweepLock, err := cron.NewRedisLock(redisClient, cfg.Sweep.LockKey, cfg.Sweep.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep lock", err)
		os.Exit(1)
	}
	sweepJob, err := cron.NewAuctionSweepJob(auctionService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep job", err)
		os.Exit(1)
	}
	sweeper, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(sweepJob),
		Lock:     sweepLock,
		Metrics:  metrics.NewJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Sweep.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep service", err)
		os.Exit(1)
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go func() {
		if err := sweeper.Run(sweepCtx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(sweepCtx, "sweep loop stopped unexpectedly", err)
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:     cfg,
			Logger:     logg,
			Readies:    readies,
			Registry:   prometheus.DefaultGatherer,
			Governance: governanceService,
			Listings:   listingService,
			Cart:       cartService,
			Policies:   policyService,
			Purchases:  purchaseService,
			Bids:       bidService,
			Auctions:   auctionService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
