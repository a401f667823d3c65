package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/drivekit/billing/internal/api"
	v1 "github.com/drivekit/billing/internal/api/v1"
	"github.com/drivekit/billing/internal/cache"
	"github.com/drivekit/billing/internal/config"
	"github.com/drivekit/billing/internal/gateway"
	"github.com/drivekit/billing/internal/httpclient"
	"github.com/drivekit/billing/internal/logger"
	"github.com/drivekit/billing/internal/payments"
	"github.com/drivekit/billing/internal/repository"
	"github.com/drivekit/billing/internal/service"
	"github.com/drivekit/billing/internal/types"
)

// @title DriveKit Billing API
// @version 1.0
// @description Entitlement resolution and subscription lifecycle service
// @BasePath /v1

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,
			cache.NewCache,
			httpclient.NewDefaultClient,
			repository.NewDB,

			// Payments processor
			provideProcessor,

			// Gateways
			gateway.NewDriveClient,
			gateway.NewVPNClient,
			gateway.NewObjectStorageClient,

			// Repositories
			repository.NewTierRepository,
			repository.NewUserRepository,
			repository.NewUserTierRepository,
			repository.NewOverrideRepository,
			repository.NewCouponRepository,
		),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,
			service.NewEntitlementService,
			service.NewStackingService,
			service.NewSubscriptionViewService,
			service.NewCouponService,
			service.NewOverrideService,
			service.NewLifecycleService,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(startServer),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideProcessor(cfg *config.Configuration, log *logger.Logger) payments.Processor {
	return payments.NewStripeProcessor(cfg, log)
}

func provideHandlers(
	cfg *config.Configuration,
	log *logger.Logger,
	lifecycleService service.LifecycleService,
	entitlementService service.EntitlementService,
	couponService service.CouponService,
	overrideService service.OverrideService,
	subscriptionService service.SubscriptionViewService,
) api.Handlers {
	return api.Handlers{
		Health:      v1.NewHealthHandler(log),
		Webhook:     v1.NewWebhookHandler(cfg, log, lifecycleService),
		Entitlement: v1.NewEntitlementHandler(log, entitlementService, couponService, subscriptionService),
		Override:    v1.NewOverrideHandler(log, overrideService),
	}
}

func provideRouter(cfg *config.Configuration, handlers api.Handlers) *gin.Engine {
	if cfg.Deployment.Mode != types.ModeLocal {
		gin.SetMode(gin.ReleaseMode)
	}
	return api.NewRouter(cfg, handlers)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}
