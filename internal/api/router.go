package api

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/drivekit/billing/internal/api/v1"
	"github.com/drivekit/billing/internal/config"
	"github.com/drivekit/billing/internal/rest/middleware"
)

type Handlers struct {
	Health      *v1.HealthHandler
	Webhook     *v1.WebhookHandler
	Entitlement *v1.EntitlementHandler
	Override    *v1.OverrideHandler
}

func NewRouter(cfg *config.Configuration, handlers Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.ErrorHandler())

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, cfg, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, cfg *config.Configuration, handlers Handlers) {
	// Signed processor webhooks; signature verification happens in the
	// handler before any event is dispatched.
	router.POST("/webhooks/stripe", handlers.Webhook.Handle)

	users := router.Group("/users")
	{
		users.GET("/:id/entitlements", handlers.Entitlement.Get)
		users.GET("/:id/subscription", handlers.Entitlement.BillingStatus)
		users.GET("/:id/coupons", handlers.Entitlement.UsedCoupons)
	}

	// Support tooling only.
	internal := router.Group("/internal", middleware.InternalAuthMiddleware(cfg))
	{
		internal.GET("/users/:id/overrides", handlers.Override.Get)
		internal.PUT("/users/:id/overrides", handlers.Override.Apply)
	}
}
