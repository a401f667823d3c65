package service

import (
	"github.com/drivekit/billing/internal/cache"
	"github.com/drivekit/billing/internal/config"
	"github.com/drivekit/billing/internal/domain/coupon"
	"github.com/drivekit/billing/internal/domain/override"
	"github.com/drivekit/billing/internal/domain/tier"
	"github.com/drivekit/billing/internal/domain/user"
	"github.com/drivekit/billing/internal/domain/usertier"
	ierr "github.com/drivekit/billing/internal/errors"
	"github.com/drivekit/billing/internal/gateway"
	"github.com/drivekit/billing/internal/logger"
	"github.com/drivekit/billing/internal/payments"
)

// ServiceParams bundles everything a service needs. All services share the
// same dependency surface so wiring stays uniform.
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	Cache  cache.Cache

	Processor payments.Processor

	Drive         gateway.DriveClient
	VPN           gateway.VPNClient
	ObjectStorage gateway.ObjectStorageClient

	TierRepo     tier.Repository
	UserRepo     user.Repository
	UserTierRepo usertier.Repository
	OverrideRepo override.Repository
	CouponRepo   coupon.Repository
}

func NewServiceParams(
	logger *logger.Logger,
	cfg *config.Configuration,
	cacheClient cache.Cache,
	processor payments.Processor,
	drive gateway.DriveClient,
	vpn gateway.VPNClient,
	objectStorage gateway.ObjectStorageClient,
	tierRepo tier.Repository,
	userRepo user.Repository,
	userTierRepo usertier.Repository,
	overrideRepo override.Repository,
	couponRepo coupon.Repository,
) ServiceParams {
	return ServiceParams{
		Logger:        logger,
		Config:        cfg,
		Cache:         cacheClient,
		Processor:     processor,
		Drive:         drive,
		VPN:           vpn,
		ObjectStorage: objectStorage,
		TierRepo:      tierRepo,
		UserRepo:      userRepo,
		UserTierRepo:  userTierRepo,
		OverrideRepo:  overrideRepo,
		CouponRepo:    couponRepo,
	}
}

func (p ServiceParams) Validate() error {
	if p.Logger == nil || p.Config == nil || p.Cache == nil {
		return ierr.NewError("missing base dependencies").
			WithHint("Logger, config and cache are required").
			Mark(ierr.ErrSystem)
	}
	if p.Processor == nil {
		return ierr.NewError("missing payments processor").
			WithHint("A payments processor client is required").
			Mark(ierr.ErrSystem)
	}
	if p.TierRepo == nil || p.UserRepo == nil || p.UserTierRepo == nil || p.OverrideRepo == nil || p.CouponRepo == nil {
		return ierr.NewError("missing repositories").
			WithHint("All domain repositories are required").
			Mark(ierr.ErrSystem)
	}
	return nil
}
