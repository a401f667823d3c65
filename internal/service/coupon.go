package service

import (
	"context"

	"github.com/samber/lo"

	"github.com/drivekit/billing/internal/cache"
	"github.com/drivekit/billing/internal/domain/coupon"
	ierr "github.com/drivekit/billing/internal/errors"
)

// CouponService attributes tracked coupon redemptions to users. Coupons
// outside the tracked registry are expected and silently ignored.
type CouponService interface {
	// TrackUsage records a redemption if the code is tracked. It never
	// returns an error for unregistered codes.
	TrackUsage(ctx context.Context, userID, code string) error

	// UsedCodes lists the tracked coupon codes a user has redeemed, behind
	// a long-TTL cache.
	UsedCodes(ctx context.Context, userID string) ([]string, error)

	// Invalidate drops the cached used-coupon list for a user.
	Invalidate(ctx context.Context, userID string)
}

type couponService struct {
	ServiceParams
}

func NewCouponService(params ServiceParams) CouponService {
	return &couponService{ServiceParams: params}
}

func (s *couponService) TrackUsage(ctx context.Context, userID, code string) error {
	if code == "" {
		return nil
	}

	tracked, err := s.CouponRepo.GetTracked(ctx, code)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.Logger.Debugw("coupon is not tracked, ignoring",
				"user_id", userID,
				"code", code,
			)
			return nil
		}
		return err
	}

	if err := s.CouponRepo.RecordUsage(ctx, coupon.NewUsage(userID, tracked.Code)); err != nil {
		return err
	}

	s.Invalidate(ctx, userID)
	return nil
}

func (s *couponService) UsedCodes(ctx context.Context, userID string) ([]string, error) {
	key := cache.GenerateKey(cache.PrefixUsedCoupons, userID)
	if cached, found := s.Cache.Get(ctx, key); found {
		if codes, ok := cache.UnmarshalValue[[]string](cached); ok {
			return codes, nil
		}
	}

	usages, err := s.CouponRepo.ListUsageByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	codes := lo.Map(usages, func(u *coupon.Usage, _ int) string {
		return u.Code
	})

	s.Cache.Set(ctx, key, codes, s.Config.Cache.UsedCouponsTTL)
	return codes, nil
}

func (s *couponService) Invalidate(ctx context.Context, userID string) {
	s.Cache.Delete(ctx, cache.GenerateKey(cache.PrefixUsedCoupons, userID))
}
