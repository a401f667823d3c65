package service

import (
	"context"

	"github.com/drivekit/billing/internal/domain/override"
	ierr "github.com/drivekit/billing/internal/errors"
	"github.com/drivekit/billing/internal/types"
)

// OverrideService applies manual per-service feature grants requested by
// support tooling, independent of billing events.
type OverrideService interface {
	// Apply merges the incoming partial mapping into the stored record.
	// Services absent from the payload keep their previous value; an empty
	// payload is a no-op that still succeeds.
	Apply(ctx context.Context, userID string, features map[types.ServiceKind]override.Flag) (*override.FeatureOverride, error)

	Get(ctx context.Context, userID string) (*override.FeatureOverride, error)
}

type overrideService struct {
	ServiceParams
	entitlements EntitlementService
}

func NewOverrideService(params ServiceParams, entitlements EntitlementService) OverrideService {
	return &overrideService{ServiceParams: params, entitlements: entitlements}
}

func (s *overrideService) Apply(ctx context.Context, userID string, features map[types.ServiceKind]override.Flag) (*override.FeatureOverride, error) {
	if _, err := s.UserRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	stored, err := s.OverrideRepo.GetByUserID(ctx, userID)
	if err != nil {
		if !ierr.IsNotFound(err) {
			return nil, err
		}
		stored = override.New(userID)
	}

	stored.Merge(features)
	if err := stored.Validate(); err != nil {
		return nil, err
	}

	if err := s.OverrideRepo.Save(ctx, stored); err != nil {
		return nil, err
	}

	s.entitlements.InvalidateCache(ctx, userID)
	s.Logger.Infow("feature overrides applied",
		"user_id", userID,
		"services", len(features),
	)
	return stored, nil
}

func (s *overrideService) Get(ctx context.Context, userID string) (*override.FeatureOverride, error) {
	return s.OverrideRepo.GetByUserID(ctx, userID)
}
