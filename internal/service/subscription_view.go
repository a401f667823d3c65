package service

import (
	"context"

	"github.com/drivekit/billing/internal/cache"
	"github.com/drivekit/billing/internal/domain/user"
	ierr "github.com/drivekit/billing/internal/errors"
	"github.com/drivekit/billing/internal/types"
)

// SubscriptionViewService answers "what is this user's live billing
// status" from the processor, behind a short-TTL cache. A stale entry
// self-corrects on the next successful re-resolution, which is why the TTL
// stays in minutes.
type SubscriptionViewService interface {
	Status(ctx context.Context, usr *user.User) (types.UserBillingStatus, error)

	// StatusForUser resolves the local user record first; an unknown id
	// propagates ErrNotFound.
	StatusForUser(ctx context.Context, userID string) (types.UserBillingStatus, error)

	// ActiveSubscription returns the customer's active recurring
	// subscription, or ErrNotFound when there is none.
	ActiveSubscription(ctx context.Context, customerID string) (string, error)

	// Invalidate drops the cached view for a customer. Best effort; it
	// never fails the caller.
	Invalidate(ctx context.Context, customerID string)
}

type subscriptionViewService struct {
	ServiceParams
}

func NewSubscriptionViewService(params ServiceParams) SubscriptionViewService {
	return &subscriptionViewService{ServiceParams: params}
}

func (s *subscriptionViewService) Status(ctx context.Context, usr *user.User) (types.UserBillingStatus, error) {
	if usr.Lifetime {
		return types.UserBillingStatusLifetime, nil
	}
	if usr.CustomerID == "" {
		return types.UserBillingStatusFree, nil
	}

	key := cache.GenerateKey(cache.PrefixSubscriptionView, usr.CustomerID)
	if cached, found := s.Cache.Get(ctx, key); found {
		if status, ok := cache.UnmarshalValue[string](cached); ok {
			return types.UserBillingStatus(status), nil
		}
	}

	status := types.UserBillingStatusFree
	_, err := s.Processor.GetActiveSubscription(ctx, usr.CustomerID)
	if err != nil {
		if !ierr.IsNotFound(err) {
			return "", err
		}
	} else {
		status = types.UserBillingStatusSubscriber
	}

	s.Cache.Set(ctx, key, string(status), s.Config.Cache.SubscriptionTTL)
	return status, nil
}

func (s *subscriptionViewService) StatusForUser(ctx context.Context, userID string) (types.UserBillingStatus, error) {
	usr, err := s.UserRepo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.Status(ctx, usr)
}

func (s *subscriptionViewService) ActiveSubscription(ctx context.Context, customerID string) (string, error) {
	sub, err := s.Processor.GetActiveSubscription(ctx, customerID)
	if err != nil {
		return "", err
	}
	return sub.ID, nil
}

func (s *subscriptionViewService) Invalidate(ctx context.Context, customerID string) {
	s.Cache.Delete(ctx, cache.GenerateKey(cache.PrefixSubscriptionView, customerID))
}
