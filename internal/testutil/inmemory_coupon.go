package testutil

import (
	"context"
	"sync"

	"github.com/drivekit/billing/internal/domain/coupon"
	ierr "github.com/drivekit/billing/internal/errors"
)

// InMemoryCouponStore is an in-memory implementation of coupon.Repository.
type InMemoryCouponStore struct {
	mu      sync.RWMutex
	tracked map[string]*coupon.TrackedCoupon
	usages  []*coupon.Usage
}

func NewInMemoryCouponStore() *InMemoryCouponStore {
	return &InMemoryCouponStore{tracked: make(map[string]*coupon.TrackedCoupon)}
}

// Track seeds a registry entry.
func (s *InMemoryCouponStore) Track(c *coupon.TrackedCoupon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.tracked[c.Code] = &cp
}

func (s *InMemoryCouponStore) GetTracked(_ context.Context, code string) (*coupon.TrackedCoupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.tracked[code]
	if !ok {
		return nil, ierr.NewError("coupon not tracked").
			WithHint("This coupon code is not in the tracked registry").
			Mark(ierr.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (s *InMemoryCouponStore) RecordUsage(_ context.Context, usage *coupon.Usage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.usages {
		if u.UserID == usage.UserID && u.Code == usage.Code {
			return nil
		}
	}
	cp := *usage
	s.usages = append(s.usages, &cp)
	return nil
}

func (s *InMemoryCouponStore) ListUsageByUser(_ context.Context, userID string) ([]*coupon.Usage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*coupon.Usage
	for _, u := range s.usages {
		if u.UserID == userID {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemoryCouponStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracked = make(map[string]*coupon.TrackedCoupon)
	s.usages = nil
}
