package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/drivekit/billing/internal/domain/tier"
	ierr "github.com/drivekit/billing/internal/errors"
	"github.com/drivekit/billing/internal/types"
)

// InMemoryTierStore is an in-memory implementation of tier.Repository.
type InMemoryTierStore struct {
	mu    sync.RWMutex
	tiers map[string]*tier.Tier
}

func NewInMemoryTierStore() *InMemoryTierStore {
	return &InMemoryTierStore{tiers: make(map[string]*tier.Tier)}
}

// Add seeds a catalog entry.
func (s *InMemoryTierStore) Add(t *tier.Tier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.tiers[t.ID] = &cp
}

func (s *InMemoryTierStore) FindByProductID(_ context.Context, productID string, billingType *types.BillingType) (*tier.Tier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*tier.Tier
	for _, t := range s.tiers {
		if t.ProductID != productID {
			continue
		}
		if billingType != nil && t.BillingType != *billingType {
			continue
		}
		matches = append(matches, t)
	}
	if len(matches) == 0 {
		return nil, ierr.NewError("tier not found").
			WithHint("No tier is registered for this product").
			Mark(ierr.ErrNotFound)
	}

	// Deterministic pick: subscription first, then id order.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].BillingType != matches[j].BillingType {
			return matches[i].BillingType == types.BillingTypeSubscription
		}
		return matches[i].ID < matches[j].ID
	})
	cp := *matches[0]
	return &cp, nil
}

func (s *InMemoryTierStore) FindByTierID(_ context.Context, tierID string) (*tier.Tier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tiers[tierID]
	if !ok {
		return nil, ierr.NewError("tier not found").
			WithHint("No tier exists with this id").
			Mark(ierr.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (s *InMemoryTierStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiers = make(map[string]*tier.Tier)
}
