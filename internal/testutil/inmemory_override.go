package testutil

import (
	"context"
	"sync"

	"github.com/drivekit/billing/internal/domain/override"
	ierr "github.com/drivekit/billing/internal/errors"
	"github.com/drivekit/billing/internal/types"
)

// InMemoryOverrideStore is an in-memory implementation of
// override.Repository.
type InMemoryOverrideStore struct {
	mu        sync.RWMutex
	overrides map[string]*override.FeatureOverride
}

func NewInMemoryOverrideStore() *InMemoryOverrideStore {
	return &InMemoryOverrideStore{overrides: make(map[string]*override.FeatureOverride)}
}

func (s *InMemoryOverrideStore) GetByUserID(_ context.Context, userID string) (*override.FeatureOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.overrides[userID]
	if !ok {
		return nil, ierr.NewError("no overrides for user").
			WithHint("The user has no manual feature overrides").
			Mark(ierr.ErrNotFound)
	}
	cp := *o
	cp.Features = make(map[types.ServiceKind]override.Flag, len(o.Features))
	for svc, flag := range o.Features {
		cp.Features[svc] = flag
	}
	return &cp, nil
}

func (s *InMemoryOverrideStore) Save(_ context.Context, o *override.FeatureOverride) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	cp.Features = make(map[types.ServiceKind]override.Flag, len(o.Features))
	for svc, flag := range o.Features {
		cp.Features[svc] = flag
	}
	s.overrides[o.UserID] = &cp
	return nil
}

func (s *InMemoryOverrideStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides = make(map[string]*override.FeatureOverride)
}
