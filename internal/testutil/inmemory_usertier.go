package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/drivekit/billing/internal/domain/usertier"
)

// InMemoryUserTierStore is an in-memory implementation of
// usertier.Repository. FindByUserID returns links in id order, matching
// the stable ordering the real store guarantees.
type InMemoryUserTierStore struct {
	mu    sync.RWMutex
	links map[string]*usertier.UserTierLink
}

func NewInMemoryUserTierStore() *InMemoryUserTierStore {
	return &InMemoryUserTierStore{links: make(map[string]*usertier.UserTierLink)}
}

func (s *InMemoryUserTierStore) Insert(_ context.Context, link *usertier.UserTierLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *link
	s.links[link.ID] = &cp
	return nil
}

func (s *InMemoryUserTierStore) Update(_ context.Context, userID, oldTierID, newTierID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, link := range s.sorted() {
		if link.UserID == userID && link.TierID == oldTierID {
			s.links[link.ID].TierID = newTierID
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryUserTierStore) Delete(_ context.Context, userID, tierID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, link := range s.sorted() {
		if link.UserID == userID && link.TierID == tierID {
			delete(s.links, link.ID)
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryUserTierStore) DeleteAll(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, link := range s.links {
		if link.UserID == userID {
			delete(s.links, id)
		}
	}
	return nil
}

func (s *InMemoryUserTierStore) FindByUserID(_ context.Context, userID string) ([]*usertier.UserTierLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*usertier.UserTierLink
	for _, link := range s.sorted() {
		if link.UserID == userID {
			cp := *link
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemoryUserTierStore) sorted() []*usertier.UserTierLink {
	out := make([]*usertier.UserTierLink, 0, len(s.links))
	for _, link := range s.links {
		out = append(out, link)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *InMemoryUserTierStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links = make(map[string]*usertier.UserTierLink)
}
