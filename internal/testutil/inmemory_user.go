package testutil

import (
	"context"
	"sync"

	"github.com/drivekit/billing/internal/domain/user"
	ierr "github.com/drivekit/billing/internal/errors"
)

// InMemoryUserStore is an in-memory implementation of user.Repository.
type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]*user.User
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{users: make(map[string]*user.User)}
}

func (s *InMemoryUserStore) Create(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *InMemoryUserStore) Update(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return ierr.NewError("user not found").
			WithHint("No user exists with this id").
			Mark(ierr.ErrNotFound)
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *InMemoryUserStore) GetByID(_ context.Context, id string) (*user.User, error) {
	return s.find(func(u *user.User) bool { return u.ID == id })
}

func (s *InMemoryUserStore) GetByUUID(_ context.Context, uuid string) (*user.User, error) {
	return s.find(func(u *user.User) bool { return u.UUID == uuid })
}

func (s *InMemoryUserStore) GetByEmail(_ context.Context, email string) (*user.User, error) {
	return s.find(func(u *user.User) bool { return u.Email == email })
}

func (s *InMemoryUserStore) GetByCustomerID(_ context.Context, customerID string) (*user.User, error) {
	return s.find(func(u *user.User) bool { return u.CustomerID == customerID })
}

func (s *InMemoryUserStore) find(match func(*user.User) bool) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ierr.NewError("user not found").
		WithHint("No user matches this identity").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryUserStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make(map[string]*user.User)
}
