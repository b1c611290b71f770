// Package testutil holds in-memory collaborators shared by package tests.
package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"coachfit/internal/auth"
)

// NewRedis starts a miniredis server bound to the test and returns a client for it.
func NewRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// Accounts is an AccountStore backed by a map.
type Accounts struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*auth.Account

	// FailSetActive makes SetActive return this error when set.
	FailSetActive error
}

func NewAccounts() *Accounts {
	return &Accounts{byID: make(map[int64]*auth.Account)}
}

func (s *Accounts) Create(_ context.Context, a auth.NewAccount) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findLocked(a.Identity) != nil {
		return nil, auth.ErrDuplicateIdentity
	}
	s.nextID++
	now := time.Now().UTC()
	acc := &auth.Account{
		ID:           s.nextID,
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		PasswordHash: a.PasswordHash,
		Role:         a.Role,
		City:         a.City,
		State:        a.State,
		IsActive:     a.Active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	value := a.Identity.Value
	if a.Identity.Channel == auth.ChannelEmail {
		acc.Email = &value
	} else {
		acc.Phone = &value
	}
	s.byID[acc.ID] = acc
	return clone(acc), nil
}

func (s *Accounts) FindByIdentity(_ context.Context, id auth.Identity) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.findLocked(id)), nil
}

func (s *Accounts) FindByID(_ context.Context, id int64) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.byID[id]), nil
}

func (s *Accounts) SetActive(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSetActive != nil {
		return s.FailSetActive
	}
	acc, ok := s.byID[id]
	if !ok {
		return auth.ErrAccountNotFound
	}
	acc.IsActive = active
	acc.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Accounts) UpdatePassword(_ context.Context, id int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.byID[id]
	if !ok {
		return auth.ErrAccountNotFound
	}
	acc.PasswordHash = hash
	acc.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Accounts) Update(_ context.Context, a *auth.Account) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.byID[a.ID]
	if !ok {
		return nil, auth.ErrAccountNotFound
	}
	if other := s.findLocked(a.Identity()); other != nil && other.ID != a.ID {
		return nil, auth.ErrDuplicateIdentity
	}
	updated := clone(a)
	updated.IsActive = stored.IsActive
	updated.CreatedAt = stored.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	s.byID[a.ID] = updated
	return clone(updated), nil
}

// Get returns a copy of the stored account or nil.
func (s *Accounts) Get(id int64) *auth.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.byID[id])
}

func (s *Accounts) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

func (s *Accounts) findLocked(id auth.Identity) *auth.Account {
	for _, acc := range s.byID {
		if acc.Identity() == id {
			return acc
		}
	}
	return nil
}

func clone(a *auth.Account) *auth.Account {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// Notifier records every message it is asked to send.
type Notifier struct {
	mu   sync.Mutex
	sent []auth.CodeMessage

	// Err is returned from SendCode after recording when set.
	Err error
}

func (n *Notifier) SendCode(_ context.Context, msg auth.CodeMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.Err
}

func (n *Notifier) Sent() []auth.CodeMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]auth.CodeMessage(nil), n.sent...)
}

// Last returns the newest message, or an error when nothing was sent.
func (n *Notifier) Last() (auth.CodeMessage, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return auth.CodeMessage{}, errors.New("no message sent")
	}
	return n.sent[len(n.sent)-1], nil
}

// FastHasher is a PasswordHasher for tests that do not care about bcrypt cost.
type FastHasher struct{}

func (FastHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (FastHasher) Compare(hash, password string) bool {
	return hash == "hashed:"+password
}
