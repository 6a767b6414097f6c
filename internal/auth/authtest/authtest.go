// Package authtest provides in-memory fakes for the auth service's
// dependencies, shared by service-level and handler-level tests.
package authtest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"auth_service/internal/auth"
	"auth_service/internal/config"
	"auth_service/internal/lib/password"
	"auth_service/internal/lib/token"
	"auth_service/internal/models"
	"auth_service/internal/notify"
	"auth_service/internal/storage"
)

// Store is an in-memory stand-in for the postgres repository.
type Store struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]models.User
}

func NewStore() *Store {
	return &Store{nextID: 1, users: make(map[int64]models.User)}
}

func (s *Store) SaveUser(_ context.Context, email string, passHash []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return 0, storage.ErrUserExists
		}
	}

	id := s.nextID
	s.nextID++
	s.users[id] = models.User{ID: id, Email: email, PassHash: passHash, InterviewsLeft: 2}
	return id, nil
}

func (s *Store) SaveOAuthUser(_ context.Context, email, googleID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return 0, storage.ErrUserExists
		}
	}

	id := s.nextID
	s.nextID++
	s.users[id] = models.User{ID: id, Email: email, GoogleID: googleID, Verified: true, InterviewsLeft: 2}
	return id, nil
}

func (s *Store) SetEmailVerified(_ context.Context, uid int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[uid]
	if !ok {
		return storage.ErrUserNotFound
	}
	u.Verified = true
	s.users[uid] = u
	return nil
}

func (s *Store) UpdatePassword(_ context.Context, uid int64, passHash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[uid]
	if !ok {
		return storage.ErrUserNotFound
	}
	u.PassHash = passHash
	s.users[uid] = u
	return nil
}

func (s *Store) LinkGoogleID(_ context.Context, uid int64, googleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[uid]
	if !ok {
		return storage.ErrUserNotFound
	}
	u.GoogleID = googleID
	u.Verified = true
	s.users[uid] = u
	return nil
}

func (s *Store) User(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, storage.ErrUserNotFound
}

func (s *Store) UserByID(_ context.Context, id int64) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) DeleteAllUsers(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.users))
	s.users = make(map[int64]models.User)
	return n, nil
}

// Delete removes one record, simulating an account vanishing between token
// issuance and use.
func (s *Store) Delete(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// Marker is an in-memory stand-in for the redis spent-token marks.
type Marker struct {
	mu   sync.Mutex
	used map[string]bool
}

func NewMarker() *Marker {
	return &Marker{used: make(map[string]bool)}
}

func (m *Marker) MarkResetTokenUsed(_ context.Context, digest string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.used[digest] {
		return false, nil
	}
	m.used[digest] = true
	return true, nil
}

func (m *Marker) IsResetTokenUsed(_ context.Context, digest string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used[digest], nil
}

// Sent is one recorded notification.
type Sent struct {
	Purpose string
	Email   string
	Token   string
}

// Notifier records notifications instead of publishing them.
type Notifier struct {
	mu      sync.Mutex
	sent    []Sent
	FailAll bool
}

func (n *Notifier) record(purpose, email, tok string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.FailAll {
		return errors.New("queue unreachable")
	}
	n.sent = append(n.sent, Sent{Purpose: purpose, Email: email, Token: tok})
	return nil
}

func (n *Notifier) SendVerificationLink(_ context.Context, email, tok string) error {
	return n.record(notify.PurposeEmailVerify, email, tok)
}

func (n *Notifier) SendResetLink(_ context.Context, email, tok string) error {
	return n.record(notify.PurposePasswordReset, email, tok)
}

func (n *Notifier) SendWelcome(_ context.Context, email string) error {
	return n.record(notify.PurposeWelcome, email, "")
}

// ByPurpose returns the recorded notifications with the given purpose.
func (n *Notifier) ByPurpose(purpose string) []Sent {
	n.mu.Lock()
	defer n.mu.Unlock()

	var out []Sent
	for _, s := range n.sent {
		if s.Purpose == purpose {
			out = append(out, s)
		}
	}
	return out
}

// TTLs returns the token configuration used across tests.
func TTLs() config.Tokens {
	return config.Tokens{
		Secret:              "test-secret",
		SessionRegisterTTL:  12 * time.Hour,
		SessionLoginTTL:     24 * time.Hour,
		EmailVerifyTokenTTL: time.Hour,
		ResetTokenTTL:       time.Hour,
	}
}

// New wires a real auth service onto in-memory fakes.
func New(t *testing.T) (*auth.Auth, *Store, *Notifier, *token.Engine) {
	t.Helper()

	store := NewStore()
	notifier := &Notifier{}
	engine := token.New(TTLs().Secret)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	a := auth.New(log, store, store, NewMarker(), engine, password.NewHasher(10), notifier, TTLs(), true)

	return a, store, notifier, engine
}
