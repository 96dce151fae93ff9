package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

// ErrSessionNotFound is returned when no live record exists for a token ID.
var ErrSessionNotFound = errors.New("session not found")

// Identity is the session payload: the minimum needed to scope requests
// to a user. The password hash is deliberately never stored here.
type Identity struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
}

// SessionStoreInterface defines the interface for session record storage.
type SessionStoreInterface interface {
	Put(ctx context.Context, tokenID string, identity Identity, ttl time.Duration) error
	Get(ctx context.Context, tokenID string) (*Identity, error)
	Delete(ctx context.Context, tokenID string) error
}

// SessionStore keeps session records in Redis. Unlike the lookaside
// cache client, it reports redis failures: losing a session write must
// fail the login, and a dead redis must not look like a valid session.
type SessionStore struct {
	client *redis.Client
}

// Ensure SessionStore implements SessionStoreInterface
var _ SessionStoreInterface = (*SessionStore)(nil)

// NewSessionStore creates a session store on an existing redis connection.
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

// Put stores a session record with TTL.
func (s *SessionStore) Put(ctx context.Context, tokenID string, identity Identity, ttl time.Duration) error {
	payload, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+tokenID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Get retrieves a session record. Expired and deleted records both
// return ErrSessionNotFound.
func (s *SessionStore) Get(ctx context.Context, tokenID string) (*Identity, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+tokenID).Bytes()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var identity Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &identity, nil
}

// Delete removes a session record. Deleting an absent record succeeds,
// which makes logout idempotent.
func (s *SessionStore) Delete(ctx context.Context, tokenID string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+tokenID).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
