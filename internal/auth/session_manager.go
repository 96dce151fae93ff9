package auth

import (
	"context"
	"errors"

	errs "booklog/internal/errors"
	"booklog/internal/model"
)

// SessionManager ties token minting to the server-side session store.
// A session is valid only while both halves agree: the cookie token
// must verify and its JTI must still have a live record.
type SessionManager struct {
	tokens *TokenService
	store  SessionStoreInterface
}

// NewSessionManager creates a session manager.
func NewSessionManager(tokens *TokenService, store SessionStoreInterface) *SessionManager {
	return &SessionManager{tokens: tokens, store: store}
}

// Login establishes a session for an authenticated user and returns the
// cookie value. Callers invoke this exactly once per successful
// authentication, never on a failure path.
func (m *SessionManager) Login(ctx context.Context, user *model.User) (string, error) {
	tokenID, token, err := m.tokens.Mint(user.ID, user.Email)
	if err != nil {
		return "", err
	}
	identity := Identity{UserID: user.ID, Email: user.Email}
	if err := m.store.Put(ctx, tokenID, identity, m.tokens.TTL()); err != nil {
		return "", err
	}
	return token, nil
}

// Resolve maps a cookie value back to the identity it was issued for.
// Tampered, expired, and logged-out tokens all resolve to
// errs.ErrUnauthenticated.
func (m *SessionManager) Resolve(ctx context.Context, token string) (*Identity, error) {
	claims, err := m.tokens.Validate(token)
	if err != nil {
		return nil, errs.ErrUnauthenticated
	}

	identity, err := m.store.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, errs.ErrUnauthenticated
		}
		return nil, err
	}
	if identity.UserID != claims.UserID {
		return nil, errs.ErrUnauthenticated
	}
	return identity, nil
}

// ResolveSession checks an already-verified token's ID against the
// session store. The cookie middleware has validated the signature and
// expiry by the time this runs; what remains is whether the session is
// still alive and still belongs to the same user.
func (m *SessionManager) ResolveSession(ctx context.Context, tokenID string, userID uint) (*Identity, error) {
	if tokenID == "" {
		return nil, errs.ErrUnauthenticated
	}
	identity, err := m.store.Get(ctx, tokenID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, errs.ErrUnauthenticated
		}
		return nil, err
	}
	if identity.UserID != userID {
		return nil, errs.ErrUnauthenticated
	}
	return identity, nil
}

// Logout invalidates the session behind a cookie value. A token that is
// malformed or already logged out is not an error; only a store failure
// is reported.
func (m *SessionManager) Logout(ctx context.Context, token string) error {
	claims, err := m.tokens.Validate(token)
	if err != nil {
		// nothing server-side to invalidate
		return nil
	}
	return m.store.Delete(ctx, claims.ID)
}
