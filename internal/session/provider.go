package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"portal/internal/auth"
	"portal/internal/model"
)

// Session is the result of a successful login.
type Session struct {
	ID        string         `json:"-"`
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Identity  model.Identity `json:"user"`
}

// Provider is the single owner of session state. It is built once at
// startup and handed to whatever needs the current identity.
type Provider struct {
	store  Store
	issuer string
	key    string
	ttl    time.Duration
}

func NewProvider(store Store, issuer, signingKey string, ttl time.Duration) *Provider {
	return &Provider{store: store, issuer: issuer, key: signingKey, ttl: ttl}
}

// Login stores identity under a fresh session id and returns a signed token
// pointing at it.
func (p *Provider) Login(ctx context.Context, identity model.Identity) (Session, error) {
	sid := uuid.NewString()
	token, exp, err := auth.Issue(sid, identity.UserID, identity.Role, p.issuer, p.key, p.ttl)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	if err := p.store.Put(ctx, sid, identity, p.ttl); err != nil {
		return Session{}, fmt.Errorf("store session: %w", err)
	}
	return Session{ID: sid, Token: token, ExpiresAt: exp, Identity: identity}, nil
}

// Resolve validates token and loads the identity it refers to.
func (p *Provider) Resolve(ctx context.Context, token string) (model.Identity, string, error) {
	claims, err := auth.Parse(token, p.key, p.issuer)
	if err != nil {
		return model.Identity{}, "", ErrNotFound
	}
	identity, err := p.store.Get(ctx, claims.SessionID)
	if err != nil {
		return model.Identity{}, "", err
	}
	if identity.Role != claims.Role {
		return model.Identity{}, "", ErrNotFound
	}
	return identity, claims.SessionID, nil
}

// Logout forgets the session behind token and returns its id.
func (p *Provider) Logout(ctx context.Context, token string) (string, error) {
	claims, err := auth.Parse(token, p.key, p.issuer)
	if err != nil {
		return "", ErrNotFound
	}
	return claims.SessionID, p.store.Delete(ctx, claims.SessionID)
}
