package auth

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/davidbz/cloudprice/internal/domain"
	"github.com/davidbz/cloudprice/internal/observability"
)

const sessionKeyPrefix = "session:"

// User is the identity taken from the id_token.
type User struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// Subscription is one Azure subscription visible to the signed-in user.
type Subscription struct {
	ID             string `json:"id"`
	SubscriptionID string `json:"subscriptionId"`
	TenantID       string `json:"tenantId"`
	DisplayName    string `json:"displayName"`
	State          string `json:"state"`
}

// Session is the server-side state behind the session cookie.
type Session struct {
	States             map[string]string `json:"states,omitempty"`
	User               *User             `json:"user,omitempty"`
	AzureToken         string            `json:"azure_token,omitempty"`
	AzureSubscriptions []Subscription    `json:"azure_subscriptions,omitempty"`
}

// SessionStore keeps sessions in a CacheStore under session:{id}.
type SessionStore struct {
	cache domain.CacheStore
	ttl   time.Duration
}

// NewSessionStore creates a session store with the given lifetime.
func NewSessionStore(cache domain.CacheStore, ttl time.Duration) *SessionStore {
	return &SessionStore{cache: cache, ttl: ttl}
}

// NewSessionID returns a fresh random session id.
func NewSessionID() string {
	return uuid.NewString()
}

// Load returns the session for id, or false when it is missing or unreadable.
func (s *SessionStore) Load(ctx context.Context, id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	data, ok := s.cache.Get(ctx, sessionKeyPrefix+id)
	if !ok {
		return nil, false
	}
	var session Session
	if err := sonic.Unmarshal(data, &session); err != nil {
		observability.FromContext(ctx).Warn("discarding unreadable session", observability.Error(err))
		return nil, false
	}
	return &session, true
}

// Save writes the session and refreshes its lifetime.
func (s *SessionStore) Save(ctx context.Context, id string, session *Session) bool {
	data, err := sonic.Marshal(session)
	if err != nil {
		observability.FromContext(ctx).Warn("failed to encode session", observability.Error(err))
		return false
	}
	return s.cache.Set(ctx, sessionKeyPrefix+id, data, s.ttl)
}

// Delete removes the session.
func (s *SessionStore) Delete(ctx context.Context, id string) bool {
	return s.cache.Delete(ctx, sessionKeyPrefix+id)
}
