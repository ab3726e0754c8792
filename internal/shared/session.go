package shared

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore keeps authenticated sessions in Redis keyed by opaque tokens.
// Clients present the token in the X-Session-Token header (or the session
// cookie, for the browser POS client).
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

type sessionPayload struct {
	UserID   int64     `json:"user_id"`
	IssuedAt time.Time `json:"issued_at"`
}

// NewSessionStore constructs a SessionStore.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl, prefix: "arcadia:session:"}
}

// Create issues a new session token for the given user.
func (s *SessionStore) Create(ctx context.Context, userID int64) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(sessionPayload{UserID: userID, IssuedAt: time.Now().UTC()})
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, s.prefix+token, payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("shared/session: store: %w", err)
	}
	return token, nil
}

// Resolve returns the user id behind a token and slides its expiry.
func (s *SessionStore) Resolve(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrSessionNotFound
	}
	raw, err := s.client.Get(ctx, s.prefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrSessionNotFound
		}
		return 0, fmt.Errorf("shared/session: load: %w", err)
	}
	var payload sessionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return 0, fmt.Errorf("shared/session: decode: %w", err)
	}
	_ = s.client.Expire(ctx, s.prefix+token, s.ttl).Err()
	return payload.UserID, nil
}

// Destroy removes a session token.
func (s *SessionStore) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.prefix+token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("shared/session: destroy: %w", err)
	}
	return nil
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("shared/session: token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
