package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/fashionplace-backend/pkg/config"
	redisclient "github.com/angelmondragon/fashionplace-backend/pkg/redis"
)

const guestTokenBytes = 32

var ErrInvalidGuestToken = errors.New("invalid guest session token")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	GuestSessionKey(token string) string
}

// GuestManager mints and validates anonymous cart session tokens. A token is
// valid while its Redis key exists; invalidating it after merge cuts the
// anonymous identity loose.
type GuestManager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
}

// GuestValidator exposes the read-only surface needed by middleware.
type GuestValidator interface {
	Validate(ctx context.Context, token string) (bool, error)
}

// NewGuestManager constructs a guest session manager backed by Redis.
func NewGuestManager(client *redisclient.Client, cfg config.SessionConfig) (*GuestManager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	ttl := cfg.GuestTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("guest session ttl must be positive")
	}

	return &GuestManager{
		store: client,
		keyer: client,
		ttl:   ttl,
	}, nil
}

// Mint creates a fresh guest token and stores it with the configured TTL.
func (m *GuestManager) Mint(ctx context.Context) (string, error) {
	token, err := generateGuestToken()
	if err != nil {
		return "", err
	}
	if err := m.store.Set(ctx, m.keyer.GuestSessionKey(token), "1", m.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// Validate reports whether the provided token is still live.
func (m *GuestManager) Validate(ctx context.Context, token string) (bool, error) {
	if strings.TrimSpace(token) == "" {
		return false, nil
	}
	if _, err := m.store.Get(ctx, m.keyer.GuestSessionKey(token)); err != nil {
		if errors.Is(err, redislib.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Touch extends the token TTL so active guests do not lose their cart mid-browse.
func (m *GuestManager) Touch(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrInvalidGuestToken
	}
	return m.store.Set(ctx, m.keyer.GuestSessionKey(token), "1", m.ttl)
}

// Invalidate deletes the token. Used after a merge folds the anonymous cart
// into the customer cart.
func (m *GuestManager) Invalidate(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("guest token is required")
	}
	return m.store.Del(ctx, m.keyer.GuestSessionKey(token))
}

func generateGuestToken() (string, error) {
	bytes := make([]byte, guestTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating guest token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
