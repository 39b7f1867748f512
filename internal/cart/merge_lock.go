package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultMergeLockTTL = 10 * time.Second

// MergeLocker serializes cart merges per customer.
type MergeLocker interface {
	Acquire(ctx context.Context, customerID uuid.UUID) (release func(), acquired bool, err error)
}

// lockStore defines the Redis operations used by RedisMergeLocker.
type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	MergeLockKey(customerID string) string
}

// RedisMergeLocker implements MergeLocker using Redis SETNX + TTL.
type RedisMergeLocker struct {
	client lockStore
	ttl    time.Duration
}

// NewRedisMergeLocker constructs a Redis-backed merge locker.
func NewRedisMergeLocker(client lockStore, ttl time.Duration) (*RedisMergeLocker, error) {
	if client == nil {
		return nil, errors.New("redis client required for merge lock")
	}
	if ttl <= 0 {
		ttl = defaultMergeLockTTL
	}
	return &RedisMergeLocker{client: client, ttl: ttl}, nil
}

// Acquire tries to own the customer's merge lock for the configured TTL.
// The release func frees the lock only while the owner value still matches.
func (l *RedisMergeLocker) Acquire(ctx context.Context, customerID uuid.UUID) (func(), bool, error) {
	key := l.client.MergeLockKey(customerID.String())
	owner := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, owner, l.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("setnx: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		value, err := l.client.Get(ctx, key)
		if err != nil {
			return
		}
		if value != owner {
			return
		}
		_ = l.client.Del(ctx, key)
	}
	return release, true, nil
}
