// Package idempotency keeps Pub/Sub consumers from applying the same outbox
// event twice. Pub/Sub delivers at least once, so every consumer claims the
// event id in Redis before doing work.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// Store is the slice of the redis client a Manager needs.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

var (
	errStoreRequired    = errors.New("idempotency store is required")
	errNegativeTTL      = errors.New("ttl must be non-negative")
	errConsumerRequired = errors.New("consumer name is required")
	errEventIDRequired  = errors.New("event id is required")
)

// Manager claims (consumer, event id) pairs for ttl. Keys look like
// erp:idempotency:evt:processed:<consumer>:<event_id>.
type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewManager(store Store, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errStoreRequired
	}
	if ttl < 0 {
		return nil, errNegativeTTL
	}
	return &Manager{store: store, ttl: ttl, now: time.Now}, nil
}

// Claim reports whether this call took ownership of the event. false means
// another delivery already claimed it within the ttl.
func (m *Manager) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	// The value is only for operators inspecting Redis.
	claimed, err := m.store.SetNX(ctx, key, m.now().UTC().Format(time.RFC3339), m.ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return claimed, nil
}

// Release drops a claim so the next redelivery is processed again.
func (m *Manager) Release(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return err
	}
	if err := m.store.Del(ctx, key); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

// ProcessOnce runs fn only if the claim succeeds and reports whether fn ran.
// When fn fails the claim is released and both errors are returned.
func (m *Manager) ProcessOnce(ctx context.Context, consumer string, eventID uuid.UUID, fn func(context.Context) error) (bool, error) {
	claimed, err := m.Claim(ctx, consumer, eventID)
	if err != nil || !claimed {
		return false, err
	}
	if err := fn(ctx); err != nil {
		return false, multierr.Append(err, m.Release(ctx, consumer, eventID))
	}
	return true, nil
}

func (m *Manager) key(consumer string, eventID uuid.UUID) (string, error) {
	switch {
	case consumer == "":
		return "", errConsumerRequired
	case eventID == uuid.Nil:
		return "", errEventIDRequired
	}
	return m.store.IdempotencyKey("evt:processed:"+consumer, eventID.String()), nil
}
