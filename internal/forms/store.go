package forms

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/retailerp-backend/internal/totals"
	"github.com/angelmondragon/retailerp-backend/pkg/redis"
)

// ErrFormNotFound is returned by stores for unknown or expired forms.
var ErrFormNotFound = errors.New("form not found")

// Store persists forms between requests.
type Store interface {
	Get(ctx context.Context, id string) (*Form, error)
	Save(ctx context.Context, form *Form) error
	Delete(ctx context.Context, id string) error
}

type redisBackend interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	FormKey(formID string) string
}

// RedisStore keeps each form as a JSON document with a sliding TTL.
type RedisStore struct {
	backend redisBackend
	ttl     time.Duration
}

func NewRedisStore(backend redisBackend, ttl time.Duration) (*RedisStore, error) {
	if backend == nil {
		return nil, errors.New("redis backend required")
	}
	return &RedisStore{backend: backend, ttl: ttl}, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Form, error) {
	var form Form
	if err := s.backend.GetJSON(ctx, s.backend.FormKey(id), &form); err != nil {
		if errors.Is(err, redis.ErrCacheMiss) {
			return nil, ErrFormNotFound
		}
		return nil, err
	}
	return &form, nil
}

func (s *RedisStore) Save(ctx context.Context, form *Form) error {
	return s.backend.SetJSON(ctx, s.backend.FormKey(form.ID), form, s.ttl)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.backend.Del(ctx, s.backend.FormKey(id))
}

// MemoryStore is a process-local store for tests and single-node dev runs.
type MemoryStore struct {
	mu    sync.Mutex
	forms map[string]Form
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{forms: map[string]Form{}}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	form, ok := s.forms[id]
	if !ok {
		return nil, ErrFormNotFound
	}
	return cloneForm(form), nil
}

func (s *MemoryStore) Save(_ context.Context, form *Form) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forms[form.ID] = *cloneForm(*form)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.forms, id)
	return nil
}

func cloneForm(f Form) *Form {
	out := f
	out.Lines = append([]totals.LineItem(nil), f.Lines...)
	for i := range out.Lines {
		if stock := out.Lines[i].CurrentStock; stock != nil {
			v := *stock
			out.Lines[i].CurrentStock = &v
		}
	}
	out.Advisories = append([]totals.Advisory(nil), f.Advisories...)
	return &out
}
