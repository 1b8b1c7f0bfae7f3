// Package cache keeps recently fetched profiles so page loads do not hit
// the backend on every request.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/selams/selams-web/internal/models"
)

// Profiles is a read-through cache keyed by user id. Get reports ok=false
// on a miss; errors are reserved for a broken cache.
type Profiles interface {
	Get(ctx context.Context, id string) (*models.Profile, bool, error)
	Set(ctx context.Context, p *models.Profile) error
	Delete(ctx context.Context, id string) error
}

const keyPrefix = "selams:profile:"

type RedisProfiles struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisProfiles(addr, password string, db int, ttl time.Duration) *RedisProfiles {
	return &RedisProfiles{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db}),
		ttl:    ttl,
	}
}

// Ping checks connectivity; callers treat failure as "run without cache".
func (c *RedisProfiles) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.client.Ping(ctx).Err()
}

func (c *RedisProfiles) Get(ctx context.Context, id string) (*models.Profile, bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var p models.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

func (c *RedisProfiles) Set(ctx context.Context, p *models.Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyPrefix+p.ID, raw, c.ttl).Err()
}

func (c *RedisProfiles) Delete(ctx context.Context, id string) error {
	return c.client.Del(ctx, keyPrefix+id).Err()
}

func (c *RedisProfiles) Close() error {
	return c.client.Close()
}

// Memory is an in-process cache used when Redis is not configured.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memEntry
}

type memEntry struct {
	profile models.Profile
	expires time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now, entries: map[string]memEntry{}}
}

func (m *Memory) Get(_ context.Context, id string) (*models.Profile, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, id)
		return nil, false, nil
	}
	p := e.profile
	return &p, true, nil
}

func (m *Memory) Set(_ context.Context, p *models.Profile) error {
	if m.ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[p.ID] = memEntry{profile: *p, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}
