package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// storageKey is the single key the whole collection is persisted under.
const storageKey = "mediconnect:appointments"

// ErrCorruptSnapshot is returned when the persisted collection cannot be
// decoded. The manager falls back to the bundled seed dataset.
var ErrCorruptSnapshot = errors.New("appointments: corrupt persisted snapshot")

// Store is the durable storage collaborator. The manager saves the full
// collection as a JSON array on every successful mutation and loads it once
// at startup. A nil slice with a nil error means no snapshot exists yet.
type Store interface {
	Load(ctx context.Context) ([]Appointment, error)
	Save(ctx context.Context, appts []Appointment) error
}

// RedisStore persists the collection under a fixed redis key.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a redis-backed store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("appointments: redis client required")
	}
	return &RedisStore{redis: redisClient}
}

// Load reads the persisted collection. Missing key yields (nil, nil);
// undecodable payloads yield ErrCorruptSnapshot.
func (s *RedisStore) Load(ctx context.Context) ([]Appointment, error) {
	data, err := s.redis.Get(ctx, storageKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: load snapshot: %w", err)
	}

	var appts []Appointment
	if err := json.Unmarshal(data, &appts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return appts, nil
}

// Save writes the full collection as one JSON array.
func (s *RedisStore) Save(ctx context.Context, appts []Appointment) error {
	data, err := json.Marshal(appts)
	if err != nil {
		return fmt.Errorf("appointments: marshal snapshot: %w", err)
	}
	if err := s.redis.Set(ctx, storageKey, data, 0).Err(); err != nil {
		return fmt.Errorf("appointments: save snapshot: %w", err)
	}
	return nil
}

// MemoryStore keeps the snapshot in memory. Tests and the seed tool use it.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load decodes the held snapshot, if any.
func (s *MemoryStore) Load(ctx context.Context) ([]Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, nil
	}
	var appts []Appointment
	if err := json.Unmarshal(s.data, &appts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return appts, nil
}

// Save replaces the held snapshot.
func (s *MemoryStore) Save(ctx context.Context, appts []Appointment) error {
	data, err := json.Marshal(appts)
	if err != nil {
		return fmt.Errorf("appointments: marshal snapshot: %w", err)
	}
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}
