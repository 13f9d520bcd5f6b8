package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"contractiq/internal/config"
	"contractiq/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ErrCacheMiss is returned when a key is not found in the cache
var ErrCacheMiss = fmt.Errorf("cache miss")

// StatusSnapshot is the cached answer for the status-polling endpoint.
// Clients poll aggressively; a short-lived snapshot keeps that load off the
// record store without assuming any poll frequency.
type StatusSnapshot struct {
	Status   model.JobStatus `json:"status"`
	Progress int             `json:"progress"`
	Error    *model.JobError `json:"error,omitempty"`
}

// Cache serves short-lived status snapshots
type Cache interface {
	// GetStatus returns a cached snapshot, or ErrCacheMiss
	GetStatus(ctx context.Context, jobID string) (*StatusSnapshot, error)

	// SetStatus caches a snapshot for the configured TTL
	SetStatus(ctx context.Context, jobID string, snap StatusSnapshot) error

	// InvalidateStatus drops a cached snapshot after a state transition
	InvalidateStatus(ctx context.Context, jobID string) error

	// Ping tests the connection to the cache
	Ping(ctx context.Context) error

	// Close releases resources used by the cache
	Close() error
}

// RedisCache implements the Cache interface using Redis
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a new Redis cache instance
func NewRedisCache(cfg config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Error().Err(err).Msg("Failed to connect to Redis")
		return nil, err
	}

	ttl := time.Duration(cfg.StatusTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 2 * time.Second
	}

	log.Info().
		Str("address", cfg.Address).
		Str("prefix", cfg.Prefix).
		Int("db", cfg.DB).
		Dur("statusTTL", ttl).
		Msg("Redis cache initialized successfully")

	return &RedisCache{
		client: client,
		prefix: cfg.Prefix,
		ttl:    ttl,
	}, nil
}

func (c *RedisCache) statusKey(jobID string) string {
	return c.prefix + ":status:" + jobID
}

func (c *RedisCache) GetStatus(ctx context.Context, jobID string) (*StatusSnapshot, error) {
	key := c.statusKey(jobID)

	result, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		log.Debug().Str("key", key).Msg("Cache miss")
		return nil, ErrCacheMiss
	} else if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Error getting status snapshot from Redis")
		return nil, err
	}

	var snap StatusSnapshot
	if err := json.Unmarshal(result, &snap); err != nil {
		// A corrupt snapshot reads as a miss
		return nil, ErrCacheMiss
	}

	log.Debug().Str("key", key).Msg("Cache hit")
	return &snap, nil
}

func (c *RedisCache) SetStatus(ctx context.Context, jobID string, snap StatusSnapshot) error {
	key := c.statusKey(jobID)

	value, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Error setting status snapshot in Redis")
		return err
	}

	return nil
}

func (c *RedisCache) InvalidateStatus(ctx context.Context, jobID string) error {
	key := c.statusKey(jobID)

	if err := c.client.Del(ctx, key).Err(); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Error deleting status snapshot from Redis")
		return err
	}

	return nil
}

// Ping tests the connection to the cache
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		log.Error().Err(err).Msg("Error pinging Redis")
		return err
	}
	return nil
}

// Close releases resources used by the cache
func (c *RedisCache) Close() error {
	log.Info().Msg("Closing Redis cache connection")
	return c.client.Close()
}
