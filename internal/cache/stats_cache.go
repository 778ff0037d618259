package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/repository"
	"github.com/redis/go-redis/v9"
)

const (
	statsKey           = "lostfound:stats"
	statsGenerationKey = "lostfound:stats:gen"
)

// StatsCache holds the last computed aggregate counts. Writers call Invalidate
// after every change to the item population; each Invalidate starts a new
// generation. Readers take the generation before computing stats and pass it
// to Set, which drops the snapshot if an invalidation happened in between.
type StatsCache interface {
	Get(ctx context.Context) (*repository.ItemStats, bool)
	Generation(ctx context.Context) uint64
	Set(ctx context.Context, generation uint64, stats *repository.ItemStats)
	Invalidate(ctx context.Context)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects and pings with a 5 second deadline.
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	slog.Info("redis connected", "addr", cfg.Addr)
	return client, nil
}

var errStaleGeneration = errors.New("stats generation changed")

type RedisStatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStatsCache(client *redis.Client, ttl time.Duration) *RedisStatsCache {
	return &RedisStatsCache{client: client, ttl: ttl}
}

func (c *RedisStatsCache) Get(ctx context.Context) (*repository.ItemStats, bool) {
	raw, err := c.client.Get(ctx, statsKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("stats cache read failed", "error", err)
		}
		return nil, false
	}
	var stats repository.ItemStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		slog.Warn("stats cache entry corrupt", "error", err)
		return nil, false
	}
	return &stats, true
}

func (c *RedisStatsCache) Generation(ctx context.Context) uint64 {
	gen, err := c.client.Get(ctx, statsGenerationKey).Uint64()
	if err != nil && !errors.Is(err, redis.Nil) {
		slog.Warn("stats cache generation read failed", "error", err)
	}
	return gen
}

// Set stores stats only while the generation key still equals generation.
// WATCH aborts the write when an Invalidate lands concurrently.
func (c *RedisStatsCache) Set(ctx context.Context, generation uint64, stats *repository.ItemStats) {
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, statsGenerationKey).Uint64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, statsKey, raw, c.ttl)
			return nil
		})
		return err
	}, statsGenerationKey)
	switch {
	case err == nil, errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
	default:
		slog.Warn("stats cache write failed", "error", err)
	}
}

func (c *RedisStatsCache) Invalidate(ctx context.Context) {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, statsGenerationKey)
		pipe.Del(ctx, statsKey)
		return nil
	})
	if err != nil {
		slog.Warn("stats cache invalidation failed", "error", err)
	}
}

// MemoryStatsCache is a process-local cache used when Redis is not configured.
type MemoryStatsCache struct {
	mu      sync.Mutex
	stats   *repository.ItemStats
	expires time.Time
	ttl     time.Duration
	gen     uint64
}

func NewMemoryStatsCache(ttl time.Duration) *MemoryStatsCache {
	return &MemoryStatsCache{ttl: ttl}
}

func (c *MemoryStatsCache) Get(_ context.Context) (*repository.ItemStats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stats == nil || time.Now().After(c.expires) {
		return nil, false
	}
	copied := *c.stats
	copied.CategoryBreakdown = append([]repository.CategoryCount(nil), c.stats.CategoryBreakdown...)
	return &copied, true
}

func (c *MemoryStatsCache) Generation(_ context.Context) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *MemoryStatsCache) Set(_ context.Context, generation uint64, stats *repository.ItemStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.gen {
		return
	}
	copied := *stats
	copied.CategoryBreakdown = append([]repository.CategoryCount(nil), stats.CategoryBreakdown...)
	c.stats = &copied
	c.expires = time.Now().Add(c.ttl)
}

func (c *MemoryStatsCache) Invalidate(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = nil
	c.gen++
}
