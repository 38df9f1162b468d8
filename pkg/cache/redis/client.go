// Package redis caches query results in Redis, keyed by index generation
// so entries of a replaced snapshot are never served.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ukaji3/finstruct-go/pkg/finstruct/models"
	"github.com/ukaji3/finstruct-go/pkg/metrics"
	"github.com/ukaji3/finstruct-go/pkg/query"
)

// KeyPrefix namespaces every cache key.
const KeyPrefix = "finstruct:query:"

// Options configures the connection and the entry lifetime.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Logger   *zap.Logger
}

// Client caches query results in Redis.
type Client struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewClient connects and pings the server.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	c := Wrap(client, opts.TTL, opts.Logger)
	c.log.Info("redis cache initialized", zap.String("addr", opts.Addr), zap.Duration("ttl", opts.TTL))
	return c, nil
}

// Wrap uses an existing go-redis client without pinging it.
func Wrap(client *redis.Client, ttl time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{client: client, ttl: ttl, log: log}
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	return c.client.Close()
}

// Key derives the cache key of a filter under a snapshot generation.
// Filters equal after normalization share a key.
func Key(generation string, f query.Filter) string {
	f = f.Normalize()
	h := xxhash.New()
	for _, part := range []string{
		strconv.Itoa(f.Year), strconv.Itoa(f.Month), string(f.SheetName),
		f.FinancialType, f.ItemCode, f.ItemCodePrefix, f.Trade,
	} {
		_, _ = h.WriteString(part)
		_, _ = h.Write([]byte{0})
	}
	return fmt.Sprintf("%s%s:%016x", KeyPrefix, generation, h.Sum64())
}

// Set stores v as JSON under key with the client TTL.
func (c *Client) Set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}

	c.log.Debug("query cached", zap.String("key", key), zap.Duration("ttl", c.ttl))
	return nil
}

// Get decodes the entry under key into dst. It reports false when the key
// is absent.
func (c *Client) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheRequests.WithLabelValues(metrics.QueryCacheMiss).Inc()
		return false, nil
	}
	if err != nil {
		metrics.CacheRequests.WithLabelValues(metrics.QueryCacheError).Inc()
		return false, fmt.Errorf("failed to get cache entry: %w", err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		metrics.CacheRequests.WithLabelValues(metrics.QueryCacheError).Inc()
		return false, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}

	metrics.CacheRequests.WithLabelValues(metrics.QueryCacheHit).Inc()
	c.log.Debug("query cache hit", zap.String("key", key))
	return true, nil
}

// Query answers f from the cache, falling back to the store and caching
// the result. Cache failures are logged and never fail the query.
func (c *Client) Query(ctx context.Context, store *query.Store, f query.Filter) (query.Result, error) {
	f = f.Normalize()
	if err := f.Validate(); err != nil {
		return store.Query(f)
	}

	key := Key(store.Generation(), f)
	var cached query.Result
	hit, err := c.Get(ctx, key, &cached)
	if err != nil {
		c.log.Warn("query cache read failed", zap.String("key", key), zap.Error(err))
	}
	if hit {
		if cached.Records == nil {
			cached.Records = []models.FinancialRecord{}
		}
		return cached, nil
	}

	res, err := store.Query(f)
	if err != nil {
		return res, err
	}
	if err := c.Set(ctx, key, res); err != nil {
		c.log.Warn("query cache write failed", zap.String("key", key), zap.Error(err))
	}
	return res, nil
}
