package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a JSON response cache shared by every API process.
// On a disabled client every call is a miss or a no-op.
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a cache namespaced under prefix
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{client: client, prefix: prefix}
}

func (c *Cache) key(k string) string {
	return c.prefix + ":cache:" + k
}

// Get decodes the cached value into dest and reports whether it was found
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

// Set stores value JSON-encoded for ttl
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	return c.client.Redis().Set(ctx, c.key(key), data, ttl).Err()
}

// Delete removes keys
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if !c.client.Enabled() || len(keys) == 0 {
		return nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.client.Redis().Del(ctx, full...).Err()
}

// InvalidateScan drops the cached latest scan and the scan for date,
// so API processes serve a freshly stored scan without waiting out the TTL
func (c *Cache) InvalidateScan(ctx context.Context, date string) error {
	return c.Delete(ctx, LatestScanKey(), ScanKey(date))
}

// InvalidateSeries drops every cached bar window. Windows are keyed by their
// requested range, so after new bars land there is no narrower set to target.
func (c *Cache) InvalidateSeries(ctx context.Context) error {
	if !c.client.Enabled() {
		return nil
	}

	rdb := c.client.Redis()
	var keys []string
	iter := rdb.Scan(ctx, 0, c.key(seriesPrefix+"*"), 500).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan series keys: %w", err)
	}

	for start := 0; start < len(keys); start += 500 {
		end := min(start+500, len(keys))
		if err := rdb.Del(ctx, keys[start:end]...).Err(); err != nil {
			return fmt.Errorf("delete series keys: %w", err)
		}
	}
	return nil
}

// Predefined TTLs
const (
	TTLShort  = 1 * time.Minute  // 최신 스캔 결과
	TTLMedium = 10 * time.Minute // 종목 시계열
	TTLDaily  = 24 * time.Hour   // 날짜별 스캔 (저장 후 불변)
)

// LatestScanKey holds the most recent ScanResult
func LatestScanKey() string {
	return "scan:latest"
}

// ScanKey holds the ScanResult for one as-of date
func ScanKey(date string) string {
	return "scan:" + date
}

const seriesPrefix = "series:"

// SeriesKey holds a symbol's bars for one requested window
func SeriesKey(symbol, from, to string) string {
	return fmt.Sprintf("%s%s:%s:%s", seriesPrefix, symbol, from, to)
}
