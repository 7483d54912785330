// Package cache keeps rendered book list pages in Redis.
// Keys embed a catalog version; any write bumps the version so stale pages are never read again
// and simply expire.
package cache

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"net/url"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	prefix     = "catalog:books"
	versionKey = "catalog:version"
)

// Catalog rdb 为 nil 时所有操作都是空操作
type Catalog struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCatalog(rdb *redis.Client, ttl time.Duration) *Catalog {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Catalog{rdb: rdb, ttl: ttl}
}

func (c *Catalog) Enabled() bool { return c != nil && c.rdb != nil }

// keyFor url.Values.Encode 按键排序，参数顺序不同的请求共用一个键
func keyFor(version int64, query url.Values) string {
	sum := sha1.Sum([]byte(query.Encode()))
	return fmt.Sprintf("%s:v%d:%x", prefix, version, sum[:])
}

// Key 读取当前版本并生成缓存键
func (c *Catalog) Key(ctx context.Context, query url.Values) (string, error) {
	if !c.Enabled() {
		return "", nil
	}
	v, err := c.rdb.Get(ctx, versionKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return keyFor(v, query), nil
}

// Get 命中返回 true
func (c *Catalog) Get(ctx context.Context, key string, dst any) (bool, error) {
	if !c.Enabled() || key == "" {
		return false, nil
	}
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Catalog) Set(ctx context.Context, key string, v any) error {
	if !c.Enabled() || key == "" {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, c.ttl).Err()
}

// Bump 书籍写入、借出、归还后调用
func (c *Catalog) Bump(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Incr(ctx, versionKey).Err()
}
