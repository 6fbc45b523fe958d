package country

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/SlpAus/country-cache-backend/internal/platform/logging"
	"github.com/SlpAus/country-cache-backend/internal/platform/metrics"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// RecordsKey 是一个Redis Hash，field 为 NameKey，value 为记录的JSON
const RecordsKey = "country:records"

// CacheHealth 报告Redis当前是否可用，并允许在写缓存失败时要求重建
type CacheHealth interface {
	IsHealthy() bool
	MarkStale()
}

// Cache 是国家记录在Redis中的完整副本，只用于加速单条查询。
// 缓存的任何失败都只记录日志，不会影响请求结果。nil 的 *Cache 表示未启用缓存。
type Cache struct {
	rdb    *redis.Client
	repo   *Repository
	health CacheHealth

	// mu 保证重建和删除不会交错，避免重建把刚删除的记录写回去
	mu sync.Mutex
}

func NewCache(rdb *redis.Client, repo *Repository, health CacheHealth) *Cache {
	if rdb == nil {
		return nil
	}
	return &Cache{rdb: rdb, repo: repo, health: health}
}

func (c *Cache) usable() bool {
	return c != nil && (c.health == nil || c.health.IsHealthy())
}

// Warmup 从数据库读取全部记录并整体替换Redis中的副本。
// 它是健康检查器在Redis恢复后调用的重建函数，因此不检查健康状态。
func (c *Cache) Warmup(ctx context.Context) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.repo.All(ctx)
	if err != nil {
		return err
	}

	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, RecordsKey)
	if len(records) > 0 {
		values := make(map[string]interface{}, len(records))
		for _, rec := range records {
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("序列化国家 %s 失败: %w", rec.Name, err)
			}
			values[nameKey(rec.Name)] = data
		}
		pipe.HSet(ctx, RecordsKey, values)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("预热国家数据到Redis失败: %w", err)
	}

	logging.Info().Int("count", len(records)).Msg("国家数据已预热到Redis")
	return nil
}

// Refresh 在刷新之后更新缓存。失败时要求健康检查器重建。
func (c *Cache) Refresh(ctx context.Context) {
	if c == nil {
		return
	}
	if err := c.Warmup(ctx); err != nil {
		logging.Warn().Err(err).Msg("刷新后更新缓存失败，等待健康检查器重建")
		c.markStale()
	}
}

func (c *Cache) markStale() {
	if c.health != nil {
		c.health.MarkStale()
	}
}

// Get 返回缓存的记录。未命中或缓存不可用时第二个返回值为false。
func (c *Cache) Get(ctx context.Context, name string) (*Country, bool) {
	if !c.usable() {
		metrics.CacheLookups.WithLabelValues("bypass").Inc()
		return nil, false
	}

	data, err := c.rdb.HGet(ctx, RecordsKey, nameKey(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.CacheLookups.WithLabelValues("miss").Inc()
		} else {
			metrics.CacheLookups.WithLabelValues("error").Inc()
			logging.Warn().Err(err).Str("name", name).Msg("读取缓存失败，回退到数据库")
		}
		return nil, false
	}

	var rec Country
	if err := json.Unmarshal(data, &rec); err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		logging.Warn().Err(err).Str("name", name).Msg("缓存数据无法解析，回退到数据库")
		return nil, false
	}
	rec.NameKey = nameKey(rec.Name)
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return &rec, true
}

// Remove 删除一条缓存记录。无论健康状态如何都会尝试，失败时要求重建。
func (c *Cache) Remove(ctx context.Context, name string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.rdb.HDel(ctx, RecordsKey, nameKey(name)).Err(); err != nil {
		logging.Warn().Err(err).Str("name", name).Msg("删除缓存记录失败，等待健康检查器重建")
		c.markStale()
	}
}
