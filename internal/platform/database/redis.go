package database

import (
	"context"
	"time"

	"github.com/SlpAus/country-cache-backend/internal/platform/config"
	"github.com/SlpAus/country-cache-backend/internal/platform/logging"
	"github.com/redis/go-redis/v9"
)

const redisPingTimeout = 2 * time.Second

// NewRedis 创建Redis客户端。未配置地址时返回nil，表示不启用缓存。
// 与数据库不同，Redis连接失败不会阻止启动，健康检查器会在它恢复后重建缓存。
func NewRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if cfg.Address == "" {
		logging.Info().Msg("未配置Redis，缓存已禁用")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logging.Warn().Err(err).Str("address", cfg.Address).Msg("Redis暂时不可用，将以无缓存模式运行")
	} else {
		logging.Info().Str("address", cfg.Address).Msg("Redis 连接成功")
	}
	return rdb
}
