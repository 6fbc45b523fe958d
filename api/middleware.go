package api

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/SlpAus/country-cache-backend/internal/platform/apierror"
	"github.com/SlpAus/country-cache-backend/internal/platform/logging"
	"github.com/SlpAus/country-cache-backend/internal/platform/metrics"
	"github.com/SlpAus/country-cache-backend/pkg/lifecycle"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestID 为每个请求分配ID，已有的 X-Request-ID 会被沿用
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestLogger 每个请求输出一行日志，同时记录Prometheus指标
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(latency.Seconds())

		event := logging.Info()
		if status >= http.StatusInternalServerError {
			event = logging.Error()
		} else if status >= http.StatusBadRequest {
			event = logging.Warn()
		}
		event.
			Str("request_id", c.GetString(requestIDKey)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP请求")
	}
}

// Recovery 捕获处理器中的panic，并以统一的错误结构返回500
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logging.Error().
			Str("request_id", c.GetString(requestIDKey)).
			Interface("panic", recovered).
			Msg("处理请求时发生panic")
		apierror.Abort(c, http.StatusInternalServerError, "Internal server error", "Unexpected server error")
	})
}

// --- 刷新限流 ---

const (
	limiterCleanupInterval = time.Minute
	limiterMaxIdle         = 10 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter 按客户端IP限制请求频率
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*clientLimiter
	rate      rate.Limit
	perMinute int
	burst     int
	now       func() time.Time
}

// NewRateLimiter 创建每分钟最多 perMinute 次、允许突发 burst 次的限流器。
// burst 或 perMinute 不大于0时返回nil，表示不限流。
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if perMinute <= 0 || burst <= 0 {
		return nil
	}
	return &RateLimiter{
		limiters:  make(map[string]*clientLimiter),
		rate:      rate.Every(time.Minute / time.Duration(perMinute)),
		perMinute: perMinute,
		burst:     burst,
		now:       time.Now,
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cl, exists := rl.limiters[key]
	if !exists {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// Handler 返回限流中间件，nil 的 RateLimiter 直接放行
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl == nil {
			c.Next()
			return
		}
		key := c.ClientIP()
		if !rl.allow(key) {
			logging.Warn().Str("client_ip", key).Str("path", c.Request.URL.Path).Msg("请求过于频繁，已拒绝")
			c.Header("Retry-After", strconv.Itoa(max(1, 60/rl.perMinute)))
			apierror.Abort(c, http.StatusTooManyRequests, "Too many requests",
				fmt.Sprintf("Refresh is limited to %d requests per minute per client", rl.perMinute))
			return
		}
		c.Next()
	}
}

// Cleanup 删除长时间未使用的客户端
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-maxIdle)
	removed := 0
	for key, cl := range rl.limiters {
		if cl.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
			removed++
		}
	}
	return removed
}

// RunCleanup 定期清理空闲的客户端，直到收到停机信号
func (rl *RateLimiter) RunCleanup(handle *lifecycle.Handle) {
	defer handle.Close()
	for {
		if err := handle.Sleep(limiterCleanupInterval); err != nil {
			return
		}
		if removed := rl.Cleanup(limiterMaxIdle); removed > 0 {
			logging.Debug().Int("removed", removed).Msg("已清理空闲的限流记录")
		}
	}
}
