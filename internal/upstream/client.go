package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/SlpAus/country-cache-backend/internal/platform/logging"
	"github.com/SlpAus/country-cache-backend/internal/platform/metrics"
	gobreaker "github.com/sony/gobreaker/v2"
)

var (
	// ErrUnavailable 表示外部数据源无法提供可用数据（网络、状态码、解析、熔断）
	ErrUnavailable = errors.New("external data source unavailable")
	// ErrEmptyPayload 表示外部数据源返回了空结果，它同样属于 ErrUnavailable
	ErrEmptyPayload = fmt.Errorf("%w: empty payload", ErrUnavailable)
)

const (
	maxBodySize      = 16 << 20
	maxErrorBodySize = 1 << 10

	breakerFailures = 5
	breakerTimeout  = 30 * time.Second
)

// client 封装了单个上游地址的HTTP访问和熔断器，不做任何重试
type client struct {
	source string
	url    string
	http   *http.Client
	cb     *gobreaker.CircuitBreaker[[]byte]
}

func newClient(source, url string, timeout time.Duration) *client {
	metrics.UpstreamBreakerState.WithLabelValues(source).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        source,
		MaxRequests: 1,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		// 调用方取消（客户端断开、停机）与上游是否健康无关，不计入失败
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("source", name).Str("from", from.String()).Str("to", to.String()).Msg("上游熔断器状态变化")
			metrics.UpstreamBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})

	return &client{
		source: source,
		url:    url,
		http:   &http.Client{Timeout: timeout},
		cb:     cb,
	}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// get 请求上游并返回完整的响应体。任何失败都包装为 ErrUnavailable。
func (c *client) get(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(c.source, "canceled").Inc()
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, c.source, err)
	}

	start := time.Now()
	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.do(ctx)
	})
	metrics.UpstreamRequestDuration.WithLabelValues(c.source).Observe(time.Since(start).Seconds())

	if err != nil {
		result := "failure"
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			result = "rejected"
		case errors.Is(err, context.Canceled):
			result = "canceled"
		}
		metrics.UpstreamRequestsTotal.WithLabelValues(c.source, result).Inc()
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, c.source, err)
	}

	metrics.UpstreamRequestsTotal.WithLabelValues(c.source, "success").Inc()
	return body, nil
}

func (c *client) do(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("无法创建请求: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, fmt.Errorf("状态码 %d: %s", resp.StatusCode, string(snippet))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}
	return body, nil
}
