package health

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/SlpAus/country-cache-backend/internal/platform/logging"
	"github.com/SlpAus/country-cache-backend/pkg/lifecycle"
	"github.com/redis/go-redis/v9"
)

const (
	checkInterval = 5 * time.Second
	probeTimeout  = 2 * time.Second
	// 重建需要读取整张表，给它比探测更宽松的时限
	rebuildTimeout = 30 * time.Second
)

var runIDPattern = regexp.MustCompile(`run_id:([a-f0-9]+)`)

// Rebuilder 从数据库重建整个缓存
type Rebuilder func(ctx context.Context) error

// probeFunc 返回Redis当前的run_id，连接失败时返回错误
type probeFunc func(ctx context.Context) (string, error)

// Monitor 周期性地探测Redis，并在它重启或恢复后触发缓存重建
type Monitor struct {
	status   *statusManager
	probe    probeFunc
	rebuild  Rebuilder
	interval time.Duration
}

func NewMonitor(rdb *redis.Client, rebuild Rebuilder) *Monitor {
	return newMonitor(redisProbe(rdb), rebuild)
}

func newMonitor(probe probeFunc, rebuild Rebuilder) *Monitor {
	return &Monitor{
		status:   newStatusManager(),
		probe:    probe,
		rebuild:  rebuild,
		interval: checkInterval,
	}
}

// redisProbe 从 INFO server 中提取 run_id，Redis每次重启都会生成新的 run_id
func redisProbe(rdb *redis.Client) probeFunc {
	return func(ctx context.Context) (string, error) {
		info, err := rdb.Info(ctx, "server").Result()
		if err != nil {
			return "", err
		}
		matches := runIDPattern.FindStringSubmatch(info)
		if len(matches) < 2 {
			return "", fmt.Errorf("无法在Redis INFO中找到run_id")
		}
		return matches[1], nil
	}
}

// IsHealthy 报告缓存当前是否可以用于读取。nil 的 Monitor 表示未启用缓存。
func (m *Monitor) IsHealthy() bool {
	return m != nil && m.status.State() == StateHealthy
}

func (m *Monitor) State() State {
	return m.status.State()
}

// MarkStale 在写缓存失败后调用
func (m *Monitor) MarkStale() {
	m.status.MarkStale()
}

func (m *Monitor) runID(ctx context.Context) (string, bool) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	id, err := m.probe(probeCtx)
	if err != nil {
		logging.Debug().Err(err).Msg("健康检查: Redis探测失败")
		return "", false
	}
	return id, true
}

// PerformCheck 执行一次完整的健康检查和可能的重建
func (m *Monitor) PerformCheck(ctx context.Context) {
	runID, connected := m.runID(ctx)
	if !m.status.Assess(connected, runID) {
		return
	}

	logging.Info().Msg("健康检查: 正在重建缓存...")
	rebuildCtx, cancel := context.WithTimeout(ctx, rebuildTimeout)
	err := m.rebuild(rebuildCtx)
	cancel()
	if err != nil {
		logging.Error().Err(err).Msg("健康检查: 缓存重建失败")
		m.status.MarkRebuildComplete(false, "")
		return
	}

	// 重建后再次检查run_id，确认重建期间Redis没有重启
	after, ok := m.runID(ctx)
	if !ok {
		m.status.MarkRebuildComplete(false, "")
		return
	}
	m.status.MarkRebuildComplete(true, after)
}

// Run 立即执行一次检查，然后按固定间隔循环，直到收到停机信号
func (m *Monitor) Run(handle *lifecycle.Handle) {
	defer handle.Close()
	logging.Info().Dur("interval", m.interval).Msg("Redis健康检查器已启动")

	for {
		m.PerformCheck(handle.Ctx())
		if err := handle.Sleep(m.interval); err != nil {
			logging.Info().Msg("Redis健康检查器: 收到停机信号，正在退出")
			return
		}
	}
}
