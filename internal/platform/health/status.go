package health

import (
	"sync"

	"github.com/SlpAus/country-cache-backend/internal/platform/logging"
	"github.com/SlpAus/country-cache-backend/internal/platform/metrics"
)

// State 定义了缓存健康状态的枚举类型
type State int

const (
	StateHealthy State = iota
	StateDegraded
	StateRebuilding
)

func (s State) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateDegraded:
		return "degraded"
	case StateRebuilding:
		return "rebuilding"
	default:
		return "unknown"
	}
}

// statusManager 线程安全地维护缓存的健康状态。
// 初始状态为[重建中]：缓存在第一次成功重建之前不会被使用。
type statusManager struct {
	mu             sync.RWMutex
	currentState   State
	lastKnownRunID string
	// staleDuringRebuild 记录重建期间是否有写缓存失败，此时本次重建结果不可信
	staleDuringRebuild bool
}

func newStatusManager() *statusManager {
	sm := &statusManager{currentState: StateRebuilding}
	metrics.CacheHealthState.Set(float64(sm.currentState))
	return sm
}

func (sm *statusManager) State() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.currentState
}

// setState 必须在持有 mu 的情况下调用
func (sm *statusManager) setState(s State) {
	sm.currentState = s
	metrics.CacheHealthState.Set(float64(s))
}

// Assess 根据一次检查的结果决定下一个状态，返回是否需要重建缓存
func (sm *statusManager) Assess(connected bool, runID string) (needsRebuild bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	switch sm.currentState {
	case StateHealthy:
		if !connected {
			sm.setState(StateDegraded)
			logging.Warn().Msg("健康检查: Redis连接丢失，缓存状态 -> [降级]")
		} else if sm.lastKnownRunID != "" && sm.lastKnownRunID != runID {
			sm.setState(StateRebuilding)
			needsRebuild = true
			logging.Warn().Str("from", sm.lastKnownRunID).Str("to", runID).Msg("健康检查: 检测到Redis重启，缓存状态 -> [重建中]")
		}
	case StateDegraded:
		// 断开期间的删除和刷新都没有写入缓存，恢复后总是重建
		if connected {
			sm.setState(StateRebuilding)
			needsRebuild = true
			logging.Info().Msg("健康检查: Redis连接已恢复，缓存状态 -> [重建中]")
		}
	case StateRebuilding:
		if !connected {
			sm.setState(StateDegraded)
			logging.Warn().Msg("健康检查: 在缓存重建期间Redis连接丢失，缓存状态 -> [降级]")
		} else {
			needsRebuild = true
		}
	}

	if connected {
		sm.lastKnownRunID = runID
	}
	if needsRebuild {
		sm.staleDuringRebuild = false
	}
	return needsRebuild
}

// MarkRebuildComplete 在一次重建尝试之后调用
func (sm *statusManager) MarkRebuildComplete(success bool, runIDAfterRebuild string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.currentState != StateRebuilding {
		return
	}

	if !success {
		logging.Error().Msg("健康检查: 缓存重建失败，状态保持 [重建中] 以待重试")
		return
	}
	if sm.lastKnownRunID != runIDAfterRebuild {
		logging.Error().Str("from", sm.lastKnownRunID).Str("to", runIDAfterRebuild).Msg("健康检查: 缓存重建期间Redis再次重启，重建无效")
		sm.lastKnownRunID = runIDAfterRebuild
		return
	}
	if sm.staleDuringRebuild {
		logging.Warn().Msg("健康检查: 重建期间有缓存写入失败，将再次重建")
		return
	}

	sm.setState(StateHealthy)
	logging.Info().Msg("健康检查: 缓存重建成功，缓存状态 -> [健康]")
}

// MarkStale 在写缓存失败后调用，要求下一次检查时重建
func (sm *statusManager) MarkStale() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	switch sm.currentState {
	case StateHealthy:
		sm.setState(StateRebuilding)
		logging.Warn().Msg("健康检查: 缓存写入失败，缓存状态 -> [重建中]")
	case StateRebuilding:
		sm.staleDuringRebuild = true
	}
}
