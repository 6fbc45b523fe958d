package database

import (
	"sync"

	"github.com/SlpAus/country-cache-backend/internal/platform/logging"
)

// Readiness 线程安全地记录数据库表结构是否已初始化完成。
// 它在main中创建，然后注入到需要它的处理器中。
type Readiness struct {
	mu    sync.RWMutex
	ready bool
	err   error
}

func NewReadiness() *Readiness {
	return &Readiness{}
}

// MarkReady 在初始化成功后调用
func (r *Readiness) MarkReady() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ready = true
	r.err = nil
	logging.Info().Msg("数据库状态已更新为 [就绪]")
}

// MarkFailed 记录初始化失败的原因
func (r *Readiness) MarkFailed(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ready = false
	r.err = err
	logging.Error().Err(err).Msg("数据库状态已更新为 [初始化失败]")
}

// State 返回是否就绪，以及初始化失败时的错误（仍在初始化中时为nil）
func (r *Readiness) State() (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ready, r.err
}

func (r *Readiness) IsReady() bool {
	ready, _ := r.State()
	return ready
}
