package lifecycle

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Manager 向后台服务分发句柄(Handle)，并在停机时广播信号、等待它们退出。
// 它由上层模块（如shutdown）创建和持有。
type Manager struct {
	name     string
	wg       sync.WaitGroup
	mu       sync.Mutex
	services map[string]struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

func NewManager(name string) *Manager {
	m := &Manager{
		name:     name,
		services: make(map[string]struct{}),
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m
}

// NewServiceHandle 为一个服务注册并创建生命周期句柄。同名服务只能注册一次。
func (m *Manager) NewServiceHandle(name string) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.services[name]; exists {
		return nil, fmt.Errorf("生命周期管理器 %s: 服务 '%s' 已被注册", m.name, name)
	}
	m.services[name] = struct{}{}
	m.wg.Add(1)
	log.Debug().Str("manager", m.name).Str("service", name).Msg("生命周期管理器: 服务已注册")

	var once sync.Once
	return &Handle{
		ctx: m.ctx,
		Close: func() {
			once.Do(func() {
				m.mu.Lock()
				delete(m.services, name)
				m.mu.Unlock()
				m.wg.Done()
			})
		},
	}, nil
}

// Go 注册服务并在新的Goroutine中运行它，run 负责在退出前调用 handle.Close
func (m *Manager) Go(name string, run func(*Handle)) error {
	handle, err := m.NewServiceHandle(name)
	if err != nil {
		return err
	}
	go run(handle)
	return nil
}

func (m *Manager) Shutdown() {
	log.Info().Str("manager", m.name).Msg("生命周期管理器: 广播停机信号")
	m.cancel()
}

// WaitWithTimeout 等待所有已注册的服务完成。超时时返回仍未退出的服务名。
func (m *Manager) WaitWithTimeout(timeout time.Duration) []string {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		m.mu.Lock()
		defer m.mu.Unlock()
		remaining := make([]string, 0, len(m.services))
		for name := range m.services {
			remaining = append(remaining, name)
		}
		sort.Strings(remaining)
		return remaining
	}
}
