package health

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SlpAus/country-cache-backend/pkg/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis 模拟可以断开和重启的Redis
type fakeRedis struct {
	mu    sync.Mutex
	up    bool
	runID string
}

func (f *fakeRedis) set(up bool, runID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.up, f.runID = up, runID
}

func (f *fakeRedis) probe(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.up {
		return "", errors.New("connection refused")
	}
	return f.runID, nil
}

type fakeRebuilder struct {
	calls  int
	err    error
	during func()
}

func (f *fakeRebuilder) rebuild(context.Context) error {
	f.calls++
	if f.during != nil {
		f.during()
	}
	return f.err
}

func newTestMonitor(r *fakeRedis, b *fakeRebuilder) *Monitor {
	return newMonitor(r.probe, b.rebuild)
}

func TestNilMonitorIsUnhealthy(t *testing.T) {
	var m *Monitor
	assert.False(t, m.IsHealthy())
}

func TestFirstCheckRebuilds(t *testing.T) {
	r := &fakeRedis{up: true, runID: "aaa"}
	b := &fakeRebuilder{}
	m := newTestMonitor(r, b)
	assert.Equal(t, StateRebuilding, m.State())
	assert.False(t, m.IsHealthy())

	m.PerformCheck(context.Background())
	assert.Equal(t, 1, b.calls)
	assert.True(t, m.IsHealthy())

	m.PerformCheck(context.Background())
	assert.Equal(t, 1, b.calls)
	assert.True(t, m.IsHealthy())
}

func TestDisconnectAndRecover(t *testing.T) {
	r := &fakeRedis{up: true, runID: "aaa"}
	b := &fakeRebuilder{}
	m := newTestMonitor(r, b)
	m.PerformCheck(context.Background())
	require.True(t, m.IsHealthy())

	r.set(false, "")
	m.PerformCheck(context.Background())
	assert.Equal(t, StateDegraded, m.State())

	r.set(true, "aaa")
	m.PerformCheck(context.Background())
	assert.Equal(t, 2, b.calls)
	assert.Equal(t, StateHealthy, m.State())
}

func TestRestartTriggersRebuild(t *testing.T) {
	r := &fakeRedis{up: true, runID: "aaa"}
	b := &fakeRebuilder{}
	m := newTestMonitor(r, b)
	m.PerformCheck(context.Background())

	r.set(true, "bbb")
	m.PerformCheck(context.Background())
	assert.Equal(t, 2, b.calls)
	assert.True(t, m.IsHealthy())
}

func TestFailedRebuildRetries(t *testing.T) {
	r := &fakeRedis{up: true, runID: "aaa"}
	b := &fakeRebuilder{err: errors.New("db not ready")}
	m := newTestMonitor(r, b)

	m.PerformCheck(context.Background())
	assert.Equal(t, StateRebuilding, m.State())

	b.err = nil
	m.PerformCheck(context.Background())
	assert.Equal(t, 2, b.calls)
	assert.Equal(t, StateHealthy, m.State())
}

func TestRestartDuringRebuildInvalidatesIt(t *testing.T) {
	r := &fakeRedis{up: true, runID: "aaa"}
	b := &fakeRebuilder{}
	b.during = func() { r.set(true, "bbb") }
	m := newTestMonitor(r, b)

	m.PerformCheck(context.Background())
	assert.Equal(t, StateRebuilding, m.State())

	b.during = nil
	m.PerformCheck(context.Background())
	assert.Equal(t, StateHealthy, m.State())
}

func TestMarkStale(t *testing.T) {
	r := &fakeRedis{up: true, runID: "aaa"}
	b := &fakeRebuilder{}
	m := newTestMonitor(r, b)
	m.PerformCheck(context.Background())
	require.True(t, m.IsHealthy())

	m.MarkStale()
	assert.Equal(t, StateRebuilding, m.State())

	// 重建期间再次失败，本次重建结果不算数
	b.during = m.MarkStale
	m.PerformCheck(context.Background())
	assert.Equal(t, StateRebuilding, m.State())

	b.during = nil
	m.PerformCheck(context.Background())
	assert.True(t, m.IsHealthy())
}

func TestRunStopsOnShutdown(t *testing.T) {
	r := &fakeRedis{up: true, runID: "aaa"}
	b := &fakeRebuilder{}
	m := newTestMonitor(r, b)
	m.interval = time.Hour

	mgr := lifecycle.NewManager("test")
	require.NoError(t, mgr.Go("redis-health", m.Run))

	assert.Eventually(t, m.IsHealthy, time.Second, 5*time.Millisecond)
	mgr.Shutdown()
	assert.Empty(t, mgr.WaitWithTimeout(time.Second))
}
