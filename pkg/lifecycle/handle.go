package lifecycle

import (
	"context"
	"time"
)

// Handle 是分发给每个后台服务的生命周期控制器
type Handle struct {
	ctx context.Context
	// Close 通知Manager服务已经退出，应在服务Goroutine退出前 defer 调用。重复调用是安全的。
	Close func()
}

// Ctx 返回随停机信号取消的上下文
func (h *Handle) Ctx() context.Context {
	return h.ctx
}

func (h *Handle) Done() <-chan struct{} {
	return h.ctx.Done()
}

func (h *Handle) Err() error {
	return h.ctx.Err()
}

// Sleep 暂停指定的时长，收到停机信号时提前返回上下文的错误。
// 后台循环都应该用它代替time.Sleep。
func (h *Handle) Sleep(d time.Duration) error {
	if d <= 0 {
		return h.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-h.Done():
		return h.Err()
	case <-timer.C:
		return nil
	}
}
