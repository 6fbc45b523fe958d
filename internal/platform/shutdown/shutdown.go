package shutdown

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SlpAus/country-cache-backend/internal/platform/logging"
	"github.com/SlpAus/country-cache-backend/pkg/lifecycle"
)

const (
	httpTimeout     = 15 * time.Second
	gracefulTimeout = 30 * time.Second
	forcefulTimeout = 1 * time.Second
)

type closer struct {
	name string
	fn   func() error
}

// Coordinator 负责编排应用程序的停机流程。
// 它接收外部创建的生命周期管理器，并在最后按注册的相反顺序释放资源。
type Coordinator struct {
	GracefulManager *lifecycle.Manager
	ForcefulManager *lifecycle.Manager

	closers []closer
}

func NewCoordinator(gracefulMgr, forcefulMgr *lifecycle.Manager) *Coordinator {
	return &Coordinator{
		GracefulManager: gracefulMgr,
		ForcefulManager: forcefulMgr,
	}
}

// OnClose 注册一个在后台服务全部退出后执行的释放函数，例如关闭数据库和Redis连接
func (c *Coordinator) OnClose(name string, fn func() error) {
	c.closers = append(c.closers, closer{name: name, fn: fn})
}

// ListenForSignalsAndShutdown 阻塞直到收到 SIGINT/SIGTERM，然后执行停机流程。
// serveErr 在HTTP服务意外退出时也会触发停机。
func (c *Coordinator) ListenForSignalsAndShutdown(server *http.Server, serveErr <-chan error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		logging.Info().Str("signal", sig.String()).Msg("收到关闭信号，开始优雅停机...")
	case err := <-serveErr:
		logging.Error().Err(err).Msg("HTTP服务器异常退出，开始停机...")
	}

	c.Shutdown(server)
}

// Shutdown 依次关闭HTTP服务器、后台服务和底层资源
func (c *Coordinator) Shutdown(server *http.Server) {
	// 关闭HTTP服务器，允许正在进行的请求完成
	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("HTTP服务器关闭错误")
	} else {
		logging.Info().Msg("HTTP服务器已关闭")
	}

	// --- 阶段一: 优雅停机 ---
	logging.Info().Dur("timeout", gracefulTimeout).Msg("第一阶段停机：等待后台任务完成...")
	c.GracefulManager.Shutdown()
	remaining := c.GracefulManager.WaitWithTimeout(gracefulTimeout)
	if len(remaining) == 0 {
		logging.Info().Msg("所有服务已在第一阶段优雅关闭")
	} else {
		logging.Warn().Strs("services", remaining).Msg("第一阶段超时")
	}

	// --- 阶段二: 强制停机 ---
	// 正在进行的刷新持有强制句柄，第一阶段结束后才中断它
	c.ForcefulManager.Shutdown()
	if remaining := c.ForcefulManager.WaitWithTimeout(forcefulTimeout); len(remaining) > 0 {
		logging.Warn().Strs("services", remaining).Msg("强制停机超时，以下服务未能退出")
	}

	// --- 最终步骤 ---
	for i := len(c.closers) - 1; i >= 0; i-- {
		cl := c.closers[i]
		if err := cl.fn(); err != nil {
			logging.Error().Err(err).Str("resource", cl.name).Msg("释放资源失败")
		} else {
			logging.Info().Str("resource", cl.name).Msg("资源已释放")
		}
	}

	logging.Info().Msg("停机完成")
}
