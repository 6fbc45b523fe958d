package country

import (
	"fmt"
	"time"

	"github.com/SlpAus/country-cache-backend/internal/platform/logging"
	"github.com/SlpAus/country-cache-backend/pkg/lifecycle"
	"github.com/robfig/cron/v3"
)

// RefreshScheduler 按cron表达式定期调用 Service.Refresh
type RefreshScheduler struct {
	svc      *Service
	schedule cron.Schedule
	expr     string
}

// NewRefreshScheduler 解析标准的五段cron表达式
func NewRefreshScheduler(svc *Service, expr string) (*RefreshScheduler, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("无效的刷新计划 %q: %w", expr, err)
	}
	return &RefreshScheduler{svc: svc, schedule: schedule, expr: expr}, nil
}

// Next 返回t之后的下一次触发时间
func (s *RefreshScheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Run 阻塞运行直到 handle 被取消。handle 只控制调度，正在进行的刷新使用 force 的上下文，
// 因此优雅停机会等待它完成，强制停机才会中断它。
func (s *RefreshScheduler) Run(handle, force *lifecycle.Handle) {
	defer handle.Close()
	defer force.Close()
	logging.Info().Str("schedule", s.expr).Msg("定时刷新调度器已启动")

	for {
		next := s.Next(time.Now())
		if err := handle.Sleep(time.Until(next)); err != nil {
			logging.Info().Msg("定时刷新调度器: 收到停机信号，正在退出")
			return
		}

		result, err := s.svc.Refresh(force.Ctx())
		if err != nil {
			// 停机导致的取消不算错误
			if force.Err() != nil {
				return
			}
			logging.Error().Err(err).Msg("定时刷新失败")
			continue
		}
		logging.Info().Int("processed", result.Processed).Str("refresh_id", result.ID).Msg("定时刷新成功")
	}
}
