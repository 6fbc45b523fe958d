package startup

import (
	"context"
	"fmt"

	"github.com/SlpAus/country-cache-backend/internal/country"
	"github.com/SlpAus/country-cache-backend/internal/platform/database"
	"github.com/SlpAus/country-cache-backend/internal/platform/logging"
	"github.com/SlpAus/country-cache-backend/internal/platform/metadata"
	"github.com/SlpAus/country-cache-backend/internal/platform/metrics"
	"gorm.io/gorm"
)

// InitializeDatabase 创建所有表结构，并把结果写入就绪状态。
// 它在后台运行，HTTP服务在此期间已经可以响应，数据相关的接口会返回503。
func InitializeDatabase(ctx context.Context, db *gorm.DB, ready *database.Readiness) error {
	logging.Info().Msg("开始初始化数据库表结构...")

	if err := migrate(db.WithContext(ctx)); err != nil {
		ready.MarkFailed(err)
		return err
	}

	// 用已有的数据初始化指标
	st, err := country.NewRepository(db).Status(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("无法统计已有的国家记录")
	} else {
		metrics.CountriesStored.Set(float64(st.Total))
		logging.Info().Int64("countries", st.Total).Msg("已加载现有数据")
	}

	ready.MarkReady()
	return nil
}

func migrate(db *gorm.DB) error {
	if err := metadata.Migrate(db); err != nil {
		return fmt.Errorf("数据库初始化失败: %w", err)
	}
	if err := country.Migrate(db); err != nil {
		return fmt.Errorf("数据库初始化失败: %w", err)
	}
	return nil
}
