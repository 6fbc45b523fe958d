package metadata

import (
	"fmt"

	"github.com/SlpAus/country-cache-backend/internal/platform/logging"
	"gorm.io/gorm"
)

// Migrate 负责初始化metadata模块的数据库部分
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Meta{}); err != nil {
		return fmt.Errorf("无法迁移meta表: %w", err)
	}
	logging.Info().Msg("Meta数据库表迁移成功")
	return nil
}
