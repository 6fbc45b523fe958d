package country

import (
	"fmt"

	"github.com/SlpAus/country-cache-backend/internal/platform/logging"
	"gorm.io/gorm"
)

// Migrate 负责自动迁移 countries 表结构
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Country{}); err != nil {
		return fmt.Errorf("无法迁移countries表: %w", err)
	}
	logging.Info().Msg("Country数据库表迁移成功")
	return nil
}
