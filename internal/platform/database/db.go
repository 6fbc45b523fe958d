package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/SlpAus/country-cache-backend/internal/platform/config"
	"github.com/SlpAus/country-cache-backend/internal/platform/logging"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// gormWriter 把GORM自身的日志转发到zerolog
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...interface{}) {
	logging.Debug().Str("component", "gorm").Msgf(format, args...)
}

// dialectorFor 根据URL选择数据库驱动
func dialectorFor(url string) (gorm.Dialector, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return postgres.Open(url), nil
	case strings.Contains(url, "://") && !strings.HasPrefix(url, "sqlite://"):
		return nil, fmt.Errorf("不支持的数据库URL: %s", url)
	}

	path := strings.TrimPrefix(url, "sqlite://")
	if dir := filepath.Dir(path); dir != "." && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("无法创建SQLite目录 %s: %w", dir, err)
		}
	}
	return sqlite.Open(path), nil
}

// Open 建立数据库连接。连接池由gorm在进程内共享，每个请求按需取用连接。
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg.URL)
	if err != nil {
		return nil, err
	}

	gormLogger := logger.New(gormWriter{}, logger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  gormLogger,
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("无法获取底层数据库连接: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	logging.Info().Str("driver", db.Dialector.Name()).Msg("数据库连接成功")
	return db, nil
}

// Close 释放连接池
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
