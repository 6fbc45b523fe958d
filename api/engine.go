package api

import (
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// EngineConfig 是构造HTTP引擎所需的配置
type EngineConfig struct {
	AllowedOrigins []string
	// TrustedProxies 为空时不信任任何代理，ClientIP 只取连接的对端地址
	TrustedProxies []string
}

// NewEngine 创建挂好公共中间件的gin引擎，路由由 SetupRoutes 注册
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	r := gin.New()

	var proxies []string
	if len(cfg.TrustedProxies) > 0 {
		proxies = cfg.TrustedProxies
	}
	if err := r.SetTrustedProxies(proxies); err != nil {
		return nil, fmt.Errorf("无效的可信代理配置: %w", err)
	}

	// Recovery 放在日志之后，panic 转成的500也会被记录
	r.Use(RequestID(), RequestLogger(), Recovery())
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.AllowedOrigins,
			AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", RequestIDHeader},
			ExposeHeaders: []string{"Content-Length", RequestIDHeader},
			MaxAge:        12 * time.Hour,
		}))
	}
	return r, nil
}
