package api

import (
	"net/http"

	"github.com/SlpAus/country-cache-backend/internal/country"
	"github.com/SlpAus/country-cache-backend/internal/platform/apierror"
	"github.com/SlpAus/country-cache-backend/internal/summary"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers 汇集了所有路由需要的处理器，由main构造后注入
type Handlers struct {
	Countries      *country.Handler
	Summary        *summary.Handler
	Health         *HealthHandler
	RefreshLimiter *RateLimiter
}

// SetupRoutes 注册项目的所有API路由
func SetupRoutes(router *gin.Engine, h Handlers) {
	router.GET("/", Welcome)
	router.GET("/healthz", h.Health.Healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 国家相关的路由组 /countries
	countries := router.Group("/countries")
	{
		countries.POST("/refresh", h.RefreshLimiter.Handler(), h.Countries.Refresh)
		countries.GET("", h.Countries.List)
		// 静态路径优先于 :name 匹配
		countries.GET("/status", h.Countries.Status)
		countries.GET("/image", h.Summary.GetImage)
		countries.GET("/:name", h.Countries.Get)
		countries.DELETE("/:name", h.Countries.Delete)
	}

	router.NoRoute(func(c *gin.Context) {
		apierror.Abort(c, http.StatusNotFound, "Not found", "No route for "+c.Request.Method+" "+c.Request.URL.Path)
	})
	router.HandleMethodNotAllowed = true
	router.NoMethod(func(c *gin.Context) {
		apierror.Abort(c, http.StatusMethodNotAllowed, "Method not allowed", c.Request.Method+" is not supported on "+c.Request.URL.Path)
	})
}
