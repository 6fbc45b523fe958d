package api

import (
	"net/http"
	"time"

	"github.com/SlpAus/country-cache-backend/internal/platform/database"
	"github.com/SlpAus/country-cache-backend/internal/platform/health"
	"github.com/SlpAus/country-cache-backend/internal/platform/logging"
	"github.com/SlpAus/country-cache-backend/internal/platform/metadata"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthResponse 是 /healthz 的响应。未就绪时同时带有统一错误结构的 error 和 details 字段。
type HealthResponse struct {
	Error       string       `json:"error,omitempty"`
	Details     string       `json:"details,omitempty"`
	Database    string       `json:"database"`
	Cache       string       `json:"cache"`
	LastRefresh *LastRefresh `json:"last_refresh,omitempty"`
}

type LastRefresh struct {
	ID        string    `json:"id"`
	At        time.Time `json:"at"`
	Processed int       `json:"countries_processed"`
}

type HealthHandler struct {
	db      *gorm.DB
	ready   *database.Readiness
	monitor *health.Monitor
}

// NewHealthHandler 创建健康检查处理器，monitor 为nil表示未启用缓存
func NewHealthHandler(db *gorm.DB, ready *database.Readiness, monitor *health.Monitor) *HealthHandler {
	return &HealthHandler{db: db, ready: ready, monitor: monitor}
}

// Welcome 是存活检查
func Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to Country Cache API"})
}

// Healthz 报告数据库和缓存的就绪状态。只有数据库未就绪时返回503，缓存是可选的。
func (h *HealthHandler) Healthz(c *gin.Context) {
	resp := HealthResponse{Cache: "disabled"}
	if h.monitor != nil {
		resp.Cache = h.monitor.State().String()
	}

	ready, err := h.ready.State()
	switch {
	case ready:
		resp.Database = "ready"
	case err != nil:
		resp.Database = "failed"
		resp.Details = "Database initialization failed"
	default:
		resp.Database = "initializing"
		resp.Details = "Database is still initializing"
	}
	if !ready {
		resp.Error = "Service not ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}

	last, err := metadata.LastRefresh(h.db.WithContext(c.Request.Context()))
	if err != nil {
		logging.Warn().Err(err).Msg("读取刷新元数据失败")
	} else if last != nil {
		resp.LastRefresh = &LastRefresh{ID: last.ID, At: last.At, Processed: last.Processed}
	}
	c.JSON(http.StatusOK, resp)
}
