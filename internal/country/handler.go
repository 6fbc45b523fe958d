package country

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/SlpAus/country-cache-backend/internal/platform/apierror"
	"github.com/SlpAus/country-cache-backend/internal/platform/logging"
	"github.com/SlpAus/country-cache-backend/internal/upstream"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// DeleteResponse 是删除成功时的响应
type DeleteResponse struct {
	Message string `json:"message"`
	Deleted bool   `json:"deleted"`
}

// abortWithError 把领域错误映射为HTTP状态码和统一的错误结构。
// fallback 是500时返回给客户端的说明，完整错误只写入日志。
func abortWithError(c *gin.Context, err error, name, fallback string) {
	switch {
	case errors.Is(err, ErrDatabaseNotReady):
		details := "Database is still initializing. Please try again in a few seconds."
		if errors.Is(err, ErrDatabaseInitFailed) {
			details = "Database initialization failed"
		}
		apierror.Abort(c, http.StatusServiceUnavailable, "Database not ready", details)
	case errors.Is(err, upstream.ErrEmptyPayload):
		logging.Warn().Err(err).Msg("外部数据源返回了空数据")
		apierror.Abort(c, http.StatusServiceUnavailable, "External data source returned empty data", "Countries API returned no countries")
	case errors.Is(err, upstream.ErrUnavailable):
		logging.Warn().Err(err).Msg("外部数据源不可用")
		apierror.Abort(c, http.StatusServiceUnavailable, "External data source unavailable", "Could not fetch data from the external APIs")
	case errors.Is(err, ErrNotFound):
		apierror.Abort(c, http.StatusNotFound, "Country not found", fmt.Sprintf("No country found with name: %s", name))
	default:
		logging.Error().Err(err).Str("path", c.Request.URL.Path).Msg("请求处理失败")
		apierror.Abort(c, http.StatusInternalServerError, "Internal server error", fallback)
	}
}

// Refresh 触发一次完整的数据刷新
func (h *Handler) Refresh(c *gin.Context) {
	result, err := h.svc.Refresh(c.Request.Context())
	if err != nil {
		abortWithError(c, err, "", "Failed to refresh countries")
		return
	}
	c.JSON(http.StatusOK, result)
}

// List 返回国家列表，支持 region、currency、sort 查询参数
func (h *Handler) List(c *gin.Context) {
	f := Filter{
		Region:   c.Query("region"),
		Currency: c.Query("currency"),
		Sort:     c.Query("sort"),
	}
	countries, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		abortWithError(c, err, "", "Failed to retrieve countries")
		return
	}
	c.JSON(http.StatusOK, countries)
}

// Status 返回总数和最近刷新时间
func (h *Handler) Status(c *gin.Context) {
	st, err := h.svc.Status(c.Request.Context())
	if err != nil {
		abortWithError(c, err, "", "Failed to retrieve status")
		return
	}
	c.JSON(http.StatusOK, st)
}

// Get 按名称返回单个国家
func (h *Handler) Get(c *gin.Context) {
	name := c.Param("name")
	rec, err := h.svc.Get(c.Request.Context(), name)
	if err != nil {
		abortWithError(c, err, name, "Failed to retrieve country")
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Delete 按名称删除国家
func (h *Handler) Delete(c *gin.Context) {
	name := c.Param("name")
	if err := h.svc.Delete(c.Request.Context(), name); err != nil {
		abortWithError(c, err, name, "Failed to delete country")
		return
	}
	c.JSON(http.StatusOK, DeleteResponse{
		Message: fmt.Sprintf("%s deleted successfully", name),
		Deleted: true,
	})
}
