package summary

import (
	"errors"
	"net/http"

	"github.com/SlpAus/country-cache-backend/internal/platform/apierror"
	"github.com/SlpAus/country-cache-backend/internal/platform/logging"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	renderer *Renderer
}

func NewHandler(renderer *Renderer) *Handler {
	return &Handler{renderer: renderer}
}

// GetImage 返回最近一次刷新生成的摘要图片
func (h *Handler) GetImage(c *gin.Context) {
	data, err := h.renderer.Load()
	if err != nil {
		if errors.Is(err, ErrNotRendered) {
			apierror.Abort(c, http.StatusNotFound, "Summary image not found", "Run POST /countries/refresh first to generate the image")
			return
		}
		logging.Error().Err(err).Msg("读取摘要图片失败")
		apierror.Abort(c, http.StatusInternalServerError, "Internal server error", "Failed to read summary image")
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}
