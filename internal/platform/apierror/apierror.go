package apierror

import (
	"github.com/gin-gonic/gin"
)

// Envelope 是所有非2xx响应统一使用的错误结构
type Envelope struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// Abort 写入错误响应并终止后续处理器
func Abort(c *gin.Context, status int, message, details string) {
	c.AbortWithStatusJSON(status, Envelope{Error: message, Details: details})
}
