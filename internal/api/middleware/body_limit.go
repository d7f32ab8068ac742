package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sugang-timetable/backend/pkg/response"
)

// BodyLimit 请求体大小限制
// 声明的 Content-Length 超限时直接以 413 拒绝；未声明长度的请求在读取时由 MaxBytesReader 截断，
// 截断错误由 handler 绑定请求体时识别
func BodyLimit(maxBytes int64, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			rid := c.GetString(requestIDKey)
			logger.Warn("请求体超出限制",
				zap.String("request_id", rid),
				zap.String("path", c.Request.URL.Path),
				zap.Int64("content_length", c.Request.ContentLength),
				zap.Int64("limit", maxBytes),
			)
			response.ErrorWithDetails(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大", rid)
			c.Abort()
			return
		}

		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
