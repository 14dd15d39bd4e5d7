package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func Timeout(d time.Duration) gin.HandlerFunc {
	return timeout(d, envelopeReject)
}

// FunctionTimeout 函数服务版本，handler 超时且未写响应时返回 504
func FunctionTimeout(d time.Duration) gin.HandlerFunc {
	return timeout(d, functionReject)
}

func timeout(d time.Duration, reject Reject) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			reject(c, http.StatusGatewayTimeout, "timeout")
		}
	}
}
