package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"
)

// ConcurrencyLimit 限制同时在处理的请求数（保护 DB 和身份服务）
func ConcurrencyLimit(max int64) gin.HandlerFunc {
	return concurrencyLimit(max, envelopeReject)
}

// FunctionConcurrencyLimit 函数服务版本，排队期间客户端放弃则返回 429
func FunctionConcurrencyLimit(max int64) gin.HandlerFunc {
	return concurrencyLimit(max, functionReject)
}

func concurrencyLimit(max int64, reject Reject) gin.HandlerFunc {
	sem := semaphore.NewWeighted(max)
	return func(c *gin.Context) {
		if err := sem.Acquire(c.Request.Context(), 1); err != nil {
			reject(c, http.StatusTooManyRequests, "server busy")
			return
		}
		defer sem.Release(1)
		c.Next()
	}
}
