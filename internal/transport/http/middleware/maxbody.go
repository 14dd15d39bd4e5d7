package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxBodyBytes 限制请求体大小；xlsx 导入也走这里
func MaxBodyBytes(n int64) gin.HandlerFunc {
	return maxBody(n, envelopeReject)
}

// FunctionMaxBody 函数服务版本，超限返回 413
func FunctionMaxBody(n int64) gin.HandlerFunc {
	return maxBody(n, functionReject)
}

// IsBodyTooLarge 绑定请求体时读到了 MaxBytesReader 的上限
func IsBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func maxBody(n int64, reject Reject) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Content-Length 已知时直接拒绝；chunked 请求靠 MaxBytesReader 在读取时截断
		if c.Request.ContentLength > n {
			reject(c, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}
