package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	resp "franchise-crm/internal/transport/http/response"
)

// Reject 限流/超时/超大请求体等拒绝响应的写法，两个服务各自一份
type Reject func(c *gin.Context, status int, msg string)

// envelopeReject API 服务：HTTP 200 + {code,msg,data}，code 沿用 HTTP 语义
func envelopeReject(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(http.StatusOK, resp.Error(status, msg))
}

// functionReject 函数服务：真实状态码 + {success:false,error}；CORS 头已由 FunctionCORS 写入
func functionReject(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, FunctionResp{Success: false, Error: msg})
}
