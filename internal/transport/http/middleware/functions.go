package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"franchise-crm/internal/core/auth"
	"franchise-crm/internal/domain"
)

// 函数服务固定的 CORS 头，浏览器端直接调用
var functionCORSHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Headers": "authorization, x-client-info, apikey, content-type",
	"Access-Control-Allow-Methods": "POST, OPTIONS",
	"Access-Control-Max-Age":       "86400",
}

// FunctionResp 函数服务的响应体，不走 {code,msg,data} 信封
type FunctionResp struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId,omitempty"`
	Error   string `json:"error,omitempty"`
}

// FunctionStatus 领域错误 → HTTP 状态码
func FunctionStatus(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindUpstream:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func AbortFunction(c *gin.Context, err error) {
	c.AbortWithStatusJSON(FunctionStatus(err), FunctionResp{Success: false, Error: domain.Message(err)})
}

// FunctionCORS 每个响应都带 CORS 头；OPTIONS 直接返回 200 "ok"
func FunctionCORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		for k, v := range functionCORSHeaders {
			h.Set(k, v)
		}
		if c.Request.Method == http.MethodOptions {
			c.String(http.StatusOK, "ok")
			c.Abort()
			return
		}
		c.Next()
	}
}

// FunctionRecovery panic 也返回带 CORS 头的 JSON 错误
func FunctionRecovery(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				l.Error("panic recovered", zap.Any("panic", rec), zap.String("path", c.Request.URL.Path), zap.Stack("stack"))
				c.AbortWithStatusJSON(http.StatusInternalServerError, FunctionResp{Error: "internal error"})
			}
		}()
		c.Next()
	}
}

func isServiceKey(v, serviceKey string) bool {
	return serviceKey != "" && v != "" && subtle.ConstantTimeCompare([]byte(v), []byte(serviceKey)) == 1
}

// FunctionAuth apikey 头或 bearer 等于 service key 时视为服务调用；
// 否则 bearer 必须是用户 token，且 profile 有 CanManageUsers
func FunctionAuth(serviceKey string, j *auth.JWTer, r CallerResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, hasBearer := bearer(c)
		if isServiceKey(c.GetHeader("apikey"), serviceKey) || (hasBearer && isServiceKey(tok, serviceKey)) {
			SetCaller(c, domain.ServiceCaller())
			c.Next()
			return
		}
		if !hasBearer {
			AbortFunction(c, domain.Unauthorized("missing authorization"))
			return
		}
		claims, err := j.Parse(tok)
		if err != nil {
			AbortFunction(c, domain.Unauthorized("invalid token"))
			return
		}
		caller, err := r.Resolve(c.Request.Context(), claims.UserID(), claims.Email)
		if err != nil {
			AbortFunction(c, err)
			return
		}
		if !caller.Capabilities.CanManageUsers {
			AbortFunction(c, domain.Forbidden("you do not have permission to manage users"))
			return
		}
		SetCaller(c, caller)
		c.Next()
	}
}
