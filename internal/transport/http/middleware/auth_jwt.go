package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"franchise-crm/internal/core/auth"
	"franchise-crm/internal/domain"
	resp "franchise-crm/internal/transport/http/response"
)

const (
	KeyCaller = "caller"
	KeyUserID = "userId"
)

// CallerResolver 由 service.AccessResolver 实现
type CallerResolver interface {
	Resolve(ctx context.Context, userID, email string) (domain.Caller, error)
}

func SetCaller(c *gin.Context, caller domain.Caller) {
	c.Set(KeyCaller, caller)
	c.Set(KeyUserID, caller.UserID)
}

func CallerOf(c *gin.Context) (domain.Caller, bool) {
	v, ok := c.Get(KeyCaller)
	if !ok {
		return domain.Caller{}, false
	}
	caller, ok := v.(domain.Caller)
	return caller, ok
}

func bearer(c *gin.Context) (string, bool) {
	ah := c.GetHeader("Authorization")
	if len(ah) < 7 || !strings.EqualFold(ah[:7], "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(ah[7:])
	return tok, tok != ""
}

// AuthJWT 解析 token 后按 profile 解析角色；token 里的 role 只是提示
func AuthJWT(j *auth.JWTer, r CallerResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := bearer(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "missing token"))
			return
		}
		claims, err := j.Parse(tok)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "invalid token"))
			return
		}
		caller, err := r.Resolve(c.Request.Context(), claims.UserID(), claims.Email)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusOK, resp.FromError(err))
			return
		}
		SetCaller(c, caller)
		c.Next()
	}
}
