package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"franchise-crm/internal/core/auth"
	"franchise-crm/internal/service"
	"franchise-crm/internal/transport/http/handler"
	mdw "franchise-crm/internal/transport/http/middleware"
)

// FunctionDeps 函数服务的依赖，由 cmd/functions 组装
type FunctionDeps struct {
	Provisioner *service.Provisioner
	JWT         *auth.JWTer
	Access      *service.AccessResolver
	ServiceKey  string

	// 为 0 时用默认值 50 rps / burst 100 / 1MiB
	RPS          rate.Limit
	Burst        int
	MaxBodyBytes int64
}

func (d FunctionDeps) rps() rate.Limit {
	if d.RPS > 0 {
		return d.RPS
	}
	return 50
}

func (d FunctionDeps) burst() int {
	if d.Burst > 0 {
		return d.Burst
	}
	return 100
}

func (d FunctionDeps) maxBody() int64 {
	if d.MaxBodyBytes > 0 {
		return d.MaxBodyBytes
	}
	return 1 << 20
}

// NewFunctionsEngine 不使用 gin-contrib/cors：CORS 头固定，错误响应也要带上
func NewFunctionsEngine(l *zap.Logger, d FunctionDeps) *gin.Engine {
	r := gin.New()

	r.Use(
		mdw.FunctionCORS(),
		mdw.FunctionRecovery(l),
		mdw.RequestID(),
		mdw.FunctionRateLimit(d.rps(), d.burst()),
		mdw.FunctionConcurrencyLimit(50),
		mdw.FunctionMaxBody(d.maxBody()),
		mdw.FunctionTimeout(15*time.Second),
		mdw.Metrics("functions"),
		mdw.AccessLog(l),
	)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	// 预检请求由 FunctionCORS 处理，这里只保证路由存在
	r.OPTIONS("/*path", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, mdw.FunctionResp{Error: "not found"})
	})

	h := handler.NewFunctions(d.Provisioner, l)
	fn := r.Group("/functions/v1")
	fn.Use(mdw.FunctionAuth(d.ServiceKey, d.JWT, d.Access))
	fn.POST("/create-user", h.CreateUser)
	fn.POST("/update-user", h.UpdateUser)
	fn.POST("/delete-user", h.DeleteUser)
	return r
}
