package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"franchise-crm/internal/core/auth"
	"franchise-crm/internal/core/server"
	"franchise-crm/internal/domain"
	"franchise-crm/internal/service"
	mdw "franchise-crm/internal/transport/http/middleware"
)

// Deps API 进程的依赖，由 cmd/api 组装
type Deps struct {
	DB           *gorm.DB // 为 nil 时不挂载 franchises
	JWT          *auth.JWTer
	Access       *service.AccessResolver
	Auth         *service.AuthService
	Provisioner  *service.Provisioner
	Profiles     domain.ProfileRepository
	Leads        *service.LeadService
	Pipeline     *service.PipelineService
	Tasks        *service.TaskService
	Comms        *service.CommunicationService
	Dashboard    *service.DashboardService
	Import       *service.ImportService
	Settings     *service.SettingsService
	AllowOrigins []string
}

func NewAPIEngine(l *zap.Logger, d Deps) *gin.Engine {
	r := server.NewRouter(l, d.AllowOrigins...)

	// 中间件
	r.Use(
		mdw.RequestID(),
		mdw.SimpleRecovery(l),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(16<<20),
		mdw.Timeout(10*time.Second),
		mdw.Metrics("api"),
	)

	// 健康检查
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 前缀
	api := r.Group("/api/v1")

	// 鉴权分组：caller 由 AuthJWT 解析
	authed := api.Group("")
	authed.Use(mdw.AuthJWT(d.JWT, d.Access))

	mountAuthActions(api, authed, d)
	mountLeadActions(authed, d)
	mountActivityActions(authed, d)
	mountInsightActions(authed, d)
	MountAdminActions(authed, d)
	if d.DB != nil {
		mountFranchises(authed, d.DB)
	}
	return r
}
