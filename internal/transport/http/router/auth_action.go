package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"franchise-crm/internal/domain"
	"franchise-crm/internal/service"
	httpez "franchise-crm/internal/transport/http/ez"
	mdw "franchise-crm/internal/transport/http/middleware"
)

// ---------- 动作注册：/auth/login + /me ----------

func mountAuthActions(api, authed *gin.RouterGroup, d Deps) {
	// 公共分组（无需登录），按 IP 限速
	public := api.Group("")
	public.Use(mdw.RateLimitPerIP(1, 10))
	ezPublic := httpez.New(public)

	type loginIn struct {
		Email    string `json:"email"    binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	httpez.RegisterAction(ezPublic, httpez.Action[loginIn, *service.LoginResult]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, _ domain.Caller, in *loginIn) (*service.LoginResult, error) {
			return d.Auth.Login(c.Request.Context(), in.Email, in.Password)
		},
	})

	// /me 对没有 profile 的账号也开放，前端据此提示
	type meOut struct {
		Caller  domain.Caller   `json:"caller"`
		Profile *domain.Profile `json:"profile"`
	}
	httpez.RegisterAction(httpez.New(authed), httpez.Action[struct{}, meOut]{
		Method:         http.MethodGet,
		Path:           "/me",
		Binder:         httpez.BindNone,
		Auth:           true,
		AllowNoProfile: true,
		Handler: func(c *gin.Context, caller domain.Caller, _ *struct{}) (meOut, error) {
			p, err := d.Access.Profile(c.Request.Context(), caller.UserID)
			if err != nil {
				return meOut{}, err
			}
			return meOut{Caller: caller, Profile: p}, nil
		},
	})
}
