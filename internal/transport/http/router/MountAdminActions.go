package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"franchise-crm/internal/domain"
	"franchise-crm/internal/service"
	httpez "franchise-crm/internal/transport/http/ez"
)

func canManageUsers(c domain.Capabilities) bool { return c.CanManageUsers }

// MountAdminActions 用户管理接口，统一要求 CanManageUsers
func MountAdminActions(g *gin.RouterGroup, d Deps) {
	ez := httpez.New(g)
	const denied = "you do not have permission to manage users"

	// --- GET /users  用户列表 ---
	type listQ struct {
		Page int `form:"page,default=1"`
		Size int `form:"size,default=20"`
	}
	type listOut struct {
		Total int64            `json:"total"`
		List  []domain.Profile `json:"list"`
		Page  int              `json:"page"`
		Size  int              `json:"size"`
	}
	httpez.RegisterAction(ez, httpez.Action[listQ, listOut]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: httpez.BindQuery,
		Auth:   true,
		Need:   canManageUsers,
		Denied: denied,
		Handler: func(c *gin.Context, _ domain.Caller, in *listQ) (listOut, error) {
			if in.Size <= 0 || in.Size > 100 {
				in.Size = 20
			}
			if in.Page <= 0 {
				in.Page = 1
			}
			items, total, err := d.Profiles.List(c.Request.Context(), (in.Page-1)*in.Size, in.Size)
			if err != nil {
				return listOut{}, domain.Upstream("profile store", err)
			}
			if items == nil {
				items = []domain.Profile{}
			}
			return listOut{Total: total, List: items, Page: in.Page, Size: in.Size}, nil
		},
	})

	type idOut struct {
		UserID string `json:"userId"`
	}

	// --- POST /users  开通用户 ---
	httpez.RegisterAction(ez, httpez.Action[service.CreateUserInput, idOut]{
		Method: http.MethodPost,
		Path:   "/users",
		Binder: httpez.BindJSON,
		Auth:   true,
		Need:   canManageUsers,
		Denied: denied,
		Handler: func(c *gin.Context, _ domain.Caller, in *service.CreateUserInput) (idOut, error) {
			id, err := d.Provisioner.Create(c.Request.Context(), *in)
			return idOut{UserID: id}, err
		},
	})

	// --- PUT /users/:id ---
	httpez.RegisterAction(ez, httpez.Action[service.UpdateUserInput, idOut]{
		Method: http.MethodPut,
		Path:   "/users/:id",
		Binder: httpez.BindJSON,
		Auth:   true,
		Need:   canManageUsers,
		Denied: denied,
		Handler: func(c *gin.Context, _ domain.Caller, in *service.UpdateUserInput) (idOut, error) {
			in.UserID = c.Param("id")
			return idOut{UserID: in.UserID}, d.Provisioner.Update(c.Request.Context(), *in)
		},
	})

	// --- DELETE /users/:id  不能删除自己 ---
	httpez.RegisterAction(ez, httpez.Action[struct{}, idOut]{
		Method: http.MethodDelete,
		Path:   "/users/:id",
		Binder: httpez.BindNone,
		Auth:   true,
		Need:   canManageUsers,
		Denied: denied,
		Handler: func(c *gin.Context, caller domain.Caller, _ *struct{}) (idOut, error) {
			id := c.Param("id")
			if id == caller.UserID {
				return idOut{}, domain.Validation("you cannot delete your own account")
			}
			return idOut{UserID: id}, d.Provisioner.Delete(c.Request.Context(), id)
		},
	})

	// --- 邮件设置 ---
	httpez.RegisterAction(ez, httpez.Action[struct{}, *domain.EmailSettings]{
		Method: http.MethodGet,
		Path:   "/settings/email",
		Binder: httpez.BindNone,
		Auth:   true,
		Need:   canManageUsers,
		Handler: func(c *gin.Context, _ domain.Caller, _ *struct{}) (*domain.EmailSettings, error) {
			return d.Settings.Get(c.Request.Context())
		},
	})
	httpez.RegisterAction(ez, httpez.Action[domain.EmailSettings, *domain.EmailSettings]{
		Method: http.MethodPut,
		Path:   "/settings/email",
		Binder: httpez.BindJSON,
		Auth:   true,
		Need:   canManageUsers,
		Handler: func(c *gin.Context, _ domain.Caller, in *domain.EmailSettings) (*domain.EmailSettings, error) {
			return d.Settings.Save(c.Request.Context(), *in)
		},
	})
}
