package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"franchise-crm/internal/domain"
	"franchise-crm/internal/service"
	httpez "franchise-crm/internal/transport/http/ez"
)

func mountInsightActions(g *gin.RouterGroup, d Deps) {
	ez := httpez.New(g)

	httpez.RegisterAction(ez, httpez.Action[struct{}, *service.DashboardStats]{
		Method: http.MethodGet,
		Path:   "/dashboard",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ domain.Caller, _ *struct{}) (*service.DashboardStats, error) {
			return d.Dashboard.Stats(c.Request.Context())
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, httpez.File]{
		Method: http.MethodGet,
		Path:   "/dashboard/report.pdf",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ domain.Caller, _ *struct{}) (httpez.File, error) {
			pdf, err := d.Dashboard.ReportPDF(c.Request.Context())
			if err != nil {
				return httpez.File{}, err
			}
			return httpez.File{Name: "dashboard.pdf", ContentType: "application/pdf", Data: pdf}, nil
		},
	})
}

// mountFranchises 加盟店 CRUD：所有 profile 可读，写需要 CanEditFranchises
func mountFranchises(g *gin.RouterGroup, db *gorm.DB) {
	trim := func(_ *gin.Context, f *domain.Franchise) error {
		f.Name = strings.TrimSpace(f.Name)
		if f.Name == "" {
			return domain.Validation("name is required")
		}
		f.Email = domain.NormalizeEmail(f.Email)
		return nil
	}
	httpez.Crud(httpez.CrudConfig[domain.Franchise]{
		DB:            db,
		Group:         g,
		Path:          "/franchises",
		New:           func() *domain.Franchise { return &domain.Franchise{} },
		OwnerField:    "CreatedBy",
		CanWrite:      func(c domain.Capabilities) bool { return c.CanEditFranchises },
		OrderBy:       "name ASC",
		SearchColumns: []string{"name", "city", "province"},
		Hooks: httpez.CrudHooks[domain.Franchise]{
			BeforeCreate: trim,
			BeforeUpdate: trim,
		},
	})
}
