package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"franchise-crm/internal/domain"
	"franchise-crm/internal/pipeline"
	"franchise-crm/internal/service"
	httpez "franchise-crm/internal/transport/http/ez"
)

func canEditLeads(c domain.Capabilities) bool      { return c.CanEditLeads }
func canMutatePipeline(c domain.Capabilities) bool { return c.CanMutatePipeline }

type leadQ struct {
	Stage      string `form:"stage"`
	Source     string `form:"source"`
	AssignedTo string `form:"assignedTo"`
	Q          string `form:"q"`
	Page       int    `form:"page,default=1"`
	Size       int    `form:"size,default=20"`
}

func (q leadQ) filter() domain.LeadFilter {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Size <= 0 || q.Size > 100 {
		q.Size = 20
	}
	return domain.LeadFilter{
		Stage:         q.Stage,
		SourceChannel: domain.SourceChannel(q.Source),
		AssignedTo:    q.AssignedTo,
		Search:        q.Q,
		Offset:        (q.Page - 1) * q.Size,
		Limit:         q.Size,
	}
}

type idOnly struct {
	ID string `json:"id"`
}

func mountLeadActions(g *gin.RouterGroup, d Deps) {
	ez := httpez.New(g)

	httpez.RegisterAction(ez, httpez.Action[leadQ, *service.LeadPage]{
		Method: http.MethodGet,
		Path:   "/leads",
		Binder: httpez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, _ domain.Caller, in *leadQ) (*service.LeadPage, error) {
			return d.Leads.List(c.Request.Context(), in.filter())
		},
	})

	httpez.RegisterAction(ez, httpez.Action[service.CreateLeadInput, *domain.LeadView]{
		Method: http.MethodPost,
		Path:   "/leads",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, caller domain.Caller, in *service.CreateLeadInput) (*domain.LeadView, error) {
			return d.Leads.Create(c.Request.Context(), caller, *in)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, *service.LeadFull]{
		Method: http.MethodGet,
		Path:   "/leads/:id",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ domain.Caller, _ *struct{}) (*service.LeadFull, error) {
			return d.Leads.Get(c.Request.Context(), c.Param("id"))
		},
	})

	httpez.RegisterAction(ez, httpez.Action[service.UpdateLeadInput, idOnly]{
		Method: http.MethodPut,
		Path:   "/leads/:id",
		Binder: httpez.BindJSON,
		Auth:   true,
		Need:   canEditLeads,
		Denied: "you do not have permission to edit leads",
		Handler: func(c *gin.Context, _ domain.Caller, in *service.UpdateLeadInput) (idOnly, error) {
			id := c.Param("id")
			return idOnly{ID: id}, d.Leads.Update(c.Request.Context(), id, *in)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, idOnly]{
		Method: http.MethodDelete,
		Path:   "/leads/:id",
		Binder: httpez.BindNone,
		Auth:   true,
		Need:   canEditLeads,
		Denied: "you do not have permission to delete leads",
		Handler: func(c *gin.Context, _ domain.Caller, _ *struct{}) (idOnly, error) {
			id := c.Param("id")
			return idOnly{ID: id}, d.Leads.Delete(c.Request.Context(), id)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, []domain.StatusEntry]{
		Method: http.MethodGet,
		Path:   "/leads/:id/history",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ domain.Caller, _ *struct{}) ([]domain.StatusEntry, error) {
			return d.Leads.History(c.Request.Context(), c.Param("id"))
		},
	})

	// --- 看板与阶段流转 ---
	httpez.RegisterAction(ez, httpez.Action[leadQ, []pipeline.Column]{
		Method: http.MethodGet,
		Path:   "/pipeline",
		Binder: httpez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, _ domain.Caller, in *leadQ) ([]pipeline.Column, error) {
			return d.Pipeline.Board(c.Request.Context(), in.filter())
		},
	})

	type moveIn struct {
		From string `json:"from" binding:"required"`
		To   string `json:"to"   binding:"required"`
	}
	httpez.RegisterAction(ez, httpez.Action[moveIn, *service.MoveResult]{
		Method: http.MethodPost,
		Path:   "/leads/:id/move",
		Binder: httpez.BindJSON,
		Auth:   true,
		Need:   canMutatePipeline,
		Denied: pipeline.ErrPermissionDenied.Error(),
		Handler: func(c *gin.Context, caller domain.Caller, in *moveIn) (*service.MoveResult, error) {
			return d.Pipeline.Move(c.Request.Context(), caller, service.MoveInput{LeadID: c.Param("id"), From: in.From, To: in.To})
		},
	})

	// --- xlsx 导入 ---
	httpez.RegisterAction(ez, httpez.Action[struct{}, *service.ImportResult]{
		Method: http.MethodPost,
		Path:   "/imports/leads",
		Binder: httpez.BindNone,
		Auth:   true,
		Need:   canEditLeads,
		Denied: "you do not have permission to import leads",
		Handler: func(c *gin.Context, caller domain.Caller, _ *struct{}) (*service.ImportResult, error) {
			f, _, err := httpez.FormFile(c, "file")
			if err != nil {
				return nil, err
			}
			defer f.Close()
			return d.Import.Import(c.Request.Context(), caller, f)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, httpez.File]{
		Method: http.MethodGet,
		Path:   "/imports/leads/template",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ domain.Caller, _ *struct{}) (httpez.File, error) {
			data, err := service.ImportTemplate()
			if err != nil {
				return httpez.File{}, httpez.Internal("build template failed", err)
			}
			return httpez.File{
				Name:        "leads-template.xlsx",
				ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
				Data:        data,
			}, nil
		},
	})
}
