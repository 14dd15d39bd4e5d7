package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"franchise-crm/internal/domain"
	"franchise-crm/internal/service"
	httpez "franchise-crm/internal/transport/http/ez"
)

// mountActivityActions 任务与沟通记录
func mountActivityActions(g *gin.RouterGroup, d Deps) {
	ez := httpez.New(g)

	httpez.RegisterAction(ez, httpez.Action[struct{}, []domain.Task]{
		Method: http.MethodGet,
		Path:   "/tasks",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, caller domain.Caller, _ *struct{}) ([]domain.Task, error) {
			return d.Tasks.Mine(c.Request.Context(), caller)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[service.CreateTaskInput, *domain.Task]{
		Method: http.MethodPost,
		Path:   "/tasks",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, caller domain.Caller, in *service.CreateTaskInput) (*domain.Task, error) {
			return d.Tasks.Create(c.Request.Context(), caller, *in)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, *domain.Task]{
		Method: http.MethodPost,
		Path:   "/tasks/:id/toggle",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, caller domain.Caller, _ *struct{}) (*domain.Task, error) {
			return d.Tasks.Toggle(c.Request.Context(), caller, c.Param("id"))
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, idOnly]{
		Method: http.MethodDelete,
		Path:   "/tasks/:id",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, caller domain.Caller, _ *struct{}) (idOnly, error) {
			id := c.Param("id")
			return idOnly{ID: id}, d.Tasks.Delete(c.Request.Context(), caller, id)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, []domain.Task]{
		Method: http.MethodGet,
		Path:   "/leads/:id/tasks",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ domain.Caller, _ *struct{}) ([]domain.Task, error) {
			return d.Tasks.ByLead(c.Request.Context(), c.Param("id"))
		},
	})

	// --- 沟通记录 ---
	httpez.RegisterAction(ez, httpez.Action[struct{}, []domain.Communication]{
		Method: http.MethodGet,
		Path:   "/leads/:id/communications",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ domain.Caller, _ *struct{}) ([]domain.Communication, error) {
			return d.Comms.ByLead(c.Request.Context(), c.Param("id"))
		},
	})

	httpez.RegisterAction(ez, httpez.Action[service.LogCommunicationInput, *domain.Communication]{
		Method: http.MethodPost,
		Path:   "/communications",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, caller domain.Caller, in *service.LogCommunicationInput) (*domain.Communication, error) {
			return d.Comms.Log(c.Request.Context(), caller, *in)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, idOnly]{
		Method: http.MethodDelete,
		Path:   "/communications/:id",
		Binder: httpez.BindNone,
		Auth:   true,
		Need:   canEditLeads,
		Denied: "you do not have permission to delete communications",
		Handler: func(c *gin.Context, _ domain.Caller, _ *struct{}) (idOnly, error) {
			id := c.Param("id")
			return idOnly{ID: id}, d.Comms.Delete(c.Request.Context(), id)
		},
	})

	type emailIn struct {
		Subject string `json:"subject" binding:"required"`
		Body    string `json:"body"    binding:"required"`
	}
	httpez.RegisterAction(ez, httpez.Action[emailIn, *domain.Communication]{
		Method: http.MethodPost,
		Path:   "/leads/:id/email",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, caller domain.Caller, in *emailIn) (*domain.Communication, error) {
			return d.Comms.SendEmail(c.Request.Context(), caller, service.SendEmailInput{
				LeadID: c.Param("id"), Subject: in.Subject, Body: in.Body,
			})
		},
	})
}
