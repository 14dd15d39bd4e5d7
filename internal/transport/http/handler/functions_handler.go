package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"franchise-crm/internal/domain"
	"franchise-crm/internal/service"
	mdw "franchise-crm/internal/transport/http/middleware"
)

// Functions 用户开通函数：create-user / update-user / delete-user
type Functions struct {
	prov *service.Provisioner
	log  *zap.Logger
}

func NewFunctions(p *service.Provisioner, l *zap.Logger) *Functions {
	if l == nil {
		l = zap.NewNop()
	}
	return &Functions{prov: p, log: l.Named("functions")}
}

func (h *Functions) bind(c *gin.Context, in any) bool {
	if err := c.ShouldBindJSON(in); err != nil {
		if mdw.IsBodyTooLarge(err) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, mdw.FunctionResp{Error: "request body too large"})
			return false
		}
		mdw.AbortFunction(c, domain.Validation("invalid JSON body"))
		return false
	}
	return true
}

func (h *Functions) fail(c *gin.Context, op string, err error) {
	caller, _ := mdw.CallerOf(c)
	h.log.Warn(op+" failed",
		zap.String("rid", mdw.RequestIDOf(c)),
		zap.String("caller", caller.UserID),
		zap.Bool("service", caller.Service),
		zap.String("kind", string(domain.KindOf(err))),
		zap.Error(err),
	)
	mdw.AbortFunction(c, err)
}

func (h *Functions) CreateUser(c *gin.Context) {
	var in service.CreateUserInput
	if !h.bind(c, &in) {
		return
	}
	id, err := h.prov.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "create-user", err)
		return
	}
	c.JSON(http.StatusOK, mdw.FunctionResp{Success: true, UserID: id})
}

func (h *Functions) UpdateUser(c *gin.Context) {
	var in service.UpdateUserInput
	if !h.bind(c, &in) {
		return
	}
	if err := h.prov.Update(c.Request.Context(), in); err != nil {
		h.fail(c, "update-user", err)
		return
	}
	c.JSON(http.StatusOK, mdw.FunctionResp{Success: true})
}

func (h *Functions) DeleteUser(c *gin.Context) {
	var in struct {
		UserID string `json:"userId"`
	}
	if !h.bind(c, &in) {
		return
	}
	if err := h.prov.Delete(c.Request.Context(), in.UserID); err != nil {
		h.fail(c, "delete-user", err)
		return
	}
	c.JSON(http.StatusOK, mdw.FunctionResp{Success: true})
}
