package ez

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"franchise-crm/internal/domain"
	mdw "franchise-crm/internal/transport/http/middleware"
	resp "franchise-crm/internal/transport/http/response"
)

func withCaller(caller *domain.Caller) gin.HandlerFunc {
	return func(c *gin.Context) {
		if caller != nil {
			mdw.SetCaller(c, *caller)
		}
		c.Next()
	}
}

func call(t *testing.T, caller *domain.Caller, register func(EZ), method, path, body string) resp.Resp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("", withCaller(caller))
	register(New(g))

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var out resp.Resp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

type echoIn struct {
	Name string `json:"name" binding:"required"`
}

func echo(need func(domain.Capabilities) bool, allowNoProfile bool) func(EZ) {
	return func(e EZ) {
		RegisterAction(e, Action[echoIn, string]{
			Method:         http.MethodPost,
			Path:           "/echo",
			Binder:         BindJSON,
			Auth:           true,
			AllowNoProfile: allowNoProfile,
			Need:           need,
			Denied:         "editors only",
			Handler: func(_ *gin.Context, caller domain.Caller, in *echoIn) (string, error) {
				return caller.UserID + ":" + in.Name, nil
			},
		})
	}
}

func TestRegisterAction_Authorize(t *testing.T) {
	admin := domain.NewCaller("a1", "a@example.com", domain.RoleAdmin, true)
	user := domain.NewCaller("u1", "u@example.com", domain.RoleUser, true)
	orphan := domain.NewCaller("o1", "o@example.com", "", false)
	edit := func(c domain.Capabilities) bool { return c.CanEditLeads }

	out := call(t, nil, echo(nil, false), http.MethodPost, "/echo", `{"name":"x"}`)
	assert.Equal(t, resp.CodeUnauthorized, out.Code)

	out = call(t, &orphan, echo(nil, false), http.MethodPost, "/echo", `{"name":"x"}`)
	assert.Equal(t, resp.CodeForbidden, out.Code)
	assert.Equal(t, "account has no profile", out.Msg)

	out = call(t, &orphan, echo(nil, true), http.MethodPost, "/echo", `{"name":"x"}`)
	assert.Equal(t, resp.CodeOK, out.Code)
	assert.Equal(t, "o1:x", out.Data)

	out = call(t, &user, echo(edit, false), http.MethodPost, "/echo", `{"name":"x"}`)
	assert.Equal(t, resp.CodeForbidden, out.Code)
	assert.Equal(t, "editors only", out.Msg)

	out = call(t, &admin, echo(edit, false), http.MethodPost, "/echo", `{}`)
	assert.Equal(t, resp.CodeBadRequest, out.Code)

	out = call(t, &admin, echo(edit, false), http.MethodPost, "/echo", `{"name":"x"}`)
	assert.Equal(t, resp.CodeOK, out.Code)
	assert.Equal(t, "a1:x", out.Data)
}

func TestRegisterAction_DomainErrors(t *testing.T) {
	admin := domain.NewCaller("a1", "a@example.com", domain.RoleAdmin, true)
	cases := []struct {
		err  error
		code int
		msg  string
	}{
		{domain.Validation("name too long"), resp.CodeBadRequest, "name too long"},
		{domain.Conflict("dup"), resp.CodeConflict, "dup"},
		{domain.NotFound("lead not found"), resp.CodeNotFound, "lead not found"},
		{domain.Upstream("lead store", errors.New("dial tcp 10.0.0.1:5432")), resp.CodeBadGateway, "lead store"},
		{NotFound("nope"), resp.CodeNotFound, "nope"},
	}
	for _, tc := range cases {
		reg := func(e EZ) {
			RegisterAction(e, Action[struct{}, any]{
				Method: http.MethodGet, Path: "/x", Binder: BindNone, Auth: true,
				Handler: func(*gin.Context, domain.Caller, *struct{}) (any, error) { return nil, tc.err },
			})
		}
		out := call(t, &admin, reg, http.MethodGet, "/x", "")
		assert.Equal(t, tc.code, out.Code, tc.msg)
		assert.Equal(t, tc.msg, out.Msg)
	}
}

func TestRegisterAction_File(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterAction(New(r.Group("")), Action[struct{}, File]{
		Method: http.MethodGet, Path: "/f", Binder: BindNone,
		Handler: func(*gin.Context, domain.Caller, *struct{}) (File, error) {
			return File{Name: "a.txt", ContentType: "text/plain", Data: []byte("hello")}, nil
		},
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/f", nil))
	assert.Equal(t, "hello", rec.Body.String())
	assert.Equal(t, `attachment; filename="a.txt"`, rec.Header().Get("Content-Disposition"))
}
