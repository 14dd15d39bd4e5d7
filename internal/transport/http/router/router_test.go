package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"franchise-crm/internal/core/auth"
	"franchise-crm/internal/domain"
	"franchise-crm/internal/identity"
	"franchise-crm/internal/pipeline"
	"franchise-crm/internal/repo/memrepo"
	"franchise-crm/internal/service"
	resp "franchise-crm/internal/transport/http/response"
)

const serviceKey = "service-key-for-tests"

type world struct {
	ids      *identity.MemoryStore
	profiles *memrepo.Profiles
	leads    *memrepo.Leads
	jwt      *auth.JWTer
	deps     Deps
}

func newWorld(t *testing.T) *world {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := &world{
		ids:      identity.NewMemoryStore(),
		profiles: memrepo.NewProfiles(),
		leads:    memrepo.NewLeads(),
		jwt:      &auth.JWTer{Secret: []byte("test-secret"), Issuer: "crm-test", TTL: time.Hour},
	}
	l := zap.NewNop()
	tasks, comms, settings := memrepo.NewTasks(), memrepo.NewCommunications(), memrepo.NewSettings()
	access := service.NewAccessResolver(w.profiles, nil, 0, l)
	prov := service.NewProvisioner(w.ids, w.profiles, nil, access, service.ProvisionerOptions{}, l)
	leadSvc := service.NewLeadService(w.leads, w.leads, tasks, comms, l)
	w.deps = Deps{
		JWT:         w.jwt,
		Access:      access,
		Auth:        service.NewAuthService(w.ids, access, w.jwt, l),
		Provisioner: prov,
		Profiles:    w.profiles,
		Leads:       leadSvc,
		Pipeline:    service.NewPipelineService(leadSvc, w.leads, nil, l),
		Tasks:       service.NewTaskService(tasks, leadSvc, l),
		Comms:       service.NewCommunicationService(comms, leadSvc, settings, nil, l),
		Dashboard:   service.NewDashboardService(leadSvc),
		Import:      service.NewImportService(leadSvc, l),
		Settings:    service.NewSettingsService(settings),
	}
	return w
}

// user 直接开通一个用户并返回 token
func (w *world) user(t *testing.T, email, role string) (string, string) {
	t.Helper()
	id, err := w.deps.Provisioner.Create(context.Background(), service.CreateUserInput{
		Email: email, Password: "s3cret-pass", FullName: "Test " + role, Role: role,
	})
	require.NoError(t, err)
	tok, _, err := w.jwt.Issue(id, email, role)
	require.NoError(t, err)
	return id, tok
}

func do(h http.Handler, method, path, token string, body any, hdr ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func envelope(t *testing.T, rec *httptest.ResponseRecorder) resp.Resp {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code)
	var r resp.Resp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r))
	return r
}

func TestAPI_LoginAndMe(t *testing.T) {
	w := newWorld(t)
	_, _ = w.user(t, "admin@example.com", "admin")
	h := NewAPIEngine(zap.NewNop(), w.deps)

	r := envelope(t, do(h, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "admin@example.com", "password": "s3cret-pass"}))
	require.Equal(t, resp.CodeOK, r.Code, r.Msg)
	tok := r.Data.(map[string]any)["token"].(string)

	r = envelope(t, do(h, http.MethodGet, "/api/v1/me", tok, nil))
	require.Equal(t, resp.CodeOK, r.Code)
	caller := r.Data.(map[string]any)["caller"].(map[string]any)
	assert.Equal(t, true, caller["capabilities"].(map[string]any)["canManageUsers"])

	r = envelope(t, do(h, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "admin@example.com", "password": "nope"}))
	assert.Equal(t, resp.CodeUnauthorized, r.Code)

	r = envelope(t, do(h, http.MethodGet, "/api/v1/leads", "", nil))
	assert.Equal(t, resp.CodeUnauthorized, r.Code)
}

func TestAPI_SelfDeleteRejected(t *testing.T) {
	w := newWorld(t)
	id, tok := w.user(t, "admin@example.com", "admin")
	h := NewAPIEngine(zap.NewNop(), w.deps)

	r := envelope(t, do(h, http.MethodDelete, "/api/v1/users/"+id, tok, nil))
	assert.Equal(t, resp.CodeBadRequest, r.Code)
	assert.Equal(t, "you cannot delete your own account", r.Msg)
	assert.Equal(t, 1, w.ids.Len())
	assert.Equal(t, 1, w.profiles.Len())
}

func TestAPI_UserAdmin(t *testing.T) {
	w := newWorld(t)
	_, adminTok := w.user(t, "admin@example.com", "admin")
	_, userTok := w.user(t, "user@example.com", "user")
	h := NewAPIEngine(zap.NewNop(), w.deps)

	create := gin.H{"email": "new@example.com", "password": "s3cret-pass", "fullName": "New", "role": "user"}
	r := envelope(t, do(h, http.MethodPost, "/api/v1/users", userTok, create))
	assert.Equal(t, resp.CodeForbidden, r.Code)

	r = envelope(t, do(h, http.MethodPost, "/api/v1/users", adminTok, create))
	require.Equal(t, resp.CodeOK, r.Code, r.Msg)
	newID := r.Data.(map[string]any)["userId"].(string)

	r = envelope(t, do(h, http.MethodPost, "/api/v1/users", adminTok, create))
	assert.Equal(t, resp.CodeConflict, r.Code)

	r = envelope(t, do(h, http.MethodPut, "/api/v1/users/"+newID, adminTok, gin.H{"role": "admin"}))
	require.Equal(t, resp.CodeOK, r.Code, r.Msg)
	p, _ := w.profiles.FindByID(context.Background(), newID)
	assert.Equal(t, domain.RoleAdmin, p.Role)

	r = envelope(t, do(h, http.MethodGet, "/api/v1/users?size=2", adminTok, nil))
	require.Equal(t, resp.CodeOK, r.Code)
	assert.EqualValues(t, 3, r.Data.(map[string]any)["total"])

	r = envelope(t, do(h, http.MethodDelete, "/api/v1/users/"+newID, adminTok, nil))
	require.Equal(t, resp.CodeOK, r.Code, r.Msg)
	assert.False(t, w.ids.HasEmail("new@example.com"))
}

func TestAPI_OrphanAccountIsDenied(t *testing.T) {
	w := newWorld(t)
	acc, err := w.ids.CreateAccount(context.Background(), identity.NewAccount{Email: "ghost@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	tok, _, err := w.jwt.Issue(acc.ID, acc.Email, "admin")
	require.NoError(t, err)
	h := NewAPIEngine(zap.NewNop(), w.deps)

	r := envelope(t, do(h, http.MethodGet, "/api/v1/leads", tok, nil))
	assert.Equal(t, resp.CodeForbidden, r.Code)

	r = envelope(t, do(h, http.MethodGet, "/api/v1/me", tok, nil))
	require.Equal(t, resp.CodeOK, r.Code)
	caller := r.Data.(map[string]any)["caller"].(map[string]any)
	assert.Equal(t, false, caller["hasProfile"])
}

func TestAPI_PipelineMove(t *testing.T) {
	w := newWorld(t)
	_, adminTok := w.user(t, "admin@example.com", "admin")
	_, userTok := w.user(t, "user@example.com", "user")
	h := NewAPIEngine(zap.NewNop(), w.deps)

	r := envelope(t, do(h, http.MethodPost, "/api/v1/leads", userTok, gin.H{"fullName": "Lia", "email": "lia@example.com"}))
	require.Equal(t, resp.CodeOK, r.Code, r.Msg)
	leadID := r.Data.(map[string]any)["id"].(string)

	move := gin.H{"from": pipeline.NewContact, "to": pipeline.FirstContact}
	r = envelope(t, do(h, http.MethodPost, "/api/v1/leads/"+leadID+"/move", userTok, move))
	assert.Equal(t, resp.CodeForbidden, r.Code)
	assert.Equal(t, pipeline.ErrPermissionDenied.Error(), r.Msg)
	assert.Equal(t, 1, w.leads.HistoryLen(leadID))

	r = envelope(t, do(h, http.MethodPost, "/api/v1/leads/"+leadID+"/move", adminTok, move))
	require.Equal(t, resp.CodeOK, r.Code, r.Msg)
	assert.Equal(t, 2, w.leads.HistoryLen(leadID))

	r = envelope(t, do(h, http.MethodGet, "/api/v1/pipeline", userTok, nil))
	require.Equal(t, resp.CodeOK, r.Code)
	cols := r.Data.([]any)
	require.Len(t, cols, len(pipeline.Stages()))
	second := cols[1].(map[string]any)
	assert.EqualValues(t, 1, second["count"])

	r = envelope(t, do(h, http.MethodGet, "/api/v1/leads/missing", userTok, nil))
	assert.Equal(t, resp.CodeNotFound, r.Code)
}

func TestAPI_DashboardReport(t *testing.T) {
	w := newWorld(t)
	_, tok := w.user(t, "user@example.com", "user")
	h := NewAPIEngine(zap.NewNop(), w.deps)

	rec := do(h, http.MethodGet, "/api/v1/dashboard/report.pdf", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestAPI_ImportLeads(t *testing.T) {
	w := newWorld(t)
	_, adminTok := w.user(t, "admin@example.com", "admin")
	_, userTok := w.user(t, "user@example.com", "user")
	h := NewAPIEngine(zap.NewNop(), w.deps)

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Full_Name", "Email"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Ana", "ana@example.com"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"Bad", "not-an-email"}))
	xlsx, err := f.WriteToBuffer()
	require.NoError(t, err)

	upload := func(token string) resp.Resp {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("file", "leads.xlsx")
		require.NoError(t, err)
		_, _ = part.Write(xlsx.Bytes())
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/leads", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return envelope(t, rec)
	}

	r := upload(userTok)
	assert.Equal(t, resp.CodeForbidden, r.Code)

	r = upload(adminTok)
	require.Equal(t, resp.CodeOK, r.Code, r.Msg)
	out := r.Data.(map[string]any)
	assert.EqualValues(t, 1, out["imported"])
	failed := out["failed"].([]any)
	require.Len(t, failed, 1)
	assert.EqualValues(t, 3, failed[0].(map[string]any)["row"])
}
