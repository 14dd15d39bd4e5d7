package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGoTrue 最小化的 admin API
type fakeGoTrue struct {
	mu    sync.Mutex
	users map[string]map[string]any
	seen  []string
}

func newFakeGoTrue() *fakeGoTrue { return &fakeGoTrue{users: map[string]map[string]any{}} }

func (f *fakeGoTrue) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, r.Method+" "+r.URL.Path)

	if r.Header.Get("apikey") != "svc" || r.Header.Get("Authorization") != "Bearer svc" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"msg":"invalid api key"}`))
		return
	}
	writeJSON := func(code int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(v)
	}

	id := strings.TrimPrefix(r.URL.Path, "/auth/v1/admin/users/")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/auth/v1/admin/users":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, u := range f.users {
			if u["email"] == body["email"] {
				writeJSON(http.StatusUnprocessableEntity, map[string]any{
					"code": 422, "error_code": "email_exists",
					"msg": "A user with this email address has already been registered",
				})
				return
			}
		}
		u := map[string]any{
			"id": "acc-1", "email": body["email"], "user_metadata": body["user_metadata"],
			"email_confirmed_at": "2024-01-01T00:00:00Z", "created_at": "2024-01-01T00:00:00Z",
			"email_confirm_req": body["email_confirm"],
		}
		f.users["acc-1"] = u
		writeJSON(http.StatusOK, u)
	case r.Method == http.MethodGet:
		u, ok := f.users[id]
		if !ok {
			writeJSON(http.StatusNotFound, map[string]any{"code": 404, "error_code": "user_not_found", "msg": "User not found"})
			return
		}
		writeJSON(http.StatusOK, u)
	case r.Method == http.MethodPut:
		u, ok := f.users[id]
		if !ok {
			writeJSON(http.StatusNotFound, map[string]any{"msg": "User not found"})
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		for k, v := range body {
			u[k] = v
		}
		writeJSON(http.StatusOK, u)
	case r.Method == http.MethodDelete:
		if _, ok := f.users[id]; !ok {
			writeJSON(http.StatusNotFound, map[string]any{"msg": "User not found"})
			return
		}
		delete(f.users, id)
		writeJSON(http.StatusOK, map[string]any{})
	case r.Method == http.MethodPost && r.URL.Path == "/auth/v1/token":
		writeJSON(http.StatusBadRequest, map[string]any{"error": "invalid_grant", "error_description": "Invalid login credentials"})
	default:
		w.WriteHeader(http.StatusTeapot)
	}
}

func newStore(t *testing.T) (*GoTrueStore, *fakeGoTrue) {
	t.Helper()
	f := newFakeGoTrue()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return NewGoTrueStore(srv.URL+"/", "svc"), f
}

func TestGoTrueCreateAndGet(t *testing.T) {
	s, f := newStore(t)
	ctx := context.Background()

	acc, err := s.CreateAccount(ctx, NewAccount{Email: "ana@example.com", Password: "password1", FullName: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "acc-1", acc.ID)
	assert.Equal(t, "Ana", acc.FullName)
	assert.True(t, acc.EmailConfirmed)
	assert.Equal(t, true, f.users["acc-1"]["email_confirm_req"])

	got, err := s.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", got.Email)

	_, err = s.CreateAccount(ctx, NewAccount{Email: "ana@example.com", Password: "password1"})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestGoTrueNotFound(t *testing.T) {
	s, _ := newStore(t)
	_, err := s.GetAccount(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteAccount(context.Background(), "missing"), ErrNotFound)
}

func TestGoTrueUpdateMergesMetadata(t *testing.T) {
	s, f := newStore(t)
	ctx := context.Background()
	f.users["acc-1"] = map[string]any{
		"id": "acc-1", "email": "a@example.com",
		"user_metadata": map[string]any{"full_name": "Old", "locale": "es"},
	}

	name := "New Name"
	acc, err := s.UpdateAccount(ctx, "acc-1", AccountPatch{FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, "New Name", acc.FullName)
	meta := f.users["acc-1"]["user_metadata"].(map[string]any)
	assert.Equal(t, "es", meta["locale"])
	assert.Contains(t, f.seen, "GET /auth/v1/admin/users/acc-1")
	assert.Contains(t, f.seen, "PUT /auth/v1/admin/users/acc-1")
}

func TestGoTrueAuthenticateInvalid(t *testing.T) {
	s, _ := newStore(t)
	_, err := s.Authenticate(context.Background(), "a@example.com", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestGoTrueBadServiceKey(t *testing.T) {
	f := newFakeGoTrue()
	srv := httptest.NewServer(f)
	defer srv.Close()
	s := NewGoTrueStore(srv.URL, "wrong")

	_, err := s.GetAccount(context.Background(), "acc-1")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Status)
	assert.Contains(t, se.Error(), "invalid api key")
}
