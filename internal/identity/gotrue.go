package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GoTrueStore 通过 admin API 访问托管的 GoTrue 身份服务，使用 service key
type GoTrueStore struct {
	baseURL    string
	serviceKey string
	http       *http.Client
}

func NewGoTrueStore(baseURL, serviceKey string) *GoTrueStore {
	return &GoTrueStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		http:       &http.Client{Timeout: 10 * time.Second},
	}
}

type gotrueUser struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at"`
	CreatedAt        time.Time      `json:"created_at"`
	UserMetadata     map[string]any `json:"user_metadata"`
}

func (u *gotrueUser) toAccount() *Account {
	a := &Account{
		ID:             u.ID,
		Email:          u.Email,
		EmailConfirmed: u.EmailConfirmedAt != nil,
		CreatedAt:      u.CreatedAt,
	}
	if name, ok := u.UserMetadata["full_name"].(string); ok {
		a.FullName = name
	}
	return a
}

type gotrueError struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e gotrueError) text() string {
	for _, s := range []string{e.Msg, e.Message, e.ErrorDescription, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// StatusError 身份服务返回的非 2xx
type StatusError struct {
	Status int
	Msg    string
}

func (e *StatusError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("identity service status %d", e.Status)
	}
	return fmt.Sprintf("identity service status %d: %s", e.Status, e.Msg)
}

func (s *GoTrueStore) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("identity request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var ge gotrueError
		_ = json.Unmarshal(raw, &ge)
		return classify(resp.StatusCode, ge)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode identity response: %w", err)
	}
	return nil
}

func classify(status int, ge gotrueError) error {
	msg := ge.text()
	lower := strings.ToLower(msg + " " + ge.ErrorCode)
	switch {
	case status == http.StatusNotFound || ge.ErrorCode == "user_not_found":
		return ErrNotFound
	case ge.ErrorCode == "email_exists" || strings.Contains(lower, "already been registered") ||
		strings.Contains(lower, "already registered"):
		return ErrAlreadyExists
	case ge.ErrorCode == "invalid_credentials" || ge.Error == "invalid_grant":
		return ErrInvalidCredentials
	}
	return &StatusError{Status: status, Msg: msg}
}

func (s *GoTrueStore) CreateAccount(ctx context.Context, in NewAccount) (*Account, error) {
	payload := map[string]any{
		"email":         in.Email,
		"password":      in.Password,
		"email_confirm": true,
		"user_metadata": map[string]any{"full_name": in.FullName},
	}
	var u gotrueUser
	if err := s.do(ctx, http.MethodPost, "/auth/v1/admin/users", payload, &u); err != nil {
		return nil, err
	}
	return u.toAccount(), nil
}

func (s *GoTrueStore) getUser(ctx context.Context, id string) (*gotrueUser, error) {
	var u gotrueUser
	if err := s.do(ctx, http.MethodGet, "/auth/v1/admin/users/"+url.PathEscape(id), nil, &u); err != nil {
		return nil, err
	}
	if u.ID == "" {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *GoTrueStore) GetAccount(ctx context.Context, id string) (*Account, error) {
	u, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return u.toAccount(), nil
}

// UpdateAccount full_name 合并进已有 user_metadata，其他元数据键保留
func (s *GoTrueStore) UpdateAccount(ctx context.Context, id string, p AccountPatch) (*Account, error) {
	payload := map[string]any{}
	if p.Email != nil {
		payload["email"] = *p.Email
	}
	if p.Password != nil {
		payload["password"] = *p.Password
	}
	if p.FullName != nil {
		cur, err := s.getUser(ctx, id)
		if err != nil {
			return nil, err
		}
		meta := map[string]any{}
		for k, v := range cur.UserMetadata {
			meta[k] = v
		}
		meta["full_name"] = *p.FullName
		payload["user_metadata"] = meta
	}
	if len(payload) == 0 {
		return s.GetAccount(ctx, id)
	}
	var u gotrueUser
	if err := s.do(ctx, http.MethodPut, "/auth/v1/admin/users/"+url.PathEscape(id), payload, &u); err != nil {
		return nil, err
	}
	return u.toAccount(), nil
}

func (s *GoTrueStore) DeleteAccount(ctx context.Context, id string) error {
	return s.do(ctx, http.MethodDelete, "/auth/v1/admin/users/"+url.PathEscape(id), nil, nil)
}

func (s *GoTrueStore) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	var out struct {
		User gotrueUser `json:"user"`
	}
	err := s.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password",
		map[string]string{"email": email, "password": password}, &out)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && (se.Status == http.StatusBadRequest || se.Status == http.StatusUnauthorized) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return out.User.toAccount(), nil
}
