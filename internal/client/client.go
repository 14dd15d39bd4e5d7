package client

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

	"franchise-crm/internal/domain"
	"franchise-crm/internal/pipeline"
)

// APIError 业务码非 200 的信封响应
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string { return fmt.Sprintf("api error %d: %s", e.Code, e.Msg) }

// Unwrap 映射回领域错误分类，调用方用 domain.KindOf 判断
func (e *APIError) Unwrap() error { return &domain.Error{Kind: kindOf(e.Code), Msg: e.Msg} }

func kindOf(code int) domain.Kind {
	switch code {
	case http.StatusBadRequest:
		return domain.KindValidation
	case http.StatusUnauthorized:
		return domain.KindUnauthorized
	case http.StatusForbidden:
		return domain.KindForbidden
	case http.StatusNotFound:
		return domain.KindNotFound
	case http.StatusConflict:
		return domain.KindConflict
	case http.StatusInternalServerError:
		return domain.KindPartialFailure
	}
	return domain.KindUpstream
}

// codeOK 信封里的成功业务码
const codeOK = 0

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// Client CRM API 与函数服务的 HTTP 客户端；token 取自 Session
type Client struct {
	apiURL       string
	functionsURL string
	serviceKey   string
	sess         *Session
	http         *http.Client
}

type Option func(*Client)

func WithFunctionsURL(u string) Option { return func(c *Client) { c.functionsURL = strings.TrimRight(u, "/") } }

// WithServiceKey 函数服务优先使用 service key，不依赖登录
func WithServiceKey(k string) Option { return func(c *Client) { c.serviceKey = k } }

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func New(apiURL string, sess *Session, opts ...Option) *Client {
	c := &Client{
		apiURL: strings.TrimRight(apiURL, "/"),
		sess:   sess,
		http:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	if c.functionsURL == "" {
		c.functionsURL = c.apiURL
	}
	return c
}

func (c *Client) Session() *Session { return c.sess }

func (c *Client) newRequest(ctx context.Context, method, u string, in any) (*http.Request, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do 调用 /api/v1 下的接口并解开 {code,msg,data}
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	req, err := c.newRequest(ctx, method, c.apiURL+"/api/v1"+path, in)
	if err != nil {
		return err
	}
	if tok := c.sess.Info().Token; tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Upstream("api request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &APIError{Code: resp.StatusCode, Msg: strings.TrimSpace(string(raw))}
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return domain.Upstream("decode api response", err)
	}
	if env.Code != codeOK {
		if env.Code == http.StatusUnauthorized {
			c.sess.Clear()
		}
		return &APIError{Code: env.Code, Msg: env.Msg}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return domain.Upstream("decode api data", err)
	}
	return nil
}

type loginResult struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	User      domain.Caller `json:"user"`
}

// Login 成功后写入 Session 并通知订阅者
func (c *Client) Login(ctx context.Context, email, password string) (SessionInfo, error) {
	var out loginResult
	in := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", in, &out); err != nil {
		return SessionInfo{}, err
	}
	info := SessionInfo{
		Token:        out.Token,
		ExpiresAt:    out.ExpiresAt,
		UserID:       out.User.UserID,
		Email:        out.User.Email,
		Role:         out.User.Role,
		Capabilities: out.User.Capabilities,
	}
	c.sess.Set(info)
	return info, nil
}

type Me struct {
	Caller  domain.Caller   `json:"caller"`
	Profile *domain.Profile `json:"profile"`
}

// Me 同时刷新 Session 里的角色与权限
func (c *Client) Me(ctx context.Context) (*Me, error) {
	var out Me
	if err := c.do(ctx, http.MethodGet, "/me", nil, &out); err != nil {
		return nil, err
	}
	info := c.sess.Info()
	if info.Role != out.Caller.Role || info.Capabilities != out.Caller.Capabilities {
		info.Role, info.Capabilities = out.Caller.Role, out.Caller.Capabilities
		c.sess.Set(info)
	}
	return &out, nil
}

func (c *Client) Board(ctx context.Context) ([]pipeline.Column, error) {
	var cols []pipeline.Column
	if err := c.do(ctx, http.MethodGet, "/pipeline", nil, &cols); err != nil {
		return nil, err
	}
	return cols, nil
}

// FetchLeads 实现 pipeline.Store
func (c *Client) FetchLeads(ctx context.Context) ([]domain.LeadView, error) {
	cols, err := c.Board(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.LeadView
	for _, col := range cols {
		out = append(out, col.Leads...)
	}
	return out, nil
}

// AppendStatus 实现 pipeline.Store；403 映射为 pipeline.ErrPermissionDenied
func (c *Client) AppendStatus(ctx context.Context, leadID, from, to string) error {
	in := map[string]string{"from": from, "to": to}
	err := c.do(ctx, http.MethodPost, "/leads/"+url.PathEscape(leadID)+"/move", in, nil)
	var ae *APIError
	if errors.As(err, &ae) && ae.Code == http.StatusForbidden {
		return pipeline.ErrPermissionDenied
	}
	return err
}

var _ pipeline.Store = (*Client)(nil)
