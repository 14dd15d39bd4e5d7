package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"franchise-crm/internal/domain"
)

// FunctionError 函数服务返回的非 2xx
type FunctionError struct {
	Status int
	Msg    string
}

func (e *FunctionError) Error() string {
	return fmt.Sprintf("function status %d: %s", e.Status, e.Msg)
}

func (e *FunctionError) Unwrap() error { return &domain.Error{Kind: kindOf(e.Status), Msg: e.Msg} }

type functionResp struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId"`
	Error   string `json:"error"`
}

type CreateUser struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

// UpdateUser nil 字段不修改
type UpdateUser struct {
	UserID   string  `json:"userId"`
	FullName *string `json:"fullName,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	Role     *string `json:"role,omitempty"`
}

func (c *Client) call(ctx context.Context, name string, in any) (*functionResp, error) {
	req, err := c.newRequest(ctx, http.MethodPost, c.functionsURL+"/functions/v1/"+name, in)
	if err != nil {
		return nil, err
	}
	if c.serviceKey != "" {
		req.Header.Set("apikey", c.serviceKey)
	} else if tok := c.sess.Info().Token; tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.Upstream("functions request", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, domain.Upstream("read functions response", err)
	}
	var out functionResp
	if jerr := json.Unmarshal(raw, &out); jerr != nil && resp.StatusCode == http.StatusOK {
		return nil, domain.Upstream("decode functions response", jerr)
	}
	if resp.StatusCode != http.StatusOK || !out.Success {
		msg := out.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &FunctionError{Status: resp.StatusCode, Msg: msg}
	}
	return &out, nil
}

func (c *Client) CreateUser(ctx context.Context, in CreateUser) (string, error) {
	out, err := c.call(ctx, "create-user", in)
	if err != nil {
		return "", err
	}
	return out.UserID, nil
}

func (c *Client) UpdateUser(ctx context.Context, in UpdateUser) error {
	_, err := c.call(ctx, "update-user", in)
	return err
}

// DeleteUser 不允许删除当前登录账号，校验在发请求之前
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.Validation("userId is required")
	}
	if me := c.sess.Info().UserID; me != "" && me == userID {
		return domain.Validation("you cannot delete your own account")
	}
	_, err := c.call(ctx, "delete-user", map[string]string{"userId": userID})
	return err
}
