package identity

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("identity: account not found")
	ErrAlreadyExists      = errors.New("identity: email already registered")
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
)

// Account 身份存储里的账号，不含密码
type Account struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	FullName       string    `json:"fullName"`
	EmailConfirmed bool      `json:"emailConfirmed"`
	CreatedAt      time.Time `json:"createdAt"`
}

type NewAccount struct {
	Email    string
	Password string
	FullName string
}

// AccountPatch nil 字段保持不变
type AccountPatch struct {
	Email    *string
	Password *string
	FullName *string
}

func (p AccountPatch) Empty() bool { return p.Email == nil && p.Password == nil && p.FullName == nil }

// Store 身份存储驱动：local（本库 auth_accounts 表）、gotrue（托管服务）、memory
type Store interface {
	// CreateAccount 创建已确认邮箱的账号
	CreateAccount(ctx context.Context, in NewAccount) (*Account, error)
	GetAccount(ctx context.Context, id string) (*Account, error)
	UpdateAccount(ctx context.Context, id string, patch AccountPatch) (*Account, error)
	DeleteAccount(ctx context.Context, id string) error
	Authenticate(ctx context.Context, email, password string) (*Account, error)
}
