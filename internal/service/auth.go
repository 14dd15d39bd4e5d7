package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"franchise-crm/internal/core/auth"
	"franchise-crm/internal/domain"
	"franchise-crm/internal/identity"
)

type LoginResult struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	Caller    domain.Caller `json:"user"`
}

type AuthService struct {
	identity identity.Store
	access   *AccessResolver
	jwt      *auth.JWTer
	log      *zap.Logger
}

func NewAuthService(id identity.Store, access *AccessResolver, j *auth.JWTer, l *zap.Logger) *AuthService {
	if l == nil {
		l = zap.NewNop()
	}
	return &AuthService{identity: id, access: access, jwt: j, log: l.Named("auth")}
}

// Login 身份存储校验密码后签发 token；没有 profile 的账号也能登录，但没有任何权限
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, domain.Validation("email and password are required")
	}
	acc, err := s.identity.Authenticate(ctx, email, password)
	if errors.Is(err, identity.ErrInvalidCredentials) {
		return nil, domain.Unauthorized("invalid credentials")
	}
	if err != nil {
		s.log.Error("authenticate", zap.Error(err))
		return nil, domain.Upstream("identity store", err)
	}
	caller, err := s.access.Resolve(ctx, acc.ID, acc.Email)
	if err != nil {
		return nil, err
	}
	tok, exp, err := s.jwt.Issue(acc.ID, acc.Email, string(caller.Role))
	if err != nil {
		return nil, domain.Upstream("issue token", err)
	}
	return &LoginResult{Token: tok, ExpiresAt: exp, Caller: caller}, nil
}
