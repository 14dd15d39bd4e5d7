package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"franchise-crm/internal/core/cache"
	"franchise-crm/internal/domain"
)

// AccessResolver 每个请求解析一次调用方的角色和权限，profile 走 redis 缓存
type AccessResolver struct {
	profiles domain.ProfileRepository
	cache    *cache.Cache
	ttl      time.Duration
	log      *zap.Logger
}

// NewAccessResolver c 为 nil 时不缓存
func NewAccessResolver(profiles domain.ProfileRepository, c *cache.Cache, ttl time.Duration, l *zap.Logger) *AccessResolver {
	if l == nil {
		l = zap.NewNop()
	}
	return &AccessResolver{profiles: profiles, cache: c, ttl: ttl, log: l}
}

func profileKey(userID string) string { return "profile:" + userID }

func (a *AccessResolver) profile(ctx context.Context, userID string) (*domain.Profile, error) {
	if a.cache == nil || a.ttl <= 0 {
		return a.profiles.FindByID(ctx, userID)
	}
	return cache.GetOrLoadJSON(a.cache, ctx, profileKey(userID), a.ttl, func(ctx context.Context) (*domain.Profile, error) {
		return a.profiles.FindByID(ctx, userID)
	})
}

// Resolve 有账号无 profile 的调用方得到空权限
func (a *AccessResolver) Resolve(ctx context.Context, userID, email string) (domain.Caller, error) {
	p, err := a.profile(ctx, userID)
	if err != nil {
		a.log.Error("resolve caller profile", zap.String("user_id", userID), zap.Error(err))
		return domain.Caller{}, domain.Upstream("profile store", err)
	}
	if p == nil {
		a.log.Warn("account has no profile", zap.String("user_id", userID))
		return domain.NewCaller(userID, email, "", false), nil
	}
	return domain.NewCaller(p.ID, p.Email, p.Role, true), nil
}

func (a *AccessResolver) Profile(ctx context.Context, userID string) (*domain.Profile, error) {
	p, err := a.profile(ctx, userID)
	if err != nil {
		return nil, domain.Upstream("profile store", err)
	}
	return p, nil
}

func (a *AccessResolver) Invalidate(ctx context.Context, userID string) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Delete(ctx, profileKey(userID)); err != nil {
		a.log.Warn("invalidate profile cache", zap.String("user_id", userID), zap.Error(err))
	}
}
