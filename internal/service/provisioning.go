package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"franchise-crm/internal/core/database"
	"franchise-crm/internal/core/metrics"
	"franchise-crm/internal/core/mq"
	"franchise-crm/internal/domain"
	"franchise-crm/internal/identity"
)

type CreateUserInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

// UpdateUserInput nil 表示不修改
type UpdateUserInput struct {
	UserID   string  `json:"userId"`
	FullName *string `json:"fullName,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	Role     *string `json:"role,omitempty"`
}

type ProvisionerOptions struct {
	MinPasswordLen  int
	RollbackTimeout time.Duration
}

// RoleInvalidator 角色变化后失效缓存
type RoleInvalidator interface {
	Invalidate(ctx context.Context, userID string)
}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(context.Context, string) {}

// Provisioner 在身份存储和 profile 表之间保持用户一致
type Provisioner struct {
	identity identity.Store
	profiles domain.ProfileRepository
	events   *EventPublisher
	roles    RoleInvalidator
	opts     ProvisionerOptions
	log      *zap.Logger
}

func NewProvisioner(id identity.Store, profiles domain.ProfileRepository, events *EventPublisher, roles RoleInvalidator, opts ProvisionerOptions, l *zap.Logger) *Provisioner {
	if opts.MinPasswordLen <= 0 {
		opts.MinPasswordLen = defaultMinPasswordLen
	}
	if l == nil {
		l = zap.NewNop()
	}
	if events == nil {
		events = NewEventPublisher(mq.Nop{}, l)
	}
	if roles == nil {
		roles = nopInvalidator{}
	}
	return &Provisioner{identity: id, profiles: profiles, events: events, roles: roles, opts: opts, log: l.Named("provisioning")}
}

type userEvent struct {
	UserID string      `json:"userId"`
	Email  string      `json:"email,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

// Create 先建身份账号再写 profile；profile 写入失败时删除刚建的账号
func (p *Provisioner) Create(ctx context.Context, in CreateUserInput) (userID string, err error) {
	defer func() { metrics.RecordProvisioning("create", err) }()

	email, role, err := p.validateCreate(&in)
	if err != nil {
		return "", err
	}

	existing, err := p.profiles.FindByEmail(ctx, email)
	if err != nil {
		p.log.Error("profile lookup failed", zap.String("email", email), zap.Error(err))
		return "", domain.Upstream("profile store", err)
	}
	if existing != nil {
		return "", domain.Conflict("a user with this email address has already been registered")
	}

	var acc *identity.Account
	saga := NewSaga(p.log, p.opts.RollbackTimeout)
	saga.Step("create identity account",
		func(ctx context.Context) error {
			a, err := p.identity.CreateAccount(ctx, identity.NewAccount{Email: email, Password: in.Password, FullName: in.FullName})
			if errors.Is(err, identity.ErrAlreadyExists) {
				return domain.Conflict("a user with this email address has already been registered")
			}
			if err != nil {
				return domain.Upstream("identity store", err)
			}
			acc = a
			return nil
		},
		func(ctx context.Context) error {
			err := p.identity.DeleteAccount(ctx, acc.ID)
			metrics.RecordRollback(err)
			return err
		},
	)
	saga.Step("insert profile",
		func(ctx context.Context) error {
			err := p.profiles.Create(ctx, &domain.Profile{
				ID:        acc.ID,
				Email:     email,
				FullName:  in.FullName,
				Role:      role,
				AvatarURL: domain.AvatarURL(email),
			})
			if err == nil {
				return nil
			}
			p.log.Error("profile insert failed", zap.String("user_id", acc.ID), zap.Error(err))
			if database.IsUniqueViolation(err) {
				return domain.Conflict("a user with this email address has already been registered")
			}
			return domain.Upstream("profile store", err)
		},
		nil,
	)

	if err := saga.Run(ctx); err != nil {
		var rb *RollbackError
		if errors.As(err, &rb) {
			p.log.Error("user left without profile; identity rollback failed",
				zap.String("email", email), zap.Error(rb.Compensation))
			return "", domain.PartialFailure("account created but profile was not, and rollback failed", rb)
		}
		return "", err
	}

	p.roles.Invalidate(ctx, acc.ID)
	p.events.Publish(ctx, mq.UserProvisioned, userEvent{UserID: acc.ID, Email: email, Role: role})
	p.log.Info("user provisioned", zap.String("user_id", acc.ID), zap.String("role", string(role)))
	return acc.ID, nil
}

func (p *Provisioner) validateCreate(in *CreateUserInput) (string, domain.Role, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	if err := required("fullName", in.FullName); err != nil {
		return "", "", err
	}
	email, err := checkEmail(in.Email)
	if err != nil {
		return "", "", err
	}
	if err := checkPassword(in.Password, p.opts.MinPasswordLen); err != nil {
		return "", "", err
	}
	role, err := checkRole(in.Role)
	if err != nil {
		return "", "", err
	}
	return email, role, nil
}

// Update 先改身份存储再改 profile；第二步失败不回滚
func (p *Provisioner) Update(ctx context.Context, in UpdateUserInput) (err error) {
	defer func() { metrics.RecordProvisioning("update", err) }()

	if err := required("userId", in.UserID); err != nil {
		return err
	}
	accPatch, profPatch, err := p.validateUpdate(in)
	if err != nil {
		return err
	}

	if _, err := p.identity.GetAccount(ctx, in.UserID); err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return domain.NotFound("user not found")
		}
		return domain.Upstream("identity store", err)
	}

	if !accPatch.Empty() {
		if _, err := p.identity.UpdateAccount(ctx, in.UserID, accPatch); err != nil {
			p.log.Error("identity update failed", zap.String("user_id", in.UserID), zap.Error(err))
			switch {
			case errors.Is(err, identity.ErrNotFound):
				return domain.NotFound("user not found")
			case errors.Is(err, identity.ErrAlreadyExists):
				return domain.Conflict("a user with this email address has already been registered")
			}
			return domain.Upstream("identity store", err)
		}
	}

	if !profPatch.Empty() {
		if err := p.profiles.Update(ctx, in.UserID, profPatch); err != nil {
			p.log.Error("profile update failed after identity update", zap.String("user_id", in.UserID), zap.Error(err))
			return domain.PartialFailure("account updated but profile was not", err)
		}
	}

	p.roles.Invalidate(ctx, in.UserID)
	ev := userEvent{UserID: in.UserID}
	if profPatch.Role != nil {
		ev.Role = *profPatch.Role
	}
	if profPatch.Email != nil {
		ev.Email = *profPatch.Email
	}
	p.events.Publish(ctx, mq.UserUpdated, ev)
	return nil
}

func (p *Provisioner) validateUpdate(in UpdateUserInput) (identity.AccountPatch, domain.ProfilePatch, error) {
	var ap identity.AccountPatch
	var pp domain.ProfilePatch
	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		if name == "" {
			return ap, pp, domain.Validation("fullName must not be empty")
		}
		ap.FullName, pp.FullName = &name, &name
	}
	if in.Email != nil {
		email, err := checkEmail(*in.Email)
		if err != nil {
			return ap, pp, err
		}
		ap.Email, pp.Email = &email, &email
	}
	if in.Password != nil {
		if err := checkPassword(*in.Password, p.opts.MinPasswordLen); err != nil {
			return ap, pp, err
		}
		pw := *in.Password
		ap.Password = &pw
	}
	if in.Role != nil {
		role, err := checkRole(*in.Role)
		if err != nil {
			return ap, pp, err
		}
		pp.Role = &role
	}
	if ap.Empty() && pp.Empty() {
		return ap, pp, domain.Validation("no fields to update")
	}
	return ap, pp, nil
}

// Delete 尽力而为：profile 删除失败只记日志，账号删除失败才报错。
// 可能留下没有 profile 的账号，鉴权层对其一律拒绝
func (p *Provisioner) Delete(ctx context.Context, userID string) (err error) {
	defer func() { metrics.RecordProvisioning("delete", err) }()

	if err := required("userId", userID); err != nil {
		return err
	}
	if err := p.profiles.Delete(ctx, userID); err != nil {
		p.log.Warn("profile delete failed, continuing with account", zap.String("user_id", userID), zap.Error(err))
	}
	if err := p.identity.DeleteAccount(ctx, userID); err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return domain.NotFound("user not found")
		}
		p.log.Error("identity delete failed", zap.String("user_id", userID), zap.Error(err))
		return domain.Upstream("identity store", err)
	}

	p.roles.Invalidate(ctx, userID)
	p.events.Publish(ctx, mq.UserDeleted, userEvent{UserID: userID})
	return nil
}
