package service

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"franchise-crm/internal/core/mailer"
	"franchise-crm/internal/domain"
	"franchise-crm/internal/identity"
)

// MockIdentity 用于注入身份存储故障
type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) CreateAccount(ctx context.Context, in identity.NewAccount) (*identity.Account, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Account), args.Error(1)
}

func (m *MockIdentity) GetAccount(ctx context.Context, id string) (*identity.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Account), args.Error(1)
}

func (m *MockIdentity) UpdateAccount(ctx context.Context, id string, p identity.AccountPatch) (*identity.Account, error) {
	args := m.Called(ctx, id, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Account), args.Error(1)
}

func (m *MockIdentity) DeleteAccount(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockIdentity) Authenticate(ctx context.Context, email, password string) (*identity.Account, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Account), args.Error(1)
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, s mailer.SMTP, msg mailer.Message) error {
	return m.Called(ctx, s, msg).Error(0)
}

// recordingPublisher 记录已发布的事件类型
type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, eventType)
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.types...)
}

type recordingInvalidator struct {
	ids []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, id string) { r.ids = append(r.ids, id) }

func admin() domain.Caller {
	return domain.NewCaller("admin-1", "admin@example.com", domain.RoleAdmin, true)
}

func plainUser(id string) domain.Caller {
	return domain.NewCaller(id, id+"@example.com", domain.RoleUser, true)
}
