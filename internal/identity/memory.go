package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"franchise-crm/pkg/utils"
)

// MemoryStore 进程内实现，开发和测试用
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]memAccount
}

type memAccount struct {
	Account
	hash string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: map[string]memAccount{}}
}

func (s *MemoryStore) CreateAccount(_ context.Context, in NewAccount) (*Account, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == email {
			return nil, ErrAlreadyExists
		}
	}
	a := memAccount{
		Account: Account{ID: utils.NewID(), Email: email, FullName: in.FullName, EmailConfirmed: true, CreatedAt: time.Now()},
		hash:    hash,
	}
	s.accounts[a.ID] = a
	out := a.Account
	return &out, nil
}

func (s *MemoryStore) GetAccount(_ context.Context, id string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := a.Account
	return &out, nil
}

func (s *MemoryStore) UpdateAccount(_ context.Context, id string, p AccountPatch) (*Account, error) {
	var hash string
	if p.Password != nil {
		h, err := utils.HashPassword(*p.Password)
		if err != nil {
			return nil, err
		}
		hash = h
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Email != nil {
		a.Email = strings.ToLower(strings.TrimSpace(*p.Email))
	}
	if p.FullName != nil {
		a.FullName = *p.FullName
	}
	if hash != "" {
		a.hash = hash
	}
	s.accounts[id] = a
	out := a.Account
	return &out, nil
}

func (s *MemoryStore) DeleteAccount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return ErrNotFound
	}
	delete(s.accounts, id)
	return nil
}

func (s *MemoryStore) Authenticate(_ context.Context, email, password string) (*Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.Email == email {
			if !utils.CheckPassword(password, a.hash) {
				return nil, ErrInvalidCredentials
			}
			out := a.Account
			return &out, nil
		}
	}
	return nil, ErrInvalidCredentials
}

// Len 当前账号数
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

// HasEmail 测试断言用
func (s *MemoryStore) HasEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.Email == email {
			return true
		}
	}
	return false
}
