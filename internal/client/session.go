package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"franchise-crm/internal/domain"
)

// SessionInfo 会话快照
type SessionInfo struct {
	Token        string              `json:"token"`
	ExpiresAt    time.Time           `json:"expiresAt"`
	UserID       string              `json:"userId"`
	Email        string              `json:"email"`
	Role         domain.Role         `json:"role"`
	Capabilities domain.Capabilities `json:"capabilities"`
}

func (i SessionInfo) Valid(now time.Time) bool {
	return i.Token != "" && (i.ExpiresAt.IsZero() || now.Before(i.ExpiresAt))
}

// Session 显式传递的登录态；订阅者在锁外收到变化
type Session struct {
	mu   sync.RWMutex
	info SessionInfo
	subs map[int]func(SessionInfo)
	next int
}

func NewSession() *Session { return &Session{subs: map[int]func(SessionInfo){}} }

func (s *Session) Info() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

func (s *Session) Authenticated() bool { return s.Info().Valid(time.Now()) }

func (s *Session) Set(info SessionInfo) {
	s.mu.Lock()
	s.info = info
	subs := make([]func(SessionInfo), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn(info)
	}
}

func (s *Session) Clear() { s.Set(SessionInfo{}) }

// Subscribe 返回取消订阅函数
func (s *Session) Subscribe(fn func(SessionInfo)) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// LoadSession 文件不存在时返回空会话
func LoadSession(path string) (*Session, error) {
	s := NewSession()
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &s.info); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", path, err)
	}
	return s, nil
}

// Save token 落盘，权限 0600
func (s *Session) Save(path string) error {
	raw, err := json.MarshalIndent(s.Info(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}
