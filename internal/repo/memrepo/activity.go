package memrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"franchise-crm/internal/domain"
	"franchise-crm/pkg/utils"
)

type Tasks struct {
	mu   sync.RWMutex
	rows map[string]domain.Task
}

func NewTasks() *Tasks { return &Tasks{rows: map[string]domain.Task{}} }

func (r *Tasks) Create(_ context.Context, t *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = utils.NewID()
	now := time.Now()
	t.CreatedAt, t.UpdatedAt = now, now
	r.rows[t.ID] = *t
	return nil
}

func (r *Tasks) FindByID(_ context.Context, id string) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *Tasks) list(keep func(domain.Task) bool) []domain.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.Task{}
	for _, t := range r.rows {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *Tasks) ListByAssignee(_ context.Context, userID string) ([]domain.Task, error) {
	return r.list(func(t domain.Task) bool { return t.AssignedTo != nil && *t.AssignedTo == userID }), nil
}

func (r *Tasks) ListByLead(_ context.Context, leadID string) ([]domain.Task, error) {
	return r.list(func(t domain.Task) bool { return t.LeadID == leadID }), nil
}

func (r *Tasks) SetCompleted(_ context.Context, id string, completed bool, at *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok {
		return domain.NotFound("task not found")
	}
	t.Completed, t.CompletedAt = completed, at
	r.rows[id] = t
	return nil
}

func (r *Tasks) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return domain.NotFound("task not found")
	}
	delete(r.rows, id)
	return nil
}

type Communications struct {
	mu   sync.RWMutex
	rows []domain.Communication

	FailCreate bool
}

func NewCommunications() *Communications { return &Communications{} }

func (r *Communications) Create(_ context.Context, c *domain.Communication) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailCreate {
		return ErrInjected
	}
	c.ID, c.CreatedAt = utils.NewID(), time.Now()
	r.rows = append(r.rows, *c)
	return nil
}

func (r *Communications) ListByLead(_ context.Context, leadID string) ([]domain.Communication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.Communication{}
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].LeadID == leadID {
			out = append(out, r.rows[i])
		}
	}
	return out, nil
}

func (r *Communications) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.rows {
		if c.ID == id {
			r.rows = append(r.rows[:i], r.rows[i+1:]...)
			return nil
		}
	}
	return domain.NotFound("communication not found")
}

type Settings struct {
	mu  sync.RWMutex
	cur *domain.EmailSettings
}

func NewSettings() *Settings { return &Settings{} }

func (r *Settings) GetEmailSettings(context.Context) (*domain.EmailSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cur == nil {
		return nil, nil
	}
	cp := *r.cur
	return &cp, nil
}

func (r *Settings) SaveEmailSettings(_ context.Context, s *domain.EmailSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cur != nil {
		s.ID = r.cur.ID
	} else if s.ID == "" {
		s.ID = utils.NewID()
	}
	s.UpdatedAt = time.Now()
	cp := *s
	r.cur = &cp
	return nil
}
