// Package memrepo 进程内仓储实现，测试和本地演示用，语义与 gorm 实现一致：
// 查不到返回 (nil, nil)，删除不存在的行返回 NotFound。
package memrepo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"franchise-crm/internal/domain"
	"franchise-crm/pkg/utils"
)

// ErrInjected 由 Fail* 字段注入的错误
var ErrInjected = errors.New("memrepo: injected failure")

type Profiles struct {
	mu   sync.RWMutex
	rows map[string]domain.Profile

	FailCreate, FailUpdate, FailDelete, FailFind bool
}

func NewProfiles() *Profiles { return &Profiles{rows: map[string]domain.Profile{}} }

func (r *Profiles) Create(_ context.Context, p *domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailCreate {
		return ErrInjected
	}
	for _, x := range r.rows {
		if x.Email == p.Email {
			return errUnique
		}
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	r.rows[p.ID] = *p
	return nil
}

func (r *Profiles) FindByID(_ context.Context, id string) (*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.FailFind {
		return nil, ErrInjected
	}
	p, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *Profiles) FindByEmail(_ context.Context, email string) (*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.FailFind {
		return nil, ErrInjected
	}
	email = domain.NormalizeEmail(email)
	for _, p := range r.rows {
		if domain.NormalizeEmail(p.Email) == email {
			out := p
			return &out, nil
		}
	}
	return nil, nil
}

func (r *Profiles) List(_ context.Context, offset, limit int) ([]domain.Profile, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]domain.Profile, 0, len(r.rows))
	for _, p := range r.rows {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return window(all, offset, limit), int64(len(all)), nil
}

func (r *Profiles) Update(_ context.Context, id string, patch domain.ProfilePatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailUpdate {
		return ErrInjected
	}
	p, ok := r.rows[id]
	if !ok {
		return domain.NotFound("profile not found")
	}
	if patch.FullName != nil {
		p.FullName = *patch.FullName
	}
	if patch.Email != nil {
		p.Email = *patch.Email
	}
	if patch.Role != nil {
		p.Role = *patch.Role
	}
	p.UpdatedAt = time.Now()
	r.rows[id] = p
	return nil
}

func (r *Profiles) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailDelete {
		return ErrInjected
	}
	if _, ok := r.rows[id]; !ok {
		return domain.NotFound("profile not found")
	}
	delete(r.rows, id)
	return nil
}

// Len 测试断言用
func (r *Profiles) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rows)
}

var errUnique = fmt.Errorf("profiles.email: %w", gorm.ErrDuplicatedKey)

func window[T any](all []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []T{}
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}

// Leads 同时实现 LeadRepository 和 StatusHistoryRepository
type Leads struct {
	mu      sync.RWMutex
	leads   map[string]domain.Lead
	history []domain.StatusEntry

	FailAppend bool
	FailList   bool
	// Clock 为 nil 时用 time.Now
	Clock func() time.Time
}

func NewLeads() *Leads { return &Leads{leads: map[string]domain.Lead{}} }

func (r *Leads) now() time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return time.Now()
}

func (r *Leads) Create(_ context.Context, l *domain.Lead, d *domain.LeadDetail, initial *domain.StatusEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if l.ID == "" {
		l.ID = utils.NewID()
	}
	l.CreatedAt, l.UpdatedAt = now, now
	if d != nil {
		d.ID, d.LeadID = utils.NewID(), l.ID
		d.Score = domain.Score(d.InterestLevel, d.InvestmentCapacity)
		d.CreatedAt, d.UpdatedAt = now, now
		cp := *d
		l.Detail = &cp
	}
	row := *l
	row.History = nil
	r.leads[l.ID] = row
	if initial != nil {
		initial.ID, initial.LeadID, initial.CreatedAt = utils.NewID(), l.ID, now
		r.history = append(r.history, *initial)
	}
	return nil
}

func (r *Leads) withHistory(l domain.Lead) domain.Lead {
	l.History = nil
	for _, e := range r.history {
		if e.LeadID == l.ID {
			l.History = append(l.History, e)
		}
	}
	if l.Detail != nil {
		d := *l.Detail
		l.Detail = &d
	}
	return l
}

func (r *Leads) FindByID(_ context.Context, id string) (*domain.Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.leads[id]
	if !ok {
		return nil, nil
	}
	out := r.withHistory(l)
	return &out, nil
}

func (r *Leads) ListWithHistory(_ context.Context, f domain.LeadFilter) ([]domain.Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.FailList {
		return nil, ErrInjected
	}
	q := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]domain.Lead, 0, len(r.leads))
	for _, l := range r.leads {
		if f.AssignedTo != "" && (l.AssignedTo == nil || *l.AssignedTo != f.AssignedTo) {
			continue
		}
		if f.SourceChannel != "" && (l.Detail == nil || l.Detail.SourceChannel != f.SourceChannel) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(l.FullName), q) && !strings.Contains(strings.ToLower(l.Email), q) {
			continue
		}
		out = append(out, r.withHistory(l))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *Leads) Update(_ context.Context, id string, p domain.LeadPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return domain.NotFound("lead not found")
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&l.FullName, p.FullName)
	set(&l.Email, p.Email)
	set(&l.Phone, p.Phone)
	set(&l.Location, p.Location)
	if p.AssignedTo != nil {
		l.AssignedTo = nonEmpty(*p.AssignedTo)
	}
	if p.Detail != nil && l.Detail != nil {
		d := *l.Detail
		if p.Detail.InterestLevel != nil {
			d.InterestLevel = *p.Detail.InterestLevel
		}
		if p.Detail.InvestmentCapacity != nil {
			d.InvestmentCapacity = *p.Detail.InvestmentCapacity
		}
		if p.Detail.PreviousExperience != nil {
			d.PreviousExperience = *p.Detail.PreviousExperience
		}
		if p.Detail.SourceChannel != nil {
			d.SourceChannel = *p.Detail.SourceChannel
		}
		set(&d.AdditionalComments, p.Detail.AdditionalComments)
		d.Score = domain.Score(d.InterestLevel, d.InvestmentCapacity)
		l.Detail = &d
	}
	l.UpdatedAt = r.now()
	r.leads[id] = l
	return nil
}

func nonEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func (r *Leads) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.leads[id]; !ok {
		return domain.NotFound("lead not found")
	}
	delete(r.leads, id)
	kept := r.history[:0]
	for _, e := range r.history {
		if e.LeadID != id {
			kept = append(kept, e)
		}
	}
	r.history = kept
	return nil
}

func (r *Leads) Append(_ context.Context, e *domain.StatusEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAppend {
		return ErrInjected
	}
	e.ID = utils.NewID()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}
	r.history = append(r.history, *e)
	return nil
}

func (r *Leads) ListByLead(_ context.Context, leadID string) ([]domain.StatusEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.StatusEntry{}
	for _, e := range r.history {
		if e.LeadID == leadID {
			out = append(out, e)
		}
	}
	return out, nil
}

// HistoryLen 测试断言用
func (r *Leads) HistoryLen(leadID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.history {
		if e.LeadID == leadID {
			n++
		}
	}
	return n
}
