package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"franchise-crm/internal/domain"
	"franchise-crm/pkg/utils"
)

type LeadRepo struct{ db *gorm.DB }

func NewLeadRepo(db *gorm.DB) *LeadRepo { return &LeadRepo{db: db} }

func (r *LeadRepo) Create(ctx context.Context, l *domain.Lead, d *domain.LeadDetail, initial *domain.StatusEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if l.ID == "" {
			l.ID = utils.NewID()
		}
		if err := tx.Omit("Detail", "History").Create(l).Error; err != nil {
			return err
		}
		if d != nil {
			if d.ID == "" {
				d.ID = utils.NewID()
			}
			d.LeadID = l.ID
			if err := tx.Create(d).Error; err != nil {
				return err
			}
		}
		if initial != nil {
			if initial.ID == "" {
				initial.ID = utils.NewID()
			}
			initial.LeadID = l.ID
			if err := tx.Create(initial).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *LeadRepo) FindByID(ctx context.Context, id string) (*domain.Lead, error) {
	var l domain.Lead
	err := r.db.WithContext(ctx).
		Preload("Detail").
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC, id DESC") }).
		First(&l, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ListWithHistory 阶段过滤依赖历史推导，在 service 层完成
func (r *LeadRepo) ListWithHistory(ctx context.Context, f domain.LeadFilter) ([]domain.Lead, error) {
	q := r.db.WithContext(ctx).Model(&domain.Lead{}).
		Preload("Detail").
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC, id DESC") })
	if f.AssignedTo != "" {
		q = q.Where("assigned_to = ?", f.AssignedTo)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(full_name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}
	if f.SourceChannel != "" {
		q = q.Where("id IN (?)", r.db.Model(&domain.LeadDetail{}).Select("lead_id").Where("source_channel = ?", f.SourceChannel))
	}
	var out []domain.Lead
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *LeadRepo) Update(ctx context.Context, id string, p domain.LeadPatch) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		updates := map[string]any{"updated_at": now}
		if p.FullName != nil {
			updates["full_name"] = *p.FullName
		}
		if p.Email != nil {
			updates["email"] = *p.Email
		}
		if p.Phone != nil {
			updates["phone"] = *p.Phone
		}
		if p.Location != nil {
			updates["location"] = *p.Location
		}
		if p.AssignedTo != nil {
			if *p.AssignedTo == "" {
				updates["assigned_to"] = nil
			} else {
				updates["assigned_to"] = *p.AssignedTo
			}
		}
		if err := tx.Model(&domain.Lead{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		if p.Detail == nil {
			return nil
		}
		du := map[string]any{"updated_at": now}
		if p.Detail.InterestLevel != nil {
			du["interest_level"] = *p.Detail.InterestLevel
		}
		if p.Detail.InvestmentCapacity != nil {
			du["investment_capacity"] = *p.Detail.InvestmentCapacity
		}
		if p.Detail.PreviousExperience != nil {
			du["previous_experience"] = *p.Detail.PreviousExperience
		}
		if p.Detail.SourceChannel != nil {
			du["source_channel"] = *p.Detail.SourceChannel
		}
		if p.Detail.AdditionalComments != nil {
			du["additional_comments"] = *p.Detail.AdditionalComments
		}
		if p.Detail.InterestLevel != nil || p.Detail.InvestmentCapacity != nil {
			var cur domain.LeadDetail
			if err := tx.Where("lead_id = ?", id).First(&cur).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			lvl, capa := cur.InterestLevel, cur.InvestmentCapacity
			if p.Detail.InterestLevel != nil {
				lvl = *p.Detail.InterestLevel
			}
			if p.Detail.InvestmentCapacity != nil {
				capa = *p.Detail.InvestmentCapacity
			}
			du["score"] = domain.Score(lvl, capa)
		}
		return tx.Model(&domain.LeadDetail{}).Where("lead_id = ?", id).Updates(du).Error
	})
}

// Delete 明细、历史、任务、沟通记录随外键级联删除
func (r *LeadRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Lead{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("lead not found")
	}
	return nil
}

// HistoryRepo lead_status_history 只追加
type HistoryRepo struct{ db *gorm.DB }

func NewHistoryRepo(db *gorm.DB) *HistoryRepo { return &HistoryRepo{db: db} }

func (r *HistoryRepo) Append(ctx context.Context, e *domain.StatusEntry) error {
	if e.ID == "" {
		e.ID = utils.NewID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(e).Error
}

// ListByLead 新的在前
func (r *HistoryRepo) ListByLead(ctx context.Context, leadID string) ([]domain.StatusEntry, error) {
	var out []domain.StatusEntry
	err := r.db.WithContext(ctx).Where("lead_id = ?", leadID).Order("created_at DESC, id DESC").Find(&out).Error
	return out, err
}
