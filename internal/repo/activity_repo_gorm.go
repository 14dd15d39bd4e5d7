package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"franchise-crm/internal/domain"
	"franchise-crm/pkg/utils"
)

type TaskRepo struct{ db *gorm.DB }

func NewTaskRepo(db *gorm.DB) *TaskRepo { return &TaskRepo{db: db} }

func (r *TaskRepo) Create(ctx context.Context, t *domain.Task) error {
	if t.ID == "" {
		t.ID = utils.NewID()
	}
	return r.db.WithContext(ctx).Omit("Lead").Create(t).Error
}

func (r *TaskRepo) FindByID(ctx context.Context, id string) (*domain.Task, error) {
	var t domain.Task
	err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByAssignee 按截止日期升序，未设置截止日期的排最后
func (r *TaskRepo) ListByAssignee(ctx context.Context, userID string) ([]domain.Task, error) {
	var out []domain.Task
	err := r.db.WithContext(ctx).Preload("Lead").
		Where("assigned_to = ?", userID).
		Order("CASE WHEN due_date IS NULL THEN 1 ELSE 0 END, due_date ASC").
		Find(&out).Error
	return out, err
}

func (r *TaskRepo) ListByLead(ctx context.Context, leadID string) ([]domain.Task, error) {
	var out []domain.Task
	err := r.db.WithContext(ctx).Where("lead_id = ?", leadID).Order("created_at DESC").Find(&out).Error
	return out, err
}

func (r *TaskRepo) SetCompleted(ctx context.Context, id string, completed bool, at *time.Time) error {
	res := r.db.WithContext(ctx).Model(&domain.Task{}).Where("id = ?", id).Updates(map[string]any{
		"completed":    completed,
		"completed_at": at,
		"updated_at":   time.Now(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("task not found")
	}
	return nil
}

func (r *TaskRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Task{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("task not found")
	}
	return nil
}

type CommunicationRepo struct{ db *gorm.DB }

func NewCommunicationRepo(db *gorm.DB) *CommunicationRepo { return &CommunicationRepo{db: db} }

func (r *CommunicationRepo) Create(ctx context.Context, c *domain.Communication) error {
	if c.ID == "" {
		c.ID = utils.NewID()
	}
	return r.db.WithContext(ctx).Omit("Lead").Create(c).Error
}

func (r *CommunicationRepo) ListByLead(ctx context.Context, leadID string) ([]domain.Communication, error) {
	var out []domain.Communication
	err := r.db.WithContext(ctx).Where("lead_id = ?", leadID).Order("created_at DESC").Find(&out).Error
	return out, err
}

func (r *CommunicationRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Communication{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("communication not found")
	}
	return nil
}

type SettingsRepo struct{ db *gorm.DB }

func NewSettingsRepo(db *gorm.DB) *SettingsRepo { return &SettingsRepo{db: db} }

// GetEmailSettings 未配置返回 nil, nil
func (r *SettingsRepo) GetEmailSettings(ctx context.Context) (*domain.EmailSettings, error) {
	var s domain.EmailSettings
	err := r.db.WithContext(ctx).Order("created_at ASC").First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveEmailSettings 单行表：有则按 id 覆盖，无则插入
func (r *SettingsRepo) SaveEmailSettings(ctx context.Context, s *domain.EmailSettings) error {
	cur, err := r.GetEmailSettings(ctx)
	if err != nil {
		return err
	}
	if cur != nil {
		s.ID = cur.ID
		s.CreatedAt = cur.CreatedAt
	} else if s.ID == "" {
		s.ID = utils.NewID()
	}
	return r.db.WithContext(ctx).Save(s).Error
}
