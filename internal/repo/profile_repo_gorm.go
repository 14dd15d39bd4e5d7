package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"franchise-crm/internal/domain"
)

type ProfileRepo struct{ db *gorm.DB }

func NewProfileRepo(db *gorm.DB) *ProfileRepo { return &ProfileRepo{db: db} }

func (r *ProfileRepo) Create(ctx context.Context, p *domain.Profile) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// FindByID 不存在返回 nil, nil
func (r *ProfileRepo) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	var p domain.Profile
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepo) FindByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	var p domain.Profile
	err := r.db.WithContext(ctx).First(&p, "LOWER(email) = ?", domain.NormalizeEmail(email)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepo) List(ctx context.Context, offset, limit int) ([]domain.Profile, int64, error) {
	var total int64
	q := r.db.WithContext(ctx).Model(&domain.Profile{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.Profile
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *ProfileRepo) Update(ctx context.Context, id string, p domain.ProfilePatch) error {
	updates := map[string]any{"updated_at": time.Now()}
	if p.FullName != nil {
		updates["full_name"] = *p.FullName
	}
	if p.Email != nil {
		updates["email"] = domain.NormalizeEmail(*p.Email)
	}
	if p.Role != nil {
		updates["role"] = *p.Role
	}
	return r.db.WithContext(ctx).Model(&domain.Profile{}).Where("id = ?", id).Updates(updates).Error
}

func (r *ProfileRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Profile{}).Error
}
