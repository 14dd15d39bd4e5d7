package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"franchise-crm/internal/core/database"
	"franchise-crm/pkg/utils"
)

// AccountModel 本地身份表，与 profiles 分开存放
type AccountModel struct {
	ID               string `gorm:"primaryKey;size:36"`
	Email            string `gorm:"uniqueIndex;size:191;not null"`
	PasswordHash     string `gorm:"size:100;not null"`
	FullName         string `gorm:"size:128"`
	EmailConfirmedAt *time.Time
	CreatedAt        time.Time `gorm:"autoCreateTime"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}

func (AccountModel) TableName() string { return "auth_accounts" }

func (m *AccountModel) toAccount() *Account {
	return &Account{
		ID:             m.ID,
		Email:          m.Email,
		FullName:       m.FullName,
		EmailConfirmed: m.EmailConfirmedAt != nil,
		CreatedAt:      m.CreatedAt,
	}
}

type LocalStore struct{ db *gorm.DB }

func NewLocalStore(db *gorm.DB) *LocalStore { return &LocalStore{db: db} }

func (s *LocalStore) CreateAccount(ctx context.Context, in NewAccount) (*Account, error) {
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	m := AccountModel{
		ID:               utils.NewID(),
		Email:            strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash:     hash,
		FullName:         in.FullName,
		EmailConfirmedAt: &now,
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	return m.toAccount(), nil
}

func (s *LocalStore) find(ctx context.Context, q string, arg string) (*AccountModel, error) {
	var m AccountModel
	err := s.db.WithContext(ctx).Where(q, arg).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *LocalStore) GetAccount(ctx context.Context, id string) (*Account, error) {
	m, err := s.find(ctx, "id = ?", id)
	if err != nil {
		return nil, err
	}
	return m.toAccount(), nil
}

func (s *LocalStore) UpdateAccount(ctx context.Context, id string, p AccountPatch) (*Account, error) {
	updates := map[string]any{}
	if p.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*p.Email))
	}
	if p.FullName != nil {
		updates["full_name"] = *p.FullName
	}
	if p.Password != nil {
		hash, err := utils.HashPassword(*p.Password)
		if err != nil {
			return nil, err
		}
		updates["password_hash"] = hash
	}
	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&AccountModel{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			if database.IsUniqueViolation(res.Error) {
				return nil, ErrAlreadyExists
			}
			return nil, res.Error
		}
	}
	// mysql 对未变化的行返回 0 affected，存在性以再次读取为准
	return s.GetAccount(ctx, id)
}

func (s *LocalStore) DeleteAccount(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&AccountModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *LocalStore) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	m, err := s.find(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(password, m.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return m.toAccount(), nil
}
