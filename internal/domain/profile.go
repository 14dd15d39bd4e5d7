package domain

import (
	"context"
	"net/url"
	"strings"
	"time"
)

const avatarBaseURL = "https://api.dicebear.com/7.x/avataaars/svg?seed="

// Profile 与身份账号 1:1，角色以此为准
type Profile struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Email     string    `gorm:"uniqueIndex;size:191;not null" json:"email"`
	FullName  string    `gorm:"size:128" json:"fullName"`
	Role      Role      `gorm:"size:16;not null;default:user" json:"role"`
	AvatarURL string    `gorm:"size:255" json:"avatarUrl"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Profile) TableName() string { return "profiles" }

// ProfilePatch 只包含调用方提供的字段
type ProfilePatch struct {
	FullName *string
	Email    *string
	Role     *Role
}

func (p ProfilePatch) Empty() bool { return p.FullName == nil && p.Email == nil && p.Role == nil }

// NormalizeEmail 邮箱统一小写去空白
func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// AvatarURL 按邮箱确定性生成头像地址
func AvatarURL(email string) string { return avatarBaseURL + url.QueryEscape(email) }

type ProfileRepository interface {
	Create(ctx context.Context, p *Profile) error
	FindByID(ctx context.Context, id string) (*Profile, error)
	FindByEmail(ctx context.Context, email string) (*Profile, error)
	List(ctx context.Context, offset, limit int) ([]Profile, int64, error)
	Update(ctx context.Context, id string, patch ProfilePatch) error
	Delete(ctx context.Context, id string) error
}
