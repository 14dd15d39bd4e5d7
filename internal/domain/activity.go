package domain

import (
	"context"
	"time"
)

type Task struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	LeadID      string     `gorm:"size:36;index;not null" json:"leadId"`
	Title       string     `gorm:"size:191;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Type        string     `gorm:"size:32" json:"type"`
	DueDate     *time.Time `gorm:"index" json:"dueDate,omitempty"`
	Completed   bool       `gorm:"not null;default:false" json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	AssignedTo  *string    `gorm:"size:36;index" json:"assignedTo,omitempty"`
	CreatedBy   *string    `gorm:"size:36" json:"createdBy,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	Lead *Lead `gorm:"foreignKey:LeadID;constraint:OnDelete:CASCADE" json:"lead,omitempty"`
}

func (Task) TableName() string { return "tasks" }

type TaskRepository interface {
	Create(ctx context.Context, t *Task) error
	FindByID(ctx context.Context, id string) (*Task, error)
	ListByAssignee(ctx context.Context, userID string) ([]Task, error)
	ListByLead(ctx context.Context, leadID string) ([]Task, error)
	SetCompleted(ctx context.Context, id string, completed bool, at *time.Time) error
	Delete(ctx context.Context, id string) error
}

type CommunicationType string

const (
	CommEmail   CommunicationType = "email"
	CommPhone   CommunicationType = "phone"
	CommMeeting CommunicationType = "meeting"
	CommNote    CommunicationType = "note"
)

func (t CommunicationType) Valid() bool {
	switch t {
	case CommEmail, CommPhone, CommMeeting, CommNote:
		return true
	}
	return false
}

type Communication struct {
	ID        string            `gorm:"primaryKey;size:36" json:"id"`
	LeadID    string            `gorm:"size:36;index;not null" json:"leadId"`
	Type      CommunicationType `gorm:"size:16;not null" json:"type"`
	Subject   string            `gorm:"size:191" json:"subject"`
	Content   string            `gorm:"type:text;not null" json:"content"`
	CreatedBy *string           `gorm:"size:36" json:"createdBy,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`

	Lead *Lead `gorm:"foreignKey:LeadID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Communication) TableName() string { return "communications" }

type CommunicationRepository interface {
	Create(ctx context.Context, c *Communication) error
	ListByLead(ctx context.Context, leadID string) ([]Communication, error)
	Delete(ctx context.Context, id string) error
}

type Franchise struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	Name          string    `gorm:"size:191;not null" json:"name" binding:"required"`
	Address       string    `gorm:"size:255" json:"address"`
	City          string    `gorm:"size:128;index" json:"city"`
	Province      string    `gorm:"size:128" json:"province"`
	ContactPerson string    `gorm:"size:128" json:"contactPerson"`
	Email         string    `gorm:"size:191" json:"email" binding:"omitempty,email"`
	Phone         string    `gorm:"size:32" json:"phone"`
	Website       string    `gorm:"size:255" json:"website"`
	TesisCode     string    `gorm:"size:64" json:"tesisCode"`
	CreatedBy     string    `gorm:"size:36" json:"createdBy"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (Franchise) TableName() string { return "franchises" }

// EmailSettings 单行 SMTP 配置
type EmailSettings struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	SMTPHost     string    `gorm:"size:191;not null" json:"smtpHost" binding:"required"`
	SMTPPort     int       `gorm:"not null;default:587" json:"smtpPort"`
	SMTPUser     string    `gorm:"size:191" json:"smtpUser"`
	SMTPPassword string    `gorm:"size:191" json:"smtpPassword,omitempty"`
	SMTPSecure   bool      `gorm:"not null;default:false" json:"smtpSecure"`
	FromEmail    string    `gorm:"size:191;not null" json:"fromEmail" binding:"required,email"`
	FromName     string    `gorm:"size:128" json:"fromName"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (EmailSettings) TableName() string { return "email_settings" }

type SettingsRepository interface {
	GetEmailSettings(ctx context.Context) (*EmailSettings, error)
	SaveEmailSettings(ctx context.Context, s *EmailSettings) error
}
