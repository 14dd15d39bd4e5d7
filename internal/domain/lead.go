package domain

import (
	"context"
	"time"
)

type Lead struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	FullName   string    `gorm:"size:128;not null" json:"fullName"`
	Email      string    `gorm:"size:191;index;not null" json:"email"`
	Phone      string    `gorm:"size:32" json:"phone"`
	Location   string    `gorm:"size:128" json:"location"`
	AssignedTo *string   `gorm:"size:36;index" json:"assignedTo,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`

	Detail  *LeadDetail   `gorm:"foreignKey:LeadID;constraint:OnDelete:CASCADE" json:"detail,omitempty"`
	History []StatusEntry `gorm:"foreignKey:LeadID;constraint:OnDelete:CASCADE" json:"history,omitempty"`
}

func (Lead) TableName() string { return "leads" }

type SourceChannel string

const (
	SourceWebsite       SourceChannel = "website"
	SourceReferral      SourceChannel = "referral"
	SourceSocialMedia   SourceChannel = "social_media"
	SourceEmail         SourceChannel = "email"
	SourcePhone         SourceChannel = "phone"
	SourceEvent         SourceChannel = "event"
	SourceAdvertisement SourceChannel = "advertisement"
	SourceOther         SourceChannel = "other"
)

var sourceChannels = map[SourceChannel]struct{}{
	SourceWebsite: {}, SourceReferral: {}, SourceSocialMedia: {}, SourceEmail: {},
	SourcePhone: {}, SourceEvent: {}, SourceAdvertisement: {}, SourceOther: {},
}

func (s SourceChannel) Valid() bool { _, ok := sourceChannels[s]; return ok }

type InvestmentCapacity string

const (
	CapacityLow      InvestmentCapacity = "low"
	CapacityMedium   InvestmentCapacity = "medium"
	CapacityHigh     InvestmentCapacity = "high"
	CapacityVeryHigh InvestmentCapacity = "very_high"
	CapacityUnknown  InvestmentCapacity = "unknown"
)

// 评分权重
var capacityWeight = map[InvestmentCapacity]int{
	CapacityLow: 10, CapacityMedium: 20, CapacityHigh: 30, CapacityVeryHigh: 40, CapacityUnknown: 0,
}

func (c InvestmentCapacity) Valid() bool { _, ok := capacityWeight[c]; return ok }

type PreviousExperience string

const (
	ExperienceNone      PreviousExperience = "none"
	ExperienceSome      PreviousExperience = "some"
	ExperienceExtensive PreviousExperience = "extensive"
)

func (p PreviousExperience) Valid() bool {
	switch p {
	case ExperienceNone, ExperienceSome, ExperienceExtensive:
		return true
	}
	return false
}

type LeadDetail struct {
	ID                 string             `gorm:"primaryKey;size:36" json:"id"`
	LeadID             string             `gorm:"size:36;uniqueIndex;not null" json:"leadId"`
	Score              int                `gorm:"not null;default:0" json:"score"`
	InterestLevel      int                `gorm:"not null;default:0" json:"interestLevel"`
	InvestmentCapacity InvestmentCapacity `gorm:"size:16" json:"investmentCapacity"`
	PreviousExperience PreviousExperience `gorm:"size:16" json:"previousExperience"`
	SourceChannel      SourceChannel      `gorm:"size:32;index" json:"sourceChannel"`
	AdditionalComments string             `gorm:"type:text" json:"additionalComments"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

func (LeadDetail) TableName() string { return "lead_details" }

// Score 兴趣等级 x10 + 投资能力权重，封顶 100
func Score(interestLevel int, capacity InvestmentCapacity) int {
	if interestLevel < 0 {
		interestLevel = 0
	}
	s := interestLevel*10 + capacityWeight[capacity]
	if s > 100 {
		return 100
	}
	return s
}

// StatusEntry lead_status_history 的一行，只追加不修改
type StatusEntry struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	LeadID    string    `gorm:"size:36;index:idx_history_lead_created,priority:1;not null" json:"leadId"`
	Status    string    `gorm:"size:32;not null" json:"status"`
	Notes     string    `gorm:"type:text" json:"notes"`
	CreatedBy *string   `gorm:"size:36" json:"createdBy,omitempty"`
	CreatedAt time.Time `gorm:"index:idx_history_lead_created,priority:2" json:"createdAt"`
}

func (StatusEntry) TableName() string { return "lead_status_history" }

// LeadView 列表/看板使用的 lead 投影，Stage 由历史推导
type LeadView struct {
	Lead
	Stage string `json:"stage"`
}

type LeadFilter struct {
	Stage         string
	SourceChannel SourceChannel
	AssignedTo    string
	Search        string
	Offset        int
	Limit         int
}

type LeadPatch struct {
	FullName   *string
	Email      *string
	Phone      *string
	Location   *string
	AssignedTo *string
	Detail     *LeadDetailPatch
}

type LeadDetailPatch struct {
	InterestLevel      *int
	InvestmentCapacity *InvestmentCapacity
	PreviousExperience *PreviousExperience
	SourceChannel      *SourceChannel
	AdditionalComments *string
}

type LeadRepository interface {
	// Create 在同一事务里写入 lead、detail 和初始状态
	Create(ctx context.Context, l *Lead, d *LeadDetail, initial *StatusEntry) error
	FindByID(ctx context.Context, id string) (*Lead, error)
	// ListWithHistory 预加载 detail 和状态历史
	ListWithHistory(ctx context.Context, f LeadFilter) ([]Lead, error)
	Update(ctx context.Context, id string, patch LeadPatch) error
	Delete(ctx context.Context, id string) error
}

// StatusHistoryRepository 没有更新/删除方法
type StatusHistoryRepository interface {
	Append(ctx context.Context, e *StatusEntry) error
	ListByLead(ctx context.Context, leadID string) ([]StatusEntry, error)
}
