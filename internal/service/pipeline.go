package service

import (
	"context"

	"go.uber.org/zap"

	"franchise-crm/internal/core/metrics"
	"franchise-crm/internal/core/mq"
	"franchise-crm/internal/domain"
	"franchise-crm/internal/pipeline"
)

type MoveInput struct {
	LeadID string `json:"leadId"`
	From   string `json:"from"`
	To     string `json:"to"`
}

type MoveResult struct {
	Moved bool                `json:"moved"`
	Entry *domain.StatusEntry `json:"entry,omitempty"`
}

// PipelineService 服务端的阶段流转：只追加历史，不修改已有行
type PipelineService struct {
	leads   *LeadService
	history domain.StatusHistoryRepository
	events  *EventPublisher
	log     *zap.Logger
}

func NewPipelineService(leads *LeadService, history domain.StatusHistoryRepository, events *EventPublisher, l *zap.Logger) *PipelineService {
	if l == nil {
		l = zap.NewNop()
	}
	if events == nil {
		events = NewEventPublisher(mq.Nop{}, l)
	}
	return &PipelineService{leads: leads, history: history, events: events, log: l.Named("pipeline")}
}

type stageChanged struct {
	LeadID string `json:"leadId"`
	From   string `json:"from"`
	To     string `json:"to"`
	By     string `json:"by,omitempty"`
}

// Move 阶段之间没有限制，并发移动以最后一次追加为准
func (s *PipelineService) Move(ctx context.Context, caller domain.Caller, in MoveInput) (res *MoveResult, err error) {
	if !caller.Capabilities.CanMutatePipeline {
		return nil, domain.Forbidden(pipeline.ErrPermissionDenied.Error())
	}
	if err := required("leadId", in.LeadID); err != nil {
		return nil, err
	}
	if !pipeline.Valid(in.From) {
		return nil, domain.Validationf("unknown stage %q", in.From)
	}
	if !pipeline.Valid(in.To) {
		return nil, domain.Validationf("unknown stage %q", in.To)
	}
	if in.From == in.To {
		return &MoveResult{Moved: false}, nil
	}
	defer func() { metrics.RecordPipelineMove(in.To, err) }()

	if _, err := s.leads.find(ctx, in.LeadID); err != nil {
		return nil, err
	}
	e := &domain.StatusEntry{
		LeadID:    in.LeadID,
		Status:    in.To,
		Notes:     pipeline.MoveNote(in.To),
		CreatedBy: callerRef(caller),
	}
	if err := s.history.Append(ctx, e); err != nil {
		s.log.Error("append status", zap.String("lead_id", in.LeadID), zap.String("to", in.To), zap.Error(err))
		return nil, domain.Upstream("history store", err)
	}
	s.events.Publish(ctx, mq.LeadStageChanged, stageChanged{LeadID: in.LeadID, From: in.From, To: in.To, By: caller.UserID})
	return &MoveResult{Moved: true, Entry: e}, nil
}

// Board 每个阶段一列，未知阶段归入第一列
func (s *PipelineService) Board(ctx context.Context, f domain.LeadFilter) ([]pipeline.Column, error) {
	f.Stage = ""
	views, err := s.leads.All(ctx, f)
	if err != nil {
		return nil, err
	}
	return pipeline.Group(views), nil
}
