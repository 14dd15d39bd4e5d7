package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"franchise-crm/internal/domain"
)

type CreateTaskInput struct {
	LeadID      string     `json:"leadId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Type        string     `json:"type"`
	DueDate     *time.Time `json:"dueDate"`
	AssignedTo  *string    `json:"assignedTo"`
}

type TaskService struct {
	tasks domain.TaskRepository
	leads *LeadService
	now   func() time.Time
	log   *zap.Logger
}

func NewTaskService(tasks domain.TaskRepository, leads *LeadService, l *zap.Logger) *TaskService {
	if l == nil {
		l = zap.NewNop()
	}
	return &TaskService{tasks: tasks, leads: leads, now: time.Now, log: l.Named("tasks")}
}

// Create 未指定负责人时分配给创建者
func (s *TaskService) Create(ctx context.Context, caller domain.Caller, in CreateTaskInput) (*domain.Task, error) {
	if err := required("leadId", in.LeadID); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if err := required("title", title); err != nil {
		return nil, err
	}
	if _, err := s.leads.find(ctx, in.LeadID); err != nil {
		return nil, err
	}
	assignee := nonEmpty(in.AssignedTo)
	if assignee == nil {
		assignee = callerRef(caller)
	}
	if assignee != nil && *assignee != caller.UserID && !caller.Capabilities.CanEditLeads {
		return nil, domain.Forbidden("you cannot assign tasks to other users")
	}
	t := &domain.Task{
		LeadID:      in.LeadID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Type:        strings.TrimSpace(in.Type),
		DueDate:     in.DueDate,
		AssignedTo:  assignee,
		CreatedBy:   callerRef(caller),
	}
	if err := s.tasks.Create(ctx, t); err != nil {
		s.log.Error("create task", zap.String("lead_id", in.LeadID), zap.Error(err))
		return nil, domain.Upstream("task store", err)
	}
	return t, nil
}

func (s *TaskService) Mine(ctx context.Context, caller domain.Caller) ([]domain.Task, error) {
	out, err := s.tasks.ListByAssignee(ctx, caller.UserID)
	if err != nil {
		return nil, domain.Upstream("task store", err)
	}
	return out, nil
}

func (s *TaskService) ByLead(ctx context.Context, leadID string) ([]domain.Task, error) {
	out, err := s.tasks.ListByLead(ctx, leadID)
	if err != nil {
		return nil, domain.Upstream("task store", err)
	}
	return out, nil
}

// owned 自己创建或分配给自己的任务可直接修改，其他任务需要 CanEditLeads
func (s *TaskService) owned(ctx context.Context, caller domain.Caller, id string) (*domain.Task, error) {
	t, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, domain.Upstream("task store", err)
	}
	if t == nil {
		return nil, domain.NotFound("task not found")
	}
	mine := (t.AssignedTo != nil && *t.AssignedTo == caller.UserID) ||
		(t.CreatedBy != nil && *t.CreatedBy == caller.UserID)
	if !mine && !caller.Capabilities.CanEditLeads {
		return nil, domain.Forbidden("you cannot modify this task")
	}
	return t, nil
}

// Toggle 切换完成状态，completed_at 随之设置或清空
func (s *TaskService) Toggle(ctx context.Context, caller domain.Caller, id string) (*domain.Task, error) {
	t, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	t.Completed = !t.Completed
	t.CompletedAt = nil
	if t.Completed {
		now := s.now()
		t.CompletedAt = &now
	}
	if err := s.tasks.SetCompleted(ctx, id, t.Completed, t.CompletedAt); err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, err
		}
		return nil, domain.Upstream("task store", err)
	}
	return t, nil
}

func (s *TaskService) Delete(ctx context.Context, caller domain.Caller, id string) error {
	if _, err := s.owned(ctx, caller, id); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return err
		}
		return domain.Upstream("task store", err)
	}
	return nil
}
