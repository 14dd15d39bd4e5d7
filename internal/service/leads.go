package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"franchise-crm/internal/domain"
	"franchise-crm/internal/pipeline"
)

type CreateLeadInput struct {
	FullName           string  `json:"fullName"`
	Email              string  `json:"email"`
	Phone              string  `json:"phone"`
	Location           string  `json:"location"`
	AssignedTo         *string `json:"assignedTo"`
	InterestLevel      int     `json:"interestLevel"`
	InvestmentCapacity string  `json:"investmentCapacity"`
	PreviousExperience string  `json:"previousExperience"`
	SourceChannel      string  `json:"sourceChannel"`
	AdditionalComments string  `json:"additionalComments"`
}

type UpdateLeadInput struct {
	FullName           *string `json:"fullName"`
	Email              *string `json:"email"`
	Phone              *string `json:"phone"`
	Location           *string `json:"location"`
	AssignedTo         *string `json:"assignedTo"`
	InterestLevel      *int    `json:"interestLevel"`
	InvestmentCapacity *string `json:"investmentCapacity"`
	PreviousExperience *string `json:"previousExperience"`
	SourceChannel      *string `json:"sourceChannel"`
	AdditionalComments *string `json:"additionalComments"`
}

// LeadFull lead 详情页
type LeadFull struct {
	domain.LeadView
	Tasks          []domain.Task          `json:"tasks"`
	Communications []domain.Communication `json:"communications"`
}

type LeadService struct {
	leads   domain.LeadRepository
	history domain.StatusHistoryRepository
	tasks   domain.TaskRepository
	comms   domain.CommunicationRepository
	log     *zap.Logger
}

func NewLeadService(leads domain.LeadRepository, history domain.StatusHistoryRepository, tasks domain.TaskRepository, comms domain.CommunicationRepository, l *zap.Logger) *LeadService {
	if l == nil {
		l = zap.NewNop()
	}
	return &LeadService{leads: leads, history: history, tasks: tasks, comms: comms, log: l.Named("leads")}
}

const maxInterestLevel = 5

func parseDetail(in CreateLeadInput) (*domain.LeadDetail, error) {
	d := &domain.LeadDetail{
		InterestLevel:      in.InterestLevel,
		InvestmentCapacity: domain.CapacityUnknown,
		PreviousExperience: domain.ExperienceNone,
		SourceChannel:      domain.SourceOther,
		AdditionalComments: strings.TrimSpace(in.AdditionalComments),
	}
	if in.InterestLevel < 0 || in.InterestLevel > maxInterestLevel {
		return nil, domain.Validationf("interestLevel must be between 0 and %d", maxInterestLevel)
	}
	if v := strings.TrimSpace(in.InvestmentCapacity); v != "" {
		d.InvestmentCapacity = domain.InvestmentCapacity(v)
		if !d.InvestmentCapacity.Valid() {
			return nil, domain.Validationf("invalid investmentCapacity %q", v)
		}
	}
	if v := strings.TrimSpace(in.PreviousExperience); v != "" {
		d.PreviousExperience = domain.PreviousExperience(v)
		if !d.PreviousExperience.Valid() {
			return nil, domain.Validationf("invalid previousExperience %q", v)
		}
	}
	if v := strings.TrimSpace(in.SourceChannel); v != "" {
		d.SourceChannel = domain.SourceChannel(v)
		if !d.SourceChannel.Valid() {
			return nil, domain.Validationf("invalid sourceChannel %q", v)
		}
	}
	d.Score = domain.Score(d.InterestLevel, d.InvestmentCapacity)
	return d, nil
}

// Create lead、明细和第一条状态历史在一个事务里写入
func (s *LeadService) Create(ctx context.Context, caller domain.Caller, in CreateLeadInput) (*domain.LeadView, error) {
	name := strings.TrimSpace(in.FullName)
	if err := required("fullName", name); err != nil {
		return nil, err
	}
	email, err := checkEmail(in.Email)
	if err != nil {
		return nil, err
	}
	detail, err := parseDetail(in)
	if err != nil {
		return nil, err
	}
	lead := &domain.Lead{
		FullName:   name,
		Email:      email,
		Phone:      strings.TrimSpace(in.Phone),
		Location:   strings.TrimSpace(in.Location),
		AssignedTo: nonEmpty(in.AssignedTo),
	}
	initial := &domain.StatusEntry{
		Status:    pipeline.First().ID,
		Notes:     "Lead created",
		CreatedBy: callerRef(caller),
	}
	if err := s.leads.Create(ctx, lead, detail, initial); err != nil {
		s.log.Error("create lead", zap.String("email", email), zap.Error(err))
		return nil, domain.Upstream("lead store", err)
	}
	lead.Detail = detail
	lead.History = []domain.StatusEntry{*initial}
	return &domain.LeadView{Lead: *lead, Stage: initial.Status}, nil
}

func nonEmpty(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

func callerRef(c domain.Caller) *string {
	if c.UserID == "" {
		return nil
	}
	id := c.UserID
	return &id
}

// View 根据历史推导当前阶段
func View(l domain.Lead) domain.LeadView {
	return domain.LeadView{Lead: l, Stage: pipeline.Normalize(pipeline.CurrentStage(l.History))}
}

type LeadPage struct {
	Items []domain.LeadView `json:"list"`
	Total int               `json:"total"`
	Page  int               `json:"page"`
	Size  int               `json:"size"`
}

// List 阶段由历史推导，所以阶段过滤和分页在内存中完成
func (s *LeadService) List(ctx context.Context, f domain.LeadFilter) (*LeadPage, error) {
	if f.Stage != "" && !pipeline.Valid(f.Stage) {
		return nil, domain.Validationf("unknown stage %q", f.Stage)
	}
	if f.SourceChannel != "" && !f.SourceChannel.Valid() {
		return nil, domain.Validationf("invalid sourceChannel %q", f.SourceChannel)
	}
	views, err := s.All(ctx, f)
	if err != nil {
		return nil, err
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	page := &LeadPage{Total: len(views), Size: f.Limit, Page: f.Offset/f.Limit + 1, Items: []domain.LeadView{}}
	if f.Offset < len(views) {
		end := min(f.Offset+f.Limit, len(views))
		page.Items = views[f.Offset:end]
	}
	return page, nil
}

// All 不分页，看板和仪表盘使用
func (s *LeadService) All(ctx context.Context, f domain.LeadFilter) ([]domain.LeadView, error) {
	leads, err := s.leads.ListWithHistory(ctx, f)
	if err != nil {
		s.log.Error("list leads", zap.Error(err))
		return nil, domain.Upstream("lead store", err)
	}
	out := make([]domain.LeadView, 0, len(leads))
	for _, l := range leads {
		v := View(l)
		if f.Stage != "" && v.Stage != f.Stage {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *LeadService) find(ctx context.Context, id string) (*domain.Lead, error) {
	l, err := s.leads.FindByID(ctx, id)
	if err != nil {
		return nil, domain.Upstream("lead store", err)
	}
	if l == nil {
		return nil, domain.NotFound("lead not found")
	}
	return l, nil
}

func (s *LeadService) Get(ctx context.Context, id string) (*LeadFull, error) {
	l, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	tasks, err := s.tasks.ListByLead(ctx, id)
	if err != nil {
		return nil, domain.Upstream("task store", err)
	}
	comms, err := s.comms.ListByLead(ctx, id)
	if err != nil {
		return nil, domain.Upstream("communication store", err)
	}
	pipeline.SortNewestFirst(l.History)
	return &LeadFull{LeadView: View(*l), Tasks: tasks, Communications: comms}, nil
}

func (s *LeadService) History(ctx context.Context, id string) ([]domain.StatusEntry, error) {
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}
	h, err := s.history.ListByLead(ctx, id)
	if err != nil {
		return nil, domain.Upstream("history store", err)
	}
	pipeline.SortNewestFirst(h)
	return h, nil
}

func (s *LeadService) Update(ctx context.Context, id string, in UpdateLeadInput) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	var p domain.LeadPatch
	if in.FullName != nil {
		v := strings.TrimSpace(*in.FullName)
		if v == "" {
			return domain.Validation("fullName must not be empty")
		}
		p.FullName = &v
	}
	if in.Email != nil {
		v, err := checkEmail(*in.Email)
		if err != nil {
			return err
		}
		p.Email = &v
	}
	p.Phone, p.Location, p.AssignedTo = trimmed(in.Phone), trimmed(in.Location), trimmed(in.AssignedTo)

	var d domain.LeadDetailPatch
	touched := false
	if in.InterestLevel != nil {
		if *in.InterestLevel < 0 || *in.InterestLevel > maxInterestLevel {
			return domain.Validationf("interestLevel must be between 0 and %d", maxInterestLevel)
		}
		d.InterestLevel, touched = in.InterestLevel, true
	}
	if in.InvestmentCapacity != nil {
		v := domain.InvestmentCapacity(strings.TrimSpace(*in.InvestmentCapacity))
		if !v.Valid() {
			return domain.Validationf("invalid investmentCapacity %q", v)
		}
		d.InvestmentCapacity, touched = &v, true
	}
	if in.PreviousExperience != nil {
		v := domain.PreviousExperience(strings.TrimSpace(*in.PreviousExperience))
		if !v.Valid() {
			return domain.Validationf("invalid previousExperience %q", v)
		}
		d.PreviousExperience, touched = &v, true
	}
	if in.SourceChannel != nil {
		v := domain.SourceChannel(strings.TrimSpace(*in.SourceChannel))
		if !v.Valid() {
			return domain.Validationf("invalid sourceChannel %q", v)
		}
		d.SourceChannel, touched = &v, true
	}
	if in.AdditionalComments != nil {
		d.AdditionalComments, touched = trimmed(in.AdditionalComments), true
	}
	if touched {
		p.Detail = &d
	}
	if err := s.leads.Update(ctx, id, p); err != nil {
		s.log.Error("update lead", zap.String("lead_id", id), zap.Error(err))
		return domain.Upstream("lead store", err)
	}
	return nil
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

func (s *LeadService) Delete(ctx context.Context, id string) error {
	err := s.leads.Delete(ctx, id)
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.KindNotFound) {
		return err
	}
	s.log.Error("delete lead", zap.String("lead_id", id), zap.Error(err))
	return domain.Upstream("lead store", err)
}
