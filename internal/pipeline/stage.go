package pipeline

import (
	"sort"

	"franchise-crm/internal/domain"
)

type Stage struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Color string `json:"color"`
}

const (
	NewContact         = "new_contact"
	FirstContact       = "first_contact"
	InfoSent           = "info_sent"
	InterviewScheduled = "interview_scheduled"
	InterviewCompleted = "interview_completed"
	ProposalSent       = "proposal_sent"
	Negotiation        = "negotiation"
	ContractSigned     = "contract_signed"
	Rejected           = "rejected"
)

// 顺序即看板列顺序；没有终态，任意两阶段之间都可移动
var catalogue = []Stage{
	{NewContact, "New Contact", "#3b82f6"},
	{FirstContact, "First Contact", "#8b5cf6"},
	{InfoSent, "Information Sent", "#6366f1"},
	{InterviewScheduled, "Interview Scheduled", "#eab308"},
	{InterviewCompleted, "Interview Completed", "#f97316"},
	{ProposalSent, "Proposal Sent", "#ec4899"},
	{Negotiation, "Negotiation", "#ef4444"},
	{ContractSigned, "Contract Signed", "#22c55e"},
	{Rejected, "Rejected", "#6b7280"},
}

var byID = func() map[string]int {
	m := make(map[string]int, len(catalogue))
	for i, s := range catalogue {
		m[s.ID] = i
	}
	return m
}()

func Stages() []Stage { return append([]Stage(nil), catalogue...) }

func First() Stage { return catalogue[0] }

func Lookup(id string) (Stage, bool) {
	i, ok := byID[id]
	if !ok {
		return Stage{}, false
	}
	return catalogue[i], true
}

func Valid(id string) bool { _, ok := byID[id]; return ok }

// Normalize 未知阶段归入第一列
func Normalize(id string) string {
	if Valid(id) {
		return id
	}
	return First().ID
}

func MoveNote(to string) string {
	s, ok := Lookup(to)
	if !ok {
		return "Lead moved to stage " + to
	}
	return "Lead moved to stage " + s.Label
}

// CurrentStage 最新一条历史的状态；created_at 相同时 id（UUIDv7）大的为新；无历史即第一阶段
func CurrentStage(history []domain.StatusEntry) string {
	if len(history) == 0 {
		return First().ID
	}
	latest := history[0]
	for _, e := range history[1:] {
		if newer(e, latest) {
			latest = e
		}
	}
	return latest.Status
}

func newer(a, b domain.StatusEntry) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// SortNewestFirst 原地排序，顺序与 CurrentStage 一致
func SortNewestFirst(history []domain.StatusEntry) {
	sort.SliceStable(history, func(i, j int) bool { return newer(history[i], history[j]) })
}

type Column struct {
	Stage Stage             `json:"stage"`
	Count int               `json:"count"`
	Leads []domain.LeadView `json:"leads"`
}

// Group 按阶段目录顺序分组，每个阶段都有一列（可能为空）
func Group(leads []domain.LeadView) []Column {
	cols := make([]Column, len(catalogue))
	for i, s := range catalogue {
		cols[i] = Column{Stage: s, Leads: []domain.LeadView{}}
	}
	for _, l := range leads {
		l.Stage = Normalize(l.Stage)
		i := byID[l.Stage]
		cols[i].Leads = append(cols[i].Leads, l)
	}
	for i := range cols {
		cols[i].Count = len(cols[i].Leads)
	}
	return cols
}
