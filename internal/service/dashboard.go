package service

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/phpdave11/gofpdf"

	"franchise-crm/internal/domain"
	"franchise-crm/internal/pipeline"
)

type Count struct {
	Key   string `json:"key"`
	Label string `json:"label,omitempty"`
	Count int    `json:"count"`
}

type DashboardStats struct {
	TotalLeads        int               `json:"totalLeads"`
	NewLeadsThisMonth int               `json:"newLeadsThisMonth"`
	ConversionRate    float64           `json:"conversionRate"` // 百分比
	AverageScore      float64           `json:"averageScore"`
	ByStage           []Count           `json:"byStage"`
	BySource          []Count           `json:"bySource"`
	ByLocation        []Count           `json:"byLocation"`
	RecentLeads       []domain.LeadView `json:"recentLeads"`
	GeneratedAt       time.Time         `json:"generatedAt"`
}

const recentLeads = 5

type DashboardService struct {
	leads *LeadService
	now   func() time.Time
}

func NewDashboardService(leads *LeadService) *DashboardService {
	return &DashboardService{leads: leads, now: time.Now}
}

func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	views, err := s.leads.All(ctx, domain.LeadFilter{})
	if err != nil {
		return nil, err
	}
	return Summarize(views, s.now()), nil
}

// Summarize 纯函数，便于测试
func Summarize(views []domain.LeadView, now time.Time) *DashboardStats {
	st := &DashboardStats{TotalLeads: len(views), GeneratedAt: now, RecentLeads: []domain.LeadView{}}
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	stages := map[string]int{}
	sources := map[string]int{}
	locations := map[string]int{}
	scoreSum, scored := 0, 0
	for _, v := range views {
		if !v.CreatedAt.Before(monthStart) {
			st.NewLeadsThisMonth++
		}
		stages[v.Stage]++
		src := string(domain.SourceOther)
		if v.Detail != nil {
			scoreSum += v.Detail.Score
			scored++
			if v.Detail.SourceChannel != "" {
				src = string(v.Detail.SourceChannel)
			}
		}
		sources[src]++
		loc := v.Location
		if loc == "" {
			loc = "unknown"
		}
		locations[loc]++
	}
	if st.TotalLeads > 0 {
		st.ConversionRate = round1(float64(stages[pipeline.ContractSigned]) * 100 / float64(st.TotalLeads))
	}
	if scored > 0 {
		st.AverageScore = round1(float64(scoreSum) / float64(scored))
	}
	for _, sg := range pipeline.Stages() {
		st.ByStage = append(st.ByStage, Count{Key: sg.ID, Label: sg.Label, Count: stages[sg.ID]})
	}
	st.BySource = sortedCounts(sources)
	st.ByLocation = sortedCounts(locations)

	recent := append([]domain.LeadView(nil), views...)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].CreatedAt.After(recent[j].CreatedAt) })
	if len(recent) > recentLeads {
		recent = recent[:recentLeads]
	}
	st.RecentLeads = append(st.RecentLeads, recent...)
	return st
}

func round1(f float64) float64 { return math.Round(f*10) / 10 }

// sortedCounts 数量降序，相同按 key 升序
func sortedCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func (s *DashboardService) ReportPDF(ctx context.Context) ([]byte, error) {
	st, err := s.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return RenderReportPDF(st)
}

func RenderReportPDF(st *DashboardStats) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Franchise CRM Dashboard", false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Franchise CRM Dashboard")
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, "Generated "+st.GeneratedAt.Format("2006-01-02 15:04"))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	for _, kv := range [][2]string{
		{"Total leads", fmt.Sprint(st.TotalLeads)},
		{"New this month", fmt.Sprint(st.NewLeadsThisMonth)},
		{"Conversion rate", fmt.Sprintf("%.1f%%", st.ConversionRate)},
		{"Average score", fmt.Sprintf("%.1f", st.AverageScore)},
	} {
		pdf.Cell(60, 7, kv[0])
		pdf.Cell(40, 7, kv[1])
		pdf.Ln(7)
	}
	pdf.Ln(4)

	section := func(title string, rows []Count) {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.Cell(0, 8, title)
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 11)
		for _, r := range rows {
			name := r.Label
			if name == "" {
				name = r.Key
			}
			pdf.Cell(90, 6, tr(name))
			pdf.Cell(20, 6, fmt.Sprint(r.Count))
			pdf.Ln(6)
		}
		pdf.Ln(4)
	}
	section("Leads by stage", st.ByStage)
	section("Leads by source", st.BySource)
	section("Leads by location", st.ByLocation)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Most recent leads")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	for _, l := range st.RecentLeads {
		pdf.Cell(60, 6, tr(l.FullName))
		pdf.Cell(70, 6, tr(l.Email))
		pdf.Cell(40, 6, l.CreatedAt.Format("2006-01-02"))
		pdf.Ln(6)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
