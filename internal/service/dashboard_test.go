package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"franchise-crm/internal/domain"
	"franchise-crm/internal/pipeline"
)

func view(id, stage, location string, created time.Time, score int, src domain.SourceChannel) domain.LeadView {
	return domain.LeadView{
		Lead: domain.Lead{
			ID: id, FullName: "Lead " + id, Email: id + "@example.com", Location: location, CreatedAt: created,
			Detail: &domain.LeadDetail{Score: score, SourceChannel: src},
		},
		Stage: stage,
	}
}

func TestSummarize(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	views := []domain.LeadView{
		view("a", pipeline.ContractSigned, "Madrid", now.AddDate(0, 0, -1), 80, domain.SourceReferral),
		view("b", pipeline.NewContact, "Madrid", now.AddDate(0, -1, 0), 40, domain.SourceWebsite),
		view("c", pipeline.Rejected, "", now.AddDate(0, 0, -14), 30, domain.SourceReferral),
		view("d", pipeline.NewContact, "Bilbao", now.AddDate(0, -2, 0), 50, domain.SourceEvent),
	}
	st := Summarize(views, now)

	assert.Equal(t, 4, st.TotalLeads)
	assert.Equal(t, 2, st.NewLeadsThisMonth)
	assert.Equal(t, 25.0, st.ConversionRate)
	assert.Equal(t, 50.0, st.AverageScore)
	require.Len(t, st.ByStage, len(pipeline.Stages()))
	assert.Equal(t, Count{Key: pipeline.NewContact, Label: "New Contact", Count: 2}, st.ByStage[0])
	assert.Equal(t, Count{Key: string(domain.SourceReferral), Count: 2}, st.BySource[0])
	assert.Equal(t, Count{Key: "Madrid", Count: 2}, st.ByLocation[0])
	assert.Contains(t, st.ByLocation, Count{Key: "unknown", Count: 1})
	require.Len(t, st.RecentLeads, 4)
	assert.Equal(t, "a", st.RecentLeads[0].ID)
}

func TestSummarize_Empty(t *testing.T) {
	st := Summarize(nil, time.Now())
	assert.Zero(t, st.TotalLeads)
	assert.Zero(t, st.ConversionRate)
	assert.NotNil(t, st.RecentLeads)
}

func TestDashboardService_ReportPDF(t *testing.T) {
	f := newCRMFixture()
	f.lead(t, "Mía Núñez", "mia@example.com")
	svc := NewDashboardService(f.leadSvc)

	pdf, err := svc.ReportPDF(context.Background())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
}
