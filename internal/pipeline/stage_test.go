package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"franchise-crm/internal/domain"
)

func entry(id, status string, at time.Time) domain.StatusEntry {
	return domain.StatusEntry{ID: id, LeadID: "l1", Status: status, CreatedAt: at}
}

func TestCatalogueOrder(t *testing.T) {
	ids := make([]string, 0)
	for _, s := range Stages() {
		ids = append(ids, s.ID)
		assert.NotEmpty(t, s.Label)
		assert.Regexp(t, `^#[0-9a-f]{6}$`, s.Color)
	}
	assert.Equal(t, []string{
		NewContact, FirstContact, InfoSent, InterviewScheduled, InterviewCompleted,
		ProposalSent, Negotiation, ContractSigned, Rejected,
	}, ids)
	assert.Equal(t, NewContact, First().ID)
}

func TestCurrentStageIsNewestEntry(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	h := []domain.StatusEntry{
		entry("01", NewContact, t0),
		entry("02", FirstContact, t0.Add(time.Hour)),
		entry("03", Negotiation, t0.Add(2*time.Hour)),
	}
	assert.Equal(t, Negotiation, CurrentStage(h))

	before := append([]domain.StatusEntry(nil), h...)
	h = append(h, entry("04", Rejected, t0.Add(3*time.Hour)))
	assert.Equal(t, Rejected, CurrentStage(h))
	assert.Equal(t, before, h[:3])
}

func TestCurrentStageIgnoresInputOrderAndBreaksTiesByID(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	h := []domain.StatusEntry{
		entry("0190-b", ProposalSent, t0),
		entry("0190-c", Negotiation, t0),
		entry("0190-a", InfoSent, t0),
	}
	assert.Equal(t, Negotiation, CurrentStage(h))

	SortNewestFirst(h)
	assert.Equal(t, "0190-c", h[0].ID)
	assert.Equal(t, "0190-a", h[2].ID)
}

func TestCurrentStageEmptyIsFirst(t *testing.T) {
	assert.Equal(t, NewContact, CurrentStage(nil))
}

func TestNormalizeAndMoveNote(t *testing.T) {
	assert.Equal(t, NewContact, Normalize("archived"))
	assert.Equal(t, Negotiation, Normalize(Negotiation))
	assert.Equal(t, "Lead moved to stage Contract Signed", MoveNote(ContractSigned))
}

func TestGroupPutsUnknownStagesInFirstColumn(t *testing.T) {
	cols := Group([]domain.LeadView{
		{Lead: domain.Lead{ID: "a"}, Stage: Negotiation},
		{Lead: domain.Lead{ID: "b"}, Stage: "legacy_stage"},
		{Lead: domain.Lead{ID: "c"}, Stage: Negotiation},
	})
	require.Len(t, cols, len(Stages()))
	assert.Equal(t, 1, cols[0].Count)
	assert.Equal(t, "b", cols[0].Leads[0].ID)
	assert.Equal(t, NewContact, cols[0].Leads[0].Stage)

	neg := cols[byID[Negotiation]]
	assert.Equal(t, 2, neg.Count)
	assert.Equal(t, 0, cols[byID[Rejected]].Count)
	assert.NotNil(t, cols[byID[Rejected]].Leads)
}
