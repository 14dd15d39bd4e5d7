package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"franchise-crm/internal/core/mq"
	"franchise-crm/internal/domain"
	"franchise-crm/internal/pipeline"
	"franchise-crm/internal/repo/memrepo"
)

type crmFixture struct {
	leads *memrepo.Leads
	tasks *memrepo.Tasks
	comms *memrepo.Communications
	pub   *recordingPublisher

	leadSvc *LeadService
	pipeSvc *PipelineService
	taskSvc *TaskService
}

func newCRMFixture() *crmFixture {
	f := &crmFixture{
		leads: memrepo.NewLeads(),
		tasks: memrepo.NewTasks(),
		comms: memrepo.NewCommunications(),
		pub:   &recordingPublisher{},
	}
	f.leadSvc = NewLeadService(f.leads, f.leads, f.tasks, f.comms, nil)
	f.pipeSvc = NewPipelineService(f.leadSvc, f.leads, NewEventPublisher(f.pub, nil), nil)
	f.taskSvc = NewTaskService(f.tasks, f.leadSvc, nil)
	return f
}

func (f *crmFixture) lead(t *testing.T, name, email string) *domain.LeadView {
	t.Helper()
	v, err := f.leadSvc.Create(context.Background(), admin(), CreateLeadInput{
		FullName: name, Email: email, InterestLevel: 4, InvestmentCapacity: "high", SourceChannel: "referral",
	})
	require.NoError(t, err)
	return v
}

func TestLeadService_Create(t *testing.T) {
	f := newCRMFixture()
	v := f.lead(t, "Carla Ruiz", "Carla@Example.com")

	assert.Equal(t, pipeline.NewContact, v.Stage)
	assert.Equal(t, "carla@example.com", v.Email)
	require.NotNil(t, v.Detail)
	assert.Equal(t, 70, v.Detail.Score)

	h, err := f.leadSvc.History(context.Background(), v.ID)
	require.NoError(t, err)
	require.Len(t, h, 1)
	assert.Equal(t, "Lead created", h[0].Notes)
	assert.Equal(t, "admin-1", *h[0].CreatedBy)
}

func TestLeadService_Create_Validation(t *testing.T) {
	f := newCRMFixture()
	ctx := context.Background()
	cases := []CreateLeadInput{
		{Email: "a@example.com"},
		{FullName: "A", Email: "nope"},
		{FullName: "A", Email: "a@example.com", InterestLevel: 6},
		{FullName: "A", Email: "a@example.com", InvestmentCapacity: "infinite"},
		{FullName: "A", Email: "a@example.com", SourceChannel: "pigeon"},
		{FullName: "A", Email: "a@example.com", PreviousExperience: "lots"},
	}
	for _, in := range cases {
		_, err := f.leadSvc.Create(ctx, admin(), in)
		assert.True(t, domain.IsKind(err, domain.KindValidation), "%+v: %v", in, err)
	}
}

func TestLeadService_UpdateRecomputesScore(t *testing.T) {
	f := newCRMFixture()
	ctx := context.Background()
	v := f.lead(t, "Dan", "dan@example.com")

	require.NoError(t, f.leadSvc.Update(ctx, v.ID, UpdateLeadInput{InterestLevel: ptr(5), InvestmentCapacity: ptr("very_high")}))
	full, err := f.leadSvc.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 90, full.Detail.Score)

	err = f.leadSvc.Update(ctx, v.ID, UpdateLeadInput{FullName: ptr(" ")})
	assert.True(t, domain.IsKind(err, domain.KindValidation))
	err = f.leadSvc.Update(ctx, "missing", UpdateLeadInput{FullName: ptr("x")})
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestLeadService_ListFiltersByStage(t *testing.T) {
	f := newCRMFixture()
	ctx := context.Background()
	a := f.lead(t, "Ana", "ana@example.com")
	f.lead(t, "Ben", "ben@example.com")
	_, err := f.pipeSvc.Move(ctx, admin(), MoveInput{LeadID: a.ID, From: pipeline.NewContact, To: pipeline.Negotiation})
	require.NoError(t, err)

	page, err := f.leadSvc.List(ctx, domain.LeadFilter{Stage: pipeline.Negotiation})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, a.ID, page.Items[0].ID)

	page, err = f.leadSvc.List(ctx, domain.LeadFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.Page)

	_, err = f.leadSvc.List(ctx, domain.LeadFilter{Stage: "won"})
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestLeadService_DeleteCascadesHistory(t *testing.T) {
	f := newCRMFixture()
	ctx := context.Background()
	v := f.lead(t, "Eve", "eve@example.com")

	require.NoError(t, f.leadSvc.Delete(ctx, v.ID))
	assert.Equal(t, 0, f.leads.HistoryLen(v.ID))
	assert.True(t, domain.IsKind(f.leadSvc.Delete(ctx, v.ID), domain.KindNotFound))
}

func TestPipelineService_Move(t *testing.T) {
	f := newCRMFixture()
	ctx := context.Background()
	v := f.lead(t, "Fay", "fay@example.com")

	res, err := f.pipeSvc.Move(ctx, admin(), MoveInput{LeadID: v.ID, From: pipeline.NewContact, To: pipeline.InfoSent})
	require.NoError(t, err)
	assert.True(t, res.Moved)
	assert.Equal(t, "Lead moved to stage Information Sent", res.Entry.Notes)
	assert.Equal(t, 2, f.leads.HistoryLen(v.ID))
	assert.Equal(t, []string{mq.LeadStageChanged}, f.pub.Types())

	cols, err := f.pipeSvc.Board(ctx, domain.LeadFilter{})
	require.NoError(t, err)
	require.Len(t, cols, len(pipeline.Stages()))
	for _, c := range cols {
		if c.Stage.ID == pipeline.InfoSent {
			assert.Equal(t, 1, c.Count)
		} else {
			assert.Equal(t, 0, c.Count, c.Stage.ID)
		}
	}
}

func TestPipelineService_Move_Rejections(t *testing.T) {
	f := newCRMFixture()
	ctx := context.Background()
	v := f.lead(t, "Gus", "gus@example.com")

	_, err := f.pipeSvc.Move(ctx, plainUser("u-1"), MoveInput{LeadID: v.ID, From: pipeline.NewContact, To: pipeline.InfoSent})
	assert.True(t, domain.IsKind(err, domain.KindForbidden))
	assert.Equal(t, pipeline.ErrPermissionDenied.Error(), domain.Message(err))

	noProfile := domain.NewCaller("u-2", "x@example.com", domain.RoleAdmin, false)
	_, err = f.pipeSvc.Move(ctx, noProfile, MoveInput{LeadID: v.ID, From: pipeline.NewContact, To: pipeline.InfoSent})
	assert.True(t, domain.IsKind(err, domain.KindForbidden))

	_, err = f.pipeSvc.Move(ctx, admin(), MoveInput{LeadID: v.ID, From: pipeline.NewContact, To: "won"})
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	_, err = f.pipeSvc.Move(ctx, admin(), MoveInput{LeadID: "missing", From: pipeline.NewContact, To: pipeline.InfoSent})
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	res, err := f.pipeSvc.Move(ctx, admin(), MoveInput{LeadID: v.ID, From: pipeline.InfoSent, To: pipeline.InfoSent})
	require.NoError(t, err)
	assert.False(t, res.Moved)

	f.leads.FailAppend = true
	_, err = f.pipeSvc.Move(ctx, admin(), MoveInput{LeadID: v.ID, From: pipeline.NewContact, To: pipeline.InfoSent})
	assert.True(t, domain.IsKind(err, domain.KindUpstream))

	assert.Equal(t, 1, f.leads.HistoryLen(v.ID), "rejected moves must not touch history")
}

func TestPipelineService_SameTimestampLatestAppendWins(t *testing.T) {
	f := newCRMFixture()
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f.leads.Clock = func() time.Time { return fixed }
	ctx := context.Background()
	v := f.lead(t, "Hal", "hal@example.com")

	for _, to := range []string{pipeline.FirstContact, pipeline.Rejected, pipeline.ProposalSent} {
		_, err := f.pipeSvc.Move(ctx, admin(), MoveInput{LeadID: v.ID, From: pipeline.NewContact, To: to})
		require.NoError(t, err)
	}
	full, err := f.leadSvc.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, pipeline.ProposalSent, full.Stage)
	assert.Len(t, full.History, 4)
	assert.Equal(t, pipeline.ProposalSent, full.History[0].Status, "newest first")
}
