package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()

	template := &models.WorkflowTemplate{
		ID:       uuid.New().String(),
		TenantID: "tenant-1",
		Name:     "Listing onboarding",
		Industry: models.IndustryRealEstate,
		Tasks: []models.TaskDefinition{
			{ID: "t1", Name: "Intro call", Type: models.TaskTypeVoiceCall, DisplayOrder: 1, DelayUnit: models.DelayMinutes},
		},
	}

	require.NoError(t, p.Templates().Save(ctx, template))

	got, err := p.Templates().GetByID(ctx, template.ID)
	require.NoError(t, err)
	assert.Equal(t, template.Name, got.Name)
	assert.Len(t, got.Tasks, 1)

	// Mutating the returned copy must not affect the stored template
	got.Tasks[0].Name = "changed"
	again, err := p.Templates().GetByID(ctx, template.ID)
	require.NoError(t, err)
	assert.Equal(t, "Intro call", again.Tasks[0].Name)

	_, err = p.Templates().GetByID(ctx, "missing")
	assert.ErrorIs(t, err, persistence.ErrTemplateNotFound)
}

func TestExecutionDueQuery(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	due := &models.TaskExecution{ID: "e1", InstanceID: "i1", Status: models.ExecutionStatusScheduled, ScheduledFor: &past}
	notDue := &models.TaskExecution{ID: "e2", InstanceID: "i1", Status: models.ExecutionStatusScheduled, ScheduledFor: &future}
	pending := &models.TaskExecution{ID: "e3", InstanceID: "i1", Status: models.ExecutionStatusPending}

	require.NoError(t, p.Executions().SaveAll(ctx, []*models.TaskExecution{due, notDue, pending}))

	found, err := p.Executions().Due(ctx, now, 100)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "e1", found[0].ID)
}

func TestClaimExactlyOneWinner(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()
	now := time.Now().UTC()
	past := now.Add(-time.Minute)

	execution := &models.TaskExecution{ID: "e1", InstanceID: "i1", Status: models.ExecutionStatusScheduled, ScheduledFor: &past}
	require.NoError(t, p.Executions().Save(ctx, execution))

	const workers = 16

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			claimed, err := p.Executions().Claim(ctx, "e1", now)
			require.NoError(t, err)

			if claimed {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, wins, "exactly one concurrent claim must win")

	got, err := p.Executions().GetByID(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, got.Status)
	require.NotNil(t, got.StartedAt)
}

func TestClaimMissingExecution(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()

	_, err := p.Executions().Claim(ctx, "missing", time.Now())
	assert.ErrorIs(t, err, persistence.ErrExecutionNotFound)
}

func TestClaimRefusesFutureSchedule(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()
	now := time.Now().UTC()
	future := now.Add(time.Hour)

	execution := &models.TaskExecution{ID: "e1", InstanceID: "i1", Status: models.ExecutionStatusScheduled, ScheduledFor: &future}
	require.NoError(t, p.Executions().Save(ctx, execution))

	claimed, err := p.Executions().Claim(ctx, "e1", now)
	require.NoError(t, err)
	assert.False(t, claimed, "an execution must not be claimable before its scheduled time")

	got, err := p.Executions().GetByID(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusScheduled, got.Status)
}

func TestClaimGated(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()
	now := time.Now().UTC()

	execution := &models.TaskExecution{ID: "e1", InstanceID: "i1", Status: models.ExecutionStatusAwaitingHITL}
	require.NoError(t, p.Executions().Save(ctx, execution))

	claimed, err := p.Executions().ClaimGated(ctx, "e1", now)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = p.Executions().ClaimGated(ctx, "e1", now)
	require.NoError(t, err)
	assert.False(t, claimed, "second gated claim must lose")

	got, err := p.Executions().GetByID(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, got.Status)
}

func TestClaimResolutionSingleWinner(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()
	now := time.Now().UTC()

	notification := &models.HITLNotification{ID: "n1", ExecutionID: "e1", TenantID: "tenant-1", CreatedAt: now}
	require.NoError(t, p.Notifications().Save(ctx, notification))

	claimed, err := p.Notifications().ClaimResolution(ctx, "n1", models.HITLApproved, "user-1", "ok", now)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = p.Notifications().ClaimResolution(ctx, "n1", models.HITLRejected, "user-2", "", now)
	require.NoError(t, err)
	assert.False(t, claimed, "second resolution must lose")

	got, err := p.Notifications().GetByID(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, models.HITLApproved, got.Resolution)
	assert.Equal(t, "user-1", got.ApproverID)

	_, err = p.Notifications().ClaimResolution(ctx, "missing", models.HITLApproved, "user-1", "", now)
	assert.ErrorIs(t, err, persistence.ErrNotificationNotFound)
}

func TestOpenNotificationByExecution(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()
	now := time.Now().UTC()

	open := &models.HITLNotification{ID: "n1", ExecutionID: "e1", TenantID: "tenant-1", CreatedAt: now}
	resolved := &models.HITLNotification{ID: "n2", ExecutionID: "e2", TenantID: "tenant-1", CreatedAt: now, ResolvedAt: &now, Resolution: models.HITLApproved}

	require.NoError(t, p.Notifications().Save(ctx, open))
	require.NoError(t, p.Notifications().Save(ctx, resolved))

	got, err := p.Notifications().OpenByExecution(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "n1", got.ID)

	_, err = p.Notifications().OpenByExecution(ctx, "e2")
	assert.ErrorIs(t, err, persistence.ErrNotificationNotFound)

	pendingList, err := p.Notifications().ListOpenByTenant(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Len(t, pendingList, 1)
}

func TestDueEnrollments(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()
	now := time.Now().UTC()
	past := now.Add(-time.Hour)

	campaign := &models.SmsCampaign{ID: "c1", TenantID: "tenant-1", Name: "Drip", IsSequence: true, Status: models.CampaignStatusActive}
	require.NoError(t, p.Campaigns().SaveCampaign(ctx, campaign))

	active := &models.SmsEnrollment{ID: "en1", CampaignID: "c1", RecipientID: "r1", Status: models.EnrollmentStatusActive, NextSendAt: &past}
	done := &models.SmsEnrollment{ID: "en2", CampaignID: "c1", RecipientID: "r2", Status: models.EnrollmentStatusCompleted, NextSendAt: &past}

	require.NoError(t, p.Campaigns().SaveEnrollment(ctx, active))
	require.NoError(t, p.Campaigns().SaveEnrollment(ctx, done))

	due, err := p.Campaigns().DueEnrollments(ctx, "c1", now, 50)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "en1", due[0].ID)
}
