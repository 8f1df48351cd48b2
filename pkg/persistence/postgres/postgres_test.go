package postgres_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/relaycrm/relay/pkg/models"
	"github.com/relaycrm/relay/pkg/persistence"
	"github.com/relaycrm/relay/pkg/persistence/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *tcpostgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	// Drop tables in reverse dependency order (children first, parents last)
	for _, table := range []string{
		"sms_sequence_messages", "sms_enrollments", "sms_recipients", "sms_campaigns",
		"hitl_notifications", "task_executions", "workflow_instances", "workflow_templates",
		"schema_migrations",
	} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgres.Persistence, context.Context) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = tcpostgres.Run(ctx,
			"postgres:16-alpine",
			tcpostgres.WithDatabase("relay_test"),
			tcpostgres.WithUsername("relay"),
			tcpostgres.WithPassword("relay"),
			tcpostgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgres.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx
}

func seedInstance(ctx context.Context, t *testing.T, p *postgres.Persistence, tenantID string) *models.WorkflowInstance {
	t.Helper()

	instance := &models.WorkflowInstance{
		ID:         uuid.New().String(),
		TemplateID: uuid.New().String(),
		TenantID:   tenantID,
		Subject:    models.Subject{LeadID: "lead-1"},
		Status:     models.InstanceStatusActive,
	}
	require.NoError(t, p.Instances().Save(ctx, instance))

	return instance
}

func TestTemplateLifecycle(t *testing.T) {
	p, ctx := setupTestDB(t)

	template := &models.WorkflowTemplate{
		TenantID: "tenant-1",
		Name:     "Listing onboarding",
		Industry: models.IndustryRealEstate,
		Tasks: []models.TaskDefinition{
			{ID: "t1", Name: "Intro call", Type: models.TaskTypeVoiceCall, DisplayOrder: 1, DelayValue: 5, DelayUnit: models.DelayMinutes},
			{ID: "t2", Name: "Send CMA", Type: models.TaskTypeCMAGeneration, DisplayOrder: 2, DelayValue: 1, DelayUnit: models.DelayDays, IsHITL: true},
		},
	}

	require.NoError(t, p.Templates().Save(ctx, template))
	require.NotEmpty(t, template.ID)

	got, err := p.Templates().GetByID(ctx, template.ID)
	require.NoError(t, err)
	assert.Equal(t, "Listing onboarding", got.Name)
	require.Len(t, got.Tasks, 2)
	assert.True(t, got.Tasks[1].IsHITL)

	count, err := p.Templates().CountByTenant(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	list, err := p.Templates().ListByTenant(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, p.Templates().Delete(ctx, template.ID))

	// Soft deleted: invisible to listings but still loadable by ID
	deleted, err := p.Templates().GetByID(ctx, template.ID)
	require.NoError(t, err)
	assert.NotNil(t, deleted.DeletedAt)

	count, err = p.Templates().CountByTenant(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	err = p.Templates().Delete(ctx, template.ID)
	assert.ErrorIs(t, err, persistence.ErrTemplateNotFound)
}

func TestInstanceSaveAndFilter(t *testing.T) {
	p, ctx := setupTestDB(t)

	active := seedInstance(ctx, t, p, "tenant-1")

	done := seedInstance(ctx, t, p, "tenant-1")
	done.Status = models.InstanceStatusCompleted
	done.MergeMetadata(map[string]any{"cmaReportId": "cma-9"})
	require.NoError(t, p.Instances().Save(ctx, done))

	got, err := p.Instances().GetByID(ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStatusCompleted, got.Status)
	assert.Equal(t, "cma-9", got.Metadata["cmaReportId"])
	assert.Equal(t, "lead-1", got.Subject.LeadID)
	assert.Empty(t, got.Subject.DealID)

	status := models.InstanceStatusActive
	list, err := p.Instances().ListByTenant(ctx, "tenant-1", &status)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, active.ID, list[0].ID)

	count, err := p.Instances().CountByTenant(ctx, "tenant-1", models.InstanceStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestExecutionDueAndClaim(t *testing.T) {
	p, ctx := setupTestDB(t)

	instance := seedInstance(ctx, t, p, "tenant-1")
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	executions := []*models.TaskExecution{
		{ID: "e1", InstanceID: instance.ID, TaskID: "t1", DisplayOrder: 1, Status: models.ExecutionStatusScheduled, ScheduledFor: &past},
		{ID: "e2", InstanceID: instance.ID, TaskID: "t2", DisplayOrder: 2, Status: models.ExecutionStatusScheduled, ScheduledFor: &future},
		{ID: "e3", InstanceID: instance.ID, TaskID: "t3", DisplayOrder: 3, Status: models.ExecutionStatusPending},
	}
	require.NoError(t, p.Executions().SaveAll(ctx, executions))

	due, err := p.Executions().Due(ctx, now, 100)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "e1", due[0].ID)

	ordered, err := p.Executions().ListByInstance(ctx, instance.ID)
	require.NoError(t, err)
	require.Len(t, ordered, 3)
	assert.Equal(t, "e1", ordered[0].ID)
	assert.Equal(t, "e3", ordered[2].ID)

	claimed, err := p.Executions().Claim(ctx, "e1", now)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = p.Executions().Claim(ctx, "e1", now)
	require.NoError(t, err)
	assert.False(t, claimed, "second claim must lose")

	claimed, err = p.Executions().Claim(ctx, "e2", now)
	require.NoError(t, err)
	assert.False(t, claimed, "an execution must not be claimable before its scheduled time")

	_, err = p.Executions().Claim(ctx, "missing", now)
	assert.ErrorIs(t, err, persistence.ErrExecutionNotFound)

	got, err := p.Executions().GetByID(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, got.Status)
	require.NotNil(t, got.StartedAt)
}

func TestConcurrentClaimSingleWinner(t *testing.T) {
	p, ctx := setupTestDB(t)

	instance := seedInstance(ctx, t, p, "tenant-1")
	now := time.Now().UTC()
	past := now.Add(-time.Minute)

	execution := &models.TaskExecution{
		ID:           "e1",
		InstanceID:   instance.ID,
		TaskID:       "t1",
		Status:       models.ExecutionStatusScheduled,
		ScheduledFor: &past,
	}
	require.NoError(t, p.Executions().Save(ctx, execution))

	const workers = 8

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
			assert.NoError(t, err)

			if claimed {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, wins, "exactly one concurrent claim must win")
}

func TestNotificationLifecycle(t *testing.T) {
	p, ctx := setupTestDB(t)

	instance := seedInstance(ctx, t, p, "tenant-1")
	execution := &models.TaskExecution{ID: "e1", InstanceID: instance.ID, TaskID: "t1", Status: models.ExecutionStatusAwaitingHITL}
	require.NoError(t, p.Executions().Save(ctx, execution))

	notification := &models.HITLNotification{
		ID:          uuid.New().String(),
		ExecutionID: "e1",
		TenantID:    "tenant-1",
		Message:     "Approve CMA send",
		Urgency:     models.HITLUrgencyHigh,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, p.Notifications().Save(ctx, notification))

	open, err := p.Notifications().OpenByExecution(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, notification.ID, open.ID)

	count, err := p.Executions().CountAwaitingHITLByTenant(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	resolvedAt := time.Now().UTC()

	claimed, err := p.Notifications().ClaimResolution(ctx, notification.ID, models.HITLApproved, "user-1", "ok", resolvedAt)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = p.Notifications().ClaimResolution(ctx, notification.ID, models.HITLRejected, "user-2", "", resolvedAt)
	require.NoError(t, err)
	assert.False(t, claimed, "second resolution must lose")

	_, err = p.Notifications().OpenByExecution(ctx, "e1")
	assert.ErrorIs(t, err, persistence.ErrNotificationNotFound)

	got, err := p.Notifications().GetByID(ctx, notification.ID)
	require.NoError(t, err)
	assert.Equal(t, models.HITLApproved, got.Resolution)
	assert.Equal(t, "user-1", got.ApproverID)

	claimed, err = p.Executions().ClaimGated(ctx, "e1", resolvedAt)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = p.Executions().ClaimGated(ctx, "e1", resolvedAt)
	require.NoError(t, err)
	assert.False(t, claimed, "second gated claim must lose")

	_, err = p.Notifications().ClaimResolution(ctx, "missing", models.HITLApproved, "user-1", "", resolvedAt)
	assert.ErrorIs(t, err, persistence.ErrNotificationNotFound)
}

func TestCampaignAndEnrollments(t *testing.T) {
	p, ctx := setupTestDB(t)

	campaign := &models.SmsCampaign{
		ID:         uuid.New().String(),
		TenantID:   "tenant-1",
		Name:       "Cold outreach",
		IsSequence: true,
		DailyLimit: 100,
		Status:     models.CampaignStatusActive,
		Steps: []models.SmsSequenceStep{
			{Ordinal: 0, Body: "Hi {{name}}!"},
			{Ordinal: 1, Body: "Following up", DelayDays: 2, SkipIfReplied: true},
		},
	}
	require.NoError(t, p.Campaigns().SaveCampaign(ctx, campaign))

	paused := &models.SmsCampaign{ID: uuid.New().String(), TenantID: "tenant-1", Name: "Paused", IsSequence: true, Status: models.CampaignStatusPaused}
	require.NoError(t, p.Campaigns().SaveCampaign(ctx, paused))

	activeList, err := p.Campaigns().ActiveSequenceCampaigns(ctx)
	require.NoError(t, err)
	require.Len(t, activeList, 1)
	assert.Equal(t, campaign.ID, activeList[0].ID)
	require.Len(t, activeList[0].Steps, 2)
	assert.True(t, activeList[0].Steps[1].SkipIfReplied)

	recipient := &models.Recipient{ID: "r1", FirstName: "Dana", Phone: "+15550001111"}
	require.NoError(t, p.Campaigns().SaveRecipient(ctx, recipient))

	gotRecipient, err := p.Campaigns().RecipientByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Dana", gotRecipient.FirstName)
	assert.Empty(t, gotRecipient.BusinessName)

	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	enrollment := &models.SmsEnrollment{
		ID:          uuid.New().String(),
		CampaignID:  campaign.ID,
		RecipientID: "r1",
		Status:      models.EnrollmentStatusActive,
		NextSendAt:  &past,
	}
	require.NoError(t, p.Campaigns().SaveEnrollment(ctx, enrollment))

	due, err := p.Campaigns().DueEnrollments(ctx, campaign.ID, now, 50)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, enrollment.ID, due[0].ID)

	message := &models.SmsSequenceMessage{
		ID:               uuid.New().String(),
		EnrollmentID:     enrollment.ID,
		CampaignID:       campaign.ID,
		Step:             0,
		Body:             "Hi Dana!",
		Status:           models.MessageStatusSent,
		GatewayMessageID: "gw-1",
		SentAt:           now,
	}
	require.NoError(t, p.Campaigns().SaveMessage(ctx, message))

	messages, err := p.Campaigns().MessagesByEnrollment(ctx, enrollment.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "gw-1", messages[0].GatewayMessageID)
}
