// Package postgres provides the PostgreSQL persistence implementation for the
// workflow engine. The execution claim is a conditional UPDATE, so concurrent
// pollers sharing one database coordinate without any external locking.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver
	"github.com/relaycrm/relay/pkg/persistence"
	"github.com/relaycrm/relay/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db            *sql.DB
	logger        *slog.Logger
	templates     *TemplateRepository
	instances     *InstanceRepository
	executions    *ExecutionRepository
	notifications *HITLRepository
	campaigns     *CampaignRepository
}

// NewPersistence connects to PostgreSQL and runs pending migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:            database,
		logger:        logger,
		templates:     NewTemplateRepository(database, logger),
		instances:     NewInstanceRepository(database, logger),
		executions:    NewExecutionRepository(database, logger),
		notifications: NewHITLRepository(database, logger),
		campaigns:     NewCampaignRepository(database, logger),
	}, nil
}

func (p *Persistence) Templates() persistence.TemplateRepository { return p.templates }

func (p *Persistence) Instances() persistence.InstanceRepository { return p.instances }

func (p *Persistence) Executions() persistence.ExecutionRepository { return p.executions }

func (p *Persistence) Notifications() persistence.HITLRepository { return p.notifications }

func (p *Persistence) Campaigns() persistence.CampaignRepository { return p.campaigns }

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}
