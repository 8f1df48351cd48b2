// Package cmd provides shared initialization for the relay binaries.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/relaycrm/relay/pkg/persistence"
	"github.com/relaycrm/relay/pkg/persistence/memory"
	"github.com/relaycrm/relay/pkg/persistence/postgres"
)

// NewPersistence builds the persistence layer from the database URL scheme.
// postgres:// and postgresql:// select the shared database; memory:// selects
// the in-process store, which is single-node only.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		persist, err := postgres.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(err)
		}

		return persist
	case strings.HasPrefix(databaseURL, "memory://"):
		logger.WarnContext(ctx, "Using in-memory persistence; state is lost on restart")

		return memory.NewPersistence()
	default:
		panic("unsupported database URL: " + databaseURL)
	}
}
