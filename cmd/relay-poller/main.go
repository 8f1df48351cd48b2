// Package main provides the relay poller: the process that turns persisted
// schedule state into task executions and drip sends.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	relaycmd "github.com/relaycrm/relay/pkg/cmd"
	"github.com/relaycrm/relay/pkg/drip"
	"github.com/relaycrm/relay/pkg/log"
	"github.com/relaycrm/relay/pkg/otelhelper"
	"github.com/relaycrm/relay/pkg/scheduler"
	"github.com/relaycrm/relay/pkg/workflow"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

func main() {
	command := &cli.Command{
		Name:                  "relay-poller",
		Usage:                 "Start the scheduling poller that drives workflow executions and SMS campaigns",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "poller-id",
				Aliases: []string{"id"},
				Usage:   "Custom poller ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("POLLER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated Kafka broker list",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for daily send counters",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "poll-spec",
				Usage:   "Cron expression for the poll pass",
				Value:   "@every 1m",
				Sources: cli.EnvVars("POLL_SPEC"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces via OTLP",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			pollerID := command.String("poller-id")
			if pollerID == "" {
				pollerID = "poller-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("relay-poller").With("poller_id", pollerID)

			logger.InfoContext(ctx, "Initializing Relay poller")

			var tracer trace.Tracer

			if command.Bool("tracing") {
				var err error

				tracer, err = otelhelper.NewTracer(ctx, "relay-poller")
				if err != nil {
					logger.ErrorContext(ctx, "Failed to initialize tracer, continuing without", "error", err)
				}
			}

			persistence := relaycmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := relaycmd.NewEventBus(command.String("event-bus"), logger, command.String("kafka-brokers"))
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			gw := relaycmd.NewLoggingGateways(logger)
			registry := relaycmd.NewRegistry(logger, gw)
			sendCounters := relaycmd.NewCounters(ctx, logger, command.String("redis-url"))

			orchestrator := workflow.NewOrchestrator(logger, persistence, registry, eventBus, gw.Notifications, tracer)
			campaigns := drip.NewProcessor(logger, persistence, sendCounters, gw.SMS, eventBus)
			poller := scheduler.NewPoller(logger, persistence, orchestrator, campaigns, sendCounters)

			runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return poller.Start(runCtx, command.String("poll-spec"))
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
