package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/weftworks/weft/pkg/cmd"
	"github.com/weftworks/weft/pkg/log"
	"github.com/weftworks/weft/pkg/models"
	"github.com/weftworks/weft/pkg/persistence"
	"github.com/weftworks/weft/pkg/services"
	"github.com/weftworks/weft/pkg/triggers"
	"github.com/weftworks/weft/pkg/triggers/webhook"
)

const defaultWebhookPort = 9092

func RunCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Start trigger listeners for every active workflow",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL for persistence",
				Value:   "file://./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.IntFlag{
				Name:    "webhook-port",
				Usage:   "Port for the webhook trigger listener",
				Value:   defaultWebhookPort,
				Sources: cli.EnvVars("WEBHOOK_PORT"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry tracing",
				Sources: cli.EnvVars("OTEL_ENABLED"),
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

			logger := log.WithModule("runner")
			logger.Info("Initializing Weft runner")

			reg := cmd.NewRegistry(logger)

			bus := cmd.NewEventBus(command.String("event-bus"), "weft-runner", logger)
			defer func() {
				if err := bus.Close(); err != nil {
					logger.Error("Failed to close event bus", "error", err)
				}
			}()

			store := cmd.NewPersistence(command.String("database-url"))
			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.Error("Failed to close persistence", "error", err)
				}
			}()

			eng := buildEngine(ctx, logger, reg, bus, command.Bool("tracing"))
			workflowService := services.NewWorkflow(store, eng)

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()

			webhookManager := webhook.NewServerManager(command.Int("webhook-port"), logger)
			if err := webhookManager.Start(runCtx); err != nil {
				return fmt.Errorf("failed to start webhook listener: %w", err)
			}

			manager := triggers.NewManager(workflowService, webhookManager, logger)

			started, err := startActiveWorkflows(runCtx, store, manager, logger)
			if err != nil {
				return err
			}

			logger.Info("Runner started", "workflows", started)

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			select {
			case <-sigChan:
				logger.Info("Shutting down")
			case <-runCtx.Done():
			}

			manager.StopAll(ctx)

			return webhookManager.Stop(ctx)
		},
	}
}

// startActiveWorkflows pages through active workflows and starts a trigger
// for each. Workflows whose trigger fails to start are logged and skipped so
// one broken definition cannot keep the runner down.
func startActiveWorkflows(ctx context.Context, store persistence.Persistence, manager *triggers.Manager, logger *slog.Logger) (int, error) {
	status := models.WorkflowStatusActive
	started := 0
	offset := 0

	for {
		page, err := store.ListWorkflows(ctx, persistence.ListWorkflowsOptions{
			Status: &status,
			Limit:  100,
			Offset: offset,
		})
		if err != nil {
			return started, fmt.Errorf("failed to list active workflows: %w", err)
		}

		for _, workflow := range page.Workflows {
			if err := manager.StartWorkflow(ctx, workflow); err != nil {
				logger.Warn("Failed to start workflow trigger", "workflow_id", workflow.ID, "error", err)

				continue
			}

			started++
		}

		if !page.HasNextPage {
			return started, nil
		}

		offset += len(page.Workflows)
	}
}
