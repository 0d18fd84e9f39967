package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/weftworks/weft/pkg/cmd"
	"github.com/weftworks/weft/pkg/log"
	"github.com/weftworks/weft/pkg/validation"
)

func ValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Validate a workflow definition",
		ArgsUsage: "[workflow-id]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Path to a workflow definition JSON file",
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL for persistence",
				Value:   "file://./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			problems, err := validateTarget(ctx, command)
			if err != nil {
				return err
			}

			if len(problems) == 0 {
				fmt.Println("workflow is valid")

				return nil
			}

			for _, problem := range problems {
				fmt.Println("-", problem)
			}

			return fmt.Errorf("workflow has %d validation error(s)", len(problems))
		},
	}
}

func validateTarget(ctx context.Context, command *cli.Command) ([]string, error) {
	if path := command.String("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		var definition map[string]any
		if err := json.Unmarshal(data, &definition); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}

		return validation.ValidateDefinition(definition), nil
	}

	id := command.Args().First()
	if id == "" {
		return nil, errors.New("a workflow id or --file is required")
	}

	store := cmd.NewPersistence(command.String("database-url"))
	defer func() { _ = store.Close(ctx) }()

	workflow, err := store.WorkflowByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return validation.ValidateWorkflow(workflow), nil
}
