package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/dukex/pvm/pkg/events"
	"github.com/dukex/pvm/pkg/log"
	"github.com/dukex/pvm/pkg/models"
)

var ErrMissingArgument = errors.New("missing argument")

func NewStartCommand() *cli.Command {
	return &cli.Command{
		Name:      "start",
		Usage:     "Queue the start of an execution",
		ArgsUsage: "PROCESS",
		Action: func(ctx context.Context, command *cli.Command) error {
			name := command.Args().First()
			if name == "" {
				return fmt.Errorf("%w: PROCESS", ErrMissingArgument)
			}

			return publish(ctx, command, events.Start{Command: events.StartCommand, Process: name})
		},
	}
}

func NewStepCommand() *cli.Command {
	return &cli.Command{
		Name:      "step",
		Usage:     "Queue a step on a pointer",
		ArgsUsage: "POINTER_ID",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "Identifier of the acting user",
			},
			&cli.StringFlag{
				Name:  "input",
				Usage: `Forms as JSON, e.g. [{"ref":"start_form","data":{"data":"yes"}}]`,
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			pointerID := command.Args().First()
			if pointerID == "" {
				return fmt.Errorf("%w: POINTER_ID", ErrMissingArgument)
			}

			var input []models.FormInput

			if raw := command.String("input"); raw != "" {
				if err := json.Unmarshal([]byte(raw), &input); err != nil {
					return fmt.Errorf("failed to parse input: %w", err)
				}
			}

			return publish(ctx, command, events.Step{
				Command:        events.StepCommand,
				PointerID:      pointerID,
				UserIdentifier: command.String("user"),
				Input:          input,
			})
		},
	}
}

func NewCancelCommand() *cli.Command {
	return &cli.Command{
		Name:      "cancel",
		Usage:     "Queue the cancellation of an execution",
		ArgsUsage: "EXECUTION_ID",
		Action: func(ctx context.Context, command *cli.Command) error {
			executionID := command.Args().First()
			if executionID == "" {
				return fmt.Errorf("%w: EXECUTION_ID", ErrMissingArgument)
			}

			return publish(ctx, command, events.Cancel{Command: events.CancelCommand, ExecutionID: executionID})
		},
	}
}

func publish(ctx context.Context, command *cli.Command, message events.Command) error {
	logger := log.WithModule("pvm")

	bus, err := openBus(command, logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := bus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	if err := bus.PublishCommand(ctx, message); err != nil {
		return err
	}

	logger.InfoContext(ctx, "Command queued", "command", message.GetCommand())

	return nil
}
