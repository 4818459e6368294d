package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/dukex/pvm/pkg/cmd"
	"github.com/dukex/pvm/pkg/log"
	"github.com/dukex/pvm/pkg/process"
)

func NewListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List the public processes, or the executions with --executions",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "executions",
				Usage: "List executions instead of processes",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			if command.Bool("executions") {
				return listExecutions(ctx, command)
			}

			out := command.Root().Writer

			summaries, err := process.List(command.String("processes-path"))
			if err != nil && len(summaries) == 0 {
				return fmt.Errorf("failed to list processes: %w", err)
			}

			if err != nil {
				log.WithModule("pvm").WarnContext(ctx, "Some processes could not be loaded", "error", err)
			}

			_, _ = fmt.Fprintln(out, "Available Processes:")
			_, _ = fmt.Fprintln(out, "====================")

			for _, summary := range summaries {
				_, _ = fmt.Fprintf(out, "\n%s (%s)\n", summary.ID, summary.Name)
				_, _ = fmt.Fprintf(out, "  Author: %s\n", summary.Author)
				_, _ = fmt.Fprintf(out, "  Versions: %s\n", strings.Join(summary.Versions, ", "))

				if summary.Description != "" {
					_, _ = fmt.Fprintf(out, "  %s\n", summary.Description)
				}
			}

			_, _ = fmt.Fprintf(out, "\nTotal processes: %d\n", len(summaries))

			return nil
		},
	}
}

func listExecutions(ctx context.Context, command *cli.Command) error {
	logger := log.WithModule("pvm")

	store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := store.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	executions, err := store.Executions().List(ctx)
	if err != nil {
		return err
	}

	out := command.Root().Writer

	for _, execution := range executions {
		_, _ = fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%s\n",
			execution.ID,
			execution.ProcessName,
			execution.Status,
			execution.StartedAt.Format("2006-01-02 15:04:05"),
			execution.Name,
		)
	}

	return nil
}
