package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/dukex/pvm/pkg/cmd"
	"github.com/dukex/pvm/pkg/docstore"
	"github.com/dukex/pvm/pkg/eventbus"
	"github.com/dukex/pvm/pkg/persistence"
)

// environment holds the connections shared by the commands.
type environment struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	documents   docstore.Store
	bus         *eventbus.Bus
}

func openEnvironment(ctx context.Context, command *cli.Command, logger *slog.Logger) (*environment, error) {
	env := &environment{logger: logger}

	store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return nil, fmt.Errorf("failed to open persistence: %w", err)
	}

	env.persistence = store

	documents, err := cmd.NewDocumentStore(ctx, logger, command.String("mongo-url"), command.String("mongo-database"))
	if err != nil {
		env.Close(ctx)

		return nil, fmt.Errorf("failed to open document store: %w", err)
	}

	env.documents = documents

	bus, err := openBus(command, logger)
	if err != nil {
		env.Close(ctx)

		return nil, err
	}

	env.bus = bus

	return env, nil
}

func openBus(command *cli.Command, logger *slog.Logger) (*eventbus.Bus, error) {
	topics := eventbus.Topics{
		Commands:      command.String("process-topic"),
		Notifications: command.String("notify-topic"),
	}

	bus, err := cmd.NewEventBus(command.String("event-bus"), topics, command.Bool("tracing"), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open event bus: %w", err)
	}

	return bus, nil
}

func (e *environment) Close(ctx context.Context) {
	if e.bus != nil {
		if err := e.bus.Close(); err != nil {
			e.logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}

	if e.documents != nil {
		if err := e.documents.Close(ctx); err != nil {
			e.logger.ErrorContext(ctx, "Failed to close document store", "error", err)
		}
	}

	if e.persistence != nil {
		if err := e.persistence.Close(ctx); err != nil {
			e.logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}
}
