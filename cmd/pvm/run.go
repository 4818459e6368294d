package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/pvm/pkg/cmd"
	"github.com/dukex/pvm/pkg/handler"
	"github.com/dukex/pvm/pkg/log"
	"github.com/dukex/pvm/pkg/metrics"
	"github.com/dukex/pvm/pkg/otelhelper"
)

func NewRunCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Handle commands from the queue until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "handler-id",
				Aliases: []string{"id"},
				Usage:   "Custom handler ID (auto-generated if not provided)",
				Sources: cli.EnvVars("HANDLER_ID"),
			},
			&cli.StringFlag{
				Name:    "metrics-addr",
				Usage:   "Address of the prometheus metrics endpoint, disabled when empty",
				Value:   ":9090",
				Sources: cli.EnvVars("METRICS_ADDR"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.DurationFlag{
				Name:    "lock-ttl",
				Usage:   "How long an execution lock is held at most",
				Value:   handler.DefaultLockTTL,
				Sources: cli.EnvVars("LOCK_TTL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			handlerID := command.String("handler-id")
			if handlerID == "" {
				handlerID = "handler-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("pvm").With("handler_id", handlerID)

			logger.InfoContext(ctx, "Initializing process virtual machine")

			var tracer trace.Tracer = otelhelper.NewNoopTracer("pvm")

			if command.Bool("tracing") {
				otelTracer, shutdown, err := otelhelper.NewTracer(ctx, "pvm")
				if err != nil {
					return fmt.Errorf("failed to initialize tracer: %w", err)
				}

				defer func() {
					err := shutdown(context.WithoutCancel(ctx))
					if err != nil {
						logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
					}
				}()

				tracer = otelTracer
			}

			env, err := openEnvironment(ctx, command, logger)
			if err != nil {
				return err
			}
			defer env.Close(context.WithoutCancel(ctx))

			locker, err := cmd.NewLocker(ctx, logger, command.String("redis-url"), env.persistence)
			if err != nil {
				return err
			}

			hierarchies, err := cmd.NewHierarchyRegistry(logger, env.persistence.Users(), command.String("plugins-path"))
			if err != nil {
				return err
			}

			h := handler.New(handler.Config{
				ProcessesPath: command.String("processes-path"),
				Persistence:   env.persistence,
				Documents:     env.documents,
				Locker:        locker,
				LockTTL:       command.Duration("lock-ttl"),
				Hierarchies:   hierarchies,
				Publisher:     env.bus,
				NotifyBackend: command.String("notify-backend"),
				Metrics:       metrics.New(prometheus.DefaultRegisterer),
				Tracer:        tracer,
			}, logger)

			if addr := command.String("metrics-addr"); addr != "" {
				go func() {
					err := metrics.Serve(ctx, addr, prometheus.DefaultGatherer, logger)
					if err != nil {
						logger.ErrorContext(ctx, "Metrics server stopped", "error", err)
					}
				}()
			}

			err = env.bus.Subscribe(ctx, h.Handle)
			if err != nil {
				return fmt.Errorf("failed to subscribe to commands: %w", err)
			}

			logger.InfoContext(ctx, "Waiting for commands", "topic", command.String("process-topic"))

			<-ctx.Done()

			logger.InfoContext(ctx, "Shutting down")

			return nil
		},
	}
}
