package main

import (
	"context"
	"log/slog"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/pvm/pkg/events"
	"github.com/dukex/pvm/pkg/handler"
	"github.com/dukex/pvm/pkg/log"
)

func main() {
	err := newApp().Run(context.Background(), os.Args)
	if err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  "pvm",
		Usage:                 "Run and operate business processes",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			NewRunCommand(),
			NewValidateCommand(),
			NewListCommand(),
			NewStartCommand(),
			NewStepCommand(),
			NewCancelCommand(),
			NewLoginCommand(),
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "processes-path",
				Usage:   "Directory holding the process definitions",
				Value:   "./processes",
				Sources: cli.EnvVars("PROCESSES_PATH"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Persistence URL, redis:// or postgres://",
				Value:   "redis://localhost:6379/0",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for execution locks when the database is not redis",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "mongo-url",
				Usage:   "MongoDB URL for the execution history (in memory when empty)",
				Sources: cli.EnvVars("MONGO_URL"),
			},
			&cli.StringFlag{
				Name:    "mongo-database",
				Usage:   "MongoDB database name",
				Value:   "pvm",
				Sources: cli.EnvVars("MONGO_DATABASE"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "process-topic",
				Usage:   "Topic carrying the commands",
				Value:   events.CommandsTopic,
				Sources: cli.EnvVars("PROCESS_TOPIC"),
			},
			&cli.StringFlag{
				Name:    "notify-topic",
				Usage:   "Topic carrying the notifications",
				Value:   events.NotificationsTopic,
				Sources: cli.EnvVars("NOTIFY_TOPIC"),
			},
			&cli.StringFlag{
				Name:    "notify-backend",
				Usage:   "Routing key of notifications whose auth-filter names none",
				Value:   handler.DefaultNotifyBackend,
				Sources: cli.EnvVars("NOTIFY_BACKEND"),
			},
			&cli.StringFlag{
				Name:    "plugins-path",
				Usage:   "Path to the directory containing auth provider plugins",
				Value:   "./plugins",
				Sources: cli.EnvVars("PLUGINS_PATH"),
			},
			&cli.StringSliceFlag{
				Name:    "auth-backends",
				Usage:   "Identity backends to enable (anyone, impersonate, ldap)",
				Value:   []string{"anyone"},
				Sources: cli.EnvVars("AUTH_BACKENDS"),
			},
			&cli.StringFlag{
				Name:    "impersonate-password",
				Usage:   "Shared password of the impersonate identity backend",
				Sources: cli.EnvVars("IMPERSONATE_PASSWORD"),
			},
			&cli.StringFlag{
				Name:    "ldap-url",
				Usage:   "LDAP server URL",
				Sources: cli.EnvVars("LDAP_URL"),
			},
			&cli.StringFlag{
				Name:    "ldap-base",
				Usage:   "LDAP search base",
				Sources: cli.EnvVars("LDAP_BASE"),
			},
			&cli.StringFlag{
				Name:    "ldap-domain",
				Usage:   "Domain prefixed to usernames when binding",
				Sources: cli.EnvVars("LDAP_DOMAIN"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"), command.String("log-format"))

			return ctx, nil
		},
	}
}
