package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/dukex/pvm/pkg/auth"
	"github.com/dukex/pvm/pkg/auth/backends"
	"github.com/dukex/pvm/pkg/cmd"
	"github.com/dukex/pvm/pkg/log"
)

var ErrNoIdentityBackend = errors.New("no identity backend enabled")

func NewLoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Authenticate against an identity backend and register the user",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Identity backend to use (first enabled when empty)",
			},
			&cli.StringFlag{
				Name:     "username",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "email",
				Usage: "Email to register when the backend does not provide one",
			},
			&cli.StringFlag{
				Name:    "password",
				Sources: cli.EnvVars("PVM_PASSWORD"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("pvm")

			identities, err := cmd.NewIdentityRegistry(logger, cmd.AuthConfig{
				Identities:          command.StringSlice("auth-backends"),
				ImpersonatePassword: command.String("impersonate-password"),
				LDAP: backends.LDAPConfig{
					URL:    command.String("ldap-url"),
					Base:   command.String("ldap-base"),
					Domain: command.String("ldap-domain"),
				},
				PluginsPath: command.String("plugins-path"),
			})
			if err != nil {
				return err
			}

			name := command.String("backend")
			if name == "" {
				enabled := command.StringSlice("auth-backends")
				if len(enabled) == 0 {
					return ErrNoIdentityBackend
				}

				name = enabled[0]
			}

			provider, err := identities.Get(name)
			if err != nil {
				return err
			}

			found, err := provider.Authenticate(ctx, map[string]string{
				"username": command.String("username"),
				"password": command.String("password"),
				"email":    command.String("email"),
			})
			if err != nil {
				return err
			}

			store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			user, err := auth.GetOrCreateUser(ctx, store.Users(), found)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(command.Root().Writer, "%s\t%s\t%s\n", user.Identifier, user.Email, user.Fullname)

			return nil
		},
	}
}
