package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/dukex/pvm/pkg/process"
)

var (
	ErrInvalidProcess = errors.New("invalid process definitions")
	ErrNoFiles        = errors.New("no files given")
)

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Check process definition files, printing file:line for every problem",
		ArgsUsage: "FILE...",
		Action: func(_ context.Context, command *cli.Command) error {
			files := command.Args().Slice()
			if len(files) == 0 {
				return ErrNoFiles
			}

			out := command.Root().Writer
			problems := 0

			for _, file := range files {
				for _, problem := range process.ValidateFile(file) {
					_, _ = fmt.Fprintln(out, problem.String())
					problems++
				}
			}

			if problems > 0 {
				return fmt.Errorf("%w: %d problems", ErrInvalidProcess, problems)
			}

			_, _ = fmt.Fprintf(out, "%d files OK\n", len(files))

			return nil
		},
	}
}
