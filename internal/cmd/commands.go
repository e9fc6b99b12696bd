package cmd

import (
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/hashicorp-forge/courier/internal/cmd/base"
	"github.com/hashicorp-forge/courier/internal/cmd/commands/mailer"
	"github.com/hashicorp-forge/courier/internal/cmd/commands/migrate"
	"github.com/hashicorp-forge/courier/internal/cmd/commands/version"
	"github.com/hashicorp-forge/courier/internal/cmd/commands/worker"
)

// Commands is the mapping of all available courier commands.
var Commands map[string]cli.CommandFactory

func initCommands(log hclog.Logger, ui cli.Ui) {
	b := base.NewCommand(log, ui)

	Commands = map[string]cli.CommandFactory{
		"worker": func() (cli.Command, error) {
			return &worker.Command{Command: b}, nil
		},
		"mailer": func() (cli.Command, error) {
			return &mailer.Command{Command: b}, nil
		},
		"migrate": func() (cli.Command, error) {
			return &migrate.Command{Command: b}, nil
		},
		"version": func() (cli.Command, error) {
			return &version.Command{Command: b}, nil
		},
	}
}
