package cmd

import (
	"flag"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
)

// Commands maps subcommand names to their factories, the way the
// teacher's internal/cmd wires hermes's indexer/migrate/server
// subcommands into a single cli.CLI.
var Commands map[string]cli.CommandFactory

// initCommands populates Commands. Called once from Main.
func initCommands(log hclog.Logger, ui cli.Ui) {
	Commands = map[string]cli.CommandFactory{
		"serve": func() (cli.Command, error) {
			return &ServeCommand{UI: ui, Log: log.Named("serve")}, nil
		},
		"migrate": func() (cli.Command, error) {
			return &MigrateCommand{UI: ui, Log: log.Named("migrate")}, nil
		},
		"reanalyze": func() (cli.Command, error) {
			return &ReanalyzeCommand{UI: ui, Log: log.Named("reanalyze")}, nil
		},
		"analyze": func() (cli.Command, error) {
			return &AnalyzeCommand{UI: ui, Log: log.Named("analyze")}, nil
		},
	}
}

// newFlagSet builds a flag.FlagSet that reports parse errors through
// ContinueOnError instead of os.Exit, so Run can return a clean exit
// code from inside cli.CLI.
func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}
