// Package cmd implements the kanban-agent command-line entrypoint:
// a bufio-backed cli.BasicUi, a default-to-"serve" subcommand, and a
// cli.CLI driving a Commands map of cli.CommandFactory values.
package cmd

import (
	"bufio"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// shutdownTimeout bounds how long serve waits for in-flight HTTP
// requests to drain after SIGINT/SIGTERM.
const shutdownTimeout = 10 * time.Second

// Main runs the CLI with the given arguments and returns the exit code.
func Main(args []string) int {
	cliName := args[0]

	log := hclog.New(&hclog.LoggerOptions{
		Name:       cliName,
		Level:      hclog.LevelFromString(os.Getenv("LOG_LEVEL")),
		Output:     os.Stderr,
		JSONFormat: os.Getenv("LOG_FORMAT") == "json",
	})

	// If no subcommand is provided, default to 'serve': a long-running
	// service binary is usually invoked bare by systemd units and
	// container ENTRYPOINTs.
	if len(args) == 1 {
		args = append(args, "serve")
	}

	ui := &cli.BasicUi{
		Reader:      bufio.NewReader(os.Stdin),
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
	}

	initCommands(log, ui)

	c := &cli.CLI{
		Name:     cliName,
		Args:     args[1:],
		Version:  Version,
		Commands: Commands,
	}

	exitCode, err := c.Run()
	if err != nil {
		ui.Error(err.Error())
		return 1
	}

	return exitCode
}
