// Command kanban-agent is the process entrypoint: it delegates straight
// to internal/cmd.Main, which owns flag parsing and subcommand dispatch.
package main

import (
	"os"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/internal/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args))
}
