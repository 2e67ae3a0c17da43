package cmd

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/spf13/afero"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/internal/config"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/analyzer"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/analyzer/bedrock"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/database"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/grounding"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/reanalysis"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/repository"
)

// ReanalyzeCommand runs a single detached reanalysis from the command
// line (spec.md §4.6), for operators who want to re-evaluate one ticket
// without going through the HTTP edge.
type ReanalyzeCommand struct {
	UI         cli.Ui
	Log        hclog.Logger
	ConfigPath string
}

func (c *ReanalyzeCommand) Help() string {
	return "Usage: kanban-agent reanalyze [-config=path/to/config.hcl] <externalTicketId>"
}

func (c *ReanalyzeCommand) Synopsis() string {
	return "Re-evaluate one tracked ticket"
}

func (c *ReanalyzeCommand) Run(args []string) int {
	flags := newFlagSet("reanalyze")
	configPath := flags.String("config", c.ConfigPath, "path to config.hcl")
	if err := flags.Parse(args); err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	rest := flags.Args()
	if len(rest) != 1 {
		c.UI.Error("expected exactly one argument: externalTicketId")
		return 1
	}
	externalID := rest[0]

	cfg, err := config.Load(*configPath)
	if err != nil {
		c.UI.Error(fmt.Sprintf("load config: %v", err))
		return 1
	}

	db, err := database.Connect(database.Config{DSN: cfg.Database.URL}, c.Log)
	if err != nil {
		c.UI.Error(fmt.Sprintf("connect database: %v", err))
		return 1
	}
	repos := repository.New(db)

	embeddingStore, err := buildEmbeddingStore(cfg, c.Log)
	if err != nil {
		c.UI.Error(fmt.Sprintf("build embedding store: %v", err))
		return 1
	}
	fs := afero.NewOsFs()
	if cfg.Upload.Folder != "" {
		fs = afero.NewBasePathFs(fs, cfg.Upload.Folder)
	}
	store := grounding.New(fs, repos.DocumentChunk, embeddingStore, c.Log)

	bedrockClient, err := bedrock.New(context.Background(), bedrock.Config{Model: cfg.LLM.Model, Logger: c.Log})
	if err != nil {
		c.UI.Error(fmt.Sprintf("build bedrock client: %v", err))
		return 1
	}
	az := analyzer.New(bedrockClient, store, c.Log)
	reanalysisSvc := reanalysis.New(az, repos, c.Log)

	result, err := reanalysisSvc.Reanalyze(context.Background(), externalID)
	if err != nil {
		c.UI.Error(fmt.Sprintf("reanalyze failed: %v", err))
		return 1
	}
	if result.Error != "" {
		c.UI.Error(result.Error)
		return 1
	}
	c.UI.Info(fmt.Sprintf("ticket %s -> %s (session %d)", result.ExternalID, result.Criticality, result.SessionID))
	return 0
}
