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
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/board"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/database"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/grounding"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/orchestrator"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/repository"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/scheduler"
)

// AnalyzeCommand runs one bulk pass over every Config row (spec.md §9:
// "Fold the agent loop into an in-process scheduler that calls the
// Orchestrator directly"), replacing the original's self-HTTP
// background script with a direct in-process call.
type AnalyzeCommand struct {
	UI         cli.Ui
	Log        hclog.Logger
	ConfigPath string
}

func (c *AnalyzeCommand) Help() string {
	return "Usage: kanban-agent analyze [-config=path/to/config.hcl]\n\n" +
		"Runs one bulk analysis pass over every stored board configuration."
}

func (c *AnalyzeCommand) Synopsis() string {
	return "Run one bulk analysis pass over every configured board"
}

func (c *AnalyzeCommand) Run(args []string) int {
	flags := newFlagSet("analyze")
	configPath := flags.String("config", c.ConfigPath, "path to config.hcl")
	if err := flags.Parse(args); err != nil {
		c.UI.Error(err.Error())
		return 1
	}

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

	boardClient := board.New(board.Config{APIKey: cfg.Board.APIKey, Logger: c.Log})

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

	orch := orchestrator.New(boardClient, az, repos, c.Log)
	orch.BatchSize = cfg.Analysis.BatchSize

	sched := scheduler.New(orch, repos, c.Log)

	result, err := sched.RunAll(context.Background())
	if err != nil {
		c.UI.Error(fmt.Sprintf("bulk run failed: %v", err))
		return 1
	}

	c.UI.Info(fmt.Sprintf("session %s: %d board(s) processed", result.Reference, len(result.BoardRuns)))
	exitCode := 0
	for _, run := range result.BoardRuns {
		if run.Success {
			c.UI.Info(fmt.Sprintf("  board %s/%s: ok", run.BoardID, run.ListID))
			continue
		}
		exitCode = 1
		c.UI.Error(fmt.Sprintf("  config %d (%s/%s): %s", run.ConfigID, run.BoardID, run.ListID, run.Error))
	}
	return exitCode
}
