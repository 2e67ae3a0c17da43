package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/spf13/afero"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/internal/api"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/internal/config"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/analyzer"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/analyzer/bedrock"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/board"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/cache"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/database"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/grounding"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/orchestrator"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/reanalysis"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/repository"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/statistics"
)

// ServeCommand starts the HTTP edge (spec.md §6.1), wiring every
// collaborator described by SPEC_FULL.md's module layout.
type ServeCommand struct {
	UI         cli.Ui
	Log        hclog.Logger
	ConfigPath string
}

func (c *ServeCommand) Help() string {
	return "Usage: kanban-agent serve [-config=path/to/config.hcl]\n\n" +
		"Starts the HTTP edge that serves the board-analysis API."
}

func (c *ServeCommand) Synopsis() string {
	return "Start the HTTP edge"
}

func (c *ServeCommand) Run(args []string) int {
	flags := newFlagSet("serve")
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

	dbConfig := database.Config{DSN: cfg.Database.URL}
	db, err := database.Connect(dbConfig, c.Log)
	if err != nil {
		c.UI.Error(fmt.Sprintf("connect database: %v", err))
		return 1
	}
	sqlDB, err := db.DB()
	if err != nil {
		c.UI.Error(fmt.Sprintf("unwrap sql.DB: %v", err))
		return 1
	}
	if err := database.RunMigrations(sqlDB, dbConfig.Driver()); err != nil {
		c.UI.Error(fmt.Sprintf("run migrations: %v", err))
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
		if err := fs.MkdirAll(cfg.Upload.Folder, 0o755); err != nil {
			c.UI.Error(fmt.Sprintf("create upload folder: %v", err))
			return 1
		}
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

	reanalysisSvc := reanalysis.New(az, repos, c.Log)
	statsSvc := statistics.New(repos)
	cacheSvc := cache.New(repos, c.Log)

	server := api.NewServer(api.Deps{
		Repos:        repos,
		Orchestrator: orch,
		Analyzer:     az,
		Board:        boardClient,
		Reanalysis:   reanalysisSvc,
		Statistics:   statsSvc,
		Cache:        cacheSvc,
		Grounding:    store,
		Logger:       c.Log,
	})

	httpServer := &http.Server{
		Addr:    cfg.Addr(),
		Handler: server.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		c.Log.Info("serving", "addr", cfg.Addr())
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			c.UI.Error(fmt.Sprintf("server error: %v", err))
			return 1
		}
	case <-sigCh:
		c.Log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			c.UI.Error(fmt.Sprintf("graceful shutdown failed: %v", err))
			return 1
		}
	}
	return 0
}
