package cmd

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/internal/config"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/database"
)

// MigrateCommand applies pending schema migrations and exits, replacing
// the standalone migration binary the database package's migrations
// subtree used to need.
type MigrateCommand struct {
	UI         cli.Ui
	Log        hclog.Logger
	ConfigPath string
}

func (c *MigrateCommand) Help() string {
	return "Usage: kanban-agent migrate [-config=path/to/config.hcl]\n\n" +
		"Applies pending schema migrations against DB_URL and exits."
}

func (c *MigrateCommand) Synopsis() string {
	return "Apply pending schema migrations"
}

func (c *MigrateCommand) Run(args []string) int {
	flags := newFlagSet("migrate")
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

	c.UI.Info("migrations applied")
	return 0
}
