// Package repository implements the data-model invariants of spec.md §3
// and §4.5 on top of gorm, the way the teacher repository's
// pkg/database wraps gorm.DB with an hclog-aware connection.
package repository

import (
	"gorm.io/gorm"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/models"
)

// Repositories bundles one repository per entity in spec.md §3, all
// sharing the same underlying gorm.DB handle (spec.md §5: "Repositories
// hold a shared DB handle").
type Repositories struct {
	DB *gorm.DB

	Config        *ConfigRepo
	Session       *SessionRepo
	BoardScope    *BoardScopeRepo
	Ticket        *TicketRepo
	History       *HistoryRepo
	DocumentChunk *DocumentChunkRepo
}

// New builds a Repositories bundle over db.
func New(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:            db,
		Config:        &ConfigRepo{db: db},
		Session:       &SessionRepo{db: db},
		BoardScope:    &BoardScopeRepo{db: db},
		Ticket:        &TicketRepo{db: db},
		History:       &HistoryRepo{db: db},
		DocumentChunk: &DocumentChunkRepo{db: db},
	}
}

// AutoMigrate creates/updates the schema for all six tables. Production
// deployments should prefer pkg/database's golang-migrate-driven
// migrations; AutoMigrate is primarily used by the sqlite-backed test
// harness, the way hermes's own test/database/client.go "fastboots" a
// scratch database.
func (r *Repositories) AutoMigrate() error {
	return r.DB.AutoMigrate(
		&models.Config{},
		&models.AnalysisSession{},
		&models.BoardScope{},
		&models.Ticket{},
		&models.AnalysisHistory{},
		&models.DocumentChunk{},
	)
}

// Transaction runs fn inside one gorm transaction, handing fn a
// Repositories bundle scoped to that transaction. This backs spec.md
// §4.1 step 6 ("Commit all Ticket/History writes atomically at the
// end") and §4.6 ("Commit atomically").
func (r *Repositories) Transaction(fn func(tx *Repositories) error) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}
