package models

import "time"

// Config is the persisted intent to watch one (board, list) pair, per
// spec.md §3. The recognized keys inside Data are token, boardId,
// boardName, listId, listName, targetListId and targetListName; anything
// else is kept as an opaque extension field.
type Config struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	Data      JSONMap `gorm:"type:text" json:"data"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Config) TableName() string { return "configs" }

// ConfigView is the typed projection of Config.Data used by the
// orchestrator and board client, decoded via mapstructure so unknown keys
// in Data are preserved rather than silently dropped (see
// pkg/models/config_view.go).
type ConfigView struct {
	Token           string `mapstructure:"token"`
	BoardID         string `mapstructure:"boardId"`
	BoardName       string `mapstructure:"boardName"`
	ListID          string `mapstructure:"listId"`
	ListName        string `mapstructure:"listName"`
	TargetListID    string `mapstructure:"targetListId"`
	TargetListName  string `mapstructure:"targetListName"`
}

// HasTargetList reports whether a move-on-success target list is configured.
func (v ConfigView) HasTargetList() bool {
	return v.TargetListID != ""
}
