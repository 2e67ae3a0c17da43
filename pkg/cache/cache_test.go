package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/models"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/repository"
)

func newTestRepos(t *testing.T) *repository.Repositories {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	repos := repository.New(db)
	require.NoError(t, repos.AutoMigrate())
	return repos
}

func seedTicketWithSnapshot(t *testing.T, repos *repository.Repositories, externalID string, snapshot models.JSONMap) *models.Ticket {
	ctx := context.Background()
	session, err := repos.Session.Create(ctx, "analyse_seed", false)
	require.NoError(t, err)
	scope, err := repos.BoardScope.Create(ctx, session.ID, "trello")
	require.NoError(t, err)

	card := models.Card{ID: externalID, Name: "Card " + externalID}
	ticket, _, err := repos.Ticket.EnsureTicket(ctx, scope.ID, card, "Board", "To Do", "board1", "list1")
	require.NoError(t, err)

	if snapshot != nil {
		ticket.Metadata[models.MetaLastAnalysisConfig] = map[string]interface{}(snapshot)
		require.NoError(t, repos.Ticket.UpdateMetadata(ctx, ticket))
	}
	return ticket
}

func TestValidMatchesEqualConfigSnapshot(t *testing.T) {
	cfg := &models.Config{Data: models.JSONMap{"board_id": "b1", "target_list_id": "l2"}}
	ticket := &models.Ticket{Metadata: models.JSONMap{
		models.MetaLastAnalysisConfig: map[string]interface{}{"board_id": "b1", "target_list_id": "l2"},
	}}
	assert.True(t, Valid(ticket, cfg))
}

func TestValidRejectsDifferingConfigSnapshot(t *testing.T) {
	cfg := &models.Config{Data: models.JSONMap{"board_id": "b1", "target_list_id": "l3"}}
	ticket := &models.Ticket{Metadata: models.JSONMap{
		models.MetaLastAnalysisConfig: map[string]interface{}{"board_id": "b1", "target_list_id": "l2"},
	}}
	assert.False(t, Valid(ticket, cfg))
}

func TestValidRejectsMissingSnapshot(t *testing.T) {
	cfg := &models.Config{Data: models.JSONMap{"board_id": "b1"}}
	ticket := &models.Ticket{Metadata: models.JSONMap{}}
	assert.False(t, Valid(ticket, cfg))
}

func TestClearSingleTicketRemovesSnapshot(t *testing.T) {
	repos := newTestRepos(t)
	ticket := seedTicketWithSnapshot(t, repos, "A", models.JSONMap{"board_id": "b1"})

	svc := New(repos, nil)
	result, err := svc.Clear(context.Background(), &ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ClearedCount)

	reloaded, err := repos.Ticket.Get(context.Background(), ticket.ID)
	require.NoError(t, err)
	_, ok := reloaded.Metadata[models.MetaLastAnalysisConfig]
	assert.False(t, ok)
}

func TestClearAllTicketsWhenNoIDGiven(t *testing.T) {
	repos := newTestRepos(t)
	seedTicketWithSnapshot(t, repos, "A", models.JSONMap{"board_id": "b1"})
	seedTicketWithSnapshot(t, repos, "B", models.JSONMap{"board_id": "b2"})
	seedTicketWithSnapshot(t, repos, "C", nil)

	svc := New(repos, nil)
	result, err := svc.Clear(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.ClearedCount)
}

func TestStatusReportsCachedAndUncachedCounts(t *testing.T) {
	repos := newTestRepos(t)
	seedTicketWithSnapshot(t, repos, "A", models.JSONMap{"board_id": "b1"})
	seedTicketWithSnapshot(t, repos, "B", nil)

	svc := New(repos, nil)
	status, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, status.TotalTickets)
	assert.Equal(t, 1, status.CachedCount)
	assert.Equal(t, 1, status.UncachedCount)
	assert.Equal(t, 50.0, status.CacheRatio)
}
