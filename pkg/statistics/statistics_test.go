package statistics

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

func seedTicket(t *testing.T, repos *repository.Repositories, externalID, boardName string, reanalyse bool, levels ...models.Criticality) {
	ctx := context.Background()
	session, err := repos.Session.Create(ctx, "analyse_seed_"+externalID, reanalyse)
	require.NoError(t, err)
	scope, err := repos.BoardScope.Create(ctx, session.ID, "trello")
	require.NoError(t, err)

	card := models.Card{ID: externalID, Name: "Card " + externalID}
	ticket, _, err := repos.Ticket.EnsureTicket(ctx, scope.ID, card, boardName, "To Do", "board1", "list1")
	require.NoError(t, err)

	for _, level := range levels {
		_, err := repos.History.Append(ctx, ticket.ID, session.ID, level, "seed")
		require.NoError(t, err)
	}
}

func TestComputeTotalsAndDistribution(t *testing.T) {
	repos := newTestRepos(t)
	seedTicket(t, repos, "A", "Board One", false, models.CriticalityHigh, models.CriticalityMedium)
	seedTicket(t, repos, "B", "Board One", false, models.CriticalityLow)
	seedTicket(t, repos, "C", "Board Two", true, models.CriticalityHigh)

	svc := New(repos)
	summary, err := svc.Compute(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 4, summary.TotalAnalyses)
	assert.EqualValues(t, 3, summary.TotalTickets)
	assert.EqualValues(t, 1, summary.Reanalyses)
	assert.EqualValues(t, 3, summary.InitialAnalyses)
	assert.Equal(t, 25.0, summary.ReanalysisRate)

	assert.EqualValues(t, 2, summary.Distribution.High)
	assert.EqualValues(t, 1, summary.Distribution.Medium)
	assert.EqualValues(t, 1, summary.Distribution.Low)
}

func TestComputePerBoardBreakdown(t *testing.T) {
	repos := newTestRepos(t)
	seedTicket(t, repos, "A", "Board One", false, models.CriticalityHigh)
	seedTicket(t, repos, "B", "Board Two", true, models.CriticalityLow, models.CriticalityMedium)

	svc := New(repos)
	summary, err := svc.Compute(context.Background())
	require.NoError(t, err)

	require.Contains(t, summary.PerBoard, "Board One")
	require.Contains(t, summary.PerBoard, "Board Two")

	one := summary.PerBoard["Board One"]
	assert.EqualValues(t, 1, one.TotalAnalyses)
	assert.EqualValues(t, 1, one.InitialAnalyses)
	assert.EqualValues(t, 0, one.Reanalyses)
	assert.EqualValues(t, 1, one.Distribution.High)

	two := summary.PerBoard["Board Two"]
	assert.EqualValues(t, 2, two.TotalAnalyses)
	assert.EqualValues(t, 0, two.InitialAnalyses)
	assert.EqualValues(t, 2, two.Reanalyses)
	assert.EqualValues(t, 1, two.Distribution.Low)
	assert.EqualValues(t, 1, two.Distribution.Medium)
}

func TestComputeEmptyDatabaseReturnsZeroes(t *testing.T) {
	repos := newTestRepos(t)
	svc := New(repos)

	summary, err := svc.Compute(context.Background())
	require.NoError(t, err)

	assert.Zero(t, summary.TotalAnalyses)
	assert.Zero(t, summary.TotalTickets)
	assert.Zero(t, summary.ReanalysisRate)
	assert.Empty(t, summary.PerBoard)
}
