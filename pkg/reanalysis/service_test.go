package reanalysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/analyzer"
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

type fakeAnalyzer struct {
	result analyzer.Result
}

func (f *fakeAnalyzer) Reanalyze(ctx context.Context, card models.CardPayload, previous *models.AnalysisHistory) analyzer.Result {
	return f.result
}

func seedTicketWithHistory(t *testing.T, repos *repository.Repositories, externalID string, levels ...models.Criticality) *models.Ticket {
	ctx := context.Background()
	session, err := repos.Session.Create(ctx, "analyse_seed", false)
	require.NoError(t, err)
	scope, err := repos.BoardScope.Create(ctx, session.ID, "trello")
	require.NoError(t, err)

	card := models.Card{ID: externalID, Name: "Seeded card"}
	ticket, _, err := repos.Ticket.EnsureTicket(ctx, scope.ID, card, "Board", "To Do", "board1", "list1")
	require.NoError(t, err)

	for _, level := range levels {
		_, err := repos.History.Append(ctx, ticket.ID, session.ID, level, "seed")
		require.NoError(t, err)
	}
	return ticket
}

func TestReanalyzeAppendsOneNewHistoryRowWithNewSession(t *testing.T) {
	repos := newTestRepos(t)
	ticket := seedTicketWithHistory(t, repos, "X", models.CriticalityHigh, models.CriticalityMedium)

	az := &fakeAnalyzer{result: analyzer.Result{Level: analyzer.LevelLow, Justification: "mitigated", Success: true}}
	svc := New(az, repos, nil)

	result, err := svc.Reanalyze(context.Background(), "X")
	require.NoError(t, err)
	require.Empty(t, result.Error)
	assert.Equal(t, "LOW", result.Criticality)
	assert.NotZero(t, result.SessionID)

	history, err := repos.History.ForTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, models.CriticalityHigh, history[0].Criticality)
	assert.Equal(t, models.CriticalityMedium, history[1].Criticality)
	assert.Equal(t, models.CriticalityLow, history[2].Criticality)

	session, err := repos.Session.Get(context.Background(), result.SessionID)
	require.NoError(t, err)
	assert.True(t, session.Reanalyse)

	tickets, err := repos.Ticket.GetByExternalID(context.Background(), "X")
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, tickets.ID, "reanalysis must not create a new ticket row")
}

func TestReanalyzeTicketNotFoundReturnsErrorField(t *testing.T) {
	repos := newTestRepos(t)
	svc := New(&fakeAnalyzer{}, repos, nil)

	result, err := svc.Reanalyze(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, "ticket not found", result.Error)
}

func TestReanalyzeOutOfContextPersistsAsLow(t *testing.T) {
	repos := newTestRepos(t)
	seedTicketWithHistory(t, repos, "Y", models.CriticalityHigh)

	az := &fakeAnalyzer{result: analyzer.Result{Level: analyzer.LevelOutOfContext, Justification: "unrelated", Success: true}}
	svc := New(az, repos, nil)

	result, err := svc.Reanalyze(context.Background(), "Y")
	require.NoError(t, err)
	assert.Equal(t, "OUT_OF_CONTEXT", result.Criticality)

	ticket, err := repos.Ticket.GetByExternalID(context.Background(), "Y")
	require.NoError(t, err)
	history, err := repos.History.ForTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.CriticalityLow, history[1].Criticality)
}

func TestReanalyzeLLMFailureDoesNotAppendHistory(t *testing.T) {
	repos := newTestRepos(t)
	ticket := seedTicketWithHistory(t, repos, "Z", models.CriticalityLow)

	az := &fakeAnalyzer{result: analyzer.Result{Level: analyzer.LevelLow, Success: false, Error: "timeout"}}
	svc := New(az, repos, nil)

	result, err := svc.Reanalyze(context.Background(), "Z")
	require.NoError(t, err)
	assert.False(t, result.Success)

	history, err := repos.History.ForTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1, "a failed reanalysis must not append a history row")
}
