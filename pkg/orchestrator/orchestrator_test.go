package orchestrator

import (
	"context"
	"errors"
	"sync"
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

type fakeBoard struct {
	mu       sync.Mutex
	cards    []models.Card
	fetchErr error

	labeled  []string
	comments []string
	moved    map[string]string

	labelErr   error
	commentErr error
	moveErr    error
}

func (f *fakeBoard) GetListCards(ctx context.Context, listID, token string) ([]models.Card, error) {
	return f.cards, f.fetchErr
}

func (f *fakeBoard) AddLabel(ctx context.Context, cardID, boardID, token string, criticality models.Criticality, existingLabels []models.Label) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.labelErr != nil {
		return f.labelErr
	}
	f.labeled = append(f.labeled, cardID)
	return nil
}

func (f *fakeBoard) AddComment(ctx context.Context, cardID, token, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commentErr != nil {
		return f.commentErr
	}
	f.comments = append(f.comments, cardID)
	return nil
}

func (f *fakeBoard) MoveCard(ctx context.Context, cardID, targetListID, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.moveErr != nil {
		return f.moveErr
	}
	if f.moved == nil {
		f.moved = map[string]string{}
	}
	f.moved[cardID] = targetListID
	return nil
}

// fakeAnalyzer maps card IDs to a fixed analyzer.Level, used to drive
// deterministic per-test verdicts without an LLM.
type fakeAnalyzer struct {
	levels map[string]analyzer.Level
}

func (f *fakeAnalyzer) AnalyzeBatch(ctx context.Context, cards []models.CardPayload) []analyzer.Result {
	results := make([]analyzer.Result, len(cards))
	for i, c := range cards {
		level, ok := f.levels[c.ID]
		if !ok {
			level = analyzer.LevelLow
		}
		results[i] = analyzer.Result{CardID: c.ID, CardName: c.Name, Level: level, Justification: "because " + c.ID, Success: true}
	}
	return results
}

func threeCards() []models.Card {
	return []models.Card{
		{ID: "A", Name: "Card A"},
		{ID: "B", Name: "Card B"},
		{ID: "C", Name: "Card C"},
	}
}

func TestAnalyzeListFirstRunInsertsTicketsAndHistory(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)

	session, err := repos.Session.Create(ctx, "analyse_test", false)
	require.NoError(t, err)
	scope, err := repos.BoardScope.Create(ctx, session.ID, "trello")
	require.NoError(t, err)

	board := &fakeBoard{cards: threeCards()}
	az := &fakeAnalyzer{levels: map[string]analyzer.Level{"A": analyzer.LevelHigh, "B": analyzer.LevelMedium, "C": analyzer.LevelLow}}
	o := New(board, az, repos, nil)

	summary, err := o.AnalyzeList(ctx, ListAnalysisParams{
		BoardID: "board1", ListID: "list1", BoardName: "Board", ListName: "To Do",
		Token: "tok", BoardScopeID: &scope.ID,
	})
	require.NoError(t, err)
	require.Empty(t, summary.Error)

	assert.Equal(t, 3, summary.BoardAnalysis.TotalCards)
	assert.Equal(t, 1, summary.BoardAnalysis.High)
	assert.Equal(t, 1, summary.BoardAnalysis.Medium)
	assert.Equal(t, 1, summary.BoardAnalysis.Low)
	assert.Equal(t, 100.0, summary.BoardAnalysis.SuccessRate)
	assert.Len(t, summary.SavedTickets, 3)

	assert.ElementsMatch(t, []string{"A", "B", "C"}, board.labeled)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, board.comments)

	ticket, err := repos.Ticket.GetByExternalID(ctx, "A")
	require.NoError(t, err)
	history, err := repos.History.ForTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.CriticalityHigh, history[0].Criticality)
}

func TestAnalyzeListSecondRunIsCacheHit(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)

	session, _ := repos.Session.Create(ctx, "analyse_test", false)
	scope, _ := repos.BoardScope.Create(ctx, session.ID, "trello")

	board := &fakeBoard{cards: threeCards()}
	az := &fakeAnalyzer{levels: map[string]analyzer.Level{"A": analyzer.LevelHigh, "B": analyzer.LevelMedium, "C": analyzer.LevelLow}}
	o := New(board, az, repos, nil)

	params := ListAnalysisParams{BoardID: "board1", ListID: "list1", BoardName: "Board", ListName: "To Do", Token: "tok", BoardScopeID: &scope.ID}

	_, err := o.AnalyzeList(ctx, params)
	require.NoError(t, err)

	board.labeled, board.comments = nil, nil

	summary, err := o.AnalyzeList(ctx, params)
	require.NoError(t, err)

	for _, r := range summary.CardsAnalysis {
		assert.True(t, r.FromCache, "card %s should be served from cache", r.CardID)
	}
	assert.Empty(t, board.labeled, "cache hits must not re-trigger board actions")
	assert.Empty(t, board.comments)

	ticket, err := repos.Ticket.GetByExternalID(ctx, "A")
	require.NoError(t, err)
	history, err := repos.History.ForTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1, "cache hit must not append a new History row")
}

func TestAnalyzeListConfigChangeInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)

	session, _ := repos.Session.Create(ctx, "analyse_test", false)
	scope, _ := repos.BoardScope.Create(ctx, session.ID, "trello")

	cfg := &models.Config{Data: models.JSONMap{"boardId": "board1", "listId": "list1"}}
	require.NoError(t, repos.Config.Create(ctx, cfg))

	board := &fakeBoard{cards: threeCards()}
	az := &fakeAnalyzer{levels: map[string]analyzer.Level{"A": analyzer.LevelHigh, "B": analyzer.LevelMedium, "C": analyzer.LevelLow}}
	o := New(board, az, repos, nil)

	params := ListAnalysisParams{BoardID: "board1", ListID: "list1", BoardName: "Board", ListName: "To Do", Token: "tok", BoardScopeID: &scope.ID}
	_, err := o.AnalyzeList(ctx, params)
	require.NoError(t, err)

	cfg.Data["targetListId"] = "list2"
	cfg.Data["targetListName"] = "Done"
	require.NoError(t, repos.Config.Update(ctx, cfg))

	summary, err := o.AnalyzeList(ctx, params)
	require.NoError(t, err)

	for _, r := range summary.CardsAnalysis {
		assert.False(t, r.FromCache, "config change must invalidate the cache")
		assert.True(t, r.CardMoved)
		assert.Equal(t, "list2", r.TargetListID)
	}

	ticket, err := repos.Ticket.GetByExternalID(ctx, "A")
	require.NoError(t, err)
	history, err := repos.History.ForTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, "list2", ticket.Metadata[models.MetaListID])
}

func TestAnalyzeListBoardFetchFailureReturnsErrorField(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	board := &fakeBoard{fetchErr: errors.New("trello unavailable")}
	az := &fakeAnalyzer{}
	o := New(board, az, repos, nil)

	summary, err := o.AnalyzeList(ctx, ListAnalysisParams{BoardID: "b", ListID: "l", Token: "t"})
	require.NoError(t, err)
	assert.Equal(t, "trello unavailable", summary.Error)
}

func TestAnalyzeListEmptyListReturnsZeroCounts(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	board := &fakeBoard{cards: nil}
	o := New(board, &fakeAnalyzer{}, repos, nil)

	summary, err := o.AnalyzeList(ctx, ListAnalysisParams{BoardID: "b", ListID: "l", Token: "t"})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.BoardAnalysis.TotalCards)
}

func TestAnalyzeListOutOfContextSkipsBoardActions(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	session, _ := repos.Session.Create(ctx, "analyse_test", false)
	scope, _ := repos.BoardScope.Create(ctx, session.ID, "trello")

	board := &fakeBoard{cards: []models.Card{{ID: "X", Name: "Unrelated card"}}}
	az := &fakeAnalyzer{levels: map[string]analyzer.Level{"X": analyzer.LevelOutOfContext}}
	o := New(board, az, repos, nil)

	summary, err := o.AnalyzeList(ctx, ListAnalysisParams{BoardID: "b", ListID: "l", Token: "t", BoardScopeID: &scope.ID})
	require.NoError(t, err)
	require.Len(t, summary.CardsAnalysis, 1)
	assert.Equal(t, "OUT_OF_CONTEXT", summary.CardsAnalysis[0].Criticality)
	assert.Empty(t, board.labeled)
	assert.Empty(t, board.comments)

	ticket, err := repos.Ticket.GetByExternalID(ctx, "X")
	require.NoError(t, err)
	history, err := repos.History.ForTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.CriticalityLow, history[0].Criticality)
}
