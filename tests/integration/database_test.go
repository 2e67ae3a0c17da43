//go:build integration

// Package integration holds build-tagged tests that exercise the
// repository layer against a real Postgres instance instead of
// sqlite, grounded on codeready-toolchain-tarsy's test/database/client.go
// testcontainers-backed harness. Run with `go test -tags=integration
// ./tests/integration/...`; skipped from the default test run.
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/database"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/models"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/repository"
)

func newPostgresDSN(t *testing.T) string {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("kanban_agent_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

// TestRepositoryRoundTripAgainstPostgres runs the same Session ->
// BoardScope -> Ticket -> History write path the orchestrator uses
// (spec.md §4.5) against a real Postgres database migrated with
// pkg/database.RunMigrations, instead of the sqlite backend the unit
// test suite uses everywhere else.
func TestRepositoryRoundTripAgainstPostgres(t *testing.T) {
	dsn := newPostgresDSN(t)

	gormDB, err := database.Connect(database.Config{DSN: dsn}, hclog.NewNullLogger())
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(sqlDB, "postgres"))

	repos := repository.New(gormDB)
	ctx := context.Background()

	session, err := repos.Session.Create(ctx, "analyse_it_test", false)
	require.NoError(t, err)

	scope, err := repos.BoardScope.Create(ctx, session.ID, "trello")
	require.NoError(t, err)

	card := models.Card{ID: "card-1", Name: "Integration card"}
	ticket, created, err := repos.Ticket.EnsureTicket(ctx, scope.ID, card, "Board", "To Do", "board-1", "list-1")
	require.NoError(t, err)
	require.True(t, created)

	history, err := repos.History.Append(ctx, ticket.ID, session.ID, models.CriticalityHigh, "integration test justification")
	require.NoError(t, err)
	require.Equal(t, models.CriticalityHigh, history.Criticality)

	fetched, err := repos.History.ForTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, fetched, 1)
}
