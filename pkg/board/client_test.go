package board

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/models"
)

func TestGetListCards(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/lists/list-1/cards", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "tok", r.URL.Query().Get("token"))
		_ = json.NewEncoder(w).Encode([]wireCard{
			{ID: "card-1", Name: "Fix outage", Due: "2026-09-01T00:00:00.000Z"},
		})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "test-key"})
	cards, err := c.GetListCards(context.Background(), "list-1", "tok")
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "card-1", cards[0].ID)
	assert.Equal(t, "2026-09-01T00:00:00Z", cards[0].Due)
}

func TestAddLabelReplacesExistingPriorityLabel(t *testing.T) {
	var deletedLabelID string
	var created bool

	mux := http.NewServeMux()
	mux.HandleFunc("/cards/card-1/idLabels/old-label", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		deletedLabelID = "old-label"
	})
	mux.HandleFunc("/boards/board-1/labels", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]wireLabel{})
	})
	mux.HandleFunc("/labels", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			created = true
			_ = json.NewEncoder(w).Encode(wireLabel{ID: "new-label", Name: "Priority - High", Color: "red"})
		}
	})
	mux.HandleFunc("/cards/card-1/idLabels", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "new-label", r.URL.Query().Get("value"))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "test-key"})
	existingLabels := []models.Label{{ID: "old-label", Name: "Priority - Medium", Color: "orange"}}
	err := c.AddLabel(context.Background(), "card-1", "board-1", "tok", models.CriticalityHigh, existingLabels)
	require.NoError(t, err)
	assert.Equal(t, "old-label", deletedLabelID)
	assert.True(t, created)
}
