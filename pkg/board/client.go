// Package board wraps the external Kanban provider's REST API (spec.md
// §4.3, §6.2) behind a small typed client, the way the teacher's
// pkg/llm clients wrap a third-party API behind a narrow Go interface.
// The provider is Trello-shaped: auth via key+token query parameters,
// idLabels/idList mutation endpoints.
package board

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/cenkalti/backoff/v4"
	"github.com/forPelevin/gomoji"
	"github.com/hashicorp/go-hclog"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/internal/apierror"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/models"
)

// AgentCommentMarker prefixes every comment the agent posts, so that a
// human scanning a card's activity can tell automated commentary apart
// from their own (spec.md §4.3's "comment" step leaves the format
// unspecified; the original posts a fixed prefix via tools/add_comment_tool.py).
const AgentCommentMarker = "[Kanban Agent \U0001F916] "

// Priority label names and their fixed colors (spec.md §4.3, grounded on
// tools/add_etiquette_tool.py's color_mapping).
var priorityLabelNames = []string{"Priority - High", "Priority - Medium", "Priority - Low"}

var priorityColors = map[models.Criticality]string{
	models.CriticalityHigh:   "red",
	models.CriticalityMedium: "orange",
	models.CriticalityLow:    "green",
}

// Client is a typed wrapper over the Trello-shaped board REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	log        hclog.Logger

	// RequestTimeout bounds a single REST call (spec.md §5: "15s per
	// board REST call").
	RequestTimeout time.Duration
}

// Config configures a Client.
type Config struct {
	BaseURL string // default https://api.trello.com/1
	APIKey  string // the application-level BOARD_API_KEY
	Logger  hclog.Logger
}

// New builds a Client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.trello.com/1"
	}
	log := cfg.Logger
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Client{
		httpClient:     &http.Client{Timeout: 15 * time.Second},
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		log:            log.Named("board"),
		RequestTimeout: 15 * time.Second,
	}
}

func (c *Client) authParams(token string) url.Values {
	v := url.Values{}
	v.Set("key", c.apiKey)
	v.Set("token", token)
	return v
}

// do performs one HTTP call, retrying transient failures (5xx, network
// errors) with exponential backoff (spec.md §7: BoardApiError covers
// "non-2xx from the board provider"; transient ones are retried before
// being surfaced).
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body interface{}) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.RequestTimeout)
	defer cancel()

	var result []byte
	op := func() error {
		var bodyReader *strings.Reader
		if body != nil {
			b, err := json.Marshal(body)
			if err != nil {
				return backoff.Permanent(fmt.Errorf("encode request body: %w", err))
			}
			bodyReader = strings.NewReader(string(b))
		} else {
			bodyReader = strings.NewReader("")
		}

		reqURL := c.baseURL + path + "?" + params.Encode()
		req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err // network errors are retried
		}
		defer resp.Body.Close()

		buf := make([]byte, 0, 4096)
		chunk := make([]byte, 4096)
		for {
			n, readErr := resp.Body.Read(chunk)
			if n > 0 {
				buf = append(buf, chunk[:n]...)
			}
			if readErr != nil {
				break
			}
		}

		if resp.StatusCode >= 500 {
			return fmt.Errorf("board provider returned %d: %s", resp.StatusCode, string(buf))
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(apierror.BoardAPI(
				fmt.Sprintf("board provider returned %d: %s", resp.StatusCode, string(buf)), nil))
		}
		result = buf
		return nil
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		if _, ok := apierror.As(err); ok {
			return nil, err
		}
		return nil, apierror.BoardAPI(fmt.Sprintf("board request failed: %v", err), err)
	}
	return result, nil
}

// GetListCards returns every card currently on listId (spec.md §4.3).
func (c *Client) GetListCards(ctx context.Context, listID, token string) ([]models.Card, error) {
	params := c.authParams(token)
	params.Set("fields", "id,name,desc,due,url,labels,idMembers")
	params.Set("labels", "true")
	params.Set("members", "true")
	params.Set("member_fields", "fullName")

	raw, err := c.do(ctx, http.MethodGet, "/lists/"+listID+"/cards", params, nil)
	if err != nil {
		return nil, err
	}

	var wire []wireCard
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, apierror.BoardAPI("decode list cards response", err)
	}

	cards := make([]models.Card, 0, len(wire))
	for _, w := range wire {
		cards = append(cards, w.toCard())
	}
	return cards, nil
}

type wireCard struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Desc    string       `json:"desc"`
	Due     string       `json:"due"`
	URL     string       `json:"url"`
	Labels  []wireLabel  `json:"labels"`
	Members []wireMember `json:"members"`
}

type wireLabel struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type wireMember struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
}

func (w wireCard) toCard() models.Card {
	card := models.Card{ID: w.ID, Name: w.Name, Desc: w.Desc, URL: w.URL, Due: w.Due}
	if w.Due != "" {
		// Normalize to RFC3339 so downstream consumers (the analyzer
		// prompt, persisted metadata) never have to guess the
		// provider's loosely-formatted due date layout.
		if t, err := dateparse.ParseAny(w.Due); err == nil {
			card.Due = t.UTC().Format(time.RFC3339)
		}
	}
	for _, l := range w.Labels {
		card.Labels = append(card.Labels, models.Label{ID: l.ID, Name: l.Name, Color: l.Color})
	}
	for _, m := range w.Members {
		card.Members = append(card.Members, models.Member{ID: m.ID, FullName: m.FullName})
	}
	return card
}

// AddLabel enforces that cardID carries at most one priority label,
// replacing any existing Priority-{High,Medium,Low} label with the one
// matching criticality (spec.md §4.3). existingLabels is the card's
// label set as already returned by GetListCards — spec.md §6.2
// enumerates the exact set of board endpoints this client may call, and
// a dedicated "fetch this card's labels" endpoint isn't among them, so
// the caller threads through what it already fetched rather than this
// client re-querying it. The label is created on the board if it
// doesn't exist yet, with the fixed color for its level.
func (c *Client) AddLabel(ctx context.Context, cardID, boardID, token string, criticality models.Criticality, existingLabels []models.Label) error {
	level := strings.ToUpper(string(criticality))
	labelName := "Priority - " + strings.ToUpper(level[:1]) + strings.ToLower(level[1:])

	for _, l := range existingLabels {
		if isPriorityLabelName(l.Name) {
			if err := c.removeLabel(ctx, cardID, l.ID, token); err != nil {
				return err
			}
		}
	}

	labelID, err := c.getOrCreateLabel(ctx, boardID, token, labelName, priorityColors[criticality])
	if err != nil {
		return err
	}

	params := c.authParams(token)
	params.Set("value", labelID)
	_, err = c.do(ctx, http.MethodPost, "/cards/"+cardID+"/idLabels", params, nil)
	return err
}

func isPriorityLabelName(name string) bool {
	for _, n := range priorityLabelNames {
		if name == n {
			return true
		}
	}
	return false
}

func (c *Client) removeLabel(ctx context.Context, cardID, labelID, token string) error {
	_, err := c.do(ctx, http.MethodDelete, "/cards/"+cardID+"/idLabels/"+labelID, c.authParams(token), nil)
	return err
}

func (c *Client) getOrCreateLabel(ctx context.Context, boardID, token, name, color string) (string, error) {
	raw, err := c.do(ctx, http.MethodGet, "/boards/"+boardID+"/labels", c.authParams(token), nil)
	if err != nil {
		return "", err
	}
	var wire []wireLabel
	if err := json.Unmarshal(raw, &wire); err != nil {
		return "", apierror.BoardAPI("decode board labels response", err)
	}
	for _, w := range wire {
		if w.Name == name {
			return w.ID, nil
		}
	}

	params := c.authParams(token)
	params.Set("name", name)
	params.Set("color", color)
	params.Set("idBoard", boardID)
	raw, err = c.do(ctx, http.MethodPost, "/labels", params, nil)
	if err != nil {
		return "", err
	}
	var created wireLabel
	if err := json.Unmarshal(raw, &created); err != nil {
		return "", apierror.BoardAPI("decode create label response", err)
	}
	return created.ID, nil
}

// AddComment posts a justification comment on cardID, prefixed with
// AgentCommentMarker. gomoji checks the marker for an emoji; a marker
// without one is sent with its trailing space trimmed. The comment text
// itself is sent as given, without truncation.
func (c *Client) AddComment(ctx context.Context, cardID, token, text string) error {
	marker := AgentCommentMarker
	if !gomoji.ContainsEmoji(marker) {
		marker = strings.TrimSuffix(marker, " ")
	}
	params := c.authParams(token)
	params.Set("text", marker+text)
	_, err := c.do(ctx, http.MethodPost, "/cards/"+cardID+"/actions/comments", params, nil)
	return err
}

// MoveCard moves cardID to targetListID (spec.md §4.1 step 5).
func (c *Client) MoveCard(ctx context.Context, cardID, targetListID, token string) error {
	params := c.authParams(token)
	params.Set("value", targetListID)
	_, err := c.do(ctx, http.MethodPut, "/cards/"+cardID+"/idList", params, nil)
	return err
}
