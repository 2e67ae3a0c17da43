package models

import "github.com/mitchellh/mapstructure"

// Card is one unit of work on the external board (spec.md GLOSSARY),
// as returned by the Board Client's GetListCards operation.
type Card struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Desc    string   `json:"desc"`
	Due     string   `json:"due"`
	URL     string   `json:"url"`
	Labels  []Label  `json:"labels"`
	Members []Member `json:"members"`
}

// Label is a board-level label attached to a card.
type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Member is a board member assigned to a card.
type Member struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
}

// CardPayload is the normalized shape fed to the Analyzer, matching
// spec.md §4.1 step 2: {id, name, desc, due, list_name, board_id,
// board_name, labels, members, url}.
type CardPayload struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Desc      string   `json:"desc"`
	Due       string   `json:"due"`
	ListName  string   `json:"list_name"`
	BoardID   string   `json:"board_id"`
	BoardName string   `json:"board_name"`
	Labels    []Label  `json:"labels"`
	Members   []Member `json:"members"`
	URL       string   `json:"url"`
}

// LabelsFromMetadata decodes the label list a Ticket's Metadata recorded at
// EnsureTicket time (MetaLabels) back into []Label, for callers that only
// have a persisted Ticket and no fresh board fetch to read Card.Labels
// from. Returns nil if the key is absent or malformed rather than erroring,
// since a missing label list is a safe no-op for AddLabel's removal loop.
func LabelsFromMetadata(meta JSONMap) []Label {
	if meta == nil {
		return nil
	}
	raw, ok := meta[MetaLabels]
	if !ok {
		return nil
	}
	var labels []Label
	if err := mapstructure.Decode(raw, &labels); err != nil {
		return nil
	}
	return labels
}

// NewCardPayload builds the Analyzer-facing payload from a fetched Card.
func NewCardPayload(c Card, listName, boardID, boardName string) CardPayload {
	return CardPayload{
		ID:        c.ID,
		Name:      c.Name,
		Desc:      c.Desc,
		Due:       c.Due,
		ListName:  listName,
		BoardID:   boardID,
		BoardName: boardName,
		Labels:    c.Labels,
		Members:   c.Members,
		URL:       c.URL,
	}
}
