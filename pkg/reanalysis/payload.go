package reanalysis

import (
	"github.com/mitchellh/mapstructure"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/models"
)

// cardPayloadFromTicket reconstructs the Analyzer-facing payload from a
// Ticket's last-known metadata (spec.md §4.6: "Call Analyzer.reanalyze
// with the Ticket's last-known metadata").
func cardPayloadFromTicket(ticket *models.Ticket) models.CardPayload {
	meta := ticket.Metadata
	payload := models.CardPayload{
		ID:        ticket.ExternalID,
		Name:      stringField(meta, models.MetaName),
		Desc:      stringField(meta, models.MetaDesc),
		Due:       stringField(meta, models.MetaDue),
		URL:       stringField(meta, models.MetaURL),
		BoardID:   stringField(meta, models.MetaBoardID),
		BoardName: stringField(meta, models.MetaBoardName),
		ListName:  stringField(meta, models.MetaListName),
	}

	if raw, ok := meta[models.MetaLabels]; ok {
		var labels []models.Label
		if err := mapstructure.Decode(raw, &labels); err == nil {
			payload.Labels = labels
		}
	}
	if raw, ok := meta[models.MetaMembers]; ok {
		var members []models.Member
		if err := mapstructure.Decode(raw, &members); err == nil {
			payload.Members = members
		}
	}
	return payload
}

func stringField(meta models.JSONMap, key string) string {
	if meta == nil {
		return ""
	}
	if s, ok := meta[key].(string); ok {
		return s
	}
	return ""
}
