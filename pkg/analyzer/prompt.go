package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/models"
)

const singleCardSystemPrompt = `You are a criticality triage assistant for an operations team's Kanban board.
Given application context and one card, decide whether the card is HIGH, MEDIUM, or LOW business/operational criticality, or OUT_OF_CONTEXT if the card has nothing to do with the supplied application context.
Respond with the level in uppercase somewhere in your reply, followed by a short justification.`

const batchSystemPrompt = `You are a criticality triage assistant for an operations team's Kanban board.
Given application context and a list of cards, decide the criticality of each: HIGH, MEDIUM, LOW, or OUT_OF_CONTEXT.
Respond with ONLY a JSON array of objects: [{"id": "<card id>", "criticality_level": "HIGH|MEDIUM|LOW|OUT_OF_CONTEXT", "justification": "<short reason>"}, ...]. No other text.`

const reanalysisSystemPrompt = `You are a criticality triage assistant performing a re-evaluation of a previously analyzed card.
Respond with the level (HIGH, MEDIUM, LOW, or OUT_OF_CONTEXT) in uppercase and a SHORT justification that explicitly references whether the new verdict agrees with or revises the prior level.`

func buildSinglePrompt(card models.CardPayload, appContext string, similar []string) string {
	var b strings.Builder
	writeApplicationContext(&b, appContext)
	writeSimilarCardsHistory(&b, similar)
	b.WriteString("CARD:\n")
	b.WriteString(formatCard(card))
	return b.String()
}

func buildBatchPrompt(cards []models.CardPayload, appContext string, similar []string) string {
	var b strings.Builder
	writeApplicationContext(&b, appContext)
	writeSimilarCardsHistory(&b, similar)
	b.WriteString(fmt.Sprintf("CARDS (%d):\n", len(cards)))
	for _, card := range cards {
		b.WriteString(formatCard(card))
		b.WriteString("\n")
	}
	return b.String()
}

func buildReanalysisPrompt(card models.CardPayload, appContext string, similar []string, previousLevel string) string {
	var b strings.Builder
	writeApplicationContext(&b, appContext)
	writeSimilarCardsHistory(&b, similar)
	if previousLevel != "" {
		b.WriteString(fmt.Sprintf("PREVIOUS VERDICT: %s\n\n", previousLevel))
	}
	b.WriteString("CARD:\n")
	b.WriteString(formatCard(card))
	return b.String()
}

func writeApplicationContext(b *strings.Builder, appContext string) {
	b.WriteString("APPLICATION CONTEXT:\n")
	b.WriteString(appContext)
	b.WriteString("\n\n")
}

func writeSimilarCardsHistory(b *strings.Builder, similar []string) {
	if len(similar) == 0 {
		return
	}
	b.WriteString("SIMILAR CARDS HISTORY:\n")
	for _, s := range similar {
		b.WriteString("- ")
		b.WriteString(s)
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func formatCard(card models.CardPayload) string {
	raw, err := json.Marshal(card)
	if err != nil {
		return fmt.Sprintf("id=%s name=%s desc=%s", card.ID, card.Name, card.Desc)
	}
	return string(raw)
}
