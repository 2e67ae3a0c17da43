// Package analyzer implements the LLM adapter of spec.md §4.2: prompt
// assembly grounded on uploaded context documents, single/batch/
// reanalysis calls, response parsing, and fallback from a failed batch
// to per-card calls. Concretely backed by pkg/analyzer/bedrock, the way
// the teacher's pkg/llm package wraps a Converse-API-shaped backend
// behind a narrow interface.
package analyzer

import (
	"context"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/models"
)

// Level is the wire-level criticality verdict, including the
// OUT_OF_CONTEXT sentinel that has no storage Criticality counterpart.
type Level string

const (
	LevelHigh         Level = "HIGH"
	LevelMedium       Level = "MEDIUM"
	LevelLow          Level = "LOW"
	LevelOutOfContext Level = "OUT_OF_CONTEXT"
)

// Result is one card's analysis outcome (spec.md §4.2).
type Result struct {
	CardID        string
	CardName      string
	Level         Level
	Justification string
	Success       bool
	Error         string
}

// LLMBackend is the opaque single text-in/text-out LLM capability spec.md
// §6.2 treats as an external collaborator.
type LLMBackend interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ContextSource is the narrow slice of grounding.Store the analyzer
// needs, kept as an interface so this package doesn't depend on
// pkg/grounding's storage concerns.
type ContextSource interface {
	ReadContext(ctx context.Context) (content string, ok bool, err error)
	SimilarChunks(ctx context.Context, query string, limit int) ([]string, error)
}

const (
	defaultMaxContextChars  = 4000
	defaultSimilarityK      = 3
	defaultEmptyStoreLevel  = LevelLow
	emptyStoreJustification = "default LOW — upload a description document"
)

// Analyzer assembles prompts, calls the LLM backend, and parses its
// response into a Result.
type Analyzer struct {
	backend LLMBackend
	context ContextSource
	log     hclog.Logger

	// MaxContextChars bounds the APPLICATION CONTEXT block fed into the
	// prompt (spec.md SUPPLEMENTED FEATURES #3, grounded on
	// analysis_service.py's app_context[:4000] truncation).
	MaxContextChars int
	// SimilarityK is the top-k used for the SIMILAR CARDS HISTORY section.
	SimilarityK int
}

// New builds an Analyzer.
func New(backend LLMBackend, context ContextSource, log hclog.Logger) *Analyzer {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Analyzer{
		backend:         backend,
		context:         context,
		log:             log.Named("analyzer"),
		MaxContextChars: defaultMaxContextChars,
		SimilarityK:     defaultSimilarityK,
	}
}

func (a *Analyzer) maxContextChars() int {
	if a.MaxContextChars > 0 {
		return a.MaxContextChars
	}
	return defaultMaxContextChars
}

func (a *Analyzer) similarityK() int {
	if a.SimilarityK > 0 {
		return a.SimilarityK
	}
	return defaultSimilarityK
}

// AnalyzeOne evaluates a single card (spec.md §4.2).
func (a *Analyzer) AnalyzeOne(ctx context.Context, card models.CardPayload) Result {
	appContext, hasContext, err := a.context.ReadContext(ctx)
	if err != nil {
		a.log.Warn("failed to read grounding context", "card_id", card.ID, "error", err)
	}
	if !hasContext {
		a.log.Info("grounding store empty, defaulting to LOW", "card_id", card.ID)
		return Result{
			CardID:        card.ID,
			CardName:      card.Name,
			Level:         defaultEmptyStoreLevel,
			Justification: emptyStoreJustification,
			Success:       true,
		}
	}

	similar, err := a.context.SimilarChunks(ctx, card.Name+" "+card.Desc, a.similarityK())
	if err != nil {
		a.log.Warn("similarity search failed, continuing without it", "card_id", card.ID, "error", err)
	}

	prompt := buildSinglePrompt(card, truncate(appContext, a.maxContextChars()), similar)
	raw, err := a.backend.Complete(ctx, singleCardSystemPrompt, prompt)
	if err != nil {
		a.log.Warn("llm call failed", "card_id", card.ID, "error", err)
		return Result{CardID: card.ID, CardName: card.Name, Level: LevelLow, Success: false, Error: err.Error()}
	}

	level, justification := parseSingleResponse(raw)
	return Result{
		CardID:        card.ID,
		CardName:      card.Name,
		Level:         level,
		Justification: justification,
		Success:       true,
	}
}

// AnalyzeBatch evaluates cards in one LLM call, falling back to
// AnalyzeOne per card missing from (or unparsable in) the batch response
// (spec.md §4.1 step 3, §4.2, §8 S4).
func (a *Analyzer) AnalyzeBatch(ctx context.Context, cards []models.CardPayload) []Result {
	if len(cards) == 0 {
		return nil
	}

	appContext, hasContext, err := a.context.ReadContext(ctx)
	if err != nil {
		a.log.Warn("failed to read grounding context for batch", "error", err)
	}
	if !hasContext {
		results := make([]Result, len(cards))
		for i, card := range cards {
			results[i] = Result{
				CardID:        card.ID,
				CardName:      card.Name,
				Level:         defaultEmptyStoreLevel,
				Justification: emptyStoreJustification,
				Success:       true,
			}
		}
		return results
	}

	var similar []string
	if len(cards) > 0 {
		if s, err := a.context.SimilarChunks(ctx, cards[0].Name, a.similarityK()); err == nil {
			similar = s
		}
	}

	prompt := buildBatchPrompt(cards, truncate(appContext, a.maxContextChars()), similar)
	raw, err := a.backend.Complete(ctx, batchSystemPrompt, prompt)
	if err != nil {
		a.log.Warn("batch llm call failed, falling back to per-card analysis", "error", err)
		return a.analyzeAllIndividually(ctx, cards)
	}

	items, err := parseBatchResponse(raw)
	if err != nil {
		a.log.Warn("batch response unparsable, falling back to per-card analysis", "error", err)
		return a.analyzeAllIndividually(ctx, cards)
	}

	byID := make(map[string]batchItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	results := make([]Result, len(cards))
	var missing []int
	for i, card := range cards {
		item, ok := byID[card.ID]
		if !ok {
			missing = append(missing, i)
			continue
		}
		results[i] = Result{
			CardID:        card.ID,
			CardName:      card.Name,
			Level:         item.Level,
			Justification: item.Justification,
			Success:       true,
		}
	}

	for _, i := range missing {
		a.log.Info("card missing from batch response, falling back to single analysis", "card_id", cards[i].ID)
		results[i] = a.AnalyzeOne(ctx, cards[i])
	}

	return results
}

func (a *Analyzer) analyzeAllIndividually(ctx context.Context, cards []models.CardPayload) []Result {
	results := make([]Result, len(cards))
	for i, card := range cards {
		results[i] = a.AnalyzeOne(ctx, card)
	}
	return results
}

// Reanalyze re-evaluates a card with a stricter prompt that references
// the prior verdict (spec.md §4.6).
func (a *Analyzer) Reanalyze(ctx context.Context, card models.CardPayload, previous *models.AnalysisHistory) Result {
	appContext, hasContext, err := a.context.ReadContext(ctx)
	if err != nil {
		a.log.Warn("failed to read grounding context for reanalysis", "card_id", card.ID, "error", err)
	}
	if !hasContext {
		return Result{
			CardID:        card.ID,
			CardName:      card.Name,
			Level:         defaultEmptyStoreLevel,
			Justification: emptyStoreJustification,
			Success:       true,
		}
	}

	similar, _ := a.context.SimilarChunks(ctx, card.Name+" "+card.Desc, a.similarityK())

	previousLevel := ""
	if previous != nil {
		previousLevel = strings.ToUpper(string(previous.Criticality))
	}

	prompt := buildReanalysisPrompt(card, truncate(appContext, a.maxContextChars()), similar, previousLevel)
	raw, err := a.backend.Complete(ctx, reanalysisSystemPrompt, prompt)
	if err != nil {
		a.log.Warn("reanalysis llm call failed", "card_id", card.ID, "error", err)
		return Result{CardID: card.ID, CardName: card.Name, Level: LevelLow, Success: false, Error: err.Error()}
	}

	level, justification := parseSingleResponse(raw)
	return Result{
		CardID:        card.ID,
		CardName:      card.Name,
		Level:         level,
		Justification: justification,
		Success:       true,
	}
}

func truncate(s string, max int) string {
	if len([]rune(s)) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
