package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"
)

// batchItem is one element of a batch response array (spec.md §4.2).
type batchItem struct {
	ID            string
	Level         Level
	Justification string
}

type wireBatchItem struct {
	ID            string `json:"id"`
	Criticality   string `json:"criticality_level"`
	Justification string `json:"justification"`
}

// parseSingleResponse applies the response parsing contract of spec.md
// §4.2: OUT_OF_CONTEXT anywhere wins outright; otherwise the first of
// HIGH|MEDIUM|LOW found uppercase wins; absent either, default to LOW.
// The justification is the response text itself, trimmed.
func parseSingleResponse(raw string) (Level, string) {
	level, found := parseLevel(raw)
	if !found {
		level = LevelLow
	}
	return level, strings.TrimSpace(raw)
}

func parseLevel(text string) (Level, bool) {
	if strings.Contains(text, string(LevelOutOfContext)) {
		return LevelOutOfContext, true
	}
	for _, candidate := range []Level{LevelHigh, LevelMedium, LevelLow} {
		if idx := strings.Index(text, string(candidate)); idx >= 0 {
			return candidate, true
		}
	}
	return "", false
}

// parseBatchResponse extracts the JSON array of per-card verdicts,
// tolerating fenced/extra text around it by slicing between the first
// '[' and the last ']' (spec.md §4.2).
func parseBatchResponse(raw string) ([]batchItem, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array found in batch response")
	}

	var wire []wireBatchItem
	if err := json.Unmarshal([]byte(raw[start:end+1]), &wire); err != nil {
		return nil, fmt.Errorf("decode batch response array: %w", err)
	}

	items := make([]batchItem, 0, len(wire))
	for _, w := range wire {
		level, ok := resolveWireLevel(w.Criticality)
		if !ok {
			level, _ = parseLevel(strings.ToUpper(w.Justification))
			if level == "" {
				level = LevelLow
			}
		}
		items = append(items, batchItem{ID: w.ID, Level: level, Justification: w.Justification})
	}
	return items, nil
}

func resolveWireLevel(s string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(LevelHigh):
		return LevelHigh, true
	case string(LevelMedium):
		return LevelMedium, true
	case string(LevelLow):
		return LevelLow, true
	case string(LevelOutOfContext):
		return LevelOutOfContext, true
	default:
		return "", false
	}
}
