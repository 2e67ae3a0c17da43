package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/analyzer"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/models"
)

// actionedCard is one analyzed card after the board action phase,
// carrying what persist() needs to write its Ticket/History rows.
type actionedCard struct {
	index  int
	queued queuedCard
	level  analyzer.Level
	result CardResult

	// moved/targetListID mirror result's board-state fields, kept
	// unpacked for persist()'s metadata update.
	moved          bool
	targetListID   string
	targetListName string
}

// actOnCards applies label -> comment -> move to every card whose
// analysis succeeded with a HIGH/MEDIUM/LOW verdict (spec.md §4.1 step
// 4). Cards proceed concurrently; the three steps for one card are
// sequential (spec.md §5). OUT_OF_CONTEXT cards are never acted on
// (SPEC_FULL SUPPLEMENTED FEATURES #1 pins this choice).
func (o *Orchestrator) actOnCards(ctx context.Context, analyzed []analyzedCard, params ListAnalysisParams, targetListID, targetListName string) []actionedCard {
	out := make([]actionedCard, len(analyzed))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var actionErrs *multierror.Error

	for i, a := range analyzed {
		i, a := i, a
		wg.Add(1)
		go func() {
			defer wg.Done()
			out[i] = o.actOnCard(ctx, a, params, targetListID, targetListName)
			if len(out[i].result.Actions) > 0 {
				mu.Lock()
				for step, msg := range out[i].result.Actions {
					actionErrs = multierror.Append(actionErrs, fmt.Errorf("card %s %s: %s", a.queued.card.ID, step, msg))
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if actionErrs != nil {
		o.log.Warn("some per-card board actions failed", "errors", actionErrs.Error())
	}
	return out
}

func (o *Orchestrator) actOnCard(ctx context.Context, a analyzedCard, params ListAnalysisParams, targetListID, targetListName string) actionedCard {
	level := a.result.Level
	actioned := actionedCard{
		index:  a.index,
		queued: a.queued,
		level:  level,
		result: CardResult{
			CardID:        a.queued.card.ID,
			CardName:      a.queued.card.Name,
			Criticality:   string(level),
			Justification: a.result.Justification,
			Success:       a.result.Success,
			Error:         a.result.Error,
		},
	}

	if !a.result.Success {
		return actioned
	}
	if level == analyzer.LevelOutOfContext {
		return actioned
	}

	criticality, ok := analyzerLevelToCriticality(level)
	if !ok {
		actioned.result.Success = false
		actioned.result.Error = fmt.Sprintf("unrecognized criticality level %q", level)
		return actioned
	}
	actioned.result.Criticality = string(criticality)

	actions := map[string]string{}

	if err := o.board.AddLabel(ctx, a.queued.card.ID, params.BoardID, params.Token, criticality, a.queued.card.Labels); err != nil {
		actions["label"] = err.Error()
	}
	if err := o.board.AddComment(ctx, a.queued.card.ID, params.Token, a.result.Justification); err != nil {
		actions["comment"] = err.Error()
	}
	if targetListID != "" {
		if err := o.board.MoveCard(ctx, a.queued.card.ID, targetListID, params.Token); err != nil {
			actions["move"] = err.Error()
		} else {
			actioned.moved = true
			actioned.targetListID = targetListID
			actioned.targetListName = targetListName
			actioned.result.CardMoved = true
			actioned.result.TargetListID = targetListID
			actioned.result.TargetListName = targetListName
		}
	}

	if len(actions) > 0 {
		actioned.result.Actions = actions
	}
	return actioned
}

func analyzerLevelToCriticality(level analyzer.Level) (models.Criticality, bool) {
	return models.ParseCriticality(string(level))
}
