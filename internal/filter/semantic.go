// internal/filter/semantic.go
package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/law-makers/harvest/pkg/models"
	"github.com/rs/zerolog/log"
)

const semanticPrompt = `You judge whether a product satisfies a buyer's criterion.

Product fields:
%s

Criterion: %q

Answer with a single JSON object: {"verdict": true|false, "confidence": 0.0-1.0}`

type semanticVerdict struct {
	Verdict    bool    `json:"verdict"`
	Confidence float64 `json:"confidence"`
}

// semanticStage asks the model, per surviving entity and per semantic
// criterion, whether the entity satisfies it, and keeps entities whose
// passing verdicts clear the confidence threshold. A failed or garbled
// verdict drops the entity: semantic criteria are demands, not hints.
func (p *Pipeline) semanticStage(ctx context.Context, criteria []models.Criterion, entities []models.Entity, survivors []int, report *models.FilterReport) ([]int, error) {
	for _, c := range criteria {
		stage := models.StageResult{
			Stage: fmt.Sprintf("semantic:%s", c.Keyword),
			Input: len(survivors),
		}

		var kept []int
		for _, idx := range survivors {
			if ctx.Err() != nil {
				return survivors, ctx.Err()
			}
			verdict, err := p.askVerdict(ctx, &entities[idx], c.Keyword)
			if err != nil {
				stage.Rejected = append(stage.Rejected,
					fmt.Sprintf("%s: verdict unavailable (%v)", entityLabel(&entities[idx]), err))
				continue
			}
			if verdict.Verdict && verdict.Confidence >= p.SemanticConfidence {
				kept = append(kept, idx)
			} else {
				stage.Rejected = append(stage.Rejected,
					fmt.Sprintf("%s: does not satisfy %q", entityLabel(&entities[idx]), c.Keyword))
			}
		}
		survivors = kept
		stage.Output = len(survivors)
		report.Stages = append(report.Stages, stage)

		log.Debug().
			Str("stage", stage.Stage).
			Int("in", stage.Input).
			Int("out", stage.Output).
			Msg("Semantic filter stage applied")
	}
	return survivors, nil
}

func (p *Pipeline) askVerdict(ctx context.Context, e *models.Entity, keyword string) (*semanticVerdict, error) {
	var fields strings.Builder
	for name, value := range e.Fields {
		fmt.Fprintf(&fields, "  %s: %s\n", name, value)
	}

	raw, err := p.llm.Complete(ctx, fmt.Sprintf(semanticPrompt, fields.String(), keyword), 64)
	if err != nil {
		return nil, err
	}

	// Models wrap JSON in prose often enough that we cut it out.
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON verdict in model reply")
	}

	var v semanticVerdict
	if err := json.Unmarshal([]byte(raw[start:end+1]), &v); err != nil {
		return nil, fmt.Errorf("parsing verdict: %w", err)
	}
	return &v, nil
}
