// Package filter turns a natural-language instruction into a structured
// query and applies it to extracted entities in fixed stages: parse, derive
// typed attributes, numeric filtering per dimension, then optional semantic
// filtering through the language-model client. Each stage logs its input
// and output counts for the transparency report.
package filter

import (
	"context"
	"fmt"

	"github.com/law-makers/harvest/internal/llm"
	"github.com/law-makers/harvest/pkg/models"
	"github.com/rs/zerolog/log"
)

// Pipeline applies multi-criteria filtering. A nil language-model client is
// valid; semantic criteria then pass through with a warning rather than
// dropping entities unverified.
type Pipeline struct {
	llm llm.Client
	// SemanticConfidence is the minimum verdict confidence for a semantic
	// keep decision (default 0.6).
	SemanticConfidence float64
}

// New creates a filter pipeline. client may be nil.
func New(client llm.Client) *Pipeline {
	return &Pipeline{llm: client, SemanticConfidence: 0.6}
}

// Run filters entities against an instruction and returns survivors plus
// the per-stage report. An instruction with no recognizable criteria is a
// no-op pass-through.
func (p *Pipeline) Run(ctx context.Context, instruction string, entities []models.Entity) ([]models.Entity, *models.FilterReport, error) {
	query := Parse(instruction)
	report := &models.FilterReport{Summary: Summary(query)}

	if len(query.Criteria) == 0 {
		report.Stages = append(report.Stages, models.StageResult{
			Stage:  "parse",
			Input:  len(entities),
			Output: len(entities),
		})
		return entities, report, nil
	}

	// Derive typed attributes once per entity.
	attrs := make([]Attributes, len(entities))
	for i := range entities {
		attrs[i] = Derive(&entities[i])
	}

	survivors := make([]int, len(entities))
	for i := range survivors {
		survivors[i] = i
	}

	// Numeric stages, one per criterion, in parse order. An entity survives
	// a stage only by satisfying its criterion; unresolved dimensions and
	// units exclude it.
	for _, c := range query.NumericCriteria() {
		stage := models.StageResult{
			Stage: fmt.Sprintf("numeric:%s", c.Field),
			Input: len(survivors),
		}
		var kept []int
		for _, idx := range survivors {
			ok, resolved := satisfies(&attrs[idx], c)
			if !resolved {
				stage.Rejected = append(stage.Rejected,
					fmt.Sprintf("%s: %s unresolved", entityLabel(&entities[idx]), c.Field))
				continue
			}
			if !ok {
				stage.Rejected = append(stage.Rejected,
					fmt.Sprintf("%s: %s criterion not met", entityLabel(&entities[idx]), c.Field))
				continue
			}
			kept = append(kept, idx)
		}
		survivors = kept
		stage.Output = len(survivors)
		report.Stages = append(report.Stages, stage)

		log.Debug().
			Str("stage", stage.Stage).
			Int("in", stage.Input).
			Int("out", stage.Output).
			Msg("Numeric filter stage applied")
	}

	// Semantic stage, only when criteria demand it.
	if semantic := query.SemanticCriteria(); len(semantic) > 0 {
		if p.llm == nil {
			for _, c := range semantic {
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("semantic criterion %q not verified: no language model configured", c.Keyword))
			}
		} else {
			var err error
			survivors, err = p.semanticStage(ctx, semantic, entities, survivors, report)
			if err != nil {
				// Model trouble mid-stage degrades like model absence.
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("semantic filtering aborted: %v", err))
			}
		}
	}

	out := make([]models.Entity, 0, len(survivors))
	for _, idx := range survivors {
		out = append(out, entities[idx])
	}
	return out, report, nil
}

func entityLabel(e *models.Entity) string {
	if name := e.Field("name"); name != "" {
		if len(name) > 40 {
			return name[:40]
		}
		return name
	}
	return "entity"
}
