// Package validate judges whether an extraction attempt produced a usable
// result. Deterministic structural checks always run; an optional semantic
// check delegates a bounded sample to the language-model client under a
// hard timeout and can only confirm or reject, never hang the cascade.
package validate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/law-makers/harvest/internal/filter"
	"github.com/law-makers/harvest/internal/llm"
	"github.com/law-makers/harvest/pkg/models"
	"github.com/rs/zerolog/log"
)

// ErrInvalid marks a result the validator rejected; the orchestrator
// advances to the next fallback algorithm.
var ErrInvalid = errors.New("extraction result failed validation")

// Config tunes validation
type Config struct {
	// MinItems a result must contain (default 3).
	MinItems int
	// RequiredFields that must be present on a majority of entities;
	// defaults to name and price.
	RequiredFields []string
	// SemanticSample bounds how many entities the semantic check sends to
	// the model (default 5).
	SemanticSample int
	// SemanticTimeout is the hard deadline for the semantic check
	// (default 10s).
	SemanticTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MinItems <= 0 {
		c.MinItems = 3
	}
	if len(c.RequiredFields) == 0 {
		c.RequiredFields = []string{"name", "price"}
	}
	if c.SemanticSample <= 0 {
		c.SemanticSample = 5
	}
	if c.SemanticTimeout <= 0 {
		c.SemanticTimeout = 10 * time.Second
	}
	return c
}

// Validator checks extraction results. A nil llm client disables the
// semantic check.
type Validator struct {
	cfg Config
	llm llm.Client
}

// New creates a validator. client may be nil.
func New(cfg Config, client llm.Client) *Validator {
	return &Validator{cfg: cfg.withDefaults(), llm: client}
}

// Check runs the deterministic checks and, when a client and instruction
// are available, the semantic check. Returns ErrInvalid (wrapped with the
// reason) on rejection.
func (v *Validator) Check(ctx context.Context, entities []models.Entity, instruction string) error {
	if err := v.deterministic(entities); err != nil {
		return err
	}

	if v.llm == nil || instruction == "" {
		return nil
	}
	return v.semantic(ctx, entities, instruction)
}

// deterministic applies the structural checks: item count, required field
// coverage, numeric sanity of prices.
func (v *Validator) deterministic(entities []models.Entity) error {
	if len(entities) < v.cfg.MinItems {
		return fmt.Errorf("%w: %d items, need %d", ErrInvalid, len(entities), v.cfg.MinItems)
	}

	for _, field := range v.cfg.RequiredFields {
		present := 0
		for i := range entities {
			if entities[i].Field(field) != "" {
				present++
			}
		}
		// Majority coverage: listings legitimately miss a field on the odd
		// sponsored or out-of-stock card.
		if present*2 < len(entities) {
			return fmt.Errorf("%w: field %q present on %d/%d entities", ErrInvalid, field, present, len(entities))
		}
	}

	for i := range entities {
		raw := entities[i].Field("price")
		if raw == "" {
			continue
		}
		price, err := filter.ParsePrice(raw)
		if err != nil {
			continue // unparseable is a filtering concern, not a sanity one
		}
		if price < 0 {
			return fmt.Errorf("%w: negative price %q", ErrInvalid, raw)
		}
	}

	return nil
}

const semanticCheckPrompt = `A scraper extracted these records for the instruction %q:

%s

Do these records look like what the instruction asks for (right kind of
entity, plausible field values)? Answer YES or NO with one short reason.`

// semantic sends a bounded sample to the model. Timeouts and errors degrade
// to the deterministic verdict, which already passed.
func (v *Validator) semantic(ctx context.Context, entities []models.Entity, instruction string) error {
	sample := entities
	if len(sample) > v.cfg.SemanticSample {
		sample = sample[:v.cfg.SemanticSample]
	}

	var sb strings.Builder
	for i := range sample {
		fmt.Fprintf(&sb, "- ")
		first := true
		for name, value := range sample[i].Fields {
			if !first {
				sb.WriteString("; ")
			}
			fmt.Fprintf(&sb, "%s=%s", name, value)
			first = false
		}
		sb.WriteByte('\n')
	}

	callCtx, cancel := context.WithTimeout(ctx, v.cfg.SemanticTimeout)
	defer cancel()

	reply, err := v.llm.Complete(callCtx, fmt.Sprintf(semanticCheckPrompt, instruction, sb.String()), 128)
	if err != nil {
		// Validator unavailable: fall back to the deterministic verdict.
		log.Warn().Err(err).Msg("Semantic validation unavailable, keeping deterministic verdict")
		return nil
	}

	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(reply)), "NO") {
		return fmt.Errorf("%w: semantic check rejected result", ErrInvalid)
	}
	return nil
}
