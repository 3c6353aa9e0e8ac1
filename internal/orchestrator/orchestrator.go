// Package orchestrator runs the extraction cascade: known strategy first,
// then the detection algorithms in order, recording every attempt in the
// knowledge base and persisting what worked as a recipe. Callers see a
// single result; individual step failures surface only in the trace.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/law-makers/harvest/internal/detect"
	"github.com/law-makers/harvest/internal/fields"
	"github.com/law-makers/harvest/internal/filter"
	"github.com/law-makers/harvest/internal/knowledge"
	"github.com/law-makers/harvest/internal/provider"
	"github.com/law-makers/harvest/internal/recipes"
	"github.com/law-makers/harvest/internal/reqctx"
	"github.com/law-makers/harvest/internal/snapshot"
	"github.com/law-makers/harvest/internal/validate"
	"github.com/law-makers/harvest/pkg/models"
	"github.com/rs/zerolog/log"
)

// Algorithm names as they appear in recipes, rankings and traces.
const (
	AlgoKnownStrategy = "known_strategy"
	AlgoStatistical   = "statistical"
	AlgoSemantic      = "statistical_validated"
	AlgoFrequency     = "frequency"
	AlgoGeometry      = "geometry"
)

// detectionOrder is the default fallback order after a known strategy.
var detectionOrder = []string{AlgoStatistical, AlgoSemantic, AlgoFrequency, AlgoGeometry}

// maxCandidates bounds how many ranked candidates a detection step tries
// before giving up.
const maxCandidates = 3

// Request describes one extraction job
type Request struct {
	URL  string
	Task string
	// Instruction is the optional natural-language filter applied to the
	// extracted entities.
	Instruction string
	// Fields to extract per entity; extractor defaults when empty.
	Fields  []string
	Options models.RequestOptions
}

// Orchestrator wires the cascade components together
type Orchestrator struct {
	provider  provider.Provider
	store     knowledge.Store
	recipes   *recipes.Repo
	validator *validate.Validator
	pipeline  *filter.Pipeline

	detectCfg detect.Config
	fieldsCfg fields.Config
}

// New creates an orchestrator. pipeline may be nil when filtering is not
// wanted; store and repo are required.
func New(p provider.Provider, store knowledge.Store, repo *recipes.Repo, v *validate.Validator, pipeline *filter.Pipeline, detectCfg detect.Config, fieldsCfg fields.Config) *Orchestrator {
	return &Orchestrator{
		provider:  p,
		store:     store,
		recipes:   repo,
		validator: v,
		pipeline:  pipeline,
		detectCfg: detectCfg,
		fieldsCfg: fieldsCfg,
	}
}

// stepOutcome is what one cascade step produced
type stepOutcome struct {
	entities  []models.Entity
	selector  string
	fieldSels map[string]string
	strategy  *models.Strategy // set by the known-strategy step
}

// step is one cascade stage, run against a shared snapshot
type step struct {
	name string
	run  func(ctx context.Context, snap *snapshot.Snapshot, req Request) (*stepOutcome, *StepError)
}

// Extract runs the cascade for one request. The returned result always
// carries the full attempt trace; on exhaustion Entities is empty,
// Exhausted is true and the error wraps ErrExhausted.
func (o *Orchestrator) Extract(ctx context.Context, req Request) (*models.ExtractionResult, error) {
	ctx = reqctx.WithRequestContext(ctx)
	rc := reqctx.GetRequestContext(ctx)

	opts := req.Options
	if opts.URL == "" {
		opts.URL = req.URL
	}

	snap, err := o.provider.Snapshot(ctx, opts)
	if err != nil {
		return nil, reqctx.NewRequestError(ctx, NewStepError(ErrCodeExtraction, "snapshot", "producing page snapshot", err))
	}

	domain := knowledge.Domain(req.URL)
	result := &models.ExtractionResult{}

	for _, st := range o.cascade(ctx, req) {
		started := time.Now()
		outcome, stepErr := st.run(ctx, snap, req)

		rec := models.ExecutionRecord{
			Domain:    domain,
			Task:      req.Task,
			Algorithm: st.name,
			ElapsedMs: time.Since(started).Milliseconds(),
			Timestamp: time.Now().UTC(),
		}
		if stepErr != nil {
			rec.FailureKind = string(stepErr.Code)
			result.Trace = append(result.Trace, rec)
			o.store.RecordExecution(ctx, rec)
			log.Debug().
				Str("request_id", rc.RequestID).
				Str("url", req.URL).
				Str("algorithm", st.name).
				Str("failure", string(stepErr.Code)).
				Msg("Cascade step failed, trying next")
			continue
		}

		rec.Success = true
		rec.Selector = outcome.selector
		rec.Fields = outcome.fieldSels
		rec.Items = len(outcome.entities)
		result.Trace = append(result.Trace, rec)
		o.store.RecordExecution(ctx, rec)

		result.Entities = outcome.entities
		result.StrategyUsed = o.persist(st.name, domain, req, outcome)

		if o.pipeline != nil && req.Instruction != "" {
			filtered, report, err := o.pipeline.Run(ctx, req.Instruction, result.Entities)
			if err != nil {
				return result, NewStepError(ErrCodeFilter, st.name, "filtering extracted entities", err)
			}
			result.Entities = filtered
			result.FilterReport = report
		}

		log.Info().
			Str("request_id", rc.RequestID).
			Str("url", req.URL).
			Str("algorithm", st.name).
			Int("entities", len(result.Entities)).
			Msg("Extraction completed")
		return result, nil
	}

	result.Exhausted = true
	return result, reqctx.NewRequestError(ctx, NewStepError(ErrCodeExhausted, "", "no strategy produced a valid result", ErrExhausted))
}

// cascade assembles the ordered step list for a request: known strategy
// first, then the detection algorithms reordered by knowledge-base history.
func (o *Orchestrator) cascade(ctx context.Context, req Request) []step {
	steps := []step{{name: AlgoKnownStrategy, run: o.runKnownStrategy}}

	order := detectionOrder
	if suggested, err := o.store.SuggestAlgorithms(ctx, req.URL, req.Task); err == nil && len(suggested) > 0 {
		order = mergeOrder(suggested, detectionOrder)
	}

	for _, name := range order {
		switch name {
		case AlgoStatistical:
			steps = append(steps, step{name: name, run: o.runDetection(name, detect.Detect, false)})
		case AlgoSemantic:
			steps = append(steps, step{name: name, run: o.runDetection(name, detect.Detect, true)})
		case AlgoFrequency:
			steps = append(steps, step{name: name, run: o.runDetection(name, detect.DetectFrequency, false)})
		case AlgoGeometry:
			steps = append(steps, step{name: name, run: o.runDetection(name, detect.DetectGeometry, false)})
		}
	}
	return steps
}

// mergeOrder puts suggested algorithms first, then the defaults not yet
// listed. Unknown suggestions are dropped.
func mergeOrder(suggested, defaults []string) []string {
	known := make(map[string]bool, len(defaults))
	for _, name := range defaults {
		known[name] = true
	}

	out := make([]string, 0, len(defaults))
	seen := make(map[string]bool, len(defaults))
	for _, name := range suggested {
		if known[name] && !seen[name] && name != AlgoKnownStrategy {
			out = append(out, name)
			seen[name] = true
		}
	}
	for _, name := range defaults {
		if !seen[name] {
			out = append(out, name)
		}
	}
	return out
}

// runKnownStrategy replays a persisted recipe if one exists and is still
// trusted. A stale or failing recipe demotes itself via Touch and the
// cascade falls through to detection.
func (o *Orchestrator) runKnownStrategy(ctx context.Context, snap *snapshot.Snapshot, req Request) (*stepOutcome, *StepError) {
	domain := knowledge.Domain(req.URL)
	strategy, err := o.recipes.Find(domain, req.Task)
	if err != nil {
		if errors.Is(err, recipes.ErrNotFound) {
			return nil, NewStepError(ErrCodeDetection, AlgoKnownStrategy, "no recipe for domain and task", err)
		}
		return nil, NewStepError(ErrCodePersistence, AlgoKnownStrategy, "loading recipe", err)
	}
	if !adequate(strategy) && !o.rescuedByHistory(ctx, domain, req.Task, strategy.Algorithm) {
		return nil, NewStepError(ErrCodeDetection, AlgoKnownStrategy, "recipe below adequacy thresholds", nil)
	}

	cfg := o.fieldsCfg
	cfg.Fields = req.Fields
	entities, err := fields.ExtractWithSelectors(snap, strategy.Selector, strategy.Fields, cfg)
	if err != nil {
		o.demote(strategy)
		return nil, NewStepError(ErrCodeExtraction, AlgoKnownStrategy, "replaying recipe selectors", err)
	}

	if strategy.Filter != "" {
		entities = recipes.ApplyFilter(strategy.Filter, entities)
	}
	if strategy.Validate != "" {
		ok, err := recipes.Validate(strategy.Validate, entities)
		if err != nil || !ok {
			o.demote(strategy)
			return nil, NewStepError(ErrCodeValidation, AlgoKnownStrategy, "recipe validate expression rejected result", err)
		}
	}

	if err := o.validator.Check(ctx, entities, req.Instruction); err != nil {
		o.demote(strategy)
		return nil, NewStepError(ErrCodeValidation, AlgoKnownStrategy, "replayed result failed validation", err)
	}

	return &stepOutcome{
		entities:  entities,
		selector:  strategy.Selector,
		fieldSels: strategy.Fields,
		strategy:  strategy,
	}, nil
}

// adequate gates recipe reuse on its own track record. New recipes
// (use_count 0) are always tried.
func adequate(s *models.Strategy) bool {
	if s.Metadata.UseCount < 3 {
		return true
	}
	return s.Metadata.SuccessRate >= 0.5
}

// rescuedByHistory gives a recipe whose own EMA dipped a second chance when
// the execution log still shows replays, or the algorithm that minted the
// recipe, as the proven best for this domain and task.
func (o *Orchestrator) rescuedByHistory(ctx context.Context, domain, task, algorithm string) bool {
	best, ok, err := o.store.BestAlgorithm(ctx, domain, task)
	if err != nil || !ok {
		return false
	}
	return best == algorithm || best == AlgoKnownStrategy
}

func (o *Orchestrator) demote(s *models.Strategy) {
	if err := o.recipes.Touch(s, false); err != nil {
		log.Warn().Err(err).Str("task", s.Task).Msg("Recording recipe failure")
	}
}

// detector is the shared shape of the detection algorithms
type detector func(*snapshot.Snapshot, detect.Config) ([]detect.Candidate, error)

// runDetection wraps a detection algorithm into a cascade step. semantic
// enables the language-model validation pass on the result.
func (o *Orchestrator) runDetection(name string, fn detector, semantic bool) func(context.Context, *snapshot.Snapshot, Request) (*stepOutcome, *StepError) {
	return func(ctx context.Context, snap *snapshot.Snapshot, req Request) (*stepOutcome, *StepError) {
		candidates, err := fn(snap, o.detectCfg)
		if err != nil {
			return nil, NewStepError(ErrCodeDetection, name, "detecting containers", err)
		}
		if len(candidates) > maxCandidates {
			candidates = candidates[:maxCandidates]
		}

		cfg := o.fieldsCfg
		cfg.Fields = req.Fields
		instruction := ""
		if semantic {
			instruction = req.Instruction
			if instruction == "" {
				instruction = req.Task
			}
		}

		var lastErr *StepError
		for _, cand := range candidates {
			entities, fieldSels, err := fields.Extract(snap, cand, cfg)
			if err != nil {
				lastErr = NewStepError(ErrCodeExtraction, name, "extracting fields from candidate", err)
				continue
			}
			if err := o.validator.Check(ctx, entities, instruction); err != nil {
				lastErr = NewStepError(ErrCodeValidation, name, "candidate result failed validation", err)
				continue
			}
			return &stepOutcome{
				entities:  entities,
				selector:  cand.Selector,
				fieldSels: fieldSels,
			}, nil
		}
		if lastErr == nil {
			lastErr = NewStepError(ErrCodeDetection, name, "no candidate produced entities", nil)
		}
		return nil, lastErr
	}
}

// persist saves or refreshes the recipe for a successful extraction and
// returns the strategy recorded. Persistence failures never fail the
// extraction; they log and leave StrategyUsed describing the run.
func (o *Orchestrator) persist(algorithm, domain string, req Request, outcome *stepOutcome) *models.Strategy {
	if outcome.strategy != nil {
		if err := o.recipes.Touch(outcome.strategy, true); err != nil {
			log.Warn().Err(err).Str("task", req.Task).Msg("Recording recipe success")
		}
		return outcome.strategy
	}

	strategy := &models.Strategy{
		URLPattern:         domain,
		Task:               req.Task,
		Algorithm:          algorithm,
		FallbackAlgorithms: fallbacksAfter(algorithm),
		Selector:           outcome.selector,
		Fields:             outcome.fieldSels,
		Metadata: models.StrategyMetadata{
			SuccessRate: 1.0,
			UseCount:    1,
			LastUsed:    time.Now().UTC().Truncate(time.Second),
		},
	}
	if err := o.recipes.Save(strategy); err != nil {
		log.Warn().Err(err).
			Str("domain", domain).
			Str("task", req.Task).
			Msg("Persisting recipe")
	}
	return strategy
}

// fallbacksAfter lists the detection algorithms that come after the one
// that succeeded, preserving the default order.
func fallbacksAfter(algorithm string) []string {
	var out []string
	found := false
	for _, name := range detectionOrder {
		if name == algorithm {
			found = true
			continue
		}
		if found {
			out = append(out, name)
		}
	}
	return out
}
