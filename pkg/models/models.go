package models

import "time"

// ScraperMode selects how a page snapshot is produced
type ScraperMode string

const (
	ModeAuto   ScraperMode = "auto"
	ModeStatic ScraperMode = "static"
	ModeSPA    ScraperMode = "spa"
)

// RequestOptions contains options for producing a page snapshot
type RequestOptions struct {
	URL         string
	Mode        ScraperMode
	Headers     map[string]string
	SessionName string
	Timeout     time.Duration
	Proxy       string
	WaitSeconds int
}

// Entity is one extracted record, produced from a single container occurrence.
// Fields are keyed by canonical field names ("name", "price", "url", ...).
type Entity struct {
	Fields       map[string]string `json:"fields"`
	Selector     string            `json:"source_selector"`
	Confidence   float64           `json:"confidence"`
	Completeness float64           `json:"completeness"`
}

// Field returns the value of a named field, or "" if absent.
func (e *Entity) Field(name string) string {
	if e.Fields == nil {
		return ""
	}
	return e.Fields[name]
}

// StrategyMetadata tracks how a persisted strategy has performed over time
type StrategyMetadata struct {
	SuccessRate float64   `yaml:"success_rate" json:"success_rate"`
	UseCount    int       `yaml:"use_count" json:"use_count"`
	LastUsed    time.Time `yaml:"last_used" json:"last_used"`
}

// Strategy is a persisted, reusable extraction recipe for a url pattern + task.
// It round-trips exactly through the YAML recipe format.
type Strategy struct {
	URLPattern         string            `yaml:"url_pattern" json:"url_pattern"`
	Task               string            `yaml:"task" json:"task"`
	Algorithm          string            `yaml:"algorithm" json:"algorithm"`
	FallbackAlgorithms []string          `yaml:"fallback_algorithms,omitempty" json:"fallback_algorithms,omitempty"`
	Selector           string            `yaml:"selector" json:"selector"`
	Fields             map[string]string `yaml:"fields,omitempty" json:"fields,omitempty"`
	Filter             string            `yaml:"filter,omitempty" json:"filter,omitempty"`
	Validate           string            `yaml:"validate,omitempty" json:"validate,omitempty"`
	PreActions         []string          `yaml:"pre_actions,omitempty" json:"pre_actions,omitempty"`
	PostActions        []string          `yaml:"post_actions,omitempty" json:"post_actions,omitempty"`
	Metadata           StrategyMetadata  `yaml:"metadata" json:"metadata"`
}

// ExecutionRecord is the append-only log entry written for every extraction
// attempt, successful or not. Immutable once recorded.
type ExecutionRecord struct {
	Domain      string            `json:"domain"`
	Task        string            `json:"task"`
	Algorithm   string            `json:"algorithm"`
	Selector    string            `json:"selector,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
	Success     bool              `json:"success"`
	Items       int               `json:"items_extracted"`
	ElapsedMs   int64             `json:"execution_time_ms"`
	FailureKind string            `json:"failure_kind,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Ranking is the aggregate performance of one algorithm for a (domain, task)
// group, derived on demand from execution records.
type Ranking struct {
	Domain      string  `json:"domain,omitempty"`
	Task        string  `json:"task,omitempty"`
	Algorithm   string  `json:"algorithm"`
	SuccessRate float64 `json:"success_rate"`
	Samples     int     `json:"samples"`
}

// Statistics summarizes the knowledge base as a whole
type Statistics struct {
	TotalStrategies    int       `json:"total_strategies"`
	TotalExecutions    int       `json:"total_executions"`
	OverallSuccessRate float64   `json:"overall_success_rate"`
	TopAlgorithms      []Ranking `json:"top_algorithms"`
}

// Operator is a comparison operator in a filter criterion
type Operator string

const (
	OpLT       Operator = "lt"
	OpLTE      Operator = "lte"
	OpGT       Operator = "gt"
	OpGTE      Operator = "gte"
	OpEQ       Operator = "eq"
	OpContains Operator = "contains"
	// OpBetween is an inclusive range check using Value and UpperValue.
	OpBetween Operator = "between"
)

// Combinator joins multiple criteria in a query
type Combinator string

const (
	CombineAND Combinator = "AND"
	CombineOR  Combinator = "OR"
)

// FieldType classifies a requested field
type FieldType string

const (
	FieldText   FieldType = "text"
	FieldNumber FieldType = "number"
	FieldURL    FieldType = "url"
)

// FieldSpec names one field the caller wants extracted
type FieldSpec struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

// Criterion is one parsed filter constraint
type Criterion struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    float64  `json:"value"`
	// Upper bound for between constraints; unused otherwise.
	UpperValue float64 `json:"upper_value,omitempty"`
	Unit       string  `json:"unit,omitempty"`
	// Keyword carries the raw text of a semantic (non-numeric) criterion.
	Keyword string `json:"keyword,omitempty"`
	// Semantic marks criteria that cannot be checked numerically.
	Semantic bool `json:"semantic,omitempty"`
}

// Query is the structured form of a natural-language filter instruction
type Query struct {
	EntityType     string      `json:"entity_type"`
	RequiredFields []FieldSpec `json:"required_fields"`
	Criteria       []Criterion `json:"criteria"`
	Combinator     Combinator  `json:"combinator"`
}

// NumericCriteria returns the subset of criteria with numeric semantics.
func (q *Query) NumericCriteria() []Criterion {
	var out []Criterion
	for _, c := range q.Criteria {
		if !c.Semantic {
			out = append(out, c)
		}
	}
	return out
}

// SemanticCriteria returns the subset of criteria needing semantic judgment.
func (q *Query) SemanticCriteria() []Criterion {
	var out []Criterion
	for _, c := range q.Criteria {
		if c.Semantic {
			out = append(out, c)
		}
	}
	return out
}

// StageResult records the effect of one filter pipeline stage
type StageResult struct {
	Stage    string   `json:"stage"`
	Input    int      `json:"input_count"`
	Output   int      `json:"output_count"`
	Rejected []string `json:"rejected_reasons,omitempty"`
}

// FilterReport is the transparency trace returned alongside filtered entities
type FilterReport struct {
	Stages   []StageResult `json:"stages"`
	Summary  string        `json:"criteria_summary"`
	Warnings []string      `json:"warnings,omitempty"`
}

// ExtractionResult is what the orchestrator hands back to callers
type ExtractionResult struct {
	Entities     []Entity          `json:"entities"`
	StrategyUsed *Strategy         `json:"strategy_used,omitempty"`
	Trace        []ExecutionRecord `json:"trace"`
	FilterReport *FilterReport     `json:"filter_report,omitempty"`
	Exhausted    bool              `json:"exhausted"`
}
