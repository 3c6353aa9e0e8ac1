// internal/knowledge/memory.go
package knowledge

import (
	"context"
	"sort"
	"sync"

	"github.com/law-makers/harvest/pkg/models"
)

// Memory is the in-memory Store implementation. It backs isolated test runs
// and the degraded mode a SQLite store falls into after a persistence
// failure.
type Memory struct {
	mu      sync.RWMutex
	records []models.ExecutionRecord
}

// NewMemory creates an empty in-memory knowledge store.
func NewMemory() *Memory {
	return &Memory{}
}

// Close is a no-op for the memory store.
func (m *Memory) Close() error {
	return nil
}

// RecordExecution appends one attempt record.
func (m *Memory) RecordExecution(_ context.Context, rec models.ExecutionRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
}

// Rankings returns aggregate success rates grouped by algorithm.
func (m *Memory) Rankings(_ context.Context, domain, task string) ([]models.Ranking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type agg struct {
		wins  int
		total int
	}
	groups := make(map[string]*agg)
	for _, rec := range m.records {
		if domain != "" && rec.Domain != domain {
			continue
		}
		if task != "" && rec.Task != task {
			continue
		}
		a := groups[rec.Algorithm]
		if a == nil {
			a = &agg{}
			groups[rec.Algorithm] = a
		}
		a.total++
		if rec.Success {
			a.wins++
		}
	}

	out := make([]models.Ranking, 0, len(groups))
	for alg, a := range groups {
		out = append(out, models.Ranking{
			Domain:      domain,
			Task:        task,
			Algorithm:   alg,
			SuccessRate: float64(a.wins) / float64(a.total),
			Samples:     a.total,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SuccessRate != out[j].SuccessRate {
			return out[i].SuccessRate > out[j].SuccessRate
		}
		if out[i].Samples != out[j].Samples {
			return out[i].Samples > out[j].Samples
		}
		return out[i].Algorithm < out[j].Algorithm
	})
	return out, nil
}

// BestAlgorithm returns the top-performing algorithm above thresholds.
func (m *Memory) BestAlgorithm(ctx context.Context, domain, task string) (string, bool, error) {
	rankings, err := m.Rankings(ctx, domain, task)
	if err != nil {
		return "", false, err
	}
	for _, r := range rankings {
		if r.SuccessRate >= minSuccessRate && r.Samples >= minSamples {
			return r.Algorithm, true, nil
		}
	}
	return "", false, nil
}

// SuggestAlgorithms orders algorithms by cross-domain task performance when
// the domain itself has no history.
func (m *Memory) SuggestAlgorithms(ctx context.Context, rawURL, task string) ([]string, error) {
	domain := Domain(rawURL)
	local, err := m.Rankings(ctx, domain, task)
	if err != nil {
		return nil, err
	}
	if len(local) > 0 {
		return algorithmOrder(local), nil
	}
	global, err := m.Rankings(ctx, "", task)
	if err != nil {
		return nil, err
	}
	return algorithmOrder(global), nil
}

// Statistics summarizes the store.
func (m *Memory) Statistics(ctx context.Context) (*models.Statistics, error) {
	m.mu.RLock()
	total := len(m.records)
	wins := 0
	for _, rec := range m.records {
		if rec.Success {
			wins++
		}
	}
	m.mu.RUnlock()

	stats := &models.Statistics{TotalExecutions: total}
	if total > 0 {
		stats.OverallSuccessRate = float64(wins) / float64(total)
	}

	top, err := m.Rankings(ctx, "", "")
	if err != nil {
		return nil, err
	}
	if len(top) > 5 {
		top = top[:5]
	}
	stats.TopAlgorithms = top
	return stats, nil
}
