// Package knowledge is the persistent learning store: an append-only log of
// every extraction attempt plus aggregate rankings derived from it. Backed
// by SQLite in WAL mode so independent extraction sessions read without
// blocking each other; writes are serialized per (domain, task) only.
package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/law-makers/harvest/pkg/models"
	"github.com/rs/zerolog/log"
)

// Thresholds below which a best-strategy lookup refuses to recommend.
const (
	minSuccessRate = 0.5
	minSamples     = 2
)

// Store is the knowledge base query API consumed by the orchestrator.
type Store interface {
	// RecordExecution appends one attempt record. It never fails the
	// caller: persistence errors degrade the store to memory-only logging
	// with a single warning.
	RecordExecution(ctx context.Context, rec models.ExecutionRecord)

	// Rankings returns aggregate success rates grouped by algorithm.
	// Empty domain or task widens the grouping.
	Rankings(ctx context.Context, domain, task string) ([]models.Ranking, error)

	// BestAlgorithm returns the top-performing algorithm for a domain+task
	// above the minimum success-rate and sample thresholds.
	BestAlgorithm(ctx context.Context, domain, task string) (string, bool, error)

	// SuggestAlgorithms orders algorithms for a domain with no history by
	// their aggregate performance across all domains for the same task.
	SuggestAlgorithms(ctx context.Context, rawURL, task string) ([]string, error)

	// Statistics summarizes the whole store.
	Statistics(ctx context.Context) (*models.Statistics, error)

	// Close releases the underlying resources.
	Close() error
}

// Domain extracts the registrable host from a URL for record keying.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return strings.TrimPrefix(u.Host, "www.")
}

// SQLite is the persistent Store implementation.
type SQLite struct {
	db   *sql.DB
	path string

	// writeLocks serializes record writes per (domain, task) so aggregate
	// rankings stay consistent without cross-domain contention.
	mu         sync.Mutex
	writeLocks map[string]*sync.Mutex

	// degradation state after a persistence failure
	degraded bool
	degMu    sync.RWMutex
	warnOnce sync.Once
	fallback *Memory
}

// Open opens (or creates) the knowledge database at path, applying WAL
// pragmas and the execution-log schema.
func Open(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating knowledge directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening knowledge database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying knowledge schema: %w", err)
	}

	return &SQLite{
		db:         db,
		path:       path,
		writeLocks: make(map[string]*sync.Mutex),
		fallback:   NewMemory(),
	}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLite) Path() string {
	return s.path
}

func (s *SQLite) writeLock(domain, task string) *sync.Mutex {
	key := domain + "|" + task
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.writeLocks[key]
	if !ok {
		m = &sync.Mutex{}
		s.writeLocks[key] = m
	}
	return m
}

func (s *SQLite) isDegraded() bool {
	s.degMu.RLock()
	defer s.degMu.RUnlock()
	return s.degraded
}

// degrade switches the store to memory-only logging for the rest of the
// process. The warning surfaces once, not per call.
func (s *SQLite) degrade(err error) {
	s.degMu.Lock()
	s.degraded = true
	s.degMu.Unlock()
	s.warnOnce.Do(func() {
		log.Warn().Err(err).
			Str("path", s.path).
			Msg("Knowledge base unreachable, degrading to in-memory logging for this process")
	})
}

// RecordExecution appends one attempt record, serialized per (domain, task).
func (s *SQLite) RecordExecution(ctx context.Context, rec models.ExecutionRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	if s.isDegraded() {
		s.fallback.RecordExecution(ctx, rec)
		return
	}

	lock := s.writeLock(rec.Domain, rec.Task)
	lock.Lock()
	defer lock.Unlock()

	fieldsJSON, _ := json.Marshal(rec.Fields)
	success := 0
	if rec.Success {
		success = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO executions
			(domain, task, algorithm, selector, fields, success, items, elapsed_ms, failure_kind, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		rec.Domain, rec.Task, rec.Algorithm, rec.Selector, string(fieldsJSON),
		success, rec.Items, rec.ElapsedMs, rec.FailureKind, rec.Timestamp.UnixMilli(),
	)
	if err != nil {
		s.degrade(err)
		s.fallback.RecordExecution(ctx, rec)
		return
	}

	log.Debug().
		Str("domain", rec.Domain).
		Str("task", rec.Task).
		Str("algorithm", rec.Algorithm).
		Bool("success", rec.Success).
		Int("items", rec.Items).
		Msg("Execution recorded")
}

// Rankings returns aggregate success rates grouped by algorithm.
func (s *SQLite) Rankings(ctx context.Context, domain, task string) ([]models.Ranking, error) {
	if s.isDegraded() {
		return s.fallback.Rankings(ctx, domain, task)
	}

	query := `
		SELECT algorithm, AVG(success), COUNT(*)
		FROM executions WHERE 1=1`
	var args []interface{}
	if domain != "" {
		query += " AND domain = ?"
		args = append(args, domain)
	}
	if task != "" {
		query += " AND task = ?"
		args = append(args, task)
	}
	query += `
		GROUP BY algorithm
		ORDER BY AVG(success) DESC, COUNT(*) DESC, algorithm ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying rankings: %w", err)
	}
	defer rows.Close()

	var out []models.Ranking
	for rows.Next() {
		r := models.Ranking{Domain: domain, Task: task}
		if err := rows.Scan(&r.Algorithm, &r.SuccessRate, &r.Samples); err != nil {
			return nil, fmt.Errorf("scanning ranking: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// BestAlgorithm returns the top-performing algorithm for domain+task above
// the minimum thresholds. A pure read; concurrent callers never block.
func (s *SQLite) BestAlgorithm(ctx context.Context, domain, task string) (string, bool, error) {
	rankings, err := s.Rankings(ctx, domain, task)
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

// SuggestAlgorithms orders algorithms by cross-domain performance for the
// task, for domains with no history of their own.
func (s *SQLite) SuggestAlgorithms(ctx context.Context, rawURL, task string) ([]string, error) {
	// Domain-specific history wins when it exists.
	domain := Domain(rawURL)
	local, err := s.Rankings(ctx, domain, task)
	if err != nil {
		return nil, err
	}
	if len(local) > 0 {
		return algorithmOrder(local), nil
	}

	global, err := s.Rankings(ctx, "", task)
	if err != nil {
		return nil, err
	}
	return algorithmOrder(global), nil
}

func algorithmOrder(rankings []models.Ranking) []string {
	out := make([]string, 0, len(rankings))
	for _, r := range rankings {
		out = append(out, r.Algorithm)
	}
	return out
}

// Statistics summarizes the whole store.
func (s *SQLite) Statistics(ctx context.Context) (*models.Statistics, error) {
	if s.isDegraded() {
		return s.fallback.Statistics(ctx)
	}

	stats := &models.Statistics{}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(success), 0) FROM executions`,
	).Scan(&stats.TotalExecutions, &stats.OverallSuccessRate)
	if err != nil {
		return nil, fmt.Errorf("querying statistics: %w", err)
	}

	top, err := s.Rankings(ctx, "", "")
	if err != nil {
		return nil, err
	}
	if len(top) > 5 {
		top = top[:5]
	}
	stats.TopAlgorithms = top
	return stats, nil
}
