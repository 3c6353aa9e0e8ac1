// Package recipes persists extraction strategies as human-editable YAML
// files, one per (url_pattern, task) pair. Files round-trip exactly, so a
// hand-tuned recipe survives being loaded, used and re-saved.
package recipes

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/law-makers/harvest/pkg/models"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no recipe exists for a pattern+task pair.
var ErrNotFound = errors.New("recipe not found")

// Repo manages the recipe directory. Safe for concurrent use; writes are
// serialized per file key.
type Repo struct {
	dir string
	mu  sync.Mutex
	// keys guards individual recipe files so concurrent saves of unrelated
	// recipes never contend.
	keys map[string]*sync.Mutex
}

// NewRepo opens (creating if needed) a recipe directory.
func NewRepo(dir string) (*Repo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating recipe directory: %w", err)
	}
	return &Repo{dir: dir, keys: make(map[string]*sync.Mutex)}, nil
}

// Dir returns the repository directory.
func (r *Repo) Dir() string {
	return r.dir
}

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

// fileKey slugifies a pattern+task pair into a stable file name.
func fileKey(urlPattern, task string) string {
	slug := func(s string) string {
		s = strings.ToLower(s)
		s = slugUnsafe.ReplaceAllString(s, "-")
		return strings.Trim(s, "-")
	}
	return slug(urlPattern) + "__" + slug(task) + ".yaml"
}

func (r *Repo) keyLock(key string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.keys[key]
	if !ok {
		m = &sync.Mutex{}
		r.keys[key] = m
	}
	return m
}

// Save writes or overwrites the recipe file for the strategy's pattern+task.
// The fallback list never contains the primary algorithm; Save enforces the
// invariant rather than trusting callers.
func (r *Repo) Save(s *models.Strategy) error {
	if s.URLPattern == "" || s.Task == "" {
		return fmt.Errorf("strategy needs url_pattern and task")
	}

	var fallbacks []string
	for _, alg := range s.FallbackAlgorithms {
		if alg != s.Algorithm {
			fallbacks = append(fallbacks, alg)
		}
	}
	s.FallbackAlgorithms = fallbacks

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling recipe: %w", err)
	}

	key := fileKey(s.URLPattern, s.Task)
	lock := r.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	path := filepath.Join(r.dir, key)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing recipe file: %w", err)
	}

	log.Debug().
		Str("file", key).
		Str("algorithm", s.Algorithm).
		Msg("Recipe saved")

	return nil
}

// Find loads the recipe for a pattern+task pair, or ErrNotFound.
func (r *Repo) Find(urlPattern, task string) (*models.Strategy, error) {
	path := filepath.Join(r.dir, fileKey(urlPattern, task))
	return r.load(path)
}

// List loads every recipe in the repository, skipping unparseable files
// with a warning rather than failing the listing.
func (r *Repo) List() ([]*models.Strategy, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("reading recipe directory: %w", err)
	}

	var out []*models.Strategy
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		s, err := r.load(filepath.Join(r.dir, e.Name()))
		if err != nil {
			log.Warn().Err(err).Str("file", e.Name()).Msg("Skipping unreadable recipe")
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// Touch updates a recipe's usage metadata after a successful reuse. The
// success rate moves as an exponential average so old runs fade.
func (r *Repo) Touch(s *models.Strategy, success bool) error {
	outcome := 0.0
	if success {
		outcome = 1.0
	}
	if s.Metadata.UseCount == 0 {
		s.Metadata.SuccessRate = outcome
	} else {
		s.Metadata.SuccessRate = s.Metadata.SuccessRate*0.8 + outcome*0.2
	}
	s.Metadata.UseCount++
	s.Metadata.LastUsed = time.Now().UTC().Truncate(time.Second)
	return r.Save(s)
}

func (r *Repo) load(path string) (*models.Strategy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading recipe file: %w", err)
	}
	var s models.Strategy
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing recipe file: %w", err)
	}
	return &s, nil
}
