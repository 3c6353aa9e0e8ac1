// Package batch runs extraction jobs for many URLs concurrently. Jobs are
// grouped by domain so HTTP/2 multiplexing is leveraged and per-domain rate
// limits are respected without starving other domains.
package batch

import (
	"context"
	"net/url"
	"runtime"
	"sync"

	"github.com/law-makers/harvest/internal/orchestrator"
	"github.com/law-makers/harvest/pkg/models"
)

// OptimalConcurrency calculates optimal concurrency based on CPU and memory
func OptimalConcurrency() int {
	numCPU := runtime.NumCPU()

	// For I/O bound operations (scraping), use 2-4x CPU count
	optimal := numCPU * 3

	// Cap based on available memory
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	availMB := (m.Sys - m.Alloc) / 1024 / 1024

	// Assume ~50MB per browser context for dynamic pages
	maxByMemory := int(availMB / 50)

	// Don't go below CPU count or above 50
	if optimal < numCPU {
		optimal = numCPU
	}
	if optimal > 50 {
		optimal = 50
	}

	if maxByMemory > 0 && maxByMemory < optimal {
		return maxByMemory
	}
	return optimal
}

// Result pairs one request with its extraction outcome
type Result struct {
	Request orchestrator.Request
	Result  *models.ExtractionResult
	Error   error
}

// Runner wraps an orchestrator to provide concurrent batch extraction
type Runner struct {
	orch        *orchestrator.Orchestrator
	concurrency int
}

// NewRunner creates a batch runner. If concurrency <= 0, it auto-tunes based
// on system resources.
func NewRunner(orch *orchestrator.Orchestrator, concurrency int) *Runner {
	if concurrency <= 0 {
		concurrency = OptimalConcurrency()
	}
	return &Runner{
		orch:        orch,
		concurrency: concurrency,
	}
}

// groupByDomain groups requests by their domain for better HTTP/2 multiplexing
func groupByDomain(requests []orchestrator.Request) map[string][]orchestrator.Request {
	groups := make(map[string][]orchestrator.Request)

	for _, req := range requests {
		u, err := url.Parse(req.URL)
		if err != nil {
			// If URL parsing fails, use a default group
			groups["default"] = append(groups["default"], req)
			continue
		}

		groups[u.Host] = append(groups[u.Host], req)
	}

	return groups
}

// Run processes a list of extraction requests concurrently. Requests are
// grouped by domain; the knowledge base sees one record per attempt exactly
// as in single-URL runs.
func (r *Runner) Run(ctx context.Context, requests []orchestrator.Request) <-chan Result {
	results := make(chan Result, len(requests))

	domainGroups := groupByDomain(requests)

	var wg sync.WaitGroup

	go func() {
		for _, groupRequests := range domainGroups {
			select {
			case <-ctx.Done():
				wg.Wait()
				close(results)
				return
			default:
			}

			// Limited concurrency within the same domain
			sem := make(chan struct{}, r.concurrency)

			for _, req := range groupRequests {
				wg.Add(1)
				sem <- struct{}{} // Acquire semaphore

				go func(job orchestrator.Request) {
					defer wg.Done()
					defer func() { <-sem }() // Release semaphore

					res, err := r.orch.Extract(ctx, job)
					results <- Result{
						Request: job,
						Result:  res,
						Error:   err,
					}
				}(req)
			}
		}

		wg.Wait()
		close(results)
	}()

	return results
}
