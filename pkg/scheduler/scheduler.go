// Package scheduler drives the bounded-concurrency, ramped execution of a
// resolved plan across many iterations, collecting one []actions.Report
// per iteration.
package scheduler

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/blackcoderx/barrage/pkg/actions"
	"github.com/blackcoderx/barrage/pkg/config"
	"github.com/blackcoderx/barrage/pkg/plan"
	"github.com/blackcoderx/barrage/pkg/pool"
	"github.com/blackcoderx/barrage/pkg/runctx"
)

// Logger receives a callback for every executed action, used by the
// orchestrator to print verbose/quiet output without the scheduler itself
// knowing anything about terminal formatting.
type Logger interface {
	Iteration(index int)
	Action(name string, reports []actions.Report)
	Error(iteration int, name string, err error)
}

// Run executes items across cfg.Iterations iterations with at most
// min(runtime.NumCPU(), cfg.Concurrency) running at once, sleeping
// rampup/iterations*index seconds before starting iteration index. When
// reportMode is true, exactly one iteration (index 0, so no rampup delay)
// is run. It returns one []actions.Report per iteration, in iteration
// order, plus the first fatal error encountered (a failing assertion, a
// malformed URL, an exec failure -- anything actions.Action.Execute
// returns an error for; transport failures on Request are not fatal, they
// are recorded as status-520 reports instead).
func Run(ctx context.Context, items []plan.Item, cfg *config.Config, p *pool.Pool, reportMode bool, log Logger) ([][]actions.Report, error) {
	numIterations := cfg.Iterations
	if reportMode {
		numIterations = 1
	}

	workers := cfg.Concurrency
	if n := runtime.NumCPU(); n < workers {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	results := make([][]actions.Report, numIterations)

	// Rampup offsets are computed once from a single start instant captured
	// here, before any worker goroutine runs -- not from each task's own
	// pickup time, which would let a busy worker pool silently stretch the
	// rampup window.
	start := time.Now()

	indices := make(chan int)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indices {
				reports, err := runIteration(ctx, start, idx, numIterations, items, cfg, p, reportMode, log)
				mu.Lock()
				results[idx] = reports
				if err != nil && firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}()
	}

	for idx := 0; idx < numIterations; idx++ {
		indices <- idx
	}
	close(indices)
	wg.Wait()

	return results, firstErr
}

func runIteration(ctx context.Context, start time.Time, idx, numIterations int, items []plan.Item, cfg *config.Config, p *pool.Pool, reportMode bool, log Logger) ([]actions.Report, error) {
	if !reportMode && cfg.Rampup > 0 && numIterations > 0 {
		offset := time.Duration(float64(cfg.Rampup) / float64(numIterations) * float64(idx) * float64(time.Second))
		if remaining := time.Until(start.Add(offset)); remaining > 0 {
			timer := time.NewTimer(remaining)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}

	if log != nil {
		log.Iteration(idx)
	}

	rc := runctx.New(cfg.Global, cfg.Urls, idx)
	var reports []actions.Report
	for _, item := range items {
		var itemReports []actions.Report
		if err := item.Action.Execute(ctx, rc, &itemReports, p, cfg); err != nil {
			if log != nil {
				log.Error(idx, item.Name, err)
			}
			return reports, fmt.Errorf("iteration %d, %q: %w", idx, item.Name, err)
		}
		reports = append(reports, itemReports...)
		if log != nil && len(itemReports) > 0 {
			log.Action(item.Name, itemReports)
		}
	}
	return reports, nil
}
