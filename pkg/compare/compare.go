// Package compare implements the baseline regression check: every report
// produced by the current run is compared, by its positional index within
// its own iteration's report slice, against the same-index record in a
// previously saved baseline file.
package compare

import (
	"fmt"

	"github.com/blackcoderx/barrage/pkg/actions"
	"github.com/blackcoderx/barrage/pkg/report"
)

// Regression describes one report whose duration grew past the threshold
// relative to its baseline counterpart.
type Regression struct {
	Name      string
	DeltaMs   float64
	Current   float64
	Baseline  float64
}

// Result is the outcome of comparing a run's reports against a baseline.
type Result struct {
	Regressions []Regression
}

// Count returns the number of regressions found, doubling as the process
// exit code on a failed comparison.
func (r Result) Count() int { return len(r.Regressions) }

// Compare loads the baseline file at path and checks every report in
// listReports (one []Report per iteration, in execution order) against the
// baseline's flat sequence, index by index within each iteration's slice --
// not by name, and not against a per-iteration slice of the baseline.
func Compare(listReports [][]actions.Report, path string, thresholdMs float64) (Result, error) {
	baseline, err := report.Read(path)
	if err != nil {
		return Result{}, fmt.Errorf("loading baseline: %w", err)
	}

	var result Result
	for _, iterationReports := range listReports {
		for i, r := range iterationReports {
			if i >= len(baseline) {
				continue
			}
			delta := r.Duration - baseline[i].Duration
			if delta > thresholdMs {
				result.Regressions = append(result.Regressions, Regression{
					Name:     r.Name,
					DeltaMs:  delta,
					Current:  r.Duration,
					Baseline: baseline[i].Duration,
				})
			}
		}
	}
	return result, nil
}
