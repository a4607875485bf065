// Package stats aggregates per-request Reports into latency percentiles and
// throughput using an HDR histogram, so long tails don't get lost the way a
// naive average or a coarse sorted-sample percentile would lose them.
package stats

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/blackcoderx/barrage/pkg/actions"
)

const (
	lowestTrackableValue  = 1
	highestTrackableValue = 3_600_000_000 // 1 hour, in microseconds
	significantFigures    = 2
)

// Summary is the rendered result of aggregating every Report from a run:
// mean, median, sample stdev, and the upper percentiles the console
// summary surfaces.
type Summary struct {
	Count        int64
	SuccessCount int64
	FailedCount  int64
	MeanMs      float64
	MedianMs    float64
	StdDevMs    float64
	P90Ms       float64
	P95Ms       float64
	P99Ms       float64
	P995Ms      float64
	P999Ms      float64
	MaxMs       float64
	Duration    time.Duration
	Throughput  float64 // requests/sec over Duration
}

// Aggregator collects Reports across a run and produces one Summary.
type Aggregator struct {
	hist    *hdrhistogram.Histogram
	count   int64
	success int64
	failed  int64
	nanosec bool
}

// NewAggregator returns an Aggregator whose histogram spans
// [1, 3_600_000_000] microseconds at 2 significant figures. nanosec
// indicates that incoming Report.Duration values are already in
// nanoseconds rather than milliseconds.
func NewAggregator(nanosec bool) *Aggregator {
	return &Aggregator{
		hist:    hdrhistogram.New(lowestTrackableValue, highestTrackableValue, significantFigures),
		nanosec: nanosec,
	}
}

// Add records one Report's duration into the histogram. Every report counts
// toward latency (the time was spent either way); a 2xx status counts as a
// success and a 5xx (including the 520 transport sentinel) as a failure.
func (a *Aggregator) Add(r actions.Report) {
	micros := a.microseconds(r.Duration)
	if micros < lowestTrackableValue {
		micros = lowestTrackableValue
	}
	if micros > highestTrackableValue {
		micros = highestTrackableValue
	}
	_ = a.hist.RecordValue(micros)
	a.count++
	if r.Status >= 200 && r.Status < 300 {
		a.success++
	}
	if r.Status >= 500 {
		a.failed++
	}
}

func (a *Aggregator) microseconds(duration float64) int64 {
	if a.nanosec {
		return int64(duration / 1000.0)
	}
	return int64(duration * 1000.0)
}

// Summarize finalizes the aggregation. elapsed is the wall-clock time the
// whole run took, used to compute throughput.
func (a *Aggregator) Summarize(elapsed time.Duration) Summary {
	toMs := func(micros int64) float64 { return float64(micros) / 1000.0 }

	summary := Summary{
		Count:        a.count,
		SuccessCount: a.success,
		FailedCount:  a.failed,
		MeanMs:      toMs(int64(a.hist.Mean())),
		MedianMs:    toMs(a.hist.ValueAtQuantile(50)),
		StdDevMs:    toMs(int64(a.hist.StdDev())),
		P90Ms:       toMs(a.hist.ValueAtQuantile(90)),
		P95Ms:       toMs(a.hist.ValueAtQuantile(95)),
		P99Ms:       toMs(a.hist.ValueAtQuantile(99)),
		P995Ms:      toMs(a.hist.ValueAtQuantile(99.5)),
		P999Ms:      toMs(a.hist.ValueAtQuantile(99.9)),
		MaxMs:       toMs(a.hist.Max()),
		Duration:    elapsed,
	}
	if elapsed > 0 {
		summary.Throughput = float64(a.count) / elapsed.Seconds()
	}
	return summary
}

// NamedSummary pairs one plan step's name with its own aggregated Summary.
type NamedSummary struct {
	Name    string
	Summary Summary
}

// GroupByName buckets reports by their Name, preserving first-seen order,
// and aggregates each bucket into its own Summary (elapsed applies equally
// to every bucket, matching a per-name throughput figure over the whole
// run's wall-clock time).
func GroupByName(reports []actions.Report, nanosec bool, elapsed time.Duration) []NamedSummary {
	var order []string
	buckets := map[string]*Aggregator{}
	for _, r := range reports {
		agg, ok := buckets[r.Name]
		if !ok {
			agg = NewAggregator(nanosec)
			buckets[r.Name] = agg
			order = append(order, r.Name)
		}
		agg.Add(r)
	}

	summaries := make([]NamedSummary, 0, len(order))
	for _, name := range order {
		summaries = append(summaries, NamedSummary{Name: name, Summary: buckets[name].Summarize(elapsed)})
	}
	return summaries
}
