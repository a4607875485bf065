package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/blackcoderx/barrage/pkg/actions"
	"github.com/blackcoderx/barrage/pkg/compare"
	"github.com/blackcoderx/barrage/pkg/config"
	"github.com/blackcoderx/barrage/pkg/stats"
)

var (
	nameColor   = color.New(color.FgGreen)
	okColor     = color.New(color.FgCyan)
	slowColor   = color.New(color.FgYellow)
	errColor    = color.New(color.FgRed)
	labelColor  = color.New(color.FgMagenta)
)

// consoleLogger renders per-request and summary output to stdout/stderr,
// gated on the benchmark's --quiet/--verbose flags.
type consoleLogger struct {
	quiet   bool
	verbose bool
	nanosec bool
	cfg     *config.Config
}

func newConsoleLogger(cfg *config.Config) *consoleLogger {
	return &consoleLogger{quiet: cfg.Quiet, verbose: cfg.Verbose, nanosec: cfg.Nanosec, cfg: cfg}
}

func (l *consoleLogger) Preamble(path string, itemCount int) {
	fmt.Printf("Benchmark: %s (%d tasks)\n", path, itemCount)
	labelColor.Printf("Concurrency %d\n", l.cfg.Concurrency)
	labelColor.Printf("Iterations %d\n", l.cfg.Iterations)
	labelColor.Printf("Rampup %d\n", l.cfg.Rampup)
	for name, base := range l.cfg.Urls {
		labelColor.Printf("Base URL %s: %s\n", name, base)
	}
}

func (l *consoleLogger) Iteration(index int) {
	if l.verbose {
		fmt.Printf("Iteration %d\n", index)
	}
}

func (l *consoleLogger) Action(name string, reports []actions.Report) {
	if l.quiet {
		return
	}
	for _, r := range reports {
		statusColor := okColor
		if r.Status == 0 {
			statusColor = labelColor
		} else if r.Status >= 500 {
			statusColor = errColor
		} else if r.Status >= 400 {
			statusColor = slowColor
		}
		unit := "ms"
		if l.nanosec {
			unit = "ns"
		}
		fmt.Printf("%-25s %s %s\n",
			nameColor.Sprint(name),
			statusColor.Sprintf("%d", r.Status),
			fmt.Sprintf("%.2f%s", r.Duration, unit),
		)
	}
}

func (l *consoleLogger) Error(iteration int, name string, err error) {
	errColor.Fprintf(os.Stderr, "iteration %d, %s: %v\n", iteration, name, err)
}

func printNamedSummaries(named []stats.NamedSummary) {
	for _, n := range named {
		fmt.Printf("%-25s mean %.2fms  p99 %.2fms  (%d reqs, %d ok, %d failed)\n",
			nameColor.Sprint(n.Name), n.Summary.MeanMs, n.Summary.P99Ms, n.Summary.Count, n.Summary.SuccessCount, n.Summary.FailedCount)
	}
}

func printSummary(s stats.Summary) {
	fmt.Println()
	fmt.Println(labelColor.Sprint("Summary"))
	fmt.Printf("  requests:   %d (%d successful, %d failed)\n", s.Count, s.SuccessCount, s.FailedCount)
	fmt.Printf("  duration:   %s\n", s.Duration)
	fmt.Printf("  throughput: %.2f req/s\n", s.Throughput)
	fmt.Printf("  mean:       %.2fms\n", s.MeanMs)
	fmt.Printf("  median:     %.2fms\n", s.MedianMs)
	fmt.Printf("  stdev:      %.2fms\n", s.StdDevMs)
	fmt.Printf("  p90:        %.2fms\n", s.P90Ms)
	fmt.Printf("  p95:        %.2fms\n", s.P95Ms)
	fmt.Printf("  p99:        %.2fms\n", s.P99Ms)
	fmt.Printf("  p99.5:      %.2fms\n", s.P995Ms)
	fmt.Printf("  p99.9:      %.2fms\n", s.P999Ms)
	fmt.Printf("  max:        %.2fms\n", s.MaxMs)
}

func printRegressions(result compare.Result) {
	fmt.Println()
	if result.Count() == 0 {
		fmt.Println(okColor.Sprint("No regressions found"))
		return
	}
	for _, r := range result.Regressions {
		fmt.Printf("%-25s is %s slower than before\n",
			nameColor.Sprint(r.Name),
			errColor.Sprintf("%.2fms", r.DeltaMs),
		)
	}
}
