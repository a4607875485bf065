package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/blackcoderx/barrage/pkg/actions"
	"github.com/blackcoderx/barrage/pkg/compare"
	"github.com/blackcoderx/barrage/pkg/dbconn"
	"github.com/blackcoderx/barrage/pkg/plan"
	"github.com/blackcoderx/barrage/pkg/pool"
	"github.com/blackcoderx/barrage/pkg/report"
	"github.com/blackcoderx/barrage/pkg/scheduler"
	"github.com/blackcoderx/barrage/pkg/stats"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	relaxedInterpolations bool
	noCheckCertificate    bool
	listTasks             bool
	quiet                 bool
	timeout               string
	nanosec               bool
	verbose               bool

	statsFlag  bool
	reportPath string

	comparePath string
	threshold   string

	includeTags []string
	skipTags    []string
	listTags    bool

	rootCmd = &cobra.Command{
		Use:     "barrage <benchmark>",
		Version: version,
		Short:   "Declarative HTTP load testing",
		Long: `barrage runs a declarative benchmark plan concurrently across many
iterations, collecting per-request latency and status reports and emitting
summary statistics, a machine-readable report, or a regression comparison
against a saved baseline.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(cmd.Context(), args[0])
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.Flags()
	flags.BoolVar(&relaxedInterpolations, "relaxed-interpolations", false, "Do not fail if an interpolation path is not present")
	flags.BoolVar(&noCheckCertificate, "no-check-certificate", false, "Disable SSL certificate verification (not recommended)")
	flags.BoolVar(&listTasks, "list-tasks", false, "List benchmark tasks (respects --tags/--skip-tags) and exit")
	flags.BoolVarP(&quiet, "quiet", "q", false, "Disable per-request output")
	flags.StringVar(&timeout, "timeout", "", "Timeout in seconds for every request")
	flags.BoolVar(&nanosec, "nanosec", false, "Report durations in nanoseconds instead of milliseconds")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Verbose per-request output")

	flags.BoolVarP(&statsFlag, "stats", "s", false, "Print latency/throughput statistics after the run")
	flags.StringVarP(&reportPath, "report", "r", "", "Run a single iteration and write its reports to this file")

	flags.StringVarP(&comparePath, "compare", "c", "", "Compare this run's reports against a saved baseline file")
	flags.StringVarP(&threshold, "threshold", "t", "0", "Regression threshold in ms for --compare")

	flags.StringSliceVar(&includeTags, "tags", nil, "Only run plan items carrying one of these tags")
	flags.StringSliceVar(&skipTags, "skip-tags", nil, "Skip plan items carrying one of these tags")
	flags.BoolVar(&listTags, "list-tags", false, "List the tags of benchmark tasks (respects --tags/--skip-tags) and exit")

	rootCmd.MarkFlagsMutuallyExclusive("stats", "compare")
	rootCmd.MarkFlagsMutuallyExclusive("report", "compare")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("barrage %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	})
}

func initConfig() {
	viper.SetEnvPrefix("BARRAGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if err := viper.BindPFlags(rootCmd.Flags()); err != nil {
		fmt.Fprintf(os.Stderr, "warning: binding flags: %v\n", err)
	}
}

// applyViperOverrides copies the resolved viper values back into the flag
// variables, so a BARRAGE_* environment variable overrides any flag left at
// its default (an explicitly set flag still wins, per viper's precedence).
func applyViperOverrides() {
	relaxedInterpolations = viper.GetBool("relaxed-interpolations")
	noCheckCertificate = viper.GetBool("no-check-certificate")
	quiet = viper.GetBool("quiet")
	verbose = viper.GetBool("verbose")
	nanosec = viper.GetBool("nanosec")
	timeout = viper.GetString("timeout")
	threshold = viper.GetString("threshold")
	statsFlag = viper.GetBool("stats")
	reportPath = viper.GetString("report")
	comparePath = viper.GetString("compare")
	includeTags = viper.GetStringSlice("tags")
	skipTags = viper.GetStringSlice("skip-tags")
}

func runBenchmark(ctx context.Context, benchmarkPath string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: failed to load .env file: %v\n", err)
	}
	applyViperOverrides()

	var timeoutSeconds float64
	if timeout != "" {
		if _, err := fmt.Sscanf(timeout, "%f", &timeoutSeconds); err != nil {
			return fmt.Errorf("invalid --timeout %q: %w", timeout, err)
		}
	}
	var thresholdMs float64
	if threshold != "" {
		if _, err := fmt.Sscanf(threshold, "%f", &thresholdMs); err != nil {
			return fmt.Errorf("invalid --threshold %q: %w", threshold, err)
		}
	}

	dbManager := dbconn.NewManager()
	defer dbManager.Close()

	opts := plan.Options{
		Timeout:               timeoutSeconds,
		NoCheckCertificate:    noCheckCertificate,
		RelaxedInterpolations: relaxedInterpolations,
		Quiet:                 quiet,
		Verbose:               verbose,
		Nanosec:               nanosec,
		IncludeTags:           includeTags,
		SkipTags:              skipTags,
	}

	cfg, items, err := plan.Load(benchmarkPath, opts, dbManager)
	if err != nil {
		return fmt.Errorf("loading benchmark: %w", err)
	}

	if listTags {
		return printTags(items)
	}
	if listTasks {
		return printTasks(items)
	}

	if len(items) == 0 {
		return fmt.Errorf("benchmark plan is empty")
	}

	clientPool := pool.New(time.Duration(cfg.TimeoutSeconds)*time.Second, cfg.NoCheckCertificate)

	// A report run is a single deterministic iteration whose output feeds a
	// later --compare; stats would be meaningless for one sample.
	reportMode := reportPath != ""
	if reportMode {
		statsFlag = false
	}

	log := newConsoleLogger(cfg)
	if cfg.Verbose {
		log.Preamble(benchmarkPath, len(items))
	}

	start := time.Now()
	listReports, runErr := scheduler.Run(ctx, items, cfg, clientPool, reportMode, log)
	elapsed := time.Since(start)
	if runErr != nil {
		return runErr
	}

	flat := flatten(listReports)

	if reportPath != "" {
		if err := report.Write(reportPath, flat); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}

	if statsFlag {
		agg := stats.NewAggregator(cfg.Nanosec)
		for _, r := range flat {
			agg.Add(r)
		}
		printNamedSummaries(stats.GroupByName(flat, cfg.Nanosec, elapsed))
		printSummary(agg.Summarize(elapsed))
	}

	if comparePath != "" {
		result, err := compare.Compare(listReports, comparePath, thresholdMs)
		if err != nil {
			return fmt.Errorf("comparing baseline: %w", err)
		}
		printRegressions(result)
		if n := result.Count(); n > 0 {
			os.Exit(n)
		}
	}

	return nil
}

func flatten(listReports [][]actions.Report) []actions.Report {
	var flat []actions.Report
	for _, r := range listReports {
		flat = append(flat, r...)
	}
	return flat
}

func printTags(items []plan.Item) error {
	seen := map[string]bool{}
	var tags []string
	for _, it := range items {
		for _, t := range it.Tags {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	sort.Strings(tags)
	for _, t := range tags {
		fmt.Println(t)
	}
	return nil
}

func printTasks(items []plan.Item) error {
	type taskEntry struct {
		Name string   `yaml:"name"`
		Tags []string `yaml:"tags,omitempty"`
	}
	entries := make([]taskEntry, 0, len(items))
	for _, it := range items {
		entries = append(entries, taskEntry{Name: it.Name, Tags: it.Tags})
	}
	out, err := yaml.Marshal(entries)
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}

func main() {
	rootCmd.SilenceUsage = true
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
