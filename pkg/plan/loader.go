package plan

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/blackcoderx/barrage/pkg/actions"
	"github.com/blackcoderx/barrage/pkg/config"
	"github.com/blackcoderx/barrage/pkg/dbconn"
)

// Options carries the CLI-level overrides that apply on top of whatever the
// document itself declares.
type Options struct {
	Timeout               float64 // seconds, 0 means "use document default"
	NoCheckCertificate    bool
	RelaxedInterpolations bool
	Quiet                 bool
	Verbose               bool
	Nanosec               bool
	IncludeTags           []string
	SkipTags              []string
}

// Load reads and fully resolves a benchmark document at path: includes are
// spliced in (with cycle detection), with_items-bearing requests are turned
// into actions.Request, tag filters are applied, and any sibling .env file
// is merged into the document's global values. The loader changes its
// working directory to the document's parent for the duration of the call
// so includes, with_items file sources, and .env resolve relative to the
// document rather than the process's original CWD.
func Load(path string, opts Options, db *dbconn.Manager) (*config.Config, []Item, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving benchmark path: %w", err)
	}
	docDir := filepath.Dir(absPath)

	prevDir, err := os.Getwd()
	if err != nil {
		return nil, nil, fmt.Errorf("reading working directory: %w", err)
	}
	if err := os.Chdir(docDir); err != nil {
		return nil, nil, fmt.Errorf("changing to benchmark directory %s: %w", docDir, err)
	}
	defer os.Chdir(prevDir)

	data, err := os.ReadFile(filepath.Base(absPath))
	if err != nil {
		return nil, nil, fmt.Errorf("reading benchmark file: %w", err)
	}

	var doc rawDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("parsing benchmark file: %w", err)
	}

	inProgress := map[string]bool{absPath: true}
	included, err := resolveIncludes(doc.Plan, docDir, inProgress)
	if err != nil {
		return nil, nil, err
	}

	// The outer document's own urls/global/databases win over anything an
	// include contributes.
	urls := map[string]string{}
	mergeStringsInto(urls, doc.Urls)
	mergeStringsInto(urls, included.Urls)
	global := map[string]interface{}{}
	mergeAnyInto(global, doc.Global)
	mergeAnyInto(global, included.Global)
	dbs := map[string]rawDbEntry{}
	mergeDbsInto(dbs, doc.Databases)
	mergeDbsInto(dbs, included.Databases)

	cfg := &config.Config{
		Iterations:            doc.Iterations,
		Concurrency:           doc.Concurrency,
		Rampup:                doc.Rampup,
		Urls:                   urls,
		Global:                global,
		Quiet:                  opts.Quiet,
		Verbose:                opts.Verbose,
		Nanosec:                opts.Nanosec,
		NoCheckCertificate:     opts.NoCheckCertificate,
		RelaxedInterpolations:  opts.RelaxedInterpolations,
		Tags:                   opts.IncludeTags,
		SkipTags:               opts.SkipTags,
	}
	if cfg.Global == nil {
		cfg.Global = map[string]interface{}{}
	}
	if opts.Timeout > 0 {
		cfg.TimeoutSeconds = int(opts.Timeout)
	}

	envPath := doc.Env
	if envPath == "" {
		envPath = ".env"
	}
	if err := mergeEnvFile(envPath, cfg.Global); err != nil {
		return nil, nil, fmt.Errorf("merging env file %q: %w", envPath, err)
	}

	cfg.Dbs = map[string]config.DbDefinition{}
	for name, d := range dbs {
		cfg.Dbs[name] = config.DbDefinition{
			Type:             d.Type,
			ConnectionString: d.ConnectionString,
			Host:             d.Host,
			Port:             d.Port,
			User:             d.User,
			Password:         d.Password,
			DbName:           d.DbName,
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	var items []Item
	for _, raw := range included.Items {
		if skip(raw.Tags, cfg.Tags, cfg.SkipTags) {
			continue
		}
		action, err := buildAction(raw, db)
		if err != nil {
			return nil, nil, fmt.Errorf("plan item %q: %w", raw.Name, err)
		}
		items = append(items, Item{Name: raw.Name, Tags: raw.Tags, Action: action})
	}

	return cfg, items, nil
}

func buildAction(raw rawItem, db *dbconn.Manager) (actions.Action, error) {
	switch {
	case raw.Request != nil:
		wi, err := buildWithItems(raw)
		if err != nil {
			return nil, err
		}
		return &actions.Request{
			Name:      raw.Name,
			Base:      raw.Request.Base,
			Method:    raw.Request.Method,
			URL:       raw.Request.URL,
			Headers:   raw.Request.Headers,
			Body:      raw.Request.Body,
			Assign:    raw.Assign,
			Timeout:   raw.Request.Timeout,
			WithItems: wi,
		}, nil
	case raw.Assert != nil:
		return &actions.Assert{Name: raw.Name, Key: raw.Assert.Key, Value: raw.Assert.Value}, nil
	case raw.Delay != nil:
		return &actions.Delay{Name: raw.Name, Seconds: raw.Delay.Seconds}, nil
	case raw.Exec != "":
		return &actions.Exec{Name: raw.Name, Command: raw.Exec, Assign: raw.Assign}, nil
	case raw.DbQuery != nil:
		wi, err := buildWithItems(raw)
		if err != nil {
			return nil, err
		}
		return &actions.DbQuery{Name: raw.Name, Target: raw.DbQuery.Target, Query: raw.DbQuery.Query, Assign: raw.Assign, WithItems: wi, DB: db}, nil
	case raw.Set != nil:
		return &actions.Assign{Name: raw.Name, Key: raw.Set.Key, Value: raw.Set.Value}, nil
	default:
		return nil, fmt.Errorf("no recognized action (request/assert/delay/exec/db_query/assign)")
	}
}

// buildWithItems materializes an item's with_items source while the loader's
// working directory is still the document's parent, so relative csv/file
// paths resolve against the document and a bad pick fails the load instead
// of the first iteration.
func buildWithItems(raw rawItem) (*actions.WithItems, error) {
	if raw.WithItems == nil && raw.WithItemsRange == nil && raw.CSVFile == "" && raw.ItemsFile == "" {
		return nil, nil
	}
	wi := &actions.WithItems{Shuffle: raw.Shuffle}
	if list, ok := raw.WithItems.([]interface{}); ok {
		wi.Items = list
	}
	if raw.WithItemsRange != nil {
		wi.HasRange = true
		wi.RangeStart = raw.WithItemsRange.Start
		wi.RangeEnd = raw.WithItemsRange.Stop
		wi.RangeStep = raw.WithItemsRange.Step
	}
	wi.CSVFile = raw.CSVFile
	wi.QuoteChar = raw.CSVQuoteChar
	wi.File = raw.ItemsFile
	if raw.Pick != nil {
		wi.HasPick = true
		wi.Pick = *raw.Pick
	}
	if err := wi.Load(); err != nil {
		return nil, err
	}
	return wi, nil
}
