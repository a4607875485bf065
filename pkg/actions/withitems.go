package actions

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
)

// WithItems describes the data-driven expansion source for a Request
// action: a literal list, a numeric range, or a file (CSV or newline
// delimited) to read items from. Exactly one source should be set; Items
// takes precedence if more than one is populated.
//
// File-backed sources are materialized once by Load, which the plan loader
// calls while its working directory is still the document's parent, so
// relative csv/file paths resolve against the document rather than wherever
// the process happens to run from.
type WithItems struct {
	Items []interface{}

	RangeStart int
	RangeEnd   int
	RangeStep  int
	HasRange   bool

	CSVFile   string
	QuoteChar string
	File      string

	Shuffle bool
	Pick    int
	HasPick bool

	loaded bool
}

// Load materializes the item source into Items and validates Pick against
// the final list length, failing the whole plan load on a bad pick rather
// than deferring the surprise to the first iteration.
func (w *WithItems) Load() error {
	items, err := w.source()
	if err != nil {
		return err
	}
	w.Items = items
	w.loaded = true
	return w.validatePick(len(items))
}

// Resolve produces the final, ordered list of items a Request should expand
// over for one execution, applying shuffle then pick in that order. The
// shuffle works on a copy so concurrent iterations never reorder each
// other's view of the shared source list.
func (w *WithItems) Resolve() ([]interface{}, error) {
	src := w.Items
	if !w.loaded && len(src) == 0 {
		loaded, err := w.source()
		if err != nil {
			return nil, err
		}
		src = loaded
	}

	items := make([]interface{}, len(src))
	copy(items, src)

	if w.Shuffle {
		rng := rand.New(rand.NewSource(rand.Int63()))
		rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
	}

	if err := w.validatePick(len(items)); err != nil {
		return nil, err
	}
	if w.HasPick && w.Pick > 0 {
		items = items[:w.Pick]
	}
	// pick == 0 means "take all": leave items untouched.

	return items, nil
}

func (w *WithItems) validatePick(length int) error {
	if !w.HasPick {
		return nil
	}
	if w.Pick < 0 {
		return fmt.Errorf("pick option should not be negative, but was %d", w.Pick)
	}
	if w.Pick > length {
		return fmt.Errorf("pick option should not be greater than the provided items, but was %d", w.Pick)
	}
	return nil
}

func (w *WithItems) source() ([]interface{}, error) {
	switch {
	case len(w.Items) > 0:
		return w.Items, nil
	case w.HasRange:
		return rangeItems(w.RangeStart, w.RangeEnd, w.RangeStep), nil
	case w.CSVFile != "":
		return readCSVFile(w.CSVFile, w.QuoteChar)
	case w.File != "":
		return readLineFile(w.File)
	default:
		return nil, nil
	}
}

// rangeItems expands an integer range {start,stop,step} inclusive of stop.
// step defaults to 1 when zero or negative.
func rangeItems(start, end, step int) []interface{} {
	if step <= 0 {
		step = 1
	}
	if end < start {
		return nil
	}
	items := make([]interface{}, 0, (end-start)/step+1)
	for i := start; i <= end; i += step {
		items = append(items, i)
	}
	return items
}

// readCSVFile parses a with_items_from_csv source. encoding/csv always
// quotes fields with '"'; when the document names a different quoteChar
// (e.g. a single quote), its occurrences are rewritten to '"' before
// parsing so non-default quoting still round-trips.
func readCSVFile(path, quoteChar string) ([]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("with_items csv file %q: %w", path, err)
	}
	if quoteChar != "" && quoteChar != `"` {
		data = []byte(strings.ReplaceAll(string(data), quoteChar, `"`))
	}

	reader := csv.NewReader(strings.NewReader(string(data)))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("with_items csv file %q: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	items := make([]interface{}, 0, len(records)-1)
	for _, row := range records[1:] {
		record := map[string]interface{}{}
		for i, col := range header {
			if i < len(row) {
				record[col] = row[i]
			}
		}
		items = append(items, record)
	}
	return items, nil
}

func readLineFile(path string) ([]interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("with_items file %q: %w", path, err)
	}
	defer f.Close()

	var items []interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if n, err := strconv.ParseFloat(line, 64); err == nil {
			items = append(items, n)
			continue
		}
		items = append(items, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("with_items file %q: %w", path, err)
	}
	return items, nil
}
