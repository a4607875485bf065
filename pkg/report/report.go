// Package report reads and writes the plain-text/YAML report format a
// --report run produces and a --compare run consumes: one sequence of
// {name, duration, status} records.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/blackcoderx/barrage/pkg/actions"
)

// Write renders reports as a YAML sequence and writes it to path, one
// record per report:
//
//	- name: <name>
//	  duration: <duration>
//	  status: <status>
func Write(path string, reports []actions.Report) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving report path: %w", err)
	}

	var b strings.Builder
	for _, r := range reports {
		fmt.Fprintf(&b, "\n- name: %s\n  duration: %v\n  status: %d\n", r.Name, r.Duration, r.Status)
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	return os.WriteFile(absPath, []byte(b.String()), 0644)
}

// Read parses a report/baseline file back into a flat sequence of records.
// Status defaults to 0 when the file predates that field.
func Read(path string) ([]actions.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report file %s: %w", path, err)
	}

	var records []actions.Report
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing report file %s: %w", path, err)
	}
	return records, nil
}
