package plan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/blackcoderx/barrage/pkg/actions"
	"github.com/blackcoderx/barrage/pkg/dbconn"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func TestLoadRequestBaseResolvesFromUrls(t *testing.T) {
	dir := t.TempDir()
	doc := `
urls:
  api: https://example.com/v1
plan:
  - name: ping
    request:
      base: api
      url: /health
`
	path := writeFile(t, dir, "bench.yaml", doc)

	cfg, items, err := Load(path, Options{}, dbconn.NewManager())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Urls["api"] != "https://example.com/v1" {
		t.Fatalf("expected urls[api] to survive into Config, got %v", cfg.Urls)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	req, ok := items[0].Action.(*actions.Request)
	if !ok {
		t.Fatalf("expected a Request action, got %T", items[0].Action)
	}
	if req.Base != "api" || req.URL != "/health" {
		t.Fatalf("unexpected request fields: base=%q url=%q", req.Base, req.URL)
	}
}

func TestLoadAssignOverload(t *testing.T) {
	dir := t.TempDir()
	doc := `
plan:
  - name: capture
    exec: "echo hi"
    assign: out
  - name: store
    assign:
      key: greeting
      value: hello
`
	path := writeFile(t, dir, "bench.yaml", doc)

	_, items, err := Load(path, Options{}, dbconn.NewManager())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	exec, ok := items[0].Action.(*actions.Exec)
	if !ok {
		t.Fatalf("expected item 0 to be Exec, got %T", items[0].Action)
	}
	if exec.Assign != "out" {
		t.Fatalf("expected scalar assign to name the result-target key, got %q", exec.Assign)
	}

	assign, ok := items[1].Action.(*actions.Assign)
	if !ok {
		t.Fatalf("expected item 1 to be the Assign action (mapping form), got %T", items[1].Action)
	}
	if assign.Key != "greeting" || assign.Value != "hello" {
		t.Fatalf("unexpected Assign fields: %+v", assign)
	}
}

func TestLoadWithItemsRangeStep(t *testing.T) {
	dir := t.TempDir()
	doc := `
plan:
  - name: sweep
    request:
      url: /item/{{ item }}
    with_items_range:
      start: 0
      stop: 10
      step: 5
`
	path := writeFile(t, dir, "bench.yaml", doc)

	_, items, err := Load(path, Options{}, dbconn.NewManager())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	req := items[0].Action.(*actions.Request)
	resolved, err := req.WithItems.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(resolved) != 3 {
		t.Fatalf("expected {0,5,10}, got %v", resolved)
	}
}

func TestLoadIncludeMergesUrlsAndOuterWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "included.yaml", `
urls:
  api: https://inner.example.com
  cdn: https://cdn.example.com
plan:
  - name: inner-ping
    request:
      base: api
      url: /ping
`)
	outerPath := writeFile(t, dir, "bench.yaml", `
urls:
  api: https://outer.example.com
plan:
  - include: included.yaml
  - name: outer-ping
    request:
      base: cdn
      url: /asset
`)

	cfg, items, err := Load(outerPath, Options{}, dbconn.NewManager())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Urls["api"] != "https://outer.example.com" {
		t.Fatalf("outer urls[api] should win over the include, got %v", cfg.Urls)
	}
	if cfg.Urls["cdn"] != "https://cdn.example.com" {
		t.Fatalf("include-only url should still merge in, got %v", cfg.Urls)
	}
	if len(items) != 2 {
		t.Fatalf("expected the included item spliced plus the outer item, got %d", len(items))
	}
}
