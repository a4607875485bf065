package interpolate

import (
	"testing"

	"github.com/blackcoderx/barrage/pkg/runctx"
)

func TestResolveDottedPath(t *testing.T) {
	ctx := runctx.Context{
		"user": map[string]interface{}{
			"id":   42,
			"tags": []interface{}{"a", "b"},
		},
	}
	interp := New(ctx, false)

	got, err := interp.Resolve("id is {{ user.id }}")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != "id is 42" {
		t.Fatalf("got %q", got)
	}

	got, err = interp.Resolve("second tag: {{ user.tags[1] }}")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != "second tag: b" {
		t.Fatalf("got %q", got)
	}
}

func TestResolveMissingPathFailsByDefault(t *testing.T) {
	interp := New(runctx.Context{}, false)
	if _, err := interp.Resolve("{{ nope }}"); err == nil {
		t.Fatal("expected an error for a missing path")
	}
}

func TestResolveMissingPathRelaxed(t *testing.T) {
	interp := New(runctx.Context{}, true)
	got, err := interp.Resolve("value: {{ nope }}")
	if err != nil {
		t.Fatalf("relaxed mode should not error: %v", err)
	}
	if got != "value: {{ nope }}" {
		t.Fatalf("expected literal placeholder preserved, got %q", got)
	}
}

func TestResolveRendersStructuredValuesAsJSON(t *testing.T) {
	ctx := runctx.Context{
		"r": map[string]interface{}{
			"body": map[string]interface{}{"a": 1},
		},
		"list": []interface{}{1, 2},
	}
	interp := New(ctx, false)

	got, err := interp.Resolve("{{ r.body }} and {{ list }}")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != `{"a":1} and [1,2]` {
		t.Fatalf("expected compact JSON rendering, got %q", got)
	}
}

func TestResolveValuePreservesType(t *testing.T) {
	ctx := runctx.Context{"count": 5}
	interp := New(ctx, false)

	v, err := interp.ResolveValue("{{ count }}")
	if err != nil {
		t.Fatalf("ResolveValue returned error: %v", err)
	}
	if v != 5 {
		t.Fatalf("expected raw int 5, got %v (%T)", v, v)
	}
}
