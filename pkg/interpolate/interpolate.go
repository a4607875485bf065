// Package interpolate resolves {{ path }} placeholders against a run
// context, walking dotted paths into nested maps and array indices.
package interpolate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/blackcoderx/barrage/pkg/runctx"
)

// placeholderRE matches "{{ some.path }}", tolerating any amount of
// surrounding whitespace inside the braces.
var placeholderRE = regexp.MustCompile(`\{\{\s*([^}]+?)\s*\}\}`)

// Interpolator resolves placeholder text against a fixed context.
type Interpolator struct {
	ctx      runctx.Context
	relaxed  bool
}

// New builds an Interpolator bound to ctx. When relaxed is true, an
// unresolved path leaves the original placeholder text in place instead of
// failing the whole resolution.
func New(ctx runctx.Context, relaxed bool) *Interpolator {
	return &Interpolator{ctx: ctx, relaxed: relaxed}
}

// Resolve replaces every {{ path }} occurrence in text with its resolved
// string value: strings render as themselves, numbers and booleans via
// their canonical text form, and maps/slices as compact JSON (callers
// needing the raw value should use ResolveValue instead, e.g. for Assert's
// left-hand side).
func (i *Interpolator) Resolve(text string) (string, error) {
	var firstErr error
	out := placeholderRE.ReplaceAllStringFunc(text, func(match string) string {
		sub := placeholderRE.FindStringSubmatch(match)
		path := strings.TrimSpace(sub[1])
		val, err := i.lookup(path)
		if err != nil {
			if i.relaxed {
				return match
			}
			if firstErr == nil {
				firstErr = err
			}
			return match
		}
		return render(val)
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// render stringifies a resolved value for substitution into template text.
func render(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return "null"
	case bool, int, int64, float64, float32, uint, uint16, uint64:
		return fmt.Sprint(val)
	default:
		if b, err := json.Marshal(val); err == nil {
			return string(b)
		}
		return fmt.Sprint(val)
	}
}

// ResolveValue resolves a single bare "{{ path }}" expression (or a literal
// path with no braces) and returns the underlying value without stringifying
// it, used by Assert to compare structured values rather than their text
// representation.
func (i *Interpolator) ResolveValue(path string) (interface{}, error) {
	path = strings.TrimSpace(path)
	path = strings.TrimPrefix(path, "{{")
	path = strings.TrimSuffix(path, "}}")
	path = strings.TrimSpace(path)
	val, err := i.lookup(path)
	if err != nil {
		if i.relaxed {
			return path, nil
		}
		return nil, err
	}
	return val, nil
}

func (i *Interpolator) lookup(path string) (interface{}, error) {
	segments := strings.Split(path, ".")
	var current interface{} = map[string]interface{}(i.ctx)

	for _, seg := range segments {
		name, index, hasIndex := splitIndex(seg)

		switch node := current.(type) {
		case map[string]interface{}:
			v, ok := node[name]
			if !ok {
				return nil, fmt.Errorf("interpolation path not found: %s", path)
			}
			current = v
		case runctx.Context:
			v, ok := node[name]
			if !ok {
				return nil, fmt.Errorf("interpolation path not found: %s", path)
			}
			current = v
		case map[string]string:
			v, ok := node[name]
			if !ok {
				return nil, fmt.Errorf("interpolation path not found: %s", path)
			}
			current = v
		default:
			return nil, fmt.Errorf("interpolation path not found: %s", path)
		}

		if hasIndex {
			arr, ok := current.([]interface{})
			if !ok {
				return nil, fmt.Errorf("interpolation path %s does not index an array", path)
			}
			if index < 0 || index >= len(arr) {
				return nil, fmt.Errorf("interpolation path %s: index %d out of range", path, index)
			}
			current = arr[index]
		}
	}
	return current, nil
}

// splitIndex splits a path segment like "items[2]" into ("items", 2, true),
// or returns (seg, 0, false) when there is no index suffix.
func splitIndex(seg string) (string, int, bool) {
	open := strings.IndexByte(seg, '[')
	if open == -1 || !strings.HasSuffix(seg, "]") {
		return seg, 0, false
	}
	idxStr := seg[open+1 : len(seg)-1]
	idx, err := strconv.Atoi(idxStr)
	if err != nil {
		return seg, 0, false
	}
	return seg[:open], idx, true
}
