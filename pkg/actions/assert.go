package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/blackcoderx/barrage/pkg/config"
	"github.com/blackcoderx/barrage/pkg/interpolate"
	"github.com/blackcoderx/barrage/pkg/pool"
	"github.com/blackcoderx/barrage/pkg/runctx"
)

// Assert resolves a context path and compares it against an expected value,
// failing the run (a fatal error) if they are not structurally equal.
// A string on either side is first parsed as a JSON scalar where possible,
// then comparison happens on the JSON-marshaled form of each side, so "1" and 1,
// or nested objects/arrays in any key order that round-trip identically,
// compare equal. Value may itself be a YAML scalar, number, bool, or a
// nested list/map straight from the document; a string value is
// interpolated before comparison the same way any other template is.
type Assert struct {
	Name  string
	Key   string
	Value interface{}
}

func (a *Assert) Execute(ctx context.Context, rc runctx.Context, reports *[]Report, p *pool.Pool, cfg *config.Config) error {
	interp := interpolate.New(rc, cfg.RelaxedInterpolations)

	lhs, err := interp.ResolveValue(a.Key)
	if err != nil {
		return fmt.Errorf("assert %q: %w", a.Name, err)
	}
	if s, ok := lhs.(string); ok {
		lhs = coerceJSONScalar(s)
	}

	rhs, err := resolveAssertValue(interp, a.Value)
	if err != nil {
		return fmt.Errorf("assert %q: %w", a.Name, err)
	}

	if !deepEqual(lhs, rhs) {
		return fmt.Errorf("assertion %q failed: %v != %v", a.Name, lhs, rhs)
	}
	return nil
}

// resolveAssertValue interpolates a.Value when it is a string (coercing the
// result back to a JSON scalar so "200" matches the number 200), and passes
// any other YAML-decoded type (number, bool, nil, map, slice) through as-is
// for a structural comparison.
func resolveAssertValue(interp *interpolate.Interpolator, v interface{}) (interface{}, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	resolved, err := interp.Resolve(s)
	if err != nil {
		return nil, err
	}
	return coerceJSONScalar(resolved), nil
}

// deepEqual compares two values structurally: both are round-tripped
// through JSON so maps/slices compare by value regardless of concrete Go
// type, falling back to a plain string comparison when either side isn't
// JSON-representable.
func deepEqual(lhs, rhs interface{}) bool {
	lhsNorm, ok := normalize(lhs)
	if !ok {
		return fmt.Sprint(lhs) == fmt.Sprint(rhs)
	}
	rhsNorm, ok := normalize(rhs)
	if !ok {
		return fmt.Sprint(lhs) == fmt.Sprint(rhs)
	}
	return reflect.DeepEqual(lhsNorm, rhsNorm)
}

// coerceJSONScalar parses s as a JSON scalar (number, bool, null) when
// possible, falling back to the plain string otherwise.
func coerceJSONScalar(s string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

func normalize(v interface{}) (interface{}, bool) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, false
	}
	return out, true
}
