// Package actions implements every runnable plan step: assert, assign,
// delay, exec, db query, and HTTP request. Each one mutates the iteration's
// Context and, for steps that produce a timed result, appends a Report.
package actions

import (
	"context"
	"encoding/json"

	"github.com/blackcoderx/barrage/pkg/config"
	"github.com/blackcoderx/barrage/pkg/pool"
	"github.com/blackcoderx/barrage/pkg/runctx"
)

// Report is one timed, named measurement produced by running an action.
// Only Request currently produces reports; other actions run silently
// unless they fail.
type Report struct {
	Name     string  `yaml:"name"`
	Duration float64 `yaml:"duration"` // milliseconds, unless Config.Nanosec
	Status   uint16  `yaml:"status,omitempty"`
}

// assignedRequest builds the map stored in the context under a Request's
// "assign" key: {status, body, headers}. It is a plain map[string]interface{}
// (not a typed struct) so the interpolator's dotted-path lookup -- which
// only knows how to index maps and slices -- can walk into it the same way
// it walks into any other context value, e.g. {{ r.body.a }}.
func assignedRequest(status int, bodyBytes []byte, headers map[string]string) map[string]interface{} {
	var body interface{}
	if len(bodyBytes) > 0 {
		if err := json.Unmarshal(bodyBytes, &body); err != nil {
			body = nil
		}
	}
	return map[string]interface{}{
		"status":  status,
		"body":    body,
		"headers": headers,
	}
}

// Action is one executable step of a plan item. Execute may append zero or
// more Reports (a with_items Request appends one per expanded item) and
// always returns an error for anything that should abort the whole run.
type Action interface {
	Execute(ctx context.Context, rc runctx.Context, reports *[]Report, clients *pool.Pool, cfg *config.Config) error
}
