package actions

import (
	"context"
	"fmt"

	"github.com/blackcoderx/barrage/pkg/config"
	"github.com/blackcoderx/barrage/pkg/interpolate"
	"github.com/blackcoderx/barrage/pkg/pool"
	"github.com/blackcoderx/barrage/pkg/runctx"
)

// Assign stores an interpolated value under a context key, giving later
// actions a fixed name to reference regardless of where the value came
// from.
type Assign struct {
	Name  string
	Key   string
	Value string
}

func (a *Assign) Execute(ctx context.Context, rc runctx.Context, reports *[]Report, p *pool.Pool, cfg *config.Config) error {
	interp := interpolate.New(rc, cfg.RelaxedInterpolations)
	resolved, err := interp.Resolve(a.Value)
	if err != nil {
		return fmt.Errorf("assign %q: %w", a.Name, err)
	}
	rc[a.Key] = resolved
	return nil
}
