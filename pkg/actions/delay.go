package actions

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/blackcoderx/barrage/pkg/config"
	"github.com/blackcoderx/barrage/pkg/interpolate"
	"github.com/blackcoderx/barrage/pkg/pool"
	"github.com/blackcoderx/barrage/pkg/runctx"
)

// Delay pauses the iteration for a number of seconds, resolved through the
// interpolator so the pause duration can come from an earlier assign.
type Delay struct {
	Name    string
	Seconds string
}

func (d *Delay) Execute(ctx context.Context, rc runctx.Context, reports *[]Report, p *pool.Pool, cfg *config.Config) error {
	interp := interpolate.New(rc, cfg.RelaxedInterpolations)
	resolved, err := interp.Resolve(d.Seconds)
	if err != nil {
		return fmt.Errorf("delay %q: %w", d.Name, err)
	}
	seconds, err := strconv.ParseFloat(resolved, 64)
	if err != nil {
		return fmt.Errorf("delay %q: invalid seconds %q: %w", d.Name, resolved, err)
	}

	timer := time.NewTimer(time.Duration(seconds * float64(time.Second)))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
