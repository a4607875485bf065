package actions

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/blackcoderx/barrage/pkg/config"
	"github.com/blackcoderx/barrage/pkg/interpolate"
	"github.com/blackcoderx/barrage/pkg/pool"
	"github.com/blackcoderx/barrage/pkg/runctx"
)

// Exec runs a shell command through "sh -c" and optionally assigns its
// trimmed stdout into the context. The command's exit status is ignored:
// a step like "test -f /path" exiting 1 is still a completed step, and its
// stdout (possibly empty) is what gets assigned. Only failing to spawn the
// shell at all is fatal.
type Exec struct {
	Name    string
	Command string
	Assign  string // optional
}

func (e *Exec) Execute(ctx context.Context, rc runctx.Context, reports *[]Report, p *pool.Pool, cfg *config.Config) error {
	interp := interpolate.New(rc, cfg.RelaxedInterpolations)
	resolved, err := interp.Resolve(e.Command)
	if err != nil {
		return fmt.Errorf("exec %q: %w", e.Name, err)
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", resolved)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return fmt.Errorf("exec %q: failed to run command: %w", e.Name, err)
		}
	}

	if e.Assign != "" {
		rc[e.Assign] = strings.TrimRight(stdout.String(), " \t\r\n")
	}
	return nil
}
