// Package terminal runs hook commands through the local shell.
package terminal

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"github.com/colonyops/comb/internal/core/hooks"
	"github.com/colonyops/comb/pkg/executil"
)

// Runner implements hooks.CommandRunner on top of an executil.Executor.
type Runner struct {
	exec       executil.Executor
	defaultDir string
	log        zerolog.Logger
}

var _ hooks.CommandRunner = (*Runner)(nil)

// NewRunner creates a Runner. Commands without a cwd run in defaultDir.
func NewRunner(exec executil.Executor, defaultDir string, log zerolog.Logger) *Runner {
	if exec == nil {
		exec = executil.RealExecutor{}
	}
	return &Runner{
		exec:       exec,
		defaultDir: defaultDir,
		log:        log.With().Str("component", "runner").Logger(),
	}
}

// Run executes command. When wait is false the command is started and left
// running; its output is not captured.
func (r *Runner) Run(ctx context.Context, command, cwd string, wait bool) (hooks.CommandResult, error) {
	if cwd == "" {
		cwd = r.defaultDir
	}

	if !wait {
		if err := r.exec.StartSh(cwd, command); err != nil {
			return hooks.CommandResult{ExitCode: -1}, err
		}
		r.log.Debug().Str("cmd", command).Str("cwd", cwd).Msg("command started")
		return hooks.CommandResult{Output: "started"}, nil
	}

	out, err := r.exec.RunSh(ctx, cwd, command)
	res := hooks.CommandResult{Output: strings.TrimRight(string(out), "\n")}
	if err != nil {
		res.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		}
		r.log.Debug().Err(err).Str("cmd", command).Int("exit_code", res.ExitCode).Msg("command failed")
		return res, err
	}

	return res, nil
}
