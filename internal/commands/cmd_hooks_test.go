package commands

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/comb/internal/core/hooks"
	"github.com/colonyops/comb/internal/data/stores"
)

func lintHooks() []hooks.Hook {
	return []hooks.Hook{
		{
			Name:    "lint-on-save",
			Trigger: hooks.Trigger{Type: hooks.EventFileSaved, PathPattern: `\.go$`},
			Action:  hooks.Action{Type: hooks.ActionRunCommand, Command: "golangci-lint run {{file.path}}", Wait: true},
		},
		{
			Name:    "greet",
			Trigger: hooks.Trigger{Type: hooks.EventManual},
			Action:  hooks.Action{Type: hooks.ActionRunCommand, Command: "echo hello {{agent.name}} from {{who}}", Wait: true},
		},
	}
}

func TestHooksLs(t *testing.T) {
	env := newCLIEnv(t, lintHooks()...)

	out, err := env.run("hooks", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "lint-on-save")
	assert.Contains(t, out, `\.go$`)
	assert.Contains(t, out, "greet")

	res, err := env.runJSON(t, "hooks", "ls")
	require.NoError(t, err)
	assert.Len(t, decodeData[[]hooks.Hook](t, res), 2)
}

func TestHooksTrigger_RunsMatchingHooks(t *testing.T) {
	env := newCLIEnv(t, lintHooks()...)

	out, err := env.run("hooks", "trigger", "manual", "--agent", "coder-1", "--var", "who=ops")
	require.NoError(t, err)
	assert.Contains(t, out, "Ran 1 hook for manual")

	recorded := env.exec.Recorded()
	require.Len(t, recorded, 1)
	assert.Equal(t, "echo hello coder-1 from ops", recorded[0].Cmd)

	out, err = env.run("hooks", "trigger", "fileSaved", "--file-path", "README.md")
	require.NoError(t, err)
	assert.Equal(t, "No hooks matched fileSaved.\n", out)
}

func TestHooksTrigger_FailureIsReported(t *testing.T) {
	env := newCLIEnv(t, lintHooks()...)
	env.exec.Errors = map[string]error{"golangci-lint run pkg/api.go": errors.New("exit status 1")}

	res, err := env.runJSON(t, "hooks", "trigger", "fileSaved", "--file-path", "pkg/api.go")
	require.ErrorIs(t, err, ErrReported)
	assert.True(t, res.IsError)

	results := decodeData[[]hooks.Result](t, res)
	require.Len(t, results, 1)
	assert.Equal(t, hooks.StatusFailure, results[0].Status)
	assert.Equal(t, "exit status 1", results[0].Error)
}

func TestHooksTrigger_InvalidInput(t *testing.T) {
	env := newCLIEnv(t, lintHooks()...)

	_, err := env.run("hooks", "trigger", "bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event type")

	_, err = env.run("hooks", "trigger", "manual", "--var", "novalue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected key=value")

	_, err = env.run("hooks", "trigger")
	require.Error(t, err)
}

func TestHooksHistory(t *testing.T) {
	env := newCLIEnv(t, lintHooks()...)
	env.exec.Errors = map[string]error{"golangci-lint run a.go": errors.New("exit status 1")}

	_, err := env.run("hooks", "trigger", "manual", "--agent", "coder-1", "--var", "who=ops")
	require.NoError(t, err)
	_, _ = env.run("hooks", "trigger", "fileSaved", "--file-path", "a.go")

	res, err := env.runJSON(t, "hooks", "history")
	require.NoError(t, err)
	assert.Len(t, decodeData[[]stores.HookRun](t, res), 2)

	res, err = env.runJSON(t, "hooks", "history", "--status", "failure")
	require.NoError(t, err)
	runs := decodeData[[]stores.HookRun](t, res)
	require.Len(t, runs, 1)
	assert.Equal(t, "lint-on-save", runs[0].Hook)

	res, err = env.runJSON(t, "hooks", "history", "--hook", "greet", "-n", "1")
	require.NoError(t, err)
	runs = decodeData[[]stores.HookRun](t, res)
	require.Len(t, runs, 1)
	assert.Equal(t, "coder-1", runs[0].Agent)

	_, err = env.run("hooks", "history", "--status", "maybe")
	require.Error(t, err)
}
