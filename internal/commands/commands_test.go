package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/comb/internal/core/config"
	"github.com/colonyops/comb/internal/core/hooks"
	"github.com/colonyops/comb/internal/hive"
	"github.com/colonyops/comb/pkg/executil"
)

type quietHuman struct{}

func (quietHuman) Notify(context.Context, hooks.Notification) error { return nil }

func (quietHuman) Prompt(context.Context, hooks.Prompt) (hooks.Response, error) {
	return hooks.Response{Approved: true}, nil
}

type cliEnv struct {
	app  *hive.App
	exec *executil.RecordingExecutor
}

func newCLIEnv(t *testing.T, hs ...hooks.Hook) *cliEnv {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Watch = false
	cfg.Hooks = hs

	rec := &executil.RecordingExecutor{}
	app, err := hive.NewApp(hive.Options{
		Config:   &cfg,
		Logger:   zerolog.Nop(),
		Human:    quietHuman{},
		Executor: rec,
	})
	require.NoError(t, err)
	require.NoError(t, app.Start(context.Background()))
	t.Cleanup(func() { _ = app.Close() })

	return &cliEnv{app: app, exec: rec}
}

// run executes args against a fresh command tree so flag destinations do not
// leak between invocations.
func (e *cliEnv) run(args ...string) (string, error) {
	var out, errOut bytes.Buffer

	flags := &Flags{DataDir: e.app.Config.DataDir, Config: e.app.Config}
	root := &cli.Command{
		Name:      "comb",
		Writer:    &out,
		ErrWriter: &errOut,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Destination: &flags.JSON},
		},
	}
	root = NewMsgCmd(flags, e.app).Register(root)
	root = NewItemCmd(flags, e.app).Register(root)
	root = NewHooksCmd(flags, e.app).Register(root)

	err := root.Run(context.Background(), append([]string{"comb"}, args...))
	return out.String(), err
}

type jsonResult struct {
	Text    string          `json:"text"`
	IsError bool            `json:"is_error"`
	Data    json.RawMessage `json:"data"`
}

func (e *cliEnv) runJSON(t *testing.T, args ...string) (jsonResult, error) {
	t.Helper()
	out, err := e.run(append([]string{"--json"}, args...)...)

	var res jsonResult
	require.NoError(t, json.Unmarshal([]byte(out), &res), "output: %s", out)
	return res, err
}

func decodeData[T any](t *testing.T, res jsonResult) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(res.Data, &v))
	return v
}
