package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/comb/internal/commands"
	"github.com/colonyops/comb/internal/core/config"
	"github.com/colonyops/comb/internal/core/logging"
	"github.com/colonyops/comb/internal/core/styles"
	"github.com/colonyops/comb/internal/debugserver"
	"github.com/colonyops/comb/internal/hive"
	"github.com/colonyops/comb/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		logCloser func()
		hiveApp   = &hive.App{}
		appReady  bool
		debugSrv  *debugserver.Server
	)

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "comb",
		Usage:     "Coordinate multiple AI agents working in one repository",
		UsageText: "comb [global options] command [command options]",
		Description: `Comb is the coordination substrate for a colony of agents.

Agents reserve files before editing them, exchange markdown messages,
move work items across a kanban board, and react to each other through
configurable hooks. All state lives under the data directory.

Run 'comb msg inbox -a <agent>' to read an agent's mail.
Run 'comb item ls' to see the board.`,
		Version:               build(),
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("COMB_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to <data-dir>/comb.log)",
				Sources:     cli.EnvVars("COMB_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("COMB_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("COMB_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print results as JSON",
				Sources:     cli.EnvVars("COMB_JSON"),
				Destination: &flags.JSON,
			},
			&cli.StringFlag{
				Name:        "debug-addr",
				Usage:       "serve pprof and Prometheus metrics on this address (e.g. localhost:6060)",
				Sources:     cli.EnvVars("COMB_DEBUG_ADDR"),
				Hidden:      true,
				Destination: &flags.DebugAddr,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			// Always log to a file; use explicit path or default to <datadir>/comb.log
			logFile := flags.LogFile
			if logFile == "" {
				logFile = filepath.Join(flags.DataDir, "comb.log")
			}

			logger, closer, err := logutils.New(flags.LogLevel, logFile, logging.ContextHook{})
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer
			cliLog := logging.Component("cli")
			cliLog.Debug().Str("version", build()).Strs("args", os.Args[1:]).Msg("starting")

			// config validate reads the file itself so it can report
			// problems that would stop Load.
			if c.Args().First() == "config" {
				return ctx, nil
			}

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Config = cfg

			// Apply configured theme (validation ensures name is valid)
			palette, _ := styles.GetPalette(cfg.Theme)
			styles.SetTheme(palette)

			workDir, err := os.Getwd()
			if err != nil {
				return ctx, fmt.Errorf("resolve working directory: %w", err)
			}

			built, err := hive.NewApp(hive.Options{
				Config:     cfg,
				ConfigPath: flags.ConfigPath,
				Logger:     log.Logger,
				WorkDir:    workDir,
			})
			if err != nil {
				return ctx, err
			}

			// Populate the pre-allocated App struct (commands already hold a pointer to it)
			*hiveApp = *built
			appReady = true

			if err := hiveApp.Start(ctx); err != nil {
				return ctx, fmt.Errorf("start: %w", err)
			}

			if flags.DebugAddr != "" {
				debugSrv = debugserver.New(flags.DebugAddr, hiveApp.Metrics.Registry(), log.Logger)
				if err := debugSrv.Start(ctx); err != nil {
					debugSrv = nil
					log.Warn().Err(err).Msg("debug server unavailable")
				}
			}

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if debugSrv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				_ = debugSrv.Shutdown(shutdownCtx)
				cancel()
			}

			var err error
			if appReady {
				if err = hiveApp.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close app")
				}
			}

			// Close log file
			if logCloser != nil {
				logCloser()
			}
			return err
		},
	}

	app = commands.NewMsgCmd(flags, hiveApp).Register(app)
	app = commands.NewItemCmd(flags, hiveApp).Register(app)
	app = commands.NewHooksCmd(flags, hiveApp).Register(app)
	app = commands.NewConfigValidateCmd(flags).Register(app)

	exitCode := 0
	runErr := app.Run(ctx, os.Args)
	if runErr != nil {
		if !errors.Is(runErr, commands.ErrReported) {
			fmt.Fprintln(os.Stderr, runErr.Error())
		}
		exitCode = 1
	}

	stop()
	os.Exit(exitCode)
}
