// Package hive assembles the coordination components into a running
// application and exposes them to agents through the Toolkit.
package hive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/comb/internal/core/claims"
	"github.com/colonyops/comb/internal/core/config"
	"github.com/colonyops/comb/internal/core/eventbus"
	"github.com/colonyops/comb/internal/core/hooks"
	"github.com/colonyops/comb/internal/core/mailbox"
	"github.com/colonyops/comb/internal/core/todo"
	"github.com/colonyops/comb/internal/core/workitem"
	"github.com/colonyops/comb/internal/data/db"
	"github.com/colonyops/comb/internal/data/stores"
	"github.com/colonyops/comb/internal/hive/sweep"
	"github.com/colonyops/comb/internal/integration/human"
	"github.com/colonyops/comb/internal/integration/terminal"
	"github.com/colonyops/comb/internal/metrics"
	"github.com/colonyops/comb/internal/store/fswatch"
	"github.com/colonyops/comb/pkg/clock"
	"github.com/colonyops/comb/pkg/executil"
)

// Options holds the explicit dependencies of an App. Only Config is
// required; nil collaborators get their terminal-backed defaults.
type Options struct {
	Config *config.Config
	// ConfigPath is re-read by ReloadHooks. Empty keeps the hooks of Config.
	ConfigPath string
	Logger     zerolog.Logger
	Clock      clock.Clock
	Human      hooks.HumanChannel
	Executor   executil.Executor
	// WorkDir is the default cwd of runCommand actions.
	WorkDir string
}

// App is the central entry point for all comb operations.
// Commands and hosts consume App instead of cherry-picking raw dependencies.
type App struct {
	Config    *config.Config
	Bus       *eventbus.EventBus
	Claims    *claims.Registry
	Mailbox   *mailbox.Mailbox
	WorkItems *workitem.Store
	Todos     *todo.Reconciler
	Hooks     *hooks.Engine
	Journal   *stores.HookRunStore
	DB        *db.DB
	Metrics   *metrics.Recorder
	Toolkit   *Toolkit

	clock clock.Clock

	log zerolog.Logger
	// run is shared by copies of the App so a pre-allocated App can be
	// populated by value.
	run *lifecycle
}

type lifecycle struct {
	mu      sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	watcher *fswatch.Watcher
}

// NewApp constructs every component and wires them together. Nothing runs
// until Start.
func NewApp(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("app config is required")
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	log := opts.Logger

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	database, err := openJournal(cfg, opts.Clock.Now(), log)
	if err != nil {
		return nil, err
	}

	bus := eventbus.New(cfg.EventBuffer)
	fwd := eventbus.NewForwarder(bus)

	if opts.Human == nil {
		opts.Human = human.New(human.Options{}, log)
	}
	if opts.Executor == nil {
		opts.Executor = executil.RealExecutor{}
	}

	app := &App{
		Config: cfg,
		Bus:    bus,
		DB:     database,
		clock:  opts.Clock,
		log:    log.With().Str("component", "app").Logger(),
		run:    &lifecycle{},
	}

	app.Claims = claims.NewRegistry(log, claims.Options{
		Clock:      opts.Clock,
		Observer:   fwd,
		DefaultTTL: cfg.Claims.DefaultTTL,
	})
	app.Mailbox = mailbox.New(cfg.MessagesDir(), log, mailbox.Options{
		Clock:    opts.Clock,
		Observer: fwd,
	})
	app.WorkItems = workitem.NewStore(cfg.WorkItemsDir(), log, workitem.Options{
		Clock:    opts.Clock,
		Observer: fwd,
	})
	app.Todos = todo.NewReconciler(log, todo.Options{
		Clock:        opts.Clock,
		Observer:     fwd,
		RemovalDelay: cfg.Todos.RemovalDelay,
	})
	app.Journal = stores.NewHookRunStore(database)
	app.Hooks = hooks.NewEngine(log, hooks.Options{
		Loader:        hookLoader(cfg, opts.ConfigPath),
		Mailbox:       app.Mailbox,
		Human:         opts.Human,
		Runner:        terminal.NewRunner(opts.Executor, opts.WorkDir, log),
		Journal:       app.Journal,
		Observer:      fwd,
		Clock:         opts.Clock,
		PromptTimeout: cfg.HookSettings.PromptTimeout,
		Vars:          cfg.HookVars(),
	})
	app.Metrics = metrics.NewRecorder()
	app.Toolkit = NewToolkit(app)

	eventbus.RegisterDebugLogger(bus, log.With().Str("component", "eventbus").Logger())
	eventbus.NewNotificationRouter(bus).Register()
	app.Metrics.Subscribe(bus)
	app.bridge()

	return app, nil
}

// openJournal opens the hook journal database. A corrupt database is moved
// aside and recreated once.
func openJournal(cfg *config.Config, now time.Time, log zerolog.Logger) (*db.DB, error) {
	path := cfg.DatabaseFile()
	opts := db.OpenOptions{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		BusyTimeout:  cfg.Database.BusyTimeout,
	}

	database, err := db.Open(path, opts, log)
	if err == nil {
		return database, nil
	}
	if !stores.IsCorrupt(err) {
		return nil, fmt.Errorf("open hook journal: %w", err)
	}

	backup, rerr := stores.MoveAside(path, now)
	if rerr != nil {
		return nil, fmt.Errorf("recover hook journal: %w", rerr)
	}
	log.Warn().Err(err).Str("path", path).Str("backup", backup).Msg("hook journal is corrupt, starting a fresh one")
	database, err = db.Open(path, opts, log)
	if err != nil {
		return nil, fmt.Errorf("open hook journal: %w", err)
	}
	return database, nil
}

// hookLoader reads hooks from configPath on every load so ReloadHooks picks
// up edits. Without a path the hooks of cfg are served as-is.
func hookLoader(cfg *config.Config, configPath string) hooks.Loader {
	if configPath == "" {
		return hooks.Static(cfg.Hooks)
	}
	return func(context.Context) ([]hooks.Hook, error) {
		fresh, err := config.Load(configPath, cfg.DataDir)
		if err != nil {
			return nil, err
		}
		return fresh.Hooks, nil
	}
}

// Start initializes the persisted components, loads hooks and starts the
// background workers. The workers stop when ctx is cancelled or Close is
// called.
func (a *App) Start(ctx context.Context) error {
	r := a.run
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errors.New("app is closed")
	}
	if r.started {
		return nil
	}

	if err := a.Mailbox.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize mailbox: %w", err)
	}
	if err := a.WorkItems.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize work items: %w", err)
	}
	if err := a.Hooks.Load(ctx); err != nil {
		return err
	}
	a.pruneJournal(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		a.Bus.Start(runCtx)
	}()
	go func() {
		defer r.wg.Done()
		sweep.Start(runCtx, a.Claims, a.Config.Claims.SweepInterval, a.log)
	}()

	if a.Config.Watch {
		dir := a.Mailbox.Dir()
		w, err := fswatch.New(a.log, fswatch.DefaultDebounce, func(ctx context.Context) {
			if err := a.Mailbox.Reload(ctx); err != nil {
				a.log.Warn().Err(err).Msg("mailbox reload failed")
			}
		}, filepath.Join(dir, "inbox"), filepath.Join(dir, "archive"))
		if err != nil {
			cancel()
			r.wg.Wait()
			return fmt.Errorf("watch mailbox: %w", err)
		}
		r.watcher = w
	}

	r.started = true
	a.log.Info().
		Str("data_dir", a.Config.DataDir).
		Int("hooks", len(a.Hooks.Hooks())).
		Msg("started")
	return nil
}

// pruneJournal drops hook runs older than the configured retention. A
// failure only costs disk space, so it is logged and ignored.
func (a *App) pruneJournal(ctx context.Context) {
	retention := a.Config.HookSettings.HistoryRetention
	if retention <= 0 {
		return
	}
	n, err := a.Journal.Prune(ctx, a.clock.Now().Add(-retention))
	if err != nil {
		a.log.Warn().Err(err).Msg("pruning hook journal")
		return
	}
	if n > 0 {
		a.log.Debug().Int64("pruned", n).Msg("pruned hook journal")
	}
}

// Close stops the watcher and pending todo removals, lets queued events and
// the hooks they trigger finish, then stops the background workers and
// closes the journal.
func (a *App) Close() error {
	r := a.run
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	if r.watcher != nil {
		if err := r.watcher.Close(); err != nil {
			a.log.Warn().Err(err).Msg("closing watcher")
		}
		r.watcher = nil
	}
	a.Todos.Close()

	if r.started {
		a.settle(context.Background())
	}
	a.Hooks.Close()

	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.wg.Wait()

	return a.DB.Close()
}

// settle delivers queued events and waits for the hooks they dispatch.
// Events produced by those hooks get one more round; anything later is
// dropped by the closing engine.
func (a *App) settle(ctx context.Context) {
	for range 2 {
		a.Bus.Flush(ctx)
		a.Hooks.Wait()
	}
	a.Bus.Flush(ctx)
}
