package app

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/jot/internal/config"
	"github.com/dshills/jot/internal/hooks"
	"github.com/dshills/jot/internal/session"
	"github.com/dshills/jot/internal/store"
	"github.com/dshills/jot/internal/store/watcher"
)

// UI drives the presentation layer. Run blocks until the user quits or
// Stop is called; a quit request surfaces as ErrQuit.
type UI interface {
	Run() error
	Stop()
}

// reloadable is implemented by stores that cache file contents and can
// re-read them from disk.
type reloadable interface {
	Reload() error
}

// Application is the central coordinator for all jot components.
// It owns the store, the session, the optional hook host and store
// watcher, and manages their lifecycles.
type Application struct {
	cfg    *config.Config
	logger *Logger
	runID  string

	store     store.Store
	storePath string
	session   *session.Session
	hooks     *hooks.Host
	watcher   *watcher.Watcher
	ui        UI

	logFile *os.File

	// configWarning is a non-fatal problem found before the logger
	// existed; logged once during bootstrap.
	configWarning error

	running   atomic.Bool
	startTime time.Time
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Options configures the application.
type Options struct {
	// ConfigPath is the path to the configuration file. Empty means the
	// default location; a missing default file is not an error.
	ConfigPath string

	// Backend overrides the configured storage backend.
	Backend string

	// StorePath overrides the configured store path.
	StorePath string

	// LogLevel overrides the configured log level.
	LogLevel string

	// LogFile overrides the configured log file.
	LogFile string

	// NoWatch disables the external-change watcher.
	NoWatch bool
}

// New creates a new Application with the given options and initializes
// all components in dependency order.
func New(opts Options) (*Application, error) {
	app := &Application{
		runID: uuid.NewString(),
		done:  make(chan struct{}),
	}

	if err := app.bootstrap(opts); err != nil {
		app.cleanup()
		return nil, err
	}

	return app, nil
}

// bootstrap initializes all components in dependency order.
func (app *Application) bootstrap(opts Options) error {
	// 1. Config
	cfg, err := app.loadConfig(opts)
	if err != nil {
		return &InitError{Component: "config", Err: err}
	}
	app.cfg = cfg

	// 2. Logger
	if err := app.initLogger(); err != nil {
		return &InitError{Component: "logger", Err: err}
	}
	if app.configWarning != nil {
		app.logger.Warn("config: %v (using defaults)", app.configWarning)
	}
	app.logger.Debug("run %s starting", app.runID)

	// 3. Store
	if err := app.initStore(); err != nil {
		return &InitError{Component: "store", Err: err}
	}

	// 4. Session
	app.session = session.New(app.store,
		session.WithLogger(app.logger.WithComponent("session")),
		session.WithPlaceholder(app.cfg.Session.Placeholder),
		session.WithHistoryLimit(app.cfg.History.MaxEntries),
	)
	app.session.Initialize()

	// 5. Hooks - a bad script disables hooks, never the app
	if script := app.cfg.Hooks.Script; script != "" {
		host, err := hooks.Load(script, hooks.WithLogger(app.logger.WithComponent("hooks")))
		if err != nil {
			app.logger.Warn("hooks disabled: %v", err)
		} else {
			app.hooks = host
			app.wireHooks()
			app.logger.Info("hooks loaded from %s", script)
		}
	}

	// 6. Watcher - only for on-disk stores, and failure is non-fatal
	if app.shouldWatch(opts) {
		if err := app.initWatcher(); err != nil {
			app.logger.Warn("external-change watching disabled: %v", err)
		}
	}

	return nil
}

// loadConfig resolves the effective configuration: file merged over
// defaults, then flag overrides, then validation. A broken config file is
// fatal only when its path was given explicitly.
func (app *Application) loadConfig(opts Options) (*config.Config, error) {
	path := opts.ConfigPath
	explicit := path != ""
	if !explicit {
		if p, err := config.DefaultConfigPath(); err == nil {
			path = p
		}
	}

	var cfg *config.Config
	if path != "" {
		loaded, err := config.Load(path)
		switch {
		case err != nil && explicit:
			return nil, err
		case err != nil:
			app.configWarning = err
		case loaded != nil:
			cfg = loaded
		}
	}
	if cfg == nil {
		cfg = config.Default()
	}

	if opts.Backend != "" {
		cfg.Storage.Backend = opts.Backend
	}
	if opts.StorePath != "" {
		cfg.Storage.Path = opts.StorePath
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.LogFile != "" {
		cfg.Log.File = opts.LogFile
	}
	if opts.NoWatch {
		cfg.Watch.Enabled = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// initLogger builds the application logger, routing to the configured
// log file when one is set.
func (app *Application) initLogger() error {
	out := io.Writer(os.Stderr)
	if path := app.cfg.Log.File; path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return err
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return err
		}
		app.logFile = f
		out = f
	}

	app.logger = NewLogger(LoggerConfig{
		Level:  ParseLogLevel(app.cfg.Log.Level),
		Output: out,
		Prefix: "jot",
	})
	return nil
}

// initStore opens the configured storage backend.
func (app *Application) initStore() error {
	backend := app.cfg.Storage.Backend

	if backend == config.BackendMemory {
		app.store = store.NewMemStore()
		app.logger.Debug("using in-memory store")
		return nil
	}

	path, err := app.cfg.Storage.ResolveStorePath()
	if err != nil {
		return err
	}
	app.storePath = path

	switch backend {
	case config.BackendFile:
		st, err := store.OpenFile(path)
		if err != nil {
			return NewOperationError("open", path, err)
		}
		if loadErr := st.LoadError(); loadErr != nil {
			app.logger.Warn("store file %s was unreadable, starting fresh: %v", path, loadErr)
		}
		app.store = st
	case config.BackendSQLite:
		st, err := store.OpenSQLite(path)
		if err != nil {
			return NewOperationError("open", path, err)
		}
		app.store = st
	default:
		return config.ErrUnknownBackend
	}

	app.logger.Debug("using %s store at %s", backend, path)
	return nil
}

// wireHooks forwards session change events to the Lua hook host.
func (app *Application) wireHooks() {
	host := app.hooks
	app.session.OnChange(func(ev session.ChangeEvent) {
		switch ev.Kind {
		case session.ChangeCommit:
			host.OnCommit(ev.OldValue, ev.NewValue)
		case session.ChangeUndo:
			host.OnUndo(ev.NewValue)
		case session.ChangeRedo:
			host.OnRedo(ev.NewValue)
		case session.ChangeClear:
			host.OnClear()
		case session.ChangeReset:
			host.OnReset()
		}
	})
}

// shouldWatch reports whether the store file watcher applies.
func (app *Application) shouldWatch(opts Options) bool {
	if opts.NoWatch || !app.cfg.Watch.Enabled {
		return false
	}
	return app.storePath != "" && app.cfg.Storage.Backend != config.BackendMemory
}

// initWatcher starts the external-change watcher over the store path.
func (app *Application) initWatcher() error {
	wopts := []watcher.Option{
		watcher.WithDebounce(app.cfg.Watch.DebounceDuration()),
	}
	if app.cfg.Storage.Backend == config.BackendSQLite {
		wopts = append(wopts, watcher.WithSiblings(filepath.Base(app.storePath)+"-wal"))
	}

	w, err := watcher.New(app.storePath, wopts...)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}

	app.watcher = w
	app.wg.Add(1)
	go app.watchLoop()

	app.logger.Debug("watching %s for external changes", app.storePath)
	return nil
}

// changeGen counts the session operations that write to the store. A
// watcher event arriving while the count moved since the last event is
// the process seeing its own save.
func changeGen(s session.Stats) int {
	return s.Commits + s.Undos + s.Redos + s.Clears + s.Resets
}

// watchLoop consumes watcher events and reloads the session when the
// store changed under us.
func (app *Application) watchLoop() {
	defer app.wg.Done()

	log := app.logger.WithComponent("watch")
	lastGen := changeGen(app.session.Stats())

	for {
		select {
		case <-app.done:
			return

		case ev, ok := <-app.watcher.Events():
			if !ok {
				return
			}
			gen := changeGen(app.session.Stats())
			if gen != lastGen {
				lastGen = gen
				log.Debug("ignoring own write to %s (%s)", ev.Path, ev.Op)
				continue
			}
			log.Info("store changed externally (%s), reloading", ev.Op)
			if r, ok := app.store.(reloadable); ok {
				if err := r.Reload(); err != nil {
					log.Warn("store reload failed: %v", err)
					continue
				}
			}
			app.session.Reload()

		case err, ok := <-app.watcher.Errors():
			if !ok {
				return
			}
			log.Warn("watch error: %v", err)
		}
	}
}

// SetUI sets the presentation layer. Must be called before Run.
func (app *Application) SetUI(ui UI) error {
	if app.running.Load() {
		return ErrAlreadyRunning
	}
	app.ui = ui
	return nil
}

// Run starts the application and blocks until shutdown is requested.
// Without a UI it idles until Shutdown, which suits tests and scripting.
func (app *Application) Run() error {
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	app.startTime = time.Now()
	app.logger.Info("run %s: backend=%s", app.runID, app.cfg.Storage.Backend)

	if app.ui == nil {
		<-app.done
		return nil
	}

	err := app.ui.Run()
	if errors.Is(err, ErrQuit) {
		return nil
	}
	return err
}

// Shutdown stops all components in reverse initialization order.
// Safe to call more than once; later calls return nil.
func (app *Application) Shutdown() error {
	var err error
	app.closeOnce.Do(func() {
		close(app.done)
		if app.ui != nil {
			app.ui.Stop()
		}
		err = app.cleanup()
		app.logger.Info("run %s finished", app.runID)
		if app.logFile != nil {
			_ = app.logFile.Close()
		}
	})
	return err
}

// cleanup releases component resources. Used by Shutdown and by New on
// a failed bootstrap, so every field may be nil.
func (app *Application) cleanup() error {
	errs := NewErrorList()

	if app.watcher != nil {
		errs.Add(app.watcher.Stop())
	}
	app.wg.Wait()

	if app.hooks != nil {
		errs.Add(app.hooks.Close())
	}
	if app.store != nil {
		errs.Add(app.store.Close())
	}

	return errs.AsError()
}

// IsRunning returns true if the application is running.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// RunID returns the unique identifier of this application run.
func (app *Application) RunID() string {
	return app.runID
}

// Config returns the effective configuration.
func (app *Application) Config() *config.Config {
	return app.cfg
}

// Logger returns the application logger.
func (app *Application) Logger() *Logger {
	return app.logger
}

// Session returns the reversible text session.
func (app *Application) Session() *session.Session {
	return app.session
}

// Store returns the active store backend.
func (app *Application) Store() store.Store {
	return app.store
}

// StorePath returns the on-disk store path, empty for the memory backend.
func (app *Application) StorePath() string {
	return app.storePath
}

// Hooks returns the Lua hook host (may be nil).
func (app *Application) Hooks() *hooks.Host {
	return app.hooks
}

// Watcher returns the store watcher (may be nil).
func (app *Application) Watcher() *watcher.Watcher {
	return app.watcher
}
