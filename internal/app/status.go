package app

import (
	"time"

	"github.com/dshills/jot/internal/hooks"
	"github.com/dshills/jot/internal/session"
	"github.com/dshills/jot/internal/store/watcher"
)

// Status is a point-in-time view of the running application.
type Status struct {
	// RunID identifies this application run.
	RunID string

	// Uptime is the time since Run started, zero before that.
	Uptime time.Duration

	// Backend is the active storage backend name.
	Backend string

	// StorePath is the on-disk store path, empty for memory.
	StorePath string

	// Session holds the session counters and depths.
	Session session.Stats

	// WatchActive reports whether the external-change watcher runs.
	WatchActive bool

	// Watch holds watcher counters when WatchActive.
	Watch watcher.Stats

	// HooksLoaded reports whether a Lua hook script is loaded.
	HooksLoaded bool

	// Hooks holds hook counters when HooksLoaded.
	Hooks hooks.Stats
}

// Status assembles the current application status from its components.
func (app *Application) Status() Status {
	st := Status{
		RunID:     app.runID,
		Backend:   app.cfg.Storage.Backend,
		StorePath: app.storePath,
		Session:   app.session.Stats(),
	}

	if !app.startTime.IsZero() {
		st.Uptime = time.Since(app.startTime)
	}
	if app.watcher != nil {
		st.WatchActive = app.watcher.Running()
		st.Watch = app.watcher.Stats()
	}
	if app.hooks != nil {
		st.HooksLoaded = true
		st.Hooks = app.hooks.Stats()
	}

	return st
}
