package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dshills/jot/internal/config"
	"github.com/dshills/jot/internal/session"
	"github.com/dshills/jot/internal/store"
)

// testOptions returns isolated Options: an absent config file inside a
// temp dir so the user's real config never leaks into tests, memory
// storage, and no watcher.
func testOptions(t *testing.T) Options {
	t.Helper()

	return Options{
		ConfigPath: filepath.Join(t.TempDir(), "absent.toml"),
		Backend:    config.BackendMemory,
		NoWatch:    true,
		LogFile:    filepath.Join(t.TempDir(), "jot.log"),
	}
}

// newTestApp builds an Application and registers shutdown cleanup.
func newTestApp(t *testing.T, opts Options) *Application {
	t.Helper()

	a, err := New(opts)
	if err != nil {
		t.Fatalf("New error = %v", err)
	}
	t.Cleanup(func() { _ = a.Shutdown() })
	return a
}

// waitFor polls cond until it holds or the timeout elapses.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

// stubUI is a UI that blocks until stopped.
type stubUI struct {
	stop chan struct{}
}

func newStubUI() *stubUI {
	return &stubUI{stop: make(chan struct{})}
}

func (u *stubUI) Run() error {
	<-u.stop
	return ErrQuit
}

func (u *stubUI) Stop() {
	select {
	case <-u.stop:
	default:
		close(u.stop)
	}
}

func TestNewMemoryBackend(t *testing.T) {
	a := newTestApp(t, testOptions(t))

	if a.RunID() == "" {
		t.Error("RunID should be set")
	}
	if a.Session() == nil {
		t.Fatal("Session should be initialized")
	}
	if a.Store() == nil {
		t.Fatal("Store should be initialized")
	}
	if a.Watcher() != nil {
		t.Error("memory backend should not start a watcher")
	}
	if a.StorePath() != "" {
		t.Errorf("StorePath = %q, want empty for memory", a.StorePath())
	}

	if err := a.Shutdown(); err != nil {
		t.Errorf("Shutdown error = %v", err)
	}
}

func TestNewFileBackendPersistsAcrossRestart(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "jot.json")

	opts := testOptions(t)
	opts.Backend = config.BackendFile
	opts.StorePath = storePath

	a := newTestApp(t, opts)
	a.Session().Commit("remember me")
	if err := a.Shutdown(); err != nil {
		t.Fatalf("Shutdown error = %v", err)
	}

	if _, err := os.Stat(storePath); err != nil {
		t.Fatalf("store file missing: %v", err)
	}

	b := newTestApp(t, opts)
	if got := b.Session().Value(); got != "remember me" {
		t.Errorf("Value after restart = %q, want %q", got, "remember me")
	}
	if !b.Session().CanUndo() {
		t.Error("history should be reconstructed after restart")
	}
}

func TestConfigFileLoaded(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	body := `
[storage]
backend = "memory"

[session]
placeholder = "scratch away"

[log]
level = "debug"
`
	if err := os.WriteFile(cfgPath, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	a := newTestApp(t, Options{
		ConfigPath: cfgPath,
		NoWatch:    true,
		LogFile:    filepath.Join(dir, "jot.log"),
	})

	cfg := a.Config()
	if cfg.Storage.Backend != config.BackendMemory {
		t.Errorf("Backend = %q, want memory", cfg.Storage.Backend)
	}
	if cfg.Session.Placeholder != "scratch away" {
		t.Errorf("Placeholder = %q", cfg.Session.Placeholder)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Log.Level)
	}
}

func TestExplicitConfigParseErrorIsFatal(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(cfgPath, []byte("not [valid toml"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := New(Options{ConfigPath: cfgPath})
	if err == nil {
		t.Fatal("broken explicit config should be fatal")
	}
	var initErr *InitError
	if !errors.As(err, &initErr) || initErr.Component != "config" {
		t.Errorf("error = %v, want InitError for config", err)
	}
}

func TestUnknownBackendRejected(t *testing.T) {
	opts := testOptions(t)
	opts.Backend = "carrier-pigeon"

	_, err := New(opts)
	if !errors.Is(err, config.ErrUnknownBackend) {
		t.Errorf("error = %v, want ErrUnknownBackend", err)
	}
}

func TestLogFileWritten(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "jot.log")

	opts := testOptions(t)
	opts.LogFile = logPath

	a := newTestApp(t, opts)
	a.Logger().Info("breadcrumb")
	_ = a.Shutdown()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("log file not created: %v", err)
	}
	if len(data) == 0 {
		t.Error("log file should not be empty")
	}
}

func TestHooksWiredToSession(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "hooks.lua")
	body := `
		function on_commit(old, new) end
		function on_clear() end
	`
	if err := os.WriteFile(script, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "config.toml")
	cfgBody := "[storage]\nbackend = \"memory\"\n\n[hooks]\nscript = " + tomlString(script) + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfgBody), 0o600); err != nil {
		t.Fatal(err)
	}

	a := newTestApp(t, Options{
		ConfigPath: cfgPath,
		NoWatch:    true,
		LogFile:    filepath.Join(dir, "jot.log"),
	})

	if a.Hooks() == nil {
		t.Fatal("hooks should be loaded")
	}

	a.Session().Commit("one")
	a.Session().ClearContent()

	stats := a.Hooks().Stats()
	if stats.Calls != 2 {
		t.Errorf("hook Calls = %d, want 2", stats.Calls)
	}
	if stats.Failures != 0 {
		t.Errorf("hook Failures = %d, want 0", stats.Failures)
	}
}

// tomlString quotes a path for embedding in TOML, escaping backslashes.
func tomlString(s string) string {
	out := ""
	for _, r := range s {
		if r == '\\' || r == '"' {
			out += "\\"
		}
		out += string(r)
	}
	return `"` + out + `"`
}

func TestBadHookScriptNonFatal(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "hooks.lua")
	if err := os.WriteFile(script, []byte("function broken( !!!"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "config.toml")
	cfgBody := "[storage]\nbackend = \"memory\"\n\n[hooks]\nscript = " + tomlString(script) + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfgBody), 0o600); err != nil {
		t.Fatal(err)
	}

	a := newTestApp(t, Options{
		ConfigPath: cfgPath,
		NoWatch:    true,
		LogFile:    filepath.Join(dir, "jot.log"),
	})

	if a.Hooks() != nil {
		t.Error("broken script should disable hooks, not load them")
	}
	if a.Session() == nil {
		t.Error("application should still come up without hooks")
	}
}

func TestWatcherLifecycle(t *testing.T) {
	opts := testOptions(t)
	opts.Backend = config.BackendFile
	opts.StorePath = filepath.Join(t.TempDir(), "jot.json")
	opts.NoWatch = false

	a := newTestApp(t, opts)

	w := a.Watcher()
	if w == nil {
		t.Fatal("file backend should start a watcher")
	}
	if !w.Running() {
		t.Error("watcher should be running")
	}

	if err := a.Shutdown(); err != nil {
		t.Fatalf("Shutdown error = %v", err)
	}
	if w.Running() {
		t.Error("watcher should stop on shutdown")
	}
}

func TestNoWatchDisablesWatcher(t *testing.T) {
	opts := testOptions(t)
	opts.Backend = config.BackendFile
	opts.StorePath = filepath.Join(t.TempDir(), "jot.json")
	opts.NoWatch = true

	a := newTestApp(t, opts)
	if a.Watcher() != nil {
		t.Error("NoWatch should disable the watcher")
	}
}

func TestExternalChangeReloadsSession(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "jot.json")

	opts := testOptions(t)
	opts.Backend = config.BackendFile
	opts.StorePath = storePath
	opts.NoWatch = false

	a := newTestApp(t, opts)
	a.Session().Commit("mine")

	// Let the watcher see and discard our own save.
	time.Sleep(400 * time.Millisecond)

	if got := a.Session().Stats().Reloads; got != 0 {
		t.Fatalf("Reloads after own write = %d, want 0", got)
	}

	// Another process rewrites the store.
	other, err := store.OpenFile(storePath)
	if err != nil {
		t.Fatalf("OpenFile error = %v", err)
	}
	if err := other.Set(session.ContentKey, "theirs"); err != nil {
		t.Fatalf("Set error = %v", err)
	}
	other.Close()

	if !waitFor(3*time.Second, func() bool {
		return a.Session().Value() == "theirs"
	}) {
		t.Fatalf("session did not pick up external change, value = %q", a.Session().Value())
	}
	if got := a.Session().Stats().Reloads; got == 0 {
		t.Error("Reloads should be counted")
	}
}

func TestChangeGen(t *testing.T) {
	stats := session.Stats{Commits: 2, Undos: 1, Redos: 1, Clears: 1, Resets: 1, Reloads: 9}
	if got := changeGen(stats); got != 6 {
		t.Errorf("changeGen = %d, want 6 (reloads excluded)", got)
	}
}

func TestRunHeadless(t *testing.T) {
	a := newTestApp(t, testOptions(t))

	done := make(chan error, 1)
	go func() { done <- a.Run() }()

	if !waitFor(time.Second, a.IsRunning) {
		t.Fatal("application should report running")
	}

	if err := a.Run(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run error = %v, want ErrAlreadyRunning", err)
	}

	if err := a.Shutdown(); err != nil {
		t.Fatalf("Shutdown error = %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Shutdown")
	}
}

func TestRunWithUI(t *testing.T) {
	a := newTestApp(t, testOptions(t))

	ui := newStubUI()
	if err := a.SetUI(ui); err != nil {
		t.Fatalf("SetUI error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- a.Run() }()

	if !waitFor(time.Second, a.IsRunning) {
		t.Fatal("application should report running")
	}

	if err := a.Shutdown(); err != nil {
		t.Fatalf("Shutdown error = %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run after UI quit = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Shutdown")
	}
}

func TestShutdownIdempotent(t *testing.T) {
	a := newTestApp(t, testOptions(t))

	if err := a.Shutdown(); err != nil {
		t.Errorf("Shutdown error = %v", err)
	}
	if err := a.Shutdown(); err != nil {
		t.Errorf("second Shutdown error = %v", err)
	}
}

func TestStatus(t *testing.T) {
	a := newTestApp(t, testOptions(t))
	a.Session().Commit("x")

	st := a.Status()
	if st.RunID != a.RunID() {
		t.Error("Status.RunID mismatch")
	}
	if st.Backend != config.BackendMemory {
		t.Errorf("Status.Backend = %q", st.Backend)
	}
	if st.Session.Commits != 1 {
		t.Errorf("Status.Session.Commits = %d, want 1", st.Session.Commits)
	}
	if st.WatchActive {
		t.Error("Status.WatchActive should be false for memory backend")
	}
	if st.HooksLoaded {
		t.Error("Status.HooksLoaded should be false without a script")
	}
}
