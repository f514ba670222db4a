package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "jot.json")

	fs, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile error: %v", err)
	}
	if fs.LoadError() != nil {
		t.Errorf("LoadError = %v, want nil", fs.LoadError())
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("open alone should not create the file")
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jot.json")

	fs, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile error: %v", err)
	}
	if err := fs.Set("content", "hello"); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if err := fs.Set("history", `["","hello"]`); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	fs.Close()

	reopened, err := OpenFile(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	got, err := reopened.Get("history")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got != `["","hello"]` {
		t.Errorf("Get = %q, want journal blob", got)
	}
}

func TestFileStoreRemovePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jot.json")

	fs, _ := OpenFile(path)
	fs.Set("content", "hello")
	fs.Remove("content")
	fs.Close()

	reopened, err := OpenFile(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	if _, err := reopened.Get("content"); err == nil {
		t.Error("removed key should stay removed across reopen")
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jot.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	fs, err := OpenFile(path)
	if err != nil {
		t.Fatalf("corrupt file should not be a hard error, got %v", err)
	}
	if fs.LoadError() == nil {
		t.Error("LoadError should report the parse failure")
	}
	if _, err := fs.Get("content"); err == nil {
		t.Error("corrupt store should start empty")
	}

	// The store remains usable and the next write replaces the
	// damaged document.
	if err := fs.Set("content", "fresh"); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	reopened, err := OpenFile(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	if reopened.LoadError() != nil {
		t.Errorf("rewritten document should parse, LoadError = %v", reopened.LoadError())
	}
}

func TestFileStoreUnsupportedVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jot.json")
	doc := `{"version": 99, "entries": {}}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := OpenFile(path); err == nil {
		t.Error("future version should be a hard error")
	} else if !strings.Contains(err.Error(), "version") {
		t.Errorf("error should mention version, got %v", err)
	}
}

func TestFileStoreNoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jot.json")

	fs, _ := OpenFile(path)
	fs.Set("content", "a")
	fs.Set("content", "b")

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestFileStoreReloadPicksUpExternalWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jot.json")

	fs, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile error: %v", err)
	}
	if err := fs.Set("content", "mine"); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	// Another process rewrites the file.
	other, err := OpenFile(path)
	if err != nil {
		t.Fatalf("second OpenFile error: %v", err)
	}
	if err := other.Set("content", "theirs"); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	other.Close()

	// Cached view stays stale until Reload.
	got, _ := fs.Get("content")
	if got != "mine" {
		t.Fatalf("Get before Reload = %q, want %q", got, "mine")
	}
	if err := fs.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}
	got, err = fs.Get("content")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got != "theirs" {
		t.Errorf("Get after Reload = %q, want %q", got, "theirs")
	}
}

func TestFileStoreReloadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jot.json")

	fs, _ := OpenFile(path)
	fs.Set("content", "here")

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := fs.Reload(); err != nil {
		t.Fatalf("Reload of deleted file error: %v", err)
	}
	if _, err := fs.Get("content"); err == nil {
		t.Error("entries should be empty after reloading a deleted file")
	}
}

func TestFileStoreReloadCorruptKeepsCurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jot.json")

	fs, _ := OpenFile(path)
	fs.Set("content", "good")

	if err := os.WriteFile(path, []byte("{torn write"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := fs.Reload(); err == nil {
		t.Fatal("Reload of corrupt file should return error")
	}

	got, err := fs.Get("content")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got != "good" {
		t.Errorf("Get = %q, current entries should survive a failed reload", got)
	}
}

func TestFileStoreReloadClosed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jot.json")

	fs, _ := OpenFile(path)
	fs.Close()

	if err := fs.Reload(); err == nil {
		t.Error("Reload after Close should return error")
	}
}

func TestFileStorePerm(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jot.json")

	fs, err := OpenFile(path, WithFilePerm(0o644))
	if err != nil {
		t.Fatalf("OpenFile error: %v", err)
	}
	if err := fs.Set("content", "x"); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("perm = %o, want 644", info.Mode().Perm())
	}
}
