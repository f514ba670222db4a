package store

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// fileDocument is the root structure of the store file.
type fileDocument struct {
	Version int               `json:"version"`
	SavedAt time.Time         `json:"saved_at"`
	Entries map[string]string `json:"entries"`
}

const fileVersion = 1

// FileStore implements Store as a single JSON document on disk.
// Every mutation rewrites the whole document atomically using a
// temporary file and rename, so a crash mid-write leaves the previous
// document intact.
//
// FileStore is safe for concurrent use.
type FileStore struct {
	mu      sync.Mutex
	path    string
	perm    fs.FileMode
	entries map[string]string
	loadErr error
	closed  bool
}

// FileOption configures a FileStore during open.
type FileOption func(*FileStore)

// WithFilePerm sets the permission bits used when writing the store
// file. The default is 0600.
func WithFilePerm(perm fs.FileMode) FileOption {
	return func(f *FileStore) {
		f.perm = perm
	}
}

// Ensure FileStore implements Store.
var _ Store = (*FileStore)(nil)

// OpenFile opens or creates the file store at path. A missing file is
// the legitimate first-run state and yields an empty store. A document
// that exists but cannot be parsed also yields an empty store; the
// parse failure is retained and reported by LoadError so the caller can
// log it. Only an unreadable file or an unsupported version is a hard
// error.
func OpenFile(path string, opts ...FileOption) (*FileStore, error) {
	f := &FileStore{
		path:    path,
		perm:    0o600,
		entries: make(map[string]string),
	}
	for _, opt := range opts {
		opt(f)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, fmt.Errorf("read store file: %w", err)
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		f.loadErr = fmt.Errorf("parse store file %s: %w", path, err)
		return f, nil
	}
	if doc.Version > fileVersion {
		return nil, fmt.Errorf("unsupported store file version: %d (max supported: %d)",
			doc.Version, fileVersion)
	}

	if doc.Entries != nil {
		f.entries = doc.Entries
	}
	return f, nil
}

// LoadError returns the parse failure absorbed during OpenFile, or nil
// if the document loaded cleanly.
func (f *FileStore) LoadError() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadErr
}

// Path returns the store file path.
func (f *FileStore) Path() string {
	return f.path
}

// Get returns the value stored under key.
func (f *FileStore) Get(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return "", &StoreError{Op: "get", Key: key, Err: ErrClosed}
	}
	v, ok := f.entries[key]
	if !ok {
		return "", &StoreError{Op: "get", Key: key, Err: ErrNotFound}
	}
	return v, nil
}

// Set stores value under key and rewrites the document.
func (f *FileStore) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return &StoreError{Op: "set", Key: key, Err: ErrClosed}
	}
	f.entries[key] = value
	if err := f.persistLocked(); err != nil {
		return &StoreError{Op: "set", Key: key, Err: err}
	}
	return nil
}

// Remove deletes the value stored under key and rewrites the document.
func (f *FileStore) Remove(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return &StoreError{Op: "remove", Key: key, Err: ErrClosed}
	}
	if _, ok := f.entries[key]; !ok {
		return nil
	}
	delete(f.entries, key)
	if err := f.persistLocked(); err != nil {
		return &StoreError{Op: "remove", Key: key, Err: err}
	}
	return nil
}

// Reload re-reads the document from disk, replacing the in-memory
// entries. Used when another process rewrote the file. A missing file
// means the store was cleared externally and yields an empty store; a
// document that cannot be parsed leaves the current entries in place
// and returns the error.
func (f *FileStore) Reload() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return &StoreError{Op: "reload", Err: ErrClosed}
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			f.entries = make(map[string]string)
			return nil
		}
		return &StoreError{Op: "reload", Err: err}
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return &StoreError{Op: "reload", Err: err}
	}
	if doc.Version > fileVersion {
		return &StoreError{Op: "reload", Err: fmt.Errorf("unsupported store file version: %d (max supported: %d)",
			doc.Version, fileVersion)}
	}

	f.entries = make(map[string]string)
	if doc.Entries != nil {
		f.entries = doc.Entries
	}
	return nil
}

// Close marks the store closed. The document on disk already reflects
// the last successful mutation; nothing more is written.
func (f *FileStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	return nil
}

// persistLocked writes the document atomically. Callers must hold mu.
func (f *FileStore) persistLocked() error {
	doc := fileDocument{
		Version: fileVersion,
		SavedAt: time.Now(),
		Entries: f.entries,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store file: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	tempPath := f.path + ".tmp"
	if err := os.WriteFile(tempPath, data, f.perm); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tempPath, f.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
