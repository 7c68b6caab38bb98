// Package artifact stores the raw files produced by model runs.
package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound is returned when an artifact key does not exist.
var ErrNotFound = errors.New("artifact not found")

// Sink is a blob store addressed by slash separated keys.
type Sink interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) bool
	Remove(ctx context.Context, key string) error
}

// Key joins parts into a slash separated artifact key.
func Key(parts ...string) string {
	return path.Join(parts...)
}

// cleanKey rejects keys that could escape the sink root.
func cleanKey(key string) (string, error) {
	if key == "" {
		return "", errors.New("artifact key is required")
	}
	clean := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))[1:]
	if clean == "" || clean != strings.TrimPrefix(key, "/") {
		return "", fmt.Errorf("invalid artifact key %q", key)
	}
	return clean, nil
}

// LocalFS stores artifacts below Root on the local filesystem.
type LocalFS struct {
	Root string
}

func (l LocalFS) abs(key string) (string, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.Root, filepath.FromSlash(clean)), nil
}

// Put writes r to key. The file appears atomically via rename.
func (l LocalFS) Put(_ context.Context, key string, r io.Reader) (err error) {
	abs, err := l.abs(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	f, err := os.CreateTemp(filepath.Dir(abs), ".tmp-"+filepath.Base(abs)+"-*")
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()
	if _, err = io.Copy(f, r); err != nil {
		return errors.Join(fmt.Errorf("write artifact %s: %w", key, err), f.Close())
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close artifact %s: %w", key, err)
	}
	if err = os.Rename(f.Name(), abs); err != nil {
		return fmt.Errorf("publish artifact %s: %w", key, err)
	}
	return nil
}

// Open returns a reader for key or ErrNotFound.
func (l LocalFS) Open(_ context.Context, key string) (io.ReadCloser, error) {
	abs, err := l.abs(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("open artifact %s: %w", key, err)
	}
	return f, nil
}

// Exists reports whether key is present.
func (l LocalFS) Exists(_ context.Context, key string) bool {
	abs, err := l.abs(key)
	if err != nil {
		return false
	}
	_, err = os.Stat(abs)
	return err == nil
}

// Remove deletes key. Missing keys are not an error.
func (l LocalFS) Remove(_ context.Context, key string) error {
	abs, err := l.abs(key)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove artifact %s: %w", key, err)
	}
	return nil
}

// Memory is an in-process Sink for tests and ephemeral deployments.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemory creates an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

// Put stores a copy of r under key.
func (m *Memory) Put(_ context.Context, key string, r io.Reader) error {
	clean, err := cleanKey(key)
	if err != nil {
		return err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read artifact %s: %w", key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[clean] = b
	return nil
}

// Open returns a reader over the stored bytes or ErrNotFound.
func (m *Memory) Open(_ context.Context, key string) (io.ReadCloser, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[clean]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

// Exists reports whether key is present.
func (m *Memory) Exists(_ context.Context, key string) bool {
	clean, err := cleanKey(key)
	if err != nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blobs[clean]
	return ok
}

// Remove deletes key.
func (m *Memory) Remove(_ context.Context, key string) error {
	clean, err := cleanKey(key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, clean)
	return nil
}

// Keys lists stored keys in sorted order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.blobs))
	for k := range m.blobs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
