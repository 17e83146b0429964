package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// File keeps one JSON document per origin under a directory. Every call
// re-reads the document so writes from other processes are visible, and
// concurrent writers follow last-writer-wins.
type File struct {
	mu   sync.Mutex
	path string

	// document as of the last reload, plus this process's own writes. Keys
	// changed by others since then stay stale so reload reports them.
	known map[string]string
}

// NewFile opens (creating if needed) the storage document for origin under dir.
func NewFile(dir, origin string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	f := &File{path: filepath.Join(dir, documentName(origin))}

	doc, err := f.read()
	if err != nil {
		return nil, err
	}
	f.known = doc
	return f, nil
}

// Path returns the document location
func (f *File) Path() string {
	return f.path
}

func (f *File) GetItem(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return "", false, err
	}
	value, ok := doc[key]
	return value, ok, nil
}

func (f *File) SetItem(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return err
	}
	doc[key] = value
	if err := f.write(doc); err != nil {
		return err
	}
	f.known[key] = value
	return nil
}

func (f *File) RemoveItem(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := doc[key]; !ok {
		return nil
	}
	delete(doc, key)
	if err := f.write(doc); err != nil {
		return err
	}
	delete(f.known, key)
	return nil
}

// reload re-reads the document and reports keys that differ from what this
// process last saw.
func (f *File) reload() ([]Change, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return nil, err
	}
	changes := diff(f.known, doc)
	f.known = doc
	return changes, nil
}

func (f *File) read() (map[string]string, error) {
	doc := make(map[string]string)
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read storage: %w", err)
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode storage document: %w", err)
	}
	return doc, nil
}

func (f *File) write(doc map[string]string) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".storage-*")
	if err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write storage: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write storage: %w", err)
	}
	return nil
}

func diff(before, after map[string]string) []Change {
	var changes []Change
	for k, old := range before {
		if cur, ok := after[k]; !ok {
			changes = append(changes, Change{Key: k, OldValue: old})
		} else if cur != old {
			changes = append(changes, Change{Key: k, OldValue: old, NewValue: cur})
		}
	}
	for k, cur := range after {
		if _, ok := before[k]; !ok {
			changes = append(changes, Change{Key: k, NewValue: cur})
		}
	}
	return changes
}

func documentName(origin string) string {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		origin = "default"
	}
	r := strings.NewReplacer("://", "_", "/", "_", ":", "_", "\\", "_")
	return r.Replace(origin) + ".json"
}
