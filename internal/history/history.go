// Package history remembers where each document was last left off.
package history

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"time"

	"github.com/google/renameio"
	"github.com/npillmayer/schuko/tracing"
)

// FileName is the name of the history file in the config directory.
const FileName = "history.json"

// MaxEntries bounds the number of remembered documents; the least recently
// viewed are dropped first.
const MaxEntries = 200

func tracer() tracing.Trace {
	return tracing.Select("mdkit.history")
}

// Entry is the saved state of one document.
type Entry struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	Offset     int       `json:"offset"`
	Query      string    `json:"query,omitempty"`
	LastViewed time.Time `json:"lastViewed"`
}

// History holds the entries of a config directory.
type History struct {
	Entries []*Entry `json:"entries"`

	path string
}

// DocumentID derives a stable ID from a document's absolute path.
func DocumentID(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	h := sha256.Sum256([]byte(path))
	return fmt.Sprintf("%x", h[:])[:16]
}

// Load reads the history from configDir. A missing file yields an empty
// history.
func Load(configDir string) (*History, error) {
	h := &History{path: filepath.Join(configDir, FileName)}

	data, err := os.ReadFile(h.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return h, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, h); err != nil {
		return nil, fmt.Errorf("%s: %w", h.path, err)
	}
	h.Entries = slices.DeleteFunc(h.Entries, func(e *Entry) bool { return e == nil })
	return h, nil
}

// Get returns the entry for path, if there is one.
func (h *History) Get(path string) (*Entry, bool) {
	id := DocumentID(path)
	for _, e := range h.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}

// Record stores the state of path, replacing an earlier entry.
func (h *History) Record(path string, offset int, query string, now time.Time) {
	e, ok := h.Get(path)
	if !ok {
		e = &Entry{ID: DocumentID(path)}
		h.Entries = append(h.Entries, e)
	}
	e.Path = path
	e.Offset = offset
	e.Query = query
	e.LastViewed = now
}

// Save writes the history back, keeping the MaxEntries most recent entries.
func (h *History) Save() error {
	sort.SliceStable(h.Entries, func(i, j int) bool {
		return h.Entries[i].LastViewed.After(h.Entries[j].LastViewed)
	})
	if len(h.Entries) > MaxEntries {
		h.Entries = h.Entries[:MaxEntries]
	}

	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(h.path, data, 0o644); err != nil {
		return err
	}
	tracer().Debugf("history: saved %d entries to %s", len(h.Entries), h.path)
	return nil
}
