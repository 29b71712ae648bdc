// Package state persists the session's state document as a single JSON
// file with atomic replace semantics.
package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Recognized document keys.
const (
	KeyWorkdir     = "workdir"
	KeyPrimaryFile = "primary_file"
	KeyFiles       = "files"
	KeyUpdatedAt   = "updated_at"
)

// Store reads and writes the state document at a fixed path.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the location of the state document.
func (s *Store) Path() string {
	return s.path
}

// Load returns the persisted document. A missing or unreadable document
// degrades to an empty map; it never fails the caller.
func (s *Store) Load() map[string]any {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Failed to load state", "path", s.path, "error", err)
		}
		return map[string]any{}
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Warn("Failed to parse state", "path", s.path, "error", err)
		return map[string]any{}
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc
}

// Save writes the document atomically: the serialized form goes to a
// temporary sibling first, then renames over the target. A failed write
// leaves the previous document untouched.
func (s *Store) Save(doc map[string]any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing state: %w", err)
	}
	return nil
}

// Timestamp returns the value stored under updated_at for the current
// moment.
func Timestamp() string {
	return time.Now().Format(time.RFC3339)
}

// StringSlice coerces a loaded document value back into a string slice.
// JSON round-trips turn slices into []any, so both forms are accepted.
func StringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
