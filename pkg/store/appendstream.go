package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// AppendStream is a single JSON-array-backed append-only file, regrown on
// each write and replaced atomically. A per-stream mutex serializes
// appends; callers on distinct streams never block each other. This is
// acceptable at current scale (per the spec's own roadmap note); a
// batched writer is future work, not a correctness requirement here.
type AppendStream struct {
	mu       sync.Mutex
	path     string
	entries  []json.RawMessage
	cap      int // 0 = unbounded
	trimming bool
}

// OpenAppendStream loads an existing stream file if present (fail-fast on
// corrupt JSON) or starts empty. cap <= 0 means unbounded.
func OpenAppendStream(path string, cap int) (*AppendStream, error) {
	s := &AppendStream{path: path, cap: cap}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("store: open stream %s: %w", path, err)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		return nil, fmt.Errorf("store: stream %s contains invalid JSON: %w", path, err)
	}
	return s, nil
}

// Append serializes event, adds it to the stream, trims if the stream is
// bounded and over cap, and durably persists the result before returning.
func (s *AppendStream) Append(event interface{}) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("store: marshal event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, raw)
	if s.cap > 0 && len(s.entries) > s.cap {
		overflow := len(s.entries) - s.cap
		s.entries = s.entries[overflow:]
	}

	return WriteAtomic(s.path, s.entries)
}

// Len returns the current number of entries in the stream.
func (s *AppendStream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Snapshot returns the raw JSON entries currently in the stream, in
// append order. The caller must not mutate the returned slice elements.
func (s *AppendStream) Snapshot() []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]json.RawMessage, len(s.entries))
	copy(out, s.entries)
	return out
}

// Each unmarshals every entry into a fresh value built by newFn and
// invokes fn on it, stopping early if fn returns an error.
func (s *AppendStream) Each(newFn func() interface{}, fn func(v interface{}) error) error {
	for _, raw := range s.Snapshot() {
		v := newFn()
		if err := json.Unmarshal(raw, v); err != nil {
			return fmt.Errorf("store: decode stream entry: %w", err)
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}
