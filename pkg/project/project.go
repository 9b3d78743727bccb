// Package project implements the read-mostly Project Store: project
// metadata, allowed models, api-key hash, and remaining budget, loaded
// from a single JSON file and served from an immutable snapshot.
package project

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jowpereira/bradax/pkg/store"
)

// Status is a project's lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// Project is a logical tenant with its own allow-list, budget, and
// credentials. The core only reads projects; they are created and
// updated out-of-band by operators.
type Project struct {
	ProjectID       string    `json:"project_id"`
	DisplayName     string    `json:"display_name"`
	Organization    string    `json:"organization"`
	APIKeyHash      string    `json:"api_key_hash"`
	AllowedModels   []string  `json:"allowed_models"`
	Status          Status    `json:"status"`
	BudgetRemaining float64   `json:"budget_remaining"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsActive reports whether the project may issue tokens and invoke
// models.
func (p *Project) IsActive() bool {
	return p.Status == StatusActive
}

// AllowsModel reports whether modelID is in the project's allow-list.
func (p *Project) AllowsModel(modelID string) bool {
	for _, m := range p.AllowedModels {
		if m == modelID {
			return true
		}
	}
	return false
}

func (p *Project) validate() error {
	if p.ProjectID == "" || p.ProjectID != strings.ToLower(p.ProjectID) {
		return fmt.Errorf("project: project_id must be a non-empty lowercase string, got %q", p.ProjectID)
	}
	if p.Status == StatusActive && len(p.AllowedModels) == 0 {
		return fmt.Errorf("project: %s is active but has no allowed_models", p.ProjectID)
	}
	if p.BudgetRemaining < 0 {
		return fmt.Errorf("project: %s has negative budget_remaining", p.ProjectID)
	}
	return nil
}

// snapshot is the immutable, atomically-swapped view of all projects.
type snapshot struct {
	byID map[string]*Project
}

// Store serves project records from an in-memory, copy-on-reload
// snapshot. Readers never observe a partially-loaded state.
type Store struct {
	path string

	mu   sync.RWMutex
	snap *snapshot
}

// Load reads path, validates every record, and fails fast (refuses to
// start) if any invariant is violated or project_id is duplicated.
func Load(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the backing file and atomically swaps the in-memory
// snapshot. It is the only way the store's contents change; it never
// mutates the previous snapshot in place, so in-flight readers of the
// old snapshot are unaffected.
func (s *Store) Reload() error {
	var records []*Project
	if err := store.ReadJSON(s.path, &records); err != nil {
		return fmt.Errorf("project: load %s: %w", s.path, err)
	}

	byID := make(map[string]*Project, len(records))
	for _, p := range records {
		if err := p.validate(); err != nil {
			return err
		}
		if _, dup := byID[p.ProjectID]; dup {
			return fmt.Errorf("project: duplicate project_id %q", p.ProjectID)
		}
		byID[p.ProjectID] = p
	}

	next := &snapshot{byID: byID}
	s.mu.Lock()
	s.snap = next
	s.mu.Unlock()
	return nil
}

// ErrNotFound is returned by Get when no project matches the id.
var ErrNotFound = fmt.Errorf("project: not found")

// Get looks up a project by id against the current snapshot.
func (s *Store) Get(projectID string) (*Project, error) {
	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()

	p, ok := snap.byID[strings.ToLower(projectID)]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}
