package project_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jowpereira/bradax/pkg/project"
	"github.com/jowpereira/bradax/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProjects(t *testing.T, records []*project.Project) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "projects.json")
	require.NoError(t, store.WriteAtomic(path, records))
	return path
}

func TestLoad_ValidProjects(t *testing.T) {
	path := writeProjects(t, []*project.Project{
		{
			ProjectID:       "proj_real_001",
			APIKeyHash:      "abc123",
			AllowedModels:   []string{"gpt-4.1-nano"},
			Status:          project.StatusActive,
			BudgetRemaining: 10.50,
			CreatedAt:       time.Now(),
			UpdatedAt:       time.Now(),
		},
	})

	s, err := project.Load(path)
	require.NoError(t, err)

	p, err := s.Get("proj_real_001")
	require.NoError(t, err)
	assert.True(t, p.IsActive())
	assert.True(t, p.AllowsModel("gpt-4.1-nano"))
	assert.False(t, p.AllowsModel("gpt-9"))
}

func TestLoad_RejectsActiveProjectWithNoModels(t *testing.T) {
	path := writeProjects(t, []*project.Project{
		{ProjectID: "proj_empty", Status: project.StatusActive},
	})

	_, err := project.Load(path)
	require.Error(t, err)
}

func TestLoad_RejectsDuplicateProjectID(t *testing.T) {
	path := writeProjects(t, []*project.Project{
		{ProjectID: "dup", Status: project.StatusInactive},
		{ProjectID: "dup", Status: project.StatusInactive},
	})

	_, err := project.Load(path)
	require.Error(t, err)
}

func TestGet_UnknownProject(t *testing.T) {
	path := writeProjects(t, []*project.Project{
		{ProjectID: "proj_real_001", Status: project.StatusActive, AllowedModels: []string{"m"}},
	})
	s, err := project.Load(path)
	require.NoError(t, err)

	_, err = s.Get("proj_missing")
	assert.ErrorIs(t, err, project.ErrNotFound)
}

func TestReload_SwapsSnapshotAtomically(t *testing.T) {
	path := writeProjects(t, []*project.Project{
		{ProjectID: "proj_a", Status: project.StatusActive, AllowedModels: []string{"m"}},
	})
	s, err := project.Load(path)
	require.NoError(t, err)

	require.NoError(t, store.WriteAtomic(path, []*project.Project{
		{ProjectID: "proj_a", Status: project.StatusActive, AllowedModels: []string{"m"}},
		{ProjectID: "proj_b", Status: project.StatusActive, AllowedModels: []string{"m"}},
	}))
	require.NoError(t, s.Reload())

	_, err = s.Get("proj_b")
	require.NoError(t, err)
}
