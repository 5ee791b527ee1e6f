package store

import (
	"context"
	"errors"
	"testing"

	"github.com/alantheprice/reqgen/pkg/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ interfaces.ProjectStore = (*MemoryStore)(nil)
var _ interfaces.ProjectStore = (*RedisStore)(nil)

func TestMemoryStoreProjects(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	p, err := s.CreateProject(ctx, "  Lead Hub ", "desc", "client")
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Lead Hub", p.Name)

	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	got.Name = "mutated"
	again, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lead Hub", again.Name)

	_, err = s.GetProject(ctx, "missing")
	assert.True(t, errors.Is(err, ErrProjectNotFound))
}

func TestMemoryStoreDocuments(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	p, err := s.CreateProject(ctx, "p", "", "")
	require.NoError(t, err)

	first, err := s.AddDocument(ctx, p.ID, "BRD", "hello world", 1, map[string]any{"provider": "mock"})
	require.NoError(t, err)
	assert.Equal(t, "mock", first.Metadata["provider"])
	assert.NotContains(t, first.Metadata, "changes")

	_, err = s.AddDocument(ctx, p.ID, "PRD", "product", 1, nil)
	require.NoError(t, err)

	second, err := s.AddDocument(ctx, p.ID, "BRD", "hello brave world", 2, nil)
	require.NoError(t, err)
	changes, ok := second.Metadata["changes"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1, changes["previous_version"])
	assert.Equal(t, 6, changes["chars_inserted"])
	assert.Equal(t, 0, changes["chars_deleted"])

	docs, err := s.GetDocuments(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, []string{"BRD", "PRD", "BRD"}, []string{docs[0].Type, docs[1].Type, docs[2].Type})

	_, err = s.AddDocument(ctx, "missing", "BRD", "x", 1, nil)
	assert.ErrorIs(t, err, ErrProjectNotFound)
	_, err = s.GetDocuments(ctx, "missing")
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestMemoryStoreDocumentsAreCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	p, err := s.CreateProject(ctx, "p", "", "")
	require.NoError(t, err)

	added, err := s.AddDocument(ctx, p.ID, "BRD", "content", 1, map[string]any{"provider": "mock"})
	require.NoError(t, err)
	added.Metadata["provider"] = "changed"

	docs, err := s.GetDocuments(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "mock", docs[0].Metadata["provider"])

	docs[0].Metadata["run_id"] = "injected"
	again, err := s.GetDocuments(ctx, p.ID)
	require.NoError(t, err)
	assert.NotContains(t, again[0].Metadata, "run_id")
}
