package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRedisStoreRoundTrip runs against a real server when REQGEN_TEST_REDIS_URL is set.
func TestRedisStoreRoundTrip(t *testing.T) {
	url := os.Getenv("REQGEN_TEST_REDIS_URL")
	if url == "" {
		t.Skip("REQGEN_TEST_REDIS_URL not set")
	}
	ctx := context.Background()

	s, err := ConnectRedis(ctx, url)
	require.NoError(t, err)
	defer s.Close()

	p, err := s.CreateProject(ctx, "redis project", "desc", "")
	require.NoError(t, err)
	t.Cleanup(func() {
		s.client.Del(ctx, projectKey(p.ID), documentsKey(p.ID))
		s.client.SRem(ctx, ProjectIndex, p.ID)
	})

	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)

	_, err = s.AddDocument(ctx, p.ID, "BRD", "v1", 1, nil)
	require.NoError(t, err)
	second, err := s.AddDocument(ctx, p.ID, "BRD", "v2", 2, nil)
	require.NoError(t, err)
	assert.Contains(t, second.Metadata, "changes")

	docs, err := s.GetDocuments(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	_, err = s.GetProject(ctx, "does-not-exist")
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestConnectRedisRejectsBadURL(t *testing.T) {
	_, err := ConnectRedis(context.Background(), "")
	assert.Error(t, err)
	_, err = ConnectRedis(context.Background(), "not-a-url://")
	assert.Error(t, err)
}
