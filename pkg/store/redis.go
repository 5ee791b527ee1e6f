package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alantheprice/reqgen/internal/domain/project"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	ProjectKeyPrefix   = "reqgen:project:"
	DocumentsKeySuffix = ":documents"
	ProjectIndex       = "reqgen:index:projects"
)

// RedisStore keeps projects as JSON values and documents as a per-project list
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing client
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// ConnectRedis parses url, connects and verifies the connection with a ping
func ConnectRedis(ctx context.Context, url string) (*RedisStore, error) {
	if url == "" {
		return nil, fmt.Errorf("empty redis url")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("could not parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("could not connect to Redis: %w", err)
	}
	return NewRedisStore(client), nil
}

// Close closes the underlying client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func projectKey(id string) string   { return ProjectKeyPrefix + id }
func documentsKey(id string) string { return ProjectKeyPrefix + id + DocumentsKeySuffix }

// CreateProject stores a new project with a generated id
func (s *RedisStore) CreateProject(ctx context.Context, name, description, clientContext string) (*project.Project, error) {
	now := time.Now().UTC()
	p := &project.Project{
		ID:            uuid.New().String(),
		Name:          strings.TrimSpace(name),
		Description:   description,
		ClientContext: clientContext,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, projectKey(p.ID), data, 0)
	pipe.SAdd(ctx, ProjectIndex, p.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to store project: %w", err)
	}
	return p, nil
}

// GetProject loads a project by id
func (s *RedisStore) GetProject(ctx context.Context, id string) (*project.Project, error) {
	data, err := s.client.Get(ctx, projectKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, notFound(id)
		}
		return nil, err
	}

	var p project.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode project %s: %w", id, err)
	}
	return &p, nil
}

// AddDocument appends a document version and bumps the project's UpdatedAt
func (s *RedisStore) AddDocument(ctx context.Context, projectID, docType, content string, version int, metadata map[string]any) (*project.Document, error) {
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	existing, err := s.GetDocuments(ctx, projectID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := &project.Document{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Type:      docType,
		Content:   content,
		Version:   version,
		Metadata:  withChanges(metadata, previousVersion(existing, docType), content),
		CreatedAt: now,
	}
	docData, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	p.UpdatedAt = now
	projectData, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, documentsKey(projectID), docData)
	pipe.Set(ctx, projectKey(projectID), projectData, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}
	return doc, nil
}

// GetDocuments returns the project's documents ordered by creation
func (s *RedisStore) GetDocuments(ctx context.Context, projectID string) ([]*project.Document, error) {
	exists, err := s.client.Exists(ctx, projectKey(projectID)).Result()
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, notFound(projectID)
	}

	values, err := s.client.LRange(ctx, documentsKey(projectID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	docs := make([]*project.Document, 0, len(values))
	for _, v := range values {
		var d project.Document
		if err := json.Unmarshal([]byte(v), &d); err != nil {
			return nil, fmt.Errorf("failed to decode document of project %s: %w", projectID, err)
		}
		docs = append(docs, &d)
	}
	return docs, nil
}
