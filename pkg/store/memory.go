package store

import (
	"context"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/alantheprice/reqgen/internal/domain/project"
	"github.com/google/uuid"
)

// MemoryStore keeps projects and documents in process memory
type MemoryStore struct {
	mu        sync.RWMutex
	projects  map[string]*project.Project
	documents map[string][]*project.Document
	now       func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		projects:  make(map[string]*project.Project),
		documents: make(map[string][]*project.Document),
		now:       time.Now,
	}
}

// CreateProject stores a new project with a generated id
func (s *MemoryStore) CreateProject(ctx context.Context, name, description, clientContext string) (*project.Project, error) {
	now := s.now()
	p := &project.Project{
		ID:            uuid.New().String(),
		Name:          strings.TrimSpace(name),
		Description:   description,
		ClientContext: clientContext,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	s.mu.Lock()
	s.projects[p.ID] = p
	s.mu.Unlock()

	copied := *p
	return &copied, nil
}

// GetProject returns a copy of the project
func (s *MemoryStore) GetProject(ctx context.Context, id string) (*project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, notFound(id)
	}
	copied := *p
	return &copied, nil
}

// AddDocument appends a document version to the project
func (s *MemoryStore) AddDocument(ctx context.Context, projectID, docType, content string, version int, metadata map[string]any) (*project.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[projectID]
	if !ok {
		return nil, notFound(projectID)
	}

	now := s.now()
	doc := &project.Document{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Type:      docType,
		Content:   content,
		Version:   version,
		Metadata:  withChanges(metadata, previousVersion(s.documents[projectID], docType), content),
		CreatedAt: now,
	}
	s.documents[projectID] = append(s.documents[projectID], doc)
	p.UpdatedAt = now

	return cloneDocument(doc), nil
}

// GetDocuments returns the project's documents ordered by creation
func (s *MemoryStore) GetDocuments(ctx context.Context, projectID string) ([]*project.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.projects[projectID]; !ok {
		return nil, notFound(projectID)
	}
	docs := s.documents[projectID]
	out := make([]*project.Document, len(docs))
	for i, d := range docs {
		out[i] = cloneDocument(d)
	}
	return out, nil
}

// cloneDocument copies d so callers cannot reach the stored metadata map
func cloneDocument(d *project.Document) *project.Document {
	copied := *d
	copied.Metadata = maps.Clone(d.Metadata)
	return &copied
}
