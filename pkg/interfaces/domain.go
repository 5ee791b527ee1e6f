package interfaces

import (
	"context"
	"time"

	"github.com/alantheprice/reqgen/internal/domain/project"
)

// ProjectStore persists projects and their generated documents
type ProjectStore interface {
	// CreateProject creates a new project and assigns its id
	CreateProject(ctx context.Context, name, description, clientContext string) (*project.Project, error)

	// GetProject returns the project or an error wrapping store.ErrProjectNotFound
	GetProject(ctx context.Context, id string) (*project.Project, error)

	// AddDocument stores a generated document version
	AddDocument(ctx context.Context, projectID, docType, content string, version int, metadata map[string]any) (*project.Document, error)

	// GetDocuments returns all documents of a project ordered by creation
	GetDocuments(ctx context.Context, projectID string) ([]*project.Document, error)
}

// WorkflowMonitor records workflow telemetry. Callers treat every method as best
// effort: a returned error is logged and otherwise ignored.
type WorkflowMonitor interface {
	RecordWorkflowStart(ctx context.Context, workflowID, name string) error
	RecordActivityStart(ctx context.Context, workflowID, activity string) error
	RecordActivityCompletion(ctx context.Context, workflowID, activity string, success bool, duration time.Duration, errMsg string) error
	RecordWorkflowCompletion(ctx context.Context, workflowID, name string, success bool, duration time.Duration) error
}
