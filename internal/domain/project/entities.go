package project

import "time"

// Project is a client project that requirements documents are generated for
type Project struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	ClientContext string    `json:"client_context,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Document is one stored version of a generated requirements document
type Document struct {
	ID        string         `json:"id"`
	ProjectID string         `json:"project_id"`
	Type      string         `json:"type"`
	Content   string         `json:"content"`
	Version   int            `json:"version"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// LatestVersion returns the highest stored version of docType, or 0 when the
// project has no document of that type yet.
func LatestVersion(docs []*Document, docType string) int {
	latest := 0
	for _, d := range docs {
		if d.Type == docType && d.Version > latest {
			latest = d.Version
		}
	}
	return latest
}

// Latest returns the most recent version of each document type.
func Latest(docs []*Document) map[string]*Document {
	out := make(map[string]*Document)
	for _, d := range docs {
		if cur, ok := out[d.Type]; !ok || d.Version > cur.Version {
			out[d.Type] = d
		}
	}
	return out
}
