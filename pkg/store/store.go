// Package store provides ProjectStore implementations backed by memory or Redis.
package store

import (
	"errors"
	"fmt"

	"github.com/alantheprice/reqgen/internal/domain/project"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// ErrProjectNotFound is returned (wrapped) when a project id is unknown
var ErrProjectNotFound = errors.New("project not found")

func notFound(id string) error {
	return fmt.Errorf("%w: %s", ErrProjectNotFound, id)
}

// changeSummary describes how content differs from the previous version of the same
// document type. It returns nil for the first version.
func changeSummary(previous *project.Document, content string) map[string]any {
	if previous == nil {
		return nil
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(previous.Content, content, false))

	inserted, deleted := 0, 0
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			inserted += len([]rune(d.Text))
		case diffmatchpatch.DiffDelete:
			deleted += len([]rune(d.Text))
		}
	}
	return map[string]any{
		"previous_version": previous.Version,
		"chars_inserted":   inserted,
		"chars_deleted":    deleted,
		"edit_distance":    dmp.DiffLevenshtein(diffs),
	}
}

// previousVersion returns the latest stored document of docType, or nil.
func previousVersion(docs []*project.Document, docType string) *project.Document {
	var latest *project.Document
	for _, d := range docs {
		if d.Type == docType && (latest == nil || d.Version > latest.Version) {
			latest = d
		}
	}
	return latest
}

func withChanges(metadata map[string]any, previous *project.Document, content string) map[string]any {
	out := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		out[k] = v
	}
	if changes := changeSummary(previous, content); changes != nil {
		out["changes"] = changes
	}
	return out
}
