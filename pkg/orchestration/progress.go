package orchestration

import (
	"sync"
	"time"

	"github.com/alantheprice/reqgen/pkg/events"
)

// Status is the overall state of a generation run
type Status string

const (
	StatusNotStarted         Status = "NotStarted"
	StatusInProgress         Status = "InProgress"
	StatusCompleted          Status = "Completed"
	StatusFailed             Status = "Failed"
	StatusPartiallyCompleted Status = "PartiallyCompleted"
)

// DocumentStatus is the state of one document within a run
type DocumentStatus string

const (
	DocumentPending    DocumentStatus = "Pending"
	DocumentInProgress DocumentStatus = "InProgress"
	DocumentCompleted  DocumentStatus = "Completed"
	DocumentFailed     DocumentStatus = "Failed"
)

// DocumentProgress tracks one document type
type DocumentProgress struct {
	Status      DocumentStatus `json:"status"`
	Percent     int            `json:"percent"`
	Error       string         `json:"error,omitempty"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// ProjectProgress is a snapshot of a project's latest run
type ProjectProgress struct {
	ProjectID       string                       `json:"project_id"`
	RunID           string                       `json:"run_id,omitempty"`
	Status          Status                       `json:"status"`
	Percent         int                          `json:"percent"`
	CurrentActivity string                       `json:"current_activity,omitempty"`
	Documents       map[string]*DocumentProgress `json:"documents"`
	StartedAt       *time.Time                   `json:"started_at,omitempty"`
	CompletedAt     *time.Time                   `json:"completed_at,omitempty"`
	UpdatedAt       time.Time                    `json:"updated_at"`
}

// Clone returns a deep copy
func (p *ProjectProgress) Clone() *ProjectProgress {
	if p == nil {
		return nil
	}
	out := *p
	out.StartedAt = cloneTime(p.StartedAt)
	out.CompletedAt = cloneTime(p.CompletedAt)
	out.Documents = make(map[string]*DocumentProgress, len(p.Documents))
	for k, d := range p.Documents {
		doc := *d
		doc.StartedAt = cloneTime(d.StartedAt)
		doc.CompletedAt = cloneTime(d.CompletedAt)
		out.Documents[k] = &doc
	}
	return &out
}

// Terminal reports whether the run has finished
func (p *ProjectProgress) Terminal() bool {
	switch p.Status {
	case StatusCompleted, StatusFailed, StatusPartiallyCompleted:
		return true
	}
	return false
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// newProgress creates a snapshot with every document Pending
func newProgress(projectID string, docTypes []string, now time.Time) *ProjectProgress {
	p := &ProjectProgress{
		ProjectID: projectID,
		Status:    StatusNotStarted,
		Documents: make(map[string]*DocumentProgress, len(docTypes)),
		UpdatedAt: now,
	}
	for _, t := range docTypes {
		p.Documents[t] = &DocumentProgress{Status: DocumentPending}
	}
	return p
}

// ProgressTracker holds the latest progress snapshot per project. Stored
// snapshots are never mutated: updates replace them with a modified copy.
type ProgressTracker struct {
	mu       sync.RWMutex
	progress map[string]*ProjectProgress
	bus      *events.EventBus
	now      func() time.Time
}

// NewProgressTracker creates a tracker. bus may be nil.
func NewProgressTracker(bus *events.EventBus) *ProgressTracker {
	return &ProgressTracker{
		progress: make(map[string]*ProjectProgress),
		bus:      bus,
		now:      time.Now,
	}
}

// Start registers a fresh snapshot for projectID, replacing any earlier run
func (t *ProgressTracker) Start(projectID, runID string, docTypes []string) *ProjectProgress {
	now := t.now()
	p := newProgress(projectID, docTypes, now)
	p.RunID = runID
	p.Status = StatusInProgress
	p.StartedAt = &now

	t.mu.Lock()
	t.progress[projectID] = p
	t.mu.Unlock()

	t.publish(p)
	return p.Clone()
}

// Update applies fn to a copy of the current snapshot and stores the result.
// Updates from a run that has since been replaced are dropped and return nil.
func (t *ProgressTracker) Update(projectID, runID string, fn func(p *ProjectProgress, now time.Time)) *ProjectProgress {
	t.mu.Lock()
	current, ok := t.progress[projectID]
	if !ok || current.RunID != runID {
		t.mu.Unlock()
		return nil
	}
	now := t.now()
	next := current.Clone()
	fn(next, now)
	next.UpdatedAt = now
	t.progress[projectID] = next
	t.mu.Unlock()

	t.publish(next)
	return next.Clone()
}

// Get returns a copy of the stored snapshot
func (t *ProgressTracker) Get(projectID string) (*ProjectProgress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.progress[projectID]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

func (t *ProgressTracker) publish(p *ProjectProgress) {
	if t.bus == nil {
		return
	}
	t.bus.Publish(events.EventTypeProgressUpdated, p.Clone())
}

// recomputePercent sets the overall percent from completed documents
func recomputePercent(p *ProjectProgress) {
	if len(p.Documents) == 0 {
		p.Percent = 0
		return
	}
	completed := 0
	for _, d := range p.Documents {
		if d.Status == DocumentCompleted {
			completed++
		}
	}
	p.Percent = completed * 100 / len(p.Documents)
}
