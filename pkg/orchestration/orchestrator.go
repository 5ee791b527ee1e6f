// Package orchestration runs the fixed requirements chain for a project and
// tracks its progress.
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alantheprice/reqgen/pkg/doctypes"
	"github.com/alantheprice/reqgen/pkg/documents"
	"github.com/alantheprice/reqgen/pkg/interfaces"
	"github.com/alantheprice/reqgen/pkg/store"
	"github.com/alantheprice/reqgen/pkg/utils"
)

// WorkflowName identifies requirements runs in telemetry
const WorkflowName = "requirements_generation"

// ClientContextKey is the additional-context key the project's client context is passed under
const ClientContextKey = "client_context"

// DocumentGenerator produces a single document
type DocumentGenerator interface {
	Generate(ctx context.Context, req documents.Request) *documents.Response
}

// Request starts a requirements run for an existing project
type Request struct {
	ProjectID          string            `json:"project_id"`
	ProjectName        string            `json:"project_name,omitempty"`
	ProjectDescription string            `json:"project_description,omitempty"`
	ClientContext      string            `json:"client_context,omitempty"`
	AdditionalContext  map[string]string `json:"additional_context,omitempty"`
	MaxRetries         int               `json:"max_retries"`
	PreferredProvider  string            `json:"preferred_provider,omitempty"`
}

// Response is the outcome of a run
type Response struct {
	Success            bool              `json:"success"`
	RunID              string            `json:"run_id"`
	ProjectID          string            `json:"project_id"`
	DocumentOrder      []string          `json:"document_order"`
	GeneratedDocuments map[string]string `json:"generated_documents"`
	Errors             []string          `json:"errors"`
	Warnings           []string          `json:"warnings"`
	Progress           *ProjectProgress  `json:"progress"`
	Duration           time.Duration     `json:"duration"`
}

// Options configures an Orchestrator
type Options struct {
	Monitor interfaces.WorkflowMonitor
	Tracker *ProgressTracker
	Logger  *utils.Logger
	Now     func() time.Time
}

// Orchestrator generates every document type in catalog order, feeding each
// completed document forward as dependency context.
type Orchestrator struct {
	catalog   *doctypes.Catalog
	generator DocumentGenerator
	store     interfaces.ProjectStore
	monitor   interfaces.WorkflowMonitor
	tracker   *ProgressTracker
	logger    *utils.Logger
	now       func() time.Time
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(catalog *doctypes.Catalog, generator DocumentGenerator, projects interfaces.ProjectStore, opts Options) *Orchestrator {
	if opts.Tracker == nil {
		opts.Tracker = NewProgressTracker(nil)
	}
	if opts.Logger == nil {
		opts.Logger = utils.GetLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		catalog:   catalog,
		generator: generator,
		store:     projects,
		monitor:   opts.Monitor,
		tracker:   opts.Tracker,
		logger:    opts.Logger,
		now:       opts.Now,
	}
}

// Tracker returns the progress tracker runs report to
func (o *Orchestrator) Tracker() *ProgressTracker {
	return o.tracker
}

// run is the mutable state of one GenerateRequirements call
type run struct {
	id        string
	req       Request
	generated map[string]string
	completed int
}

// GenerateRequirements runs the whole chain. It stops at the first failed
// document and never panics.
func (o *Orchestrator) GenerateRequirements(ctx context.Context, req Request) (resp *Response) {
	started := o.now()
	order := o.catalog.Types()
	r := &run{id: uuid.NewString(), req: req, generated: make(map[string]string)}
	resp = &Response{
		RunID:              r.id,
		ProjectID:          req.ProjectID,
		DocumentOrder:      order,
		GeneratedDocuments: r.generated,
		Errors:             []string{},
		Warnings:           []string{},
	}
	o.tracker.Start(req.ProjectID, r.id, order)

	defer func() {
		if rec := recover(); rec != nil {
			resp.Errors = append(resp.Errors, fmt.Sprintf("requirements generation panicked: %v", rec))
		}
		o.finish(ctx, r, resp, started)
	}()

	proj, err := o.store.GetProject(ctx, req.ProjectID)
	if err != nil {
		if errors.Is(err, store.ErrProjectNotFound) {
			resp.Errors = append(resp.Errors, fmt.Sprintf("project not found: %s", req.ProjectID))
		} else {
			resp.Errors = append(resp.Errors, fmt.Sprintf("failed to load project %s: %v", req.ProjectID, err))
		}
		return resp
	}
	if r.req.ProjectName == "" {
		r.req.ProjectName = proj.Name
	}
	if r.req.ProjectDescription == "" {
		r.req.ProjectDescription = proj.Description
	}
	if r.req.ClientContext == "" {
		r.req.ClientContext = proj.ClientContext
	}

	o.logger.LogProcessStep(fmt.Sprintf("Generating requirements for %s", r.req.ProjectName))
	o.telemetry("workflow start", func() error {
		return o.monitor.RecordWorkflowStart(ctx, r.id, WorkflowName)
	})

	for _, def := range o.catalog.Definitions() {
		if err := ctx.Err(); err != nil {
			resp.Errors = append(resp.Errors, fmt.Sprintf("%s generation cancelled: %v", def.Type, err))
			break
		}
		if !o.generate(ctx, r, def, resp) {
			break
		}
	}
	return resp
}

// generate runs one document step and reports whether the chain may continue
func (o *Orchestrator) generate(ctx context.Context, r *run, def doctypes.Definition, resp *Response) bool {
	o.tracker.Update(r.req.ProjectID, r.id, func(p *ProjectProgress, now time.Time) {
		doc := p.Documents[def.Type]
		doc.Status = DocumentInProgress
		doc.StartedAt = &now
		p.CurrentActivity = fmt.Sprintf("Generating %s", def.DisplayName)
	})
	o.logger.LogProcessStep(fmt.Sprintf("Generating %s", def.DisplayName))
	o.telemetry("activity start", func() error {
		return o.monitor.RecordActivityStart(ctx, r.id, def.Type)
	})

	stepStarted := o.now()
	result, err := o.step(ctx, r, def)
	duration := o.now().Sub(stepStarted)

	if err != nil {
		msg := fmt.Sprintf("%s generation failed: %v", def.Type, err)
		resp.Errors = append(resp.Errors, msg)
		// A cancelled step stays InProgress.
		if ctx.Err() == nil {
			o.tracker.Update(r.req.ProjectID, r.id, func(p *ProjectProgress, now time.Time) {
				doc := p.Documents[def.Type]
				doc.Status = DocumentFailed
				doc.Error = err.Error()
				doc.CompletedAt = &now
			})
		}
		o.logger.LogError(errors.New(msg))
		o.telemetry("activity completion", func() error {
			return o.monitor.RecordActivityCompletion(ctx, r.id, def.Type, false, duration, err.Error())
		})
		return false
	}

	r.generated[def.Type] = result.Content
	r.completed++
	for _, w := range result.ValidationWarnings {
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("%s: %s", def.Type, w))
	}
	o.tracker.Update(r.req.ProjectID, r.id, func(p *ProjectProgress, now time.Time) {
		doc := p.Documents[def.Type]
		doc.Status = DocumentCompleted
		doc.Percent = 100
		doc.CompletedAt = &now
		recomputePercent(p)
	})
	o.telemetry("activity completion", func() error {
		return o.monitor.RecordActivityCompletion(ctx, r.id, def.Type, true, duration, "")
	})
	return true
}

// step generates and persists one document. Panics are returned as errors.
func (o *Orchestrator) step(ctx context.Context, r *run, def doctypes.Definition) (result *documents.Response, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = fmt.Errorf("panic: %v", rec)
		}
	}()

	deps := make(map[string]string, len(def.Dependencies))
	for _, dep := range def.Dependencies {
		content, ok := r.generated[dep]
		if !ok {
			return nil, fmt.Errorf("dependency %s has not been generated", dep)
		}
		deps[dep] = content
	}

	additional := make(map[string]string, len(r.req.AdditionalContext)+1)
	for k, v := range r.req.AdditionalContext {
		additional[k] = v
	}
	if r.req.ClientContext != "" {
		additional[ClientContextKey] = r.req.ClientContext
	}

	result = o.generator.Generate(ctx, documents.Request{
		DocumentType:       def.Type,
		ProjectName:        r.req.ProjectName,
		ProjectDescription: r.req.ProjectDescription,
		DependencyContent:  deps,
		AdditionalContext:  additional,
		MaxRetries:         r.req.MaxRetries,
		PreferredProvider:  r.req.PreferredProvider,
	})
	if result == nil {
		return nil, errors.New("generator returned no response")
	}
	if !result.Success {
		return result, errors.New(result.Error)
	}

	existing, err := o.store.GetDocuments(ctx, r.req.ProjectID)
	if err != nil {
		return result, fmt.Errorf("failed to load existing documents: %w", err)
	}
	version := 1
	for _, d := range existing {
		if d.Type == def.Type {
			version++
		}
	}

	metadata := make(map[string]any, len(result.Metadata)+1)
	for k, v := range result.Metadata {
		metadata[k] = v
	}
	metadata["run_id"] = r.id
	if _, err := o.store.AddDocument(ctx, r.req.ProjectID, def.Type, result.Content, version, metadata); err != nil {
		return result, fmt.Errorf("failed to store document: %w", err)
	}
	return result, nil
}

func (o *Orchestrator) finish(ctx context.Context, r *run, resp *Response, started time.Time) {
	resp.Success = len(resp.Errors) == 0
	status := StatusCompleted
	switch {
	case resp.Success:
	case r.completed > 0:
		status = StatusPartiallyCompleted
	default:
		status = StatusFailed
	}

	final := o.tracker.Update(r.req.ProjectID, r.id, func(p *ProjectProgress, now time.Time) {
		p.Status = status
		p.CurrentActivity = ""
		p.CompletedAt = &now
		recomputePercent(p)
	})
	if final == nil {
		final, _ = o.tracker.Get(r.req.ProjectID)
	}
	resp.Progress = final
	resp.Duration = o.now().Sub(started)

	o.telemetry("workflow completion", func() error {
		return o.monitor.RecordWorkflowCompletion(ctx, r.id, WorkflowName, resp.Success, resp.Duration)
	})
	o.logger.LogFields("requirements generation finished", map[string]any{
		"project_id": r.req.ProjectID,
		"run_id":     r.id,
		"status":     string(status),
		"documents":  r.completed,
		"errors":     len(resp.Errors),
		"duration":   resp.Duration.String(),
	})
}

// GetGenerationProgress returns the latest run's progress, or a NotStarted
// skeleton when the project has never been run.
func (o *Orchestrator) GetGenerationProgress(projectID string) *ProjectProgress {
	if p, ok := o.tracker.Get(projectID); ok {
		return p
	}
	return newProgress(projectID, o.catalog.Types(), o.now())
}

// telemetry calls fn when a monitor is configured. Failures are logged only.
func (o *Orchestrator) telemetry(what string, fn func() error) {
	if o.monitor == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Logf("telemetry %s panicked: %v", what, rec)
		}
	}()
	if err := fn(); err != nil {
		o.logger.Logf("telemetry %s failed: %v", what, err)
	}
}
