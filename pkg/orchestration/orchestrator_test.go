package orchestration

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alantheprice/reqgen/pkg/configuration"
	"github.com/alantheprice/reqgen/pkg/doctypes"
	"github.com/alantheprice/reqgen/pkg/documents"
	"github.com/alantheprice/reqgen/pkg/events"
	"github.com/alantheprice/reqgen/pkg/llm"
	"github.com/alantheprice/reqgen/pkg/providers"
	"github.com/alantheprice/reqgen/pkg/store"
	"github.com/alantheprice/reqgen/pkg/templates"
	"github.com/alantheprice/reqgen/pkg/utils"
	"github.com/alantheprice/reqgen/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedGenerator succeeds for every type except those listed in fail.
type scriptedGenerator struct {
	mu       sync.Mutex
	fail     map[string]string
	panicOn  string
	requests []documents.Request
}

func (g *scriptedGenerator) Generate(_ context.Context, req documents.Request) *documents.Response {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	if req.DocumentType == g.panicOn {
		panic("generator exploded")
	}
	if msg, ok := g.fail[req.DocumentType]; ok {
		return &documents.Response{DocumentType: req.DocumentType, Error: msg}
	}
	return &documents.Response{
		Success:            true,
		DocumentType:       req.DocumentType,
		Content:            "# " + req.DocumentType + "\n\ncontent",
		ValidationWarnings: []string{"short"},
		Metadata:           map[string]any{"provider": "mock"},
	}
}

func (g *scriptedGenerator) types() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.requests))
	for _, r := range g.requests {
		out = append(out, r.DocumentType)
	}
	return out
}

type recordingMonitor struct {
	mu       sync.Mutex
	calls    []string
	failWith error
}

func (m *recordingMonitor) record(call string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	return m.failWith
}

func (m *recordingMonitor) RecordWorkflowStart(_ context.Context, _, name string) error {
	return m.record("workflow_start")
}

func (m *recordingMonitor) RecordActivityStart(_ context.Context, _, activity string) error {
	return m.record("start:" + activity)
}

func (m *recordingMonitor) RecordActivityCompletion(_ context.Context, _, activity string, success bool, _ time.Duration, _ string) error {
	if success {
		return m.record("done:" + activity)
	}
	return m.record("failed:" + activity)
}

func (m *recordingMonitor) RecordWorkflowCompletion(_ context.Context, _, _ string, success bool, _ time.Duration) error {
	if success {
		return m.record("workflow_success")
	}
	return m.record("workflow_failure")
}

type panickingMonitor struct{ recordingMonitor }

func (*panickingMonitor) RecordWorkflowStart(context.Context, string, string) error {
	panic("monitor down")
}

func setup(t *testing.T, gen DocumentGenerator, monitor *recordingMonitor) (*Orchestrator, *store.MemoryStore, string) {
	t.Helper()
	projects := store.NewMemoryStore()
	proj, err := projects.CreateProject(context.Background(), "Shop", "An online shop", "retail client")
	require.NoError(t, err)

	opts := Options{Logger: utils.NewLoggerWithWriter(io.Discard)}
	if monitor != nil {
		opts.Monitor = monitor
	}
	return NewOrchestrator(doctypes.Default(), gen, projects, opts), projects, proj.ID
}

func TestGenerateRequirementsRunsChainInOrder(t *testing.T) {
	gen := &scriptedGenerator{}
	monitor := &recordingMonitor{}
	o, projects, id := setup(t, gen, monitor)

	resp := o.GenerateRequirements(context.Background(), Request{ProjectID: id, MaxRetries: 2})

	require.True(t, resp.Success, resp.Errors)
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, []string{"BRD", "PRD", "FRD", "TRD"}, resp.DocumentOrder)
	assert.Equal(t, []string{"BRD", "PRD", "FRD", "TRD"}, gen.types())
	assert.Len(t, resp.GeneratedDocuments, 4)
	assert.Empty(t, resp.Errors)
	assert.Contains(t, resp.Warnings, "BRD: short")

	assert.Equal(t, StatusCompleted, resp.Progress.Status)
	assert.Equal(t, 100, resp.Progress.Percent)
	for _, doc := range resp.Progress.Documents {
		assert.Equal(t, DocumentCompleted, doc.Status)
	}

	// Dependencies come only from this run's completed documents.
	assert.Empty(t, gen.requests[0].DependencyContent)
	assert.Equal(t, []string{"BRD"}, keys(gen.requests[1].DependencyContent))
	assert.ElementsMatch(t, []string{"BRD", "PRD", "FRD"}, keys(gen.requests[3].DependencyContent))
	assert.Equal(t, "# BRD\n\ncontent", gen.requests[3].DependencyContent["BRD"])

	// Project details fill the request and client context is forwarded.
	assert.Equal(t, "Shop", gen.requests[0].ProjectName)
	assert.Equal(t, "retail client", gen.requests[0].AdditionalContext[ClientContextKey])
	assert.Equal(t, 2, gen.requests[0].MaxRetries)

	docs, err := projects.GetDocuments(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, docs, 4)
	assert.Equal(t, 1, docs[0].Version)
	assert.Equal(t, resp.RunID, docs[0].Metadata["run_id"])

	assert.Equal(t, []string{
		"workflow_start",
		"start:BRD", "done:BRD",
		"start:PRD", "done:PRD",
		"start:FRD", "done:FRD",
		"start:TRD", "done:TRD",
		"workflow_success",
	}, monitor.calls)
}

func TestGenerateRequirementsFailFastPartiallyCompleted(t *testing.T) {
	gen := &scriptedGenerator{fail: map[string]string{"FRD": "All LLM providers failed: mock: boom"}}
	monitor := &recordingMonitor{}
	o, _, id := setup(t, gen, monitor)

	resp := o.GenerateRequirements(context.Background(), Request{ProjectID: id})

	assert.False(t, resp.Success)
	assert.ElementsMatch(t, []string{"BRD", "PRD"}, keys(resp.GeneratedDocuments))
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0], "FRD")
	assert.Equal(t, []string{"BRD", "PRD", "FRD"}, gen.types())

	p := resp.Progress
	assert.Equal(t, StatusPartiallyCompleted, p.Status)
	assert.Equal(t, 50, p.Percent)
	assert.Equal(t, DocumentFailed, p.Documents["FRD"].Status)
	assert.Equal(t, DocumentPending, p.Documents["TRD"].Status)
	assert.Contains(t, monitor.calls, "failed:FRD")
	assert.Equal(t, "workflow_failure", monitor.calls[len(monitor.calls)-1])
}

func TestGenerateRequirementsFirstFailureIsFailed(t *testing.T) {
	gen := &scriptedGenerator{fail: map[string]string{"BRD": "No LLM providers are configured"}}
	o, projects, id := setup(t, gen, nil)

	resp := o.GenerateRequirements(context.Background(), Request{ProjectID: id})

	assert.False(t, resp.Success)
	assert.Empty(t, resp.GeneratedDocuments)
	assert.Equal(t, StatusFailed, resp.Progress.Status)
	assert.Equal(t, 0, resp.Progress.Percent)
	for _, docType := range []string{"PRD", "FRD", "TRD"} {
		assert.Equal(t, DocumentPending, resp.Progress.Documents[docType].Status)
	}

	docs, err := projects.GetDocuments(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestGenerateRequirementsProjectNotFound(t *testing.T) {
	gen := &scriptedGenerator{}
	monitor := &recordingMonitor{}
	o, _, _ := setup(t, gen, monitor)

	resp := o.GenerateRequirements(context.Background(), Request{ProjectID: "missing"})

	assert.False(t, resp.Success)
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0], "project not found")
	assert.Empty(t, resp.GeneratedDocuments)
	assert.Empty(t, gen.types())
	assert.Equal(t, StatusFailed, resp.Progress.Status)
	assert.Equal(t, []string{"workflow_failure"}, monitor.calls)
}

func TestGenerateRequirementsRecoversGeneratorPanic(t *testing.T) {
	gen := &scriptedGenerator{panicOn: "PRD"}
	o, _, id := setup(t, gen, nil)

	resp := o.GenerateRequirements(context.Background(), Request{ProjectID: id})

	assert.False(t, resp.Success)
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0], "PRD")
	assert.Contains(t, resp.Errors[0], "generator exploded")
	assert.Equal(t, StatusPartiallyCompleted, resp.Progress.Status)
}

func TestTelemetryFailuresAreIgnored(t *testing.T) {
	gen := &scriptedGenerator{}
	o, _, id := setup(t, gen, &recordingMonitor{failWith: errors.New("sink down")})
	resp := o.GenerateRequirements(context.Background(), Request{ProjectID: id})
	assert.True(t, resp.Success)

	o.monitor = &panickingMonitor{}
	resp = o.GenerateRequirements(context.Background(), Request{ProjectID: id})
	assert.True(t, resp.Success)
}

func TestVersionsIncrementAcrossRuns(t *testing.T) {
	gen := &scriptedGenerator{}
	o, projects, id := setup(t, gen, nil)

	require.True(t, o.GenerateRequirements(context.Background(), Request{ProjectID: id}).Success)
	require.True(t, o.GenerateRequirements(context.Background(), Request{ProjectID: id}).Success)

	docs, err := projects.GetDocuments(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, docs, 8)
	assert.Equal(t, "BRD", docs[4].Type)
	assert.Equal(t, 2, docs[4].Version)
}

func TestCancelledContextIsNotSuccess(t *testing.T) {
	gen := &scriptedGenerator{}
	o, _, id := setup(t, gen, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp := o.GenerateRequirements(ctx, Request{ProjectID: id})

	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Errors)
}

func TestGetGenerationProgressSkeleton(t *testing.T) {
	o, _, _ := setup(t, &scriptedGenerator{}, nil)

	p := o.GetGenerationProgress("never-run")
	assert.Equal(t, StatusNotStarted, p.Status)
	assert.Equal(t, 0, p.Percent)
	require.Len(t, p.Documents, 4)
	for _, doc := range p.Documents {
		assert.Equal(t, DocumentPending, doc.Status)
	}
}

func TestGetGenerationProgressReturnsCopies(t *testing.T) {
	o, _, id := setup(t, &scriptedGenerator{}, nil)
	o.GenerateRequirements(context.Background(), Request{ProjectID: id})

	p := o.GetGenerationProgress(id)
	p.Status = StatusFailed
	p.Documents["BRD"].Status = DocumentFailed

	again := o.GetGenerationProgress(id)
	assert.Equal(t, StatusCompleted, again.Status)
	assert.Equal(t, DocumentCompleted, again.Documents["BRD"].Status)
}

func TestProgressUpdatesArePublished(t *testing.T) {
	bus := events.NewEventBus()
	ch := bus.Subscribe("test")
	projects := store.NewMemoryStore()
	proj, err := projects.CreateProject(context.Background(), "Shop", "An online shop", "")
	require.NoError(t, err)

	o := NewOrchestrator(doctypes.Default(), &scriptedGenerator{}, projects, Options{
		Tracker: NewProgressTracker(bus),
		Logger:  utils.NewLoggerWithWriter(io.Discard),
	})
	o.GenerateRequirements(context.Background(), Request{ProjectID: proj.ID})

	var last *ProjectProgress
	count := 0
	for len(ch) > 0 {
		ev := <-ch
		assert.Equal(t, events.EventTypeProgressUpdated, ev.Type)
		last = ev.Data.(*ProjectProgress)
		count++
	}
	assert.Greater(t, count, 4)
	require.NotNil(t, last)
	assert.Equal(t, StatusCompleted, last.Status)
}

func TestEndToEndWithMockProvider(t *testing.T) {
	logger := utils.NewLoggerWithWriter(io.Discard)
	settings := configuration.NewConfig().LLM
	settings.UseMockProvider = true
	factory := providers.NewDefaultFactory(settings)

	service := llm.NewService(factory, llm.Options{DefaultProvider: settings.DefaultProvider, MaxRetries: 0, Logger: logger})
	gen := documents.NewGenerator(doctypes.Default(), service, templates.NewEngine(templates.Options{}), validation.NewValidator(), documents.Options{Logger: logger})

	projects := store.NewMemoryStore()
	proj, err := projects.CreateProject(context.Background(), "Shop", "An online shop", "")
	require.NoError(t, err)

	o := NewOrchestrator(doctypes.Default(), gen, projects, Options{Logger: logger})
	resp := o.GenerateRequirements(context.Background(), Request{ProjectID: proj.ID, MaxRetries: 1})

	require.True(t, resp.Success, resp.Errors)
	assert.Len(t, resp.GeneratedDocuments, 4)
	assert.Contains(t, resp.GeneratedDocuments["BRD"], "## Business Objectives")
	assert.Contains(t, resp.GeneratedDocuments["TRD"], "Builds on the Functional Requirements Document")
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
