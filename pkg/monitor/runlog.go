package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// RunLogMonitor writes workflow telemetry as JSON lines, one file per process.
type RunLogMonitor struct {
	mu      sync.Mutex
	f       *os.File
	path    string
	now     func() time.Time
	secrets []string
}

// secretMarkers are blanked from string fields before they are written.
var secretMarkers = []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "GROK_API_KEY", "XAI_API_KEY"}

// NewRunLogMonitor opens dir/run-YYYYmmdd_HHMMSS.jsonl for appending.
// Any secrets given are blanked wherever they appear in a string field.
func NewRunLogMonitor(dir string, secrets ...string) (*RunLogMonitor, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run log directory: %w", err)
	}
	name := time.Now().Format("20060102_150405")
	path := filepath.Join(dir, fmt.Sprintf("run-%s.jsonl", name))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}
	m := &RunLogMonitor{f: f, path: path, now: time.Now}
	for _, secret := range secrets {
		if secret != "" {
			m.secrets = append(m.secrets, secret)
		}
	}
	m.secrets = append(m.secrets, secretMarkers...)
	return m, nil
}

// Path returns the file being written
func (r *RunLogMonitor) Path() string {
	return r.path
}

// Close closes the underlying file
func (r *RunLogMonitor) Close() error {
	if r == nil || r.f == nil {
		return nil
	}
	return r.f.Close()
}

func (r *RunLogMonitor) RecordWorkflowStart(ctx context.Context, workflowID, name string) error {
	return r.logEvent("workflow_start", map[string]any{"workflow_id": workflowID, "name": name})
}

func (r *RunLogMonitor) RecordActivityStart(ctx context.Context, workflowID, activity string) error {
	return r.logEvent("activity_start", map[string]any{"workflow_id": workflowID, "activity": activity})
}

func (r *RunLogMonitor) RecordActivityCompletion(ctx context.Context, workflowID, activity string, success bool, duration time.Duration, errMsg string) error {
	return r.logEvent("activity_complete", map[string]any{
		"workflow_id": workflowID,
		"activity":    activity,
		"success":     success,
		"duration_ms": duration.Milliseconds(),
		"error":       errMsg,
	})
}

func (r *RunLogMonitor) RecordWorkflowCompletion(ctx context.Context, workflowID, name string, success bool, duration time.Duration) error {
	return r.logEvent("workflow_complete", map[string]any{
		"workflow_id": workflowID,
		"name":        name,
		"success":     success,
		"duration_ms": duration.Milliseconds(),
	})
}

// logEvent writes a JSON line with the provided type and fields.
func (r *RunLogMonitor) logEvent(eventType string, fields map[string]any) error {
	if r == nil || r.f == nil {
		return nil
	}
	payload := map[string]any{
		"ts":   r.now().Format(time.RFC3339Nano),
		"type": eventType,
	}
	for k, v := range fields {
		if s, ok := v.(string); ok {
			v = r.redact(s)
		}
		payload[k] = v
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, err = r.f.Write(append(b, '\n'))
	return err
}

func (r *RunLogMonitor) redact(s string) string {
	for _, marker := range r.secrets {
		s = strings.ReplaceAll(s, marker, "<REDACTED>")
	}
	return s
}
