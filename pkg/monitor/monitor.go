// Package monitor provides WorkflowMonitor implementations.
package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/alantheprice/reqgen/pkg/events"
	"github.com/alantheprice/reqgen/pkg/interfaces"
	"github.com/alantheprice/reqgen/pkg/utils"
)

// LogMonitor writes workflow telemetry to the process logger
type LogMonitor struct {
	logger *utils.Logger
}

// NewLogMonitor creates a logger-backed monitor
func NewLogMonitor(logger *utils.Logger) *LogMonitor {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &LogMonitor{logger: logger}
}

func (m *LogMonitor) RecordWorkflowStart(ctx context.Context, workflowID, name string) error {
	m.logger.LogFields("workflow started", map[string]any{"workflow_id": workflowID, "name": name})
	return nil
}

func (m *LogMonitor) RecordActivityStart(ctx context.Context, workflowID, activity string) error {
	m.logger.LogFields("activity started", map[string]any{"workflow_id": workflowID, "activity": activity})
	return nil
}

func (m *LogMonitor) RecordActivityCompletion(ctx context.Context, workflowID, activity string, success bool, duration time.Duration, errMsg string) error {
	fields := map[string]any{
		"workflow_id": workflowID,
		"activity":    activity,
		"success":     success,
		"duration":    duration.String(),
	}
	if errMsg != "" {
		fields["error"] = errMsg
	}
	m.logger.LogFields("activity completed", fields)
	return nil
}

func (m *LogMonitor) RecordWorkflowCompletion(ctx context.Context, workflowID, name string, success bool, duration time.Duration) error {
	m.logger.LogFields("workflow completed", map[string]any{
		"workflow_id": workflowID,
		"name":        name,
		"success":     success,
		"duration":    duration.String(),
	})
	return nil
}

// EventMonitor publishes workflow telemetry on an event bus
type EventMonitor struct {
	bus *events.EventBus
}

// NewEventMonitor creates a monitor that publishes to bus
func NewEventMonitor(bus *events.EventBus) *EventMonitor {
	return &EventMonitor{bus: bus}
}

func (m *EventMonitor) RecordWorkflowStart(ctx context.Context, workflowID, name string) error {
	m.bus.Publish(events.EventTypeWorkflowStarted, events.WorkflowEvent(workflowID, name, false, 0))
	return nil
}

func (m *EventMonitor) RecordActivityStart(ctx context.Context, workflowID, activity string) error {
	m.bus.Publish(events.EventTypeActivityStarted, events.ActivityEvent(workflowID, activity, false, 0, ""))
	return nil
}

func (m *EventMonitor) RecordActivityCompletion(ctx context.Context, workflowID, activity string, success bool, duration time.Duration, errMsg string) error {
	m.bus.Publish(events.EventTypeActivityCompleted, events.ActivityEvent(workflowID, activity, success, duration, errMsg))
	if !success && errMsg != "" {
		m.bus.Publish(events.EventTypeError, events.ErrorEvent(activity+" failed", errors.New(errMsg)))
	}
	return nil
}

func (m *EventMonitor) RecordWorkflowCompletion(ctx context.Context, workflowID, name string, success bool, duration time.Duration) error {
	m.bus.Publish(events.EventTypeWorkflowCompleted, events.WorkflowEvent(workflowID, name, success, duration))
	return nil
}

// Multi forwards every call to all monitors and joins their errors
type Multi []interfaces.WorkflowMonitor

func (m Multi) each(fn func(interfaces.WorkflowMonitor) error) error {
	var errs []error
	for _, monitor := range m {
		if monitor == nil {
			continue
		}
		if err := fn(monitor); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) RecordWorkflowStart(ctx context.Context, workflowID, name string) error {
	return m.each(func(w interfaces.WorkflowMonitor) error { return w.RecordWorkflowStart(ctx, workflowID, name) })
}

func (m Multi) RecordActivityStart(ctx context.Context, workflowID, activity string) error {
	return m.each(func(w interfaces.WorkflowMonitor) error { return w.RecordActivityStart(ctx, workflowID, activity) })
}

func (m Multi) RecordActivityCompletion(ctx context.Context, workflowID, activity string, success bool, duration time.Duration, errMsg string) error {
	return m.each(func(w interfaces.WorkflowMonitor) error {
		return w.RecordActivityCompletion(ctx, workflowID, activity, success, duration, errMsg)
	})
}

func (m Multi) RecordWorkflowCompletion(ctx context.Context, workflowID, name string, success bool, duration time.Duration) error {
	return m.each(func(w interfaces.WorkflowMonitor) error {
		return w.RecordWorkflowCompletion(ctx, workflowID, name, success, duration)
	})
}
