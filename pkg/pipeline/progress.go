package pipeline

import (
	"fmt"
	"sync"

	"github.com/fatih/color"
)

// ProgressEvent is a periodic notification from a running pipeline: stage
// transitions plus an every-N-records tick during enrichment.
type ProgressEvent struct {
	Stage     State
	Processed int
	Total     int
	Message   string
}

// ProgressHandler receives pipeline progress. Optional side channel, not
// required for correctness.
type ProgressHandler interface {
	HandleProgress(ProgressEvent)
}

// ConsoleProgressHandler prints progress to the terminal.
type ConsoleProgressHandler struct{}

func (ConsoleProgressHandler) HandleProgress(ev ProgressEvent) {
	if ev.Total > 0 {
		color.New(color.FgCyan).Printf("[%s] %d/%d %s\n", ev.Stage, ev.Processed, ev.Total, ev.Message)
		return
	}
	color.New(color.FgCyan).Printf("[%s] %s\n", ev.Stage, ev.Message)
}

// RecordingProgressHandler captures events for inspection in tests.
type RecordingProgressHandler struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (r *RecordingProgressHandler) HandleProgress(ev ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Snapshot returns a copy of the captured events.
func (r *RecordingProgressHandler) Snapshot() []ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ProgressEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Stages returns the distinct stage transitions in order.
func (r *RecordingProgressHandler) Stages() []State {
	var out []State
	for _, ev := range r.Snapshot() {
		if len(out) == 0 || out[len(out)-1] != ev.Stage {
			out = append(out, ev.Stage)
		}
	}
	return out
}

// MultiProgressHandler fans events out to several handlers.
type MultiProgressHandler struct {
	Handlers []ProgressHandler
}

func (m MultiProgressHandler) HandleProgress(ev ProgressEvent) {
	for _, h := range m.Handlers {
		h.HandleProgress(ev)
	}
}

func tickMessage(processed, total int) string {
	return fmt.Sprintf("enriched %d of %d entities", processed, total)
}
