// Package progress delivers fire-and-forget collection progress to
// whoever presents it (a terminal status line, a JSON-lines consumer).
// Delivery failures are logged by the Router and never reach the
// collector.
package progress

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
)

// ActionProgress is the action name carried by progress events.
const ActionProgress = "progress"

// Event reports how many unique turns have been collected so far.
type Event struct {
	Action string `json:"action"`
	Count  int    `json:"count"`
}

// NewEvent builds a progress event.
func NewEvent(count int) Event {
	return Event{Action: ActionProgress, Count: count}
}

// Listener receives progress events.
type Listener interface {
	Notify(ctx context.Context, ev Event) error
}

// Func adapts a function to a Listener.
type Func func(ctx context.Context, ev Event) error

func (f Func) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Router fans events out to every listener. One failing listener does not
// block the others; errors are logged and the first one is returned.
type Router struct {
	listeners []Listener
	logger    *zap.Logger
}

// NewRouter creates a fan-out router.
func NewRouter(logger *zap.Logger, listeners ...Listener) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{listeners: listeners, logger: logger}
}

func (r *Router) Notify(ctx context.Context, ev Event) error {
	var firstErr error
	for _, l := range r.listeners {
		if err := l.Notify(ctx, ev); err != nil {
			r.logger.Debug("progress: listener failed", zap.Int("count", ev.Count), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// JSONLines writes one JSON object per event to an io.Writer (default
// os.Stdout).
type JSONLines struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONLines creates a JSONLines listener. If w is nil, os.Stdout is used.
func NewJSONLines(w io.Writer) *JSONLines {
	if w == nil {
		w = os.Stdout
	}
	return &JSONLines{enc: json.NewEncoder(w)}
}

func (j *JSONLines) Notify(_ context.Context, ev Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.enc.Encode(ev)
}
