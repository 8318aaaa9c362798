// Package export runs one complete export of a conversation:
//  1. Collect turns while scrolling the page
//  2. Reconcile the final message order
//  3. Resolve the title, render the document and write it to disk
//
// Export never returns an error. Every failure, including a panic, is
// reported in the Result the caller shows to the user.
package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gaurav-prasanna/chatexport/core"
	"github.com/gaurav-prasanna/chatexport/core/collect"
	"github.com/gaurav-prasanna/chatexport/core/output"
	"github.com/gaurav-prasanna/chatexport/core/profile"
	"github.com/gaurav-prasanna/chatexport/core/progress"
	"github.com/gaurav-prasanna/chatexport/core/reconcile"
)

// ErrNoMessages means the page held no conversation content.
var ErrNoMessages = errors.New("no conversation content found; ensure the page has fully loaded")

// Remedies attached to transport failures.
const (
	RemedyReload    = "reload the chat page and try again"
	RemedyDebugPort = "start Chrome with --remote-debugging-port=9222"
)

// TransportError is a failure to talk to the host page.
type TransportError struct {
	Op     string
	Remedy string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v; %s", e.Op, e.Err, e.Remedy)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Result is the outcome of one export.
type Result struct {
	Success      bool   `json:"success"`
	MessageCount int    `json:"messageCount,omitempty"`
	Path         string `json:"path,omitempty"`
	Bytes        int    `json:"bytes,omitempty"`
	ExportID     string `json:"exportId,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Failed builds the result for err.
func Failed(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

// Options wires an Exporter. Renderer and Writer are required.
type Options struct {
	Renderer core.Renderer
	Writer   *output.Writer
	Listener progress.Listener
	Waiter   collect.Waiter
	Logger   *zap.Logger
	Now      func() time.Time
}

// Exporter exports the conversation shown on one page.
type Exporter struct {
	page    core.Page
	profile *profile.Profile
	opts    Options
}

// New creates an Exporter.
func New(page core.Page, p *profile.Profile, opts Options) *Exporter {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Waiter == nil {
		opts.Waiter = collect.TimerWaiter{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Exporter{page: page, profile: p, opts: opts}
}

// Export runs the export and reports its outcome.
func (e *Exporter) Export(ctx context.Context) (res Result) {
	id := uuid.NewString()
	logger := e.opts.Logger.With(zap.String("export_id", id), zap.String("profile", e.profile.Name))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("export: panic", zap.Any("panic", r), zap.Stack("stack"))
			res = Failed(fmt.Errorf("export failed: %v", r))
			res.ExportID = id
		}
	}()

	res, err := e.run(ctx, id, logger)
	if err != nil {
		logger.Warn("export: failed", zap.Error(err))
		res = Failed(err)
	}
	res.ExportID = id
	return res
}

func (e *Exporter) run(ctx context.Context, id string, logger *zap.Logger) (Result, error) {
	if e.opts.Renderer == nil || e.opts.Writer == nil {
		return Result{}, errors.New("export: renderer and writer are required")
	}

	start := time.Now()
	collector := collect.New(e.page, e.profile,
		collect.WithListener(e.opts.Listener),
		collect.WithWaiter(e.opts.Waiter),
		collect.WithLogger(logger))

	store, stats, err := collector.Collect(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, fmt.Errorf("export cancelled: %w", ctx.Err())
		}
		return Result{}, &TransportError{Op: "collecting turns", Remedy: RemedyReload, Err: err}
	}
	logger.Info("export: collected",
		zap.Int("turns", store.Len()),
		zap.Int("iterations", stats.Iterations),
		zap.String("stop", string(stats.StopReason)),
		zap.Int("skipped", stats.Skipped),
		zap.Duration("elapsed", time.Since(start)))

	msgs, decision := reconcile.New(e.page, e.profile, collector.Extractor(), logger).Reconcile(ctx, store)
	logger.Debug("export: reconciled",
		zap.String("order", string(decision.Order)),
		zap.String("reason", decision.Reason),
		zap.Int("scanned", decision.Scanned))
	if len(msgs) == 0 {
		return Result{}, ErrNoMessages
	}

	title := ConversationTitle(ctx, e.page, e.profile, logger)
	now := e.opts.Now()
	t := &core.Transcript{
		ExportID:       id,
		Title:          DisplayTitle(ctx, e.page, e.profile, title),
		Source:         e.profile.Source,
		AssistantLabel: e.profile.AssistantLabel,
		URL:            e.page.URL(),
		GeneratedAt:    now,
		Messages:       msgs,
	}

	data, err := e.opts.Renderer.Render(t)
	if err != nil {
		return Result{}, fmt.Errorf("render: %w", err)
	}

	name := output.Filename(e.profile.Source, title, now, e.opts.Renderer.Extension())
	path, err := e.opts.Writer.Write(name, data)
	if err != nil {
		return Result{}, fmt.Errorf("write: %w", err)
	}
	logger.Info("export: written", zap.String("path", path), zap.Int("messages", len(msgs)))

	return Result{
		Success:      true,
		MessageCount: len(msgs),
		Path:         path,
		Bytes:        len(data),
	}, nil
}
