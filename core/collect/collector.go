// Package collect scrolls a virtualized conversation from top to bottom and
// accumulates every turn that passes through the viewport.
//
// Chat applications keep only the turns near the viewport in the document,
// so a single query sees a fraction of the conversation. The Collector
// captures the visible turns after each scroll step and keeps the first
// record seen for every identity in a Store.
package collect

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/gaurav-prasanna/chatexport/core"
	"github.com/gaurav-prasanna/chatexport/core/extract"
	"github.com/gaurav-prasanna/chatexport/core/profile"
	"github.com/gaurav-prasanna/chatexport/core/progress"
)

// StopReason explains why the scroll loop ended.
type StopReason string

const (
	StopBottom   StopReason = "bottom"
	StopStalled  StopReason = "stalled"
	StopMaxLoops StopReason = "max-loops"
)

// Stats summarizes one collection pass.
type Stats struct {
	Iterations int
	StopReason StopReason
	Skipped    int
}

// Waiter pauses between scroll steps so the host page can render.
type Waiter interface {
	Wait(ctx context.Context, d time.Duration) error
}

// TimerWaiter waits on a real timer.
type TimerWaiter struct{}

func (TimerWaiter) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Option configures a Collector.
type Option func(*Collector)

// WithListener delivers progress events to l.
func WithListener(l progress.Listener) Option {
	return func(c *Collector) { c.listener = l }
}

// WithWaiter replaces the real-time waiter.
func WithWaiter(w Waiter) Option {
	return func(c *Collector) { c.waiter = w }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Collector) { c.logger = l }
}

// Collector drives one page through a full scroll pass.
type Collector struct {
	page      core.Page
	profile   *profile.Profile
	extractor *extract.TurnExtractor
	listener  progress.Listener
	waiter    Waiter
	logger    *zap.Logger
}

// New creates a Collector for page using profile p.
func New(page core.Page, p *profile.Profile, opts ...Option) *Collector {
	c := &Collector{
		page:    page,
		profile: p,
		waiter:  TimerWaiter{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.extractor = extract.New(p, c.logger)
	return c
}

// Extractor returns the extractor the collector uses, so that later stages
// resolve identities by the same rule.
func (c *Collector) Extractor() *extract.TurnExtractor {
	return c.extractor
}

// Collect scrolls the conversation from the top until it reaches the
// bottom, stops moving or runs out of iterations. The scroll offset found
// on entry is restored before Collect returns, also on error. A failed
// restore is logged and does not discard the collected turns.
func (c *Collector) Collect(ctx context.Context) (store *Store, stats Stats, err error) {
	store = NewStore()
	cfg := c.profile.Scroll

	scroller, err := c.page.Scroller(ctx, c.profile.Turns)
	if err != nil {
		return store, stats, fmt.Errorf("locating scroller: %w", err)
	}
	start, err := scroller.Metrics(ctx)
	if err != nil {
		return store, stats, fmt.Errorf("reading scroll position: %w", err)
	}
	defer func() {
		if rerr := scroller.ScrollTo(context.WithoutCancel(ctx), start.Top); rerr != nil {
			c.logger.Warn("collect: restoring scroll position failed", zap.Error(rerr))
		}
	}()

	if err = scroller.ScrollTo(ctx, 0); err != nil {
		return store, stats, fmt.Errorf("scrolling to top: %w", err)
	}
	if err = c.waiter.Wait(ctx, cfg.SettleDelay); err != nil {
		return store, stats, err
	}

	lastTop := -1.0
	stall := 0
	for stats.Iterations < cfg.MaxLoops {
		stats.Iterations++

		if err = c.capture(ctx, store, &stats); err != nil {
			return store, stats, err
		}
		c.notify(ctx, store.Len())

		m, merr := scroller.Metrics(ctx)
		if merr != nil {
			return store, stats, fmt.Errorf("reading scroll position: %w", merr)
		}
		if math.Abs(m.Top-lastTop) < cfg.StallThreshold {
			stall++
		} else {
			stall = 0
		}

		c.logger.Debug("collect: step",
			zap.Int("iteration", stats.Iterations),
			zap.Float64("top", m.Top),
			zap.Float64("max_top", m.MaxTop()),
			zap.Int("stall", stall),
			zap.Int("collected", store.Len()))

		if m.Top >= m.MaxTop()-cfg.BottomTolerance {
			stats.StopReason = StopBottom
			return store, stats, nil
		}
		if stall >= cfg.StallLimit {
			stats.StopReason = StopStalled
			return store, stats, nil
		}

		lastTop = m.Top
		step := math.Min(m.ViewportHeight*cfg.StepFraction, cfg.MaxStep)
		if err = scroller.ScrollBy(ctx, step); err != nil {
			return store, stats, fmt.Errorf("scrolling: %w", err)
		}
		if err = c.waiter.Wait(ctx, cfg.StepDelay); err != nil {
			return store, stats, err
		}
	}

	stats.StopReason = StopMaxLoops
	return store, stats, nil
}

// capture extracts every visible turn and adds new identities to store.
func (c *Collector) capture(ctx context.Context, store *Store, stats *Stats) error {
	turns, err := c.page.Turns(ctx, c.profile.Turns, true)
	if err != nil {
		return fmt.Errorf("reading turns: %w", err)
	}
	for _, turn := range turns {
		rec, err := c.extractor.Extract(turn)
		if err != nil {
			stats.Skipped++
			var skip *extract.SkipError
			if errors.As(err, &skip) {
				c.logger.Debug("collect: turn skipped", zap.String("id", skip.ID), zap.Error(skip.Err))
			} else {
				c.logger.Debug("collect: turn skipped", zap.Error(err))
			}
			continue
		}
		store.Add(rec)
	}
	return nil
}

func (c *Collector) notify(ctx context.Context, count int) {
	if c.listener == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("collect: progress listener panicked", zap.Any("panic", r))
		}
	}()
	if err := c.listener.Notify(ctx, progress.NewEvent(count)); err != nil {
		c.logger.Debug("collect: progress not delivered", zap.Error(err))
	}
}
