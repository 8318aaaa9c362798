// Package reconcile decides the final order of collected turns.
//
// Capture order follows the scroll pass, which is usually but not always
// document order. When the live document still holds enough of the
// conversation, a rescan in document order is preferred.
package reconcile

import (
	"context"

	"go.uber.org/zap"

	"github.com/gaurav-prasanna/chatexport/core"
	"github.com/gaurav-prasanna/chatexport/core/collect"
	"github.com/gaurav-prasanna/chatexport/core/extract"
	"github.com/gaurav-prasanna/chatexport/core/profile"
)

// CoverageThreshold is the share of collected records a document rescan
// must find before its order is trusted over capture order when
// content-hash identities are involved.
const CoverageThreshold = 0.8

// Order names the order the messages were emitted in.
type Order string

const (
	OrderDOM     Order = "dom"
	OrderCapture Order = "capture"
)

// Reasons for falling back to capture order.
const (
	ReasonEmpty        = "empty store"
	ReasonLowCoverage  = "rescan coverage below threshold"
	ReasonPartial      = "rescan missed collected turns"
	ReasonRescanFailed = "rescan failed"
)

// Decision records how the final order was chosen.
type Decision struct {
	Order     Order
	Reason    string // empty when document order was used
	Scanned   int    // turn elements found by the rescan
	Collected int
}

// Reconciler orders a collection pass against the live document.
type Reconciler struct {
	page      core.Page
	profile   *profile.Profile
	extractor *extract.TurnExtractor
	logger    *zap.Logger
}

// New creates a Reconciler. ex must resolve identities the same way the
// collector did; a nil ex builds one from p.
func New(page core.Page, p *profile.Profile, ex *extract.TurnExtractor, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ex == nil {
		ex = extract.New(p, logger)
	}
	return &Reconciler{page: page, profile: p, extractor: ex, logger: logger}
}

// Reconcile returns the messages of store in their final order.
func (r *Reconciler) Reconcile(ctx context.Context, store *collect.Store) ([]core.Message, Decision) {
	d := Decision{Collected: store.Len()}
	if store.Len() == 0 {
		d.Order, d.Reason = OrderCapture, ReasonEmpty
		return []core.Message{}, d
	}

	turns, err := r.page.Turns(ctx, r.profile.Turns, false)
	if err != nil {
		r.logger.Warn("reconcile: rescan failed, keeping capture order", zap.Error(err))
		d.Order, d.Reason = OrderCapture, ReasonRescanFailed
		return store.Messages(), d
	}
	d.Scanned = len(turns)

	if store.HasHashIDs() && float64(len(turns)) < CoverageThreshold*float64(store.Len()) {
		r.logger.Debug("reconcile: low rescan coverage",
			zap.Int("scanned", len(turns)), zap.Int("collected", store.Len()))
		d.Order, d.Reason = OrderCapture, ReasonLowCoverage
		return store.Messages(), d
	}

	out := make([]core.Message, 0, store.Len())
	emitted := make(map[string]bool, store.Len())
	for _, turn := range turns {
		id, err := r.extractor.Identify(turn)
		if err != nil || emitted[id] {
			continue
		}
		rec, ok := store.Get(id)
		if !ok {
			continue
		}
		emitted[id] = true
		out = append(out, core.Message{Role: rec.Role, Content: rec.Content})
	}

	if len(out) < store.Len() {
		r.logger.Debug("reconcile: rescan incomplete",
			zap.Int("emitted", len(out)), zap.Int("collected", store.Len()))
		d.Order, d.Reason = OrderCapture, ReasonPartial
		return store.Messages(), d
	}

	d.Order = OrderDOM
	return out, d
}
