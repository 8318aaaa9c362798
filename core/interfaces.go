// Package core defines the extraction pipeline types for chatexport.
// Each stage of the pipeline is a clean, testable interface.
package core

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Role identifies who authored a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// HashIDPrefix marks identities derived from message text rather than
// from a stable DOM id.
const HashIDPrefix = "content-hash-"

// TurnRecord is one extracted conversation turn.
type TurnRecord struct {
	ID        string
	Role      Role
	Content   string // sanitized inner HTML
	PlainText string // normalized text, used for hashing and emptiness checks
}

// HashDerived reports whether the record's identity came from its text.
func (r *TurnRecord) HashDerived() bool {
	return IsHashID(r.ID)
}

// IsHashID reports whether id is a content-hash identity.
func IsHashID(id string) bool {
	return len(id) > len(HashIDPrefix) && id[:len(HashIDPrefix)] == HashIDPrefix
}

// Message is an ordered transcript entry.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Transcript is everything a Renderer needs to produce a document.
type Transcript struct {
	ExportID       string
	Title          string
	Source         string // e.g. "AIStudio", used in filenames and footers
	AssistantLabel string // display name for assistant turns
	URL            string
	GeneratedAt    time.Time
	Messages       []Message
}

// ScrollMetrics describes the scroll state of the conversation scroller.
type ScrollMetrics struct {
	Top            float64 `json:"top"`
	Height         float64 `json:"height"` // scrollHeight
	ClientHeight   float64 `json:"clientHeight"`
	ViewportHeight float64 `json:"viewportHeight"` // window.innerHeight
}

// MaxTop returns the largest reachable scroll offset.
func (m ScrollMetrics) MaxTop() float64 {
	if m.Height <= m.ClientHeight {
		return 0
	}
	return m.Height - m.ClientHeight
}

// Scroller moves the scrollable region that holds the conversation.
type Scroller interface {
	Metrics(ctx context.Context) (ScrollMetrics, error)
	ScrollTo(ctx context.Context, top float64) error
	ScrollBy(ctx context.Context, delta float64) error
}

// Page is the host page holding a rendered conversation. Turn elements are
// returned as detached copies; nothing a caller does to them reaches the
// live document.
type Page interface {
	// URL returns the address of the page.
	URL() string
	// Turns returns the elements matched by the first candidate selector
	// that matches anything, in document order. With visibleOnly set,
	// elements without an offset parent are left out.
	Turns(ctx context.Context, selectors []string, visibleOnly bool) ([]*goquery.Selection, error)
	// Scroller locates the scrollable ancestor of the first turn element,
	// falling back to the document scrolling element.
	Scroller(ctx context.Context, turnSelectors []string) (Scroller, error)
	// Lookup returns property (for example "value" or "textContent") of the
	// first element matching selector, or "" when nothing matches.
	Lookup(ctx context.Context, selector, property string) (string, error)
	// Title returns the document title.
	Title(ctx context.Context) (string, error)
	Close() error
}

// Renderer converts a transcript into a final output format.
type Renderer interface {
	Render(t *Transcript) ([]byte, error)
	// Extension returns the file extension for this renderer (e.g. ".html", ".pdf").
	Extension() string
}
