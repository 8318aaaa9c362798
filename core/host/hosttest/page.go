// Package hosttest provides an in-memory core.Page for tests. It lays turn
// elements out as fixed-height rows inside a scrollable viewport and can
// virtualize them the way chat applications do: rows far from the viewport
// are not in the document at all.
package hosttest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gaurav-prasanna/chatexport/core"
	"github.com/gaurav-prasanna/chatexport/core/selector"
)

var _ core.Page = (*Page)(nil)

// Page is a fake host page. The zero value of the layout fields is
// replaced by defaults on first use.
type Page struct {
	PageURL  string
	DocTitle string

	// Rows holds the outer markup of every turn element in document order.
	Rows []string

	RowHeight      float64 // default 100
	ClientHeight   float64 // default 400
	ViewportHeight float64 // default ClientHeight

	// Virtualized drops rows farther than Overscan from the viewport out of
	// the document.
	Virtualized bool
	Overscan    float64

	// StuckAt, when positive, is an offset the scroller cannot move past.
	StuckAt float64

	// Top is the current scroll offset.
	Top float64

	// Lookups maps "selector|property" to the value Lookup returns.
	Lookups map[string]string

	TurnsErr    error
	ScrollerErr error
	MetricsErr  error
	// ScrollToErr, when set, decides whether a ScrollTo call fails.
	ScrollToErr func(top float64) error

	// Recorded calls.
	ScrollToCalls []float64
	ScrollByCalls []float64
	TurnsCalls    int
	Closed        bool
}

// Turn returns the markup of an AI Studio style turn element. An empty id
// leaves the element without one.
func Turn(id string, role core.Role, content string) string {
	var b strings.Builder
	b.WriteString("<ms-chat-turn")
	if id != "" {
		fmt.Fprintf(&b, ` id="%s"`, id)
	}
	b.WriteString(">")
	if role == core.RoleAssistant {
		b.WriteString(`<div class="chat-turn-container" data-turn-role="Model">`)
	} else {
		b.WriteString(`<div class="chat-turn-container" data-turn-role="User">`)
	}
	b.WriteString(`<div class="author-label">`)
	if role == core.RoleAssistant {
		b.WriteString("Model")
	} else {
		b.WriteString("User")
	}
	b.WriteString(`</div><ms-cmark-node>`)
	b.WriteString(content)
	b.WriteString(`</ms-cmark-node><div class="turn-footer"><button>edit</button></div></div></ms-chat-turn>`)
	return b.String()
}

func (p *Page) rowHeight() float64 {
	if p.RowHeight <= 0 {
		return 100
	}
	return p.RowHeight
}

func (p *Page) clientHeight() float64 {
	if p.ClientHeight <= 0 {
		return 400
	}
	return p.ClientHeight
}

func (p *Page) viewportHeight() float64 {
	if p.ViewportHeight <= 0 {
		return p.clientHeight()
	}
	return p.ViewportHeight
}

func (p *Page) height() float64 {
	return float64(len(p.Rows)) * p.rowHeight()
}

func (p *Page) limit() float64 {
	m := core.ScrollMetrics{Height: p.height(), ClientHeight: p.clientHeight()}.MaxTop()
	if p.StuckAt > 0 && p.StuckAt < m {
		return p.StuckAt
	}
	return m
}

func (p *Page) clamp(top float64) float64 {
	if top < 0 {
		return 0
	}
	if l := p.limit(); top > l {
		return l
	}
	return top
}

// intersects reports whether row i overlaps [top-margin, top+client+margin).
func (p *Page) intersects(i int, margin float64) bool {
	start := float64(i) * p.rowHeight()
	end := start + p.rowHeight()
	return start < p.Top+p.clientHeight()+margin && end > p.Top-margin
}

// Rendered returns the indexes of the rows currently in the document.
func (p *Page) Rendered() []int {
	var out []int
	for i := range p.Rows {
		if !p.Virtualized || p.intersects(i, p.Overscan) {
			out = append(out, i)
		}
	}
	return out
}

// Visible returns the indexes of the rows inside the viewport.
func (p *Page) Visible() []int {
	var out []int
	for i := range p.Rows {
		if p.intersects(i, 0) {
			out = append(out, i)
		}
	}
	return out
}

func (p *Page) URL() string { return p.PageURL }

func (p *Page) Turns(_ context.Context, selectors []string, visibleOnly bool) ([]*goquery.Selection, error) {
	p.TurnsCalls++
	if p.TurnsErr != nil {
		return nil, p.TurnsErr
	}
	rows := p.Rendered()
	if visibleOnly {
		rows = p.Visible()
	}
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, i := range rows {
		b.WriteString(p.Rows[i])
	}
	b.WriteString("</body></html>")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(b.String()))
	if err != nil {
		return nil, err
	}
	res := selector.All(doc.Selection, selectors...)
	out := make([]*goquery.Selection, 0, res.Selection.Length())
	res.Selection.Each(func(_ int, s *goquery.Selection) {
		out = append(out, s)
	})
	return out, nil
}

func (p *Page) Scroller(context.Context, []string) (core.Scroller, error) {
	if p.ScrollerErr != nil {
		return nil, p.ScrollerErr
	}
	return p, nil
}

func (p *Page) Metrics(ctx context.Context) (core.ScrollMetrics, error) {
	if p.MetricsErr != nil {
		return core.ScrollMetrics{}, p.MetricsErr
	}
	if err := ctx.Err(); err != nil {
		return core.ScrollMetrics{}, err
	}
	return core.ScrollMetrics{
		Top:            p.Top,
		Height:         p.height(),
		ClientHeight:   p.clientHeight(),
		ViewportHeight: p.viewportHeight(),
	}, nil
}

func (p *Page) ScrollTo(ctx context.Context, top float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.ScrollToErr != nil {
		if err := p.ScrollToErr(top); err != nil {
			return err
		}
	}
	p.ScrollToCalls = append(p.ScrollToCalls, top)
	p.Top = p.clamp(top)
	return nil
}

func (p *Page) ScrollBy(ctx context.Context, delta float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.ScrollByCalls = append(p.ScrollByCalls, delta)
	p.Top = p.clamp(p.Top + delta)
	return nil
}

func (p *Page) Lookup(_ context.Context, selector, property string) (string, error) {
	return p.Lookups[selector+"|"+property], nil
}

func (p *Page) Title(context.Context) (string, error) {
	return p.DocTitle, nil
}

func (p *Page) Close() error {
	if p.Closed {
		return errors.New("hosttest: page already closed")
	}
	p.Closed = true
	return nil
}
