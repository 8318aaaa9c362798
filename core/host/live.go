// Package host connects chatexport to the page that holds a conversation:
// a tab in a running Chrome (through go-rod or chromedp) or a saved HTML
// snapshot on disk.
//
// Live drivers never touch the document. Turn elements are serialized in
// the browser and parsed into detached goquery trees; only the scroll
// offset of the conversation scroller is changed, and the collector puts
// it back.
package host

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gaurav-prasanna/chatexport/core"
)

// evalFunc calls a script function expression with JSON-encodable args and
// returns its string result.
type evalFunc func(ctx context.Context, fn string, args ...any) (string, error)

// livePage implements core.Page over a script evaluator.
type livePage struct {
	url   string
	eval  evalFunc
	close func() error
}

var _ core.Page = (*livePage)(nil)

func (p *livePage) URL() string { return p.url }

func (p *livePage) Turns(ctx context.Context, selectors []string, visibleOnly bool) ([]*goquery.Selection, error) {
	raw, err := p.eval(ctx, turnsScript, selectors, visibleOnly)
	if err != nil {
		return nil, fmt.Errorf("listing turns: %w", err)
	}
	var markup []string
	if err := json.Unmarshal([]byte(raw), &markup); err != nil {
		return nil, fmt.Errorf("decoding turns: %w", err)
	}
	turns := make([]*goquery.Selection, 0, len(markup))
	for _, m := range markup {
		sel, err := parseElement(m)
		if err != nil {
			return nil, err
		}
		if sel.Length() > 0 {
			turns = append(turns, sel)
		}
	}
	return turns, nil
}

func (p *livePage) Scroller(ctx context.Context, turnSelectors []string) (core.Scroller, error) {
	s := &liveScroller{page: p, selectors: turnSelectors}
	if _, err := s.Metrics(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *livePage) Lookup(ctx context.Context, selector, property string) (string, error) {
	v, err := p.eval(ctx, lookupScript, selector, property)
	if err != nil {
		return "", fmt.Errorf("looking up %s: %w", selector, err)
	}
	return strings.TrimSpace(v), nil
}

func (p *livePage) Title(ctx context.Context) (string, error) {
	v, err := p.eval(ctx, titleScript)
	if err != nil {
		return "", fmt.Errorf("reading title: %w", err)
	}
	return strings.TrimSpace(v), nil
}

func (p *livePage) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}

type liveScroller struct {
	page      *livePage
	selectors []string
}

func (s *liveScroller) Metrics(ctx context.Context) (core.ScrollMetrics, error) {
	var m core.ScrollMetrics
	raw, err := s.page.eval(ctx, metricsScript, s.selectors)
	if err != nil {
		return m, fmt.Errorf("reading scroll metrics: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return m, fmt.Errorf("decoding scroll metrics: %w", err)
	}
	return m, nil
}

func (s *liveScroller) ScrollTo(ctx context.Context, top float64) error {
	if _, err := s.page.eval(ctx, scrollToScript, s.selectors, top); err != nil {
		return fmt.Errorf("scrolling to %.0f: %w", top, err)
	}
	return nil
}

func (s *liveScroller) ScrollBy(ctx context.Context, delta float64) error {
	if _, err := s.page.eval(ctx, scrollByScript, s.selectors, delta); err != nil {
		return fmt.Errorf("scrolling by %.0f: %w", delta, err)
	}
	return nil
}

// parseElement parses the outer markup of one element into a detached
// tree and returns that element.
func parseElement(markup string) (*goquery.Selection, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body>" + markup + "</body></html>"))
	if err != nil {
		return nil, fmt.Errorf("parsing turn markup: %w", err)
	}
	return doc.Find("body").Children().First(), nil
}

// callExpression renders fn applied to args as a single expression, for
// drivers that evaluate expressions rather than functions.
func callExpression(fn string, args ...any) (string, error) {
	enc := make([]string, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return "", fmt.Errorf("encoding script argument: %w", err)
		}
		enc[i] = string(b)
	}
	return "(" + fn + ")(" + strings.Join(enc, ", ") + ")", nil
}
