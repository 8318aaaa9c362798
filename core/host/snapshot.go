package host

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/gaurav-prasanna/chatexport/core"
	"github.com/gaurav-prasanna/chatexport/core/selector"
)

// displayNone matches an inline style that hides the element.
var displayNone = regexp.MustCompile(`(?i)display\s*:\s*none`)

// Snapshot is a saved copy of a conversation page. It cannot scroll: the
// whole conversation is expected to be in the file.
type Snapshot struct {
	doc *goquery.Document
	url string
}

var _ core.Page = (*Snapshot)(nil)

// OpenFile reads a saved HTML page. pageURL is reported as the page
// address; when empty the document's canonical link is used, then a
// file:// URL.
func OpenFile(path, pageURL string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	snap, err := ReadSnapshot(f, pageURL)
	if err != nil {
		return nil, err
	}
	if snap.url == "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		snap.url = "file://" + filepath.ToSlash(abs)
	}
	return snap, nil
}

// ReadSnapshot parses a saved HTML page from r.
func ReadSnapshot(r io.Reader, pageURL string) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	if pageURL == "" {
		pageURL, _ = doc.Find(`link[rel="canonical"]`).First().Attr("href")
	}
	return &Snapshot{doc: doc, url: pageURL}, nil
}

func (s *Snapshot) URL() string { return s.url }

func (s *Snapshot) Turns(_ context.Context, selectors []string, visibleOnly bool) ([]*goquery.Selection, error) {
	res := selector.All(s.doc.Selection, selectors...)
	var out []*goquery.Selection
	res.Selection.Each(func(_ int, t *goquery.Selection) {
		if visibleOnly && hidden(t.Nodes[0]) {
			return
		}
		out = append(out, t.Clone())
	})
	return out, nil
}

// hidden reports whether n or an ancestor carries the hidden attribute or
// an inline display:none.
func hidden(n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		for _, a := range n.Attr {
			if a.Key == "hidden" || (a.Key == "style" && displayNone.MatchString(a.Val)) {
				return true
			}
		}
	}
	return false
}

func (s *Snapshot) Scroller(context.Context, []string) (core.Scroller, error) {
	return staticScroller{}, nil
}

func (s *Snapshot) Lookup(_ context.Context, sel, property string) (string, error) {
	res := selector.First(s.doc.Selection, sel)
	if !res.Found() {
		return "", nil
	}
	switch property {
	case "textContent", "innerText", "":
		return strings.TrimSpace(res.Selection.Text()), nil
	default:
		v, _ := res.Selection.Attr(property)
		return strings.TrimSpace(v), nil
	}
}

func (s *Snapshot) Title(context.Context) (string, error) {
	return strings.TrimSpace(s.doc.Find("title").First().Text()), nil
}

func (s *Snapshot) Close() error { return nil }

// staticScroller is a scroller that is always at the bottom.
type staticScroller struct{}

func (staticScroller) Metrics(context.Context) (core.ScrollMetrics, error) {
	return core.ScrollMetrics{}, nil
}

func (staticScroller) ScrollTo(context.Context, float64) error { return nil }

func (staticScroller) ScrollBy(context.Context, float64) error { return nil }
