// Package sanitize cleans detached copies of conversation markup.
//
// Sanitize removes interactive controls, hidden helper nodes, icon glyphs
// and aside panels from a clone and strips framework-private attributes.
// ExportPolicy is the last line applied to markup written to disk.
package sanitize

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/gaurav-prasanna/chatexport/core/selector"
)

// DefaultRemove lists elements that never belong to a visible message.
var DefaultRemove = []string{
	"button",
	".copy-button",
	".toolbar",
	".actions",
	`[aria-hidden="true"]`,
	".sr-only",
	".cdk-visually-hidden",
	"mat-expansion-panel:not([disabled])",
	".material-symbols-outlined",
}

// DefaultAttrPrefixes are attribute name prefixes injected by the Angular
// renderer (_ngcontent-*, _nghost-*, ng-reflect-*, ...).
var DefaultAttrPrefixes = []string{"_ng", "ng-"}

// Sanitizer removes non-content nodes and attributes from a clone.
type Sanitizer struct {
	Remove       []string
	AttrPrefixes []string
}

// New creates a Sanitizer. Empty arguments fall back to the defaults.
func New(remove, attrPrefixes []string) *Sanitizer {
	if len(remove) == 0 {
		remove = DefaultRemove
	}
	if len(attrPrefixes) == 0 {
		attrPrefixes = DefaultAttrPrefixes
	}
	return &Sanitizer{Remove: remove, AttrPrefixes: attrPrefixes}
}

// Report summarises what Sanitize changed.
type Report struct {
	RemovedNodes  int
	StrippedAttrs int
	Skipped       []*selector.SelectorError
}

// Sanitize mutates clone in place. clone must be a detached copy.
func (s *Sanitizer) Sanitize(clone *goquery.Selection) Report {
	var rep Report
	rep.RemovedNodes, rep.Skipped = selector.Remove(clone, s.Remove...)

	clone.Find("*").Each(func(_ int, el *goquery.Selection) {
		for _, n := range el.Nodes {
			rep.StrippedAttrs += s.stripAttrs(n)
		}
	})
	return rep
}

func (s *Sanitizer) stripAttrs(n *html.Node) int {
	kept := n.Attr[:0]
	stripped := 0
	for _, a := range n.Attr {
		if s.private(a.Key) {
			stripped++
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
	return stripped
}

func (s *Sanitizer) private(name string) bool {
	for _, p := range s.AttrPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// mathElements is the presentation MathML that KaTeX emits.
var mathElements = []string{
	"math", "semantics", "mrow", "mi", "mo", "mn", "msup", "msub", "msubsup",
	"mfrac", "msqrt", "mroot", "mtext", "mspace", "mtable", "mtr", "mtd",
	"munder", "mover", "munderover",
}

// ExportPolicy returns the policy applied to message markup before it is
// embedded in an exported document. Formatting, tables, code, links and
// images (including data URIs) survive; scripts, styles, forms and event
// handlers do not. MathML is kept so the browser renders formulas; TeX
// annotations are dropped.
func ExportPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowDataURIImages()
	p.AllowAttrs("class").Globally()
	p.AllowAttrs("start").OnElements("ol")
	p.AllowAttrs("colspan", "rowspan").OnElements("td", "th")
	p.AllowElements(mathElements...)
	p.AllowAttrs("display").OnElements("math")
	p.AllowAttrs("mathvariant").OnElements(mathElements...)
	p.SkipElementsContent("annotation", "annotation-xml")
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}
