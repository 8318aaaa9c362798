package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/gaurav-prasanna/chatexport/core"
	"github.com/gaurav-prasanna/chatexport/core/profile"
)

// blockAtoms start and end a line of rendered text.
var blockAtoms = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true,
	atom.Figcaption: true, atom.Figure: true, atom.Footer: true, atom.Form: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Header: true, atom.Hr: true, atom.Li: true, atom.Main: true, atom.Nav: true,
	atom.Ol: true, atom.P: true, atom.Pre: true, atom.Section: true, atom.Table: true,
	atom.Tr: true, atom.Ul: true,
}

var (
	spaceRun     = regexp.MustCompile(`[ \t\f\r\x{00a0}]+`)
	blankLineRun = regexp.MustCompile(`\n{2,}`)
)

// PlainText renders sel roughly the way a browser's innerText would, strips
// the profile's boilerplate patterns and normalizes whitespace.
func PlainText(sel *goquery.Selection, p *profile.Profile) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			renderText(&b, c, false)
		}
	}
	text := normalizeLines(b.String())
	if p != nil {
		for _, re := range p.BoilerplatePatterns() {
			text = re.ReplaceAllString(text, "")
		}
	}
	return normalizeLines(text)
}

func renderText(b *strings.Builder, n *html.Node, pre bool) {
	switch n.Type {
	case html.TextNode:
		if pre {
			b.WriteString(n.Data)
		} else {
			b.WriteString(spaceRun.ReplaceAllString(strings.ReplaceAll(n.Data, "\n", " "), " "))
		}
		return
	case html.ElementNode:
	default:
		return
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Template, atom.Noscript:
		return
	case atom.Br:
		b.WriteByte('\n')
		return
	case atom.Td, atom.Th:
		b.WriteByte('\t')
	}

	block := blockAtoms[n.DataAtom]
	if block {
		b.WriteByte('\n')
	}
	inPre := pre || n.DataAtom == atom.Pre
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderText(b, c, inPre)
	}
	if block {
		b.WriteByte('\n')
	}
}

// normalizeLines trims every line, collapses horizontal whitespace and
// blank-line runs, and trims the result.
func normalizeLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(spaceRun.ReplaceAllString(l, " "))
	}
	s = strings.Join(lines, "\n")
	s = blankLineRun.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}

// Hash is the 32-bit rolling hash h = h*31 + c over the UTF-16 code units
// of text, wrapping on overflow.
func Hash(text string) int32 {
	var h int32
	for _, c := range utf16.Encode([]rune(text)) {
		h = h*31 + int32(c)
	}
	return h
}

// HashID returns the content-hash identity for text.
func HashID(text string) string {
	return core.HashIDPrefix + strconv.FormatInt(int64(Hash(text)), 10)
}
