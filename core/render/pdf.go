// Package render — PDF renderer.
// Lays a transcript out with gofpdf: a title block, then one section per
// message with a role bar. Message markup is converted to Markdown first
// and written line by line (headings, paragraphs, code blocks, lists).
// Images are not rendered.
package render

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/microcosm-cc/bluemonday"

	"github.com/gaurav-prasanna/chatexport/core"
	"github.com/gaurav-prasanna/chatexport/core/normalize"
	"github.com/gaurav-prasanna/chatexport/core/sanitize"
)

var numberedItem = regexp.MustCompile(`^\d+\.\s`)

// PDFRenderer renders a transcript as a PDF document.
type PDFRenderer struct {
	policy     *bluemonday.Policy
	normalizer *normalize.MarkdownNormalizer
}

// NewPDFRenderer creates a PDFRenderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{policy: sanitize.ExportPolicy(), normalizer: normalize.New()}
}

// Render converts t into PDF bytes.
func (r *PDFRenderer) Render(t *core.Transcript) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(t.Title, true)
	pdf.SetCreator("chatexport", true)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 8, tr(t.Title), "", "L", false)
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(100, 100, 100)
	meta := fmt.Sprintf("Exported: %s | %d messages", t.GeneratedAt.Format(timeLayout), len(t.Messages))
	pdf.MultiCell(0, 5, tr(meta), "", "L", false)
	if t.URL != "" {
		pdf.MultiCell(0, 5, tr("Source: "+t.URL), "", "L", false)
	}
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(6)

	for i, m := range t.Messages {
		md, err := r.normalizer.Normalize(r.policy.Sanitize(m.Content))
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i+1, err)
		}
		renderRoleBar(pdf, tr, m.Role, assistantLabel(t))
		writeMarkdown(pdf, tr, md)
		pdf.Ln(4)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for PDF output.
func (r *PDFRenderer) Extension() string {
	return ".pdf"
}

func renderRoleBar(pdf *gofpdf.Fpdf, tr func(string) string, role core.Role, assistant string) {
	label := "User"
	if role == core.RoleAssistant {
		label = assistant
		pdf.SetFillColor(243, 229, 245)
		pdf.SetTextColor(123, 31, 162)
	} else {
		pdf.SetFillColor(227, 242, 253)
		pdf.SetTextColor(21, 101, 192)
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, tr(label), "", 1, "L", true, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(2)
}

// writeMarkdown lays out Markdown line by line.
func writeMarkdown(pdf *gofpdf.Fpdf, tr func(string) string, markdown string) {
	lines := strings.Split(markdown, "\n")
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inCodeBlock = !inCodeBlock
			pdf.Ln(2)
			continue
		}

		if inCodeBlock {
			pdf.SetFont("Courier", "", 9)
			pdf.SetFillColor(245, 245, 245)
			pdf.MultiCell(0, 4.5, tr(line), "", "L", true)
			continue
		}

		if strings.TrimSpace(line) == "" {
			pdf.Ln(3)
			continue
		}

		if strings.HasPrefix(line, "#") {
			level := len(line) - len(strings.TrimLeft(line, "#"))
			text := strings.TrimSpace(strings.TrimLeft(line, "# "))
			renderHeading(pdf, tr(text), level)
			continue
		}

		trimmed := strings.TrimSpace(line)
		pdf.SetFont("Helvetica", "", 10)
		switch {
		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			pdf.MultiCell(0, 5, tr("• "+cleanInlineMarkdown(trimmed[2:])), "", "L", false)
		case numberedItem.MatchString(trimmed):
			pdf.MultiCell(0, 5, tr(cleanInlineMarkdown(trimmed)), "", "L", false)
		case strings.HasPrefix(trimmed, "> "):
			pdf.SetTextColor(102, 102, 102)
			pdf.SetFont("Helvetica", "I", 10)
			pdf.MultiCell(0, 5, tr(cleanInlineMarkdown(trimmed[2:])), "", "L", false)
			pdf.SetTextColor(0, 0, 0)
		default:
			pdf.MultiCell(0, 5, tr(cleanInlineMarkdown(line)), "", "L", false)
		}
	}
}

var headingSizes = map[int]float64{1: 16, 2: 14, 3: 12, 4: 11, 5: 10, 6: 10}

// renderHeading sets the font size based on heading level and writes text.
func renderHeading(pdf *gofpdf.Fpdf, text string, level int) {
	size, ok := headingSizes[level]
	if !ok {
		size = 10
	}
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", size)
	pdf.MultiCell(0, size*0.6, cleanInlineMarkdown(text), "", "L", false)
	pdf.Ln(1)
}

var (
	italicRegex = regexp.MustCompile(`(?:^|\s)\*([^*]+)\*(?:\s|$)`)
	imageRegex  = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
)

// cleanInlineMarkdown strips inline Markdown formatting for PDF rendering.
func cleanInlineMarkdown(text string) string {
	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "__", "")
	// Leave asterisks inside words alone.
	text = italicRegex.ReplaceAllString(text, " $1 ")
	text = inlineCodeRegex.ReplaceAllString(text, "$1")
	text = imageRegex.ReplaceAllString(text, "[image: $1]")
	text = linkRegex.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}
