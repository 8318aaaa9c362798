// Package render — JSON renderer.
// Emits the transcript with its metadata. Each message carries the exported
// markup, a Markdown form and derived plain text; the structure block
// summarizes headings, links, code blocks and tables across the
// conversation.
package render

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/gaurav-prasanna/chatexport/core"
	"github.com/gaurav-prasanna/chatexport/core/normalize"
	"github.com/gaurav-prasanna/chatexport/core/sanitize"
)

type transcriptJSON struct {
	ExportID       string        `json:"export_id,omitempty"`
	Title          string        `json:"title"`
	Source         string        `json:"source"`
	AssistantLabel string        `json:"assistant_label"`
	URL            string        `json:"url,omitempty"`
	GeneratedAt    time.Time     `json:"generated_at"`
	MessageCount   int           `json:"message_count"`
	Messages       []messageJSON `json:"messages"`
	Structure      structureJSON `json:"structure"`
}

type messageJSON struct {
	Role     core.Role `json:"role"`
	Content  string    `json:"content"`
	Markdown string    `json:"markdown"`
	Text     string    `json:"text"`
}

type headingJSON struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

type linkJSON struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

type structureJSON struct {
	Headings   []headingJSON `json:"headings"`
	Links      []linkJSON    `json:"links"`
	CodeBlocks int           `json:"code_blocks"`
	Tables     int           `json:"tables"`
}

// JSONRenderer produces a structured JSON document.
type JSONRenderer struct {
	policy     *bluemonday.Policy
	normalizer *normalize.MarkdownNormalizer
}

// NewJSONRenderer creates a JSONRenderer.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{policy: sanitize.ExportPolicy(), normalizer: normalize.New()}
}

// Render converts t into indented JSON.
func (r *JSONRenderer) Render(t *core.Transcript) ([]byte, error) {
	doc := transcriptJSON{
		ExportID:       t.ExportID,
		Title:          t.Title,
		Source:         t.Source,
		AssistantLabel: assistantLabel(t),
		URL:            t.URL,
		GeneratedAt:    t.GeneratedAt,
		MessageCount:   len(t.Messages),
		Messages:       make([]messageJSON, 0, len(t.Messages)),
		Structure: structureJSON{
			Headings: []headingJSON{},
			Links:    []linkJSON{},
		},
	}

	for i, m := range t.Messages {
		content := r.policy.Sanitize(m.Content)
		md, err := r.normalizer.Normalize(content)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i+1, err)
		}
		doc.Messages = append(doc.Messages, messageJSON{
			Role:     m.Role,
			Content:  content,
			Markdown: md,
			Text:     stripMarkdown(md),
		})
		doc.Structure.Headings = append(doc.Structure.Headings, extractHeadings(md)...)
		doc.Structure.Links = append(doc.Structure.Links, extractLinks(md)...)
		doc.Structure.CodeBlocks += countCodeBlocks(md)
		doc.Structure.Tables += countTables(md)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return data, nil
}

// Extension returns the file extension for JSON output.
func (r *JSONRenderer) Extension() string {
	return ".json"
}

// --- Markdown parsing helpers ---

var headingRegex = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)

func extractHeadings(md string) []headingJSON {
	matches := headingRegex.FindAllStringSubmatch(md, -1)
	headings := make([]headingJSON, 0, len(matches))
	for _, m := range matches {
		headings = append(headings, headingJSON{
			Level: len(m[1]),
			Text:  strings.TrimSpace(m[2]),
		})
	}
	return headings
}

// linkRegex matches Markdown links [text](url).
var linkRegex = regexp.MustCompile(`\[([^\]]*)\]\(([^)]+)\)`)

func extractLinks(md string) []linkJSON {
	matches := linkRegex.FindAllStringSubmatch(md, -1)
	links := make([]linkJSON, 0, len(matches))
	for _, m := range matches {
		links = append(links, linkJSON{Text: m[1], Href: m[2]})
	}
	return links
}

// countCodeBlocks counts fenced code blocks (``` delimited).
func countCodeBlocks(md string) int {
	return strings.Count(md, "```") / 2
}

// tableRowRegex matches Markdown table separator rows (|---|).
var tableRowRegex = regexp.MustCompile(`(?m)^\|[-:| ]+\|$`)

func countTables(md string) int {
	return len(tableRowRegex.FindAllString(md, -1))
}

var (
	emphasisRegex   = regexp.MustCompile(`\*{1,3}([^*]+)\*{1,3}`)
	inlineCodeRegex = regexp.MustCompile("`([^`]+)`")
	blankLinesRegex = regexp.MustCompile(`\n{3,}`)
)

// stripMarkdown removes common Markdown formatting to produce plain text.
func stripMarkdown(md string) string {
	text := headingRegex.ReplaceAllString(md, "$2")
	text = emphasisRegex.ReplaceAllString(text, "$1")
	text = linkRegex.ReplaceAllString(text, "$1")
	text = strings.ReplaceAll(text, "```", "")
	text = inlineCodeRegex.ReplaceAllString(text, "$1")
	text = blankLinesRegex.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
