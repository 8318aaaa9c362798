package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/chatexport/core"
)

func transcript() *core.Transcript {
	return &core.Transcript{
		ExportID:       "0b6f3c1e-8a9d-4c1a-9f43-2c4c8f6a1d10",
		Title:          `Plans <script>x</script> & more`,
		Source:         "AIStudio",
		AssistantLabel: "Gemini",
		URL:            "https://aistudio.google.com/prompts/abc",
		GeneratedAt:    time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		Messages: []core.Message{
			{Role: core.RoleUser, Content: "Hello"},
			{Role: core.RoleAssistant, Content: `<h2>Answer</h2><p>Hi <b>there</b><script>alert(1)</script></p><pre><code>go run .</code></pre><p><a href="https://go.dev">Go</a></p>`},
		},
	}
}

func TestHTMLRenderer(t *testing.T) {
	r := NewHTMLRenderer()
	out, err := r.Render(transcript())
	require.NoError(t, err)
	doc := string(out)

	assert.Equal(t, ".html", r.Extension())
	assert.True(t, strings.HasPrefix(doc, "<!DOCTYPE html>"))
	assert.Contains(t, doc, `<meta charset="UTF-8">`)
	assert.Contains(t, doc, "<h1>Plans &lt;script&gt;x&lt;/script&gt; &amp; more</h1>")
	assert.Contains(t, doc, "Exported: 2026-03-14 09:26:53")
	assert.Contains(t, doc, "2 messages")
	assert.Contains(t, doc, `<div class="message user">`)
	assert.Contains(t, doc, `<div class="message assistant">`)
	assert.Contains(t, doc, `<span class="role">User</span>`)
	assert.Contains(t, doc, `<span class="role">Gemini</span>`)
	assert.Contains(t, doc, "Hi <b>there</b>")
	assert.NotContains(t, doc, "alert(1)")
	assert.Contains(t, doc, ".message.assistant .message-header")
	assert.Contains(t, doc, `<div class="export-footer">`)

	// User first, assistant second.
	assert.Less(t, strings.Index(doc, "message user"), strings.Index(doc, "message assistant"))
}

func TestHTMLRendererKeepsMathML(t *testing.T) {
	tr := transcript()
	tr.Messages = []core.Message{{
		Role: core.RoleAssistant,
		Content: `<p>Euler: <span class="katex"><span class="katex-mathml"><math xmlns="http://www.w3.org/1998/Math/MathML" display="block">` +
			`<semantics><mrow><msup><mi>e</mi><mrow><mi>i</mi><mi mathvariant="normal">π</mi></mrow></msup></mrow>` +
			`<annotation encoding="application/x-tex">e^{i\pi}</annotation></semantics></math></span></span></p>`,
	}}
	out, err := NewHTMLRenderer().Render(tr)
	require.NoError(t, err)
	doc := string(out)

	assert.Contains(t, doc, `<math display="block"><semantics><mrow><msup><mi>e</mi>`)
	assert.Contains(t, doc, `<mi mathvariant="normal">π</mi>`)
	assert.NotContains(t, doc, "annotation")
	assert.NotContains(t, doc, `e^{i`)
}

func TestHTMLRendererDefaultAssistantLabel(t *testing.T) {
	tr := transcript()
	tr.AssistantLabel = ""
	out, err := NewHTMLRenderer().Render(tr)
	require.NoError(t, err)
	assert.Contains(t, string(out), `<span class="role">Assistant</span>`)
}

func TestJSONRenderer(t *testing.T) {
	out, err := NewJSONRenderer().Render(transcript())
	require.NoError(t, err)

	var doc struct {
		ExportID     string `json:"export_id"`
		Title        string `json:"title"`
		MessageCount int    `json:"message_count"`
		Messages     []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
			Text    string `json:"text"`
		} `json:"messages"`
		Structure struct {
			Headings []struct {
				Level int    `json:"level"`
				Text  string `json:"text"`
			} `json:"headings"`
			Links []struct {
				Href string `json:"href"`
			} `json:"links"`
			CodeBlocks int `json:"code_blocks"`
		} `json:"structure"`
	}
	require.NoError(t, json.Unmarshal(out, &doc))

	assert.Equal(t, "0b6f3c1e-8a9d-4c1a-9f43-2c4c8f6a1d10", doc.ExportID)
	assert.Equal(t, 2, doc.MessageCount)
	require.Len(t, doc.Messages, 2)
	assert.Equal(t, "user", doc.Messages[0].Role)
	assert.Equal(t, "Hello", doc.Messages[0].Text)
	assert.Equal(t, "assistant", doc.Messages[1].Role)
	assert.NotContains(t, doc.Messages[1].Content, "<script>")
	assert.Contains(t, doc.Messages[1].Text, "Hi there")

	require.Len(t, doc.Structure.Headings, 1)
	assert.Equal(t, 2, doc.Structure.Headings[0].Level)
	assert.Equal(t, "Answer", doc.Structure.Headings[0].Text)
	require.Len(t, doc.Structure.Links, 1)
	assert.Equal(t, "https://go.dev", doc.Structure.Links[0].Href)
	assert.Equal(t, 1, doc.Structure.CodeBlocks)
}

func TestPDFRenderer(t *testing.T) {
	r := NewPDFRenderer()
	out, err := r.Render(transcript())
	require.NoError(t, err)
	assert.Equal(t, ".pdf", r.Extension())
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestCleanInlineMarkdown(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hi **there**", "Hi there"},
		{"run `go test` now", "run go test now"},
		{"see [docs](https://go.dev)", "see docs"},
		{"![cat](cat.png)", "[image: cat]"},
		{"don't*stop", "don't*stop"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanInlineMarkdown(tt.in), tt.in)
	}
}
