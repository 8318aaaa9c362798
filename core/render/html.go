// Package render — HTML renderer.
// Produces a standalone UTF-8 document: header with title, export time and
// message count, one styled block per message, footer. Message markup is
// filtered through the export policy before it is embedded.
package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"

	"github.com/microcosm-cc/bluemonday"

	"github.com/gaurav-prasanna/chatexport/core"
	"github.com/gaurav-prasanna/chatexport/core/sanitize"
)

//go:embed style.css
var styleSheet string

// timeLayout formats export timestamps in documents.
const timeLayout = "2006-01-02 15:04:05"

var documentTmpl = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Title}} - Export</title>
  <style>{{.Style}}</style>
</head>
<body>
  <div class="export-header">
    <h1>{{.Title}}</h1>
    <div class="meta">
      <span>Exported: {{.Generated}}</span>
      <span> | </span>
      <span>{{.Count}} messages</span>
    </div>
  </div>

  <div class="conversation">
{{- range .Messages}}
    <div class="message {{.Class}}">
      <div class="message-header">
        <span class="icon">{{.Icon}}</span>
        <span class="role">{{.Label}}</span>
      </div>
      <div class="message-content">
        {{.Content}}
      </div>
    </div>
{{- end}}
  </div>

  <div class="export-footer">
    <p>Exported by chatexport from {{.Source}} | {{.Generated}}</p>
  </div>
</body>
</html>
`))

type documentView struct {
	Title     string
	Style     template.CSS
	Generated string
	Count     int
	Source    string
	Messages  []messageView
}

type messageView struct {
	Class   string
	Icon    string
	Label   string
	Content template.HTML
}

// HTMLRenderer renders a transcript as a standalone HTML document.
type HTMLRenderer struct {
	policy *bluemonday.Policy
}

// NewHTMLRenderer creates an HTMLRenderer using the export policy.
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{policy: sanitize.ExportPolicy()}
}

// Render builds the HTML document for t.
func (r *HTMLRenderer) Render(t *core.Transcript) ([]byte, error) {
	view := documentView{
		Title:     t.Title,
		Style:     template.CSS(styleSheet),
		Generated: t.GeneratedAt.Format(timeLayout),
		Count:     len(t.Messages),
		Source:    t.Source,
		Messages:  make([]messageView, 0, len(t.Messages)),
	}
	for _, m := range t.Messages {
		mv := messageView{
			Class:   "user",
			Icon:    "👤",
			Label:   "User",
			Content: template.HTML(r.policy.Sanitize(m.Content)),
		}
		if m.Role == core.RoleAssistant {
			mv.Class = "assistant"
			mv.Icon = "✨"
			mv.Label = assistantLabel(t)
		}
		view.Messages = append(view.Messages, mv)
	}

	var buf bytes.Buffer
	if err := documentTmpl.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("rendering HTML: %w", err)
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for HTML output.
func (r *HTMLRenderer) Extension() string {
	return ".html"
}

func assistantLabel(t *core.Transcript) string {
	if t.AssistantLabel == "" {
		return "Assistant"
	}
	return t.AssistantLabel
}
