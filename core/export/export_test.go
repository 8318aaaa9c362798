package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gaurav-prasanna/chatexport/core"
	"github.com/gaurav-prasanna/chatexport/core/host/hosttest"
	"github.com/gaurav-prasanna/chatexport/core/output"
	"github.com/gaurav-prasanna/chatexport/core/profile"
	"github.com/gaurav-prasanna/chatexport/core/progress"
	"github.com/gaurav-prasanna/chatexport/core/render"
)

type noWait struct{}

func (noWait) Wait(ctx context.Context, _ time.Duration) error { return ctx.Err() }

type panicRenderer struct{}

func (panicRenderer) Render(*core.Transcript) ([]byte, error) { panic("boom") }
func (panicRenderer) Extension() string                      { return ".html" }

var fixedNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func aistudio(t *testing.T) *profile.Profile {
	t.Helper()
	r, err := profile.Builtin()
	require.NoError(t, err)
	p, err := r.Get("aistudio")
	require.NoError(t, err)
	return p
}

func conversation() *hosttest.Page {
	return &hosttest.Page{
		PageURL:  "https://aistudio.google.com/prompts/abc",
		DocTitle: "My: Chat/Plan? | Google AI Studio",
		Rows: []string{
			hosttest.Turn("t1", core.RoleUser, "Hello"),
			hosttest.Turn("t2", core.RoleAssistant, "Hi <b>there</b>"),
			hosttest.Turn("t3", core.RoleUser, "Bye"),
		},
		Lookups: map[string]string{
			`input[aria-label="Prompt title"]|value`: "My: Chat/Plan?",
		},
	}
}

func exporter(t *testing.T, page core.Page, r core.Renderer, l progress.Listener) (*Exporter, string) {
	t.Helper()
	dir := t.TempDir()
	w, err := output.New(dir)
	require.NoError(t, err)
	return New(page, aistudio(t), Options{
		Renderer: r,
		Writer:   w,
		Listener: l,
		Waiter:   noWait{},
		Now:      func() time.Time { return fixedNow },
	}), dir
}

func TestExportWritesDocument(t *testing.T) {
	var counts []int
	l := progress.Func(func(_ context.Context, ev progress.Event) error {
		counts = append(counts, ev.Count)
		return nil
	})
	ex, dir := exporter(t, conversation(), render.NewHTMLRenderer(), l)

	res := ex.Export(context.Background())
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 3, res.MessageCount)
	assert.Equal(t, filepath.Join(dir, "AIStudio-chat-20260314-My_Chat_Plan.html"), res.Path)
	assert.Equal(t, []int{3}, counts)
	_, err := uuid.Parse(res.ExportID)
	assert.NoError(t, err)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, len(data), res.Bytes)
	doc := string(data)
	assert.Contains(t, doc, "<h1>My: Chat/Plan?</h1>")
	assert.Contains(t, doc, "Hi <b>there</b>")
	assert.Less(t, strings.Index(doc, "Hello"), strings.Index(doc, "Bye"))
}

func TestExportWithoutMessages(t *testing.T) {
	ex, dir := exporter(t, &hosttest.Page{}, render.NewHTMLRenderer(), nil)

	res := ex.Export(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, ErrNoMessages.Error(), res.Error)
	assert.NotEmpty(t, res.ExportID)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExportReportsTransportFailure(t *testing.T) {
	page := conversation()
	page.TurnsErr = errors.New("target closed")
	ex, _ := exporter(t, page, render.NewHTMLRenderer(), nil)

	res := ex.Export(context.Background())
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "target closed")
	assert.Contains(t, res.Error, RemedyReload)

	err := error(&TransportError{Op: "collecting turns", Remedy: RemedyReload, Err: page.TurnsErr})
	assert.ErrorIs(t, err, page.TurnsErr)
}

func TestExportRecoversPanics(t *testing.T) {
	ex, _ := exporter(t, conversation(), panicRenderer{}, nil)

	res := ex.Export(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, "export failed: boom", res.Error)
}

func TestExportCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ex, _ := exporter(t, conversation(), render.NewHTMLRenderer(), nil)

	res := ex.Export(ctx)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "export cancelled")
}

func TestConversationTitle(t *testing.T) {
	p := aistudio(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		page     *hosttest.Page
		want     string
		fallback string
	}{
		{
			name:     "input value",
			page:     &hosttest.Page{Lookups: map[string]string{`input[aria-label="Prompt title"]|value`: "Trip"}},
			want:     "Trip",
			fallback: "Trip",
		},
		{
			name:     "document title head",
			page:     &hosttest.Page{DocTitle: "Budget review - Google AI Studio"},
			want:     "Budget review",
			fallback: "Budget review",
		},
		{
			name:     "generic document title",
			page:     &hosttest.Page{DocTitle: "Google AI Studio | Chat"},
			want:     "",
			fallback: "Google AI Studio | Chat",
		},
		{
			name: "too long candidate skipped",
			page: &hosttest.Page{Lookups: map[string]string{
				`input[aria-label="Prompt title"]|value`: strings.Repeat("a", 100),
				`header h1|textContent`:                  "Header title",
			}},
			want:     "Header title",
			fallback: "Header title",
		},
		{
			name:     "nothing",
			page:     &hosttest.Page{},
			want:     "",
			fallback: "AIStudio conversation",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConversationTitle(ctx, tt.page, p, zap.NewNop())
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.fallback, DisplayTitle(ctx, tt.page, p, got))
		})
	}
}
