package host

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/chatexport/core"
	"github.com/gaurav-prasanna/chatexport/core/profile"
)

const snapshotHTML = `<!doctype html>
<html><head><title>Trip plan | Google AI Studio</title>
<link rel="canonical" href="https://aistudio.google.com/prompts/abc"></head>
<body>
<input aria-label="Prompt title" value=" Trip plan ">
<div class="scroller">
  <ms-chat-turn id="t1"><p>one</p></ms-chat-turn>
  <ms-chat-turn id="t2" hidden><p>two</p></ms-chat-turn>
  <div style="display: none"><ms-chat-turn id="t3"><p>three</p></ms-chat-turn></div>
  <ms-chat-turn id="t4"><p>four</p></ms-chat-turn>
</div>
</body></html>`

func aistudio(t *testing.T) *profile.Profile {
	t.Helper()
	r, err := profile.Builtin()
	require.NoError(t, err)
	p, err := r.Get("aistudio")
	require.NoError(t, err)
	return p
}

func turnIDs(t *testing.T, page core.Page, visibleOnly bool) []string {
	t.Helper()
	turns, err := page.Turns(context.Background(), []string{"div[", "ms-chat-turn"}, visibleOnly)
	require.NoError(t, err)
	var ids []string
	for _, s := range turns {
		id, _ := s.Attr("id")
		ids = append(ids, id)
	}
	return ids
}

func TestSnapshotPage(t *testing.T) {
	snap, err := ReadSnapshot(strings.NewReader(snapshotHTML), "")
	require.NoError(t, err)
	ctx := context.Background()

	assert.Equal(t, "https://aistudio.google.com/prompts/abc", snap.URL())
	assert.Equal(t, []string{"t1", "t4"}, turnIDs(t, snap, true))
	assert.Equal(t, []string{"t1", "t2", "t3", "t4"}, turnIDs(t, snap, false))

	v, err := snap.Lookup(ctx, `input[aria-label="Prompt title"]`, "value")
	require.NoError(t, err)
	assert.Equal(t, "Trip plan", v)

	v, err = snap.Lookup(ctx, "ms-chat-turn", "textContent")
	require.NoError(t, err)
	assert.Equal(t, "one", v)

	v, err = snap.Lookup(ctx, ".missing", "textContent")
	require.NoError(t, err)
	assert.Empty(t, v)

	title, err := snap.Title(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Trip plan | Google AI Studio", title)

	sc, err := snap.Scroller(ctx, nil)
	require.NoError(t, err)
	m, err := sc.Metrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.MaxTop())
}

func TestSnapshotTurnsAreDetached(t *testing.T) {
	snap, err := ReadSnapshot(strings.NewReader(snapshotHTML), "")
	require.NoError(t, err)

	turns, err := snap.Turns(context.Background(), []string{"ms-chat-turn"}, false)
	require.NoError(t, err)
	turns[0].Find("p").Remove()

	again, err := snap.Turns(context.Background(), []string{"ms-chat-turn"}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, again[0].Find("p").Length())
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.html")
	require.NoError(t, os.WriteFile(path, []byte(`<html><body><ms-chat-turn id="a">x</ms-chat-turn></body></html>`), 0o644))

	snap, err := OpenFile(path, "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(snap.URL(), "file://"))
	assert.Equal(t, []string{"a"}, turnIDs(t, snap, true))

	_, err = OpenFile(filepath.Join(t.TempDir(), "missing.html"), "")
	assert.Error(t, err)
}

func TestPickTarget(t *testing.T) {
	p := aistudio(t)
	targets := []Target{
		{ID: "1", URL: "https://mail.google.com/"},
		{ID: "2", URL: "https://aistudio.google.com/prompts/abc"},
		{ID: "3", URL: "https://aistudio.google.com/prompts/xyz/#top"},
	}

	tests := []struct {
		name      string
		preferred string
		wantID    string
		wantErr   bool
	}{
		{"first matching host", "", "2", false},
		{"preferred url", "https://aistudio.google.com/prompts/xyz", "3", false},
		{"preferred url not open", "https://aistudio.google.com/prompts/nope", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PickTarget(targets, p, tt.preferred)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrNoTarget))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}

	_, err := PickTarget(targets[:1], p, "")
	assert.ErrorIs(t, err, ErrNoTarget)
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://aistudio.google.com/prompts/x", NormalizeURL("https://AIStudio.google.com/prompts/x/#frag"))
	assert.Equal(t, "https://example.com/", NormalizeURL("https://example.com/"))
}

func TestLivePageDecodesScriptResults(t *testing.T) {
	var scripts []string
	page := &livePage{
		url: "https://aistudio.google.com/prompts/abc",
		eval: func(_ context.Context, fn string, args ...any) (string, error) {
			scripts = append(scripts, fn)
			switch fn {
			case turnsScript:
				assert.Equal(t, []any{[]string{"ms-chat-turn"}, true}, args)
				return `["<ms-chat-turn id=\"t1\"><p>one</p></ms-chat-turn>","<ms-chat-turn id=\"t2\">two</ms-chat-turn>"]`, nil
			case metricsScript:
				return `{"top":120,"height":3000,"clientHeight":600,"viewportHeight":800}`, nil
			case lookupScript:
				return "  Title  ", nil
			case titleScript:
				return "", errors.New("target closed")
			}
			return "ok", nil
		},
	}
	ctx := context.Background()

	turns, err := page.Turns(ctx, []string{"ms-chat-turn"}, true)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "one", turns[0].Find("p").Text())

	sc, err := page.Scroller(ctx, []string{"ms-chat-turn"})
	require.NoError(t, err)
	m, err := sc.Metrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.ScrollMetrics{Top: 120, Height: 3000, ClientHeight: 600, ViewportHeight: 800}, m)
	assert.Equal(t, 2400.0, m.MaxTop())
	require.NoError(t, sc.ScrollBy(ctx, 480))
	require.NoError(t, sc.ScrollTo(ctx, 0))

	v, err := page.Lookup(ctx, ".prompt-title", "textContent")
	require.NoError(t, err)
	assert.Equal(t, "Title", v)

	_, err = page.Title(ctx)
	assert.ErrorContains(t, err, "reading title: target closed")
	assert.NoError(t, page.Close())
	assert.Contains(t, scripts, scrollByScript)
}

func TestCallExpression(t *testing.T) {
	expr, err := callExpression("(a, b) => a + b", []string{"x"}, 2.5)
	require.NoError(t, err)
	assert.Equal(t, `((a, b) => a + b)(["x"], 2.5)`, expr)
}
