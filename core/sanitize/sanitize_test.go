package sanitize

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const turnMarkup = `<div class="turn" _nghost-ng-c1="">
  <p _ngcontent-ng-c2="" ng-reflect-text="x" class="para">Hello <b>world</b></p>
  <button>copy</button>
  <div class="toolbar"><span>tools</span></div>
  <span aria-hidden="true">icon</span>
  <span class="material-symbols-outlined">more_vert</span>
  <mat-expansion-panel><p>thinking...</p></mat-expansion-panel>
  <mat-expansion-panel disabled=""><p>kept panel</p></mat-expansion-panel>
</div>`

func clone(t *testing.T, markup string) (*goquery.Selection, *goquery.Selection) {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	require.NoError(t, err)
	live := doc.Find("div.turn")
	return live, live.Clone()
}

func TestSanitizeRemovesChromeAndPrivateAttrs(t *testing.T) {
	live, c := clone(t, turnMarkup)

	rep := New(nil, nil).Sanitize(c)

	out, err := c.Html()
	require.NoError(t, err)
	assert.Contains(t, out, `<p class="para">Hello <b>world</b></p>`)
	assert.Contains(t, out, "kept panel")
	for _, gone := range []string{"copy", "tools", "icon", "more_vert", "thinking", "_ngcontent", "ng-reflect"} {
		assert.NotContains(t, out, gone)
	}
	assert.Equal(t, 5, rep.RemovedNodes)
	assert.Equal(t, 2, rep.StrippedAttrs)
	assert.Empty(t, rep.Skipped)

	// The source element is untouched.
	assert.Equal(t, 1, live.Find("button").Length())
	_, ok := live.Find("p.para").Attr("_ngcontent-ng-c2")
	assert.True(t, ok)
}

func TestSanitizeSkipsInvalidSelectors(t *testing.T) {
	_, c := clone(t, turnMarkup)

	rep := New([]string{"button[", "button"}, []string{"class"}).Sanitize(c)

	require.Len(t, rep.Skipped, 1)
	assert.Equal(t, 1, rep.RemovedNodes)
	_, hasClass := c.Find("p").Attr("class")
	assert.False(t, hasClass)
}

func TestExportPolicyDropsScripts(t *testing.T) {
	p := ExportPolicy()
	out := p.Sanitize(`<p class="x" onclick="steal()">Hi <b>there</b></p><script>alert(1)</script><img src="data:image/png;base64,iVBORw0KGgo=">`)

	assert.Contains(t, out, `<p class="x">Hi <b>there</b></p>`)
	assert.NotContains(t, out, "script")
	assert.NotContains(t, out, "onclick")
	assert.Contains(t, out, `<img src="data:image/png;base64,iVBORw0KGgo="`)
}
