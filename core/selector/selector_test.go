package selector

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, markup string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	require.NoError(t, err)
	return doc.Selection
}

func TestAllFirstNonEmptyCandidateWins(t *testing.T) {
	root := parse(t, `<main><p class="a">one</p><p class="b">two</p><p class="b">three</p></main>`)

	res := All(root, ".missing", ".b", ".a")
	require.True(t, res.Found())
	assert.Equal(t, ".b", res.Selector)
	assert.Equal(t, 2, res.Selection.Length())
	assert.Equal(t, "two", res.Selection.First().Text())
	assert.Empty(t, res.Skipped)
}

func TestInvalidSelectorIsSkipped(t *testing.T) {
	root := parse(t, `<div><span id="x">hit</span></div>`)

	res := First(root, "div[", "##bad", "span")
	require.True(t, res.Found())
	assert.Equal(t, "span", res.Selector)
	assert.Equal(t, "hit", res.Selection.Text())
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, "div[", res.Skipped[0].Selector)
	assert.Error(t, res.Skipped[0])
}

func TestNoMatchReturnsEmptySelection(t *testing.T) {
	root := parse(t, `<div></div>`)

	res := All(root, "section", "article")
	assert.False(t, res.Found())
	require.NotNil(t, res.Selection)
	assert.Equal(t, 0, res.Selection.Length())
	assert.Empty(t, res.Selector)
}

func TestNilRoot(t *testing.T) {
	res := All(nil, "div")
	assert.False(t, res.Found())
}

func TestAnyMatchesSelfAndDescendants(t *testing.T) {
	root := parse(t, `<model-response><div class="inner"></div></model-response>`)
	turn := root.Find("model-response")

	assert.True(t, Any(turn, "model-response"))
	assert.True(t, Any(turn, "div[", ".inner"))
	assert.False(t, Any(turn, "user-query", "[data-turn-role=\"Model\"]"))
}

func TestRemove(t *testing.T) {
	root := parse(t, `<div><button>x</button><p>keep</p><span class="sr-only">hidden</span></div>`)

	n, skipped := Remove(root, "button", "[broken", ".sr-only")
	assert.Equal(t, 2, n)
	require.Len(t, skipped, 1)
	assert.Equal(t, "keep", root.Find("div").Text())
}

func TestCompileCachesFailures(t *testing.T) {
	_, err1 := Compile("a[")
	_, err2 := Compile("a[")
	require.Error(t, err1)
	assert.Same(t, err1, err2)
}
