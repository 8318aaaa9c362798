// Package selector resolves ordered lists of candidate CSS selectors against
// a DOM subtree. Host pages change their markup often, so every lookup is
// expressed as a priority list: the first selector that matches wins.
//
// Invalid or unsupported selector syntax never aborts a lookup. It is
// reported in Result.Skipped and the next candidate is tried.
package selector

import (
	"fmt"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// SelectorError records a candidate selector that could not be compiled.
type SelectorError struct {
	Selector string
	Err      error
}

func (e *SelectorError) Error() string {
	return fmt.Sprintf("selector %q: %v", e.Selector, e.Err)
}

func (e *SelectorError) Unwrap() error { return e.Err }

// Result is the outcome of resolving a candidate list.
type Result struct {
	// Selection holds the match. It is empty, never nil, when nothing matched.
	Selection *goquery.Selection
	// Selector is the candidate that produced the match.
	Selector string
	// Skipped lists candidates that were not valid selectors.
	Skipped []*SelectorError
}

// Found reports whether any candidate matched.
func (r Result) Found() bool {
	return r.Selection != nil && r.Selection.Length() > 0
}

var cache sync.Map // string -> compiled

type compiled struct {
	sel cascadia.Selector
	err error
}

// Compile returns the compiled form of sel, caching both successes and
// failures.
func Compile(sel string) (cascadia.Selector, error) {
	if v, ok := cache.Load(sel); ok {
		c := v.(compiled)
		return c.sel, c.err
	}
	s, err := cascadia.Compile(sel)
	if err != nil {
		err = &SelectorError{Selector: sel, Err: err}
	}
	cache.Store(sel, compiled{sel: s, err: err})
	return s, err
}

// First returns the first element matched by the first candidate that
// matches anything below root.
func First(root *goquery.Selection, selectors ...string) Result {
	res := All(root, selectors...)
	if res.Found() {
		res.Selection = res.Selection.First()
	}
	return res
}

// All returns every element matched by the first candidate that matches
// anything below root, in document order.
func All(root *goquery.Selection, selectors ...string) Result {
	res := Result{Selection: empty(root)}
	if root == nil {
		return res
	}
	for _, s := range selectors {
		m, err := Compile(s)
		if err != nil {
			res.Skipped = append(res.Skipped, asSelectorError(s, err))
			continue
		}
		found := root.FindMatcher(m)
		if found.Length() > 0 {
			res.Selection = found
			res.Selector = s
			return res
		}
	}
	return res
}

// Any reports whether any candidate matches root itself or one of its
// descendants.
func Any(root *goquery.Selection, selectors ...string) bool {
	for _, s := range selectors {
		m, err := Compile(s)
		if err != nil {
			continue
		}
		if root.IsMatcher(m) || root.FindMatcher(m).Length() > 0 {
			return true
		}
	}
	return false
}

// Remove detaches every descendant of root matched by any candidate and
// returns how many elements were removed.
func Remove(root *goquery.Selection, selectors ...string) (int, []*SelectorError) {
	var (
		removed int
		skipped []*SelectorError
	)
	for _, s := range selectors {
		m, err := Compile(s)
		if err != nil {
			skipped = append(skipped, asSelectorError(s, err))
			continue
		}
		found := root.FindMatcher(m)
		removed += found.Length()
		found.Remove()
	}
	return removed, skipped
}

// Matches reports whether root itself matches sel. Invalid selectors never
// match.
func Matches(root *goquery.Selection, sel string) bool {
	m, err := Compile(sel)
	if err != nil {
		return false
	}
	return root.IsMatcher(m)
}

func asSelectorError(sel string, err error) *SelectorError {
	if se, ok := err.(*SelectorError); ok {
		return se
	}
	return &SelectorError{Selector: sel, Err: err}
}

func empty(root *goquery.Selection) *goquery.Selection {
	if root == nil {
		return &goquery.Selection{}
	}
	return root.Slice(0, 0)
}
