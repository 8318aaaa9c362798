// Package extract turns one conversation-turn element into a TurnRecord.
// It works on a detached clone of the turn:
//  1. Resolve the turn identity (own id, nested chunk id, or content hash)
//  2. Remove layout chrome and sanitize what is left
//  3. Derive role, plain text and the rendered content markup
package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/gaurav-prasanna/chatexport/core"
	"github.com/gaurav-prasanna/chatexport/core/profile"
	"github.com/gaurav-prasanna/chatexport/core/sanitize"
	"github.com/gaurav-prasanna/chatexport/core/selector"
)

var (
	// ErrNoIdentity means the turn has neither a stable id nor any text to
	// hash.
	ErrNoIdentity = errors.New("turn has no stable id and no text")
	// ErrEmptyTurn means the turn has no text and no image: a placeholder.
	ErrEmptyTurn = errors.New("turn has no text and no image")
)

// SkipError explains why a turn was left out of the transcript.
type SkipError struct {
	ID  string // identity, when it was resolved before the failure
	Err error
}

func (e *SkipError) Error() string {
	if e.ID == "" {
		return "extract: skipping turn: " + e.Err.Error()
	}
	return fmt.Sprintf("extract: skipping turn %s: %v", e.ID, e.Err)
}

func (e *SkipError) Unwrap() error { return e.Err }

// TurnExtractor extracts TurnRecords using one site profile.
type TurnExtractor struct {
	profile   *profile.Profile
	sanitizer *sanitize.Sanitizer
	logger    *zap.Logger
}

// New creates a TurnExtractor for p. A nil logger discards output.
func New(p *profile.Profile, logger *zap.Logger) *TurnExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TurnExtractor{
		profile:   p,
		sanitizer: sanitize.New(p.Sanitize, p.AttrPrefixes),
		logger:    logger,
	}
}

// Extract produces the record for turn. Turns that carry no message
// return a *SkipError wrapping ErrNoIdentity or ErrEmptyTurn; any other
// failure inside the HTML tree code is also reported as a *SkipError.
// turn itself is never modified.
func (e *TurnExtractor) Extract(turn *goquery.Selection) (rec *core.TurnRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec, err = nil, &SkipError{Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	p, err := e.prepare(turn)
	if err != nil {
		return nil, err
	}

	role := core.RoleUser
	if selector.Any(turn, e.profile.AssistantIndicators...) {
		role = core.RoleAssistant
	}

	content, err := e.content(p.clone)
	if err != nil {
		return nil, &SkipError{ID: p.id, Err: err}
	}

	if p.text == "" && !strings.Contains(content, "<img") {
		return nil, &SkipError{ID: p.id, Err: ErrEmptyTurn}
	}

	return &core.TurnRecord{
		ID:        p.id,
		Role:      role,
		Content:   content,
		PlainText: p.text,
	}, nil
}

// Identify resolves only the identity of turn, by the same rule Extract
// uses.
func (e *TurnExtractor) Identify(turn *goquery.Selection) (id string, err error) {
	if id := e.StableID(turn); id != "" {
		return id, nil
	}
	defer func() {
		if r := recover(); r != nil {
			id, err = "", &SkipError{Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	p, err := e.prepare(turn)
	if err != nil {
		return "", err
	}
	return p.id, nil
}

// StableID returns the id the host page attached to turn or to one of its
// chunks, or "".
func (e *TurnExtractor) StableID(turn *goquery.Selection) string {
	if id, ok := turn.Attr("id"); ok && strings.TrimSpace(id) != "" {
		return id
	}
	res := selector.First(turn, e.profile.ChunkIDs...)
	if res.Found() {
		if id, ok := res.Selection.Attr("id"); ok && strings.TrimSpace(id) != "" {
			return id
		}
	}
	return ""
}

type prepared struct {
	id    string
	clone *goquery.Selection
	text  string
}

func (e *TurnExtractor) prepare(turn *goquery.Selection) (*prepared, error) {
	if turn == nil || turn.Length() == 0 {
		return nil, &SkipError{Err: errors.New("no turn element")}
	}
	turn = turn.First()
	id := e.StableID(turn)

	clone := turn.Clone()
	removed, skipped := selector.Remove(clone, e.profile.Chrome...)
	rep := e.sanitizer.Sanitize(clone)
	skipped = append(skipped, rep.Skipped...)
	for _, s := range skipped {
		e.logger.Debug("extract: skipped selector", zap.String("selector", s.Selector), zap.Error(s.Err))
	}
	e.logger.Debug("extract: cleaned turn",
		zap.String("id", id),
		zap.Int("chrome_removed", removed),
		zap.Int("sanitized_nodes", rep.RemovedNodes),
		zap.Int("stripped_attrs", rep.StrippedAttrs))

	text := PlainText(clone, e.profile)

	if id == "" {
		if text == "" {
			return nil, &SkipError{Err: ErrNoIdentity}
		}
		id = HashID(text)
	}
	return &prepared{id: id, clone: clone, text: text}, nil
}

// content returns the inner markup of the outermost content nodes, or of
// the whole clone when there are none.
func (e *TurnExtractor) content(clone *goquery.Selection) (string, error) {
	if e.profile.Content != "" {
		if m, err := selector.Compile(e.profile.Content); err == nil {
			root := clone.Nodes[0]
			var b strings.Builder
			var outer int
			var renderErr error
			clone.FindMatcher(m).Each(func(_ int, s *goquery.Selection) {
				if renderErr != nil || nested(s.Nodes[0], root, m.Match) {
					return
				}
				h, err := s.Html()
				if err != nil {
					renderErr = err
					return
				}
				outer++
				b.WriteString(h)
			})
			if renderErr != nil {
				return "", fmt.Errorf("rendering content: %w", renderErr)
			}
			if outer > 0 {
				return b.String(), nil
			}
		} else {
			e.logger.Debug("extract: invalid content selector", zap.Error(err))
		}
	}

	h, err := clone.Html()
	if err != nil {
		return "", fmt.Errorf("rendering turn: %w", err)
	}
	return h, nil
}

// nested reports whether any ancestor of n below root satisfies match.
func nested(n, root *html.Node, match func(*html.Node) bool) bool {
	for p := n.Parent; p != nil && p != root; p = p.Parent {
		if match(p) {
			return true
		}
	}
	return false
}
