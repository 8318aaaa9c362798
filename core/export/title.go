package export

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/gaurav-prasanna/chatexport/core"
	"github.com/gaurav-prasanna/chatexport/core/profile"
)

// maxTitleRunes rejects candidates that are clearly not a title.
const maxTitleRunes = 100

// ConversationTitle walks the profile's title sources and returns the
// first usable candidate, or "" when none is found.
func ConversationTitle(ctx context.Context, page core.Page, p *profile.Profile, logger *zap.Logger) string {
	for _, src := range p.Titles {
		var cand string
		var err error
		switch {
		case src.DocumentTitle:
			var dt string
			dt, err = page.Title(ctx)
			cand = splitDocumentTitle(dt, src.Separators, src.Ignore)
		case src.Selector != "":
			cand, err = page.Lookup(ctx, src.Selector, src.Property)
		}
		if err != nil {
			logger.Debug("export: title source failed", zap.String("selector", src.Selector), zap.Error(err))
			continue
		}
		cand = strings.TrimSpace(cand)
		if n := utf8.RuneCountInString(cand); n > 0 && n < maxTitleRunes {
			return cand
		}
	}
	return ""
}

// DisplayTitle is the heading of the exported document: the conversation
// title, else the document title, else "<Source> conversation".
func DisplayTitle(ctx context.Context, page core.Page, p *profile.Profile, conversation string) string {
	if conversation != "" {
		return conversation
	}
	if dt, err := page.Title(ctx); err == nil {
		if dt = strings.TrimSpace(dt); dt != "" {
			return dt
		}
	}
	return p.Source + " conversation"
}

// splitDocumentTitle returns the part of title before the first separator
// found, unless that part is one of the generic names in ignore.
func splitDocumentTitle(title string, separators, ignore []string) string {
	for _, sep := range separators {
		head, _, found := strings.Cut(title, sep)
		if !found {
			continue
		}
		head = strings.TrimSpace(head)
		if head != "" && !contains(ignore, head) {
			return head
		}
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
