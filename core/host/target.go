package host

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gaurav-prasanna/chatexport/core/profile"
)

// ErrNoTarget means no open tab holds a conversation the profile can read.
var ErrNoTarget = errors.New("no open tab matches the conversation")

// Target is an open browser tab.
type Target struct {
	ID    string
	URL   string
	Title string
}

// PickTarget chooses the tab to export. A preferred URL wins when a tab
// shows it (compared after NormalizeURL); otherwise the first tab served by
// one of the profile hosts is used.
func PickTarget(targets []Target, p *profile.Profile, preferredURL string) (Target, error) {
	if preferredURL != "" {
		want := NormalizeURL(preferredURL)
		for _, t := range targets {
			if NormalizeURL(t.URL) == want {
				return t, nil
			}
		}
		return Target{}, fmt.Errorf("%w: no tab shows %s", ErrNoTarget, preferredURL)
	}
	for _, t := range targets {
		if p.MatchesURL(t.URL) {
			return t, nil
		}
	}
	return Target{}, fmt.Errorf("%w: no tab on %s", ErrNoTarget, strings.Join(p.Hosts, ", "))
}

// NormalizeURL strips fragments and trailing slashes for comparison.
func NormalizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	parsed.Fragment = ""
	parsed.RawFragment = ""

	// Keep root "/".
	if parsed.Path != "/" {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
		parsed.RawPath = ""
	}
	parsed.Host = strings.ToLower(parsed.Host)

	return parsed.String()
}
