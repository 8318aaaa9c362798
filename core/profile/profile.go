// Package profile describes the chat sites chatexport knows how to read.
//
// A Profile bundles every site-specific detail: which elements are turns,
// where stable ids live, what marks an assistant turn, which chrome to cut,
// how to find the conversation title and how to pace scrolling. Built-in
// profiles are embedded YAML files; users can add or override profiles
// with their own YAML file.
package profile

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Profile is the site-specific configuration for one chat application.
type Profile struct {
	Name           string   `yaml:"name"`
	Source         string   `yaml:"source"`          // filename prefix, e.g. "AIStudio"
	AssistantLabel string   `yaml:"assistant_label"` // header label for assistant turns
	Hosts          []string `yaml:"hosts"`

	Turns               []string `yaml:"turns"`
	ChunkIDs            []string `yaml:"chunk_ids"`
	AssistantIndicators []string `yaml:"assistant_indicators"`
	Chrome              []string `yaml:"chrome"`
	Sanitize            []string `yaml:"sanitize"`
	AttrPrefixes        []string `yaml:"attr_prefixes"`
	Content             string   `yaml:"content"`
	Boilerplate         []string `yaml:"boilerplate"`

	Titles []TitleSource `yaml:"titles"`
	Scroll ScrollConfig  `yaml:"scroll"`

	boilerplate []*regexp.Regexp
}

// TitleSource is one step of the title lookup chain. Either Selector is
// set (read Property of the first match, "textContent" by default) or
// DocumentTitle is set (split document.title on Separators and keep the
// head unless it is one of Ignore).
type TitleSource struct {
	Selector      string   `yaml:"selector"`
	Property      string   `yaml:"property"`
	DocumentTitle bool     `yaml:"document_title"`
	Separators    []string `yaml:"separators"`
	Ignore        []string `yaml:"ignore"`
}

// ScrollConfig paces the scroll-driven collector.
type ScrollConfig struct {
	MaxLoops        int           `yaml:"max_loops"`
	StallLimit      int           `yaml:"stall_limit"`
	StallThreshold  float64       `yaml:"stall_threshold"`
	BottomTolerance float64       `yaml:"bottom_tolerance"`
	StepFraction    float64       `yaml:"step_fraction"`
	MaxStep         float64       `yaml:"max_step"`
	SettleDelay     time.Duration `yaml:"settle_delay"`
	StepDelay       time.Duration `yaml:"step_delay"`
}

// DefaultScroll returns the pacing used when a profile leaves it unset.
func DefaultScroll() ScrollConfig {
	return ScrollConfig{
		MaxLoops:        200,
		StallLimit:      3,
		StallThreshold:  5,
		BottomTolerance: 10,
		StepFraction:    0.8,
		MaxStep:         800,
		SettleDelay:     500 * time.Millisecond,
		StepDelay:       400 * time.Millisecond,
	}
}

func (p *Profile) applyDefaults() {
	if p.Source == "" {
		p.Source = p.Name
	}
	if p.AssistantLabel == "" {
		p.AssistantLabel = "Assistant"
	}
	d := DefaultScroll()
	s := &p.Scroll
	if s.MaxLoops <= 0 {
		s.MaxLoops = d.MaxLoops
	}
	if s.StallLimit <= 0 {
		s.StallLimit = d.StallLimit
	}
	if s.StallThreshold <= 0 {
		s.StallThreshold = d.StallThreshold
	}
	if s.BottomTolerance <= 0 {
		s.BottomTolerance = d.BottomTolerance
	}
	if s.StepFraction <= 0 || s.StepFraction > 1 {
		s.StepFraction = d.StepFraction
	}
	if s.MaxStep <= 0 {
		s.MaxStep = d.MaxStep
	}
	if s.SettleDelay <= 0 {
		s.SettleDelay = d.SettleDelay
	}
	if s.StepDelay <= 0 {
		s.StepDelay = d.StepDelay
	}
	for i := range p.Titles {
		if p.Titles[i].Selector != "" && p.Titles[i].Property == "" {
			p.Titles[i].Property = "textContent"
		}
	}
}

// Validate compiles the boilerplate patterns and checks required fields.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile: missing name")
	}
	if len(p.Turns) == 0 {
		return fmt.Errorf("profile %s: no turn selectors", p.Name)
	}
	p.boilerplate = p.boilerplate[:0]
	for _, expr := range p.Boilerplate {
		re, err := regexp.Compile(expr)
		if err != nil {
			return fmt.Errorf("profile %s: boilerplate %q: %w", p.Name, expr, err)
		}
		p.boilerplate = append(p.boilerplate, re)
	}
	return nil
}

// BoilerplatePatterns returns the compiled boilerplate patterns.
func (p *Profile) BoilerplatePatterns() []*regexp.Regexp {
	return p.boilerplate
}

// MatchesURL reports whether rawURL is served by one of the profile hosts.
func (p *Profile) MatchesURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	for _, h := range p.Hosts {
		if host == strings.ToLower(h) {
			return true
		}
	}
	return false
}
