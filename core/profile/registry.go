package profile

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Registry holds the known profiles keyed by name.
type Registry struct {
	profiles map[string]*Profile
	order    []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{profiles: make(map[string]*Profile)}
}

// Builtin returns a Registry loaded with the embedded profiles.
func Builtin() (*Registry, error) {
	r := NewRegistry()
	files, err := fs.Glob(builtinFS, "builtin/*.yaml")
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	for _, f := range files {
		data, err := builtinFS.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		var p Profile
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", f, err)
		}
		if err := r.Add(&p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// fileFormat is the layout of a user profile file.
type fileFormat struct {
	Profiles []Profile `yaml:"profiles"`
}

// Parse decodes a user profile file.
func Parse(data []byte) ([]*Profile, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing profiles: %w", err)
	}
	out := make([]*Profile, 0, len(f.Profiles))
	for i := range f.Profiles {
		out = append(out, &f.Profiles[i])
	}
	return out, nil
}

// LoadFile adds every profile in a YAML file. A profile whose name is
// already registered replaces the earlier one.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	profiles, err := Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	for _, p := range profiles {
		if err := r.Add(p); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

// Add registers p after filling in defaults and validating it.
func (r *Registry) Add(p *Profile) error {
	p.applyDefaults()
	if err := p.Validate(); err != nil {
		return err
	}
	if _, exists := r.profiles[p.Name]; !exists {
		r.order = append(r.order, p.Name)
	}
	r.profiles[p.Name] = p
	return nil
}

// Get returns the profile registered under name.
func (r *Registry) Get(name string) (*Profile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q (known: %v)", name, r.order)
	}
	return p, nil
}

// Detect returns the first profile whose hosts serve rawURL.
func (r *Registry) Detect(rawURL string) (*Profile, bool) {
	for _, name := range r.order {
		if p := r.profiles[name]; p.MatchesURL(rawURL) {
			return p, true
		}
	}
	return nil, false
}

// All returns the registered profiles in registration order.
func (r *Registry) All() []*Profile {
	out := make([]*Profile, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.profiles[name])
	}
	return out
}
