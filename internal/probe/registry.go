package probe

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"

	"github.com/hashicorp/go-version"
)

// Registry is an ordered, validated catalog of probes.
type Registry struct {
	probes []Probe
	index  map[string]int
}

// NewRegistry validates probes and returns a registry preserving their order.
func NewRegistry(probes ...Probe) (*Registry, error) {
	r := &Registry{
		probes: make([]Probe, 0, len(probes)),
		index:  make(map[string]int, len(probes)),
	}
	for _, p := range probes {
		if err := Validate(p); err != nil {
			return nil, err
		}
		if _, dup := r.index[p.Name]; dup {
			return nil, fmt.Errorf("duplicate probe name %q", p.Name)
		}
		r.index[p.Name] = len(r.probes)
		r.probes = append(r.probes, p)
	}
	return r, nil
}

// List returns the probes in registry order. The returned slice is a copy.
func (r *Registry) List() []Probe {
	return slices.Clone(r.probes)
}

// Lookup returns the probe with the given name.
func (r *Registry) Lookup(name string) (Probe, bool) {
	i, ok := r.index[name]
	if !ok {
		return Probe{}, false
	}
	return r.probes[i], true
}

// Len returns the number of probes.
func (r *Registry) Len() int {
	return len(r.probes)
}

// Validate checks that a probe is well formed for its kind.
func Validate(p Probe) error {
	if p.Name == "" {
		return fmt.Errorf("probe has no name")
	}
	if !slices.Contains(Kinds, p.Kind) {
		return fmt.Errorf("probe %q: unknown kind %q", p.Name, p.Kind)
	}
	if !slices.Contains(Categories, p.Category) {
		return fmt.Errorf("probe %q: unknown category %q", p.Name, p.Category)
	}
	if p.Target == "" {
		return fmt.Errorf("probe %q: empty target", p.Name)
	}

	switch p.Kind {
	case KindPort:
		if _, err := ParsePort(p.Target); err != nil {
			return fmt.Errorf("probe %q: %w", p.Name, err)
		}
	case KindHTTP:
		u, err := url.Parse(p.Target)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("probe %q: target %q is not an http(s) URL", p.Name, p.Target)
		}
	}

	if p.MinVersion != "" {
		if p.Kind != KindCommand {
			return fmt.Errorf("probe %q: min_version only applies to %s probes", p.Name, KindCommand)
		}
		if _, err := version.NewConstraint(p.MinVersion); err != nil {
			return fmt.Errorf("probe %q: invalid min_version %q: %w", p.Name, p.MinVersion, err)
		}
	}
	return nil
}

// ParsePort parses a TCP port number in 1..65535.
func ParsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	return port, nil
}
