package formula

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrAbsentComponent is returned when a component requires another
	// component that was not published before it.
	ErrAbsentComponent = errors.New("requires absent component")

	// ErrUndeclaredRequirement is returned when a component requires a
	// component of a package that is not a declared requirement.
	ErrUndeclaredRequirement = errors.New("requires undeclared package")
)

// Component is a separately linkable part of an installed package.
type Component struct {
	Name          string   `json:"name" yaml:"name"`
	Libs          []string `json:"libs,omitempty" yaml:"libs,omitempty"`
	PkgConfigName string   `json:"pkg_config_name,omitempty" yaml:"pkg_config_name,omitempty"`
	IncludeDirs   []string `json:"includedirs,omitempty" yaml:"includedirs,omitempty"`

	// Requires lists components of this package by name and components of
	// other packages as "package::component".
	Requires   []string `json:"requires,omitempty" yaml:"requires,omitempty"`
	SystemLibs []string `json:"system_libs,omitempty" yaml:"system_libs,omitempty"`
}

// Require appends requirements to the component.
func (c *Component) Require(reqs ...string) {
	c.Requires = append(c.Requires, reqs...)
}

// SplitRequire splits a requirement of the form "package::component".
// ok is false for requirements on components of the same package.
func SplitRequire(req string) (pkg, comp string, ok bool) {
	return strings.Cut(req, "::")
}

// CppInfo is the metadata a package publishes for its consumers: an
// ordered component graph and environment additions.
type CppInfo struct {
	components []*Component

	// EnvPath entries are appended to the consumer's PATH.
	EnvPath []string
}

// Component returns the named component, adding an empty one at the end
// of the graph if it does not exist yet.
func (p *CppInfo) Component(name string) *Component {
	if c, ok := p.Lookup(name); ok {
		return c
	}
	c := &Component{Name: name}
	p.components = append(p.components, c)
	return c
}

// Lookup returns the named component.
func (p *CppInfo) Lookup(name string) (*Component, bool) {
	i := slices.IndexFunc(p.components, func(c *Component) bool { return c.Name == name })
	if i < 0 {
		return nil, false
	}
	return p.components[i], true
}

// Components returns the components in publication order.
func (p *CppInfo) Components() []*Component {
	return slices.Clone(p.components)
}

// Names returns the component names in publication order.
func (p *CppInfo) Names() []string {
	names := make([]string, len(p.components))
	for i, c := range p.components {
		names[i] = c.Name
	}
	return names
}

// Validate checks that every edge of the graph points at a component
// published earlier or at a package listed in reqs.
func (p *CppInfo) Validate(reqs *Requirements) error {
	seen := make(map[string]bool, len(p.components))
	for _, c := range p.components {
		for _, req := range c.Requires {
			if pkg, _, ok := SplitRequire(req); ok {
				if reqs == nil || !reqs.Has(pkg) {
					return fmt.Errorf("component %s: %w %s", c.Name, ErrUndeclaredRequirement, pkg)
				}
				continue
			}
			if !seen[req] {
				return fmt.Errorf("component %s: %w %s", c.Name, ErrAbsentComponent, req)
			}
		}
		seen[c.Name] = true
	}
	return nil
}

// Closure returns the transitive requirements of the named component:
// first the components of this package it depends on, in publication
// order, then the external requirements, deduplicated in first-seen order.
func (p *CppInfo) Closure(name string) (internal, external []string, err error) {
	root, ok := p.Lookup(name)
	if !ok {
		return nil, nil, fmt.Errorf("%w %s", ErrAbsentComponent, name)
	}
	visited := map[string]bool{name: true}
	extSeen := map[string]bool{}
	var walk func(c *Component) error
	walk = func(c *Component) error {
		for _, req := range c.Requires {
			if _, _, ok := SplitRequire(req); ok {
				if !extSeen[req] {
					extSeen[req] = true
					external = append(external, req)
				}
				continue
			}
			if visited[req] {
				continue
			}
			dep, ok := p.Lookup(req)
			if !ok {
				return fmt.Errorf("component %s: %w %s", c.Name, ErrAbsentComponent, req)
			}
			visited[req] = true
			if err := walk(dep); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, nil, err
	}
	for _, c := range p.components {
		if c.Name != name && visited[c.Name] {
			internal = append(internal, c.Name)
		}
	}
	return internal, external, nil
}

type cppInfoData struct {
	Components []*Component `json:"components" yaml:"components"`
	EnvPath    []string     `json:"env_path,omitempty" yaml:"env_path,omitempty"`
}

func (p *CppInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(cppInfoData{Components: p.components, EnvPath: p.EnvPath})
}

func (p *CppInfo) UnmarshalJSON(data []byte) error {
	var d cppInfoData
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	p.components, p.EnvPath = d.Components, d.EnvPath
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (p *CppInfo) MarshalYAML() (any, error) {
	return cppInfoData{Components: p.components, EnvPath: p.EnvPath}, nil
}
