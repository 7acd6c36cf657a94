package formula

import (
	"slices"

	"github.com/goplus/llar-pango/pkgs/mod/module"
)

// Requirement is a dependency on another package at a pinned version.
type Requirement struct {
	Ref module.Version

	// TransitiveHeaders reports whether the dependency's headers are part
	// of this package's public interface, so consumers must see them too.
	TransitiveHeaders bool
}

// Requirements collects the dependencies declared by a recipe, in
// declaration order.
type Requirements struct {
	reqs  []Requirement
	tools []module.Version
}

// Require declares that the package being built depends on the specified
// package (by its name and version). Declaring the same package twice
// keeps the first position and the last version.
func (p *Requirements) Require(path, ver string, transitiveHeaders bool) {
	req := Requirement{
		Ref:               module.Version{Path: path, Version: ver},
		TransitiveHeaders: transitiveHeaders,
	}
	if i := p.index(path); i >= 0 {
		p.reqs[i] = req
		return
	}
	p.reqs = append(p.reqs, req)
}

// ToolRequire declares a tool needed at build time only.
func (p *Requirements) ToolRequire(path, ver string) {
	p.tools = append(p.tools, module.Version{Path: path, Version: ver})
}

// List returns the declared requirements.
func (p *Requirements) List() []Requirement {
	return slices.Clone(p.reqs)
}

// Tools returns the declared tool requirements.
func (p *Requirements) Tools() []module.Version {
	return slices.Clone(p.tools)
}

// Lookup returns the requirement on the named package.
func (p *Requirements) Lookup(path string) (Requirement, bool) {
	if i := p.index(path); i >= 0 {
		return p.reqs[i], true
	}
	return Requirement{}, false
}

// Has reports whether the named package is required.
func (p *Requirements) Has(path string) bool {
	return p.index(path) >= 0
}

func (p *Requirements) index(path string) int {
	return slices.IndexFunc(p.reqs, func(r Requirement) bool {
		return r.Ref.Path == path
	})
}
