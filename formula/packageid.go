package formula

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/goplus/llar-pango/pkgs/mod/module"
)

// RequireMode controls how much of a dependency takes part in a package
// identity.
type RequireMode int

const (
	// SemverMode: only the dependency's version matters. Used for
	// dependencies linked dynamically, which stay binary compatible across
	// their own build variations.
	SemverMode RequireMode = iota

	// FullPackageMode: the dependency's own package identity matters.
	// Used for dependencies linked statically, whose objects end up inside
	// this package.
	FullPackageMode
)

func (m RequireMode) String() string {
	if m == FullPackageMode {
		return "full_package_mode"
	}
	return "semver_mode"
}

// Dependency is the resolved state of a required package as seen by a
// consumer recipe.
type Dependency struct {
	Ref       module.Version
	Shared    bool
	PackageID string
	Dir       string   // package folder
	CppInfo   *CppInfo // published metadata, if known
}

// RequireID is the identity contribution of one requirement.
type RequireID struct {
	Ref       module.Version
	Mode      RequireMode
	PackageID string // set in FullPackageMode
}

func (r RequireID) String() string {
	if r.Mode == FullPackageMode {
		id := r.PackageID
		if id == "" {
			id = "unknown"
		}
		return r.Ref.String() + ":" + id
	}
	return r.Ref.String()
}

// PackageID is the information a binary package identity is computed
// from. Two configurations with equal IDs may share one binary.
type PackageID struct {
	Settings map[string]string
	Options  map[string]string
	Requires []RequireID
}

// NewPackageID returns an identity with every requirement in SemverMode.
func NewPackageID(settings, options map[string]string, reqs []Requirement) *PackageID {
	p := &PackageID{
		Settings: settings,
		Options:  options,
		Requires: make([]RequireID, len(reqs)),
	}
	for i, r := range reqs {
		p.Requires[i] = RequireID{Ref: r.Ref}
	}
	return p
}

// FullPackageMode switches the named requirement to FullPackageMode,
// recording the dependency's own package identity.
func (p *PackageID) FullPackageMode(path, depID string) error {
	for i := range p.Requires {
		if p.Requires[i].Ref.Path == path {
			p.Requires[i].Mode = FullPackageMode
			p.Requires[i].PackageID = depID
			return nil
		}
	}
	return fmt.Errorf("package id: %s is not a requirement", path)
}

// Mode returns the mode of the named requirement.
func (p *PackageID) Mode(path string) (RequireMode, bool) {
	for _, r := range p.Requires {
		if r.Ref.Path == path {
			return r.Mode, true
		}
	}
	return SemverMode, false
}

// FullModeRequires returns the names of the requirements in FullPackageMode.
func (p *PackageID) FullModeRequires() []string {
	var names []string
	for _, r := range p.Requires {
		if r.Mode == FullPackageMode {
			names = append(names, r.Ref.Path)
		}
	}
	return names
}

// String renders the canonical text the identity is hashed from.
func (p *PackageID) String() string {
	var b strings.Builder
	writeSection := func(name string, kvs map[string]string) {
		b.WriteString("[" + name + "]\n")
		keys := make([]string, 0, len(kvs))
		for k := range kvs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%s=%s\n", k, kvs[k])
		}
	}
	writeSection("settings", p.Settings)
	writeSection("options", p.Options)

	reqs := make([]string, len(p.Requires))
	for i, r := range p.Requires {
		reqs[i] = r.String()
	}
	sort.Strings(reqs)
	b.WriteString("[requires]\n")
	for _, r := range reqs {
		b.WriteString(r + "\n")
	}
	return b.String()
}

// ID returns the hex fingerprint of the identity.
func (p *PackageID) ID() string {
	sum := sha256.Sum256([]byte(p.String()))
	return hex.EncodeToString(sum[:20])
}
