// Package pango is the recipe for the Pango text-layout library: it maps
// recipe options onto Pango's Meson options, builds and installs the
// library, and publishes its component graph for consumers.
package pango

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/goplus/llar-pango/formula"
	"github.com/goplus/llar-pango/pkgs/buildsys/meson"
)

const (
	Name    = "pango"
	Version = "1.50.10"
	License = "LGPL-2.0-or-later"

	// MesonVersion is the pinned build tool.
	MesonVersion = "1.2.2"
)

// Pinned versions of the requirements.
const (
	freetypeVersion   = "2.13.0"
	fontconfigVersion = "2.14.2"
	libxftVersion     = "2.3.8"
	cairoVersion      = "1.17.6"
	harfbuzzVersion   = "8.2.1"
	glibVersion       = "2.78.0"
	fribidiVersion    = "1.0.13"
)

// Requirements declares the packages r depends on. All of them leak
// types into Pango's public headers.
func (r Resolved) Requirements() *formula.Requirements {
	reqs := &formula.Requirements{}
	reqs.ToolRequire("meson", MesonVersion)

	if r.WithFreetype {
		reqs.Require("freetype", freetypeVersion, true)
	}
	if r.WithFontconfig {
		reqs.Require("fontconfig", fontconfigVersion, true)
	}
	if r.WithXft {
		reqs.Require("libxft", libxftVersion, true)
	}
	// xrender is only used when Xft, fontconfig and freetype are all on
	if r.WithXft && r.WithFontconfig && r.WithFreetype {
		reqs.Require("xorg", "system", true)
	}
	if r.WithCairo {
		reqs.Require("cairo", cairoVersion, true)
	}

	reqs.Require("harfbuzz", harfbuzzVersion, true)
	reqs.Require("glib", glibVersion, true)
	reqs.Require("fribidi", fribidiVersion, true)
	return reqs
}

// SharedDependencies returns the dependencies that must be linked
// dynamically when Pango itself is, so that their symbols are not
// duplicated.
func (r Resolved) SharedDependencies() []string {
	if !r.Shared {
		return nil
	}
	deps := []string{"glib", "harfbuzz"}
	if r.WithCairo {
		deps = append(deps, "cairo")
	}
	return deps
}

// ErrLinkageConflict is returned when a prebuilt dependency is static but
// must be linked dynamically.
var ErrLinkageConflict = errors.New("linkage conflict")

// ApplyDependencyOptions returns a copy of deps with the linkage forced
// by SharedDependencies applied. Requirements missing from deps are
// added with only their reference set. A prebuilt dependency (one with a
// package folder) that is static but must be shared is an error.
func (r Resolved) ApplyDependencyOptions(deps map[string]formula.Dependency) (map[string]formula.Dependency, error) {
	out := make(map[string]formula.Dependency, len(deps))
	for k, v := range deps {
		out[k] = v
	}
	for _, req := range r.Requirements().List() {
		d, ok := out[req.Ref.Path]
		if !ok {
			d = formula.Dependency{Ref: req.Ref}
		}
		if d.Ref.Version == "" {
			d.Ref = req.Ref
		}
		out[req.Ref.Path] = d
	}
	for _, name := range r.SharedDependencies() {
		d := out[name]
		if d.Dir != "" && !d.Shared {
			return nil, fmt.Errorf("%w: %s in %s is static, shared %s requires it shared", ErrLinkageConflict, d.Ref, d.Dir, Name)
		}
		d.Shared = true
		out[name] = d
	}
	return out, nil
}

// Generate writes r into the Meson configuration.
func (r Resolved) Generate(m *meson.Meson) {
	m.ProjectOption("introspection", "disabled")
	m.Feature("libthai", r.WithLibthai)
	m.Feature("cairo", r.WithCairo)
	m.Feature("xft", r.WithXft)
	m.Feature("fontconfig", r.WithFontconfig)
	m.Feature("freetype", r.WithFreetype)

	m.DefaultLibrary(r.Shared)
	if r.HasFPIC {
		m.BuiltinBool("b_staticpic", r.FPIC)
	}
	m.BuildType(r.Platform.BuildType)
}

// ProjectOptions returns the Meson project options Generate sets.
func (r Resolved) ProjectOptions() map[string]string {
	m := meson.New(nil)
	r.Generate(m)
	return m.ProjectOptions()
}

// PackageInfo publishes the component graph of a package installed in
// packageDir. Components are added in a fixed order so that every edge
// points at a component published before it.
func (r Resolved) PackageInfo(packageDir string) *formula.CppInfo {
	p := r.Platform
	includeDirs := []string{filepath.Join(packageDir, "include", "pango-1.0")}
	info := &formula.CppInfo{}

	core := info.Component("pango_")
	core.Libs = []string{"pango-1.0"}
	core.PkgConfigName = "pango"
	if p.Is(formula.Linux, formula.FreeBSD) {
		core.SystemLibs = append(core.SystemLibs, "m")
	}
	core.Require(
		"glib::glib-2.0",
		"glib::gobject-2.0",
		"glib::gio-2.0",
		"fribidi::fribidi",
		"harfbuzz::harfbuzz",
	)
	if r.WithFontconfig {
		core.Require("fontconfig::fontconfig")
	}
	if r.WithXft {
		core.Require("libxft::libxft")
		if r.WithFontconfig && r.WithFreetype {
			core.Require("xorg::xrender")
		}
	}
	if r.WithCairo {
		core.Require("cairo::cairo_")
	}
	core.IncludeDirs = includeDirs

	if r.WithFreetype {
		ft2 := info.Component("pangoft2")
		ft2.Libs = []string{"pangoft2-1.0"}
		ft2.PkgConfigName = "pangoft2"
		ft2.Require("pango_", "freetype::freetype")
		ft2.IncludeDirs = includeDirs
	}

	// pangofc lives in the pangoft2 library
	if r.WithFontconfig && r.WithFreetype {
		fc := info.Component("pangofc")
		fc.PkgConfigName = "pangofc"
		fc.Require("pangoft2")
	}

	if p.OS != formula.Windows {
		root := info.Component("pangoroot")
		root.PkgConfigName = "pangoroot"
		if r.WithFreetype {
			root.Require("pangoft2")
		}
	}

	if r.WithXft {
		xft := info.Component("pangoxft")
		xft.Libs = []string{"pangoxft-1.0"}
		xft.PkgConfigName = "pangoxft"
		xft.Require("pango_")
		if r.WithFreetype {
			xft.Require("pangoft2")
		}
		xft.IncludeDirs = includeDirs
	}

	if p.OS == formula.Windows {
		win32 := info.Component("pangowin32")
		win32.Libs = []string{"pangowin32-1.0"}
		win32.PkgConfigName = "pangowin32"
		win32.Require("pango_")
		win32.SystemLibs = append(win32.SystemLibs, "gdi32")
	}

	if r.WithCairo {
		cairo := info.Component("pangocairo")
		cairo.Libs = []string{"pangocairo-1.0"}
		cairo.PkgConfigName = "pangocairo"
		cairo.Require("pango_")
		if r.WithFreetype {
			cairo.Require("pangoft2")
		}
		if p.OS == formula.Windows {
			cairo.Require("pangowin32")
			cairo.SystemLibs = append(cairo.SystemLibs, "gdi32")
		}
		cairo.IncludeDirs = includeDirs
	}

	info.EnvPath = append(info.EnvPath, filepath.Join(packageDir, "bin"))
	return info
}

// PackageID computes the binary identity of r. Dependencies linked
// statically take part with their own identity, all others with their
// version only. deps should already have ApplyDependencyOptions applied.
func (r Resolved) PackageID(deps map[string]formula.Dependency) *formula.PackageID {
	id := formula.NewPackageID(r.Platform.Settings(), r.Map(), r.Requirements().List())

	full := func(name string) {
		d := deps[name]
		if !d.Shared {
			if err := id.FullPackageMode(name, d.PackageID); err != nil {
				// name is declared by Requirements above
				panic(err)
			}
		}
	}
	full("glib")
	full("harfbuzz")
	if r.WithCairo {
		full("cairo")
	}
	return id
}
