// Package pkgconfig renders published component graphs as pkg-config
// (.pc) files, the metadata format C/C++ build systems consume.
package pkgconfig

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goplus/llar-pango/formula"
)

// File is a single .pc file.
type File struct {
	Name        string
	Description string
	Version     string
	Prefix      string

	Libs        []string // library names without the -l prefix
	SystemLibs  []string
	IncludeDirs []string // relative to Prefix, or absolute
	Requires    []string // pkg-config names
}

// WriteTo writes f in .pc syntax.
func (f *File) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "prefix=%s\n", filepath.ToSlash(f.Prefix))
	b.WriteString("libdir=${prefix}/lib\n")
	b.WriteString("includedir=${prefix}/include\n")
	b.WriteString("bindir=${prefix}/bin\n\n")

	fmt.Fprintf(&b, "Name: %s\n", f.Name)
	fmt.Fprintf(&b, "Description: %s\n", f.Description)
	fmt.Fprintf(&b, "Version: %s\n", f.Version)

	var libs []string
	if len(f.Libs) > 0 {
		libs = append(libs, `-L"${libdir}"`)
	}
	for _, l := range f.Libs {
		libs = append(libs, "-l"+l)
	}
	for _, l := range f.SystemLibs {
		libs = append(libs, "-l"+l)
	}
	if len(libs) > 0 {
		fmt.Fprintf(&b, "Libs: %s\n", strings.Join(libs, " "))
	}

	var cflags []string
	for _, dir := range f.IncludeDirs {
		cflags = append(cflags, `-I"`+f.includeVar(dir)+`"`)
	}
	if len(cflags) > 0 {
		fmt.Fprintf(&b, "Cflags: %s\n", strings.Join(cflags, " "))
	}
	if len(f.Requires) > 0 {
		fmt.Fprintf(&b, "Requires: %s\n", strings.Join(f.Requires, " "))
	}

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// includeVar rewrites dir in terms of ${prefix} when it lives under Prefix.
func (f *File) includeVar(dir string) string {
	if !filepath.IsAbs(dir) {
		return "${prefix}/" + filepath.ToSlash(dir)
	}
	if f.Prefix != "" {
		if rel, err := filepath.Rel(f.Prefix, dir); err == nil && !strings.HasPrefix(rel, "..") {
			return "${prefix}/" + filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(dir)
}

// Resolver maps a "package::component" requirement to a pkg-config name.
type Resolver func(pkg, comp string) string

// DefaultResolver names external components the way most recipes publish
// them: a component named after its package (optionally with a trailing
// underscore) maps to the package name, anything else to its own name.
func DefaultResolver(pkg, comp string) string {
	if comp == pkg || comp == pkg+"_" {
		return pkg
	}
	return comp
}

// DepsResolver resolves against the published metadata of deps, falling
// back to DefaultResolver.
func DepsResolver(deps map[string]formula.Dependency) Resolver {
	return func(pkg, comp string) string {
		if d, ok := deps[pkg]; ok && d.CppInfo != nil {
			if c, ok := d.CppInfo.Lookup(comp); ok && c.PkgConfigName != "" {
				return c.PkgConfigName
			}
		}
		return DefaultResolver(pkg, comp)
	}
}

// Files converts the component graph of pkg into .pc files, one per
// component. Components without an explicit pkg-config name are named
// "<pkg>-<component>".
func Files(pkg, version, prefix string, info *formula.CppInfo, resolve Resolver) []File {
	if resolve == nil {
		resolve = DefaultResolver
	}
	nameOf := func(c *formula.Component) string {
		if c.PkgConfigName != "" {
			return c.PkgConfigName
		}
		return pkg + "-" + c.Name
	}

	comps := info.Components()
	files := make([]File, 0, len(comps))
	for _, c := range comps {
		f := File{
			Name:        nameOf(c),
			Description: fmt.Sprintf("%s component %s", pkg, c.Name),
			Version:     version,
			Prefix:      prefix,
			Libs:        c.Libs,
			SystemLibs:  c.SystemLibs,
			IncludeDirs: c.IncludeDirs,
		}
		for _, req := range c.Requires {
			if p, comp, ok := formula.SplitRequire(req); ok {
				f.Requires = append(f.Requires, resolve(p, comp))
				continue
			}
			if dep, ok := info.Lookup(req); ok {
				f.Requires = append(f.Requires, nameOf(dep))
			}
		}
		files = append(files, f)
	}
	return files
}

// WriteDir writes files into dir as <Name>.pc and returns their paths.
func WriteDir(dir string, files []File) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(files))
	for i := range files {
		path := filepath.Join(dir, files[i].Name+".pc")
		out, err := os.Create(path)
		if err != nil {
			return paths, err
		}
		_, err = files[i].WriteTo(out)
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
