package pango

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goplus/llar-pango/formula"
	"github.com/goplus/llar-pango/internal/logging"
	"github.com/goplus/llar-pango/internal/source"
	"github.com/goplus/llar-pango/pkgs/buildsys/meson"
	"github.com/goplus/llar-pango/pkgs/mod/module"
	"github.com/goplus/llar-pango/pkgs/mod/versions"
	"github.com/goplus/llar-pango/pkgs/pkgconfig"
)

//go:embed conandata.yml
var conandata []byte

// Sources returns the version to source archive mapping of the recipe.
func Sources() (*versions.Versions, error) {
	return versions.Parse("", conandata)
}

// Recipe evaluates Pango for one resolved option set.
type Recipe struct {
	Resolved

	version  string
	fetcher  *source.Fetcher
	sources  *versions.Versions
	mesonBin string
	stdout   io.Writer
	stderr   io.Writer
}

// Option configures a Recipe.
type Option func(*Recipe)

// WithVersion selects another version recorded in the source data.
func WithVersion(v string) Option {
	return func(r *Recipe) {
		r.version = v
	}
}

// WithFetcher sets the source fetcher.
func WithFetcher(f *source.Fetcher) Option {
	return func(r *Recipe) {
		r.fetcher = f
	}
}

// WithSources replaces the embedded source data.
func WithSources(v *versions.Versions) Option {
	return func(r *Recipe) {
		r.sources = v
	}
}

// WithMeson sets the meson executable.
func WithMeson(bin string) Option {
	return func(r *Recipe) {
		r.mesonBin = bin
	}
}

// WithOutput sets where build tool output goes.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(r *Recipe) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// New resolves opts for p and returns the recipe.
func New(opts Options, p formula.Platform, ropts ...Option) (*Recipe, error) {
	r := &Recipe{
		Resolved: opts.Resolve(p),
		version:  Version,
		mesonBin: "meson",
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}
	for _, opt := range ropts {
		opt(r)
	}
	if r.sources == nil {
		data, err := Sources()
		if err != nil {
			return nil, fmt.Errorf("pango: parse source data: %w", err)
		}
		r.sources = data
	}
	if r.fetcher == nil {
		r.fetcher = source.NewFetcher()
	}
	return r, nil
}

// Ref returns the reference of the package the recipe builds.
func (r *Recipe) Ref() module.Version {
	return module.Version{Path: Name, Version: r.version}
}

func (r *Recipe) meson(fctx *formula.Context) *meson.Meson {
	m := meson.New(fctx).Binary(r.mesonBin)
	m.Stdout, m.Stderr = r.stdout, r.stderr
	return m
}

// Source downloads and unpacks the sources into fctx.SourceDir.
func (r *Recipe) Source(ctx context.Context, fctx *formula.Context) error {
	src, err := r.sources.Source(r.version)
	if err != nil {
		return err
	}
	return r.fetcher.Get(ctx, src, fctx.SourceDir, true)
}

// Build checks the tool requirement, exposes the dependencies to Meson,
// generates the Meson configuration and compiles.
func (r *Recipe) Build(ctx context.Context, fctx *formula.Context) error {
	logger := logging.FromContext(ctx)
	m := r.meson(fctx)

	found, err := m.CheckVersion(ctx, MesonVersion)
	if err != nil {
		return fmt.Errorf("tool requirement meson/%s: %w", MesonVersion, err)
	}
	logger.Debug("found meson", "version", found)

	for _, req := range r.Requirements().List() {
		if dep, ok := fctx.Dep(req.Ref.Path); ok && dep.Dir != "" {
			m.Use(dep)
		}
	}
	if err := r.generateDeps(fctx); err != nil {
		return err
	}

	r.Generate(m)
	logger.Info("configuring", "native_file", m.NativeFile())
	if err := m.Configure(ctx); err != nil {
		return err
	}
	logger.Info("compiling")
	return m.Build(ctx)
}

// generateDeps writes .pc files for every dependency that published a
// component graph into the generators folder.
func (r *Recipe) generateDeps(fctx *formula.Context) error {
	if fctx.GeneratorsDir == "" {
		return nil
	}
	resolve := pkgconfig.DepsResolver(fctx.Deps)
	var files []pkgconfig.File
	for _, req := range r.Requirements().List() {
		dep, ok := fctx.Dep(req.Ref.Path)
		if !ok || dep.CppInfo == nil {
			continue
		}
		files = append(files, pkgconfig.Files(req.Ref.Path, req.Ref.Version, dep.Dir, dep.CppInfo, resolve)...)
	}
	if len(files) == 0 {
		return nil
	}
	_, err := pkgconfig.WriteDir(fctx.GeneratorsDir, files)
	return err
}

// Package copies the license and installs the build outputs into
// fctx.PackageDir.
func (r *Recipe) Package(ctx context.Context, fctx *formula.Context) error {
	proj := &formula.Project{SourceFS: os.DirFS(fctx.SourceDir)}
	license, err := proj.ReadFile("COPYING")
	if err != nil {
		return fmt.Errorf("read license: %w", err)
	}
	licenses := filepath.Join(fctx.PackageDir, "licenses")
	if err := os.MkdirAll(licenses, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(licenses, "COPYING"), license, 0o644); err != nil {
		return err
	}
	return r.meson(fctx).Install(ctx)
}
