// Package build drives a recipe through its stages inside a workspace and
// caches the resulting packages by package id.
package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goplus/llar-pango/formula"
	"github.com/goplus/llar-pango/internal/env"
	"github.com/goplus/llar-pango/internal/logging"
	"github.com/goplus/llar-pango/pkgs/mod/module"
)

// ErrMissingDependency is returned when a requirement has no package
// folder and system dependencies are not allowed.
var ErrMissingDependency = errors.New("missing dependency")

// Recipe is a package recipe with its options already resolved.
type Recipe interface {
	Ref() module.Version
	Requirements() *formula.Requirements

	// ApplyDependencyOptions returns deps with the linkage the recipe
	// forces on its requirements applied, or an error if a prebuilt
	// dependency cannot be linked that way.
	ApplyDependencyOptions(deps map[string]formula.Dependency) (map[string]formula.Dependency, error)
	PackageID(deps map[string]formula.Dependency) *formula.PackageID

	Source(ctx context.Context, fctx *formula.Context) error
	Build(ctx context.Context, fctx *formula.Context) error
	Package(ctx context.Context, fctx *formula.Context) error

	PackageInfo(packageDir string) *formula.CppInfo
}

// Options configures a Builder.
type Options struct {
	// WorkspaceDir defaults to env.WorkDir().
	WorkspaceDir string
	Logger       *log.Logger

	// Force rebuilds even when the cache has the package.
	Force bool

	// SystemDeps lets requirements without a package folder be found
	// on the system by the build tool.
	SystemDeps bool
}

type Builder struct {
	workspaceDir string
	logger       *log.Logger
	force        bool
	systemDeps   bool
}

// Result describes a built package.
type Result struct {
	Ref       module.Version
	PackageID string
	Dir       string
	CppInfo   *formula.CppInfo

	// Metadata is the text the package id is computed from.
	Metadata string
	Cached   bool
}

// Dependency returns r as seen by a consumer.
func (r *Result) Dependency(shared bool) formula.Dependency {
	return formula.Dependency{
		Ref:       r.Ref,
		Shared:    shared,
		PackageID: r.PackageID,
		Dir:       r.Dir,
		CppInfo:   r.CppInfo,
	}
}

func NewBuilder(opts Options) (*Builder, error) {
	b := &Builder{
		workspaceDir: opts.WorkspaceDir,
		logger:       opts.Logger,
		force:        opts.Force,
		systemDeps:   opts.SystemDeps,
	}
	if b.workspaceDir == "" {
		dir, err := env.WorkDir()
		if err != nil {
			return nil, err
		}
		b.workspaceDir = dir
	}
	if b.logger == nil {
		b.logger = log.Default()
	}
	return b, nil
}

// checkDeps verifies every requirement of r can be found.
func (b *Builder) checkDeps(r Recipe, deps map[string]formula.Dependency) error {
	for _, req := range r.Requirements().List() {
		if d, ok := deps[req.Ref.Path]; ok && d.Dir != "" {
			continue
		}
		if req.Ref.Version == "system" || b.systemDeps {
			b.logger.Debug("using system dependency", "ref", req.Ref)
			continue
		}
		return fmt.Errorf("%w %s", ErrMissingDependency, req.Ref)
	}
	return nil
}

// Build runs r with the given dependencies. An existing package with the
// same id is reused unless the builder forces rebuilds.
func (b *Builder) Build(ctx context.Context, r Recipe, deps map[string]formula.Dependency) (*Result, error) {
	ref := r.Ref()
	deps, err := r.ApplyDependencyOptions(deps)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref, err)
	}
	if err := b.checkDeps(r, deps); err != nil {
		return nil, err
	}

	pid := r.PackageID(deps)
	id := pid.ID()
	logger := b.logger.With("ref", ref, "package_id", id)
	ctx = logging.WithLogger(ctx, logger)

	if res, ok := b.cached(ref, id); ok {
		logger.Info("using cached package", "dir", res.Dir)
		return res, nil
	}

	cacheDir, err := b.cacheDir(ref.Path)
	if err != nil {
		return nil, err
	}
	unlock, err := lockFile(filepath.Join(cacheDir, cacheKey(ref.Version, id)+".lock"))
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Double-check cache after acquiring lock (another process may have built it)
	if res, ok := b.cached(ref, id); ok {
		logger.Info("using cached package", "dir", res.Dir)
		return res, nil
	}

	installDir, err := b.installDir(ref, id)
	if err != nil {
		return nil, err
	}
	workDir := filepath.Join(cacheDir, "work", cacheKey(ref.Version, id))
	fctx := &formula.Context{
		SourceDir:     filepath.Join(workDir, "src"),
		BuildDir:      filepath.Join(workDir, "build"),
		GeneratorsDir: filepath.Join(workDir, "gen"),
		PackageDir:    installDir,
		Deps:          deps,
	}
	for _, dir := range []string{workDir, installDir} {
		if err := os.RemoveAll(dir); err != nil {
			return nil, err
		}
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Debug("removing work dir", "dir", workDir, "err", err)
		}
	}()
	for _, dir := range []string{fctx.SourceDir, fctx.BuildDir, fctx.GeneratorsDir, installDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	stages := []struct {
		name string
		run  func(context.Context, *formula.Context) error
	}{
		{"source", r.Source},
		{"build", r.Build},
		{"package", r.Package},
	}
	for _, stage := range stages {
		logger.Info("running stage", "stage", stage.name)
		if err := stage.run(ctx, fctx); err != nil {
			return nil, fmt.Errorf("%s %s: %w", ref, stage.name, err)
		}
	}

	info := r.PackageInfo(installDir)
	if err := info.Validate(r.Requirements()); err != nil {
		return nil, fmt.Errorf("%s package info: %w", ref, err)
	}

	res := &Result{
		Ref:       ref,
		PackageID: id,
		Dir:       installDir,
		CppInfo:   info,
		Metadata:  pid.String(),
	}
	if err := b.store(res); err != nil {
		return nil, err
	}
	logger.Info("built package", "dir", installDir)
	return res, nil
}

// cached returns the cache entry for ref and id if its package folder
// still exists.
func (b *Builder) cached(ref module.Version, id string) (*Result, bool) {
	if b.force {
		return nil, false
	}
	cache, err := b.loadCache(ref.Path)
	if err != nil {
		b.logger.Warn("ignoring build cache", "err", err)
		return nil, false
	}
	entry, ok := cache.get(ref.Version, id)
	if !ok {
		return nil, false
	}
	if _, err := os.Stat(entry.Dir); err != nil {
		return nil, false
	}
	return &Result{
		Ref:       ref,
		PackageID: id,
		Dir:       entry.Dir,
		CppInfo:   entry.CppInfo,
		Metadata:  entry.Metadata,
		Cached:    true,
	}, true
}

// store adds res to the package cache. The whole read-modify-write runs
// under the package-level cache lock.
func (b *Builder) store(res *Result) error {
	dir, err := b.cacheDir(res.Ref.Path)
	if err != nil {
		return err
	}
	unlock, err := lockFile(filepath.Join(dir, cacheFile+".lock"))
	if err != nil {
		return err
	}
	defer unlock()

	cache, err := b.loadCache(res.Ref.Path)
	if err != nil {
		b.logger.Warn("replacing unreadable build cache", "err", err)
		cache = &buildCache{}
	}
	cache.set(res.Ref.Version, res.PackageID, &buildEntry{
		Dir:       res.Dir,
		Metadata:  res.Metadata,
		CppInfo:   res.CppInfo,
		BuildTime: time.Now(),
	})
	return b.saveCache(res.Ref.Path, cache)
}
