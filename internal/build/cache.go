package build

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goplus/llar-pango/formula"
	"github.com/goplus/llar-pango/pkgs/mod/module"
)

// Workspace directory layout:
//
//	workspaceDir/
//	  <escaped>/                      # package-level dir (cacheDir)
//	    .cache.json                   # build cache: maps "version-id" → buildEntry
//	    .cache.json.lock              # guards updates of .cache.json
//	    <version>-<id>.lock
//	    work/<version>-<id>/          # src, build and generators folders
//	  <escaped>@<version>-<id>/       # package folder (installDir)
//	    include/
//	    lib/
//	    licenses/
//	    ...
const cacheFile = ".cache.json"

// buildEntry contains metadata about a single successful build.
type buildEntry struct {
	Dir       string           `json:"dir"`
	Metadata  string           `json:"metadata"`
	CppInfo   *formula.CppInfo `json:"cpp_info"`
	BuildTime time.Time        `json:"build_time"`
}

// buildCache maps "version-id" keys to their build entries.
type buildCache struct {
	Cache map[string]*buildEntry `json:"cache"`
}

func cacheKey(version, id string) string {
	return version + "-" + id
}

func (c *buildCache) get(version, id string) (*buildEntry, bool) {
	entry, ok := c.Cache[cacheKey(version, id)]
	return entry, ok
}

func (c *buildCache) set(version, id string, entry *buildEntry) {
	if c.Cache == nil {
		c.Cache = make(map[string]*buildEntry)
	}
	c.Cache[cacheKey(version, id)] = entry
}

// cacheDir returns the package-level directory for cache storage: workspaceDir/<escapedPath>.
func (b *Builder) cacheDir(modPath string) (string, error) {
	escaped, err := module.EscapePath(modPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.workspaceDir, escaped), nil
}

// installDir returns the package folder: workspaceDir/<escapedPath>@<version>-<id>.
func (b *Builder) installDir(ref module.Version, id string) (string, error) {
	escaped, err := module.EscapePath(ref.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.workspaceDir, fmt.Sprintf("%s@%s-%s", escaped, ref.Version, id)), nil
}

// loadCache reads the cache file for a package from the workspace directory.
// A missing file yields an empty cache.
func (b *Builder) loadCache(modPath string) (*buildCache, error) {
	dir, err := b.cacheDir(modPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, cacheFile))
	if os.IsNotExist(err) {
		return &buildCache{}, nil
	}
	if err != nil {
		return nil, err
	}
	var cache buildCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("%s: %w", cacheFile, err)
	}
	return &cache, nil
}

// saveCache writes the cache file for a package to the workspace directory.
func (b *Builder) saveCache(modPath string, cache *buildCache) error {
	dir, err := b.cacheDir(modPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}

	// write to a temp file and rename so readers never see a partial cache
	tmp, err := os.CreateTemp(dir, cacheFile+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, cacheFile))
}
