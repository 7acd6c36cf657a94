// Package module defines the module.Version type along with support code.
package module

import (
	"fmt"
	"path/filepath"
	"strings"
)

// A Version represents a package reference pinned to a specific version,
// written as "name/version" (e.g. "glib/2.78.0").
type Version struct {
	Path    string // Package name (e.g. "glib")
	Version string // Version string (e.g. "2.78.0"), or "system" for host packages
}

// VersionComparator orders two version strings of the same package.
type VersionComparator func(v1, v2 string) int

// String returns the reference in "name/version" form.
func (v Version) String() string {
	if v.Version == "" {
		return v.Path
	}
	return v.Path + "/" + v.Version
}

// Parse parses a "name/version" reference.
func Parse(ref string) (Version, error) {
	path, ver, ok := strings.Cut(ref, "/")
	if !ok || path == "" || ver == "" || strings.Contains(ver, "/") {
		return Version{}, fmt.Errorf("invalid reference %q: want name/version", ref)
	}
	return Version{Path: path, Version: ver}, nil
}

// EscapePath returns the escaped form of the given module path as a valid
// file system path. It fails if the module path is invalid.
func EscapePath(path string) (escaped string, err error) {
	return filepath.Localize(path)
}
