package formula

import (
	"io"
	"io/fs"
)

// -----------------------------------------------------------------------------

// Project represents the unpacked sources of the package being built.
type Project struct {
	SourceFS fs.FS
}

// ReadFile reads the content of a file in the project.
func (p *Project) ReadFile(path string) ([]byte, error) {
	file, err := p.SourceFS.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}

// -----------------------------------------------------------------------------

// Context carries the folders and resolved dependencies of one recipe
// evaluation.
type Context struct {
	SourceDir     string
	BuildDir      string
	PackageDir    string
	GeneratorsDir string

	// Deps holds the resolved state of each requirement by package name.
	Deps map[string]Dependency
}

// Dep returns the resolved dependency on the named package.
func (c *Context) Dep(path string) (Dependency, bool) {
	if c == nil || c.Deps == nil {
		return Dependency{}, false
	}
	d, ok := c.Deps[path]
	return d, ok
}

// -----------------------------------------------------------------------------
