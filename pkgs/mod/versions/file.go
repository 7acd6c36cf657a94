// Package versions parses the data file that maps each recipe version to
// the source archive it is built from.
package versions

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/goplus/llar-pango/pkgs/gnu"
	"gopkg.in/yaml.v3"
)

// ErrUnknownVersion is returned when no source is recorded for a version.
var ErrUnknownVersion = errors.New("no source recorded for version")

// URLs holds one or more mirrors of the same archive. In YAML it may be
// written either as a scalar or as a sequence.
type URLs []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (u *URLs) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*u = URLs{value.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*u = list
		return nil
	}
	return fmt.Errorf("line %d: url must be a string or a list of strings", value.Line)
}

// Source describes a downloadable source archive.
type Source struct {
	URL    URLs   `yaml:"url"`
	SHA256 string `yaml:"sha256"`
}

// Versions represents the data file of a recipe.
type Versions struct {
	Sources map[string]Source `yaml:"sources"` // Map of recipe version to source archive
}

// Parse reads and parses a data file from either provided data or a file path.
// If data is non-nil, it is used directly and the file parameter is ignored.
// Otherwise, the file is read from the provided path.
func Parse(file string, data []byte) (*Versions, error) {
	var reader io.Reader

	if data != nil {
		reader = bytes.NewBuffer(data)
	} else {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		reader = f
	}

	var v Versions

	if err := yaml.NewDecoder(reader).Decode(&v); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	return &v, nil
}

// Source returns the archive recorded for version.
func (v *Versions) Source(version string) (Source, error) {
	src, ok := v.Sources[version]
	if !ok {
		return Source{}, fmt.Errorf("%w: %s", ErrUnknownVersion, version)
	}
	if len(src.URL) == 0 {
		return Source{}, fmt.Errorf("source %s has no url", version)
	}
	return src, nil
}

// List returns the recorded versions in ascending order.
func (v *Versions) List() []string {
	list := make([]string, 0, len(v.Sources))
	for ver := range v.Sources {
		list = append(list, ver)
	}
	sort.Strings(list)
	gnu.Sort(list)
	return list
}

// Latest returns the highest recorded version, or "" if there is none.
func (v *Versions) Latest() string {
	list := v.List()
	if len(list) == 0 {
		return ""
	}
	return list[len(list)-1]
}
