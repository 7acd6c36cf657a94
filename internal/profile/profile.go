// Package profile loads build profiles: TOML files holding the platform
// settings, option values and prebuilt dependencies of a build.
//
//	[settings]
//	os = "Linux"
//	build_type = "Release"
//
//	[options]
//	shared = false
//	with_xft = "auto"
//
//	[deps.glib]
//	version = "2.78.0"
//	dir = "/opt/glib"
//	shared = true
//	package_id = "..."
package profile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goplus/llar-pango/formula"
	"github.com/goplus/llar-pango/pkgs/mod/module"
)

// Settings overrides the host platform. Empty fields are left alone.
type Settings struct {
	OS              string `toml:"os"`
	Arch            string `toml:"arch"`
	Compiler        string `toml:"compiler"`
	CompilerVersion string `toml:"compiler_version"`
	BuildType       string `toml:"build_type"`
	Libcxx          string `toml:"libcxx"`
	Cppstd          string `toml:"cppstd"`
}

// Dep describes a prebuilt dependency.
type Dep struct {
	Version   string `toml:"version"`
	Dir       string `toml:"dir"`
	Shared    bool   `toml:"shared"`
	PackageID string `toml:"package_id"`
}

type Profile struct {
	Settings Settings       `toml:"settings"`
	Options  map[string]any `toml:"options"`
	Deps     map[string]Dep `toml:"deps"`
}

// Load reads the profile at path.
func Load(path string) (*Profile, error) {
	var p Profile
	md, err := toml.DecodeFile(path, &p)
	if err != nil {
		return nil, fmt.Errorf("profile: failed to parse '%s': %w", path, err)
	}
	if err := checkUndecoded(md); err != nil {
		return nil, fmt.Errorf("profile: '%s': %w", path, err)
	}
	return &p, nil
}

// Parse parses a profile from its text.
func Parse(data string) (*Profile, error) {
	var p Profile
	md, err := toml.Decode(data, &p)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	if err := checkUndecoded(md); err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	return &p, nil
}

func checkUndecoded(md toml.MetaData) error {
	keys := md.Undecoded()
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	return fmt.Errorf("unknown keys: %s", strings.Join(names, ", "))
}

// Apply writes the settings of p over plat.
func (p *Profile) Apply(plat *formula.Platform) error {
	s := p.Settings
	if s.OS != "" {
		target, err := formula.ParseOS(s.OS)
		if err != nil {
			return fmt.Errorf("profile: settings.os: %w", err)
		}
		plat.OS = target
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&plat.Arch, s.Arch)
	set(&plat.Compiler, s.Compiler)
	set(&plat.CompilerVersion, s.CompilerVersion)
	set(&plat.BuildType, s.BuildType)
	set(&plat.Libcxx, s.Libcxx)
	set(&plat.Cppstd, s.Cppstd)
	return nil
}

// OptionValues returns the options of p as text, sorted by name. Values
// may be written as TOML booleans or strings.
func (p *Profile) OptionValues() ([][2]string, error) {
	keys := make([]string, 0, len(p.Options))
	for k := range p.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kvs := make([][2]string, 0, len(keys))
	for _, k := range keys {
		switch v := p.Options[k].(type) {
		case bool:
			kvs = append(kvs, [2]string{k, formula.FormatBool(v)})
		case string:
			kvs = append(kvs, [2]string{k, v})
		default:
			return nil, fmt.Errorf("profile: option %s: unsupported value %v", k, v)
		}
	}
	return kvs, nil
}

// Dependencies returns the prebuilt dependencies of p by package name.
func (p *Profile) Dependencies() map[string]formula.Dependency {
	deps := make(map[string]formula.Dependency, len(p.Deps))
	for name, d := range p.Deps {
		deps[name] = formula.Dependency{
			Ref:       module.Version{Path: name, Version: d.Version},
			Shared:    d.Shared,
			PackageID: d.PackageID,
			Dir:       d.Dir,
		}
	}
	return deps
}
