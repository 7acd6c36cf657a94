package pango

import (
	"fmt"
	"sort"

	"github.com/goplus/llar-pango/formula"
)

// Option names as they appear on the command line, in profiles and in
// package identities.
const (
	OptShared         = "shared"
	OptFPIC           = "fPIC"
	OptWithLibthai    = "with_libthai"
	OptWithCairo      = "with_cairo"
	OptWithXft        = "with_xft"
	OptWithFreetype   = "with_freetype"
	OptWithFontconfig = "with_fontconfig"
)

// Options is the raw option set of the recipe. The three backend
// switches may be left Auto; Resolve turns them into booleans.
type Options struct {
	Shared         bool
	FPIC           bool
	WithLibthai    bool
	WithCairo      bool
	WithXft        formula.Switch
	WithFreetype   formula.Switch
	WithFontconfig formula.Switch
}

// DefaultOptions returns the declared defaults.
func DefaultOptions() Options {
	return Options{
		Shared:         true,
		FPIC:           true,
		WithLibthai:    false,
		WithCairo:      true,
		WithXft:        formula.Auto,
		WithFreetype:   formula.Auto,
		WithFontconfig: formula.Auto,
	}
}

// OptionNames returns every option name in alphabetical order.
func OptionNames() []string {
	names := []string{OptShared, OptFPIC, OptWithLibthai, OptWithCairo, OptWithXft, OptWithFreetype, OptWithFontconfig}
	sort.Strings(names)
	return names
}

// Set assigns the option named key from its textual value.
func (o *Options) Set(key, value string) error {
	var err error
	switch key {
	case OptShared:
		o.Shared, err = formula.ParseBool(value)
	case OptFPIC:
		o.FPIC, err = formula.ParseBool(value)
	case OptWithLibthai:
		o.WithLibthai, err = formula.ParseBool(value)
	case OptWithCairo:
		o.WithCairo, err = formula.ParseBool(value)
	case OptWithXft:
		o.WithXft, err = formula.ParseSwitch(value)
	case OptWithFreetype:
		o.WithFreetype, err = formula.ParseSwitch(value)
	case OptWithFontconfig:
		o.WithFontconfig, err = formula.ParseSwitch(value)
	default:
		return fmt.Errorf("unknown option %q", key)
	}
	if err != nil {
		return fmt.Errorf("option %s: %w", key, err)
	}
	return nil
}

// Map returns the options as text.
func (o Options) Map() map[string]string {
	return map[string]string{
		OptShared:         formula.FormatBool(o.Shared),
		OptFPIC:           formula.FormatBool(o.FPIC),
		OptWithLibthai:    formula.FormatBool(o.WithLibthai),
		OptWithCairo:      formula.FormatBool(o.WithCairo),
		OptWithXft:        o.WithXft.String(),
		OptWithFreetype:   o.WithFreetype.String(),
		OptWithFontconfig: o.WithFontconfig.String(),
	}
}

// Matrix returns the whole configuration space: every known OS crossed
// with every value of every option.
func Matrix() formula.Matrix {
	oses := make([]string, len(formula.KnownOS))
	for i, target := range formula.KnownOS {
		oses[i] = string(target)
	}
	bools := []string{"True", "False"}
	switches := []string{"True", "False", "auto"}
	return formula.Matrix{
		Require: map[string][]string{"os": oses},
		Options: map[string][]string{
			OptShared:         bools,
			OptFPIC:           bools,
			OptWithLibthai:    bools,
			OptWithCairo:      bools,
			OptWithXft:        switches,
			OptWithFreetype:   switches,
			OptWithFontconfig: switches,
		},
	}
}

// Resolved is an option set with every Auto switch decided for a
// platform. It can only be obtained from Options.Resolve.
type Resolved struct {
	// Platform holds the settings the package is built for, without the
	// C++ settings a C library does not depend on.
	Platform formula.Platform

	Shared      bool
	HasFPIC     bool // false when fPIC does not apply
	FPIC        bool
	WithLibthai bool
	WithCairo   bool

	WithXft        bool
	WithFreetype   bool
	WithFontconfig bool
}

// Resolve decides every Auto switch for p:
//   - with_xft defaults to true on Linux and FreeBSD only;
//   - with_freetype and with_fontconfig default to false on Windows and
//     macOS and to true elsewhere.
//
// fPIC is dropped for shared builds and on Windows.
func (o Options) Resolve(p formula.Platform) Resolved {
	p.Libcxx = ""
	p.Cppstd = ""
	desktop := p.Is(formula.Windows, formula.Macos)
	r := Resolved{
		Platform:       p,
		Shared:         o.Shared,
		HasFPIC:        !o.Shared && p.OS != formula.Windows,
		WithLibthai:    o.WithLibthai,
		WithCairo:      o.WithCairo,
		WithXft:        o.WithXft.Resolve(p.Is(formula.Linux, formula.FreeBSD)),
		WithFreetype:   o.WithFreetype.Resolve(!desktop),
		WithFontconfig: o.WithFontconfig.Resolve(!desktop),
	}
	if r.HasFPIC {
		r.FPIC = o.FPIC
	}
	return r
}

// Options returns r as an explicit option set. Resolving it again on the
// same platform yields r.
func (r Resolved) Options() Options {
	return Options{
		Shared:         r.Shared,
		FPIC:           !r.HasFPIC || r.FPIC,
		WithLibthai:    r.WithLibthai,
		WithCairo:      r.WithCairo,
		WithXft:        formula.SwitchOf(r.WithXft),
		WithFreetype:   formula.SwitchOf(r.WithFreetype),
		WithFontconfig: formula.SwitchOf(r.WithFontconfig),
	}
}

// Map returns the resolved options as text. fPIC is omitted when it does
// not apply.
func (r Resolved) Map() map[string]string {
	m := map[string]string{
		OptShared:         formula.FormatBool(r.Shared),
		OptWithLibthai:    formula.FormatBool(r.WithLibthai),
		OptWithCairo:      formula.FormatBool(r.WithCairo),
		OptWithXft:        formula.FormatBool(r.WithXft),
		OptWithFreetype:   formula.FormatBool(r.WithFreetype),
		OptWithFontconfig: formula.FormatBool(r.WithFontconfig),
	}
	if r.HasFPIC {
		m[OptFPIC] = formula.FormatBool(r.FPIC)
	}
	return m
}
