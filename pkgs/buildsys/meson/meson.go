// Package meson drives the Meson build system: it writes a native machine
// file from the configured options and runs setup, compile and install.
package meson

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goplus/llar-pango/formula"
	"github.com/goplus/llar-pango/pkgs/buildsys"
	"golang.org/x/mod/semver"
)

// NativeFileName is the name of the machine file written by WriteNativeFile.
const NativeFileName = "llar_meson_native.ini"

// ErrToolVersion is returned when the installed meson does not satisfy
// the pinned tool requirement.
var ErrToolVersion = errors.New("meson version mismatch")

type optionValue struct {
	value string
	bare  bool // booleans and arrays are written without quotes
}

func (v optionValue) literal() string {
	if v.bare {
		return v.value
	}
	return quote(v.value)
}

// Meson wraps common Meson build steps with chainable configuration.
type Meson struct {
	ctx        *formula.Context
	SourceDir  string
	buildDir   string
	installDir string
	nativeDir  string
	bin        string

	builtinOptions map[string]optionValue
	projectOptions map[string]optionValue
	env            map[string]string

	Stdout io.Writer
	Stderr io.Writer
}

var _ buildsys.BuildSystem = (*Meson)(nil)

// New creates a new Meson helper. Folders are taken from ctx when it is
// not nil.
func New(ctx *formula.Context) *Meson {
	m := &Meson{
		ctx:            ctx,
		bin:            "meson",
		builtinOptions: map[string]optionValue{},
		projectOptions: map[string]optionValue{},
		env:            map[string]string{},
		Stdout:         os.Stdout,
		Stderr:         os.Stderr,
	}
	if ctx != nil {
		m.SourceDir = ctx.SourceDir
		m.buildDir = ctx.BuildDir
		m.installDir = ctx.PackageDir
		m.nativeDir = ctx.GeneratorsDir
	}
	if m.buildDir == "" {
		m.buildDir = filepath.Join(m.SourceDir, "build")
	}
	return m
}

func (m *Meson) Source(dir string) {
	m.SourceDir = dir
}

func (m *Meson) InstallDir(dir string) {
	m.installDir = dir
}

// BuildDir sets the directory meson setup configures.
func (m *Meson) BuildDir(dir string) *Meson {
	m.buildDir = dir
	return m
}

// Binary sets the meson executable.
func (m *Meson) Binary(path string) *Meson {
	m.bin = path
	return m
}

// ProjectOption sets a string option declared in meson_options.txt.
func (m *Meson) ProjectOption(key, value string) *Meson {
	m.projectOptions[key] = optionValue{value: value}
	return m
}

// Feature sets a feature option to enabled or disabled.
func (m *Meson) Feature(key string, enabled bool) *Meson {
	return m.ProjectOption(key, FeatureValue(enabled))
}

// BuiltinOption sets a string built-in option such as buildtype.
func (m *Meson) BuiltinOption(key, value string) *Meson {
	m.builtinOptions[key] = optionValue{value: value}
	return m
}

// BuiltinBool sets a boolean built-in option such as b_staticpic.
func (m *Meson) BuiltinBool(key string, value bool) *Meson {
	m.builtinOptions[key] = optionValue{value: fmt.Sprint(value), bare: true}
	return m
}

// DefaultLibrary selects shared or static libraries.
func (m *Meson) DefaultLibrary(shared bool) *Meson {
	if shared {
		return m.BuiltinOption("default_library", "shared")
	}
	return m.BuiltinOption("default_library", "static")
}

// BuildType maps a CMake-style build type onto meson's buildtype.
func (m *Meson) BuildType(name string) *Meson {
	switch name {
	case "":
		return m
	case "Debug":
		return m.BuiltinOption("buildtype", "debug")
	case "RelWithDebInfo":
		return m.BuiltinOption("buildtype", "debugoptimized")
	case "MinSizeRel":
		return m.BuiltinOption("buildtype", "minsize")
	case "Release":
		return m.BuiltinOption("buildtype", "release")
	}
	return m.BuiltinOption("buildtype", strings.ToLower(name))
}

// ProjectOptions returns the project options as they will be written.
func (m *Meson) ProjectOptions() map[string]string {
	return plain(m.projectOptions)
}

// BuiltinOptions returns the built-in options as they will be written.
func (m *Meson) BuiltinOptions() map[string]string {
	return plain(m.builtinOptions)
}

func plain(opts map[string]optionValue) map[string]string {
	out := make(map[string]string, len(opts))
	for k, v := range opts {
		out[k] = v.value
	}
	return out
}

func (m *Meson) Env(key, value string) {
	if m.env == nil {
		m.env = map[string]string{}
	}
	m.env[key] = value
}

// Use makes the pkg-config files of dep visible to meson.
func (m *Meson) Use(dep formula.Dependency) {
	if dep.Dir == "" {
		panic(fmt.Sprintf("meson: dep has no package folder: %s", dep.Ref))
	}
	pkgconfigDir := filepath.Join(dep.Dir, "lib", "pkgconfig")
	if _, err := os.Stat(pkgconfigDir); err == nil {
		m.prependEnv("PKG_CONFIG_PATH", pkgconfigDir)
	}
	binDir := filepath.Join(dep.Dir, "bin")
	if _, err := os.Stat(binDir); err == nil {
		m.prependEnv("PATH", binDir)
	}
}

// NativeFile returns the path of the machine file.
func (m *Meson) NativeFile() string {
	dir := m.nativeDir
	if dir == "" {
		dir = m.buildDir
	}
	return filepath.Join(dir, NativeFileName)
}

// RenderNativeFile returns the machine file contents.
func (m *Meson) RenderNativeFile() string {
	var b strings.Builder
	b.WriteString("[built-in options]\n")
	builtin := make(map[string]optionValue, len(m.builtinOptions)+2)
	for k, v := range m.builtinOptions {
		builtin[k] = v
	}
	if m.installDir != "" {
		builtin["prefix"] = optionValue{value: filepath.ToSlash(m.installDir)}
	}
	if _, ok := builtin["pkg_config_path"]; !ok && m.nativeDir != "" {
		builtin["pkg_config_path"] = optionValue{value: "[" + quote(filepath.ToSlash(m.nativeDir)) + "]", bare: true}
	}
	writeOptions(&b, builtin)
	b.WriteString("\n[project options]\n")
	writeOptions(&b, m.projectOptions)
	return b.String()
}

func writeOptions(b *strings.Builder, opts map[string]optionValue) {
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "%s = %s\n", k, opts[k].literal())
	}
}

// WriteNativeFile writes the machine file and returns its path.
func (m *Meson) WriteNativeFile() (string, error) {
	path := m.NativeFile()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(m.RenderNativeFile()), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Configure writes the machine file and runs meson setup.
func (m *Meson) Configure(ctx context.Context, args ...string) error {
	native, err := m.WriteNativeFile()
	if err != nil {
		return err
	}
	setupArgs := []string{"setup", "--native-file", native}
	setupArgs = append(setupArgs, args...)
	setupArgs = append(setupArgs, m.buildDir, m.SourceDir)
	return m.run(ctx, setupArgs)
}

func (m *Meson) Build(ctx context.Context, args ...string) error {
	cmdArgs := append([]string{"compile", "-C", m.buildDir}, args...)
	return m.run(ctx, cmdArgs)
}

func (m *Meson) Install(ctx context.Context, args ...string) error {
	cmdArgs := append([]string{"install", "-C", m.buildDir}, args...)
	return m.run(ctx, cmdArgs)
}

// OutputDir returns the install dir if set, otherwise the build dir.
func (m *Meson) OutputDir() string {
	if m.installDir != "" {
		return m.installDir
	}
	return m.buildDir
}

// CheckVersion runs meson --version and verifies that it has the same
// major version as pinned and is not older.
func (m *Meson) CheckVersion(ctx context.Context, pinned string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, m.bin, "--version")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s", msg)
		}
		return "", err
	}
	found := strings.TrimSpace(stdout.String())
	return found, MatchVersion(found, pinned)
}

// MatchVersion reports whether found satisfies the pinned version.
func MatchVersion(found, pinned string) error {
	f, p := canonical(found), canonical(pinned)
	if !semver.IsValid(f) || !semver.IsValid(p) {
		return fmt.Errorf("%w: cannot compare %q with %q", ErrToolVersion, found, pinned)
	}
	if semver.Major(f) != semver.Major(p) || semver.Compare(f, p) < 0 {
		return fmt.Errorf("%w: found %s, need %s", ErrToolVersion, found, pinned)
	}
	return nil
}

func canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.Canonical(v)
}

// FeatureValue renders a feature option value.
func FeatureValue(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func (m *Meson) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, m.bin, args...)
	cmd.Stdout = m.Stdout
	cmd.Stderr = m.Stderr
	if len(m.env) > 0 {
		cmd.Env = mergeEnv(os.Environ(), m.env)
	}
	return cmd.Run()
}

func mergeEnv(base []string, override map[string]string) []string {
	envMap := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range override {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}

// prependEnv prepends a value to an environment variable using the appropriate separator.
func (m *Meson) prependEnv(key, value string) {
	current, ok := m.env[key]
	if !ok {
		current = os.Getenv(key)
	}
	if current == "" {
		m.env[key] = value
		return
	}
	m.env[key] = value + string(os.PathListSeparator) + current
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), "'", `\'`) + "'"
}
