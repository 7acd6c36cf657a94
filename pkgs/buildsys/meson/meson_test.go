package meson

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/goplus/llar-pango/formula"
	"github.com/goplus/llar-pango/pkgs/mod/module"
)

func TestRenderNativeFile(t *testing.T) {
	m := New(&formula.Context{
		SourceDir:     "/src",
		BuildDir:      "/build",
		PackageDir:    "/pkg",
		GeneratorsDir: "/gen",
	})
	m.DefaultLibrary(true).
		BuildType("Release").
		BuiltinBool("b_staticpic", true).
		ProjectOption("introspection", "disabled").
		Feature("cairo", true).
		Feature("xft", false)

	got := m.RenderNativeFile()
	want := `[built-in options]
b_staticpic = true
buildtype = 'release'
default_library = 'shared'
pkg_config_path = ['/gen']
prefix = '/pkg'

[project options]
cairo = 'enabled'
introspection = 'disabled'
xft = 'disabled'
`
	if got != want {
		t.Fatalf("RenderNativeFile() =\n%s\nwant\n%s", got, want)
	}
	if m.NativeFile() != filepath.Join("/gen", NativeFileName) {
		t.Errorf("NativeFile() = %q", m.NativeFile())
	}
}

func TestBuildType(t *testing.T) {
	tests := map[string]string{
		"Release":        "release",
		"Debug":          "debug",
		"RelWithDebInfo": "debugoptimized",
		"MinSizeRel":     "minsize",
		"Plain":          "plain",
	}
	for in, want := range tests {
		m := New(nil).BuildType(in)
		if got := m.BuiltinOptions()["buildtype"]; got != want {
			t.Errorf("BuildType(%q) = %q, want %q", in, got, want)
		}
	}
	if _, ok := New(nil).BuildType("").BuiltinOptions()["buildtype"]; ok {
		t.Error("BuildType(\"\") set buildtype")
	}
}

func TestQuote(t *testing.T) {
	if got := quote(`it's`); got != `'it\'s'` {
		t.Errorf("quote() = %s", got)
	}
}

func TestUseSetsEnv(t *testing.T) {
	dir := t.TempDir()
	pkgconfigDir := filepath.Join(dir, "lib", "pkgconfig")
	binDir := filepath.Join(dir, "bin")
	for _, d := range []string{pkgconfigDir, binDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv("PKG_CONFIG_PATH", "")

	m := New(nil)
	m.Use(formula.Dependency{Ref: module.Version{Path: "glib", Version: "2.78.0"}, Dir: dir})
	if got := m.env["PKG_CONFIG_PATH"]; got != pkgconfigDir {
		t.Errorf("PKG_CONFIG_PATH = %q, want %q", got, pkgconfigDir)
	}
	if got := m.env["PATH"]; !strings.HasPrefix(got, binDir) {
		t.Errorf("PATH = %q, want prefix %q", got, binDir)
	}

	other := t.TempDir()
	if err := os.MkdirAll(filepath.Join(other, "lib", "pkgconfig"), 0o755); err != nil {
		t.Fatal(err)
	}
	m.Use(formula.Dependency{Ref: module.Version{Path: "fribidi", Version: "1.0.13"}, Dir: other})
	want := filepath.Join(other, "lib", "pkgconfig") + string(os.PathListSeparator) + pkgconfigDir
	if got := m.env["PKG_CONFIG_PATH"]; got != want {
		t.Errorf("PKG_CONFIG_PATH = %q, want %q", got, want)
	}
}

func TestUsePanicsWithoutDir(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Use() did not panic")
		}
	}()
	New(nil).Use(formula.Dependency{Ref: module.Version{Path: "glib", Version: "2.78.0"}})
}

func TestMatchVersion(t *testing.T) {
	tests := []struct {
		found, pinned string
		ok            bool
	}{
		{"1.2.2", "1.2.2", true},
		{"1.4.0", "1.2.2", true},
		{"1.2.1", "1.2.2", false},
		{"2.0.0", "1.2.2", false},
		{"garbage", "1.2.2", false},
	}
	for _, tt := range tests {
		err := MatchVersion(tt.found, tt.pinned)
		if (err == nil) != tt.ok {
			t.Errorf("MatchVersion(%q, %q) = %v, want ok=%v", tt.found, tt.pinned, err, tt.ok)
		}
		if err != nil && !errors.Is(err, ErrToolVersion) {
			t.Errorf("MatchVersion(%q, %q) error = %v, want ErrToolVersion", tt.found, tt.pinned, err)
		}
	}
}

func TestOutputDirPrefersInstall(t *testing.T) {
	m := New(nil)
	if got := m.OutputDir(); got != "build" {
		t.Fatalf("default OutputDir = %q, want %q", got, "build")
	}
	m.InstallDir("custom-install")
	if got := m.OutputDir(); got != "custom-install" {
		t.Fatalf("OutputDir after InstallDir = %q, want %q", got, "custom-install")
	}
}

func TestToolFailurePropagates(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on the false utility")
	}
	bin, err := exec.LookPath("false")
	if err != nil {
		t.Skip("false not found in PATH")
	}
	m := New(&formula.Context{SourceDir: t.TempDir(), BuildDir: t.TempDir()}).Binary(bin)
	m.Stdout, m.Stderr = io.Discard, io.Discard

	err = m.Configure(context.Background())
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Configure() error = %v, want *exec.ExitError", err)
	}
}

func TestConfigureBuildInstallE2E(t *testing.T) {
	if _, err := exec.LookPath("meson"); err != nil {
		t.Skip("meson not found in PATH")
	}
	if _, err := exec.LookPath("ninja"); err != nil {
		t.Skip("ninja not found in PATH")
	}

	tmp := t.TempDir()
	sourceDir, err := filepath.Abs(filepath.Join("testdata", "project"))
	if err != nil {
		t.Fatal(err)
	}
	installDir := filepath.Join(tmp, "install")

	m := New(&formula.Context{
		SourceDir:     sourceDir,
		BuildDir:      filepath.Join(tmp, "build"),
		PackageDir:    installDir,
		GeneratorsDir: filepath.Join(tmp, "gen"),
	})
	m.Stdout, m.Stderr = io.Discard, io.Discard
	m.DefaultLibrary(false).BuildType("Release").Feature("extra", true)

	ctx := context.Background()
	if err := m.Configure(ctx); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := m.Build(ctx); err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := m.Install(ctx); err != nil {
		t.Fatalf("install: %v", err)
	}

	if _, err := os.Stat(filepath.Join(installDir, "include", "dummy.h")); err != nil {
		t.Fatalf("installed header missing: %v", err)
	}
	found := false
	filepath.WalkDir(installDir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && d.Name() == "dummy.pc" {
			found = true
		}
		return nil
	})
	if !found {
		t.Fatalf("installed pkg-config file missing under %s", installDir)
	}
}
