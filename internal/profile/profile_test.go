package profile

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/goplus/llar-pango/formula"
)

const sample = `
[settings]
os = "Windows"
build_type = "Debug"

[options]
shared = false
with_xft = "auto"

[deps.glib]
version = "2.78.0"
dir = "/opt/glib"
shared = true
package_id = "abc"
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "win.toml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	plat := formula.Platform{OS: formula.Linux, Arch: "x86_64", BuildType: "Release"}
	if err := p.Apply(&plat); err != nil {
		t.Fatal(err)
	}
	want := formula.Platform{OS: formula.Windows, Arch: "x86_64", BuildType: "Debug"}
	if plat != want {
		t.Errorf("platform = %+v, want %+v", plat, want)
	}

	opts, err := p.OptionValues()
	if err != nil {
		t.Fatal(err)
	}
	wantOpts := [][2]string{{"shared", "False"}, {"with_xft", "auto"}}
	if !reflect.DeepEqual(opts, wantOpts) {
		t.Errorf("options = %v, want %v", opts, wantOpts)
	}

	glib, ok := p.Dependencies()["glib"]
	if !ok {
		t.Fatal("glib missing")
	}
	if glib.Ref.String() != "glib/2.78.0" || glib.Dir != "/opt/glib" || !glib.Shared || glib.PackageID != "abc" {
		t.Errorf("glib = %+v", glib)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"syntax", "[settings\n", "profile:"},
		{"unknown key", "[settings]\nfoo = \"bar\"\n", "unknown keys: settings.foo"},
		{"unknown section", "[conf]\nx = 1\n", "unknown keys"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Parse() err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestBadValues(t *testing.T) {
	p, err := Parse("[options]\nshared = 1\n")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.OptionValues(); err == nil {
		t.Error("expected error for integer option")
	}

	p, err = Parse("[settings]\nos = \"Plan9\"\n")
	if err != nil {
		t.Fatal(err)
	}
	var plat formula.Platform
	if err := p.Apply(&plat); err == nil {
		t.Error("expected error for unknown os")
	}
}
