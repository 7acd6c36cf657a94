package source

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/goplus/llar-pango/pkgs/mod/versions"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

type entry struct {
	name string
	body string
	dir  bool
	link string
}

var pangoTree = []entry{
	{name: "pango-1.50.10/", dir: true},
	{name: "pango-1.50.10/COPYING", body: "LGPL"},
	{name: "pango-1.50.10/meson.build", body: "project('pango', 'c')"},
	{name: "pango-1.50.10/pango/pango.h", body: "#pragma once"},
}

func tarBytes(t *testing.T, entries []entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0o644, Size: int64(len(e.body)), Typeflag: tar.TypeReg}
		switch {
		case e.dir:
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = 0o755
			hdr.Size = 0
		case e.link != "":
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = e.link
			hdr.Mode = 0o777
			hdr.Size = 0
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if !e.dir && e.link == "" {
			if _, err := io.WriteString(tw, e.body); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func tarXz(t *testing.T, entries []entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(tarBytes(t, entries)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func tarGz(t *testing.T, entries []entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(tarBytes(t, entries)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func tarZst(t *testing.T, entries []entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(tarBytes(t, entries)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func zipBytes(t *testing.T, entries []entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		if err != nil {
			t.Fatal(err)
		}
		if !e.dir {
			if _, err := io.WriteString(w, e.body); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func checkTree(t *testing.T, dir string) {
	t.Helper()
	for _, want := range []struct{ path, body string }{
		{"COPYING", "LGPL"},
		{filepath.Join("pango", "pango.h"), "#pragma once"},
	} {
		data, err := os.ReadFile(filepath.Join(dir, want.path))
		if err != nil {
			t.Fatalf("read %s: %v", want.path, err)
		}
		if string(data) != want.body {
			t.Errorf("%s = %q, want %q", want.path, data, want.body)
		}
	}
}

func TestUnpackFile(t *testing.T) {
	tests := []struct {
		name string
		data func(*testing.T, []entry) []byte
	}{
		{"pango-1.50.10.tar.xz", tarXz},
		{"pango-1.50.10.tar.gz", tarGz},
		{"pango-1.50.10.tar.zst", tarZst},
		{"pango-1.50.10.tar", tarBytes},
		{"pango-1.50.10.zip", zipBytes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			archive := filepath.Join(t.TempDir(), tt.name)
			if err := os.WriteFile(archive, tt.data(t, pangoTree), 0o644); err != nil {
				t.Fatal(err)
			}
			dest := t.TempDir()
			if err := UnpackFile(archive, dest, true); err != nil {
				t.Fatalf("UnpackFile() error = %v", err)
			}
			checkTree(t, dest)
		})
	}
}

func TestUnpackFile_NoStrip(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "p.tar.gz")
	if err := os.WriteFile(archive, tarGz(t, pangoTree), 0o644); err != nil {
		t.Fatal(err)
	}
	dest := t.TempDir()
	if err := UnpackFile(archive, dest, false); err != nil {
		t.Fatal(err)
	}
	checkTree(t, filepath.Join(dest, "pango-1.50.10"))
}

func TestUnpackFile_Errors(t *testing.T) {
	dir := t.TempDir()

	twoRoots := filepath.Join(dir, "two.tar")
	if err := os.WriteFile(twoRoots, tarBytes(t, []entry{
		{name: "a/x", body: "1"},
		{name: "b/y", body: "2"},
	}), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := UnpackFile(twoRoots, t.TempDir(), true); err == nil || !strings.Contains(err.Error(), "strip root") {
		t.Errorf("two roots: error = %v", err)
	}

	escape := filepath.Join(dir, "escape.tar")
	if err := os.WriteFile(escape, tarBytes(t, []entry{{name: "../evil", body: "x"}}), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := UnpackFile(escape, t.TempDir(), false); !errors.Is(err, ErrUnsafeEntry) {
		t.Errorf("escaping entry: error = %v, want ErrUnsafeEntry", err)
	}

	unknown := filepath.Join(dir, "src.rar")
	if err := os.WriteFile(unknown, []byte("rar"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := UnpackFile(unknown, t.TempDir(), false); !errors.Is(err, ErrFormat) {
		t.Errorf("unknown format: error = %v, want ErrFormat", err)
	}
}

func TestUnpackFile_Symlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need extra privileges on windows")
	}
	outside := t.TempDir()
	tests := []struct {
		name    string
		entries []entry
		wantErr bool
	}{
		{"absolute link", []entry{
			{name: "pango/out", link: outside},
			{name: "pango/out/evil", body: "x"},
		}, true},
		{"relative escape", []entry{
			{name: "pango/up", link: "../.."},
			{name: "pango/up/evil", body: "x"},
		}, true},
		{"write through link", []entry{
			{name: "pango/sub/", dir: true},
			{name: "pango/alias", link: "sub"},
			{name: "pango/alias/evil", body: "x"},
		}, true},
		{"replace link with file", []entry{
			{name: "pango/COPYING", body: "LGPL"},
			{name: "pango/evil", link: "COPYING"},
			{name: "pango/evil", body: "x"},
		}, true},
		{"library link", []entry{
			{name: "pango/lib/libpango-1.0.so.0", body: "elf"},
			{name: "pango/lib/libpango-1.0.so", link: "libpango-1.0.so.0"},
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			archive := filepath.Join(t.TempDir(), "links.tar")
			if err := os.WriteFile(archive, tarBytes(t, tt.entries), 0o644); err != nil {
				t.Fatal(err)
			}
			base := t.TempDir()
			dest := filepath.Join(base, "a", "b")
			err := UnpackFile(archive, dest, true)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("UnpackFile() error = %v", err)
				}
				data, err := os.ReadFile(filepath.Join(dest, "lib", "libpango-1.0.so"))
				if err != nil || string(data) != "elf" {
					t.Errorf("read through link = %q, %v", data, err)
				}
				return
			}
			if !errors.Is(err, ErrUnsafeEntry) {
				t.Fatalf("UnpackFile() error = %v, want ErrUnsafeEntry", err)
			}
			for _, p := range []string{filepath.Join(outside, "evil"), filepath.Join(base, "evil")} {
				if _, err := os.Stat(p); err == nil {
					t.Errorf("%s written outside destination", p)
				}
			}
			if data, err := os.ReadFile(filepath.Join(dest, "COPYING")); err == nil && string(data) != "LGPL" {
				t.Errorf("COPYING overwritten through link: %q", data)
			}
		})
	}
}

func sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func quietFetcher(c *http.Client) *Fetcher {
	return NewFetcher(WithHTTPClient(c), WithLogger(log.New(io.Discard)))
}

func TestFetcherGet(t *testing.T) {
	archive := tarXz(t, pangoTree)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing/pango-1.50.10.tar.xz" {
			http.NotFound(w, r)
			return
		}
		w.Write(archive)
	}))
	defer srv.Close()

	f := quietFetcher(srv.Client())
	ctx := context.Background()

	t.Run("mirror fallback", func(t *testing.T) {
		dest := t.TempDir()
		src := versions.Source{
			URL:    versions.URLs{srv.URL + "/missing/pango-1.50.10.tar.xz", srv.URL + "/ok/pango-1.50.10.tar.xz"},
			SHA256: sum(archive),
		}
		if err := f.Get(ctx, src, dest, true); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		checkTree(t, dest)
	})

	t.Run("checksum mismatch", func(t *testing.T) {
		src := versions.Source{
			URL:    versions.URLs{srv.URL + "/ok/pango-1.50.10.tar.xz"},
			SHA256: strings.Repeat("0", 64),
		}
		if err := f.Get(ctx, src, t.TempDir(), true); !errors.Is(err, ErrChecksum) {
			t.Errorf("Get() error = %v, want ErrChecksum", err)
		}
	})

	t.Run("all mirrors fail", func(t *testing.T) {
		src := versions.Source{URL: versions.URLs{srv.URL + "/missing/pango-1.50.10.tar.xz"}}
		if err := f.Get(ctx, src, t.TempDir(), true); err == nil || !strings.Contains(err.Error(), "404") {
			t.Errorf("Get() error = %v, want 404", err)
		}
	})

	t.Run("no url", func(t *testing.T) {
		if err := f.Get(ctx, versions.Source{}, t.TempDir(), true); err == nil {
			t.Error("Get() expected error")
		}
	})
}

func TestArchiveName(t *testing.T) {
	got := archiveName("https://download.gnome.org/sources/pango/1.50/pango-1.50.10.tar.xz?x=1")
	if got != "pango-1.50.10.tar.xz" {
		t.Errorf("archiveName() = %q", got)
	}
}
