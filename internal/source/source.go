// Package source downloads, verifies and unpacks source archives.
package source

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/goplus/llar-pango/pkgs/mod/versions"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

var (
	// ErrChecksum is returned when a download does not match its sha256.
	ErrChecksum = errors.New("checksum mismatch")

	// ErrFormat is returned for archives of an unknown format.
	ErrFormat = errors.New("unsupported archive format")

	// ErrUnsafeEntry is returned for archive entries that would write or
	// point outside the destination directory.
	ErrUnsafeEntry = errors.New("unsafe archive entry")
)

// Fetcher downloads source archives.
type Fetcher struct {
	client *http.Client
	logger *log.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the HTTP client used for downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(f *Fetcher) {
		f.logger = l
	}
}

// NewFetcher creates a new Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{client: http.DefaultClient, logger: log.Default()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Get downloads src and unpacks it into destDir. Mirrors are tried in
// order; the error of the last one is returned when all fail. A checksum
// mismatch is fatal and stops at the mirror that produced it.
func (f *Fetcher) Get(ctx context.Context, src versions.Source, destDir string, stripRoot bool) error {
	if len(src.URL) == 0 {
		return fmt.Errorf("source has no url")
	}
	tmp, err := os.MkdirTemp("", "llar-pango-src-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	var lastErr error
	for _, url := range src.URL {
		name := archiveName(url)
		archive := filepath.Join(tmp, name)
		f.logger.Info("downloading", "url", url)
		lastErr = f.download(ctx, url, archive, src.SHA256)
		if errors.Is(lastErr, ErrChecksum) {
			return lastErr
		}
		if lastErr != nil {
			f.logger.Warn("download failed", "url", url, "err", lastErr)
			continue
		}
		f.logger.Debug("unpacking", "archive", name, "dest", destDir)
		return UnpackFile(archive, destDir, stripRoot)
	}
	return lastErr
}

func (f *Fetcher) download(ctx context.Context, url, dest, sum string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: %s", url, resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(out, h), resp.Body); err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	if sum == "" {
		f.logger.Warn("no sha256 recorded, skipping verification", "url", url)
		return nil
	}
	if got := hex.EncodeToString(h.Sum(nil)); !strings.EqualFold(got, sum) {
		return fmt.Errorf("%w: %s: got %s, want %s", ErrChecksum, url, got, sum)
	}
	return nil
}

func archiveName(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	return path.Base(url)
}

// UnpackFile extracts the archive at file into destDir, choosing the
// format from the file name. With stripRoot, the single top-level
// directory of the archive is removed from every entry.
func UnpackFile(file, destDir string, stripRoot bool) error {
	name := strings.ToLower(filepath.Base(file))
	if strings.HasSuffix(name, ".zip") {
		return unzip(file, destDir, stripRoot)
	}

	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader
	switch {
	case strings.HasSuffix(name, ".tar.xz"), strings.HasSuffix(name, ".txz"):
		xzReader, err := xz.NewReader(f)
		if err != nil {
			return fmt.Errorf("creating xz reader: %w", err)
		}
		r = xzReader
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		gzReader, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("creating gzip reader: %w", err)
		}
		defer gzReader.Close()
		r = gzReader
	case strings.HasSuffix(name, ".tar.zst"), strings.HasSuffix(name, ".tzst"):
		zstdReader, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("creating zstd reader: %w", err)
		}
		defer zstdReader.Close()
		r = zstdReader
	case strings.HasSuffix(name, ".tar"):
		r = f
	default:
		return fmt.Errorf("%w: %s", ErrFormat, name)
	}
	return untar(r, destDir, stripRoot)
}

// stripper removes the common root directory from entry names.
type stripper struct {
	enabled bool
	root    string
}

// target returns the destination of entry name, or "" for the root
// itself.
func (s *stripper) target(destDir, name string) (string, error) {
	name = strings.TrimPrefix(path.Clean(strings.ReplaceAll(name, `\`, "/")), "./")
	if name == "." || name == "" {
		return "", nil
	}
	if s.enabled {
		root, rest, _ := strings.Cut(name, "/")
		if s.root == "" {
			s.root = root
		} else if root != s.root {
			return "", fmt.Errorf("cannot strip root: archive has entries in %q and %q", s.root, root)
		}
		if rest == "" {
			return "", nil
		}
		name = rest
	}
	if !filepath.IsLocal(filepath.FromSlash(name)) {
		return "", fmt.Errorf("%w: %s escapes destination", ErrUnsafeEntry, name)
	}
	return filepath.Join(destDir, filepath.FromSlash(name)), nil
}

func untar(r io.Reader, destDir string, stripRoot bool) error {
	strip := &stripper{enabled: stripRoot}
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tar entry: %w", err)
		}
		if header.Typeflag == tar.TypeXGlobalHeader {
			continue
		}

		target, err := strip.target(destDir, header.Name)
		if err != nil {
			return err
		}
		if target == "" {
			continue
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := mkdir(destDir, target); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := symlink(destDir, target, header.Linkname); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(destDir, target, tr, os.FileMode(header.Mode).Perm()); err != nil {
				return err
			}
		}
	}
}

func unzip(file, destDir string, stripRoot bool) error {
	zr, err := zip.OpenReader(file)
	if err != nil {
		return err
	}
	defer zr.Close()

	strip := &stripper{enabled: stripRoot}
	for _, zf := range zr.File {
		target, err := strip.target(destDir, zf.Name)
		if err != nil {
			return err
		}
		if target == "" {
			continue
		}
		if zf.FileInfo().IsDir() {
			if err := mkdir(destDir, target); err != nil {
				return err
			}
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return err
		}
		err = writeFile(destDir, target, rc, zf.Mode().Perm())
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// checkLinks fails if target, or any directory between destDir and
// target, is a symlink. Entries must never be written through a link
// unpacked earlier from the same archive.
func checkLinks(destDir, target string) error {
	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == "." {
		return err
	}
	p := destDir
	for _, elem := range strings.Split(rel, string(filepath.Separator)) {
		p = filepath.Join(p, elem)
		fi, err := os.Lstat(p)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if fi.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("%w: %s goes through symlink %s", ErrUnsafeEntry, target, p)
		}
	}
	return nil
}

func mkdir(destDir, dir string) error {
	if err := checkLinks(destDir, dir); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return nil
}

// symlink creates target pointing at linkname, which must be relative
// and resolve inside destDir.
func symlink(destDir, target, linkname string) error {
	if path.IsAbs(linkname) || filepath.IsAbs(linkname) {
		return fmt.Errorf("%w: %s links to absolute path %s", ErrUnsafeEntry, target, linkname)
	}
	resolved := filepath.Join(filepath.Dir(target), filepath.FromSlash(linkname))
	if rel, err := filepath.Rel(destDir, resolved); err != nil || !filepath.IsLocal(rel) {
		return fmt.Errorf("%w: %s links outside destination: %s", ErrUnsafeEntry, target, linkname)
	}
	if err := mkdir(destDir, filepath.Dir(target)); err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Symlink(linkname, target); err != nil {
		return fmt.Errorf("creating symlink %s -> %s: %w", target, linkname, err)
	}
	return nil
}

func writeFile(destDir, target string, r io.Reader, perm os.FileMode) error {
	if err := mkdir(destDir, filepath.Dir(target)); err != nil {
		return err
	}
	if err := checkLinks(destDir, target); err != nil {
		return err
	}
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", target, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("writing file %s: %w", target, err)
	}
	return out.Close()
}
