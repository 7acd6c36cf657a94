package build

import (
	"os"
	"path/filepath"
)

// lockFile takes an exclusive lock on the file at path, creating it if
// needed, and blocks until the lock is held.
func lockFile(path string) (unlock func(), err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, err
	}
	if err := lockFD(f); err != nil {
		f.Close()
		return nil, err
	}
	return func() {
		unlockFD(f)
		f.Close()
	}, nil
}
