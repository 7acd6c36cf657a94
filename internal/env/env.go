package env

import (
	"os"
	"path/filepath"
)

// WorkDirEnv overrides the workspace location.
const WorkDirEnv = "LLAR_PANGO_WORKDIR"

// WorkDir returns the workspace directory, creating it with 0700
// permissions if needed. It defaults to <UserCacheDir>/.llar-pango.
func WorkDir() (string, error) {
	dir := os.Getenv(WorkDirEnv)
	if dir == "" {
		userCacheDir, err := os.UserCacheDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(userCacheDir, ".llar-pango")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}
