//go:build windows

package build

import (
	"os"

	"golang.org/x/sys/windows"
)

// lock the first byte, as cmd/go's lockedfile does
const lockedBytes = 1

func lockFD(f *os.File) error {
	ol := new(windows.Overlapped)
	return windows.LockFileEx(windows.Handle(f.Fd()), windows.LOCKFILE_EXCLUSIVE_LOCK, 0, lockedBytes, 0, ol)
}

func unlockFD(f *os.File) error {
	ol := new(windows.Overlapped)
	return windows.UnlockFileEx(windows.Handle(f.Fd()), 0, lockedBytes, 0, ol)
}
