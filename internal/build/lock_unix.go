//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd

package build

import (
	"os"

	"golang.org/x/sys/unix"
)

func lockFD(f *os.File) error {
	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX)
		if err != unix.EINTR {
			return err
		}
	}
}

func unlockFD(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
