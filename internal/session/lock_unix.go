//go:build unix

package session

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// flockTry attempts a non-blocking exclusive flock on f.
func flockTry(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
}

// flockRelease drops the flock held on f.
func flockRelease(f *os.File) {
	_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
}

// flockContended reports whether err means another process holds the lock,
// as opposed to flock being unsupported on this filesystem.
func flockContended(err error) bool {
	return errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR)
}

// PIDAlive reports whether a process with the given pid exists. Signal 0
// performs the existence check without delivering anything; EPERM still
// means the process exists.
func PIDAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	if err == nil {
		return true
	}
	return errors.Is(err, unix.EPERM)
}
