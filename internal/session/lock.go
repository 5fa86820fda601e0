// Package session implements the global session-state store shared by all
// hook processes of one host session: a lock-protected JSON document in
// the temp-file namespace, plus the cross-process advisory lock and the
// stale-session sweep.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dotcommander/hookstate/internal/models"
)

const (
	// lockPollInterval is the constant retry interval while contending for
	// a lock. Critical sections are sub-millisecond, so 100ms polling keeps
	// the worst-case wait well under the timeout without busy-spinning.
	lockPollInterval = 100 * time.Millisecond

	// staleSentinelAge is how old an unreadable fallback sentinel must be
	// before it is reclaimed without a liveness check. Sentinels with a
	// readable owner pid are reclaimed as soon as the owner is dead.
	staleSentinelAge = 5 * time.Minute

	lockSuffix     = ".lock"
	sentinelSuffix = ".lock.d"
)

// errLockContended signals a retryable contention inside the polling loop.
var errLockContended = errors.New("lock contended")

// Lock is an ephemeral, advisory claim on a target file. It is either a
// held flock descriptor or a sentinel directory, never both. Release is
// nil-safe and idempotent so it can be deferred on every path.
type Lock struct {
	target   string
	file     *os.File
	sentinel string
}

// Acquire obtains an exclusive advisory lock protecting target, polling at
// a constant interval until timeout. The flock path is primary; the
// mkdir-sentinel path is used when the filesystem rejects flock.
func Acquire(target string, timeout time.Duration) (*Lock, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var lock *Lock
	policy := backoff.WithContext(backoff.NewConstantBackOff(lockPollInterval), ctx)
	err := backoff.Retry(func() error {
		l, err := tryAcquire(target)
		if err != nil {
			return err
		}
		lock = l
		return nil
	}, policy)
	if err != nil {
		return nil, &models.LockTimeoutError{Target: target, Timeout: timeout}
	}
	return lock, nil
}

// tryAcquire makes a single non-blocking attempt at both strategies.
func tryAcquire(target string) (*Lock, error) {
	f, err := os.OpenFile(target+lockSuffix, os.O_CREATE|os.O_RDWR, 0o600) //nolint:gosec // G304: path derived from the session namespace
	if err == nil {
		lockErr := flockTry(f)
		if lockErr == nil {
			return &Lock{target: target, file: f}, nil
		}
		_ = f.Close()
		if flockContended(lockErr) {
			return nil, errLockContended
		}
		// Filesystem without flock support: fall through to the sentinel.
	}

	return trySentinel(target)
}

// trySentinel is the atomic directory-creation test-and-set. Exactly one
// racer's Mkdir succeeds; the winner records its pid inside the sentinel
// so crashed owners can be detected and reclaimed.
func trySentinel(target string) (*Lock, error) {
	dir := target + sentinelSuffix
	if err := os.Mkdir(dir, 0o700); err != nil {
		if !os.IsExist(err) {
			return nil, errLockContended
		}
		if reclaimOrphanedSentinel(dir) {
			return nil, errLockContended // reclaimed; win it on the next poll
		}
		return nil, errLockContended
	}

	pidFile := fmt.Sprintf("%s%cpid", dir, os.PathSeparator)
	_ = os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0o600)
	return &Lock{target: target, sentinel: dir}, nil
}

// reclaimOrphanedSentinel removes a sentinel left behind by a crashed
// process. A sentinel is orphaned when its recorded owner pid is no longer
// alive, or when it has no readable pid and is older than staleSentinelAge.
func reclaimOrphanedSentinel(dir string) bool {
	data, err := os.ReadFile(fmt.Sprintf("%s%cpid", dir, os.PathSeparator)) //nolint:gosec // G304: path within the session namespace
	if err == nil {
		pid, convErr := strconv.Atoi(strings.TrimSpace(string(data)))
		if convErr != nil || PIDAlive(pid) {
			return false
		}
		return os.RemoveAll(dir) == nil
	}

	info, err := os.Stat(dir)
	if err != nil || time.Since(info.ModTime()) < staleSentinelAge {
		return false
	}
	return os.RemoveAll(dir) == nil
}

// Release drops the lock. Nil-safe; safe to call more than once.
func (l *Lock) Release() {
	if l == nil {
		return
	}
	if l.file != nil {
		flockRelease(l.file)
		_ = l.file.Close()
		l.file = nil
	}
	if l.sentinel != "" {
		_ = os.RemoveAll(l.sentinel)
		l.sentinel = ""
	}
}

// Target returns the file the lock protects.
func (l *Lock) Target() string { return l.target }

// removeLockArtifacts deletes the lock file and any sentinel directory for
// target. Used by the stale-session sweep; never called while a live
// process could hold the lock.
func removeLockArtifacts(target string) {
	_ = os.Remove(target + lockSuffix)
	_ = os.RemoveAll(target + sentinelSuffix)
}
