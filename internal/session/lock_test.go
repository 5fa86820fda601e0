package session

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dotcommander/hookstate/internal/models"
)

func TestAcquire_RoundTrip(t *testing.T) {
	target := filepath.Join(t.TempDir(), "doc.json")

	lock, err := Acquire(target, time.Second)
	require.NoError(t, err)
	require.Equal(t, target, lock.Target())

	lock.Release()
	// Release is idempotent and nil-safe.
	lock.Release()
	var nilLock *Lock
	nilLock.Release()
}

func TestAcquire_MutualExclusion(t *testing.T) {
	target := filepath.Join(t.TempDir(), "doc.json")

	first, err := Acquire(target, time.Second)
	require.NoError(t, err)
	defer first.Release()

	// flock conflicts across file descriptors even within one process, so
	// a second claim on the same target must time out while the first is
	// held.
	start := time.Now()
	_, err = Acquire(target, 400*time.Millisecond)
	require.Error(t, err)
	require.ErrorIs(t, err, models.ErrLockTimeout)
	require.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)

	var typed *models.LockTimeoutError
	require.ErrorAs(t, err, &typed)
	require.Equal(t, "LOCK_TIMEOUT", typed.ErrorCode())
	require.Equal(t, target, typed.Target)
}

func TestAcquire_AvailableAfterRelease(t *testing.T) {
	target := filepath.Join(t.TempDir(), "doc.json")

	first, err := Acquire(target, time.Second)
	require.NoError(t, err)
	first.Release()

	second, err := Acquire(target, time.Second)
	require.NoError(t, err)
	second.Release()
}

func TestSentinel_TestAndSet(t *testing.T) {
	target := filepath.Join(t.TempDir(), "doc.json")

	lock, err := trySentinel(target)
	require.NoError(t, err)
	require.DirExists(t, target+sentinelSuffix)

	// The sentinel records its owner pid.
	data, err := os.ReadFile(filepath.Join(target+sentinelSuffix, "pid"))
	require.NoError(t, err)
	require.Equal(t, strconv.Itoa(os.Getpid()), string(data))

	// A second racer loses while the sentinel stands.
	_, err = trySentinel(target)
	require.ErrorIs(t, err, errLockContended)

	lock.Release()
	require.NoDirExists(t, target+sentinelSuffix)
}

func TestSentinel_OrphanWithDeadOwnerIsReclaimed(t *testing.T) {
	target := filepath.Join(t.TempDir(), "doc.json")
	dir := target + sentinelSuffix

	require.NoError(t, os.Mkdir(dir, 0o700))
	// A pid far beyond any live process.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pid"), []byte("1073741823"), 0o600))

	require.True(t, reclaimOrphanedSentinel(dir))
	require.NoDirExists(t, dir)
}

func TestSentinel_LiveOwnerIsNotReclaimed(t *testing.T) {
	target := filepath.Join(t.TempDir(), "doc.json")
	dir := target + sentinelSuffix

	require.NoError(t, os.Mkdir(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pid"), []byte(strconv.Itoa(os.Getpid())), 0o600))

	require.False(t, reclaimOrphanedSentinel(dir))
	require.DirExists(t, dir)
}

func TestSentinel_FreshUnreadableSentinelIsKept(t *testing.T) {
	target := filepath.Join(t.TempDir(), "doc.json")
	dir := target + sentinelSuffix

	// No pid file and too young for the age-based fallback.
	require.NoError(t, os.Mkdir(dir, 0o700))
	require.False(t, reclaimOrphanedSentinel(dir))
	require.DirExists(t, dir)
}

func TestPIDAlive(t *testing.T) {
	require.True(t, PIDAlive(os.Getpid()))
	require.False(t, PIDAlive(0))
	require.False(t, PIDAlive(-1))
	require.False(t, PIDAlive(1073741823))
}
