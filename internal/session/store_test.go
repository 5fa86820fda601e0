package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dotcommander/hookstate/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), fmt.Sprintf("session-%d.json", os.Getpid()))
	s, err := New(os.Getpid(), WithPath(path))
	require.NoError(t, err)
	return s
}

func TestInit_CreatesSessionDocument(t *testing.T) {
	s := newTestStore(t)

	path, err := s.Init("lint")
	require.NoError(t, err)
	require.Equal(t, s.Path(), path)

	doc, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, doc)
	require.Equal(t, os.Getpid(), doc.PID)
	require.Equal(t, fmt.Sprintf("%d-", os.Getpid()), doc.SessionID[:len(fmt.Sprintf("%d-", os.Getpid()))])
	require.Contains(t, doc.Plugins, "lint")
	require.Equal(t, "lint", doc.Plugins["lint"].Plugin)
	require.NotEmpty(t, doc.Metadata.LogFile)
	require.NotEmpty(t, doc.Metadata.ErrorJournal)
	require.NotEmpty(t, doc.Metadata.Platform)
}

func TestInit_Idempotent(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		_, err := s.Init("lint")
		require.NoError(t, err)
	}

	doc, err := s.Load()
	require.NoError(t, err)
	require.Len(t, doc.Plugins, 1)
}

func TestInit_ConcurrentSinglePluginState(t *testing.T) {
	s := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Init("lint")
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	doc, err := s.Load()
	require.NoError(t, err)
	require.Len(t, doc.Plugins, 1)
	require.Contains(t, doc.Plugins, "lint")
}

func TestLoad_AbsentReturnsNil(t *testing.T) {
	s := newTestStore(t)

	doc, err := s.Load()
	require.NoError(t, err)
	require.Nil(t, doc)
}

func TestLoad_MalformedReturnsTypedError(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o600))

	_, err := s.Load()
	require.Error(t, err)
	require.ErrorIs(t, err, models.ErrMalformedSession)
}

func TestUpdate_ReconstructsMalformedDocument(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o600))

	// Malformed is treated as absent, never merged with partial data.
	_, err := s.Init("lint")
	require.NoError(t, err)

	doc, err := s.Load()
	require.NoError(t, err)
	require.Len(t, doc.Plugins, 1)
}

func TestUpdate_LockTimeoutSurfacesStructuredError(t *testing.T) {
	s := newTestStore(t)

	lock, err := Acquire(s.Path(), time.Second)
	require.NoError(t, err)
	defer lock.Release()

	fast, err := New(os.Getpid(), WithPath(s.Path()), WithLockTimeout(300*time.Millisecond))
	require.NoError(t, err)

	err = fast.SetCustomData("lint", "k", "v")
	require.Error(t, err)
	require.ErrorIs(t, err, models.ErrLockTimeout)
}

func TestCustomData_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	value := map[string]any{
		"mode":    "strict",
		"retries": float64(3),
		"nested":  map[string]any{"enabled": true},
		"list":    []any{"a", "b"},
	}
	require.NoError(t, s.SetCustomData("lint", "settings", value))

	got, ok := s.GetCustomData("lint", "settings")
	require.True(t, ok)
	require.Equal(t, value, got)

	_, ok = s.GetCustomData("lint", "missing")
	require.False(t, ok)
	_, ok = s.GetCustomData("other-plugin", "settings")
	require.False(t, ok)
}

func TestRecommendationFlags_Monotonic(t *testing.T) {
	s := newTestStore(t)

	require.False(t, s.HasShownRecommendation("lint", "use-cache"))
	require.NoError(t, s.MarkRecommendationShown("lint", "use-cache"))

	for i := 0; i < 3; i++ {
		require.True(t, s.HasShownRecommendation("lint", "use-cache"))
		// Unrelated writes never revert the flag.
		require.NoError(t, s.SetCustomData("lint", fmt.Sprintf("k%d", i), i))
	}
	require.True(t, s.HasShownRecommendation("lint", "use-cache"))
	require.False(t, s.HasShownRecommendation("lint", "other-key"))
}

func TestValidationFlags(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.MarkValidationPassed("lint", "typecheck", "src/a.ts"))

	require.True(t, s.HasPassedValidation("lint", "typecheck", "src/a.ts"))
	require.False(t, s.HasPassedValidation("lint", "typecheck", "src/b.ts"))
	require.False(t, s.HasPassedValidation("lint", "eslint", "src/a.ts"))
}

func TestGetValueSetValue_DottedPaths(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Init("lint")
	require.NoError(t, err)

	require.NoError(t, s.SetValue("plugins.lint.custom_data.mode", "fast"))

	v, ok := s.GetValue("plugins.lint.custom_data.mode")
	require.True(t, ok)
	require.Equal(t, "fast", v)

	pid, ok := s.GetValue("pid")
	require.True(t, ok)
	require.Equal(t, float64(os.Getpid()), pid)

	_, ok = s.GetValue("plugins.lint.custom_data.absent")
	require.False(t, ok)
	_, ok = s.GetValue("no.such.path")
	require.False(t, ok)
}

func TestConcurrentWriters_NoTornDocument(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Init("lint")
	require.NoError(t, err)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// A lock-free reader hammering Load while writers race: every observed
	// document must parse.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			data, err := os.ReadFile(s.Path())
			if err != nil {
				continue
			}
			require.True(t, json.Valid(data), "reader observed a torn document")
		}
	}()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				require.NoError(t, s.SetCustomData("lint", "counter", n))
			}
		}(i)
	}

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = s.SetCustomData("lint", "counter", n+100)
		}(i)
	}

	// Writers first, then release the reader.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	<-time.After(50 * time.Millisecond)
	close(stop)
	<-done

	// Last-committer-wins: the counter holds one of the written values.
	v, ok := s.GetCustomData("lint", "counter")
	require.True(t, ok)
	f, isNum := v.(float64)
	require.True(t, isNum)
	require.True(t, (f >= 0 && f < 4) || (f >= 100 && f < 104))
}

func TestDelete_RemovesDocumentAndLockArtifacts(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Init("lint")
	require.NoError(t, err)

	require.NoError(t, s.Delete())
	require.NoFileExists(t, s.Path())
	require.NoFileExists(t, s.Path()+lockSuffix)

	// Deleting an absent session is not an error.
	require.NoError(t, s.Delete())
}

func TestNew_EnvOverridesPath(t *testing.T) {
	override := filepath.Join(t.TempDir(), "custom.json")
	t.Setenv("HOOKSTATE_SESSION_FILE", override)

	s, err := New(12345)
	require.NoError(t, err)
	require.Equal(t, override, s.Path())
}

func TestDerivedPaths(t *testing.T) {
	s := newTestStore(t)
	base := s.Path()[:len(s.Path())-len(".json")]

	require.Equal(t, base+".log", s.LogPath())
	require.Equal(t, base+"-errors.jsonl", s.JournalPath())

	t.Setenv("HOOKSTATE_LOG_FILE", "/tmp/alt.log")
	t.Setenv("HOOKSTATE_ERROR_JOURNAL", "/tmp/alt.jsonl")
	require.Equal(t, "/tmp/alt.log", s.LogPath())
	require.Equal(t, "/tmp/alt.jsonl", s.JournalPath())
}
