package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dotcommander/hookstate/internal/app"
	"github.com/dotcommander/hookstate/internal/models"
	"github.com/dotcommander/hookstate/internal/platform"
)

// Store is an explicit handle on one session document. Construct it once
// per process and thread it through all calls; nothing in this package
// reads ambient globals besides the documented env overrides.
type Store struct {
	path        string
	pid         int
	lockTimeout time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithLockTimeout overrides the default lock-acquisition timeout.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// WithPath pins the store to an explicit session file, bypassing the
// pid-derived default. Used by tests and the HOOKSTATE_SESSION_FILE
// override.
func WithPath(path string) Option {
	return func(s *Store) { s.path = path }
}

// HostPID returns the process id identifying the current session. Hooks
// are spawned as direct children of the host, so the parent pid is the
// session key.
func HostPID() int {
	return os.Getppid()
}

// New returns a Store for the session owned by pid. The session file path
// resolves as: HOOKSTATE_SESSION_FILE env, then WithPath, then
// <session root>/session-<pid>.json.
func New(pid int, opts ...Option) (*Store, error) {
	s := &Store{
		pid:         pid,
		lockTimeout: app.EffectiveLockTimeout(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if env := os.Getenv(app.EnvSessionFile); env != "" {
		s.path = env
	}
	if s.path == "" {
		root, err := sessionRoot()
		if err != nil {
			return nil, fmt.Errorf("resolve session root: %w", err)
		}
		s.path = filepath.Join(root, fmt.Sprintf("session-%d.json", pid))
	}
	return s, nil
}

// sessionRoot resolves the namespace directory, honoring the config/flag
// override, and ensures it exists.
func sessionRoot() (string, error) {
	if override := app.SessionRootOverride(); override != "" {
		if err := os.MkdirAll(override, 0o700); err != nil {
			return "", err
		}
		return override, nil
	}
	return platform.SessionRoot()
}

// Path returns the session document path.
func (s *Store) Path() string { return s.path }

// PID returns the owning host process id.
func (s *Store) PID() int { return s.pid }

// LogPath returns the session log path, honoring HOOKSTATE_LOG_FILE.
func (s *Store) LogPath() string {
	if env := os.Getenv(app.EnvLogFile); env != "" {
		return env
	}
	return strings.TrimSuffix(s.path, ".json") + ".log"
}

// JournalPath returns the error journal path, honoring HOOKSTATE_ERROR_JOURNAL.
func (s *Store) JournalPath() string {
	if env := os.Getenv(app.EnvErrorJournal); env != "" {
		return env
	}
	return strings.TrimSuffix(s.path, ".json") + "-errors.jsonl"
}

// Init idempotently creates the session document and the named plugin's
// state under an exclusive lock. Returns the session file path. Calling
// it N times for the same pid and plugin leaves exactly one PluginState.
func (s *Store) Init(plugin string) (string, error) {
	err := s.Update(func(doc *models.Session) error {
		if _, ok := doc.Plugins[plugin]; !ok {
			doc.Plugins[plugin] = models.NewPluginState(plugin, nowISO())
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return s.path, nil
}

// Load reads the session document without taking the lock. A reader that
// races a writer observes either the old or the new document, never a torn
// one, because writers commit via atomic rename. Returns (nil, nil) when
// no document exists; a malformed document yields a typed error and is
// otherwise treated as absent.
func (s *Store) Load() (*models.Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var doc models.Session
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &models.MalformedSessionError{Path: s.path, Cause: err}
	}
	if doc.Plugins == nil {
		doc.Plugins = map[string]*models.PluginState{}
	}
	return &doc, nil
}

// Update runs fn against the current document under the exclusive lock and
// commits the result by write-to-temp-then-rename. A missing or malformed
// document is reconstructed fresh, never merged with partial data. The
// read-modify-write happens entirely after the lock is held, so a lock
// timeout leaves no partial state behind.
func (s *Store) Update(fn func(*models.Session) error) error {
	lock, err := Acquire(s.path, s.lockTimeout)
	if err != nil {
		return err
	}
	defer lock.Release()

	doc, err := s.Load()
	if err != nil && !errors.Is(err, models.ErrMalformedSession) {
		return err
	}
	if doc == nil {
		doc = s.newDocument()
	}

	if err := fn(doc); err != nil {
		return err
	}
	return s.writeAtomic(doc)
}

func (s *Store) newDocument() *models.Session {
	now := platform.NowEpoch()
	return &models.Session{
		SessionID: fmt.Sprintf("%d-%d", s.pid, now),
		PID:       s.pid,
		StartedAt: nowISO(),
		Plugins:   map[string]*models.PluginState{},
		Metadata: models.SessionMetadata{
			LogFile:      s.LogPath(),
			ErrorJournal: s.JournalPath(),
			Platform:     string(platform.Detect()),
		},
	}
}

// writeAtomic serializes doc to a temp file in the same directory and
// renames it over the session file. Rename within one directory is atomic
// on the target filesystems, so unlocked readers never see a partial doc.
func (s *Store) writeAtomic(doc *models.Session) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp session file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("commit session file: %w", err)
	}
	return nil
}

// GetValue resolves a dotted path (e.g. "plugins.lint.custom_data.mode")
// against the document. Absent is not an error: the second return is false
// when any segment is missing or the document does not exist.
func (s *Store) GetValue(path string) (any, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, false
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false
	}
	return lookupPath(doc, path)
}

// SetValue sets a dotted path in the document under the lock, creating
// intermediate objects as needed.
func (s *Store) SetValue(path string, value any) error {
	if path == "" {
		return errors.New("empty value path")
	}
	return s.Update(func(doc *models.Session) error {
		raw, err := toRawMap(doc)
		if err != nil {
			return err
		}
		setPath(raw, path, value)
		return fromRawMap(raw, doc)
	})
}

// HasShownRecommendation reports whether the recommendation key was
// already surfaced for the plugin. Once observed true it never reverts;
// the flag map is write-once-true.
func (s *Store) HasShownRecommendation(plugin, key string) bool {
	doc, err := s.Load()
	if err != nil || doc == nil {
		return false
	}
	ps, ok := doc.Plugins[plugin]
	if !ok {
		return false
	}
	return ps.RecommendationsShown[key]
}

// MarkRecommendationShown records that the recommendation was surfaced.
func (s *Store) MarkRecommendationShown(plugin, key string) error {
	return s.Update(func(doc *models.Session) error {
		ps := ensurePlugin(doc, plugin)
		ps.RecommendationsShown[key] = true
		return nil
	})
}

// HasPassedValidation reports whether the named validation already passed
// for filePath under the plugin.
func (s *Store) HasPassedValidation(plugin, name, filePath string) bool {
	doc, err := s.Load()
	if err != nil || doc == nil {
		return false
	}
	ps, ok := doc.Plugins[plugin]
	if !ok {
		return false
	}
	return ps.ValidationsPassed[filePath][name]
}

// MarkValidationPassed caches a passed validation for filePath.
func (s *Store) MarkValidationPassed(plugin, name, filePath string) error {
	return s.Update(func(doc *models.Session) error {
		ps := ensurePlugin(doc, plugin)
		if ps.ValidationsPassed[filePath] == nil {
			ps.ValidationsPassed[filePath] = map[string]bool{}
		}
		ps.ValidationsPassed[filePath][name] = true
		return nil
	})
}

// GetCustomData returns the plugin's free-form value for key.
func (s *Store) GetCustomData(plugin, key string) (any, bool) {
	doc, err := s.Load()
	if err != nil || doc == nil {
		return nil, false
	}
	ps, ok := doc.Plugins[plugin]
	if !ok {
		return nil, false
	}
	v, ok := ps.CustomData[key]
	return v, ok
}

// SetCustomData stores a free-form JSON-serializable value for the plugin.
func (s *Store) SetCustomData(plugin, key string, value any) error {
	return s.Update(func(doc *models.Session) error {
		ps := ensurePlugin(doc, plugin)
		ps.CustomData[key] = value
		return nil
	})
}

// Delete removes the session document and its lock artifacts. Explicit
// cleanup only; normal hooks never delete mid-session.
func (s *Store) Delete() error {
	err := os.Remove(s.path)
	removeLockArtifacts(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func ensurePlugin(doc *models.Session, plugin string) *models.PluginState {
	ps, ok := doc.Plugins[plugin]
	if !ok {
		ps = models.NewPluginState(plugin, nowISO())
		doc.Plugins[plugin] = ps
	}
	// Re-allocate sub-maps dropped by a hand-edited or older document.
	if ps.RecommendationsShown == nil {
		ps.RecommendationsShown = map[string]bool{}
	}
	if ps.ValidationsPassed == nil {
		ps.ValidationsPassed = map[string]map[string]bool{}
	}
	if ps.CustomData == nil {
		ps.CustomData = map[string]any{}
	}
	return ps
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// lookupPath walks a dotted path through nested JSON objects.
func lookupPath(doc map[string]any, path string) (any, bool) {
	if path == "" {
		return doc, true
	}
	var current any = doc
	for _, seg := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// setPath writes value at a dotted path, creating intermediate objects and
// overwriting non-object intermediates.
func setPath(doc map[string]any, path string, value any) {
	segs := strings.Split(path, ".")
	current := doc
	for _, seg := range segs[:len(segs)-1] {
		next, ok := current[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[seg] = next
		}
		current = next
	}
	current[segs[len(segs)-1]] = value
}

func toRawMap(doc *models.Session) (map[string]any, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func fromRawMap(raw map[string]any, doc *models.Session) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, doc)
}
