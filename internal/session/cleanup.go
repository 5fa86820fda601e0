package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dotcommander/hookstate/internal/platform"
)

var sessionFilePattern = regexp.MustCompile(`^session-(\d+)\.json$`)

// CleanupStaleSessions scans the session namespace and deletes documents
// older than maxAge whose owning process is no longer alive, together with
// their logs, journals, and lock artifacts. Advisory housekeeping: a live
// session is never touched regardless of age.
func CleanupStaleSessions(root string, maxAge time.Duration) (int, error) {
	if root == "" {
		resolved, err := sessionRoot()
		if err != nil {
			return 0, err
		}
		root = resolved
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := sessionFilePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		path := filepath.Join(root, entry.Name())

		age, err := platform.FileAgeSeconds(path)
		if err != nil || time.Duration(age)*time.Second < maxAge {
			continue
		}

		pid := ownerPID(path, m[1])
		if pid > 0 && PIDAlive(pid) {
			continue
		}

		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			continue
		}
		removeSessionArtifacts(path)
		removed++
	}
	return removed, nil
}

// ownerPID prefers the pid recorded inside the document, falling back to
// the pid encoded in the filename when the document is unreadable.
func ownerPID(path, filenamePID string) int {
	if data, err := os.ReadFile(path); err == nil { //nolint:gosec // G304: path within the session namespace
		var doc struct {
			PID int `json:"pid"`
		}
		if json.Unmarshal(data, &doc) == nil && doc.PID > 0 {
			return doc.PID
		}
	}
	pid, err := strconv.Atoi(filenamePID)
	if err != nil {
		return 0
	}
	return pid
}

// removeSessionArtifacts deletes everything derived from one session
// document: log (plus rotated generations), journal, and lock artifacts
// for each of the three files.
func removeSessionArtifacts(sessionPath string) {
	base := strings.TrimSuffix(sessionPath, ".json")
	logPath := base + ".log"
	journalPath := base + "-errors.jsonl"

	_ = os.Remove(logPath)
	for i := 1; i <= 5; i++ {
		_ = os.Remove(logPath + "." + strconv.Itoa(i))
	}
	_ = os.Remove(journalPath)

	for _, target := range []string{sessionPath, logPath, journalPath} {
		removeLockArtifacts(target)
	}
}
