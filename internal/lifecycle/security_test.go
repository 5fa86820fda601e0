package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dotcommander/hookstate/internal/journal"
)

func TestValidatePath_AcceptsOrdinaryPaths(t *testing.T) {
	h, _, _, err := newTestHook(t, "lint", "{}")
	require.NoError(t, err)

	for _, path := range []string{
		"src/a.ts",
		"/work/project/main.go",
		"./relative/file.txt",
		"C:\\Users\\dev\\notes.md",
		"file with spaces.md",
		"pkg/v2.1/mod~backup",
	} {
		require.NoError(t, h.ValidatePath(path), "path %q must pass", path)
	}
}

func TestValidatePath_TraversalIsFatal(t *testing.T) {
	for _, path := range []string{
		"../../etc/passwd",
		"src/../../secret",
		"..\\windows\\system32",
	} {
		h, _, exitCode, err := newTestHook(t, "lint", "{}")
		require.NoError(t, err)

		require.Error(t, h.ValidatePath(path))
		require.Equal(t, journal.FatalExitCode, *exitCode, "path %q must be fatal", path)
	}
}

func TestValidatePath_DisallowedCharactersAreAnOrdinaryError(t *testing.T) {
	h, _, exitCode, err := newTestHook(t, "lint", "{}")
	require.NoError(t, err)

	for _, path := range []string{
		"file;rm -rf /",
		"$(whoami).txt",
		"a|b",
		"file`id`.go",
		"",
	} {
		require.Error(t, h.ValidatePath(path), "path %q must be rejected", path)
		require.Equal(t, -1, *exitCode, "path %q must not be fatal", path)
	}
}

func TestIsSensitiveFile(t *testing.T) {
	sensitive := []string{
		"/home/dev/.env",
		"project/.env.local",
		"/home/dev/.ssh/id_rsa",
		"keys/server.pem",
		"certs/tls.key",
		"/home/dev/.aws/credentials",
		"repo/.git/config",
		"app/node_modules/lodash/index.js",
		"go/vendor/modules.txt",
		"/etc/shadow",
		"C:\\Users\\dev\\.ssh\\known_hosts",
		"ops/secrets/prod.yaml",
	}
	for _, path := range sensitive {
		require.True(t, IsSensitiveFile(path), "path %q must be sensitive", path)
	}

	benign := []string{
		"src/main.go",
		"README.md",
		"environment.md",
		"internal/keyboard/input.go",
		"",
	}
	for _, path := range benign {
		require.False(t, IsSensitiveFile(path), "path %q must not be sensitive", path)
	}
}
