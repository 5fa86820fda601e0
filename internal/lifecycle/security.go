package lifecycle

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// allowedPathPattern is the conservative character allow-list for paths a
// hook is willing to touch. Windows drive colons and both separators are
// permitted; shell metacharacters are not.
var allowedPathPattern = regexp.MustCompile(`^[A-Za-z0-9._~ :/\\@+-]+$`)

// sensitiveFragments match credential files, key material, VCS internals,
// and dependency directories. Matching is case-insensitive on the
// slash-normalized path.
var sensitiveFragments = []string{
	".env",
	".netrc",
	".npmrc",
	".pgpass",
	".htpasswd",
	"id_rsa",
	"id_ed25519",
	"id_ecdsa",
	".pem",
	".key",
	".p12",
	".pfx",
	"credentials",
	"secrets",
	"authorized_keys",
	"known_hosts",
	"/etc/shadow",
	".ssh/",
	".aws/",
	".gnupg/",
	".kube/config",
	".git/",
	".hg/",
	".svn/",
	"node_modules/",
	"vendor/",
}

// ValidatePath screens a path before it reaches any shell-level
// operation. Parent-directory traversal escalates to a fatal report —
// by the time a traversal segment shows up here something upstream has
// already been subverted. Disallowed characters are an ordinary error the
// caller can turn into a block decision.
func (h *Hook) ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	for _, seg := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			h.Journal.ReportFatal("PATH_TRAVERSAL",
				"path contains a parent-directory traversal segment",
				map[string]string{"path": path})
			// Reached only under an injected exit func.
			return fmt.Errorf("path traversal in %q", path)
		}
	}

	if !allowedPathPattern.MatchString(path) {
		return fmt.Errorf("path %q contains disallowed characters", path)
	}
	return nil
}

// IsSensitiveFile reports whether the path matches known-sensitive
// fragments. The caller decides whether to block access; this is a
// screen, not a policy.
func IsSensitiveFile(path string) bool {
	if path == "" {
		return false
	}
	normalized := strings.ToLower(filepath.ToSlash(path))

	for _, fragment := range sensitiveFragments {
		if strings.HasSuffix(fragment, "/") {
			// Directory fragment: match anywhere, including a bare
			// trailing component without the slash.
			trimmed := strings.TrimSuffix(fragment, "/")
			if strings.Contains(normalized, fragment) || strings.HasSuffix(normalized, "/"+trimmed) || normalized == trimmed {
				return true
			}
			continue
		}
		if strings.Contains(normalized, fragment) {
			return true
		}
	}
	return false
}
