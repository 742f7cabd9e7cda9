// Package resolver normalizes and validates caller-supplied paths against
// a session root. This is a security boundary: every path that reaches a
// storage backend has passed through Resolve first.
package resolver

import (
	"fmt"
	"path"
	"strings"

	"github.com/lensview/lensview/internal/domain"
)

// Resolver validates paths against a fixed session root. Backends address
// files with forward-slash absolute paths regardless of platform, so all
// normalization here is pure slash-path logic.
type Resolver struct {
	root string
}

// New creates a resolver for the given root. root must be a non-empty
// absolute slash path.
func New(root string) (*Resolver, error) {
	cleaned := path.Clean(strings.TrimSpace(root))
	if cleaned == "" || !path.IsAbs(cleaned) {
		return nil, fmt.Errorf("%w: root %q is not absolute", domain.ErrInvalidPath, root)
	}
	return &Resolver{root: cleaned}, nil
}

// Root returns the canonical session root.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve normalizes p and returns its canonical absolute form, which is
// used as the cache and FileEntry key. It rejects parent-traversal that
// would escape the root, NUL bytes, and relative escapes. Empty input and
// "/" resolve to the root itself. Relative input is interpreted against
// the root.
func (r *Resolver) Resolve(p string) (string, error) {
	if strings.ContainsRune(p, 0) {
		return "", fmt.Errorf("%w: NUL byte in path", domain.ErrInvalidPath)
	}

	trimmed := strings.TrimSpace(p)
	if trimmed == "" || trimmed == "/" || trimmed == "." {
		return r.root, nil
	}

	// Reject traversal before cleaning so that even segments that would
	// cancel out ("a/../../b") are refused rather than silently collapsed.
	for _, seg := range strings.Split(trimmed, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: parent traversal in %q", domain.ErrInvalidPath, p)
		}
	}

	var abs string
	if path.IsAbs(trimmed) {
		abs = path.Clean(trimmed)
	} else {
		abs = path.Clean(path.Join(r.root, trimmed))
	}

	if !r.under(abs) {
		return "", fmt.Errorf("%w: %q escapes session root", domain.ErrInvalidPath, p)
	}
	return abs, nil
}

// Relative returns the root-relative form of an already-resolved path
// ("" for the root itself). Backends that address files relative to their
// own top level (the repository mirror) use this.
func (r *Resolver) Relative(resolved string) string {
	if resolved == r.root {
		return ""
	}
	return strings.TrimPrefix(resolved, r.root+"/")
}

// under reports whether abs is the root or syntactically below it.
func (r *Resolver) under(abs string) bool {
	if abs == r.root {
		return true
	}
	prefix := r.root
	if prefix != "/" {
		prefix += "/"
	}
	return strings.HasPrefix(abs, prefix)
}
