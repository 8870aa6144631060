// Package docpath handles absolute document paths in a Nuxeo repository.
package docpath

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPath is returned for paths that cannot name a document.
var ErrInvalidPath = errors.New("invalid document path")

// Root is the repository root.
const Root Path = "/"

// Path represents a normalized absolute path in the repository: a single
// leading '/', no trailing '/', no empty segments (e.g. "/default-domain/workspaces").
// Relative path components like "." and ".." are not allowed.
type Path string

// Parse normalizes s into a Path. A missing leading slash is added and
// repeated or trailing slashes are dropped, so "a//b/" parses as "/a/b".
func Parse(s string) (Path, error) {
	if s == "" {
		return "", fmt.Errorf("empty path: %w", ErrInvalidPath)
	}
	parts := split(s)
	for _, p := range parts {
		if p == "." || p == ".." {
			return "", fmt.Errorf("relative path components are not allowed in %q: %w", s, ErrInvalidPath)
		}
	}
	return Path("/" + strings.Join(parts, "/")), nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

func split(s string) (parts []string) {
	for _, p := range strings.Split(s, "/") {
		if p == "" {
			continue
		}
		parts = append(parts, p)
	}
	return parts
}

// Segments returns the non-empty components of p.
func (p Path) Segments() []string {
	return split(string(p))
}

// IsRoot reports whether p has no segments.
func (p Path) IsRoot() bool {
	return len(p.Segments()) == 0
}

// Ancestors returns the chain of paths from the shallowest ancestor down to
// p itself: "/a/b/c" gives "/a", "/a/b", "/a/b/c". The root yields nothing.
func (p Path) Ancestors() []Path {
	parts := p.Segments()
	out := make([]Path, 0, len(parts))
	for i := range parts {
		out = append(out, Path("/"+strings.Join(parts[:i+1], "/")))
	}
	return out
}

// Dir returns the parent of p. The parent of a top-level document is Root.
func (p Path) Dir() Path {
	parts := p.Segments()
	if len(parts) <= 1 {
		return Root
	}
	return Path("/" + strings.Join(parts[:len(parts)-1], "/"))
}

// Base returns the last segment of p, or "" for the root.
func (p Path) Base() string {
	parts := p.Segments()
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

// Join appends name below p.
func (p Path) Join(name string) Path {
	parts := append(p.Segments(), split(name)...)
	return Path("/" + strings.Join(parts, "/"))
}

// HasPrefix reports whether p is prefix or lies below it.
func (p Path) HasPrefix(prefix Path) bool {
	if prefix.IsRoot() || p == prefix {
		return true
	}
	return strings.HasPrefix(string(p), string(prefix)+"/")
}

func (p Path) String() string {
	return string(p)
}

// Decompose splits a raw path string into its ancestor paths without
// validating segments. Empty input or "/" gives an empty result.
func Decompose(s string) []string {
	parts := split(strings.TrimSuffix(strings.TrimPrefix(s, "/"), "/"))
	out := make([]string, 0, len(parts))
	for i := range parts {
		out = append(out, "/"+strings.Join(parts[:i+1], "/"))
	}
	return out
}
