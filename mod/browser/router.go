package browser

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

/*
	Request Router

	Turns the raw request target into a RequestPath, a list of
	validated path segments relative to the root. Nothing in here
	touches the filesystem.
*/

// RequestPath is a validated path relative to the root. The zero value is the root itself.
type RequestPath struct {
	segments      []string
	trailingSlash bool
}

// ParseRequestPath percent-decodes the raw (escaped) request path and validates it
func ParseRequestPath(raw string) (RequestPath, error) {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return RequestPath{}, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	return CleanRequestPath(decoded)
}

// CleanRequestPath validates an already decoded slash separated path.
// Empty and "." segments are dropped, any ".." segment is rejected.
func CleanRequestPath(decoded string) (RequestPath, error) {
	if strings.IndexByte(decoded, 0) >= 0 {
		return RequestPath{}, fmt.Errorf("%w: NUL byte in path", ErrInvalidPath)
	}

	p := RequestPath{
		trailingSlash: strings.HasSuffix(decoded, "/"),
	}
	for _, seg := range strings.Split(decoded, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			return RequestPath{}, fmt.Errorf("%w: parent directory segment", ErrInvalidPath)
		}
		if !isLocalSegment(seg) {
			return RequestPath{}, fmt.Errorf("%w: segment %q is not a plain name", ErrInvalidPath, seg)
		}
		p.segments = append(p.segments, seg)
	}
	return p, nil
}

// isLocalSegment rejects segments that the host OS would interpret as more
// than a single name, e.g. "a\b" or "C:" on Windows
func isLocalSegment(seg string) bool {
	if filepath.Separator != '/' && strings.ContainsRune(seg, filepath.Separator) {
		return false
	}
	return filepath.IsLocal(seg)
}

// IsRoot reports whether the path points at the root directory
func (p RequestPath) IsRoot() bool {
	return len(p.segments) == 0
}

// Name returns the last segment, empty for the root
func (p RequestPath) Name() string {
	if p.IsRoot() {
		return ""
	}
	return p.segments[len(p.segments)-1]
}

// Parent returns the containing directory. The parent of the root is the root.
func (p RequestPath) Parent() RequestPath {
	if p.IsRoot() {
		return p
	}
	return RequestPath{
		segments:      append([]string{}, p.segments[:len(p.segments)-1]...),
		trailingSlash: true,
	}
}

// Child appends a single entry name. The caller is responsible for
// passing a name read from the filesystem, not user input.
func (p RequestPath) Child(name string, isDir bool) RequestPath {
	segs := make([]string, 0, len(p.segments)+1)
	segs = append(segs, p.segments...)
	return RequestPath{
		segments:      append(segs, name),
		trailingSlash: isDir,
	}
}

// Rel returns the slash separated path relative to the root ("" for the root)
func (p RequestPath) Rel() string {
	return strings.Join(p.segments, "/")
}

// FilePath returns the relative path using the host separator ("." for the root)
func (p RequestPath) FilePath() string {
	if p.IsRoot() {
		return "."
	}
	return filepath.Join(p.segments...)
}

// String returns the canonical, unescaped URL path
func (p RequestPath) String() string {
	if p.IsRoot() {
		return "/"
	}
	s := "/" + p.Rel()
	if p.trailingSlash {
		s += "/"
	}
	return s
}

// Href returns the percent-encoded absolute link for this path.
// Directories always get a trailing slash.
func (p RequestPath) Href(isDir bool) string {
	if p.IsRoot() {
		return "/"
	}
	escaped := make([]string, len(p.segments))
	for i, seg := range p.segments {
		escaped[i] = url.PathEscape(seg)
	}
	href := "/" + strings.Join(escaped, "/")
	if isDir {
		href += "/"
	}
	return href
}
