package browser

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

/*
	Root

	The directory the server is confined to. Every access goes
	through Resolve, which joins, resolves symlinks and checks the
	result against the root in one step. File handles are opened
	through os.Root so the OS enforces the same boundary.
*/

type EntryKind int

const (
	EntryMissing EntryKind = iota
	EntryDirectory
	EntryFile
)

func (k EntryKind) String() string {
	switch k {
	case EntryDirectory:
		return "directory"
	case EntryFile:
		return "file"
	default:
		return "missing"
	}
}

// ResolvedEntry is the classification of a RequestPath under the root
type ResolvedEntry struct {
	Kind    EntryKind
	Path    RequestPath
	AbsPath string      //Symlink resolved absolute path, empty if missing
	Info    fs.FileInfo //nil if missing

	rel string //Resolved path relative to the root, for os.Root access
}

type Root struct {
	path string
	root *os.Root
}

// NewRoot opens dir as the serving root. The path is made absolute and its
// symlinks are resolved once, so later checks compare real locations.
func NewRoot(dir string) (*Root, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotDir, resolved)
	}

	r, err := os.OpenRoot(resolved)
	if err != nil {
		return nil, err
	}
	return &Root{
		path: resolved,
		root: r,
	}, nil
}

// Path returns the absolute, symlink resolved root directory
func (r *Root) Path() string {
	return r.path
}

func (r *Root) Close() error {
	return r.root.Close()
}

// Resolve joins p onto the root and returns the real location of the entry.
// Paths that leave the root, directly or through a symlink, give ErrInvalidPath.
// Entries that do not exist (including dangling symlinks) give ErrNotFound.
func (r *Root) Resolve(p RequestPath) (string, error) {
	joined := filepath.Join(r.path, p.FilePath())
	if !isWithin(r.path, joined) {
		return "", fmt.Errorf("%w: %s escapes the root", ErrInvalidPath, p)
	}

	real, err := filepath.EvalSymlinks(joined)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}

	if !isWithin(r.path, real) {
		return "", fmt.Errorf("%w: %s resolves outside the root", ErrInvalidPath, p)
	}
	return real, nil
}

// Classify resolves p and determines whether it is a directory, a regular
// file or missing. Devices, sockets and pipes are reported as missing,
// so is a file requested with a trailing slash.
func (r *Root) Classify(p RequestPath) (*ResolvedEntry, error) {
	real, err := r.Resolve(p)
	if errors.Is(err, ErrNotFound) {
		return &ResolvedEntry{Kind: EntryMissing, Path: p}, nil
	} else if err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(r.path, real)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	info, err := r.root.Stat(rel)
	if errors.Is(err, fs.ErrNotExist) {
		//Removed between resolve and stat
		return &ResolvedEntry{Kind: EntryMissing, Path: p}, nil
	} else if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	entry := &ResolvedEntry{
		Kind:    EntryMissing,
		Path:    p,
		AbsPath: real,
		Info:    info,
		rel:     rel,
	}
	switch {
	case info.IsDir():
		entry.Kind = EntryDirectory
	case info.Mode().IsRegular():
		if p.trailingSlash {
			//"a.txt/" asks for a directory
			return &ResolvedEntry{Kind: EntryMissing, Path: p}, nil
		}
		entry.Kind = EntryFile
	}
	return entry, nil
}

// Open opens a classified entry for reading
func (r *Root) Open(entry *ResolvedEntry) (*os.File, error) {
	if entry.Kind == EntryMissing {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, entry.Path)
	}
	f, err := r.root.Open(entry.rel)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, entry.Path)
	} else if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return f, nil
}

// ReadDir returns the immediate children of a directory entry
func (r *Root) ReadDir(entry *ResolvedEntry) ([]fs.DirEntry, error) {
	if entry.Kind != EntryDirectory {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNotFound, entry.Path)
	}
	f, err := r.Open(entry)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	children, err := f.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return children, nil
}

// statChild follows a child symlink, as long as it stays inside the root
func (r *Root) statChild(entry *ResolvedEntry, name string) (fs.FileInfo, error) {
	child, err := r.Classify(entry.Path.Child(name, false))
	if err != nil {
		return nil, err
	}
	if child.Kind == EntryMissing {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, child.Path)
	}
	return child.Info, nil
}

func isWithin(base string, target string) bool {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	return rel == "." || filepath.IsLocal(rel)
}
