package webserv

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"

	"golang.org/x/net/webdav"
	"imuslab.com/fileviewer/mod/browser"
	"imuslab.com/fileviewer/mod/info/logger"
	"imuslab.com/fileviewer/mod/utils"
)

/*
	WebDAV Server

	Read only WebDAV view of the served root, so it can be mounted
	as a network drive. Paths go through the same Root as the
	browser, sharing its traversal and symlink rules.
*/

var webdavMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodOptions,
	"PROPFIND",
}

// NewWebDAVHandler returns a handler that exposes root over WebDAV without
// any method that could change it
func NewWebDAVHandler(root *browser.Root, systemLogger *logger.Logger) http.Handler {
	handler := &webdav.Handler{
		FileSystem: &readOnlyFS{root: root},
		LockSystem: webdav.NewMemLS(),
		Logger: func(r *http.Request, err error) {
			if err != nil && systemLogger != nil && !errors.Is(err, os.ErrNotExist) {
				systemLogger.PrintAndLog("webdav", r.Method+" "+r.URL.Path+" failed", err)
			}
		},
	}
	return readOnlyMiddleware(handler)
}

func readOnlyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !utils.StringInArray(webdavMethods, r.Method) {
			w.Header().Set("Allow", strings.Join(webdavMethods, ", "))
			utils.SendTextError(w, http.StatusMethodNotAllowed, "405 method not allowed")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// readOnlyFS implements webdav.FileSystem on top of a browser.Root
type readOnlyFS struct {
	root *browser.Root
}

func (fs *readOnlyFS) Mkdir(ctx context.Context, name string, perm os.FileMode) error {
	return os.ErrPermission
}

func (fs *readOnlyFS) RemoveAll(ctx context.Context, name string) error {
	return os.ErrPermission
}

func (fs *readOnlyFS) Rename(ctx context.Context, oldName, newName string) error {
	return os.ErrPermission
}

func (fs *readOnlyFS) OpenFile(ctx context.Context, name string, flag int, perm os.FileMode) (webdav.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND) != 0 {
		return nil, os.ErrPermission
	}
	entry, err := fs.classify(name)
	if err != nil {
		return nil, err
	}
	f, err := fs.root.Open(entry)
	if err != nil {
		return nil, toFSError(err)
	}
	return &readOnlyFile{File: f}, nil
}

func (fs *readOnlyFS) Stat(ctx context.Context, name string) (os.FileInfo, error) {
	entry, err := fs.classify(name)
	if err != nil {
		return nil, err
	}
	return entry.Info, nil
}

func (fs *readOnlyFS) classify(name string) (*browser.ResolvedEntry, error) {
	p, err := browser.CleanRequestPath(name)
	if err != nil {
		return nil, toFSError(err)
	}
	entry, err := fs.root.Classify(p)
	if err != nil {
		return nil, toFSError(err)
	}
	if entry.Kind == browser.EntryMissing {
		return nil, os.ErrNotExist
	}
	return entry, nil
}

// toFSError maps browser errors onto the os errors webdav understands
func toFSError(err error) error {
	switch {
	case errors.Is(err, browser.ErrNotFound):
		return os.ErrNotExist
	case errors.Is(err, browser.ErrInvalidPath):
		return os.ErrPermission
	default:
		return err
	}
}

type readOnlyFile struct {
	*os.File
}

func (f *readOnlyFile) Write(p []byte) (int, error) {
	return 0, os.ErrPermission
}
