package browser

import (
	"net/http"

	"github.com/google/uuid"
	"imuslab.com/fileviewer/mod/info/logger"
	"imuslab.com/fileviewer/mod/utils"
)

/*
	Browser

	The HTTP handler that exposes a Root. Each request goes through
	Received -> Validated -> Classified -> Responded and is written
	to the traffic log with its own request id.
*/

// Previewer serves the ?preview and ?thumbnail variants of an entry
type Previewer interface {
	ServePreview(w http.ResponseWriter, r *http.Request, entry *ResolvedEntry)
	ServeThumbnail(w http.ResponseWriter, r *http.Request, entry *ResolvedEntry)
}

type Options struct {
	Root      *Root          //Directory to expose, required
	Logger    *logger.Logger //System and traffic logger, nil to disable logging
	Previewer Previewer      //Preview provider, nil to disable previews
}

type Browser struct {
	root      *Root
	logger    *logger.Logger
	previewer Previewer
}

func NewBrowser(option *Options) *Browser {
	return &Browser{
		root:      option.Root,
		logger:    option.Logger,
		previewer: option.Previewer,
	}
}

func (b *Browser) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()
	w.Header().Set("X-Request-Id", requestID)

	sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
	reqclass := b.route(sw, r)
	if b.logger != nil {
		b.logger.LogHTTPRequest(r, reqclass, sw.statusCode, requestID)
	}
}

// route handles the request and returns the class used in the traffic log
func (b *Browser) route(w http.ResponseWriter, r *http.Request) string {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		utils.SendTextError(w, http.StatusMethodNotAllowed, "405 method not allowed")
		return "method"
	}

	p, err := ParseRequestPath(r.URL.EscapedPath())
	if err != nil {
		b.serveError(w, r, err)
		return "invalid"
	}

	entry, err := b.root.Classify(p)
	if err != nil {
		b.serveError(w, r, err)
		return "error"
	}

	if b.previewer != nil {
		if utils.HasPara(r, "preview") {
			b.previewer.ServePreview(w, r, entry)
			return "preview"
		}
		if utils.HasPara(r, "thumbnail") {
			b.previewer.ServeThumbnail(w, r, entry)
			return "thumbnail"
		}
	}

	switch entry.Kind {
	case EntryDirectory:
		b.serveDirectory(w, r, entry)
		return "dir"
	case EntryFile:
		b.serveFile(w, r, entry)
		return "file"
	default:
		b.serveMissing(w, r)
		return "missing"
	}
}

func (b *Browser) logError(message string, err error) {
	if b.logger != nil {
		b.logger.PrintAndLog("browser", message, err)
	}
}

// statusWriter records the status code for the traffic log
type statusWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (s *statusWriter) WriteHeader(statusCode int) {
	if !s.wroteHeader {
		s.statusCode = statusCode
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(statusCode)
}

func (s *statusWriter) Write(b []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(b)
}

func (s *statusWriter) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
