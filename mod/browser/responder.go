package browser

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"imuslab.com/fileviewer/mod/utils"
)

/*
	Content Responder

	Writes the response for a classified entry: a listing page for
	directories, the raw bytes for files and a 404 for anything else.
*/

func (b *Browser) serveDirectory(w http.ResponseWriter, r *http.Request, entry *ResolvedEntry) {
	entries, err := b.root.List(entry)
	if err != nil {
		b.serveError(w, r, err)
		return
	}

	//Render into a buffer first so a template error can still become a 500
	var page bytes.Buffer
	if err := RenderListing(&page, entry.Path, entries, b.previewer != nil); err != nil {
		b.serveError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(page.Len()))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	w.Write(page.Bytes())
}

func (b *Browser) serveFile(w http.ResponseWriter, r *http.Request, entry *ResolvedEntry) {
	f, err := b.root.Open(entry)
	if err != nil {
		b.serveError(w, r, err)
		return
	}
	defer f.Close()

	size := entry.Info.Size()
	w.Header().Set("Content-Type", ContentTypeFor(entry.Path.Name()))
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.Header().Set("Last-Modified", entry.Info.ModTime().UTC().Format(http.TimeFormat))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}

	if _, err := io.CopyN(w, f, size); err != nil {
		//Headers are gone already, most likely the client went away
		b.logError("Transfer of "+entry.Path.String()+" aborted", err)
	}
}

func (b *Browser) serveMissing(w http.ResponseWriter, r *http.Request) {
	utils.SendTextError(w, http.StatusNotFound, "404 page not found")
}

// serveError converts an error into the matching status code. Details of
// filesystem failures are logged, never sent to the client.
func (b *Browser) serveError(w http.ResponseWriter, r *http.Request, err error) {
	statusCode := StatusCode(err)
	switch statusCode {
	case http.StatusBadRequest:
		utils.SendTextError(w, statusCode, "400 bad request: invalid path")
	case http.StatusNotFound:
		b.serveMissing(w, r)
	default:
		b.logError("Unable to serve "+r.URL.Path, err)
		utils.SendTextError(w, http.StatusInternalServerError, "500 internal server error")
	}
}
