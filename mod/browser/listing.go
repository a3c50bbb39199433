package browser

import (
	"embed"
	"html/template"
	"io"
	"io/fs"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
)

//go:embed templates/*
var templates embed.FS

var listingTemplate = template.Must(template.New("listing.html").Funcs(template.FuncMap{
	"humanBytes": func(size int64) string {
		if size < 0 {
			return ""
		}
		return humanize.IBytes(uint64(size))
	},
	"humanTime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return humanize.Time(t)
	},
}).ParseFS(templates, "templates/listing.html"))

// ListingEntry is one child shown on a directory page
type ListingEntry struct {
	Name      string
	Href      string
	IsDir     bool
	Size      int64 //-1 for directories
	ModTime   time.Time
	MediaKind string
}

// DisplayName is the link text, directories carry a trailing slash
func (e ListingEntry) DisplayName() string {
	if e.IsDir {
		return e.Name + "/"
	}
	return e.Name
}

type listingPage struct {
	Title          string
	IsRoot         bool
	ParentHref     string
	Entries        []ListingEntry
	PreviewEnabled bool
}

// List returns the immediate children of a directory entry, sorted by name.
// Symlinked children are shown as what they point to when the target is
// inside the root; otherwise they are listed as plain files.
func (r *Root) List(entry *ResolvedEntry) ([]ListingEntry, error) {
	children, err := r.ReadDir(entry)
	if err != nil {
		return nil, err
	}

	results := make([]ListingEntry, 0, len(children))
	for _, child := range children {
		name := child.Name()
		var info fs.FileInfo
		if child.Type()&fs.ModeSymlink != 0 {
			info, err = r.statChild(entry, name)
		} else {
			info, err = child.Info()
		}

		le := ListingEntry{
			Name:      name,
			Size:      -1,
			MediaKind: MediaFile,
		}
		if err == nil {
			le.IsDir = info.IsDir()
			le.ModTime = info.ModTime()
			if !le.IsDir {
				le.Size = info.Size()
			}
		}

		if le.IsDir {
			le.MediaKind = MediaDirectory
		} else if ct, ok := LookupContentType(name); ok {
			le.MediaKind = MediaKindOf(ct)
		}
		le.Href = entry.Path.Child(name, le.IsDir).Href(le.IsDir)
		results = append(results, le)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Name < results[j].Name
	})
	return results, nil
}

// RenderListing writes the HTML page for a directory
func RenderListing(w io.Writer, p RequestPath, entries []ListingEntry, previewEnabled bool) error {
	page := listingPage{
		Title:          p.String(),
		IsRoot:         p.IsRoot(),
		ParentHref:     p.Parent().Href(true),
		Entries:        entries,
		PreviewEnabled: previewEnabled,
	}
	return listingTemplate.Execute(w, page)
}
