package preview

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/jellydator/ttlcache/v3"
	"imuslab.com/fileviewer/mod/browser"
	"imuslab.com/fileviewer/mod/database"
	"imuslab.com/fileviewer/mod/info/logger"
	"imuslab.com/fileviewer/mod/utils"
)

/*
	Preview Generator

	Serves the ?preview descriptor used by the listing page to draw
	file tiles, and the ?thumbnail JPEG for videos (rendered by ffmpeg
	and kept in the thumbnail folder between runs)
*/

const (
	DefaultCacheTTL = 10 * time.Minute
	thumbnailTable  = "thumbnails"
)

var (
	ErrNotAFile         = errors.New("preview is only available for files")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrThumbnailFailed  = errors.New("thumbnail generation failed")
)

type Options struct {
	Root         *browser.Root
	ThumbnailDir string             //Base folder for generated thumbnails, each root uses its own CacheFolder inside
	FFmpegPath   string             //ffmpeg binary, looked up in PATH if not absolute
	Database     *database.Database //Thumbnail index, nil to rely on file timestamps
	Logger       *logger.Logger
	CacheTTL     time.Duration //Descriptor cache lifetime, 0 for DefaultCacheTTL
}

// Descriptor tells the listing page how to render a file tile
type Descriptor struct {
	Type     string  `json:"type"` //image, video or file
	URL      string  `json:"url"`
	ThumbURL *string `json:"thumb_url"`
}

type Generator struct {
	option *Options
	folder string //CacheFolder of the served root
	cache  *ttlcache.Cache[string, *Descriptor]
	locks  *keyedMutex
}

func NewGenerator(option *Options) (*Generator, error) {
	if option.Root == nil {
		return nil, errors.New("preview root not set")
	}
	if option.ThumbnailDir == "" {
		return nil, errors.New("thumbnail folder not set")
	}
	if option.FFmpegPath == "" {
		option.FFmpegPath = "ffmpeg"
	}
	if option.CacheTTL <= 0 {
		option.CacheTTL = DefaultCacheTTL
	}

	folder := CacheFolder(option.ThumbnailDir, option.Root)
	if err := os.MkdirAll(folder, 0755); err != nil {
		return nil, fmt.Errorf("unable to create thumbnail folder: %w", err)
	}
	if option.Database != nil && !option.Database.TableExists(thumbnailTable) {
		if err := option.Database.NewTable(thumbnailTable); err != nil {
			return nil, err
		}
	}

	cache := ttlcache.New[string, *Descriptor](
		ttlcache.WithTTL[string, *Descriptor](option.CacheTTL),
	)
	go cache.Start()

	return &Generator{
		option: option,
		folder: folder,
		cache:  cache,
		locks:  newKeyedMutex(),
	}, nil
}

// CacheFolder returns the folder holding the thumbnails and the index
// database of one root. Every root gets its own folder under thumbnailDir.
func CacheFolder(thumbnailDir string, root *browser.Root) string {
	sum := md5.Sum([]byte(root.Path()))
	return filepath.Join(thumbnailDir, hex.EncodeToString(sum[:]))
}

// Describe classifies a file into image, video or generic file. The
// extension table is consulted first, content sniffing is the fallback.
func (g *Generator) Describe(entry *browser.ResolvedEntry) (*Descriptor, error) {
	if entry.Kind != browser.EntryFile {
		return nil, ErrNotAFile
	}

	key := descriptorKey(entry)
	if item := g.cache.Get(key); item != nil {
		return item.Value(), nil
	}

	contentType, ok := browser.LookupContentType(entry.Path.Name())
	if !ok {
		sniffed, err := g.sniff(entry)
		if err != nil {
			return nil, err
		}
		contentType = sniffed
	}

	href := entry.Path.Href(false)
	d := &Descriptor{
		Type: browser.MediaKindOf(contentType),
		URL:  href,
	}
	switch d.Type {
	case browser.MediaImage:
		d.ThumbURL = &href
	case browser.MediaVideo:
		thumb := href + "?thumbnail"
		d.ThumbURL = &thumb
	}

	g.cache.Set(key, d, ttlcache.DefaultTTL)
	return d, nil
}

func (g *Generator) sniff(entry *browser.ResolvedEntry) (string, error) {
	f, err := g.option.Root.Open(entry)
	if err != nil {
		return "", err
	}
	defer f.Close()

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		return "", fmt.Errorf("%w: %w", browser.ErrIO, err)
	}
	if mtype.Is(browser.DefaultContentType) {
		return "", ErrUnsupportedMedia
	}
	return mtype.String(), nil
}

// ServePreview writes the descriptor of entry as JSON
func (g *Generator) ServePreview(w http.ResponseWriter, r *http.Request, entry *browser.ResolvedEntry) {
	d, err := g.Describe(entry)
	if err != nil {
		g.sendError(w, entry, err)
		return
	}
	utils.SendJSON(w, d)
}

// ServeThumbnail writes the JPEG thumbnail of a video entry
func (g *Generator) ServeThumbnail(w http.ResponseWriter, r *http.Request, entry *browser.ResolvedEntry) {
	d, err := g.Describe(entry)
	if err != nil {
		g.sendError(w, entry, err)
		return
	}
	if d.Type != browser.MediaVideo {
		utils.SendErrorResponse(w, http.StatusUnsupportedMediaType, "thumbnails are only generated for videos")
		return
	}

	thumbPath, err := g.Thumbnail(r.Context(), entry)
	if err != nil {
		g.sendError(w, entry, err)
		return
	}

	f, err := os.Open(thumbPath)
	if err != nil {
		g.sendError(w, entry, err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		g.sendError(w, entry, err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeContent(w, r, "", info.ModTime(), f)
}

func (g *Generator) sendError(w http.ResponseWriter, entry *browser.ResolvedEntry, err error) {
	switch {
	case errors.Is(err, ErrNotAFile), errors.Is(err, browser.ErrNotFound):
		utils.SendErrorResponse(w, http.StatusNotFound, "file not found")
	case errors.Is(err, ErrUnsupportedMedia):
		utils.SendErrorResponse(w, http.StatusUnsupportedMediaType, "unsupported media type")
	case errors.Is(err, ErrThumbnailFailed):
		g.logError("Failed to generate thumbnail for "+entry.Path.String(), err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "failed to generate thumbnail")
	default:
		g.logError("Unable to preview "+entry.Path.String(), err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "internal server error")
	}
}

// Close stops the descriptor cache
func (g *Generator) Close() {
	g.cache.Stop()
}

func (g *Generator) logError(message string, err error) {
	if g.option.Logger != nil {
		g.option.Logger.PrintAndLog("preview", message, err)
	}
}

func descriptorKey(entry *browser.ResolvedEntry) string {
	return entry.Path.Rel() + "@" + strconv.FormatInt(entry.Info.ModTime().UnixNano(), 10)
}
