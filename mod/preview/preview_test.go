package preview

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"imuslab.com/fileviewer/mod/browser"
	"imuslab.com/fileviewer/mod/database"
	"imuslab.com/fileviewer/mod/database/dbinc"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type fixture struct {
	root *browser.Root
	db   *database.Database
	gen  *Generator
}

// newFixture creates a root with a few media files and a generator
// using a missing ffmpeg binary, so nothing is actually rendered
func newFixture(t *testing.T, withDatabase bool) *fixture {
	t.Helper()
	dir := t.TempDir()
	files := map[string][]byte{
		"photo.png":   pngHeader,
		"clip.mp4":    []byte("not really a video"),
		"notes.txt":   []byte("hello"),
		"sniffed":     pngHeader,
		"mystery":     []byte("\x01\x02\x03\x04\x05\x00\xff\xfe"),
		"sub/a b.jpg": pngHeader,
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, content, 0644))
	}

	root, err := browser.NewRoot(dir)
	require.NoError(t, err)
	t.Cleanup(func() { root.Close() })

	f := &fixture{root: root}
	if withDatabase {
		f.db, err = database.NewDatabase(filepath.Join(t.TempDir(), "index.db"), dbinc.BackendBoltDB)
		require.NoError(t, err)
		t.Cleanup(f.db.Close)
	}

	f.gen, err = NewGenerator(&Options{
		Root:         root,
		ThumbnailDir: filepath.Join(t.TempDir(), "thumbs"),
		FFmpegPath:   filepath.Join(t.TempDir(), "no-ffmpeg-here"),
		Database:     f.db,
	})
	require.NoError(t, err)
	t.Cleanup(f.gen.Close)
	return f
}

func (f *fixture) entry(t *testing.T, raw string) *browser.ResolvedEntry {
	t.Helper()
	p, err := browser.ParseRequestPath(raw)
	require.NoError(t, err)
	entry, err := f.root.Classify(p)
	require.NoError(t, err)
	return entry
}

func mustParse(t *testing.T, raw string) browser.RequestPath {
	t.Helper()
	p, err := browser.ParseRequestPath(raw)
	require.NoError(t, err)
	return p
}

func strPtr(s string) *string {
	return &s
}

func TestDescribe(t *testing.T) {
	f := newFixture(t, false)

	testCases := []struct {
		name     string
		path     string
		expected *Descriptor
	}{
		{"ShouldUseImageAsItsOwnThumbnail", "/photo.png", &Descriptor{Type: "image", URL: "/photo.png", ThumbURL: strPtr("/photo.png")}},
		{"ShouldPointVideoToThumbnail", "/clip.mp4", &Descriptor{Type: "video", URL: "/clip.mp4", ThumbURL: strPtr("/clip.mp4?thumbnail")}},
		{"ShouldDescribeOtherFiles", "/notes.txt", &Descriptor{Type: "file", URL: "/notes.txt"}},
		{"ShouldSniffUnknownExtension", "/sniffed", &Descriptor{Type: "image", URL: "/sniffed", ThumbURL: strPtr("/sniffed")}},
		{"ShouldEscapeURL", "/sub/a%20b.jpg", &Descriptor{Type: "image", URL: "/sub/a%20b.jpg", ThumbURL: strPtr("/sub/a%20b.jpg")}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := f.gen.Describe(f.entry(t, tc.path))
			require.NoError(t, err)
			assert.Equal(t, tc.expected, d)
		})
	}
}

func TestDescribeErrors(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.gen.Describe(f.entry(t, "/mystery"))
	assert.ErrorIs(t, err, ErrUnsupportedMedia)

	_, err = f.gen.Describe(f.entry(t, "/sub/"))
	assert.ErrorIs(t, err, ErrNotAFile)

	_, err = f.gen.Describe(f.entry(t, "/missing.png"))
	assert.ErrorIs(t, err, ErrNotAFile)
}

func TestDescribeIsCached(t *testing.T) {
	f := newFixture(t, false)
	entry := f.entry(t, "/photo.png")

	first, err := f.gen.Describe(entry)
	require.NoError(t, err)
	second, err := f.gen.Describe(entry)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestPreviewOverHTTP(t *testing.T) {
	f := newFixture(t, false)
	b := browser.NewBrowser(&browser.Options{Root: f.root, Previewer: f.gen})

	testCases := []struct {
		name   string
		target string
		status int
	}{
		{"ShouldDescribeImage", "/photo.png?preview", http.StatusOK},
		{"ShouldRejectDirectory", "/sub/?preview", http.StatusNotFound},
		{"ShouldRejectMissing", "/nope.png?preview", http.StatusNotFound},
		{"ShouldRejectUnknownMedia", "/mystery?preview", http.StatusUnsupportedMediaType},
		{"ShouldRejectThumbnailOfImage", "/photo.png?thumbnail", http.StatusUnsupportedMediaType},
		{"ShouldReportFailedThumbnail", "/clip.mp4?thumbnail", http.StatusInternalServerError},
		{"ShouldRejectTraversal", "/../photo.png?preview", http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			b.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.target, nil))
			assert.Equal(t, tc.status, rec.Code)
		})
	}

	rec := httptest.NewRecorder()
	b.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notes.txt?preview", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"type":"file","url":"/notes.txt","thumb_url":null}`, rec.Body.String())
}

func TestThumbnailIsReusedWhileSourceUnchanged(t *testing.T) {
	f := newFixture(t, true)
	entry := f.entry(t, "/clip.mp4")

	key := thumbnailKey("clip.mp4")
	thumbPath := filepath.Join(f.gen.folder, key+".jpg")
	require.NoError(t, os.WriteFile(thumbPath, []byte("jpeg"), 0644))
	require.NoError(t, f.db.Write(thumbnailTable, key, ThumbnailRecord{
		Source:  "clip.mp4",
		ModTime: entry.Info.ModTime().UnixNano(),
		Created: time.Now().Unix(),
	}))

	//ffmpeg is not available, so only a cache hit can succeed
	path, err := f.gen.Thumbnail(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, thumbPath, path)

	later := entry.Info.ModTime().Add(time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(f.root.Path(), "clip.mp4"), later, later))
	_, err = f.gen.Thumbnail(context.Background(), f.entry(t, "/clip.mp4"))
	assert.ErrorIs(t, err, ErrThumbnailFailed)
}

func TestThumbnailFreshnessWithoutDatabase(t *testing.T) {
	f := newFixture(t, false)
	entry := f.entry(t, "/clip.mp4")

	thumbPath := filepath.Join(f.gen.folder, thumbnailKey("clip.mp4")+".jpg")
	require.NoError(t, os.WriteFile(thumbPath, []byte("jpeg"), 0644))
	newer := entry.Info.ModTime().Add(time.Minute)
	require.NoError(t, os.Chtimes(thumbPath, newer, newer))

	path, err := f.gen.Thumbnail(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, thumbPath, path)
}

func TestPrune(t *testing.T) {
	f := newFixture(t, true)
	entry := f.entry(t, "/clip.mp4")
	dir := f.gen.folder

	records := map[string]ThumbnailRecord{
		"clip.mp4": {Source: "clip.mp4", ModTime: entry.Info.ModTime().UnixNano()},
		"gone.mp4": {Source: "gone.mp4", ModTime: 1},
		"old.mp4":  {Source: "clip.mp4", ModTime: 1},
	}
	for name, record := range records {
		key := thumbnailKey(name)
		require.NoError(t, os.WriteFile(filepath.Join(dir, key+".jpg"), []byte("jpeg"), 0644))
		require.NoError(t, f.db.Write(thumbnailTable, key, record))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "leftover"+partialSuffix), nil, 0644))

	removed, err := f.gen.Prune()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	assert.FileExists(t, filepath.Join(dir, thumbnailKey("clip.mp4")+".jpg"))
	assert.NoFileExists(t, filepath.Join(dir, thumbnailKey("gone.mp4")+".jpg"))
	assert.NoFileExists(t, filepath.Join(dir, thumbnailKey("old.mp4")+".jpg"))
	assert.NoFileExists(t, filepath.Join(dir, "leftover"+partialSuffix))
	var record ThumbnailRecord
	assert.ErrorIs(t, f.db.Read(thumbnailTable, thumbnailKey("gone.mp4"), &record), dbinc.ErrKeyNotFound)
	assert.NoError(t, f.db.Read(thumbnailTable, thumbnailKey("clip.mp4"), &record))
}

// fakeFFmpeg writes a script that copies the -i input to the output path
func fakeFFmpeg(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	script := filepath.Join(t.TempDir(), "ffmpeg")
	content := "#!/bin/sh\nsrc=\"\"\nwhile [ $# -gt 1 ]; do\n\tif [ \"$1\" = \"-i\" ]; then src=\"$2\"; fi\n\tshift\ndone\ncp \"$src\" \"$1\"\n"
	require.NoError(t, os.WriteFile(script, []byte(content), 0755))
	return script
}

func TestRootsDoNotShareThumbnails(t *testing.T) {
	ffmpeg := fakeFFmpeg(t)
	thumbnailDir := t.TempDir()

	type instance struct {
		root *browser.Root
		db   *database.Database
		gen  *Generator
	}
	newInstance := func(content string) *instance {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "clip.mp4"), []byte(content), 0644))
		root, err := browser.NewRoot(dir)
		require.NoError(t, err)
		t.Cleanup(func() { root.Close() })

		folder := CacheFolder(thumbnailDir, root)
		require.NoError(t, os.MkdirAll(folder, 0755))
		db, err := database.NewDatabase(filepath.Join(folder, "index.db"), dbinc.BackendBoltDB)
		require.NoError(t, err)
		t.Cleanup(db.Close)

		gen, err := NewGenerator(&Options{
			Root:         root,
			ThumbnailDir: thumbnailDir,
			FFmpegPath:   ffmpeg,
			Database:     db,
		})
		require.NoError(t, err)
		t.Cleanup(gen.Close)
		return &instance{root: root, db: db, gen: gen}
	}

	a := newInstance("root A video")
	b := newInstance("root B video")
	assert.NotEqual(t, a.gen.folder, b.gen.folder)

	classify := func(in *instance) *browser.ResolvedEntry {
		entry, err := in.root.Classify(mustParse(t, "/clip.mp4"))
		require.NoError(t, err)
		return entry
	}

	pathA, err := a.gen.Thumbnail(context.Background(), classify(a))
	require.NoError(t, err)
	pathB, err := b.gen.Thumbnail(context.Background(), classify(b))
	require.NoError(t, err)
	assert.NotEqual(t, pathA, pathB)

	content, err := os.ReadFile(pathB)
	require.NoError(t, err)
	assert.Equal(t, "root B video", string(content))

	//Pruning one root leaves the other root's thumbnails alone
	removed, err := a.gen.Prune()
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	assert.FileExists(t, pathB)
}

func TestThumbnailRegeneratesAfterChange(t *testing.T) {
	f := newFixture(t, true)
	f.gen.option.FFmpegPath = fakeFFmpeg(t)

	path, err := f.gen.Thumbnail(context.Background(), f.entry(t, "/clip.mp4"))
	require.NoError(t, err)
	content, _ := os.ReadFile(path)
	assert.Equal(t, "not really a video", string(content))

	clip := filepath.Join(f.root.Path(), "clip.mp4")
	require.NoError(t, os.WriteFile(clip, []byte("edited video"), 0644))
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(clip, later, later))

	path, err = f.gen.Thumbnail(context.Background(), f.entry(t, "/clip.mp4"))
	require.NoError(t, err)
	content, _ = os.ReadFile(path)
	assert.Equal(t, "edited video", string(content))
	assert.Equal(t, 0, f.gen.locks.size())
}

func TestThumbnailWithFFmpeg(t *testing.T) {
	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not found in PATH")
	}

	dir := t.TempDir()
	clip := filepath.Join(dir, "clip.mp4")
	gen := exec.Command(ffmpeg, "-y", "-f", "lavfi", "-i", "testsrc=duration=1:size=160x120:rate=10", clip)
	if out, err := gen.CombinedOutput(); err != nil {
		t.Skipf("unable to create a test clip: %v: %s", err, out)
	}

	root, err := browser.NewRoot(dir)
	require.NoError(t, err)
	defer root.Close()
	g, err := NewGenerator(&Options{
		Root:         root,
		ThumbnailDir: filepath.Join(t.TempDir(), "thumbs"),
		FFmpegPath:   ffmpeg,
	})
	require.NoError(t, err)
	defer g.Close()

	b := browser.NewBrowser(&browser.Options{Root: root, Previewer: g})
	rec := httptest.NewRecorder()
	b.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/clip.mp4?thumbnail", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, []byte{0xff, 0xd8}, rec.Body.Bytes()[:2])

	var d Descriptor
	rec = httptest.NewRecorder()
	b.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/clip.mp4?preview", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, "video", d.Type)
}
