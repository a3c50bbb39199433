package preview

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"imuslab.com/fileviewer/mod/browser"
	"imuslab.com/fileviewer/mod/database/dbinc"
)

// ThumbnailRecord is stored in the thumbnails table, keyed by the
// thumbnail file name without extension
type ThumbnailRecord struct {
	Source  string `json:"source"`  //Slash separated path relative to the root
	ModTime int64  `json:"modTime"` //Source modification time (unix nano) when generated
	Created int64  `json:"created"` //Unix timestamp of generation
}

const partialSuffix = ".part.jpg"

// Thumbnail returns the path of an up to date JPEG thumbnail for a video
// entry, generating it with ffmpeg if needed. Concurrent calls for the
// same file wait for a single ffmpeg run.
func (g *Generator) Thumbnail(ctx context.Context, entry *browser.ResolvedEntry) (string, error) {
	if entry.Kind != browser.EntryFile {
		return "", ErrNotAFile
	}

	key := thumbnailKey(entry.Path.Rel())
	thumbPath := filepath.Join(g.folder, key+".jpg")

	g.locks.Lock(key)
	defer g.locks.Unlock(key)

	if g.isFresh(key, thumbPath, entry) {
		return thumbPath, nil
	}

	if err := g.renderThumbnail(ctx, entry.AbsPath, thumbPath); err != nil {
		return "", err
	}

	if g.option.Database != nil {
		record := ThumbnailRecord{
			Source:  entry.Path.Rel(),
			ModTime: entry.Info.ModTime().UnixNano(),
			Created: time.Now().Unix(),
		}
		if err := g.option.Database.Write(thumbnailTable, key, record); err != nil {
			g.logError("Unable to index thumbnail of "+entry.Path.String(), err)
		}
	}
	return thumbPath, nil
}

// isFresh checks if the thumbnail on disk was made from the current version of the source
func (g *Generator) isFresh(key string, thumbPath string, entry *browser.ResolvedEntry) bool {
	thumbInfo, err := os.Stat(thumbPath)
	if err != nil {
		return false
	}

	if g.option.Database == nil {
		return !thumbInfo.ModTime().Before(entry.Info.ModTime())
	}

	record := ThumbnailRecord{}
	if err := g.option.Database.Read(thumbnailTable, key, &record); err != nil {
		return false
	}
	return record.Source == entry.Path.Rel() && record.ModTime == entry.Info.ModTime().UnixNano()
}

// renderThumbnail grabs a frame two seconds in, or the first frame for
// shorter clips, and writes it atomically to thumbPath
func (g *Generator) renderThumbnail(ctx context.Context, source string, thumbPath string) error {
	partial := strings.TrimSuffix(thumbPath, ".jpg") + partialSuffix
	defer os.Remove(partial)

	var lastErr error
	for _, seek := range []string{"00:00:02", "00:00:00"} {
		os.Remove(partial)
		cmd := exec.CommandContext(ctx, g.option.FFmpegPath,
			"-y",
			"-ss", seek,
			"-i", source,
			"-vframes", "1",
			"-vf", "scale=320:-1",
			partial,
		)
		output, err := cmd.CombinedOutput()
		if err != nil {
			lastErr = fmt.Errorf("%w: %w: %s", ErrThumbnailFailed, err, lastLine(output))
			if ctx.Err() != nil {
				return lastErr
			}
			continue
		}
		if info, err := os.Stat(partial); err == nil && info.Size() > 0 {
			return os.Rename(partial, thumbPath)
		}
		lastErr = fmt.Errorf("%w: no frame at %s", ErrThumbnailFailed, seek)
	}
	return lastErr
}

// Prune removes thumbnails whose source file is gone or has changed since
// the thumbnail was generated, along with leftovers of interrupted runs.
// Returns the number of removed thumbnails.
func (g *Generator) Prune() (int, error) {
	partials, _ := filepath.Glob(filepath.Join(g.folder, "*"+partialSuffix))
	for _, p := range partials {
		os.Remove(p)
	}

	if g.option.Database == nil {
		return 0, nil
	}

	entries, err := g.option.Database.ListTable(thumbnailTable)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, keypairs := range entries {
		key := string(keypairs[0])
		record := ThumbnailRecord{}
		if err := json.Unmarshal(keypairs[1], &record); err == nil && g.sourceUnchanged(record) {
			continue
		}

		thumbPath := filepath.Join(g.folder, key+".jpg")
		if err := os.Remove(thumbPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			g.logError("Unable to remove stale thumbnail "+thumbPath, err)
			continue
		}
		if err := g.option.Database.Delete(thumbnailTable, key); err != nil && !errors.Is(err, dbinc.ErrKeyNotFound) {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (g *Generator) sourceUnchanged(record ThumbnailRecord) bool {
	p, err := browser.CleanRequestPath(record.Source)
	if err != nil {
		return false
	}
	entry, err := g.option.Root.Classify(p)
	if err != nil || entry.Kind != browser.EntryFile {
		return false
	}
	return entry.Info.ModTime().UnixNano() == record.ModTime
}

// thumbnailKey is the md5 of the relative source path, used as the file name
func thumbnailKey(rel string) string {
	sum := md5.Sum([]byte(rel))
	return hex.EncodeToString(sum[:])
}

func lastLine(output []byte) string {
	lines := bytes.Split(bytes.TrimSpace(output), []byte("\n"))
	return string(lines[len(lines)-1])
}
