package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"a.txt", "text/plain; charset=utf-8"},
		{"PHOTO.JPG", "image/jpeg"},
		{"clip.MkV", "video/x-matroska"},
		{"index.html", "text/html; charset=utf-8"},
		{"archive.tar.gz", "application/gzip"},
		{"Makefile", DefaultContentType},
		{"weird.xyz123", DefaultContentType},
		{".bashrc", DefaultContentType},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ContentTypeFor(tt.name), "name: %s", tt.name)
	}
}

func TestMediaKindOf(t *testing.T) {
	assert.Equal(t, MediaImage, MediaKindOf("image/png"))
	assert.Equal(t, MediaVideo, MediaKindOf("video/mp4"))
	assert.Equal(t, MediaFile, MediaKindOf("audio/mpeg"))
	assert.Equal(t, MediaFile, MediaKindOf(DefaultContentType))
}
