package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAcceptedFile(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		mimeType string
		want     bool
	}{
		{name: "stl octet stream", fileName: "troop.stl", mimeType: "application/octet-stream", want: true},
		{name: "stl no mime", fileName: "troop.STL", mimeType: "", want: true},
		{name: "jpeg preview", fileName: "cover.jpeg", mimeType: "image/jpeg", want: true},
		{name: "zip variant mime", fileName: "pack.zip", mimeType: "application/x-zip-compressed", want: true},
		{name: "7z", fileName: "pack.7z", mimeType: "application/x-7z-compressed", want: true},
		{name: "mime with params", fileName: "troop.stl", mimeType: "model/stl; charset=binary", want: true},
		{name: "exe rejected by extension", fileName: "setup.exe", mimeType: "application/octet-stream", want: false},
		{name: "text mime rejected", fileName: "troop.stl", mimeType: "text/html", want: false},
		{name: "no extension", fileName: "README", mimeType: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AcceptedFile(tt.fileName, tt.mimeType))
		})
	}
}

func TestFileClassification(t *testing.T) {
	assert.True(t, IsPreviewName("preview.jpg"))
	assert.True(t, IsPreviewName("PREVIEW.JPG"))
	assert.False(t, IsPreviewName("preview.png"))

	assert.True(t, IsPayloadName("troop.stl"))
	assert.True(t, IsPayloadName("troop.stl.xz"))
	assert.True(t, IsPayloadName("troop.stl.sz"))
	assert.False(t, IsPayloadName("notes.txt.sz"))
	assert.False(t, IsPayloadName("preview.jpg"))
	assert.False(t, IsPayloadName("notes.txt"))
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		stored string
		want   string
	}{
		{stored: "troop.stl.xz", want: "troop.stl"},
		{stored: "troop.stl.XZ", want: "troop.stl"},
		{stored: "troop.stl", want: "troop.stl"},
		{stored: ".xz", want: ".xz"},
		{stored: "troop.stl.gz", want: "troop.stl"},
		{stored: "troop.stl.sz", want: "troop.stl"},
		{stored: "terrain.gz", want: "terrain.gz"},
		{stored: "bundle.zip.xz", want: "bundle.zip"},
		{stored: "notes.txt.xz", want: "notes.txt.xz"},
	}
	for _, tt := range tests {
		t.Run(tt.stored, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayName(tt.stored))
		})
	}
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "1.0 MiB", HumanSize(1<<20))
	assert.Equal(t, "10 KiB", HumanSize(10<<10))
	assert.Equal(t, "0 B", HumanSize(-5))
}
