package domain

import (
	"path"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
)

// PreviewFileName is the single preview slot of a unit folder
const PreviewFileName = "preview.jpg"

// CompressedSuffixes are the stored-name suffixes of the payload codecs
// (xz, gzip, snappy). Listings present "<accepted name><suffix>" without the
// suffix.
var CompressedSuffixes = []string{".xz", ".gz", ".sz"}

var (
	// imageExtensions are accepted for the preview slot
	imageExtensions = []string{"jpg", "jpeg", "png", "gif", "webp"}

	// payloadExtensions are the printable model and archive formats
	payloadExtensions = []string{"stl", "xz", "gz", "zip", "7z", "rar"}

	// permissive MIME types; the extension check is the effective gate
	allowedMIMETypes = []string{
		"image/jpeg", "image/png", "image/gif", "image/webp",
		"model/stl", "application/sla", "application/vnd.ms-pki.stl",
		"application/x-xz", "application/gzip", "application/x-gzip",
		"application/x-7z-compressed", "application/x-rar-compressed",
		"application/vnd.rar", "application/octet-stream",
	}
)

// Extension returns the lowercased extension without the dot.
func Extension(name string) string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
}

// AllowedExtension reports whether name carries an accepted image or payload
// extension.
func AllowedExtension(name string) bool {
	ext := Extension(name)
	return slices.Contains(imageExtensions, ext) || slices.Contains(payloadExtensions, ext)
}

// AllowedMIMEType is the advisory MIME check. An empty type is accepted, as is
// anything mentioning zip or compressed.
func AllowedMIMEType(mimeType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if mt == "" {
		return true
	}
	if strings.Contains(mt, "zip") || strings.Contains(mt, "compressed") {
		return true
	}
	return slices.Contains(allowedMIMETypes, mt)
}

// AcceptedFile combines the extension allowlist and the MIME check.
func AcceptedFile(name, mimeType string) bool {
	return AllowedExtension(name) && AllowedMIMEType(mimeType)
}

// IsPreviewName reports whether name is the preview slot (case-insensitive).
func IsPreviewName(name string) bool {
	return strings.EqualFold(name, PreviewFileName)
}

func IsImageName(name string) bool {
	return slices.Contains(imageExtensions, Extension(name))
}

// IsPayloadName reports whether name is a model or archive file that belongs
// in a unit's file list. Compressed payloads count by their display name.
func IsPayloadName(name string) bool {
	return slices.Contains(payloadExtensions, Extension(name)) ||
		slices.Contains(payloadExtensions, Extension(DisplayName(name)))
}

// DisplayName strips a codec suffix from a stored name when what remains is
// itself an accepted file name.
// e.g., "troop.stl.xz" -> "troop.stl", "terrain.gz" -> "terrain.gz"
func DisplayName(stored string) string {
	lower := strings.ToLower(stored)
	for _, suffix := range CompressedSuffixes {
		if !strings.HasSuffix(lower, suffix) {
			continue
		}
		if trimmed := stored[:len(stored)-len(suffix)]; AllowedExtension(trimmed) {
			return trimmed
		}
	}
	return stored
}

// HumanSize formats a byte count for file entries, e.g. 1048576 -> "1.0 MiB".
func HumanSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
