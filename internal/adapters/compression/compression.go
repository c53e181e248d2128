// Package compression provides the stream codecs used for stored payloads,
// catalog exports and store values.
package compression

import (
	"fmt"

	"printvault/internal/ports"
)

// New returns the compressor registered under name.
func New(name string) (ports.Compressor, error) {
	switch name {
	case "xz":
		return XZ{}, nil
	case "gzip", "gz":
		return Gzip{}, nil
	case "snappy":
		return Snappy{}, nil
	default:
		return nil, fmt.Errorf("unknown compression codec %q", name)
	}
}
