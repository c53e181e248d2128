package ports

import "io"

// Compressor transforms payload streams for storage
type Compressor interface {
	Name() string
	// Suffix is appended to stored file names, e.g. ".xz"
	Suffix() string
	Compress(dst io.Writer, src io.Reader) error
	Decompress(r io.Reader) (io.ReadCloser, error)
}
