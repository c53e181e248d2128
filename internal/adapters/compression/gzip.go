package compression

import (
	"io"

	"github.com/klauspost/compress/gzip"
)

// Gzip stores payloads as .gz streams
type Gzip struct{}

func (Gzip) Name() string   { return "gzip" }
func (Gzip) Suffix() string { return ".gz" }

func (Gzip) Compress(dst io.Writer, src io.Reader) error {
	w, err := gzip.NewWriterLevel(dst, gzip.BestCompression)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, src); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (Gzip) Decompress(r io.Reader) (io.ReadCloser, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	return zr, nil
}
