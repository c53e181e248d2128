package compression

import (
	"io"

	"github.com/golang/snappy"
)

// Snappy is the framed snappy format. It is fast but compresses STL meshes
// poorly, so it is used for catalog values rather than payloads.
type Snappy struct{}

func (Snappy) Name() string   { return "snappy" }
func (Snappy) Suffix() string { return ".sz" }

func (Snappy) Compress(dst io.Writer, src io.Reader) error {
	w := snappy.NewBufferedWriter(dst)
	if _, err := io.Copy(w, src); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (Snappy) Decompress(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(snappy.NewReader(r)), nil
}

// Encode compresses a whole value in the block format.
func (Snappy) Encode(b []byte) []byte { return snappy.Encode(nil, b) }

// Decode reverses Encode.
func (Snappy) Decode(b []byte) ([]byte, error) { return snappy.Decode(nil, b) }
