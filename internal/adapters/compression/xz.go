package compression

import (
	"fmt"
	"io"

	"github.com/ulikunitz/xz"
)

// XZ stores payloads as .xz streams
type XZ struct{}

func (XZ) Name() string   { return "xz" }
func (XZ) Suffix() string { return ".xz" }

func (XZ) Compress(dst io.Writer, src io.Reader) error {
	w, err := xz.NewWriter(dst)
	if err != nil {
		return fmt.Errorf("failed to start xz stream: %w", err)
	}
	if _, err := io.Copy(w, src); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (XZ) Decompress(r io.Reader) (io.ReadCloser, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read xz header: %w", err)
	}
	return io.NopCloser(xr), nil
}
