package traceload

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"
)

// lz4Magic is the little-endian LZ4 frame magic number 0x184D2204.
var lz4Magic = []byte{0x04, 0x22, 0x4D, 0x18}

// readCloser pairs a decompressing reader with the file it drains.
type readCloser struct {
	io.Reader
	io.Closer
}

// Open opens a trace file for reading. LZ4 frames are detected by their
// magic number and decompressed transparently.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}

	return readCloser{Reader: Decompress(f), Closer: f}, nil
}

// Decompress returns r unchanged unless it begins with an LZ4 frame.
func Decompress(r io.Reader) io.Reader {
	br := bufio.NewReader(r)

	head, err := br.Peek(len(lz4Magic))
	if err != nil || !bytes.Equal(head, lz4Magic) {
		return br
	}

	return lz4.NewReader(br)
}

// Compress writes src to dst as a single LZ4 frame.
func Compress(dst io.Writer, src io.Reader) error {
	zw := lz4.NewWriter(dst)

	if _, err := io.Copy(zw, src); err != nil {
		return fmt.Errorf("lz4 compress: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("lz4 close: %w", err)
	}

	return nil
}

// LoadFile loads the trace at path.
func LoadFile(ctx context.Context, path string, opts ...Option) (*Trace, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	tr, err := Load(ctx, rc, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return tr, nil
}
