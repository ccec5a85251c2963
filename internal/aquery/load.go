package aquery

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"compdb/internal/errors"
)

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	gzipMagic = []byte{0x1f, 0x8b}
)

// Decode reads a JSON aquery document from r. The program name bazel puts
// first on every action's command line is split off into Action.Program.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.InvalidTrace, err, "failed to decode action graph")
	}
	for i := range doc.Actions {
		doc.Actions[i].splitProgram()
	}
	return &doc, nil
}

// Open loads a saved aquery document from path. Zstandard and gzip
// compressed files are detected by their magic bytes, not their extension.
func Open(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace: %w", err)
	}
	defer func() { _ = f.Close() }()

	r, closeFn, err := decompress(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrap(errors.InvalidTrace, err, "failed to read %s", path)
	}
	defer closeFn()

	return Decode(r)
}

// decompress wraps br in a decoder matching its leading bytes.
func decompress(br *bufio.Reader) (io.Reader, func(), error) {
	head, err := br.Peek(len(zstdMagic))
	if err != nil && err != io.EOF {
		return nil, nil, err
	}

	switch {
	case bytes.HasPrefix(head, zstdMagic):
		decoder, err := zstd.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		return decoder, decoder.Close, nil
	case bytes.HasPrefix(head, gzipMagic):
		gr, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("creating gzip reader: %w", err)
		}
		return gr, func() { _ = gr.Close() }, nil
	default:
		return br, func() {}, nil
	}
}
