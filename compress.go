package dfxml

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the stream compression applied to a DFXML
// document as a whole.
type Compression uint16

const (
	CompNone Compression = 0x0
	CompGZIP Compression = 0x1
	CompZSTD Compression = 0x2
	CompLZ4  Compression = 0x3
	CompBR   Compression = 0x4
)

var compressionNames = map[Compression]string{
	CompNone: "none",
	CompGZIP: "gzip",
	CompZSTD: "zstd",
	CompLZ4:  "lz4",
	CompBR:   "brotli",
}

func (c Compression) String() string {
	if s, ok := compressionNames[c]; ok {
		return s
	}
	return "unknown"
}

// ParseCompression accepts the names returned by String plus the usual
// file extensions ("gz", "zst", "br").
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "", "none":
		return CompNone, nil
	case "gzip", "gz":
		return CompGZIP, nil
	case "zstd", "zst":
		return CompZSTD, nil
	case "lz4":
		return CompLZ4, nil
	case "brotli", "br":
		return CompBR, nil
	}
	return CompNone, fmt.Errorf("%w: %q", ErrInvalidCompression, s)
}

// CompressionFromPath picks a compression from the file extension.
func CompressionFromPath(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return CompGZIP
	case ".zst":
		return CompZSTD
	case ".lz4":
		return CompLZ4
	case ".br":
		return CompBR
	}
	return CompNone
}

var (
	magicGZIP = []byte{0x1f, 0x8b}
	magicZSTD = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicLZ4  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// DetectCompression identifies a compressed stream by its leading
// bytes. Brotli streams carry no signature and are reported as CompNone.
func DetectCompression(prefix []byte) Compression {
	switch {
	case bytes.HasPrefix(prefix, magicZSTD):
		return CompZSTD
	case bytes.HasPrefix(prefix, magicLZ4):
		return CompLZ4
	case bytes.HasPrefix(prefix, magicGZIP):
		return CompGZIP
	}
	return CompNone
}

// Function variables for testing injection.
var (
	newZstdWriter = func(w io.Writer) (*zstd.Encoder, error) { return zstd.NewWriter(w) }
	newZstdReader = func(r io.Reader) (*zstd.Decoder, error) { return zstd.NewReader(r) }
	newGzipReader = func(r io.Reader) (*gzip.Reader, error) { return gzip.NewReader(r) }
	lz4Close      = func(w *lz4.Writer) error { return w.Close() }
	brotliClose   = func(w *brotli.Writer) error { return w.Close() }
)

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

type closeFunc struct {
	io.Writer
	close func() error
}

func (c closeFunc) Close() error { return c.close() }

// compressWriter wraps w so that bytes written are compressed with comp.
// Closing the result finishes the compressed stream but does not close w.
func compressWriter(comp Compression, w io.Writer) (io.WriteCloser, error) {
	switch comp {
	case CompNone:
		return nopWriteCloser{w}, nil
	case CompGZIP:
		return gzip.NewWriter(w), nil
	case CompZSTD:
		enc, err := newZstdWriter(w)
		if err != nil {
			return nil, err
		}
		return enc, nil
	case CompLZ4:
		zw := lz4.NewWriter(w)
		return closeFunc{Writer: zw, close: func() error { return lz4Close(zw) }}, nil
	case CompBR:
		bw := brotli.NewWriter(w)
		return closeFunc{Writer: bw, close: func() error { return brotliClose(bw) }}, nil
	}
	return nil, fmt.Errorf("%w: unknown compression %d", ErrInvalidCompression, comp)
}

// decompressReader wraps r with the decoder for comp. Closing the result
// releases the decoder but does not close r.
func decompressReader(comp Compression, r io.Reader) (io.ReadCloser, error) {
	switch comp {
	case CompNone:
		return io.NopCloser(r), nil
	case CompGZIP:
		zr, err := newGzipReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %v", ErrInvalidCompression, err)
		}
		return zr, nil
	case CompZSTD:
		dec, err := newZstdReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", ErrInvalidCompression, err)
		}
		return dec.IOReadCloser(), nil
	case CompLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case CompBR:
		return io.NopCloser(brotli.NewReader(r)), nil
	}
	return nil, fmt.Errorf("%w: unknown compression %d", ErrInvalidCompression, comp)
}

// sniffCompression peeks at the head of br without consuming it.
func sniffCompression(br *bufio.Reader) Compression {
	prefix, _ := br.Peek(len(magicZSTD))
	return DetectCompression(prefix)
}
