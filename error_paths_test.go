package dfxml

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

type errWriter struct{}

func (errWriter) Write(p []byte) (int, error) { return 0, io.ErrClosedPipe }

func TestZstdConstructorInjection(t *testing.T) {
	origW := newZstdWriter
	newZstdWriter = func(io.Writer) (*zstd.Encoder, error) { return nil, io.ErrClosedPipe }
	w := NewWriter(io.Discard, WithCompression(CompZSTD))
	newZstdWriter = origW
	if err := w.Err(); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if err := w.Close(); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("expected injected error from Close, got %v", err)
	}

	origR := newZstdReader
	newZstdReader = func(io.Reader) (*zstd.Decoder, error) { return nil, io.ErrClosedPipe }
	err := Read(strings.NewReader("<a/>"), nil, WithReadCompression(CompZSTD))
	newZstdReader = origR
	if !errors.Is(err, ErrInvalidCompression) {
		t.Fatalf("expected ErrInvalidCompression, got %v", err)
	}
}

func TestGzipReaderInjection(t *testing.T) {
	orig := newGzipReader
	newGzipReader = func(io.Reader) (*gzip.Reader, error) { return nil, io.ErrUnexpectedEOF }
	err := Read(strings.NewReader("<a/>"), nil, WithReadCompression(CompGZIP))
	newGzipReader = orig
	if !errors.Is(err, ErrInvalidCompression) {
		t.Fatalf("expected ErrInvalidCompression, got %v", err)
	}
}

func TestCloseErrorInjection(t *testing.T) {
	origLZ4 := lz4Close
	lz4Close = func(*lz4.Writer) error { return io.ErrClosedPipe }
	w := NewWriter(io.Discard, WithCompression(CompLZ4))
	err := w.Close()
	lz4Close = origLZ4
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("lz4: expected injected error, got %v", err)
	}

	origBR := brotliClose
	brotliClose = func(*brotli.Writer) error { return io.ErrClosedPipe }
	w = NewWriter(io.Discard, WithCompression(CompBR))
	err = w.Close()
	brotliClose = origBR
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("brotli: expected injected error, got %v", err)
	}
}

func TestWriterSinkErrors(t *testing.T) {
	w := NewWriter(errWriter{})
	if err := w.Comment("x"); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("Comment: expected io.ErrClosedPipe, got %v", err)
	}
	if err := w.Leaf("a", "1"); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("expected latched error, got %v", err)
	}

	w = NewWriter(errWriter{})
	if err := w.Flush(); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("Flush: expected io.ErrClosedPipe, got %v", err)
	}

	w = NewWriter(errWriter{})
	if err := w.Close(); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("Close: expected io.ErrClosedPipe, got %v", err)
	}
}

func TestWriterDTDSinkError(t *testing.T) {
	w := NewWriter(errWriter{}, WithDTD(true), WithTempDir(t.TempDir()))
	w.Leaf("a", "1")
	if err := w.Close(); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("expected io.ErrClosedPipe, got %v", err)
	}
}

func TestWriterDTDBadTempDir(t *testing.T) {
	w := NewWriter(io.Discard, WithDTD(true), WithTempDir(filepath.Join(t.TempDir(), "missing")))
	if err := w.Close(); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestReadFileOpenError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.xml")
	err := ReadFile(path, nil)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
	if !strings.Contains(err.Error(), path) {
		t.Fatalf("error should name the path: %v", err)
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestReadUnderlyingError(t *testing.T) {
	err := Read(errReader{}, nil, WithReadCompression(CompNone))
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("expected io.ErrClosedPipe, got %v", err)
	}
	var se *SyntaxError
	if errors.As(err, &se) {
		t.Fatal("I/O errors must not be reported as syntax errors")
	}
}

func TestReadResetsBetweenParses(t *testing.T) {
	r := NewReader(nil)
	if err := r.Parse(strings.NewReader("<a><b></a>")); !errors.Is(err, ErrCloseTagMismatch) {
		t.Fatalf("expected ErrCloseTagMismatch, got %v", err)
	}
	if err := r.Parse(bytes.NewReader([]byte("<a><b/></a>"))); err != nil {
		t.Fatalf("second parse: %v", err)
	}
}
