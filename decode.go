package dfxml

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/net/html/charset"
)

// defaultCharsetReader converts documents that declare an encoding other
// than UTF-8.
var defaultCharsetReader = charset.NewReaderLabel

// Parse reads a DFXML document from src and feeds it through the reader.
//
// The parsing process:
//  1. Detects stream compression from the leading bytes, unless
//     WithReadCompression fixed it
//  2. Tokenizes the decompressed stream incrementally
//  3. Calls the callback once per completed <fileobject>, in document order
//
// Parse returns a *SyntaxError when the tokenizer rejects the input, a
// *CloseTagMismatchError for a misplaced end tag, ErrNestedRecord for a
// <fileobject> or <volume> inside another, ErrLimitExceeded when a Limits
// bound is crossed, or the callback's error. File objects still open at
// the point of failure are discarded.
func (r *Reader) Parse(src io.Reader) error {
	r.Reset()
	br := bufio.NewReader(src)
	comp := r.cfg.compression
	if r.cfg.detect {
		comp = sniffCompression(br)
	}
	rc, err := decompressReader(comp, br)
	if err != nil {
		return r.abort(err)
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	dec.CharsetReader = r.cfg.charsetReader
	r.line = func() int {
		line, _ := dec.InputPos()
		return line
	}
	defer func() { r.line = nil }()

	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var se *xml.SyntaxError
			if errors.As(err, &se) {
				return r.abort(&SyntaxError{Line: se.Line, Msg: se.Msg})
			}
			return r.abort(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			attrs := make([]Attr, len(t.Attr))
			for i, a := range t.Attr {
				attrs[i] = Attr{Name: qualifiedName(a.Name), Value: a.Value}
			}
			err = r.StartElement(qualifiedName(t.Name), attrs)
		case xml.EndElement:
			err = r.EndElement(qualifiedName(t.Name))
		case xml.CharData:
			err = r.CharData(t)
		}
		if err != nil {
			return err
		}
	}
	return r.Finish()
}

// qualifiedName restores the prefix:local form of a raw token name.
func qualifiedName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// Read parses the DFXML document in src, calling fn for every file
// object.
func Read(src io.Reader, fn Callback, opts ...ReadOption) error {
	return NewReader(fn, opts...).Parse(src)
}

// ReadFile parses the DFXML file at path. Brotli compression, which has
// no signature, is recognized by the .br extension.
func ReadFile(path string, fn Callback, opts ...ReadOption) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("dfxml: cannot open %s: %w", path, err)
	}
	defer f.Close()
	if CompressionFromPath(path) == CompBR {
		opts = append([]ReadOption{WithReadCompression(CompBR)}, opts...)
	}
	return Read(f, fn, opts...)
}

// ReadAll collects every file object in src. It holds the whole document's
// records in memory; prefer Read for large inputs.
func ReadAll(src io.Reader, opts ...ReadOption) ([]*FileObject, error) {
	var out []*FileObject
	err := Read(src, func(fo *FileObject) error {
		out = append(out, fo.Clone())
		return nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}
