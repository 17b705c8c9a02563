package dfxml

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Writer produces a DFXML document incrementally.
//
// Every method takes the writer's mutex for the duration of the call,
// so leaves, comments and printf-leaves may be emitted from several
// goroutines without further coordination. A Push ... Pop section is not
// atomic as a unit: when other goroutines write concurrently, the caller
// must hold its own lock across the whole section or the sections will
// interleave.
//
// Structural misuse (malformed tag names, unbalanced Push/Pop, popping
// an empty stack) is never recovered: the first such error is latched,
// returned by every later call and reported again by Close.
type Writer struct {
	mu  sync.Mutex
	cfg writeConfig

	bw         *bufio.Writer
	compressor io.WriteCloser // wraps the destination when no DTD is spooled
	file       *os.File       // output file opened by Create
	sink       io.Writer      // destination given to NewWriter
	spool      *os.File       // body written before the DTD is known
	path       string

	stack   []string
	root    string
	tags    map[string]struct{}
	attrs   map[string]map[string]struct{}
	compact bool

	t0    time.Time
	tLast time.Time

	err    error
	closed bool
}

// NewWriter starts a document on w and writes the XML header.
func NewWriter(w io.Writer, opts ...WriteOption) *Writer {
	cfg := newWriteConfig(opts)
	wr := &Writer{cfg: cfg, sink: w}
	if cfg.dtd {
		spool, err := os.CreateTemp(cfg.tempDir, "dfxml_*")
		if err != nil {
			wr.err = fmt.Errorf("dfxml: cannot create spool file: %w", err)
			wr.bw = bufio.NewWriter(io.Discard)
		} else {
			wr.spool = spool
			wr.bw = bufio.NewWriter(spool)
		}
	} else {
		cw, err := compressWriter(cfg.compression, w)
		if err != nil {
			wr.err = err
			wr.bw = bufio.NewWriter(io.Discard)
		} else {
			wr.compressor = cw
			wr.bw = bufio.NewWriter(cw)
		}
	}
	wr.start()
	return wr
}

// Create opens path for writing and starts a document in it. Unless
// WithCompression is given, the compression follows the file extension.
// With WithDTD the document is spooled next to path and moved into place
// by Close.
func Create(path string, opts ...WriteOption) (*Writer, error) {
	cfg := newWriteConfig(opts)
	if !cfg.compressionSet {
		cfg.compression = CompressionFromPath(path)
	}
	w := &Writer{cfg: cfg, path: path}
	if cfg.dtd {
		spool, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+"_tmp_*")
		if err != nil {
			return nil, fmt.Errorf("dfxml: cannot create %s: %w", path, err)
		}
		w.spool = spool
		w.bw = bufio.NewWriter(spool)
	} else {
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("dfxml: cannot create %s: %w", path, err)
		}
		cw, err := compressWriter(cfg.compression, f)
		if err != nil {
			f.Close()
			return nil, err
		}
		w.file = f
		w.compressor = cw
		w.bw = bufio.NewWriter(cw)
	}
	w.start()
	return w, nil
}

func (w *Writer) start() {
	w.tags = make(map[string]struct{})
	w.attrs = make(map[string]map[string]struct{})
	w.compact = w.cfg.compact
	w.t0 = w.cfg.clock.Now()
	w.tLast = w.t0
	w.bw.WriteString(xmlHeader)
}

// Path returns the output path given to Create.
func (w *Writer) Path() string { return w.path }

// Err returns the first error the writer latched.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Depth returns the number of open elements.
func (w *Writer) Depth() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.stack)
}

func (w *Writer) checkLocked() error {
	if w.closed {
		return ErrWriterClosed
	}
	return w.err
}

func (w *Writer) failLocked(err error) error {
	if w.err == nil {
		w.err = err
		w.cfg.logger.Error("dfxml writer failed", "error", err)
	}
	return err
}

// verifyLocked validates a name and records it for the DTD.
func (w *Writer) verifyLocked(tag string, attrs []Attr) error {
	if err := validateName(tag); err != nil {
		return err
	}
	if err := validateAttrs(attrs); err != nil {
		return err
	}
	w.tags[tag] = struct{}{}
	if len(attrs) > 0 {
		set := w.attrs[tag]
		if set == nil {
			set = make(map[string]struct{})
			w.attrs[tag] = set
		}
		for _, a := range attrs {
			set[a.Name] = struct{}{}
		}
	}
	return nil
}

func (w *Writer) indentLocked(delta int) {
	if w.compact {
		return
	}
	for i := 0; i < len(w.stack)+delta; i++ {
		w.bw.WriteString(w.cfg.indent)
	}
}

func (w *Writer) newlineLocked() {
	if !w.compact {
		w.bw.WriteByte('\n')
	}
}

func (w *Writer) openTagLocked(tag string, attrs []Attr, selfClose bool) {
	w.bw.WriteByte('<')
	w.bw.WriteString(tag)
	for _, a := range attrs {
		w.bw.WriteByte(' ')
		w.bw.WriteString(a.Name)
		w.bw.WriteString(`="`)
		w.bw.WriteString(Escape(a.Value))
		w.bw.WriteByte('"')
	}
	if selfClose {
		w.bw.WriteByte('/')
	}
	w.bw.WriteByte('>')
}

func (w *Writer) closeTagLocked(tag string) {
	w.bw.WriteString("</")
	w.bw.WriteString(tag)
	w.bw.WriteByte('>')
}

// Push opens tag and makes it the innermost element.
func (w *Writer) Push(tag string, attrs ...Attr) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkLocked(); err != nil {
		return err
	}
	if err := w.verifyLocked(tag, attrs); err != nil {
		return w.failLocked(err)
	}
	if len(w.stack) == 0 && w.root == "" {
		w.root = tag
	}
	w.indentLocked(0)
	w.stack = append(w.stack, tag)
	w.openTagLocked(tag, attrs, false)
	w.newlineLocked()
	return nil
}

// Pop closes the innermost element. When tag is not empty it must name
// that element.
func (w *Writer) Pop(tag string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkLocked(); err != nil {
		return err
	}
	if len(w.stack) == 0 {
		return w.failLocked(fmt.Errorf("%w: pop(%s)", ErrStackUnderflow, tag))
	}
	top := w.stack[len(w.stack)-1]
	if tag != "" && tag != top {
		return w.failLocked(fmt.Errorf("%w: provided tag '%s' does not match top of stack '%s'", ErrTagMismatch, tag, top))
	}
	w.indentLocked(-1)
	w.closeTagLocked(top)
	w.stack = w.stack[:len(w.stack)-1]
	w.newlineLocked()
	return nil
}

func (w *Writer) leaf(tag, text string, attrs []Attr) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkLocked(); err != nil {
		return err
	}
	if err := w.verifyLocked(tag, attrs); err != nil {
		return w.failLocked(err)
	}
	if err := validateText(text); err != nil {
		return w.failLocked(fmt.Errorf("%w in <%s>", err, tag))
	}
	w.indentLocked(0)
	if text == "" {
		w.openTagLocked(tag, attrs, true)
	} else {
		w.openTagLocked(tag, attrs, false)
		w.bw.WriteString(text)
		w.closeTagLocked(tag)
	}
	w.newlineLocked()
	return nil
}

// Leaf writes <tag attrs>value</tag> in one call, escaping value. An
// empty value produces a self-closing element.
func (w *Writer) Leaf(tag, value string, attrs ...Attr) error {
	return w.leaf(tag, Escape(value), attrs)
}

// LeafRaw is Leaf without escaping. The caller guarantees value is
// well-formed XML content.
func (w *Writer) LeafRaw(tag, value string, attrs ...Attr) error {
	return w.leaf(tag, value, attrs)
}

func (w *Writer) LeafInt(tag string, v int64) error {
	return w.leaf(tag, strconv.FormatInt(v, 10), nil)
}

func (w *Writer) LeafUint(tag string, v uint64) error {
	return w.leaf(tag, strconv.FormatUint(v, 10), nil)
}

// LeafFloat formats v like printf's %f.
func (w *Writer) LeafFloat(tag string, v float64) error {
	return w.leaf(tag, strconv.FormatFloat(v, 'f', 6, 64), nil)
}

// LeafTimeval writes d as seconds.microseconds with six fractional
// digits.
func (w *Writer) LeafTimeval(tag string, d time.Duration) error {
	return w.leaf(tag, timevalFromDuration(d).String(), nil)
}

// LeafTime writes t as an ISO 8601 UTC timestamp.
func (w *Writer) LeafTime(tag string, t time.Time) error {
	return w.leaf(tag, To8601(t), nil)
}

// Printf formats args into the text of tag and writes it like Leaf.
func (w *Writer) Printf(tag string, attrs []Attr, format string, args ...any) error {
	return w.leaf(tag, Escape(fmt.Sprintf(format, args...)), attrs)
}

// Comment writes an XML comment on its own line regardless of the
// indentation and compact settings, then flushes.
func (w *Writer) Comment(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkLocked(); err != nil {
		return err
	}
	w.bw.WriteString("<!-- ")
	w.bw.WriteString(text)
	w.bw.WriteString(" -->\n")
	return w.flushLocked()
}

// Puts writes s verbatim at the cursor.
func (w *Writer) Puts(s string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkLocked(); err != nil {
		return err
	}
	w.bw.WriteString(s)
	return nil
}

// RawPrintf formats verbatim text at the cursor.
func (w *Writer) RawPrintf(format string, args ...any) error {
	return w.Puts(fmt.Sprintf(format, args...))
}

// SetCompact switches single-line output on or off. The switch writes an
// indentation spacer or a newline so the output stays readable.
func (w *Writer) SetCompact(v bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkLocked(); err != nil {
		return err
	}
	if v == w.compact {
		return nil
	}
	if v {
		w.indentLocked(0)
	} else {
		w.bw.WriteByte('\n')
	}
	w.compact = v
	return nil
}

// Flush pushes buffered output to the destination.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkLocked(); err != nil {
		return err
	}
	return w.flushLocked()
}

func (w *Writer) flushLocked() error {
	if err := w.bw.Flush(); err != nil {
		return w.failLocked(err)
	}
	return nil
}

// Close finishes the document. It fails with ErrUnbalancedDocument if
// elements are still open; the partial output is then abandoned.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWriterClosed
	}
	w.closed = true
	if w.err == nil && len(w.stack) > 0 {
		w.failLocked(fmt.Errorf("%w: open tags %s", ErrUnbalancedDocument, strings.Join(w.stack, ", ")))
	}
	if w.err != nil {
		w.abortLocked()
		return w.err
	}
	if err := w.bw.Flush(); err != nil {
		w.abortLocked()
		return w.failLocked(err)
	}
	if w.spool != nil {
		if err := w.finishDTDLocked(); err != nil {
			w.abortLocked()
			return w.failLocked(err)
		}
		return nil
	}
	var errs []error
	if w.compressor != nil {
		errs = append(errs, w.compressor.Close())
	}
	if w.file != nil {
		errs = append(errs, w.file.Close())
	}
	if err := errors.Join(errs...); err != nil {
		return w.failLocked(err)
	}
	return nil
}

// abortLocked releases every resource without finishing the output.
func (w *Writer) abortLocked() {
	if w.compressor != nil {
		w.compressor.Close()
	}
	if w.file != nil {
		w.file.Close()
	}
	if w.spool != nil {
		w.spool.Close()
		os.Remove(w.spool.Name())
	}
}
