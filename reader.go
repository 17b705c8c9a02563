package dfxml

import (
	"fmt"
	"strconv"
	"strings"
)

// Callback receives each completed file object. The FileObject and its
// Volume are only valid until the callback returns; use Clone to keep
// them. A non-nil error aborts the parse and is returned from it.
type Callback func(*FileObject) error

// Reader assembles file objects from a stream of element events.
//
// Parse drives it from an encoding/xml tokenizer. The event methods
// (StartElement, EndElement, CharData) are exported so that other
// tokenizers can drive it too. At most one volume and one file object
// are in flight at any time.
//
// A Reader is not safe for concurrent use.
type Reader struct {
	cfg readConfig
	fn  Callback

	stack   []string
	cdata   []byte
	volume  *VolumeObject
	file    *FileObject
	hashAlg string
	seen    bool

	line func() int // current input line, when known
	err  error
}

// NewReader returns a Reader that passes every completed file object to
// fn. fn may be nil.
func NewReader(fn Callback, opts ...ReadOption) *Reader {
	return &Reader{cfg: newReadConfig(opts), fn: fn}
}

// Reset discards all parse state so the Reader can take a new document.
func (r *Reader) Reset() {
	r.stack = r.stack[:0]
	r.cdata = r.cdata[:0]
	r.volume = nil
	r.file = nil
	r.hashAlg = ""
	r.seen = false
	r.err = nil
}

// Err returns the error that stopped the reader, if any.
func (r *Reader) Err() error { return r.err }

func (r *Reader) currentLine() int {
	if r.line == nil {
		return 0
	}
	return r.line()
}

// abort latches err and drops the records in flight.
func (r *Reader) abort(err error) error {
	if r.err == nil {
		r.err = err
		r.cfg.logger.Debug("dfxml reader aborted", "error", err, "line", r.currentLine())
	}
	r.file = nil
	r.volume = nil
	return r.err
}

func (r *Reader) parent() string {
	if len(r.stack) == 0 {
		return ""
	}
	return r.stack[len(r.stack)-1]
}

// StartElement handles an opening tag.
func (r *Reader) StartElement(name string, attrs []Attr) error {
	if r.err != nil {
		return r.err
	}
	if len(r.stack) >= r.cfg.limits.MaxDepth {
		return r.abort(fmt.Errorf("%w: depth %d", ErrLimitExceeded, len(r.stack)+1))
	}
	r.seen = true
	r.stack = append(r.stack, name)
	r.cdata = r.cdata[:0]

	switch name {
	case tagVolume:
		if r.volume != nil || r.file != nil {
			return r.abort(r.nested(name))
		}
		r.volume = &VolumeObject{BlockSize: DefaultBlockSize}
		r.cfg.logger.Debug("volume start", "line", r.currentLine())
	case tagFileObject:
		if r.file != nil {
			return r.abort(r.nested(name))
		}
		r.file = &FileObject{Volume: r.volume}
	case tagHashDigest:
		r.hashAlg = strings.ToLower(attrValue(attrs, attrType))
	case tagByteRun, tagRun:
		if r.file == nil {
			return nil
		}
		if len(r.file.ByteRuns) >= r.cfg.limits.MaxByteRuns {
			return r.abort(fmt.Errorf("%w: more than %d byte runs", ErrLimitExceeded, r.cfg.limits.MaxByteRuns))
		}
		run, err := parseByteRun(attrs)
		if err != nil {
			return r.abort(r.atLine(err))
		}
		r.file.ByteRuns = append(r.file.ByteRuns, run)
	}
	return nil
}

// CharData accumulates text for the innermost element.
func (r *Reader) CharData(b []byte) error {
	if r.err != nil {
		return r.err
	}
	if len(r.cdata)+len(b) > r.cfg.limits.MaxCharData {
		return r.abort(fmt.Errorf("%w: character data exceeds %d bytes", ErrLimitExceeded, r.cfg.limits.MaxCharData))
	}
	r.cdata = append(r.cdata, b...)
	return nil
}

// EndElement handles a closing tag. A name that does not close the
// innermost open element aborts with a *CloseTagMismatchError.
func (r *Reader) EndElement(name string) error {
	if r.err != nil {
		return r.err
	}
	top := r.parent()
	if top != name {
		return r.abort(&CloseTagMismatchError{Found: name, Expected: top, Line: r.currentLine()})
	}
	r.stack = r.stack[:len(r.stack)-1]
	parent := r.parent()
	text := unpercent(string(r.cdata))
	r.cdata = r.cdata[:0]

	switch name {
	case tagVolume:
		r.volume = nil
	case tagFileObject:
		f := r.file
		r.file = nil
		r.cfg.logger.Debug("fileobject", "filename", f.Filename(), "byte_runs", len(f.ByteRuns), "line", r.currentLine())
		if r.fn != nil {
			if err := r.fn(f); err != nil {
				return r.abort(err)
			}
		}
	case tagHashDigest:
		return r.endHashDigest(parent, text)
	case tagBlockSize:
		if parent == tagVolume && r.volume != nil && r.file == nil {
			v, err := strconv.ParseUint(strings.TrimSpace(text), 10, 64)
			if err != nil {
				return r.abort(r.atLine(fmt.Errorf("%w: block_size %q", ErrInvalidValue, text)))
			}
			r.volume.BlockSize = v
			return nil
		}
		return r.storeTag(parent, name, text)
	case tagByteRun, tagRun, tagByteRuns:
	default:
		return r.storeTag(parent, name, text)
	}
	return nil
}

func (r *Reader) endHashDigest(parent, digest string) error {
	if r.hashAlg == "" {
		r.cfg.logger.Debug("hashdigest without type dropped", "line", r.currentLine())
		return nil
	}
	digest = strings.TrimSpace(digest)
	var rec *Record
	switch {
	case isRunTag(parent) && r.file != nil && r.file.lastRun() != nil:
		rec = &r.file.lastRun().Record
	case parent == tagFileObject && r.file != nil:
		rec = &r.file.Record
	case parent == tagVolume && r.volume != nil && r.file == nil:
		rec = &r.volume.Record
	default:
		return nil
	}
	if _, ok := rec.Hashes[r.hashAlg]; !ok && len(rec.Hashes) >= r.cfg.limits.MaxTags {
		return r.abort(fmt.Errorf("%w: more than %d hashes", ErrLimitExceeded, r.cfg.limits.MaxTags))
	}
	rec.SetHash(r.hashAlg, digest)
	return nil
}

// storeTag records a leaf on the open file object, or on the volume when
// the leaf sits directly inside <volume>.
func (r *Reader) storeTag(parent, name, text string) error {
	var rec *Record
	switch {
	case r.file != nil:
		rec = &r.file.Record
	case parent == tagVolume && r.volume != nil:
		rec = &r.volume.Record
	default:
		return nil
	}
	if _, ok := rec.Tags[name]; !ok && len(rec.Tags) >= r.cfg.limits.MaxTags {
		return r.abort(fmt.Errorf("%w: more than %d tags", ErrLimitExceeded, r.cfg.limits.MaxTags))
	}
	rec.SetTag(name, text)
	return nil
}

// Finish checks that the document ended cleanly. Parse calls it at end
// of input.
func (r *Reader) Finish() error {
	if r.err != nil {
		return r.err
	}
	if !r.seen {
		return r.abort(&SyntaxError{Line: r.currentLine(), Msg: "no element found"})
	}
	if len(r.stack) > 0 {
		return r.abort(&SyntaxError{Line: r.currentLine(), Msg: "unexpected EOF, unclosed <" + r.parent() + ">"})
	}
	return nil
}

func (r *Reader) nested(name string) error {
	return r.atLine(fmt.Errorf("%w: <%s> inside <%s>", ErrNestedRecord, name, r.enclosingRecord()))
}

func (r *Reader) enclosingRecord() string {
	if r.file != nil {
		return tagFileObject
	}
	return tagVolume
}

func (r *Reader) atLine(err error) error {
	if l := r.currentLine(); l > 0 {
		return fmt.Errorf("%w (line %d)", err, l)
	}
	return err
}
