package dfxml

import (
	"fmt"
	"strconv"
	"strings"
)

// WriteFileObject writes fo as a complete <fileobject> element: tags in
// key order, then byte runs in order, then whole-file digests. The
// output reads back into an equal FileObject.
func (w *Writer) WriteFileObject(fo *FileObject) error {
	if err := validateRecordTags(fo.Tags); err != nil {
		return w.fail(err)
	}
	w.Push(tagFileObject)
	for k, v := range fo.Tags.All() {
		w.Leaf(k, v)
	}
	for i := range fo.ByteRuns {
		w.WriteByteRun(&fo.ByteRuns[i])
	}
	w.writeHashes(fo.Hashes)
	return w.Pop(tagFileObject)
}

// WriteByteRun writes one <byte_run> element. Runs without digests are
// self-closing.
func (w *Writer) WriteByteRun(run *ByteRun) error {
	if err := validateRunTags(run.Tags); err != nil {
		return w.fail(err)
	}
	attrs := runAttrs(*run)
	if len(run.Hashes) == 0 {
		return w.leaf(tagByteRun, "", attrs)
	}
	w.Push(tagByteRun, attrs...)
	w.writeHashes(run.Hashes)
	return w.Pop(tagByteRun)
}

// writeHashes emits digests in algorithm order with the type upper-cased.
// Digests without an algorithm name are skipped.
func (w *Writer) writeHashes(h HashDigestMap) {
	for _, alg := range h.Algorithms() {
		if alg == "" {
			continue
		}
		w.Leaf(tagHashDigest, h[alg], Attr{Name: attrType, Value: strings.ToUpper(alg)})
	}
}

// StartVolume opens a <volume> element and writes its block size and
// tags. Callers write file objects next and finish with EndVolume.
func (w *Writer) StartVolume(v *VolumeObject, attrs ...Attr) error {
	if err := validateRecordTags(v.Tags); err != nil {
		return w.fail(err)
	}
	if _, ok := v.Tags[tagBlockSize]; ok {
		return w.fail(fmt.Errorf("%w: tag '%s' is reserved", ErrMalformedTagName, tagBlockSize))
	}
	w.Push(tagVolume, attrs...)
	bs := v.BlockSize
	if bs == 0 {
		bs = DefaultBlockSize
	}
	w.leaf(tagBlockSize, strconv.FormatUint(bs, 10), nil)
	for k, val := range v.Tags.All() {
		w.Leaf(k, val)
	}
	w.writeHashes(v.Hashes)
	return w.Err()
}

// EndVolume closes the element opened by StartVolume.
func (w *Writer) EndVolume() error {
	return w.Pop(tagVolume)
}

func (w *Writer) fail(err error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if cerr := w.checkLocked(); cerr != nil {
		return cerr
	}
	return w.failLocked(err)
}
