package dfxml

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"iter"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// DefaultBlockSize is the block size of a volume that carries no
// <block_size> element.
const DefaultBlockSize uint64 = 512

// TagMap maps an element name to the last text content seen for it.
// Iteration through Keys and All is sorted by key, which is also the
// order the Writer emits tags in.
type TagMap map[string]string

// Get returns the value stored for tag.
func (m TagMap) Get(tag string) (string, bool) {
	v, ok := m[tag]
	return v, ok
}

// Keys returns the tag names in ascending order.
func (m TagMap) Keys() []string {
	return slices.Sorted(maps.Keys(m))
}

// All iterates over the map in ascending key order.
func (m TagMap) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, k := range m.Keys() {
			if !yield(k, m[k]) {
				return
			}
		}
	}
}

// HashDigestMap maps a lower-cased algorithm name ("md5", "sha1") to a
// hex-encoded digest.
type HashDigestMap map[string]string

// Get looks up the digest for alg, ignoring case.
func (m HashDigestMap) Get(alg string) (string, bool) {
	v, ok := m[strings.ToLower(alg)]
	return v, ok
}

// Algorithms returns the algorithm names in ascending order.
func (m HashDigestMap) Algorithms() []string {
	return slices.Sorted(maps.Keys(m))
}

// Binary decodes the digest stored for alg. It returns ErrHashNotFound
// when alg is absent and ErrInvalidDigest when the value is not hex.
func (m HashDigestMap) Binary(alg string) ([]byte, error) {
	s, ok := m.Get(alg)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHashNotFound, strings.ToLower(alg))
	}
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDigest, strings.ToLower(alg), err)
	}
	return b, nil
}

func (m HashDigestMap) String() string {
	var b strings.Builder
	for _, alg := range m.Algorithms() {
		b.WriteString(alg)
		b.WriteByte(':')
		b.WriteString(m[alg])
		b.WriteByte(' ')
	}
	return b.String()
}

// Record is the metadata every DFXML object carries: free-form tags and
// hash digests. Record types embed it.
type Record struct {
	Tags   TagMap
	Hashes HashDigestMap
}

// SetTag stores value under tag, replacing any earlier value.
func (r *Record) SetTag(tag, value string) {
	if r.Tags == nil {
		r.Tags = make(TagMap)
	}
	r.Tags[tag] = value
}

// SetHash stores a hex digest under the lower-cased algorithm name.
func (r *Record) SetHash(alg, digest string) {
	if r.Hashes == nil {
		r.Hashes = make(HashDigestMap)
	}
	r.Hashes[strings.ToLower(alg)] = digest
}

// MD5 decodes the "md5" digest.
func (r *Record) MD5() ([md5.Size]byte, error) {
	var out [md5.Size]byte
	return out, r.decodeFixed(AlgMD5, out[:])
}

// SHA1 decodes the "sha1" digest.
func (r *Record) SHA1() ([sha1.Size]byte, error) {
	var out [sha1.Size]byte
	return out, r.decodeFixed(AlgSHA1, out[:])
}

// SHA256 decodes the "sha256" digest.
func (r *Record) SHA256() ([sha256.Size]byte, error) {
	var out [sha256.Size]byte
	return out, r.decodeFixed(AlgSHA256, out[:])
}

func (r *Record) decodeFixed(alg string, dst []byte) error {
	b, err := r.Hashes.Binary(alg)
	if err != nil {
		return err
	}
	if len(b) != len(dst) {
		return fmt.Errorf("%w: %s digest is %d bytes, want %d", ErrInvalidDigest, alg, len(b), len(dst))
	}
	copy(dst, b)
	return nil
}

func (r Record) clone() Record {
	return Record{Tags: maps.Clone(r.Tags), Hashes: maps.Clone(r.Hashes)}
}

// ByteRun describes one contiguous extent of a file. Zero means the
// field was not present.
type ByteRun struct {
	Record
	ImageOffset int64
	FileOffset  int64
	Len         int64
	SectorSize  int64
}

func (b ByteRun) String() string {
	var s strings.Builder
	s.WriteString("byte_run[")
	field := func(name string, v int64) {
		if v != 0 {
			s.WriteString(name)
			s.WriteByte('=')
			s.WriteString(strconv.FormatInt(v, 10))
			s.WriteByte(';')
		}
	}
	field(attrImgOffset, b.ImageOffset)
	field(attrFileOffset, b.FileOffset)
	field(attrLen, b.Len)
	field(attrSectorSize, b.SectorSize)
	s.WriteByte(']')
	return s.String()
}

// ImageObject stands for the disk image a volume was read from.
type ImageObject struct {
	Record
}

// VolumeObject is one <volume> section.
type VolumeObject struct {
	Record
	BlockSize uint64
	Image     ImageObject
}

// FileObject is one <fileobject> section.
//
// Volume refers to the volume that was open when the file object
// started, or nil. Like the FileObject itself it is only valid for the
// duration of the callback that delivers it; use Clone to keep a copy.
type FileObject struct {
	Record
	Volume   *VolumeObject
	ByteRuns []ByteRun
}

// Filename returns the "filename" tag.
func (f *FileObject) Filename() string {
	return f.Tags["filename"]
}

// Clone returns a deep copy that is safe to retain after the reader
// callback returns.
func (f *FileObject) Clone() *FileObject {
	out := &FileObject{Record: f.Record.clone()}
	if f.Volume != nil {
		v := *f.Volume
		v.Record = f.Volume.Record.clone()
		v.Image.Record = f.Volume.Image.Record.clone()
		out.Volume = &v
	}
	if f.ByteRuns != nil {
		out.ByteRuns = make([]ByteRun, len(f.ByteRuns))
		for i, run := range f.ByteRuns {
			run.Record = run.Record.clone()
			out.ByteRuns[i] = run
		}
	}
	return out
}

// lastRun returns the most recently appended byte run, the only run the
// reader mutates after appending it.
func (f *FileObject) lastRun() *ByteRun {
	if len(f.ByteRuns) == 0 {
		return nil
	}
	return &f.ByteRuns[len(f.ByteRuns)-1]
}
