package dfxml

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const xmlHeader = "<?xml version='1.0' encoding='UTF-8'?>\n"

// Element names the reader gives structural meaning to.
const (
	tagVolume     = "volume"
	tagBlockSize  = "block_size"
	tagFileObject = "fileobject"
	tagHashDigest = "hashdigest"
	tagByteRun    = "byte_run"
	tagRun        = "run"
	tagByteRuns   = "byte_runs"
)

const (
	attrImgOffset  = "img_offset"
	attrFileOffset = "file_offset"
	attrLen        = "len"
	attrSectorSize = "sector_size"
	attrType       = "type"
)

// timestampLayout is the wire format of start_time.
const timestampLayout = "2006-01-02T15:04:05Z"

// Attr is a single name="value" attribute. Values are escaped on output.
type Attr struct {
	Name  string
	Value string
}

func attrValue(attrs []Attr, name string) string {
	for _, a := range attrs {
		if a.Name == name {
			return a.Value
		}
	}
	return ""
}

func isRunTag(name string) bool {
	return name == tagByteRun || name == tagRun
}

// reservedTag reports element names that cannot be stored as plain
// file object tags because the reader interprets them.
func reservedTag(name string) bool {
	switch name {
	case tagFileObject, tagHashDigest, tagByteRun, tagRun, tagByteRuns, tagVolume:
		return true
	}
	return false
}

// parseByteRun builds a run from the attributes of a run or byte_run
// element. A field is only assigned while it is still zero, so the first
// non-zero occurrence of a repeated attribute wins. Unrecognized
// attributes are kept as run tags.
func parseByteRun(attrs []Attr) (ByteRun, error) {
	var run ByteRun
	for _, a := range attrs {
		var field *int64
		switch a.Name {
		case attrImgOffset:
			field = &run.ImageOffset
		case attrFileOffset:
			field = &run.FileOffset
		case attrLen:
			field = &run.Len
		case attrSectorSize:
			field = &run.SectorSize
		default:
			run.SetTag(a.Name, unpercent(a.Value))
			continue
		}
		if *field != 0 {
			continue
		}
		v, err := strconv.ParseInt(strings.TrimSpace(a.Value), 10, 64)
		if err != nil {
			return ByteRun{}, fmt.Errorf("%w: %s=%q", ErrInvalidValue, a.Name, a.Value)
		}
		*field = v
	}
	return run, nil
}

// runAttrs is the inverse of parseByteRun: unset fields are omitted and
// run tags follow in key order.
func runAttrs(run ByteRun) []Attr {
	attrs := make([]Attr, 0, 4+len(run.Tags))
	add := func(name string, v int64) {
		if v != 0 {
			attrs = append(attrs, Attr{Name: name, Value: strconv.FormatInt(v, 10)})
		}
	}
	add(attrImgOffset, run.ImageOffset)
	add(attrFileOffset, run.FileOffset)
	add(attrLen, run.Len)
	add(attrSectorSize, run.SectorSize)
	for k, v := range run.Tags.All() {
		attrs = append(attrs, Attr{Name: k, Value: v})
	}
	return attrs
}

// timeval is a seconds/microseconds pair. Subtraction borrows
// explicitly so the microsecond part stays in [0, 1e6).
type timeval struct {
	sec  int64
	usec int64
}

func timevalOf(t time.Time) timeval {
	return timeval{sec: t.Unix(), usec: int64(t.Nanosecond() / 1000)}
}

func timevalFromDuration(d time.Duration) timeval {
	tv := timeval{sec: int64(d / time.Second), usec: int64((d % time.Second) / time.Microsecond)}
	if tv.usec < 0 {
		tv.sec--
		tv.usec += 1_000_000
	}
	return tv
}

func (a timeval) sub(b timeval) timeval {
	sec := a.sec - b.sec
	usec := a.usec - b.usec
	if usec < 0 {
		sec--
		usec += 1_000_000
	}
	return timeval{sec: sec, usec: usec}
}

// String prints the value as signed seconds.microseconds; a negative
// value {-2, 500000} reads "-1.500000".
func (a timeval) String() string {
	if a.sec < 0 && a.usec > 0 {
		return fmt.Sprintf("-%d.%06d", -(a.sec + 1), 1_000_000-a.usec)
	}
	return fmt.Sprintf("%d.%06d", a.sec, a.usec)
}

// To8601 formats t in UTC as an ISO 8601 timestamp. Microseconds are
// appended only when non-zero.
func To8601(t time.Time) string {
	t = t.UTC()
	s := t.Format("2006-01-02T15:04:05")
	if us := t.Nanosecond() / 1000; us > 0 {
		s += fmt.Sprintf(".%06d", us)
	}
	return s + "Z"
}
