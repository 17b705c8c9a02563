package dfxml

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/logicossoftware/go-dfxml/clock"
)

func TestWriterBasicDocument(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Push("dfxml", Attr{Name: "version", Value: "1.0"})
	w.Leaf("filename", "a&b")
	w.Leaf("empty", "")
	w.LeafInt("size", -3)
	w.LeafUint("count", 7)
	w.LeafFloat("ratio", 1.5)
	w.LeafTimeval("elapsed", 1500*time.Millisecond)
	w.LeafTime("when", time.Date(2026, 3, 1, 12, 0, 0, 1_500_000, time.UTC))
	w.Printf("bytes", []Attr{{Name: "unit", Value: "B"}}, "%d", 42)
	w.LeafRaw("raw", "<b>x</b>")
	if err := w.Pop("dfxml"); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	want := xmlHeader +
		"<dfxml version=\"1.0\">\n" +
		"  <filename>a&amp;b</filename>\n" +
		"  <empty/>\n" +
		"  <size>-3</size>\n" +
		"  <count>7</count>\n" +
		"  <ratio>1.500000</ratio>\n" +
		"  <elapsed>1.500000</elapsed>\n" +
		"  <when>2026-03-01T12:00:00.001500Z</when>\n" +
		"  <bytes unit=\"B\">42</bytes>\n" +
		"  <raw><b>x</b></raw>\n" +
		"</dfxml>\n"
	if buf.String() != want {
		t.Fatalf("output mismatch\nwant:\n%s\ngot:\n%s", want, buf.String())
	}
}

func TestWriterStackDiscipline(t *testing.T) {
	w := NewWriter(io.Discard)
	if err := w.Pop(""); !errors.Is(err, ErrStackUnderflow) {
		t.Fatalf("expected ErrStackUnderflow, got %v", err)
	}

	w = NewWriter(io.Discard)
	w.Push("y")
	if err := w.Pop("x"); !errors.Is(err, ErrTagMismatch) {
		t.Fatalf("expected ErrTagMismatch, got %v", err)
	}

	w = NewWriter(io.Discard)
	w.Push("a")
	w.Push("b")
	err := w.Close()
	if !errors.Is(err, ErrUnbalancedDocument) {
		t.Fatalf("expected ErrUnbalancedDocument, got %v", err)
	}
	if !strings.Contains(err.Error(), "a, b") {
		t.Fatalf("expected open tags in message, got %v", err)
	}
}

func TestWriterErrorsAreSticky(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Push("bad tag"); !errors.Is(err, ErrMalformedTagName) {
		t.Fatalf("expected ErrMalformedTagName, got %v", err)
	}
	if err := w.Leaf("ok", "1"); !errors.Is(err, ErrMalformedTagName) {
		t.Fatalf("expected latched error, got %v", err)
	}
	if err := w.Err(); !errors.Is(err, ErrMalformedTagName) {
		t.Fatalf("Err = %v", err)
	}
	if err := w.Close(); !errors.Is(err, ErrMalformedTagName) {
		t.Fatalf("Close = %v", err)
	}
	if err := w.Close(); !errors.Is(err, ErrWriterClosed) {
		t.Fatalf("second Close = %v", err)
	}
	if err := w.Leaf("ok", "1"); !errors.Is(err, ErrWriterClosed) {
		t.Fatalf("Leaf after Close = %v", err)
	}
}

func TestWriterMalformedNames(t *testing.T) {
	for _, name := range []string{"", "a b", "a\tb", "a<b", "a/b", "a=b"} {
		w := NewWriter(io.Discard)
		if err := w.Leaf(name, "x"); !errors.Is(err, ErrMalformedTagName) {
			t.Fatalf("%q: expected ErrMalformedTagName, got %v", name, err)
		}
	}
	w := NewWriter(io.Discard)
	if err := w.Leaf("ok", "x", Attr{Name: "bad attr", Value: "v"}); !errors.Is(err, ErrMalformedTagName) {
		t.Fatalf("expected ErrMalformedTagName for attribute, got %v", err)
	}
}

func TestWriterCompactMode(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Push("dfxml")
	w.SetCompact(true)
	w.Leaf("a", "1")
	w.Leaf("b", "2")
	w.SetCompact(false)
	w.Pop("dfxml")
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	want := xmlHeader + "<dfxml>\n  <a>1</a><b>2</b>\n</dfxml>\n"
	if buf.String() != want {
		t.Fatalf("output mismatch\nwant:\n%q\ngot:\n%q", want, buf.String())
	}
}

func TestWriterCompactOption(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, WithCompact(true))
	w.Push("dfxml")
	w.Leaf("a", "1")
	w.Pop("dfxml")
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), xmlHeader+"<dfxml><a>1</a></dfxml>"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWriterCommentIgnoresIndentation(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, WithCompact(true))
	w.Push("dfxml")
	if err := w.Comment("phase 1"); err != nil {
		t.Fatal(err)
	}
	// Comment flushes, so the text is visible before Close.
	if !strings.HasSuffix(buf.String(), "<dfxml><!-- phase 1 -->\n") {
		t.Fatalf("unexpected output %q", buf.String())
	}
	w.Pop("dfxml")
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestWriterPutsAndFlush(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Puts("<x>")
	w.RawPrintf("%d</x>\n", 5)
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), xmlHeader+"<x>5</x>\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestWriterCustomIndent(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, WithIndent("\t"))
	w.Push("a")
	w.Leaf("b", "1")
	w.Pop("")
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), xmlHeader+"<a>\n\t<b>1</b>\n</a>\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWriterConcurrentLeaves(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Push("dfxml")
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				w.Leaf("item", fmt.Sprintf("g%d-%d", g, i))
			}
		}(g)
	}
	wg.Wait()
	w.Pop("dfxml")
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 803 {
		t.Fatalf("expected 803 lines, got %d", len(lines))
	}
	for _, line := range lines[2:802] {
		if !strings.HasPrefix(line, "  <item>g") || !strings.HasSuffix(line, "</item>") {
			t.Fatalf("interleaved line %q", line)
		}
	}
	if err := Read(bytes.NewReader(buf.Bytes()), nil); err != nil {
		t.Fatalf("output does not parse: %v", err)
	}
}

func TestWriterTimestamps(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 900_000_000, time.UTC)
	clk := clock.Fake(start)
	var buf bytes.Buffer
	w := NewWriter(&buf, WithClock(clk))

	clk.Advance(1500 * time.Millisecond)
	w.AddTimestamp("phase1")
	clk.Advance(200 * time.Millisecond)
	w.AddTimestamp("phase2")
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	want := xmlHeader +
		"<timestamp name=\"phase1\" delta=\"1.500000\" total=\"1.500000\"/>\n" +
		"<timestamp name=\"phase2\" delta=\"0.200000\" total=\"1.700000\"/>\n"
	if buf.String() != want {
		t.Fatalf("output mismatch\nwant:\n%s\ngot:\n%s", want, buf.String())
	}
	if got := w.Elapsed(); got != 1700*time.Millisecond {
		t.Fatalf("Elapsed = %v", got)
	}
}

func TestTimevalBorrow(t *testing.T) {
	a := timeval{sec: 10, usec: 100_000}
	b := timeval{sec: 9, usec: 900_000}
	if got := a.sub(b).String(); got != "0.200000" {
		t.Fatalf("sub = %s", got)
	}
	if got := timevalFromDuration(2*time.Second + 5*time.Microsecond).String(); got != "2.000005" {
		t.Fatalf("timevalFromDuration = %s", got)
	}
	for d, want := range map[time.Duration]string{
		-1500 * time.Millisecond: "-1.500000",
		-500 * time.Millisecond:  "-0.500000",
		-2 * time.Second:         "-2.000000",
	} {
		if got := timevalFromDuration(d).String(); got != want {
			t.Fatalf("timevalFromDuration(%v) = %s, want %s", d, got, want)
		}
	}
	if got := b.sub(a).String(); got != "-0.200000" {
		t.Fatalf("negative sub = %s", got)
	}
}

func TestTo8601(t *testing.T) {
	cases := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), "2026-03-01T12:00:00Z"},
		{time.Date(2026, 3, 1, 12, 0, 0, 1_500_000, time.UTC), "2026-03-01T12:00:00.001500Z"},
		{time.Date(2026, 3, 1, 13, 0, 0, 0, time.FixedZone("CET", 3600)), "2026-03-01T12:00:00Z"},
	}
	for _, tc := range cases {
		if got := To8601(tc.in); got != tc.want {
			t.Fatalf("To8601(%v) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestWriterDTD(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, WithDTD(true), WithTempDir(t.TempDir()))
	w.Push("dfxml", Attr{Name: "version", Value: "1.0"})
	w.Push(tagFileObject)
	w.Leaf("filename", "a.txt")
	w.Pop(tagFileObject)
	w.Pop("dfxml")
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	want := xmlHeader +
		"<!DOCTYPE dfxml\n[\n" +
		"<!ELEMENT dfxml ANY >\n" +
		"<!ELEMENT filename ANY >\n" +
		"<!ELEMENT fileobject ANY >\n" +
		"<!ATTLIST dfxml version CDATA #IMPLIED>\n" +
		"]>\n" +
		"<dfxml version=\"1.0\">\n" +
		"  <fileobject>\n" +
		"    <filename>a.txt</filename>\n" +
		"  </fileobject>\n" +
		"</dfxml>\n"
	if buf.String() != want {
		t.Fatalf("output mismatch\nwant:\n%s\ngot:\n%s", want, buf.String())
	}
	got, err := ReadAll(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 1 || got[0].Filename() != "a.txt" {
		t.Fatalf("unexpected records %v", got)
	}
}

func TestCreateAndReadFile(t *testing.T) {
	for _, name := range []string{"out.xml", "out.xml.gz", "out.xml.zst", "out.xml.lz4", "out.xml.br"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			w, err := Create(path)
			if err != nil {
				t.Fatal(err)
			}
			if w.Path() != path {
				t.Fatalf("Path = %q", w.Path())
			}
			w.Push("dfxml")
			w.WriteFileObject(sampleFile())
			w.Pop("dfxml")
			if err := w.Close(); err != nil {
				t.Fatal(err)
			}
			var got []*FileObject
			err = ReadFile(path, func(fo *FileObject) error {
				got = append(got, fo.Clone())
				return nil
			})
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("expected 1 file object, got %d", len(got))
			}
			assertSameFile(t, sampleFile(), got[0])
		})
	}
}

func TestCreateWithDTDLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.xml")
	w, err := Create(path, WithDTD(true))
	if err != nil {
		t.Fatal(err)
	}
	w.Push("dfxml")
	w.Leaf("note", "x")
	w.Pop("dfxml")
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "report.xml" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("unexpected directory contents %v", names)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<!ELEMENT note ANY >") {
		t.Fatalf("missing DTD in\n%s", data)
	}
}

func TestCreateWithDTDUnbalancedRemovesSpool(t *testing.T) {
	dir := t.TempDir()
	w, err := Create(filepath.Join(dir, "report.xml"), WithDTD(true))
	if err != nil {
		t.Fatal(err)
	}
	w.Push("dfxml")
	if err := w.Close(); !errors.Is(err, ErrUnbalancedDocument) {
		t.Fatalf("expected ErrUnbalancedDocument, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected empty directory, got %d entries", len(entries))
	}
}

func TestCreateMissingDirectory(t *testing.T) {
	_, err := Create(filepath.Join(t.TempDir(), "missing", "out.xml"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestXMLMap(t *testing.T) {
	got := XMLMap(TagMap{"b": "2", "a": "<1>"}, "map", Attr{Name: "k", Value: "v"})
	if want := `<map k="v"><a>&lt;1&gt;</a><b>2</b></map>`; got != want {
		t.Fatalf("XMLMap = %s, want %s", got, want)
	}
}
