package dfxml

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// writeDTD emits an internal DOCTYPE declaring every element and
// attribute name the document used.
func writeDTD(w io.Writer, root string, tags map[string]struct{}, attrs map[string]map[string]struct{}) error {
	if root == "" {
		root = "dfxml"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<!DOCTYPE %s\n[\n", root)
	for _, tag := range sortedSet(tags) {
		fmt.Fprintf(&b, "<!ELEMENT %s ANY >\n", tag)
	}
	for _, tag := range sortedSet(tags) {
		for _, name := range sortedSet(attrs[tag]) {
			fmt.Fprintf(&b, "<!ATTLIST %s %s CDATA #IMPLIED>\n", tag, name)
		}
	}
	b.WriteString("]>\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func sortedSet(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// finishDTDLocked assembles the final document from the spool: the XML
// header, the DOCTYPE, then the spooled body.
func (w *Writer) finishDTDLocked() (err error) {
	spool := w.spool
	defer func() {
		spool.Close()
		os.Remove(spool.Name())
	}()
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return err
	}

	var dst io.Writer
	var out *os.File
	if w.path != "" {
		out, err = os.CreateTemp(filepath.Dir(w.path), ".dfxml_out_*")
		if err != nil {
			return fmt.Errorf("dfxml: cannot create %s: %w", w.path, err)
		}
		defer func() {
			if err != nil {
				out.Close()
				os.Remove(out.Name())
			}
		}()
		dst = out
	} else {
		dst = w.sink
	}

	cw, err := compressWriter(w.cfg.compression, dst)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(cw)
	br := bufio.NewReader(spool)
	header, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	bw.WriteString(header)
	if err := writeDTD(bw, w.root, w.tags, w.attrs); err != nil {
		return err
	}
	if _, err := io.Copy(bw, br); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := cw.Close(); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Rename(out.Name(), w.path)
}
