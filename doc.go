// Package dfxml reads and writes DFXML (Digital Forensics XML), the XML
// dialect forensic tools use to describe disk images, volumes, files and
// the byte extents those files occupy, together with their hash digests.
//
// Both directions are streaming. Nothing in this package holds a whole
// document in memory.
//
// # Document Overview
//
// A DFXML document consists of:
//   - The XML header, optionally followed by an internal DOCTYPE
//   - Provenance blocks describing the producing program and machine
//   - Zero or more <volume> sections with a <block_size>
//   - <fileobject> records carrying free-form leaves such as <filename>,
//     <byte_run> extents and <hashdigest type="..."> values
//
// Documents may be compressed as a whole with gzip, Zstandard, LZ4 or
// Brotli.
//
// # Writing
//
// A [Writer] keeps a stack of open elements. Push and Pop open and close
// elements, Leaf and its typed variants write complete elements in one
// call:
//
//	w, err := dfxml.Create("out.xml")
//	if err != nil {
//		return err
//	}
//	w.Push("dfxml", dfxml.Attr{Name: "version", Value: "1.0"})
//	w.AddProvenance("mytool", "1.0", "", os.Args)
//	w.WriteFileObject(fo)
//	w.Pop("dfxml")
//	err = w.Close()
//
// Each Writer method is atomic with respect to the others, so leaves may
// be written from several goroutines. A Push ... Pop section is not.
//
// Structural errors are sticky: the first one is returned by every later
// call and by Close, so callers may check only the final error.
//
// # Reading
//
// A [Reader] turns element events into [FileObject] records and hands
// each one to a callback as soon as its </fileobject> is seen:
//
//	err := dfxml.ReadFile("in.xml", func(fo *dfxml.FileObject) error {
//		fmt.Println(fo.Filename(), len(fo.ByteRuns))
//		return nil
//	})
//
// The FileObject passed to the callback is only valid until the callback
// returns; call Clone to keep it.
//
// # Escaping
//
// Text content is escaped with XML entities for markup characters and
// percent encodings for NUL, CR, LF, TAB and the percent sign itself, so
// that [Unescape] inverts [Escape] exactly.
//
// # Security Considerations
//
// The reader bounds nesting depth, buffered character data, byte runs
// per file and tags per record through configurable [Limits].
package dfxml
