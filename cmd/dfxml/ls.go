package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/logicossoftware/go-dfxml"
)

// fileRecord is the export form of a file object.
type fileRecord struct {
	Filename  string            `json:"filename" yaml:"filename" cbor:"filename"`
	BlockSize uint64            `json:"block_size,omitempty" yaml:"block_size,omitempty" cbor:"block_size,omitempty"`
	Tags      map[string]string `json:"tags,omitempty" yaml:"tags,omitempty" cbor:"tags,omitempty"`
	Hashes    map[string]string `json:"hashes,omitempty" yaml:"hashes,omitempty" cbor:"hashes,omitempty"`
	ByteRuns  []runRecord       `json:"byte_runs,omitempty" yaml:"byte_runs,omitempty" cbor:"byte_runs,omitempty"`
}

type runRecord struct {
	ImageOffset int64             `json:"img_offset,omitempty" yaml:"img_offset,omitempty" cbor:"img_offset,omitempty"`
	FileOffset  int64             `json:"file_offset,omitempty" yaml:"file_offset,omitempty" cbor:"file_offset,omitempty"`
	Len         int64             `json:"len,omitempty" yaml:"len,omitempty" cbor:"len,omitempty"`
	SectorSize  int64             `json:"sector_size,omitempty" yaml:"sector_size,omitempty" cbor:"sector_size,omitempty"`
	Hashes      map[string]string `json:"hashes,omitempty" yaml:"hashes,omitempty" cbor:"hashes,omitempty"`
}

func newFileRecord(fo *dfxml.FileObject) fileRecord {
	rec := fileRecord{
		Filename: fo.Filename(),
		Tags:     fo.Tags,
		Hashes:   fo.Hashes,
	}
	if fo.Volume != nil {
		rec.BlockSize = fo.Volume.BlockSize
	}
	for _, run := range fo.ByteRuns {
		rec.ByteRuns = append(rec.ByteRuns, runRecord{
			ImageOffset: run.ImageOffset,
			FileOffset:  run.FileOffset,
			Len:         run.Len,
			SectorSize:  run.SectorSize,
			Hashes:      run.Hashes,
		})
	}
	return rec
}

// recordEncoder is satisfied by the json, yaml and cbor stream encoders.
type recordEncoder interface {
	Encode(v any) error
}

// textEncoder prints the filename and byte run count of each record.
type textEncoder struct{ w io.Writer }

func (e textEncoder) Encode(v any) error {
	rec := v.(fileRecord)
	_, err := fmt.Fprintf(e.w, "%s\n  pieces: %d\n", rec.Filename, len(rec.ByteRuns))
	return err
}

var cborEncMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("dfxml: CBOR encoder initialization failed: " + err.Error())
	}
	return em
}()

// newRecordEncoder returns the encoder for format and a function that
// finishes the stream.
func newRecordEncoder(format string, w io.Writer) (recordEncoder, func() error, error) {
	nop := func() error { return nil }
	switch format {
	case "", "text":
		return textEncoder{w}, nop, nil
	case "json":
		return json.NewEncoder(w), nop, nil
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		return enc, enc.Close, nil
	case "cbor":
		return cborEncMode.NewEncoder(w), nop, nil
	}
	return nil, nil, fmt.Errorf("unknown format %q (want text, json, yaml or cbor)", format)
}

func lsCmd(args []string, stdout io.Writer) error {
	fs, common := newFlagSet("ls")
	var format string
	fs.StringVarP(&format, "format", "f", "", "output format: text, json, yaml or cbor")
	cfg, err := parseFlags(fs, common, args, func(c *Config) {
		if fs.Changed("format") {
			c.Format = format
		}
	})
	if err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("ls: no input files")
	}
	logger := newLogger(os.Stderr, common.debug)

	enc, finish, err := newRecordEncoder(cfg.Format, stdout)
	if err != nil {
		return err
	}
	opts := append(cfg.readOptions(), dfxml.WithReadLogger(logger))
	for _, path := range fs.Args() {
		n := 0
		err := dfxml.ReadFile(path, func(fo *dfxml.FileObject) error {
			n++
			return enc.Encode(newFileRecord(fo))
		}, opts...)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		logger.Debug("listed", "path", path, "fileobjects", n)
	}
	return finish()
}
