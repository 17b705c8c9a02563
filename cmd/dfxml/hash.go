package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/logicossoftware/go-dfxml"
)

func hashCmd(args []string, stdout io.Writer) error {
	fs, common := newFlagSet("hash")
	var (
		out  string
		algs []string
	)
	fs.StringVarP(&out, "output", "o", "", "output file (default stdout)")
	fs.StringSliceVarP(&algs, "algorithm", "a", nil, "digest algorithms (default from config: md5,sha1,sha256)")
	cfg, err := parseFlags(fs, common, args, func(c *Config) {
		if fs.Changed("algorithm") {
			c.Algorithms = algs
		}
	})
	if err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("hash: no input files")
	}
	logger := newLogger(os.Stderr, common.debug)

	wopts, err := cfg.writeOptions()
	if err != nil {
		return err
	}
	w, err := openOutput(out, stdout, append(wopts, dfxml.WithLogger(logger)))
	if err != nil {
		return err
	}
	w.Push("dfxml", dfxml.Attr{Name: "version", Value: "1.0"})
	w.AddProvenance("dfxml", dfxml.Version, "", os.Args)
	for _, path := range fs.Args() {
		fo, err := describeFile(path, cfg.Algorithms)
		if err != nil {
			w.Close()
			return err
		}
		w.WriteFileObject(fo)
		logger.Debug("hashed", "path", path)
	}
	w.AddTimestamp("hashed")
	w.Pop("dfxml")
	return w.Close()
}

// describeFile builds a file object for a local file: name, size,
// modification time, one byte run covering the content and its digests.
func describeFile(path string, algs []string) (*dfxml.FileObject, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: not a regular file", path)
	}
	hashes, n, err := dfxml.ComputeDigests(f, algs...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	fo := &dfxml.FileObject{}
	fo.SetTag("filename", path)
	fo.SetTag("filesize", strconv.FormatInt(n, 10))
	fo.SetTag("mtime", dfxml.To8601(info.ModTime()))
	fo.Hashes = hashes
	if n > 0 {
		fo.ByteRuns = []dfxml.ByteRun{{Len: n}}
	}
	return fo, nil
}
