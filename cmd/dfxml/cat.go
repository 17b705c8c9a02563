package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/logicossoftware/go-dfxml"
)

func catCmd(args []string, stdout io.Writer) error {
	fs, common := newFlagSet("cat")
	var (
		out         string
		compression string
		compact     bool
		dtd         bool
	)
	fs.StringVarP(&out, "output", "o", "", "output file (default stdout)")
	fs.StringVar(&compression, "compression", "", "output compression: none, gzip, zstd, lz4 or brotli")
	fs.BoolVar(&compact, "compact", false, "write each element on one line")
	fs.BoolVar(&dtd, "dtd", false, "insert a DOCTYPE listing every element")
	cfg, err := parseFlags(fs, common, args, func(c *Config) {
		if fs.Changed("compression") {
			c.Compression = compression
		}
		if fs.Changed("compact") {
			c.Compact = compact
		}
		if fs.Changed("dtd") {
			c.DTD = dtd
		}
	})
	if err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("cat: no input files")
	}
	logger := newLogger(os.Stderr, common.debug)

	wopts, err := cfg.writeOptions()
	if err != nil {
		return err
	}
	wopts = append(wopts, dfxml.WithLogger(logger))
	w, err := openOutput(out, stdout, wopts)
	if err != nil {
		return err
	}

	w.Push("dfxml", dfxml.Attr{Name: "version", Value: "1.0"})
	w.AddProvenance("dfxml", dfxml.Version, "", os.Args)
	ropts := append(cfg.readOptions(), dfxml.WithReadLogger(logger))
	for _, path := range fs.Args() {
		var vol *dfxml.VolumeObject
		err := dfxml.ReadFile(path, func(fo *dfxml.FileObject) error {
			if fo.Volume != vol {
				if vol != nil {
					w.EndVolume()
				}
				if fo.Volume != nil {
					w.StartVolume(fo.Volume)
				}
				vol = fo.Volume
			}
			return w.WriteFileObject(fo)
		}, ropts...)
		if vol != nil {
			w.EndVolume()
		}
		if err != nil {
			w.Close()
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	w.AddRusage()
	w.Pop("dfxml")
	return w.Close()
}

// openOutput writes to path, or to stdout when path is empty.
func openOutput(path string, stdout io.Writer, opts []dfxml.WriteOption) (*dfxml.Writer, error) {
	if path == "" {
		return dfxml.NewWriter(stdout, opts...), nil
	}
	return dfxml.Create(path, opts...)
}
