// dfxml inspects, converts and produces DFXML documents.
//
// Usage:
//
//	dfxml ls [--format text|json|yaml|cbor] FILE...
//	dfxml cat [-o OUT] [--compression C] [--compact] [--dtd] FILE...
//	dfxml hash [-a ALG,...] [-o OUT] FILE...
//	dfxml version
//
// Every command accepts --config (or DFXML_CONFIG) naming a YAML file
// with defaults, and --debug (or DFXML_DEBUG) for debug logging.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/logicossoftware/go-dfxml"
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}
	if err := run(os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "dfxml: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd string, args []string, stdout io.Writer) error {
	switch cmd {
	case "ls":
		return lsCmd(args, stdout)
	case "cat":
		return catCmd(args, stdout)
	case "hash":
		return hashCmd(args, stdout)
	case "version", "--version", "-v":
		fmt.Fprintf(stdout, "dfxml %s (%s)\n", dfxml.Version, runtime.Version())
		return nil
	case "help", "--help", "-h":
		printUsage(stdout)
		return nil
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `usage: dfxml <command> [flags] FILE...

commands:
  ls       list file objects with their byte run count
  cat      re-emit documents, optionally compressed, compact or with a DTD
  hash     write a DFXML document describing local files and their digests
  version  print the version
`)
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug || os.Getenv("DFXML_DEBUG") != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
