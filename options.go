package dfxml

import (
	"io"
	"log/slog"

	"github.com/logicossoftware/go-dfxml/clock"
	"github.com/logicossoftware/go-dfxml/hostinfo"
)

type readConfig struct {
	limits        Limits
	compression   Compression
	detect        bool
	charsetReader func(label string, input io.Reader) (io.Reader, error)
	logger        *slog.Logger
}

type ReadOption func(*readConfig)

func WithReadLimits(l Limits) ReadOption {
	return func(c *readConfig) { c.limits = l }
}

// WithReadCompression fixes the input compression instead of detecting
// it from the stream's leading bytes.
func WithReadCompression(comp Compression) ReadOption {
	return func(c *readConfig) {
		c.compression = comp
		c.detect = false
	}
}

// WithCharsetReader overrides how documents declaring a non UTF-8
// encoding are converted.
func WithCharsetReader(fn func(label string, input io.Reader) (io.Reader, error)) ReadOption {
	return func(c *readConfig) { c.charsetReader = fn }
}

func WithReadLogger(l *slog.Logger) ReadOption {
	return func(c *readConfig) { c.logger = l }
}

func newReadConfig(opts []ReadOption) readConfig {
	cfg := readConfig{
		limits:        defaultLimits(),
		detect:        true,
		charsetReader: defaultCharsetReader,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.limits = cfg.limits.withDefaults()
	if cfg.logger == nil {
		cfg.logger = discardLogger
	}
	return cfg
}

type writeConfig struct {
	compact        bool
	dtd            bool
	indent         string
	tempDir        string
	compression    Compression
	compressionSet bool
	clock          clock.Clock
	host           hostinfo.Host
	logger         *slog.Logger
}

type WriteOption func(*writeConfig)

// WithCompact starts the writer in single-line mode.
func WithCompact(v bool) WriteOption {
	return func(c *writeConfig) { c.compact = v }
}

// WithDTD makes Close insert a <!DOCTYPE> block listing every element
// the writer emitted. The body is spooled to a temporary file until then.
func WithDTD(v bool) WriteOption {
	return func(c *writeConfig) { c.dtd = v }
}

// WithIndent sets the per-level indentation. The default is two spaces.
func WithIndent(s string) WriteOption {
	return func(c *writeConfig) { c.indent = s }
}

// WithTempDir sets the directory used to spool DTD output for writers
// created with NewWriter. Create spools next to the output file.
func WithTempDir(dir string) WriteOption {
	return func(c *writeConfig) { c.tempDir = dir }
}

// WithCompression compresses the output stream. Create otherwise picks
// a compression from the file extension.
func WithCompression(comp Compression) WriteOption {
	return func(c *writeConfig) {
		c.compression = comp
		c.compressionSet = true
	}
}

func WithClock(clk clock.Clock) WriteOption {
	return func(c *writeConfig) { c.clock = clk }
}

// WithHost replaces the host probe used by the provenance blocks.
func WithHost(h hostinfo.Host) WriteOption {
	return func(c *writeConfig) { c.host = h }
}

func WithLogger(l *slog.Logger) WriteOption {
	return func(c *writeConfig) { c.logger = l }
}

func newWriteConfig(opts []WriteOption) writeConfig {
	cfg := writeConfig{indent: "  "}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.clock == nil {
		cfg.clock = clock.Real()
	}
	if cfg.host == nil {
		cfg.host = hostinfo.Probe()
	}
	if cfg.logger == nil {
		cfg.logger = discardLogger
	}
	return cfg
}

var discardLogger = slog.New(slog.DiscardHandler)
