package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/logicossoftware/go-dfxml"
)

// Config holds defaults for every command. Flags given on the command
// line take precedence.
type Config struct {
	Compression string       `yaml:"compression"`
	Compact     bool         `yaml:"compact"`
	DTD         bool         `yaml:"dtd"`
	Indent      string       `yaml:"indent"`
	Format      string       `yaml:"format"`
	Algorithms  []string     `yaml:"algorithms"`
	Limits      LimitsConfig `yaml:"limits"`
}

type LimitsConfig struct {
	MaxDepth    int `yaml:"max_depth"`
	MaxCharData int `yaml:"max_char_data"`
	MaxByteRuns int `yaml:"max_byte_runs"`
	MaxTags     int `yaml:"max_tags"`
}

func defaultConfig() *Config {
	return &Config{
		Compression: "none",
		Indent:      "  ",
		Format:      "text",
		Algorithms:  []string{dfxml.AlgMD5, dfxml.AlgSHA1, dfxml.AlgSHA256},
	}
}

// loadConfig reads path, or the file named by DFXML_CONFIG when path is
// empty, over the defaults.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		path = os.Getenv("DFXML_CONFIG")
	}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) readOptions() []dfxml.ReadOption {
	return []dfxml.ReadOption{dfxml.WithReadLimits(dfxml.Limits{
		MaxDepth:    c.Limits.MaxDepth,
		MaxCharData: c.Limits.MaxCharData,
		MaxByteRuns: c.Limits.MaxByteRuns,
		MaxTags:     c.Limits.MaxTags,
	})}
}

func (c *Config) writeOptions() ([]dfxml.WriteOption, error) {
	opts := []dfxml.WriteOption{
		dfxml.WithCompact(c.Compact),
		dfxml.WithDTD(c.DTD),
		dfxml.WithIndent(c.Indent),
	}
	// An explicit "none" in the config still lets the output extension
	// decide, so only real compressions are forced.
	if c.Compression != "" && c.Compression != "none" {
		comp, err := dfxml.ParseCompression(c.Compression)
		if err != nil {
			return nil, err
		}
		opts = append(opts, dfxml.WithCompression(comp))
	}
	return opts, nil
}

// commonFlags are registered on every command's flag set.
type commonFlags struct {
	config string
	debug  bool
}

func newFlagSet(name string) (*pflag.FlagSet, *commonFlags) {
	fs := pflag.NewFlagSet("dfxml "+name, pflag.ContinueOnError)
	var c commonFlags
	fs.StringVar(&c.config, "config", "", "YAML config file (default $DFXML_CONFIG)")
	fs.BoolVar(&c.debug, "debug", false, "enable debug logging")
	return fs, &c
}

// parseFlags parses args and loads the config, then applies the flags
// the user actually set through apply.
func parseFlags(fs *pflag.FlagSet, c *commonFlags, args []string, apply func(*Config)) (*Config, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := loadConfig(c.config)
	if err != nil {
		return nil, err
	}
	if apply != nil {
		apply(cfg)
	}
	return cfg, nil
}
