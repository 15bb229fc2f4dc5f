// Package config loads and represents the user-facing JSON configuration
// document described by the external interface contract: thread pool
// widths, the in-memory/disk staging threshold, the output format, and
// per-file ingestion overrides (including each source's encoding label).
//
// This generalizes original_source's AppConfiguration/FileSpecs (Rust) into
// idiomatic Go: exported struct, functional setters, encoding/json decode.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// OutputFormat selects the RDF serialization written to the output file.
type OutputFormat int

const (
	NTriples OutputFormat = iota
	Turtle
	UnknownFormat
)

// FormatFromExt chooses a format from a file extension (".nt"/".ttl"), the
// file-extension dispatch helper named in the spec's external interfaces.
func FormatFromExt(ext string) OutputFormat {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "nt":
		return NTriples
	case "ttl":
		return Turtle
	default:
		return UnknownFormat
	}
}

func (f OutputFormat) String() string {
	switch f {
	case NTriples:
		return "N-Triples"
	case Turtle:
		return "Turtle"
	default:
		return "Other"
	}
}

// Threads holds the width of the three worker pools.
type Threads struct {
	Parsing int
	Reading int
	Writing int
}

// FileSpecs overrides ingestion behavior for a single source file.
type FileSpecs struct {
	FileType  string // "csv", "tsv", "json", "xml"; empty means "infer from extension"
	Encoding  string // label, empty means UTF-8
	Delimiter rune   // CSV/TSV field delimiter: ',' from NewFileSpecs, TAB for "tsv" (set by mergeFrom/SpecFor)
	Header    uint32 // header row index, default 0
}

// NewFileSpecs returns the defaults: comma-delimited, header on row 0,
// UTF-8.
func NewFileSpecs() FileSpecs {
	return FileSpecs{Delimiter: ',', Header: 0}
}

// Config is the fully resolved run configuration: CLI flags merged with an
// optional JSON document.
type Config struct {
	MappingsPath string
	OutputPath   string
	OutputFormat OutputFormat
	MemoryThresholdMB uint32
	Threads      Threads
	FileSpecs    map[string]FileSpecs // keyed by path as given in the JSON doc
	Debug        bool
	Clear        bool
}

// New returns the default configuration for the given output path, deriving
// OutputFormat from its extension.
func New(outputPath string) Config {
	return Config{
		OutputPath:        outputPath,
		OutputFormat:      FormatFromExt(filepath.Ext(outputPath)),
		MemoryThresholdMB: 500,
		Threads:           Threads{Parsing: 3, Reading: 3, Writing: 3},
		FileSpecs:         make(map[string]FileSpecs),
	}
}

// Load reads and merges a JSON configuration document on top of the
// defaults for outputPath. A zero path means "no config file": the
// defaults are returned unchanged.
func Load(outputPath, configPath string) (Config, error) {
	cfg := New(outputPath)
	if configPath == "" {
		return cfg, nil
	}
	f, err := os.Open(configPath)
	if err != nil {
		return cfg, errors.Wrap(err, "open config")
	}
	defer f.Close()
	return mergeFrom(cfg, f)
}

type rawFileSpec struct {
	Path      string `json:"path"`
	FileType  string `json:"file-type"`
	Encoding  string `json:"encoding"`
	Delimiter string `json:"delimiter"`
	Header    *uint32 `json:"header"`
}

type rawThreads struct {
	Parsing *int `json:"parsing"`
	Reading *int `json:"reading"`
	Writing *int `json:"writing"`
}

type rawConfig struct {
	MaxMemoryUsage *uint32       `json:"max-memory-usage"`
	OutputFormat   string        `json:"output-format"`
	Threads        *rawThreads   `json:"threads"`
	FilesData      []rawFileSpec `json:"files-data"`
}

func mergeFrom(cfg Config, r io.Reader) (Config, error) {
	var raw rawConfig
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}

	if raw.MaxMemoryUsage != nil {
		cfg.MemoryThresholdMB = *raw.MaxMemoryUsage
	}
	if raw.OutputFormat != "" {
		cfg.OutputFormat = FormatFromExt(raw.OutputFormat)
	}
	if raw.Threads != nil {
		if raw.Threads.Parsing != nil {
			cfg.Threads.Parsing = *raw.Threads.Parsing
		}
		if raw.Threads.Reading != nil {
			cfg.Threads.Reading = *raw.Threads.Reading
		}
		if raw.Threads.Writing != nil {
			cfg.Threads.Writing = *raw.Threads.Writing
		}
	}
	for _, fd := range raw.FilesData {
		if fd.Path == "" {
			return cfg, fmt.Errorf("files-data entry missing required \"path\"")
		}
		spec := NewFileSpecs()
		if fd.FileType != "" {
			spec.FileType = strings.ToLower(fd.FileType)
		} else if ext := filepath.Ext(fd.Path); ext != "" {
			spec.FileType = strings.ToLower(strings.TrimPrefix(ext, "."))
		}
		if fd.Encoding != "" {
			spec.Encoding = strings.ToUpper(fd.Encoding)
		}
		if fd.Delimiter != "" {
			spec.Delimiter = []rune(fd.Delimiter)[0]
		} else if spec.FileType == "tsv" {
			spec.Delimiter = '\t'
		}
		if fd.Header != nil {
			spec.Header = *fd.Header
		}
		cfg.FileSpecs[fd.Path] = spec
	}
	return cfg, nil
}

// SpecFor returns the resolved FileSpecs for path, falling back to format
// defaults (',' for CSV, TAB for TSV) when no override was configured.
func (c Config) SpecFor(path string) FileSpecs {
	if spec, ok := c.FileSpecs[path]; ok {
		return spec
	}
	spec := NewFileSpecs()
	if ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext != "" {
		spec.FileType = ext
		if ext == "tsv" {
			spec.Delimiter = '\t'
		}
	}
	return spec
}

// InMemory reports whether the staging store should live in memory given
// the summed size (bytes) of all source files.
func (c Config) InMemory(totalBytes int64) bool {
	return totalBytes/(1024*1024) < int64(c.MemoryThresholdMB)
}

// String renders a human-readable configuration dump, the Go analogue of
// original_source's "impl std::fmt::Debug for AppConfiguration" banner shown
// under --debug.
func (c Config) String() string {
	var b strings.Builder
	fmt.Fprintln(&b, "Configuration:")
	fmt.Fprintf(&b, "  mappings path:   %s\n", c.MappingsPath)
	fmt.Fprintf(&b, "  output path:     %s\n", c.OutputPath)
	fmt.Fprintf(&b, "  output format:   %s\n", c.OutputFormat)
	fmt.Fprintf(&b, "  memory threshold: %d MB\n", c.MemoryThresholdMB)
	fmt.Fprintf(&b, "  threads:         parsing=%d reading=%d writing=%d\n", c.Threads.Parsing, c.Threads.Reading, c.Threads.Writing)
	fmt.Fprintf(&b, "  debug:           %v\n", c.Debug)
	fmt.Fprintf(&b, "  clear on exit:   %v\n", c.Clear)
	for path, spec := range c.FileSpecs {
		fmt.Fprintf(&b, "  file override:   %s -> %+v\n", path, spec)
	}
	return b.String()
}
