package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/BartekS5/sqlexport/internal/etl"
	"github.com/BartekS5/sqlexport/pkg/models"
	"github.com/BartekS5/sqlexport/pkg/utils"
)

const (
	FormatParquet   = "parquet"
	FormatDelimited = "delimited"

	DefaultOutputRoot  = "output"
	DefaultDelimiter   = "|"
	DefaultCompression = "snappy"
	DefaultWorkers     = 4
)

var compressions = []string{"snappy", "gzip", "zstd", "brotli", "lz4", "none"}

// LoadExportConfig reads the export file at path, applies defaults, reads
// every referenced query file relative to the file's directory and validates
// the result. YAML and JSON files are both accepted.
func LoadExportConfig(path string) (*models.ExportConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read export config '%s': %w", path, err)
	}

	var cfg models.ExportConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse export config '%s': %w", path, err)
	}

	ApplyDefaults(&cfg)
	if err := readQueries(&cfg, filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("invalid export config '%s': %w", path, err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid export config '%s': %w", path, err)
	}
	return &cfg, nil
}

func ApplyDefaults(cfg *models.ExportConfig) {
	if cfg.Output.Root == "" {
		cfg.Output.Root = DefaultOutputRoot
	}
	cfg.Output.Format = strings.ToLower(cfg.Output.Format)
	if cfg.Output.Format == "" {
		cfg.Output.Format = FormatParquet
	}
	if cfg.Output.Delimiter == "" {
		cfg.Output.Delimiter = DefaultDelimiter
	}
	cfg.Output.Compression = strings.ToLower(cfg.Output.Compression)
	if cfg.Output.Compression == "" {
		cfg.Output.Compression = DefaultCompression
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = etl.DefaultChunkSize
	}
	if cfg.Workers == 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.MaxConnections == 0 {
		// one per worker plus one for the partition query
		cfg.MaxConnections = cfg.Workers + 1
	}
}

// readQueries loads query files. Relative paths are resolved against dir.
func readQueries(cfg *models.ExportConfig, dir string) error {
	var errs []error
	read := func(p string) (string, error) {
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	for name, t := range cfg.Tables {
		if t.Query == "" {
			continue
		}
		text, err := read(t.Query)
		if err != nil {
			errs = append(errs, fmt.Errorf("table %q: %w", name, err))
			continue
		}
		t.QueryText = text
		cfg.Tables[name] = t
	}
	if cfg.Partitions.Query != "" {
		text, err := read(cfg.Partitions.Query)
		if err != nil {
			errs = append(errs, fmt.Errorf("partition query: %w", err))
		} else {
			cfg.Partitions.QueryText = text
		}
	}
	return errors.Join(errs...)
}

// Validate reports every problem in cfg, not just the first.
func Validate(cfg *models.ExportConfig) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch cfg.Output.Format {
	case FormatParquet:
		if !lo.Contains(compressions, cfg.Output.Compression) {
			fail("output.compression %q is not one of %s", cfg.Output.Compression, strings.Join(compressions, ", "))
		}
	case FormatDelimited:
		if utf8.RuneCountInString(cfg.Output.Delimiter) != 1 || strings.ContainsAny(cfg.Output.Delimiter, "\"\r\n") {
			fail("output.delimiter %q must be a single character other than a quote or line break", cfg.Output.Delimiter)
		}
	default:
		fail("output.format %q is not one of %s, %s", cfg.Output.Format, FormatParquet, FormatDelimited)
	}
	if cfg.ChunkSize < 0 {
		fail("chunk_size must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.Workers < 0 {
		fail("workers must be positive, got %d", cfg.Workers)
	}
	if cfg.MaxConnections < 0 {
		fail("max_connections must not be negative, got %d", cfg.MaxConnections)
	}
	for _, d := range []struct{ name, value string }{{"from", cfg.Partitions.From}, {"to", cfg.Partitions.To}} {
		if d.value == "" {
			continue
		}
		if _, err := time.Parse(utils.DateLayout, d.value); err != nil {
			fail("partitions.%s %q is not a YYYY-MM-DD date", d.name, d.value)
		}
	}
	for _, k := range cfg.Partitions.Keys {
		if err := etl.ValidatePartitionKey(k); err != nil {
			fail("partitions.keys: %v", err)
		}
	}

	if len(cfg.Tables) == 0 {
		fail("no tables configured")
	}
	for _, t := range cfg.TableList() {
		if err := etl.ValidateTableName(t.Name); err != nil {
			fail("tables: %v", err)
			continue
		}
		if t.Query == "" {
			fail("table %q: query is required", t.Name)
			continue
		}
		if _, err := etl.ParseQueryTemplate(t.QueryText, t.Partitioned); err != nil {
			fail("table %q: %v", t.Name, err)
		}
	}
	return errors.Join(errs...)
}
