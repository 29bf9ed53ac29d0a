package models

import "sort"

// ColumnMetadata describes one column as reported by the source catalog.
type ColumnMetadata struct {
	Name       string
	SourceType string
	Nullable   bool
}

// ExportConfig represents the root of the export configuration file.
type ExportConfig struct {
	Output         OutputConfig           `yaml:"output"`
	ChunkSize      int                    `yaml:"chunk_size"`
	Workers        int                    `yaml:"workers"`
	MaxConnections int                    `yaml:"max_connections"`
	Partitions     PartitionConfig        `yaml:"partitions"`
	Tables         map[string]TableConfig `yaml:"tables"`
}

type OutputConfig struct {
	Root        string `yaml:"root"`
	Format      string `yaml:"format"`
	Delimiter   string `yaml:"delimiter,omitempty"`
	Header      *bool  `yaml:"header,omitempty"`
	NullString  string `yaml:"null_string,omitempty"`
	Compression string `yaml:"compression,omitempty"`
	Extension   string `yaml:"extension,omitempty"`
}

// PartitionConfig lists where partition keys come from. All sources are merged.
type PartitionConfig struct {
	Keys      []string `yaml:"keys,omitempty"`
	Query     string   `yaml:"query,omitempty"`
	QueryText string   `yaml:"-"`
	From      string   `yaml:"from,omitempty"`
	To        string   `yaml:"to,omitempty"`
}

type TableConfig struct {
	Name        string   `yaml:"-"`
	Query       string   `yaml:"query"`
	QueryText   string   `yaml:"-"`
	Partitioned bool     `yaml:"partitioned"`
	SourceTable string   `yaml:"source_table,omitempty"`
	Exclude     []string `yaml:"exclude,omitempty"`
}

// CatalogName is the name looked up in the source catalog. Defaults to the table's name.
func (t TableConfig) CatalogName() string {
	if t.SourceTable != "" {
		return t.SourceTable
	}
	return t.Name
}

// Excludes reports whether the (table, key) unit is excluded by configuration.
func (t TableConfig) Excludes(key string) bool {
	for _, k := range t.Exclude {
		if k == key {
			return true
		}
	}
	return false
}

// HeaderEnabled reports whether delimited output carries a header row (default true).
func (o OutputConfig) HeaderEnabled() bool {
	return o.Header == nil || *o.Header
}

// TableList returns the configured tables ordered by name.
func (c *ExportConfig) TableList() []TableConfig {
	out := make([]TableConfig, 0, len(c.Tables))
	for name, t := range c.Tables {
		t.Name = name
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
