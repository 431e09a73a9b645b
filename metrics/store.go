// Package metrics keeps the metric rows of a run in memory and persists them
// to a CSV or Parquet file.
package metrics

import (
	"fmt"
	"path/filepath"

	"github.com/skald-logger/skald/core"
	"github.com/skald-logger/skald/table"
	"github.com/spf13/afero"
)

const (
	ColumnName  = "name"
	ColumnValue = "value"
)

// IDs identify a metric value, e.g. {"step": 1, "stage": "train"}.
type IDs map[string]any

// Ensure Store implements core.Flusher interface
var _ core.Flusher = (*Store)(nil)

// Store is the append-only metric table of a run. Duplicate name/ids
// combinations are kept as separate rows.
type Store struct {
	fs     afero.Fs
	path   string
	format Format
	table  *table.Table
}

// NewStore creates an empty store flushing to dir/metrics.<format>.
func NewStore(fs afero.Fs, dir string, format Format) (*Store, error) {
	if _, ok := codecs[format]; !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, format)
	}
	return &Store{
		fs:     fs,
		path:   filepath.Join(dir, format.FileName()),
		format: format,
		table: table.New(
			table.Field{Name: ColumnName, Kind: table.KindString},
			table.Field{Name: ColumnValue, Kind: table.KindFloat},
		),
	}, nil
}

// Log appends one metric row. ids may not override the name or value column.
func (s *Store) Log(name string, value float64, ids IDs) error {
	if name == "" {
		return fmt.Errorf("%w: metric name is empty", core.ErrInvalidName)
	}
	row := make(table.Row, len(ids)+2)
	for k, v := range ids {
		if k == ColumnName || k == ColumnValue {
			return fmt.Errorf("%w: identifier %q is reserved", core.ErrInvalidName, k)
		}
		row[k] = v
	}
	row[ColumnName] = name
	row[ColumnValue] = value
	return s.table.Append(row)
}

// Len returns the number of logged rows.
func (s *Store) Len() int {
	return s.table.Len()
}

// Table returns a copy of the metric table.
func (s *Store) Table() *table.Table {
	return s.table.Clone()
}

// WithParams returns the metric table with one constant column per parameter.
func (s *Store) WithParams(params map[string]any) (*table.Table, error) {
	return s.table.WithConstants(params)
}

// Path returns the metrics file path.
func (s *Store) Path() string {
	return s.path
}

// Format returns the metrics file format.
func (s *Store) Format() Format {
	return s.format
}

// Flush overwrites the metrics file with the current table.
func (s *Store) Flush() error {
	data, err := encode(s.table, s.format)
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}
	if err := core.WriteFileAtomic(s.fs, s.path, data); err != nil {
		return fmt.Errorf("flush metrics: %w", err)
	}
	return nil
}
