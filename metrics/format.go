package metrics

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/skald-logger/skald/core"
	"github.com/skald-logger/skald/table"
	"github.com/spf13/afero"
)

// Format is the on-disk encoding of the metrics file.
type Format string

const (
	// CSV is human readable but larger on disk.
	CSV Format = "csv"
	// Parquet is a compact, binary columnar encoding.
	Parquet Format = "parquet"
)

type encoderFn func(w io.Writer, t *table.Table) error
type decoderFn func(data []byte) (*table.Table, error)

type codec struct {
	encode encoderFn
	decode decoderFn
}

var codecs = map[Format]codec{
	CSV:     {encode: encodeCSV, decode: decodeCSV},
	Parquet: {encode: encodeParquet, decode: decodeParquet},
}

// ParseFormat resolves a format name; the empty string selects Parquet.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")))
	if f == "" {
		return Parquet, nil
	}
	if _, ok := codecs[f]; !ok {
		return "", fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, name)
	}
	return f, nil
}

// FileName returns the metrics file name for the format.
func (f Format) FileName() string {
	return "metrics." + string(f)
}

// Write encodes t into w.
func Write(w io.Writer, t *table.Table, f Format) error {
	c, ok := codecs[f]
	if !ok {
		return fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, f)
	}
	return c.encode(w, t)
}

// Read loads a metrics file, picking the decoder from the file suffix.
func Read(fs afero.Fs, path string) (*table.Table, error) {
	f, err := ParseFormat(filepath.Ext(path))
	if err != nil || filepath.Ext(path) == "" {
		return nil, fmt.Errorf("read %s: %w", path, core.ErrUnsupportedFormat)
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	t, err := codecs[f].decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return t, nil
}

func encode(t *table.Table, f Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, t, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
