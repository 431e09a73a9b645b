package metrics

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/file"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
	"github.com/skald-logger/skald/table"
)

// arrowType maps a column kind to its arrow type. Null-only columns are
// written as strings.
func arrowType(k table.Kind) arrow.DataType {
	switch k {
	case table.KindInt:
		return arrow.PrimitiveTypes.Int64
	case table.KindFloat:
		return arrow.PrimitiveTypes.Float64
	case table.KindBool:
		return arrow.FixedWidthTypes.Boolean
	default:
		return arrow.BinaryTypes.String
	}
}

// toRecord converts a table into a single arrow record.
func toRecord(t *table.Table, mem memory.Allocator) arrow.Record {
	fields := make([]arrow.Field, 0, len(t.Fields()))
	for _, f := range t.Fields() {
		fields = append(fields, arrow.Field{Name: f.Name, Type: arrowType(f.Kind), Nullable: true})
	}
	schema := arrow.NewSchema(fields, nil)

	arrays := make([]arrow.Array, len(fields))
	for i, field := range fields {
		col, _ := t.Column(field.Name)

		var builder array.Builder
		switch field.Type.ID() {
		case arrow.INT64:
			b := array.NewInt64Builder(mem)
			for _, v := range col.Values {
				if v == nil {
					b.AppendNull()
					continue
				}
				b.Append(v.(int64))
			}
			builder = b
		case arrow.FLOAT64:
			b := array.NewFloat64Builder(mem)
			for _, v := range col.Values {
				if v == nil {
					b.AppendNull()
					continue
				}
				b.Append(v.(float64))
			}
			builder = b
		case arrow.BOOL:
			b := array.NewBooleanBuilder(mem)
			for _, v := range col.Values {
				if v == nil {
					b.AppendNull()
					continue
				}
				b.Append(v.(bool))
			}
			builder = b
		default:
			b := array.NewStringBuilder(mem)
			for _, v := range col.Values {
				if v == nil {
					b.AppendNull()
					continue
				}
				b.Append(fmt.Sprintf("%v", v))
			}
			builder = b
		}
		arrays[i] = builder.NewArray()
		builder.Release()
	}

	rec := array.NewRecord(schema, arrays, int64(t.Len()))
	for _, arr := range arrays {
		arr.Release()
	}
	return rec
}

func encodeParquet(w io.Writer, t *table.Table) error {
	mem := memory.DefaultAllocator
	rec := toRecord(t, mem)
	defer rec.Release()

	tbl := array.NewTableFromRecords(rec.Schema(), []arrow.Record{rec})
	defer tbl.Release()

	props := parquet.NewWriterProperties(
		parquet.WithAllocator(mem),
		parquet.WithCompression(compress.Codecs.Snappy),
	)
	arrProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	chunkSize := tbl.NumRows()
	if chunkSize < 1 {
		chunkSize = 1
	}
	if err := pqarrow.WriteTable(tbl, w, chunkSize, props, arrProps); err != nil {
		return fmt.Errorf("write parquet: %w", err)
	}
	return nil
}

func decodeParquet(data []byte) (*table.Table, error) {
	mem := memory.DefaultAllocator
	pf, err := file.NewParquetReader(bytes.NewReader(data), file.WithReadProps(parquet.NewReaderProperties(mem)))
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	defer pf.Close()

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	tbl, err := fr.ReadTable(context.Background())
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	defer tbl.Release()

	cols := make([]table.Column, 0, tbl.NumCols())
	for i := 0; i < int(tbl.NumCols()); i++ {
		field := tbl.Schema().Field(i)
		col := table.Column{Name: field.Name, Values: make([]any, 0, tbl.NumRows())}
		for _, chunk := range tbl.Column(i).Data().Chunks() {
			values, kind, err := fromArray(chunk)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", field.Name, err)
			}
			col.Kind = kind
			col.Values = append(col.Values, values...)
		}
		if col.Kind == table.KindNull {
			col.Kind = kindOf(field.Type)
		}
		cols = append(cols, col)
	}
	return table.FromColumns(cols...)
}

func kindOf(dt arrow.DataType) table.Kind {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32:
		return table.KindInt
	case arrow.FLOAT32, arrow.FLOAT64:
		return table.KindFloat
	case arrow.BOOL:
		return table.KindBool
	case arrow.STRING, arrow.LARGE_STRING:
		return table.KindString
	default:
		return table.KindNull
	}
}

func fromArray(arr arrow.Array) ([]any, table.Kind, error) {
	n := arr.Len()
	values := make([]any, n)
	switch a := arr.(type) {
	case *array.Int64:
		for i := 0; i < n; i++ {
			if a.IsValid(i) {
				values[i] = a.Value(i)
			}
		}
		return values, table.KindInt, nil
	case *array.Int32:
		for i := 0; i < n; i++ {
			if a.IsValid(i) {
				values[i] = int64(a.Value(i))
			}
		}
		return values, table.KindInt, nil
	case *array.Float64:
		for i := 0; i < n; i++ {
			if a.IsValid(i) {
				values[i] = a.Value(i)
			}
		}
		return values, table.KindFloat, nil
	case *array.Float32:
		for i := 0; i < n; i++ {
			if a.IsValid(i) {
				values[i] = float64(a.Value(i))
			}
		}
		return values, table.KindFloat, nil
	case *array.Boolean:
		for i := 0; i < n; i++ {
			if a.IsValid(i) {
				values[i] = a.Value(i)
			}
		}
		return values, table.KindBool, nil
	case *array.String:
		for i := 0; i < n; i++ {
			if a.IsValid(i) {
				values[i] = a.Value(i)
			}
		}
		return values, table.KindString, nil
	case *array.LargeString:
		for i := 0; i < n; i++ {
			if a.IsValid(i) {
				values[i] = a.Value(i)
			}
		}
		return values, table.KindString, nil
	case *array.Null:
		return values, table.KindNull, nil
	default:
		return nil, table.KindNull, fmt.Errorf("unsupported arrow type %s", arr.DataType())
	}
}
