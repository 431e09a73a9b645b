// Package table implements the column-oriented, append-only table behind the
// metric store. Rows may carry different column sets; the table keeps the
// union of all columns ever seen and stores null for every missing cell.
package table

import (
	"fmt"
	"sort"

	"github.com/skald-logger/skald/core"
)

// Row maps column names to scalar cell values.
type Row map[string]any

// Field declares a column and its initial kind.
type Field struct {
	Name string
	Kind Kind
}

// Column is a named, nullable sequence of cells of a single kind.
type Column struct {
	Name   string
	Kind   Kind
	Values []any
}

func (c *Column) promote(kind Kind) {
	if c.Kind == KindInt && kind == KindFloat {
		for i, v := range c.Values {
			if n, ok := v.(int64); ok {
				c.Values[i] = float64(n)
			}
		}
	}
	c.Kind = kind
}

// Table holds rows in insertion order. The column set only grows.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// New returns an empty table with the given columns.
func New(fields ...Field) *Table {
	t := &Table{index: make(map[string]int, len(fields))}
	for _, f := range fields {
		if _, ok := t.index[f.Name]; ok {
			continue
		}
		t.addColumn(f.Name, f.Kind)
	}
	return t
}

// FromColumns assembles a table from decoded columns. All columns must have
// the same length and distinct names.
func FromColumns(cols ...Column) (*Table, error) {
	t := New()
	for i, col := range cols {
		if col.Name == "" {
			return nil, fmt.Errorf("%w: empty column name", core.ErrInvalidName)
		}
		if _, ok := t.index[col.Name]; ok {
			return nil, fmt.Errorf("%w: %q", core.ErrColumnExists, col.Name)
		}
		if i > 0 && len(col.Values) != t.rows {
			return nil, fmt.Errorf("column %q has %d values, want %d", col.Name, len(col.Values), t.rows)
		}
		c := t.addColumn(col.Name, col.Kind)
		c.Values = make([]any, 0, len(col.Values))
		for _, v := range col.Values {
			cell, kind, err := Normalize(v)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", col.Name, err)
			}
			merged, err := merge(c.Kind, kind)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", col.Name, err)
			}
			c.promote(merged)
			c.Values = append(c.Values, coerce(cell, c.Kind))
		}
		t.rows = len(col.Values)
	}
	return t, nil
}

func (t *Table) addColumn(name string, kind Kind) *Column {
	c := &Column{Name: name, Kind: kind, Values: make([]any, t.rows)}
	t.index[name] = len(t.columns)
	t.columns = append(t.columns, c)
	return c
}

// Append adds one row. Columns the table has not seen yet are added in
// sorted order and are null for every earlier row; columns the row does not
// mention are null for the new row. On error the table is left unchanged.
func (t *Table) Append(row Row) error {
	cells := make(map[string]any, len(row))
	kinds := make(map[string]Kind, len(row))
	var added []string

	for name, v := range row {
		if name == "" {
			return fmt.Errorf("%w: empty column name", core.ErrInvalidName)
		}
		cell, kind, err := Normalize(v)
		if err != nil {
			return fmt.Errorf("column %q: %w", name, err)
		}
		have := KindNull
		if i, ok := t.index[name]; ok {
			have = t.columns[i].Kind
		} else {
			added = append(added, name)
		}
		merged, err := merge(have, kind)
		if err != nil {
			return fmt.Errorf("column %q: %w", name, err)
		}
		cells[name] = cell
		kinds[name] = merged
	}

	sort.Strings(added)
	for _, name := range added {
		t.addColumn(name, KindNull)
	}
	for _, c := range t.columns {
		cell, ok := cells[c.Name]
		if !ok {
			c.Values = append(c.Values, nil)
			continue
		}
		c.promote(kinds[c.Name])
		c.Values = append(c.Values, coerce(cell, c.Kind))
	}
	t.rows++
	return nil
}

func coerce(cell any, kind Kind) any {
	if n, ok := cell.(int64); ok && kind == KindFloat {
		return float64(n)
	}
	return cell
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return t.rows
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Fields returns the column names and kinds in order.
func (t *Table) Fields() []Field {
	fields := make([]Field, len(t.columns))
	for i, c := range t.columns {
		fields[i] = Field{Name: c.Name, Kind: c.Kind}
	}
	return fields
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	c := t.columns[i]
	return Column{Name: c.Name, Kind: c.Kind, Values: append([]any(nil), c.Values...)}, true
}

// Value returns the cell at row i of the named column; nil for null cells and
// unknown columns.
func (t *Table) Value(i int, name string) any {
	idx, ok := t.index[name]
	if !ok || i < 0 || i >= t.rows {
		return nil
	}
	return t.columns[idx].Values[i]
}

// Row returns row i with a key for every column.
func (t *Table) Row(i int) Row {
	if i < 0 || i >= t.rows {
		return nil
	}
	row := make(Row, len(t.columns))
	for _, c := range t.columns {
		row[c.Name] = c.Values[i]
	}
	return row
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := &Table{
		columns: make([]*Column, len(t.columns)),
		index:   make(map[string]int, len(t.index)),
		rows:    t.rows,
	}
	for i, c := range t.columns {
		out.columns[i] = &Column{Name: c.Name, Kind: c.Kind, Values: append([]any(nil), c.Values...)}
		out.index[c.Name] = i
	}
	return out
}

// WithConstants returns a copy of t with one column per entry, each
// repeating its value on every row. New columns are added in sorted key
// order; a key naming an existing column replaces that column's cells and
// kind in place. Values that are not scalars are stored as their string form.
func (t *Table) WithConstants(consts map[string]any) (*Table, error) {
	keys := make([]string, 0, len(consts))
	for k := range consts {
		if k == "" {
			return nil, fmt.Errorf("%w: empty column name", core.ErrInvalidName)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := t.Clone()
	for _, k := range keys {
		cell, kind, err := Normalize(consts[k])
		if err != nil {
			cell, kind = fmt.Sprint(consts[k]), KindString
		}
		var c *Column
		if i, ok := out.index[k]; ok {
			c = out.columns[i]
			c.Kind = kind
		} else {
			c = out.addColumn(k, kind)
		}
		for i := range c.Values {
			c.Values[i] = cell
		}
	}
	return out, nil
}

// Equal reports whether both tables have the same columns in the same order
// and the same cells. Column kinds are not compared, so a null-only column
// equals any other null-only column of the same name.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.rows != o.rows || len(t.columns) != len(o.columns) {
		return false
	}
	for i, c := range t.columns {
		oc := o.columns[i]
		if c.Name != oc.Name {
			return false
		}
		for r := range c.Values {
			if !cellEqual(c.Values[r], oc.Values[r]) {
				return false
			}
		}
	}
	return true
}
