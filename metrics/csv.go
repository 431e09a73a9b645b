package metrics

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/skald-logger/skald/table"
)

// encodeCSV writes the header and one record per row. String cells are always
// quoted so that they read back as strings even when they look like numbers,
// and so that an empty string stays distinct from a null cell.
func encodeCSV(w io.Writer, t *table.Table) error {
	bw := bufio.NewWriter(w)
	cols := t.Columns()
	header := make([]string, len(cols))
	for j, name := range cols {
		header[j] = quoteIfNeeded(name)
	}
	if err := writeRecord(bw, header); err != nil {
		return err
	}
	record := make([]string, len(cols))
	for i := 0; i < t.Len(); i++ {
		for j, name := range cols {
			record[j] = formatCell(t.Value(i, name))
		}
		if err := writeRecord(bw, record); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeRecord(w *bufio.Writer, fields []string) error {
	if _, err := w.WriteString(strings.Join(fields, ",")); err != nil {
		return err
	}
	return w.WriteByte('\n')
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, ",\"\r\n") || s[0] == ' ' || s[0] == '\t' {
		return quote(s)
	}
	return s
}

// formatCell renders a cell; floats always keep a decimal point or exponent so
// that they decode as floats again.
func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		switch {
		case math.IsNaN(x):
			return "NaN"
		case math.IsInf(x, 1):
			return "inf"
		case math.IsInf(x, -1):
			return "-inf"
		}
		s := strconv.FormatFloat(x, 'g', -1, 64)
		if !strings.ContainsAny(s, ".e") {
			s += ".0"
		}
		return s
	case bool:
		return strconv.FormatBool(x)
	case string:
		return quote(x)
	default:
		return quote(fmt.Sprint(x))
	}
}

// csvCell is a decoded field and whether it was quoted on disk.
type csvCell struct {
	text   string
	quoted bool
}

func decodeCSV(data []byte) (*table.Table, error) {
	lines := bytes.Split(data, []byte("\n"))
	cr := csv.NewReader(bytes.NewReader(data))

	var header []string
	var rows [][]csvCell
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if header == nil {
			header = rec
			continue
		}
		row := make([]csvCell, len(rec))
		for j, text := range rec {
			line, col := cr.FieldPos(j)
			row[j] = csvCell{text: text, quoted: startsWithQuote(lines, line, col)}
		}
		rows = append(rows, row)
	}
	if header == nil {
		return table.New(), nil
	}

	cols := make([]table.Column, len(header))
	for j, name := range header {
		cells := make([]csvCell, len(rows))
		for i, row := range rows {
			cells[i] = row[j]
		}
		values, kind := inferColumn(cells)
		cols[j] = table.Column{Name: name, Kind: kind, Values: values}
	}
	return table.FromColumns(cols...)
}

// startsWithQuote reports whether the field starting at the 1-based line and
// byte column opens with a quote.
func startsWithQuote(lines [][]byte, line, col int) bool {
	if line < 1 || line > len(lines) {
		return false
	}
	l := lines[line-1]
	return col >= 1 && col <= len(l) && l[col-1] == '"'
}

// inferColumn picks the kind of a column. Any quoted cell makes it a string
// column. Otherwise the narrowest kind that parses every non-empty cell wins:
// int, then float, then bool, then string. Unquoted empty cells are null.
func inferColumn(cells []csvCell) ([]any, table.Kind) {
	values := make([]any, len(cells))
	raw := make([]string, len(cells))
	quoted := false
	for i, c := range cells {
		raw[i] = c.text
		quoted = quoted || c.quoted
	}
	if quoted {
		for i, c := range cells {
			if c.quoted || c.text != "" {
				values[i] = c.text
			}
		}
		return values, table.KindString
	}

	kind := table.KindNull
	for _, kinds := range [][]table.Kind{{table.KindInt}, {table.KindInt, table.KindFloat}, {table.KindBool}} {
		if ok, k := parsesAs(raw, kinds); ok {
			kind = k
			break
		}
	}
	if kind == table.KindNull && !allEmpty(raw) {
		kind = table.KindString
	}

	for i, s := range raw {
		if s == "" {
			continue
		}
		switch kind {
		case table.KindInt:
			values[i], _ = strconv.ParseInt(s, 10, 64)
		case table.KindFloat:
			values[i], _ = parseFloat(s)
		case table.KindBool:
			values[i], _ = strconv.ParseBool(s)
		default:
			values[i] = s
		}
	}
	return values, kind
}

func parsesAs(raw []string, kinds []table.Kind) (bool, table.Kind) {
	result := table.KindNull
	for _, s := range raw {
		if s == "" {
			continue
		}
		matched := false
		for _, k := range kinds {
			if cellParses(s, k) {
				if k > result {
					result = k
				}
				matched = true
				break
			}
		}
		if !matched {
			return false, table.KindNull
		}
	}
	return result != table.KindNull, result
}

func cellParses(s string, k table.Kind) bool {
	switch k {
	case table.KindInt:
		_, err := strconv.ParseInt(s, 10, 64)
		return err == nil
	case table.KindFloat:
		_, err := parseFloat(s)
		return err == nil
	case table.KindBool:
		return s == "true" || s == "false"
	}
	return false
}

func parseFloat(s string) (float64, error) {
	switch strings.ToLower(s) {
	case "inf", "+inf":
		return math.Inf(1), nil
	case "-inf":
		return math.Inf(-1), nil
	case "nan":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func allEmpty(raw []string) bool {
	for _, s := range raw {
		if s != "" {
			return false
		}
	}
	return true
}
