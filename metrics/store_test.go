package metrics

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/skald-logger/skald/core"
	"github.com/skald-logger/skald/table"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type metric struct {
	name  string
	value float64
	ids   IDs
}

func sampleMetrics() []metric {
	return []metric{
		{name: "name", value: 42, ids: IDs{"step": nil}},
		{name: "metric1", value: 1, ids: IDs{"step": 1}},
		{name: "metric2", value: 0.5, ids: IDs{"step": 1}},
		{name: "metric1", value: 1, ids: IDs{"step": 2}},
		{name: "metric2", value: 1.0, ids: IDs{"step": 2}},
		{name: "name", value: 42, ids: IDs{"additional_id": "😫"}},
		{name: "loss", value: 1.1, ids: IDs{"step": 1, "stage": "train"}},
		{name: "loss", value: 1.3, ids: IDs{"step": 1, "stage": "test"}},
		{name: "avg_loss", value: 1.2, ids: IDs{"step": 1}},
		{name: "lr", value: 0.01, ids: IDs{"step": 3, "warmup": true, "ratio": 0.25}},
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for _, format := range []Format{CSV, Parquet} {
		t.Run(string(format), func(t *testing.T) {
			fs := afero.NewMemMapFs()
			s, err := NewStore(fs, "/runs/test", format)
			require.NoError(t, err)

			for _, m := range sampleMetrics() {
				require.NoError(t, s.Log(m.name, m.value, m.ids))
			}
			require.NoError(t, s.Flush())

			saved, err := Read(fs, s.Path())
			require.NoError(t, err)
			assert.True(t, s.Table().Equal(saved), "saved table differs:\nwant %v\ngot  %v", s.Table().Columns(), saved.Columns())
			assert.Equal(t, len(sampleMetrics()), saved.Len())
		})
	}
}

func TestStoreEmptyRoundTrip(t *testing.T) {
	for _, format := range []Format{CSV, Parquet} {
		t.Run(string(format), func(t *testing.T) {
			fs := afero.NewMemMapFs()
			s, err := NewStore(fs, "/runs/test", format)
			require.NoError(t, err)
			require.NoError(t, s.Flush())

			saved, err := Read(fs, s.Path())
			require.NoError(t, err)
			assert.Equal(t, 0, saved.Len())
			assert.Equal(t, []string{ColumnName, ColumnValue}, saved.Columns())
		})
	}
}

func TestStoreSchemaUnion(t *testing.T) {
	s, err := NewStore(afero.NewMemMapFs(), "/r", Parquet)
	require.NoError(t, err)

	require.NoError(t, s.Log("a", 1, IDs{"step": 1}))
	require.NoError(t, s.Log("b", 2, IDs{"stage": "x"}))

	tbl := s.Table()
	assert.Equal(t, []string{"name", "value", "step", "stage"}, tbl.Columns())
	assert.Nil(t, tbl.Value(0, "stage"))
	assert.Nil(t, tbl.Value(1, "step"))
}

func TestStoreValueIsFloat(t *testing.T) {
	s, err := NewStore(afero.NewMemMapFs(), "/r", CSV)
	require.NoError(t, err)

	v, err := ToFloat(1)
	require.NoError(t, err)
	require.NoError(t, s.Log("m", v, IDs{"step": 1}))

	assert.IsType(t, float64(0), s.Table().Value(0, ColumnValue))
	assert.Equal(t, 1.0, s.Table().Value(0, ColumnValue))
}

func TestStoreLogValidation(t *testing.T) {
	s, err := NewStore(afero.NewMemMapFs(), "/r", CSV)
	require.NoError(t, err)
	require.NoError(t, s.Log("m", 1, IDs{"step": 1}))

	assert.ErrorIs(t, s.Log("", 1, nil), core.ErrInvalidName)
	assert.ErrorIs(t, s.Log("m", 1, IDs{"value": 2}), core.ErrInvalidName)
	assert.ErrorIs(t, s.Log("m", 1, IDs{"step": "one"}), core.ErrTypeConflict)
	assert.ErrorIs(t, s.Log("m", 1, IDs{"obj": struct{}{}}), core.ErrInvalidValue)
	assert.Equal(t, 1, s.Len())
}

func TestStoreDuplicatesAreRows(t *testing.T) {
	s, err := NewStore(afero.NewMemMapFs(), "/r", CSV)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Log("loss", 0.5, IDs{"step": 1}))
	}
	assert.Equal(t, 3, s.Len())
}

func TestStoreWithParams(t *testing.T) {
	s, err := NewStore(afero.NewMemMapFs(), "/r", CSV)
	require.NoError(t, err)
	require.NoError(t, s.Log("loss", 0.5, IDs{"step": 1}))
	require.NoError(t, s.Log("loss", 0.4, IDs{"step": 2}))

	tbl, err := s.WithParams(map[string]any{"skald.run_name": "t", "train.epochs": 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "value", "step", "skald.run_name", "train.epochs"}, tbl.Columns())
	assert.Equal(t, int64(5), tbl.Value(1, "train.epochs"))
	assert.Equal(t, "t", tbl.Value(0, "skald.run_name"))
	assert.Equal(t, 3, len(s.Table().Columns()))
}

func TestFlushIsIdempotent(t *testing.T) {
	for _, format := range []Format{CSV, Parquet} {
		t.Run(string(format), func(t *testing.T) {
			fs := afero.NewMemMapFs()
			s, err := NewStore(fs, "/r", format)
			require.NoError(t, err)
			require.NoError(t, s.Log("loss", 0.5, IDs{"step": 1}))

			require.NoError(t, s.Flush())
			first, err := afero.ReadFile(fs, s.Path())
			require.NoError(t, err)
			require.NoError(t, s.Flush())
			second, err := afero.ReadFile(fs, s.Path())
			require.NoError(t, err)
			assert.Equal(t, first, second)

			entries, err := afero.ReadDir(fs, "/r")
			require.NoError(t, err)
			assert.Len(t, entries, 1, "temporary files must not be left behind")
		})
	}
}

func TestFlushErrorIsReturned(t *testing.T) {
	base := afero.NewMemMapFs()
	require.NoError(t, base.MkdirAll("/r", 0o755))
	s, err := NewStore(afero.NewReadOnlyFs(base), "/r", CSV)
	require.NoError(t, err)
	require.NoError(t, s.Log("loss", 0.5, nil))

	err = s.Flush()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flush metrics")
}

func TestCSVLayout(t *testing.T) {
	s, err := NewStore(afero.NewMemMapFs(), "/r", CSV)
	require.NoError(t, err)
	require.NoError(t, s.Log("a", 1, IDs{"step": 1}))
	require.NoError(t, s.Log("b", 2.5, IDs{"stage": "x"}))

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, s.Table(), CSV))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"name,value,step,stage",
		`"a",1.0,1,`,
		`"b",2.5,,"x"`,
	}, lines)
}

func TestCSVKeepsStringIDs(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := NewStore(fs, "/r", CSV)
	require.NoError(t, err)
	require.NoError(t, s.Log("loss", 0.5, IDs{"fold": "1", "flag": "true", "tag": "NaN"}))
	require.NoError(t, s.Log("loss", 0.4, IDs{"fold": "2", "flag": "", "note": `say "hi", then
leave`}))
	require.NoError(t, s.Log("loss", 0.3, IDs{"step": 3}))
	require.NoError(t, s.Flush())

	saved, err := Read(fs, s.Path())
	require.NoError(t, err)
	assert.True(t, s.Table().Equal(saved))

	fold, ok := saved.Column("fold")
	require.True(t, ok)
	assert.Equal(t, table.KindString, fold.Kind)
	assert.Equal(t, []any{"1", "2", nil}, fold.Values)

	flag, _ := saved.Column("flag")
	assert.Equal(t, []any{"true", "", nil}, flag.Values)
	assert.Equal(t, "NaN", saved.Value(0, "tag"))
	assert.Equal(t, "say \"hi\", then\nleave", saved.Value(1, "note"))

	step, _ := saved.Column("step")
	assert.Equal(t, table.KindInt, step.Kind)
}

func TestInferColumn(t *testing.T) {
	plain := func(raw ...string) []csvCell {
		cells := make([]csvCell, len(raw))
		for i, s := range raw {
			cells[i] = csvCell{text: s}
		}
		return cells
	}
	tests := []struct {
		name  string
		cells []csvCell
		kind  table.Kind
		want  []any
	}{
		{name: "ints", cells: plain("1", "", "3"), kind: table.KindInt, want: []any{int64(1), nil, int64(3)}},
		{name: "floats", cells: plain("1", "0.5"), kind: table.KindFloat, want: []any{1.0, 0.5}},
		{name: "bools", cells: plain("true", "false"), kind: table.KindBool, want: []any{true, false}},
		{name: "strings", cells: plain("train", "1"), kind: table.KindString, want: []any{"train", "1"}},
		{name: "nulls", cells: plain("", ""), kind: table.KindNull, want: []any{nil, nil}},
		{
			name:  "quoted numbers",
			cells: []csvCell{{text: "1", quoted: true}, {text: ""}, {text: "", quoted: true}},
			kind:  table.KindString,
			want:  []any{"1", nil, ""},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, kind := inferColumn(tt.cells)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadUnsupportedFormat(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/r/metrics.json", []byte("{}"), 0o644))

	_, err := Read(fs, "/r/metrics.json")
	assert.True(t, errors.Is(err, core.ErrUnsupportedFormat))

	_, err = Read(fs, "/r/metrics")
	assert.True(t, errors.Is(err, core.ErrUnsupportedFormat))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, Parquet, f)

	f, err = ParseFormat(".CSV")
	require.NoError(t, err)
	assert.Equal(t, CSV, f)

	_, err = ParseFormat("xlsx")
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)

	_, err = NewStore(afero.NewMemMapFs(), "/r", Format("xlsx"))
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
}

func TestToFloat(t *testing.T) {
	for _, v := range []any{1, int8(1), int64(1), uint16(1), float32(1), 1.0} {
		f, err := ToFloat(v)
		require.NoError(t, err)
		assert.Equal(t, 1.0, f)
	}
	_, err := ToFloat("1")
	assert.ErrorIs(t, err, core.ErrInvalidValue)
}
