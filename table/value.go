package table

import (
	"fmt"
	"math"

	"github.com/skald-logger/skald/core"
)

// Kind is the type of the values stored in a column.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindString
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Normalize maps a Go scalar onto the cell representation used by tables:
// nil, int64, float64, string or bool.
func Normalize(v any) (any, Kind, error) {
	switch x := v.(type) {
	case nil:
		return nil, KindNull, nil
	case int:
		return int64(x), KindInt, nil
	case int8:
		return int64(x), KindInt, nil
	case int16:
		return int64(x), KindInt, nil
	case int32:
		return int64(x), KindInt, nil
	case int64:
		return x, KindInt, nil
	case uint:
		return uintToInt(uint64(x))
	case uint8:
		return int64(x), KindInt, nil
	case uint16:
		return int64(x), KindInt, nil
	case uint32:
		return int64(x), KindInt, nil
	case uint64:
		return uintToInt(x)
	case float32:
		return float64(x), KindFloat, nil
	case float64:
		return x, KindFloat, nil
	case string:
		return x, KindString, nil
	case bool:
		return x, KindBool, nil
	case *int64:
		if x == nil {
			return nil, KindNull, nil
		}
		return *x, KindInt, nil
	case *float64:
		if x == nil {
			return nil, KindNull, nil
		}
		return *x, KindFloat, nil
	case *string:
		if x == nil {
			return nil, KindNull, nil
		}
		return *x, KindString, nil
	default:
		return nil, KindNull, fmt.Errorf("%w: unsupported type %T", core.ErrInvalidValue, v)
	}
}

func uintToInt(x uint64) (any, Kind, error) {
	if x > math.MaxInt64 {
		return nil, KindNull, fmt.Errorf("%w: %d overflows int64", core.ErrInvalidValue, x)
	}
	return int64(x), KindInt, nil
}

// merge returns the kind a column of kind have takes after receiving a value
// of kind got.
func merge(have, got Kind) (Kind, error) {
	switch {
	case got == KindNull:
		return have, nil
	case have == KindNull, have == got:
		return got, nil
	case have == KindInt && got == KindFloat, have == KindFloat && got == KindInt:
		return KindFloat, nil
	default:
		return have, fmt.Errorf("%w: %s column cannot hold %s", core.ErrTypeConflict, have, got)
	}
}

func cellEqual(a, b any) bool {
	fa, okA := a.(float64)
	fb, okB := b.(float64)
	if okA && okB {
		return fa == fb || (math.IsNaN(fa) && math.IsNaN(fb))
	}
	return a == b
}
