package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/glassflow/shopify-shops-etl/internal/core/timeparse"
)

// DataType represents supported coercion targets
type DataType string

const (
	TypeNone     DataType = ""
	TypeString   DataType = "string"
	TypeInt      DataType = "int"
	TypeFloat    DataType = "float"
	TypeBool     DataType = "bool"
	TypeArray    DataType = "array"
	TypeDateTime DataType = "datetime"
)

//nolint:gochecknoglobals // immutable after init
var (
	converters     = newConverters()
	datetimeParser = timeparse.NewParser(nil, time.UTC)
)

var errOutOfRange = errors.New("out of int64 range")

// floatToInt64 truncates f toward zero.
func floatToInt64(f float64) (int64, error) {
	if math.IsNaN(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, errOutOfRange
	}
	return int64(f), nil
}

// newConverters initializes type conversion functions
func newConverters() map[DataType]func(any) (any, error) {
	c := make(map[DataType]func(any) (any, error))

	c[TypeString] = func(v any) (any, error) {
		switch val := v.(type) {
		case string:
			return val, nil
		case []byte:
			return string(val), nil
		case json.Number:
			return val.String(), nil
		default:
			return fmt.Sprintf("%v", val), nil
		}
	}

	c[TypeInt] = func(v any) (any, error) {
		switch val := v.(type) {
		case string:
			return strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		case []byte:
			return strconv.ParseInt(strings.TrimSpace(string(val)), 10, 64)
		case json.Number:
			if i, err := val.Int64(); err == nil {
				return i, nil
			}
			f, err := val.Float64()
			if err != nil {
				return nil, err //nolint:wrapcheck // wrapped in ConversionError
			}
			return floatToInt64(f)
		case float64:
			return floatToInt64(val)
		case float32:
			return floatToInt64(float64(val))
		case uint, uint64:
			u := cast.ToUint64(val)
			if u > math.MaxInt64 {
				return nil, errOutOfRange
			}
			return int64(u), nil
		case int, int8, int16, int32, int64, uint8, uint16, uint32, bool:
			return cast.ToInt64E(val)
		default:
			return nil, fmt.Errorf("cannot convert %T to int", val)
		}
	}

	c[TypeFloat] = func(v any) (any, error) {
		switch val := v.(type) {
		case string:
			return strconv.ParseFloat(strings.TrimSpace(val), 64)
		case []byte:
			return strconv.ParseFloat(strings.TrimSpace(string(val)), 64)
		case json.Number:
			return val.Float64()
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, bool:
			return cast.ToFloat64E(val)
		default:
			return nil, fmt.Errorf("cannot convert %T to float", val)
		}
	}

	c[TypeBool] = func(v any) (any, error) {
		switch val := v.(type) {
		case bool:
			return val, nil
		case string:
			return strconv.ParseBool(val)
		case []byte:
			return strconv.ParseBool(string(val))
		case int, int64, int32, float64:
			n := reflect.ValueOf(val)
			if n.CanInt() {
				return n.Int() != 0, nil
			}
			return n.Float() != 0, nil
		default:
			return nil, fmt.Errorf("cannot convert %v to bool", val)
		}
	}

	c[TypeArray] = func(v any) (any, error) {
		switch val := v.(type) {
		case []any:
			return val, nil
		case []string:
			arr := make([]any, len(val))
			for i, s := range val {
				arr[i] = s
			}
			return arr, nil
		case string:
			var arr []any
			if err := json.Unmarshal([]byte(val), &arr); err != nil {
				return nil, fmt.Errorf("cannot convert string to array: %w", err)
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("cannot convert %v to array", val)
		}
	}

	// datetime values leave the cleaner as RFC3339 strings so they serialise
	// the same way on every sink.
	c[TypeDateTime] = func(v any) (any, error) {
		switch val := v.(type) {
		case time.Time:
			return val.UTC().Format(time.RFC3339), nil
		case string:
			t, err := datetimeParser.Parse(val)
			if err != nil {
				return nil, err //nolint:wrapcheck // wrapped in ConversionError
			}
			return t.UTC().Format(time.RFC3339), nil
		case int64:
			return time.Unix(val, 0).UTC().Format(time.RFC3339), nil
		default:
			return nil, fmt.Errorf("cannot convert %v to datetime", val)
		}
	}

	return c
}

func convert(t DataType, v any) (any, error) {
	converter, ok := converters[t]
	if !ok {
		return nil, &ConversionError{Value: v, Type: t, Err: ErrUnsupportedType}
	}

	out, err := converter(v)
	if err != nil {
		return nil, &ConversionError{Value: v, Type: t, Err: err}
	}

	return out, nil
}

// isEmpty reports whether v counts as "nothing" for nullability: nil, zero
// numbers, false, and zero-length strings, slices and maps.
func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case bool:
		return !val
	case json.Number:
		if val == "" {
			return true
		}
		f, err := val.Float64()
		return err == nil && f == 0
	case time.Time:
		return false
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() { //nolint:exhaustive // remaining kinds are never empty
	case reflect.Slice, reflect.Map, reflect.Array, reflect.String:
		return rv.Len() == 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
