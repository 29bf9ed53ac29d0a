package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02T15:04:05.999999999"
)

// textual layouts drivers hand back for temporal columns
var dateTimeFormats = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	DateLayout,
}

// ToString renders a raw driver value as text. It never fails: every scalar
// has a textual form.
func ToString(val interface{}) string {
	switch v := val.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(TimestampLayout)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func ToInt64(val interface{}) (int64, error) {
	switch v := val.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", v)
		}
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) || v >= math.MaxInt64 || v < math.MinInt64 {
			return 0, fmt.Errorf("value %v is not an integer", v)
		}
		return int64(v), nil
	case float32:
		return ToInt64(float64(v))
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	case []byte:
		return ToInt64(string(v))
	default:
		return 0, fmt.Errorf("cannot convert %T to integer", val)
	}
}

func ToInt32(val interface{}) (int32, error) {
	n, err := ToInt64(val)
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt32 || n < math.MinInt32 {
		return 0, fmt.Errorf("value %d overflows int32", n)
	}
	return int32(n), nil
}

func ToFloat64(val interface{}) (float64, error) {
	switch v := val.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	case []byte:
		return ToFloat64(string(v))
	case bool:
		return 0, fmt.Errorf("cannot convert %T to float", val)
	default:
		n, err := ToInt64(val)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %T to float", val)
		}
		return float64(n), nil
	}
}

func ToFloat32(val interface{}) (float32, error) {
	f, err := ToFloat64(val)
	if err != nil {
		return 0, err
	}
	if math.Abs(f) > math.MaxFloat32 && !math.IsInf(f, 0) {
		return 0, fmt.Errorf("value %v overflows float32", f)
	}
	return float32(f), nil
}

func ToBool(val interface{}) (bool, error) {
	switch v := val.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(v))
	case []byte:
		return ToBool(string(v))
	default:
		n, err := ToInt64(val)
		if err != nil {
			return false, fmt.Errorf("cannot convert %T to bool", val)
		}
		switch n {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
		return false, fmt.Errorf("value %d is not a bit", n)
	}
}

// FormatDate renders a temporal value as wall-clock text without a zone.
// Textual values are normalised when they match a known layout and passed
// through otherwise.
func FormatDate(val interface{}, dateOnly bool) (string, error) {
	layout := TimestampLayout
	if dateOnly {
		layout = DateLayout
	}
	switch v := val.(type) {
	case time.Time:
		return v.Format(layout), nil
	case string:
		s := strings.TrimSpace(v)
		for _, f := range dateTimeFormats {
			if t, err := time.Parse(f, s); err == nil {
				return t.Format(layout), nil
			}
		}
		return s, nil
	case []byte:
		return FormatDate(string(v), dateOnly)
	default:
		return "", fmt.Errorf("cannot convert %T to date", val)
	}
}
