package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ValueType is the wire type of a feature value or an entity join key.
type ValueType string

const (
	ValueTypeInt32     ValueType = "INT32"
	ValueTypeInt64     ValueType = "INT64"
	ValueTypeFloat32   ValueType = "FLOAT32"
	ValueTypeFloat64   ValueType = "FLOAT64"
	ValueTypeBool      ValueType = "BOOL"
	ValueTypeString    ValueType = "STRING"
	ValueTypeBytes     ValueType = "BYTES"
	ValueTypeTimestamp ValueType = "TIMESTAMP"
)

var valueTypes = map[ValueType]bool{
	ValueTypeInt32:     true,
	ValueTypeInt64:     true,
	ValueTypeFloat32:   true,
	ValueTypeFloat64:   true,
	ValueTypeBool:      true,
	ValueTypeString:    true,
	ValueTypeBytes:     true,
	ValueTypeTimestamp: true,
}

func ParseValueType(s string) (ValueType, error) {
	vt := ValueType(strings.ToUpper(strings.TrimSpace(s)))
	if !valueTypes[vt] {
		return "", fmt.Errorf("%w: %q", ErrUnknownValueType, s)
	}
	return vt, nil
}

func (t ValueType) IsValid() bool { return valueTypes[t] }

// IsNumeric reports whether values of this type can feed a numeric model input.
func (t ValueType) IsNumeric() bool {
	switch t {
	case ValueTypeInt32, ValueTypeInt64, ValueTypeFloat32, ValueTypeFloat64, ValueTypeBool:
		return true
	}
	return false
}

// sqlTypeMap maps column types reported by the offline database to feature
// value types. Covers the postgres names plus the SQL Server aliases the
// original sources were declared with.
var sqlTypeMap = map[string]ValueType{
	"smallint":                    ValueTypeInt32,
	"int":                         ValueTypeInt32,
	"int2":                        ValueTypeInt32,
	"int4":                        ValueTypeInt32,
	"integer":                     ValueTypeInt32,
	"bigint":                      ValueTypeInt64,
	"int8":                        ValueTypeInt64,
	"real":                        ValueTypeFloat32,
	"float4":                      ValueTypeFloat32,
	"float":                       ValueTypeFloat64,
	"float8":                      ValueTypeFloat64,
	"double precision":            ValueTypeFloat64,
	"numeric":                     ValueTypeFloat64,
	"decimal":                     ValueTypeFloat64,
	"money":                       ValueTypeFloat64,
	"bit":                         ValueTypeBool,
	"boolean":                     ValueTypeBool,
	"bool":                        ValueTypeBool,
	"char":                        ValueTypeString,
	"varchar":                     ValueTypeString,
	"nchar":                       ValueTypeString,
	"nvarchar":                    ValueTypeString,
	"text":                        ValueTypeString,
	"ntext":                       ValueTypeString,
	"uuid":                        ValueTypeString,
	"binary":                      ValueTypeBytes,
	"varbinary":                   ValueTypeBytes,
	"bytea":                       ValueTypeBytes,
	"date":                        ValueTypeTimestamp,
	"datetime":                    ValueTypeTimestamp,
	"datetime2":                   ValueTypeTimestamp,
	"smalldatetime":               ValueTypeTimestamp,
	"timestamp":                   ValueTypeTimestamp,
	"timestamptz":                 ValueTypeTimestamp,
	"timestamp without time zone": ValueTypeTimestamp,
	"timestamp with time zone":    ValueTypeTimestamp,
}

// FromSQLType maps a database column type name to a ValueType.
func FromSQLType(sqlType string) (ValueType, error) {
	name := strings.ToLower(strings.TrimSpace(sqlType))
	// Strip length and precision qualifiers, e.g. varchar(64), numeric(10,2).
	if i := strings.IndexByte(name, '('); i > 0 {
		name = strings.TrimSpace(name[:i])
	}
	if vt, ok := sqlTypeMap[name]; ok {
		return vt, nil
	}
	return "", fmt.Errorf("%w: sql type %q", ErrUnknownValueType, sqlType)
}

// CoerceValue normalizes a scanned database value (or a decoded JSON value)
// into the canonical Go representation for this ValueType: int64, float64,
// bool, string, []byte or time.Time. nil passes through.
func (t ValueType) CoerceValue(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case ValueTypeInt32, ValueTypeInt64:
		switch x := v.(type) {
		case int:
			return int64(x), nil
		case int16:
			return int64(x), nil
		case int32:
			return int64(x), nil
		case int64:
			return x, nil
		case float64:
			return int64(x), nil
		case string:
			n, err := strconv.ParseInt(x, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("coerce %q to %s: %w", x, t, err)
			}
			return n, nil
		}
	case ValueTypeFloat32, ValueTypeFloat64:
		switch x := v.(type) {
		case float32:
			return float64(x), nil
		case float64:
			return x, nil
		case int:
			return float64(x), nil
		case int32:
			return float64(x), nil
		case int64:
			return float64(x), nil
		case string:
			f, err := strconv.ParseFloat(x, 64)
			if err != nil {
				return nil, fmt.Errorf("coerce %q to %s: %w", x, t, err)
			}
			return f, nil
		}
	case ValueTypeBool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case int64:
			return x != 0, nil
		case string:
			b, err := strconv.ParseBool(x)
			if err != nil {
				return nil, fmt.Errorf("coerce %q to %s: %w", x, t, err)
			}
			return b, nil
		}
	case ValueTypeString:
		switch x := v.(type) {
		case string:
			return x, nil
		case []byte:
			return string(x), nil
		case fmt.Stringer:
			return x.String(), nil
		}
	case ValueTypeBytes:
		switch x := v.(type) {
		case []byte:
			return x, nil
		case string:
			return []byte(x), nil
		}
	case ValueTypeTimestamp:
		switch x := v.(type) {
		case time.Time:
			return x, nil
		case string:
			ts, err := time.Parse(time.RFC3339Nano, x)
			if err != nil {
				return nil, fmt.Errorf("coerce %q to %s: %w", x, t, err)
			}
			return ts, nil
		}
	}
	return nil, fmt.Errorf("%w: cannot represent %T as %s", ErrValueTypeMismatch, v, t)
}

// NumericValue converts a canonical feature value to a float64 model input.
func NumericValue(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case int:
		return float64(x), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
