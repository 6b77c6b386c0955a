// Package converter turns database/sql rows into Apache Arrow records.
package converter

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
)

// DatabaseTypeToArrow maps a database type name reported by the driver to an
// Arrow type. Unknown names map to nil so that value inference can decide.
func DatabaseTypeToArrow(dbType string) arrow.DataType {
	name := strings.ToLower(strings.TrimSpace(dbType))
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	if t, ok := typeMap[name]; ok {
		return t
	}
	return nil
}

var typeMap = map[string]arrow.DataType{
	// Integer types
	"tinyint":   arrow.PrimitiveTypes.Int64,
	"smallint":  arrow.PrimitiveTypes.Int64,
	"integer":   arrow.PrimitiveTypes.Int64,
	"int":       arrow.PrimitiveTypes.Int64,
	"bigint":    arrow.PrimitiveTypes.Int64,
	"hugeint":   arrow.PrimitiveTypes.Int64,
	"utinyint":  arrow.PrimitiveTypes.Int64,
	"usmallint": arrow.PrimitiveTypes.Int64,
	"uinteger":  arrow.PrimitiveTypes.Int64,

	// Floating point and fixed point types
	"real":    arrow.PrimitiveTypes.Float64,
	"float":   arrow.PrimitiveTypes.Float64,
	"double":  arrow.PrimitiveTypes.Float64,
	"decimal": arrow.PrimitiveTypes.Float64,
	"numeric": arrow.PrimitiveTypes.Float64,

	// Boolean type
	"boolean": arrow.FixedWidthTypes.Boolean,
	"bool":    arrow.FixedWidthTypes.Boolean,

	// Everything textual, temporal or nested is rendered as text.
	"varchar":   arrow.BinaryTypes.String,
	"text":      arrow.BinaryTypes.String,
	"string":    arrow.BinaryTypes.String,
	"date":      arrow.BinaryTypes.String,
	"time":      arrow.BinaryTypes.String,
	"timestamp": arrow.BinaryTypes.String,
	"uuid":      arrow.BinaryTypes.String,
	"json":      arrow.BinaryTypes.String,
}

// kind is the coarse value class used for inference.
type kind int

const (
	kindNull kind = iota
	kindInt
	kindFloat
	kindBool
	kindString
)

type floater interface {
	Float64() float64
}

type bigInteger interface {
	IsInt64() bool
	Int64() int64
}

// classify returns the kind of a scanned value.
func classify(v interface{}) kind {
	switch x := v.(type) {
	case nil:
		return kindNull
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return kindInt
	case uint, uint64:
		return kindInt
	case float32, float64:
		return kindFloat
	case bool:
		return kindBool
	case *big.Int:
		if x == nil {
			return kindNull
		}
		if x.IsInt64() {
			return kindInt
		}
		return kindString
	case bigInteger:
		if x.IsInt64() {
			return kindInt
		}
		return kindString
	case floater:
		return kindFloat
	default:
		return kindString
	}
}

// InferType picks the Arrow type for a column from its scanned values. Mixed
// integer and float columns widen to float, any other mix falls back to text.
// hint is used when every value is NULL.
func InferType(values []interface{}, hint arrow.DataType) arrow.DataType {
	seen := kindNull
	for _, v := range values {
		k := classify(v)
		switch {
		case k == kindNull:
			continue
		case seen == kindNull:
			seen = k
		case seen == k:
		case (seen == kindInt && k == kindFloat) || (seen == kindFloat && k == kindInt):
			seen = kindFloat
		default:
			seen = kindString
		}
	}

	switch seen {
	case kindInt:
		return arrow.PrimitiveTypes.Int64
	case kindFloat:
		return arrow.PrimitiveTypes.Float64
	case kindBool:
		return arrow.FixedWidthTypes.Boolean
	case kindString:
		return arrow.BinaryTypes.String
	default:
		if hint != nil {
			return hint
		}
		return arrow.BinaryTypes.String
	}
}

// toInt64 converts an integer-kind value.
func toInt64(v interface{}) int64 {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	case bigInteger:
		return x.Int64()
	default:
		return 0
	}
}

// toFloat64 converts an int- or float-kind value.
func toFloat64(v interface{}) float64 {
	switch x := v.(type) {
	case float32:
		return float64(x)
	case float64:
		return x
	case floater:
		return x.Float64()
	default:
		return float64(toInt64(v))
	}
}

// toString renders any value as text.
func toString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
