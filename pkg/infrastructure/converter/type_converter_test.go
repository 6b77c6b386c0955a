package converter

import (
	"math/big"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
)

type decimalLike struct{ v float64 }

func (d decimalLike) Float64() float64 { return d.v }

func TestDatabaseTypeToArrow(t *testing.T) {
	tests := []struct {
		dbType string
		want   arrow.DataType
	}{
		{"BIGINT", arrow.PrimitiveTypes.Int64},
		{"integer", arrow.PrimitiveTypes.Int64},
		{"DOUBLE", arrow.PrimitiveTypes.Float64},
		{"DECIMAL(18,3)", arrow.PrimitiveTypes.Float64},
		{"BOOLEAN", arrow.FixedWidthTypes.Boolean},
		{"VARCHAR", arrow.BinaryTypes.String},
		{"DATE", arrow.BinaryTypes.String},
		{"", nil},
		{"STRUCT", nil},
	}

	for _, tt := range tests {
		t.Run(tt.dbType, func(t *testing.T) {
			assert.Equal(t, tt.want, DatabaseTypeToArrow(tt.dbType))
		})
	}
}

func TestInferType(t *testing.T) {
	tests := []struct {
		name   string
		values []interface{}
		hint   arrow.DataType
		want   arrow.DataType
	}{
		{"ints", []interface{}{int32(1), int64(2), nil}, nil, arrow.PrimitiveTypes.Int64},
		{"floats", []interface{}{1.5, float32(2)}, nil, arrow.PrimitiveTypes.Float64},
		{"int and float widen", []interface{}{int64(1), 0.25}, nil, arrow.PrimitiveTypes.Float64},
		{"decimal", []interface{}{decimalLike{1.25}}, nil, arrow.PrimitiveTypes.Float64},
		{"small big int", []interface{}{big.NewInt(42)}, nil, arrow.PrimitiveTypes.Int64},
		{"bools", []interface{}{true, false}, nil, arrow.FixedWidthTypes.Boolean},
		{"strings", []interface{}{"a", []byte("b")}, nil, arrow.BinaryTypes.String},
		{"times", []interface{}{time.Now()}, nil, arrow.BinaryTypes.String},
		{"int and string", []interface{}{int64(1), "x"}, nil, arrow.BinaryTypes.String},
		{"all null uses hint", []interface{}{nil, nil}, arrow.PrimitiveTypes.Int64, arrow.PrimitiveTypes.Int64},
		{"all null no hint", []interface{}{nil}, nil, arrow.BinaryTypes.String},
		{"empty", nil, arrow.PrimitiveTypes.Float64, arrow.PrimitiveTypes.Float64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferType(tt.values, tt.hint))
		})
	}
}

func TestToString(t *testing.T) {
	assert.Equal(t, "2024-03-01", toString(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-03-01T10:30:00Z", toString(time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)))
	assert.Equal(t, "raw", toString([]byte("raw")))
	assert.Equal(t, "true", toString(true))

	huge, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	assert.Equal(t, "123456789012345678901234567890", toString(huge))
}
