package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketRangeBounds(t *testing.T) {
	tests := []struct {
		name    string
		in      TicketRange
		wantLo  *float64
		wantHi  *float64
	}{
		{"million unit", TicketRange{Min: 5, Max: 10, Unit: "million"}, ptrFloat64(5_000_000), ptrFloat64(10_000_000)},
		{"millions unit", TicketRange{Min: 5, Max: 10, Unit: "millions"}, ptrFloat64(5_000_000), ptrFloat64(10_000_000)},
		{"mm unit", TicketRange{Min: 5, Max: 10, Unit: "mm"}, ptrFloat64(5_000_000), ptrFloat64(10_000_000)},
		{"unit case insensitive", TicketRange{Min: 2, Max: 4, Unit: "Million"}, ptrFloat64(2_000_000), ptrFloat64(4_000_000)},
		{"no unit stays absolute", TicketRange{Min: 5, Max: 10}, ptrFloat64(5), ptrFloat64(10)},
		{"unknown unit stays absolute", TicketRange{Min: 5, Max: 10, Unit: "billion"}, ptrFloat64(5), ptrFloat64(10)},
		{"string bounds", TicketRange{Min: "5", Max: "10", Unit: "mm"}, ptrFloat64(5_000_000), ptrFloat64(10_000_000)},
		{"comma grouping", TicketRange{Min: "2,500,000"}, ptrFloat64(2_500_000), nil},
		{"min only", TicketRange{Min: 3, Unit: "million"}, ptrFloat64(3_000_000), nil},
		{"max only", TicketRange{Max: 7}, nil, ptrFloat64(7)},
		{"empty", TicketRange{}, nil, nil},
		{"garbage degrades", TicketRange{Min: "lots", Max: true}, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := tt.in.Bounds()
			assertFloatPtr(t, tt.wantLo, lo)
			assertFloatPtr(t, tt.wantHi, hi)
		})
	}
}

func TestToNumber(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want *float64
	}{
		{"nil", nil, nil},
		{"float", float64(12.5), ptrFloat64(12.5)},
		{"int", 7, ptrFloat64(7)},
		{"int64", int64(9), ptrFloat64(9)},
		{"numeric string", "42", ptrFloat64(42)},
		{"decimal string", "3.5", ptrFloat64(3.5)},
		{"padded string", " 10 ", ptrFloat64(10)},
		{"comma string", "1,000,000", ptrFloat64(1_000_000)},
		{"empty string", "", nil},
		{"word", "ten", nil},
		{"bool", true, nil},
		{"slice", []int{1}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertFloatPtr(t, tt.want, toNumber(tt.in))
		})
	}
}

func assertFloatPtr(t *testing.T, want, got *float64) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got)
		return
	}
	require.NotNil(t, got)
	assert.InDelta(t, *want, *got, 0.0001)
}
