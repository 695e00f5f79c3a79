package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValuesEqual(t *testing.T) {
	tests := []struct {
		name     string
		actual   any
		expected any
		want     bool
	}{
		{"int64 vs int", int64(30), 30, true},
		{"float vs int", float64(30), 30, true},
		{"odbc bytes vs int", []byte("30"), 30, true},
		{"decimal bytes vs int", []byte("30.00"), 30, true},
		{"json number", int64(30), float64(30), true},
		{"mismatch", int64(29), 30, false},
		{"fraction", 0.1, "0.1", true},
		{"text", "King", "King", true},
		{"text mismatch", "King", "Kochhar", false},
		{"nil vs value", nil, 30, false},
		{"nil vs nil", nil, nil, true},
		{"bytes text", []byte("abc"), "abc", true},
		{"number vs text", int64(1), "one", false},
		{"hex text", "0x1e", 30, false},
		{"exponent text", "1e3", 1000, false},
		{"zero padded text", "030", 30, false},
		{"fraction text", "1/2", 0.5, false},
		{"signed decimal text", []byte("-30.50"), -30.5, true},
		{"zero", []byte("0"), 0, true},
		{"padded both sides", "030", "030", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValuesEqual(tt.actual, tt.expected))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "30", Normalize([]byte("30")))
	assert.Equal(t, int64(30), Normalize(int64(30)))
	assert.Nil(t, Normalize(nil))
}
