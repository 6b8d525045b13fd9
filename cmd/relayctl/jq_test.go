package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenarcade/relay/client"
)

func TestCompileJQFilters_InvalidExpression(t *testing.T) {
	_, err := compileJQFilters([]string{".status ==="})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse jq filter")
}

func TestMatchesJQFilters(t *testing.T) {
	sig := "5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7"
	slot := int64(42)
	sub := &client.Submission{
		ID:        "a",
		Signature: &sig,
		Status:    "confirmed",
		Slot:      &slot,
		Attempts:  3,
	}

	tests := []struct {
		name    string
		filters []string
		want    bool
	}{
		{"status match", []string{`.status == "confirmed"`}, true},
		{"status mismatch", []string{`.status == "failed"`}, false},
		{"numeric comparison", []string{`.attempts > 1`}, true},
		{"all must match", []string{`.status == "confirmed"`, `.attempts > 5`}, false},
		{"select yields nothing", []string{`select(.status == "failed")`}, false},
		{"nested field", []string{`.slot == 42`}, true},
		{"no filters", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filters, err := compileJQFilters(tt.filters)
			require.NoError(t, err)

			got, err := matchesJQFilters(filters, sub)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsTruthy(t *testing.T) {
	assert.False(t, isTruthy(nil))
	assert.False(t, isTruthy(false))
	assert.True(t, isTruthy(true))
	assert.True(t, isTruthy(0))
	assert.True(t, isTruthy("x"))
	assert.True(t, isTruthy(map[string]interface{}{}))
}
