package extract

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestExtractAmount(t *testing.T) {
	tests := []struct {
		name            string
		line            string
		preferRightmost bool
		want            string
	}{
		{"plain amount", "TOTAL 10.80", false, "10.80"},
		{"currency marker wins", "TOTAL $5.00 8.00", false, "5.00"},
		{"largest when not rightmost", "ITEMS 3.50 12.00 7.25", false, "12.00"},
		{"rightmost for labeled lines", "TAX 1.00 2.00", true, "2.00"},
		{"decimal comma rewritten", "TAX 0,80", true, "0.80"},
		{"digit confusions fixed", "TOTAL 1O.8O", false, "10.80"},
		{"percent token skipped", "TAX 8.25% 0.83", true, "0.83"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractAmount(tt.line, tt.preferRightmost)
			require.NotNil(t, got)
			require.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestExtractAmountRejects(t *testing.T) {
	for _, line := range []string{
		"no numbers here",
		"QTY 3",
		"8.25%",
		"01/15/2024",
	} {
		t.Run(line, func(t *testing.T) {
			require.Nil(t, extractAmount(line, true))
		})
	}
}

func TestFindKeywordAmount(t *testing.T) {
	lines := []string{
		"ITEM 4.99",
		"SUBTOTAL 9.25",
		"SUB TOTAL 9.99",
	}

	got := findKeywordAmount(lines, []string{"subtotal", "sub total"})
	require.NotNil(t, got)
	require.True(t, got.Equal(decimal.RequireFromString("9.25")), "got %s", got)
}
