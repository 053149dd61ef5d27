package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDateLine(t *testing.T) {
	tests := []struct {
		line string
		want time.Time
		ok   bool
	}{
		{"01/15/2024", date(2024, 1, 15), true},
		{"1-5-24", date(2024, 1, 5), true},
		{"2024-01-15", date(2024, 1, 15), true},
		{"2024/1/5", date(2024, 1, 5), true},
		{"Jan 15, 2024", date(2024, 1, 15), true},
		{"Sept 3 2021", date(2021, 9, 3), true},
		{"DECEMBER 24, 2023", date(2023, 12, 24), true},
		{"DATE: 01/15/2024 TIME: 14:02", date(2024, 1, 15), true},
		// OCR digit confusions inside the date.
		{"0l/l5/2024", date(2024, 1, 15), true},
		// Mangled separators fall back to the loose numeric scan.
		{"01 15 2024", date(2024, 1, 15), true},
		// Out-of-window years and impossible dates are rejected.
		{"01/15/1999", time.Time{}, false},
		{"13/45/2024", time.Time{}, false},
		{"02/30/2024", time.Time{}, false},
		{"no date here", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := parseDateLine(tt.line)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				require.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseDateKeywordLinesRankFirst(t *testing.T) {
	lines := []string{
		"03/03/2023",
		"TRANSACTION DATE 01/15/2024",
	}

	d, _ := parseDate(lines, buildConfMap(nil))
	require.NotNil(t, d)
	require.Equal(t, date(2024, 1, 15), *d)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
