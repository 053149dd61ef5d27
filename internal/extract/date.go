package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Receipt dates come in three shapes: slash/dash numeric with the year
// last, ISO-like with the year first, and spelled-out month names.
var (
	reDateMDY   = regexp.MustCompile(`\b([0-9]{1,2})[/-]([0-9]{1,2})[/-]([0-9]{2,4})\b`)
	reDateYMD   = regexp.MustCompile(`\b([0-9]{4})[/-]([0-9]{1,2})[/-]([0-9]{1,2})\b`)
	reDateMonth = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+([0-9]{1,2}),?\s+([0-9]{2,4})\b`)

	reNumberRun = regexp.MustCompile(`[0-9]+`)
)

var monthsByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// parseDateLine extracts the first plausible purchase date from one line.
// The structured patterns are tried first; a loose numeric scan over the
// whole line is the last resort.
func parseDateLine(line string) (time.Time, bool) {
	normalized := normalizeDigits(line)

	for _, m := range reDateMDY.FindAllStringSubmatch(normalized, -1) {
		if d, ok := makeDate(atoi(m[3]), atoi(m[1]), atoi(m[2])); ok {
			return d, true
		}
	}
	for _, m := range reDateYMD.FindAllStringSubmatch(normalized, -1) {
		if d, ok := makeDate(atoi(m[1]), atoi(m[2]), atoi(m[3])); ok {
			return d, true
		}
	}
	// The digit fixes corrupt month names ("Sept" becomes "5ept"), so the
	// month-name family also tries the untouched line.
	for _, source := range []string{normalized, line} {
		for _, m := range reDateMonth.FindAllStringSubmatch(source, -1) {
			month, ok := monthsByPrefix[strings.ToLower(m[1])]
			if !ok {
				continue
			}
			if d, ok := makeDate(atoi(m[3]), int(month), atoi(m[2])); ok {
				return d, true
			}
		}
	}

	return fuzzyDate(normalized)
}

// fuzzyDate attempts a date from the bare number runs on a line whose
// separators the engine mangled, e.g. "01 15 2024" or "2024.01.15".
func fuzzyDate(line string) (time.Time, bool) {
	runs := reNumberRun.FindAllString(line, -1)
	for i := 0; i+3 <= len(runs); i++ {
		a, b, c := atoi(runs[i]), atoi(runs[i+1]), atoi(runs[i+2])
		if len(runs[i]) == 4 {
			if d, ok := makeDate(a, b, c); ok {
				return d, true
			}
		}
		if len(runs[i+2]) == 4 || len(runs[i+2]) == 2 {
			if d, ok := makeDate(c, a, b); ok {
				return d, true
			}
		}
	}
	return time.Time{}, false
}

// makeDate validates the parts and builds a UTC date. Two-digit years
// are taken as 2000-based; anything outside 2000-2100 is rejected.
func makeDate(year, month, day int) (time.Time, bool) {
	if year < 100 {
		year += 2000
	}
	if year < 2000 || year > 2100 {
		return time.Time{}, false
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Day() != day || d.Month() != time.Month(month) {
		return time.Time{}, false
	}
	return d, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
