package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency-like tokens: optional dollar sign, digits with a two-decimal
// fraction, optional trailing percent marker.
var (
	reAmountToken  = regexp.MustCompile(`(\$?\s*[0-9]+(?:\.[0-9]{2}))(\s*%)?`)
	reDecimalComma = regexp.MustCompile(`([0-9]),([0-9]{2})([^0-9]|$)`)
	reNonNumeric   = regexp.MustCompile(`[^0-9.]`)
)

// amountCandidate is one parsed money token on a line.
type amountCandidate struct {
	value       decimal.Decimal
	isPercent   bool
	hasCurrency bool
	start       int
}

// amountCandidates parses every currency-like token on a line. OCR digit
// confusions are normalized first, and a comma used as a decimal
// separator (European receipts, or a misread period) is rewritten.
func amountCandidates(line string) []amountCandidate {
	normalized := normalizeDigits(line)
	normalized = reDecimalComma.ReplaceAllString(normalized, "$1.$2$3")

	var candidates []amountCandidate
	for _, m := range reAmountToken.FindAllStringSubmatchIndex(normalized, -1) {
		token := normalized[m[2]:m[3]]
		percent := m[4] >= 0 && strings.TrimSpace(normalized[m[4]:m[5]]) != ""

		numeric := reNonNumeric.ReplaceAllString(token, "")
		if numeric == "" {
			continue
		}
		value, err := decimal.NewFromString(numeric)
		if err != nil || value.IsNegative() {
			continue
		}

		candidates = append(candidates, amountCandidate{
			value:       value,
			isPercent:   percent,
			hasCurrency: strings.Contains(token, "$"),
			start:       m[0],
		})
	}
	return candidates
}

// extractAmount picks one amount from a line. Currency-marked tokens win
// over unmarked ones, and the remainder is resolved either by rightmost
// position (labels like "TAX" put the amount at the line's end) or by
// largest value.
func extractAmount(line string, preferRightmost bool) *decimal.Decimal {
	candidates := amountCandidates(line)
	if len(candidates) == 0 {
		return nil
	}

	// Percent-suffixed tokens are excluded outright: a rate like "8.25%"
	// must never be read as a money amount.
	var filtered []amountCandidate
	for _, c := range candidates {
		if !c.isPercent {
			filtered = append(filtered, c)
		}
	}

	var currency []amountCandidate
	for _, c := range filtered {
		if c.hasCurrency {
			currency = append(currency, c)
		}
	}
	if len(currency) > 0 {
		filtered = currency
	}
	if len(filtered) == 0 {
		return nil
	}

	selected := filtered[0]
	for _, c := range filtered[1:] {
		if preferRightmost {
			if c.start > selected.start {
				selected = c
			}
		} else if c.value.GreaterThan(selected.value) {
			selected = c
		}
	}
	return &selected.value
}

// findKeywordAmount returns the first amount on a line containing any of
// the keywords, scanning in the given order.
func findKeywordAmount(lines []string, keywords []string) *decimal.Decimal {
	for _, line := range lines {
		low := strings.ToLower(line)
		if !containsAny(low, keywords) {
			continue
		}
		if amount := extractAmount(line, true); amount != nil {
			return amount
		}
	}
	return nil
}

func containsAny(low string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(low, k) {
			return true
		}
	}
	return false
}

// normalizeDigits fixes the classic OCR letter/digit confusions before
// numeric or date parsing.
var digitFixer = strings.NewReplacer(
	"O", "0", "o", "0",
	"I", "1", "l", "1",
	"S", "5",
	"B", "8",
)

func normalizeDigits(s string) string {
	return digitFixer.Replace(s)
}
