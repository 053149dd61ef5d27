package extract

import (
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/sizemo/ocreceipt/internal/models"
	"github.com/sizemo/ocreceipt/internal/ocr"
)

const maxMerchantLen = 200

// Fields is the structured extraction result for one receipt, with the
// per-field confidences that feed the overall score.
type Fields struct {
	Merchant     *string
	PurchaseDate *time.Time
	Total        *decimal.Decimal
	SalesTax     *decimal.Decimal

	MerchantConfidence float64
	DateConfidence     float64
	TotalConfidence    float64
	TaxConfidence      float64

	RawText     string
	Confidence  float64
	NeedsReview bool
}

// Extract parses the typed receipt fields out of a combined OCR result.
// Merchant and date read top-of-receipt context first; total and tax read
// bottom-of-receipt context first. The tax guardrail runs before the
// subtotal-delta fallback so a discarded misread cannot block the
// fallback from supplying a plausible value.
func Extract(res ocr.Result, h models.Heuristics) Fields {
	mainLines := normalizeLines(res.Text)
	topLines := normalizeLines(res.TopText)
	bottomLines := normalizeLines(res.BottomText)
	numberLines := normalizeLines(res.BottomNumbersText)

	combined := dedupeLines(concatLines(topLines, mainLines, bottomLines, numberLines))
	confs := buildConfMap(res.AllLines())

	headLines := concatLines(topLines, combined)
	tailLines := concatLines(bottomLines, combined)

	var f Fields
	f.Merchant, f.MerchantConfidence = parseMerchant(headLines, confs)
	f.PurchaseDate, f.DateConfidence = parseDate(headLines, confs)
	f.Total, f.TotalConfidence = parseTotal(tailLines, confs, h)
	f.SalesTax, f.TaxConfidence = parseSalesTax(tailLines, confs, h)

	// A tax larger than a quarter of the total is almost always a misread
	// rate or an unrelated number, never a real sales tax.
	if f.SalesTax != nil && f.Total != nil {
		share := f.Total.Mul(decimal.NewFromFloat(h.TaxMaxShareOfTotal))
		if f.SalesTax.IsNegative() || f.SalesTax.GreaterThan(share) {
			f.SalesTax = nil
			f.TaxConfidence = 0
		}
	}

	if f.SalesTax == nil && f.Total != nil {
		subtotal := findKeywordAmount(tailLines, []string{"subtotal", "sub total"})
		if subtotal != nil {
			delta := f.Total.Sub(*subtotal)
			share := f.Total.Mul(decimal.NewFromFloat(h.TaxMaxShareOfTotal))
			if !delta.IsNegative() && delta.LessThanOrEqual(share) {
				f.SalesTax = &delta
				f.TaxConfidence = max(f.TaxConfidence, h.TaxFallbackFloor)
			}
		}
	}

	f.RawText = strings.Join(dedupeLines(concatLines(topLines, mainLines, bottomLines)), "\n")
	f.Confidence = overallConfidence(res.BestPassConfidence(), f, h)
	f.NeedsReview = f.Confidence < h.ReviewThreshold
	return f
}

var merchantBlacklist = []string{
	"invoice", "receipt", "order", "store", "thank", "date", "time",
	"cashier", "join", "earn", "points", "rewards",
}

var reStoreNumber = regexp.MustCompile(`\s+[0-9]{4,8}$`)

// parseMerchant picks the first early line that reads like a business
// name rather than receipt boilerplate. A trailing store number such as
// "Taco Bell 027825" is stripped, keeping just the name.
func parseMerchant(lines []string, confs *confMap) (*string, float64) {
	if len(lines) == 0 {
		return nil, 0
	}

	scan := lines
	if len(scan) > 12 {
		scan = scan[:12]
	}
	for _, line := range scan {
		low := strings.ToLower(line)
		if containsAny(low, merchantBlacklist) {
			continue
		}
		if countLetters(line) < 3 {
			continue
		}
		digits := countDigits(line)
		if digits > 8 {
			continue
		}

		stripped := strings.TrimSpace(reStoreNumber.ReplaceAllString(line, ""))
		if digits > 4 && stripped != "" && countLetters(stripped) >= 3 {
			name := truncate(stripped, maxMerchantLen)
			return &name, confs.confidence(line)
		}
		if digits > 4 {
			continue
		}
		name := truncate(line, maxMerchantLen)
		return &name, confs.confidence(line)
	}

	fallback := truncate(lines[0], maxMerchantLen)
	return &fallback, confs.confidence(fallback)
}

var dateKeywords = []string{"date", "purchase", "transaction", "time"}

// parseDate tries lines mentioning date context first, keeping relative
// order within each group, and returns the first parseable date.
func parseDate(lines []string, confs *confMap) (*time.Time, float64) {
	ranked := make([]string, len(lines))
	copy(ranked, lines)
	sort.SliceStable(ranked, func(i, j int) bool {
		return containsAny(strings.ToLower(ranked[i]), dateKeywords) &&
			!containsAny(strings.ToLower(ranked[j]), dateKeywords)
	})

	for _, line := range ranked {
		if d, ok := parseDateLine(line); ok {
			return &d, confs.confidence(line)
		}
	}
	return nil, 0
}

var taxKeywords = []string{"sales tax", "state tax", "tax", "hst", "gst", "vat"}

// parseSalesTax scans for tax-keyword lines and keeps the highest-scoring
// amount, favoring lines near the top of the candidate list. Ties keep
// the earliest candidate.
func parseSalesTax(lines []string, confs *confMap, h models.Heuristics) (*decimal.Decimal, float64) {
	var (
		best      *decimal.Decimal
		bestConf  float64
		bestScore float64
	)
	for idx, line := range lines {
		if !containsAny(strings.ToLower(line), taxKeywords) {
			continue
		}
		amount := extractAmount(line, true)
		if amount == nil {
			continue
		}

		conf := confs.confidence(line)
		score := conf + max(0, h.TaxProximityBase-float64(idx)*h.TaxProximityStep)
		if best == nil || score > bestScore {
			best, bestConf, bestScore = amount, conf, score
		}
	}
	return best, bestConf
}

var (
	totalPriorityKeywords = []string{"grand total", "amount due", "balance due", "total"}
	totalIgnoreKeywords   = []string{"subtotal", "sub total", "tax", "change", "tender", "discount"}
)

// parseTotal scans bottom-up for the line most likely to carry the grand
// total. Keyword bonuses and penalties dominate; agreement with an
// independently found subtotal+tax sum adds a strong cross-check bonus.
func parseTotal(lines []string, confs *confMap, h models.Heuristics) (*decimal.Decimal, float64) {
	reversed := make([]string, len(lines))
	for i, line := range lines {
		reversed[len(lines)-1-i] = line
	}

	subtotal := findKeywordAmount(reversed, []string{"subtotal", "sub total"})
	tax := findKeywordAmount(reversed, taxKeywords)

	scan := reversed
	if len(scan) > h.TotalMaxLinesScanned {
		scan = scan[:h.TotalMaxLinesScanned]
	}

	var (
		best      *decimal.Decimal
		bestConf  float64
		bestScore float64
	)
	for idx, line := range scan {
		amount := extractAmount(line, false)
		if amount == nil {
			continue
		}

		low := strings.ToLower(line)
		conf := confs.confidence(line)
		score := conf
		if containsAny(low, totalPriorityKeywords) {
			score += h.TotalPriorityBonus
		}
		if containsAny(low, totalIgnoreKeywords) {
			score -= h.TotalIgnorePenalty
		}
		score += max(0, h.TotalProximityBase-float64(idx)*h.TotalProximityStep)

		if subtotal != nil && tax != nil {
			delta := subtotal.Add(*tax).Sub(*amount).Abs()
			switch {
			case delta.LessThanOrEqual(decimal.NewFromFloat(h.TotalSumTightDelta)):
				score += h.TotalSumTightBonus
			case delta.LessThanOrEqual(decimal.NewFromFloat(h.TotalSumLooseDelta)):
				score += h.TotalSumLooseBonus
			}
		}

		if best == nil || score > bestScore {
			best, bestConf, bestScore = amount, conf, score
		}
	}
	return best, bestConf
}

func concatLines(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func countLetters(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
