package ocr

import (
	"strings"
	"unicode"

	"github.com/sizemo/ocreceipt/internal/models"
)

// Keywords that indicate a legible receipt. The orchestrator's quality
// score and the rotation picker share the letter/digit terms but weight
// keyword hits differently.
var qualityKeywords = []string{"total", "tax", "subtotal", "amount", "visa", "mastercard", "cashier", "order"}

var rotationKeywords = []string{"total", "tax", "subtotal", "visa", "mastercard", "amount"}

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

func keywordHits(low string, keywords []string) int {
	hits := 0
	for _, k := range keywords {
		if strings.Contains(low, k) {
			hits++
		}
	}
	return hits
}

// qualityScore ranks a recognition pass. Raw engine confidence alone is
// noisy; the letter, digit and keyword terms reward passes that actually
// read receipt-shaped text.
func qualityScore(h models.Heuristics, text string, avgConf float64) float64 {
	low := strings.ToLower(text)
	score := avgConf
	score += min(h.QualityLetterCap, float64(countLetters(low))/h.QualityLetterDiv)
	score += min(h.QualityDigitCap, float64(countDigits(low))/h.QualityDigitDiv)
	score += float64(keywordHits(low, qualityKeywords)) * h.QualityKeywordWeight
	return score
}

// rotationScore ranks one of the four 90-degree rotation candidates.
func rotationScore(h models.Heuristics, text string, avgConf float64) float64 {
	low := strings.ToLower(text)
	score := avgConf
	score += min(h.QualityLetterCap, float64(countLetters(low))/h.QualityLetterDiv)
	score += min(h.QualityDigitCap, float64(countDigits(low))/h.QualityDigitDiv)
	score += float64(keywordHits(low, rotationKeywords)) * h.RotationKeywordWeight
	return score
}
