package ocr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sizemo/ocreceipt/internal/models"
)

func TestQualityScoreRewardsReceiptKeywords(t *testing.T) {
	h := models.DefaultHeuristics()

	with := qualityScore(h, "TOTAL 12.34", 50)
	without := qualityScore(h, "QWERT 12.34", 50)
	require.InDelta(t, h.QualityKeywordWeight, with-without, 0.001)
}

func TestQualityScoreCapsLetterAndDigitTerms(t *testing.T) {
	h := models.DefaultHeuristics()

	letters := qualityScore(h, strings.Repeat("q", 10000), 0)
	require.InDelta(t, h.QualityLetterCap, letters, 0.001)

	digits := qualityScore(h, strings.Repeat("7", 10000), 0)
	require.InDelta(t, h.QualityDigitCap, digits, 0.001)
}

func TestRotationScoreUsesItsOwnKeywordWeight(t *testing.T) {
	h := models.DefaultHeuristics()

	with := rotationScore(h, "TOTAL", 50)
	without := rotationScore(h, "QWERT", 50)
	require.InDelta(t, h.RotationKeywordWeight, with-without, 0.001)
}

func TestQualityScoreEmptyTextIsRawConfidence(t *testing.T) {
	h := models.DefaultHeuristics()
	require.InDelta(t, 42.5, qualityScore(h, "", 42.5), 0.001)
}
