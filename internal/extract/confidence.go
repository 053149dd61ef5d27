package extract

import (
	"math"

	"github.com/sizemo/ocreceipt/internal/models"
)

// overallConfidence folds the pass confidence and the per-field
// confidences into one 0-100 score. Missing hard fields cost flat
// penalties on top of their zero confidence contribution.
func overallConfidence(passConf float64, f Fields, h models.Heuristics) float64 {
	score := passConf*h.PassWeight +
		f.MerchantConfidence*h.MerchantWeight +
		f.DateConfidence*h.DateWeight +
		f.TotalConfidence*h.TotalWeight +
		f.TaxConfidence*h.TaxWeight

	if f.Total == nil {
		score -= h.MissingTotalPenalty
	}
	if f.PurchaseDate == nil {
		score -= h.MissingDatePenalty
	}
	if f.SalesTax == nil {
		score -= h.MissingTaxPenalty
	}

	score = math.Max(0, math.Min(100, score))
	return math.Round(score*100) / 100
}
