package models

// Heuristics collects every weight and threshold used by the OCR scoring
// and field-extraction policy. Keeping them in one structure makes the
// policy tunable and testable independently of control flow.
type Heuristics struct {
	// Pass quality scoring: avg_conf + min(LetterCap, letters/LetterDiv)
	// + min(DigitCap, digits/DigitDiv) + hits*KeywordWeight.
	QualityLetterCap     float64 `yaml:"quality_letter_cap"`
	QualityLetterDiv     float64 `yaml:"quality_letter_div"`
	QualityDigitCap      float64 `yaml:"quality_digit_cap"`
	QualityDigitDiv      float64 `yaml:"quality_digit_div"`
	QualityKeywordWeight float64 `yaml:"quality_keyword_weight"`

	// Rotation selection uses the same letter/digit terms but its own
	// keyword weight.
	RotationKeywordWeight float64 `yaml:"rotation_keyword_weight"`

	// Region pass weights for picking the best crop candidate.
	TopRegionWeight     float64 `yaml:"top_region_weight"`
	BottomRegionWeight  float64 `yaml:"bottom_region_weight"`
	NumbersRegionWeight float64 `yaml:"numbers_region_weight"`

	// Image normalization.
	MaxImageSide       int     `yaml:"max_image_side"`
	CropMinAreaRatio   float64 `yaml:"crop_min_area_ratio"`
	DeskewMaxDegrees   float64 `yaml:"deskew_max_degrees"`
	DeskewStepDegrees  float64 `yaml:"deskew_step_degrees"`
	PerspectiveMinSide int     `yaml:"perspective_min_side"`
	FallbackThresholds []int   `yaml:"fallback_thresholds"`

	// Total selection.
	TotalPriorityBonus   float64 `yaml:"total_priority_bonus"`
	TotalIgnorePenalty   float64 `yaml:"total_ignore_penalty"`
	TotalProximityBase   float64 `yaml:"total_proximity_base"`
	TotalProximityStep   float64 `yaml:"total_proximity_step"`
	TotalSumTightDelta   float64 `yaml:"total_sum_tight_delta"`
	TotalSumTightBonus   float64 `yaml:"total_sum_tight_bonus"`
	TotalSumLooseDelta   float64 `yaml:"total_sum_loose_delta"`
	TotalSumLooseBonus   float64 `yaml:"total_sum_loose_bonus"`
	TotalMaxLinesScanned int     `yaml:"total_max_lines_scanned"`

	// Sales tax selection and guardrail.
	TaxProximityBase   float64 `yaml:"tax_proximity_base"`
	TaxProximityStep   float64 `yaml:"tax_proximity_step"`
	TaxMaxShareOfTotal float64 `yaml:"tax_max_share_of_total"`
	TaxFallbackFloor   float64 `yaml:"tax_fallback_floor"`

	// Confidence aggregation.
	PassWeight          float64 `yaml:"pass_weight"`
	MerchantWeight      float64 `yaml:"merchant_weight"`
	DateWeight          float64 `yaml:"date_weight"`
	TotalWeight         float64 `yaml:"total_weight"`
	TaxWeight           float64 `yaml:"tax_weight"`
	MissingTotalPenalty float64 `yaml:"missing_total_penalty"`
	MissingDatePenalty  float64 `yaml:"missing_date_penalty"`
	MissingTaxPenalty   float64 `yaml:"missing_tax_penalty"`
	ReviewThreshold     float64 `yaml:"review_threshold"`
}

// DefaultHeuristics returns the calibrated production policy.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		QualityLetterCap:     35,
		QualityLetterDiv:     55,
		QualityDigitCap:      20,
		QualityDigitDiv:      45,
		QualityKeywordWeight: 10,

		RotationKeywordWeight: 8,

		TopRegionWeight:     0.6,
		BottomRegionWeight:  0.8,
		NumbersRegionWeight: 1.0,

		MaxImageSide:       1600,
		CropMinAreaRatio:   0.18,
		DeskewMaxDegrees:   3,
		DeskewStepDegrees:  1,
		PerspectiveMinSide: 300,
		FallbackThresholds: []int{145, 170},

		TotalPriorityBonus:   35,
		TotalIgnorePenalty:   18,
		TotalProximityBase:   14,
		TotalProximityStep:   0.6,
		TotalSumTightDelta:   0.03,
		TotalSumTightBonus:   28,
		TotalSumLooseDelta:   0.20,
		TotalSumLooseBonus:   8,
		TotalMaxLinesScanned: 80,

		TaxProximityBase:   12,
		TaxProximityStep:   0.4,
		TaxMaxShareOfTotal: 0.25,
		TaxFallbackFloor:   40,

		PassWeight:          0.32,
		MerchantWeight:      0.14,
		DateWeight:          0.20,
		TotalWeight:         0.22,
		TaxWeight:           0.12,
		MissingTotalPenalty: 20,
		MissingDatePenalty:  10,
		MissingTaxPenalty:   5,
		ReviewThreshold:     78.0,
	}
}
