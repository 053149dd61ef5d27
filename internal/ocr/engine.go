package ocr

import (
	"context"
	"image"
)

// Line is one recognized text line with its confidence on a 0-100 scale.
type Line struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// PassResult is the outcome of a single recognition pass: one bitmap under
// one engine configuration. Ephemeral; discarded once a winner is chosen.
type PassResult struct {
	Text          string
	Lines         []Line
	AvgConfidence float64
}

// Empty reports whether the pass produced no usable text.
func (p PassResult) Empty() bool { return p.Text == "" }

// RecognizeConfig selects the engine's text-layout analysis mode and an
// optional character whitelist for number-only passes.
type RecognizeConfig struct {
	// PageSegMode mirrors tesseract's PSM values: 4 = single column,
	// 6 = uniform block, 7 = single line, 11 = sparse text.
	PageSegMode int
	Whitelist   string
}

// Recognizer is the text-recognition engine boundary. Implementations must
// honor the context deadline and return an empty PassResult on failure
// rather than hang or propagate engine internals.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image, cfg RecognizeConfig) (PassResult, error)
}

// OrientationDetector is optionally implemented by engines that can report
// a residual rotation (in degrees, one of 90/180/270) for an image. The
// normalizer skips engine-reported orientation when unavailable.
type OrientationDetector interface {
	DetectOrientation(ctx context.Context, img image.Image) (int, error)
}

// Fast mode runs two layout configurations, thorough adds sparse text.
// Number passes restrict recognition to digits and currency marks.
const numberWhitelist = "0123456789.$%"

func layoutConfigs(fast bool) []RecognizeConfig {
	cfgs := []RecognizeConfig{
		{PageSegMode: 6},
		{PageSegMode: 4},
	}
	if !fast {
		cfgs = append(cfgs, RecognizeConfig{PageSegMode: 11})
	}
	return cfgs
}

func numberConfigs(fast bool) []RecognizeConfig {
	cfgs := []RecognizeConfig{
		{PageSegMode: 6, Whitelist: numberWhitelist},
	}
	if !fast {
		cfgs = append(cfgs, RecognizeConfig{PageSegMode: 7, Whitelist: numberWhitelist})
	}
	return cfgs
}
