package ocr

import (
	"context"
	"image"
	"log/slog"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/sizemo/ocreceipt/internal/models"
)

// Result is the combined outcome of the best primary pass and its region
// passes for one receipt image (or one concatenated multi-page document).
type Result struct {
	Text          string
	Lines         []Line
	AvgConfidence float64

	TopText       string
	TopLines      []Line
	TopConfidence float64

	BottomText       string
	BottomLines      []Line
	BottomConfidence float64

	BottomNumbersText       string
	BottomNumbersLines      []Line
	BottomNumbersConfidence float64
}

// AllLines returns every recognized line across the primary and region
// passes, in pass order.
func (r Result) AllLines() []Line {
	out := make([]Line, 0, len(r.Lines)+len(r.TopLines)+len(r.BottomLines)+len(r.BottomNumbersLines))
	out = append(out, r.Lines...)
	out = append(out, r.TopLines...)
	out = append(out, r.BottomLines...)
	out = append(out, r.BottomNumbersLines...)
	return out
}

// BestPassConfidence is the strongest average confidence among the main
// and region passes; the aggregator treats it as the OCR quality signal.
func (r Result) BestPassConfidence() float64 {
	best := r.AvgConfidence
	if r.TopConfidence > best {
		best = r.TopConfidence
	}
	if r.BottomConfidence > best {
		best = r.BottomConfidence
	}
	return best
}

// Orchestrator drives the recognizer over every crop candidate, image
// variant and layout configuration, and keeps the best-scoring
// combination. It never fails on unreadable input: a receipt nothing can
// read yields an empty Result.
type Orchestrator struct {
	cfg    models.OCRConfig
	h      models.Heuristics
	rec    Recognizer
	norm   *Normalizer
	logger *slog.Logger
}

// NewOrchestrator wires the orchestrator around a recognizer and its
// normalizer.
func NewOrchestrator(cfg models.OCRConfig, h models.Heuristics, rec Recognizer, norm *Normalizer, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{cfg: cfg, h: h, rec: rec, norm: norm, logger: logger}
}

// Run recognizes one upload. PDF documents go through the paginated path;
// everything else is treated as a single receipt photo.
func (o *Orchestrator) Run(ctx context.Context, data []byte, contentType string) (Result, error) {
	if isPDF(data, contentType) {
		return o.runPDF(ctx, data)
	}
	base, err := o.norm.Baseline(data, contentType)
	if err != nil {
		return Result{}, err
	}
	return o.runBitmap(ctx, base), nil
}

// runBitmap executes the full pipeline for one baseline image: for each
// crop candidate, orient it, try every variant under every layout config
// to find the primary pass, then add the region passes, and keep the crop
// whose weighted pass qualities score highest.
func (o *Orchestrator) runBitmap(ctx context.Context, base *image.NRGBA) Result {
	configs := layoutConfigs(o.cfg.FastMode)
	numCfgs := numberConfigs(o.cfg.FastMode)

	var best Result
	bestScore := -1.0

	for ci, candidate := range o.norm.CropCandidates(base) {
		oriented := o.norm.Orient(ctx, candidate)
		variants := o.norm.Variants(oriented)

		var primary PassResult
		primaryScore := -1.0
		bestVariant := variants[0]

		for _, variant := range variants {
			for _, cfg := range configs {
				pass, err := o.rec.Recognize(ctx, variant, cfg)
				if err != nil {
					continue
				}
				score := qualityScore(o.h, pass.Text, pass.AvgConfidence)
				if score > primaryScore {
					primaryScore = score
					primary = pass
					bestVariant = variant
				}
			}
		}

		top := o.runRegion(ctx, bestVariant, 0, 0.35, configs)
		bottom := o.runRegion(ctx, bestVariant, 0.5, 1, configs)
		bottomNumbers := o.runRegion(ctx, bestVariant, 0.55, 1, numCfgs)

		result := Result{
			Text:          primary.Text,
			Lines:         primary.Lines,
			AvgConfidence: primary.AvgConfidence,

			TopText:       top.Text,
			TopLines:      top.Lines,
			TopConfidence: top.AvgConfidence,

			BottomText:       bottom.Text,
			BottomLines:      bottom.Lines,
			BottomConfidence: bottom.AvgConfidence,

			BottomNumbersText:       bottomNumbers.Text,
			BottomNumbersLines:      bottomNumbers.Lines,
			BottomNumbersConfidence: bottomNumbers.AvgConfidence,
		}

		overall := qualityScore(o.h, result.Text, result.AvgConfidence)
		overall += o.h.TopRegionWeight * qualityScore(o.h, result.TopText, result.TopConfidence)
		overall += o.h.BottomRegionWeight * qualityScore(o.h, result.BottomText, result.BottomConfidence)
		overall += o.h.NumbersRegionWeight * qualityScore(o.h, result.BottomNumbersText, result.BottomNumbersConfidence)

		o.logger.Debug("crop candidate scored", "candidate", ci, "score", overall, "primary_conf", primary.AvgConfidence)
		if overall > bestScore {
			bestScore = overall
			best = result
		}
	}
	return best
}

// runRegion recognizes a horizontal slice of the winning variant under
// each config and keeps the best-quality pass.
func (o *Orchestrator) runRegion(ctx context.Context, img *image.NRGBA, yStart, yEnd float64, configs []RecognizeConfig) PassResult {
	b := img.Bounds()
	y0 := int(clamp01(yStart) * float64(b.Dy()))
	y1 := int(clamp01(yEnd) * float64(b.Dy()))
	if y1 <= y0 {
		return PassResult{}
	}
	region := imaging.Crop(img, image.Rect(0, y0, b.Dx(), y1))

	var best PassResult
	bestScore := -1.0
	for _, cfg := range configs {
		pass, err := o.rec.Recognize(ctx, region, cfg)
		if err != nil {
			continue
		}
		score := qualityScore(o.h, pass.Text, pass.AvgConfidence)
		if score > bestScore {
			bestScore = score
			best = pass
		}
	}
	return best
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func isPDF(data []byte, contentType string) bool {
	if strings.EqualFold(contentType, "application/pdf") {
		return true
	}
	return len(data) >= 4 && string(data[:4]) == "%PDF"
}
