package ocr

import (
	"context"
	"image"
	"image/color"
	"log/slog"

	"github.com/disintegration/imaging"

	"github.com/sizemo/ocreceipt/internal/models"
)

// Normalizer turns a raw upload into a canonical upright grayscale bitmap
// plus a set of processing variants for the recognizer. Every step is
// fail-soft: an internal error returns the unmodified input instead of
// aborting the pipeline.
type Normalizer struct {
	cfg    models.OCRConfig
	h      models.Heuristics
	rec    Recognizer
	logger *slog.Logger
}

// NewNormalizer wires the normalizer; rec is needed for the cheap rotation
// scoring passes.
func NewNormalizer(cfg models.OCRConfig, h models.Heuristics, rec Recognizer, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{cfg: cfg, h: h, rec: rec, logger: logger}
}

// Baseline decodes, grayscales and bounds the upload. OCR latency grows
// superlinearly with pixel count, so anything beyond MaxImageSide on the
// long edge is downscaled first.
func (n *Normalizer) Baseline(data []byte, contentType string) (*image.NRGBA, error) {
	img, err := DecodeImage(data, contentType)
	if err != nil {
		return nil, err
	}
	return n.BaselineImage(img), nil
}

// BaselineImage applies the same canonicalization to an already-decoded
// bitmap (a rendered PDF page).
func (n *Normalizer) BaselineImage(img image.Image) *image.NRGBA {
	gray := imaging.Grayscale(img)
	return scaleToMax(gray, n.h.MaxImageSide)
}

// CropCandidates returns the baseline image plus, when auto-crop finds a
// smaller receipt bounding box, the cropped copy. The orchestrator runs
// the full pipeline on each and keeps the better result.
func (n *Normalizer) CropCandidates(base *image.NRGBA) []*image.NRGBA {
	candidates := []*image.NRGBA{base}
	if !n.cfg.AutoCrop {
		return candidates
	}
	cropped := n.autoCrop(base)
	cb, bb := cropped.Bounds(), base.Bounds()
	if cb.Dx() != bb.Dx() || cb.Dy() != bb.Dy() {
		candidates = append(candidates, cropped)
	}
	return candidates
}

// autoCrop finds the receipt's bounding box. Receipt paper is usually the
// brightest object in a photo, so a bright-region mask is tried first; an
// edge-map box is the fallback. Boxes below CropMinAreaRatio of the image
// are rejected and the full image kept.
func (n *Normalizer) autoCrop(img *image.NRGBA) *image.NRGBA {
	work := scaleToMax(img, 1800)
	wb := work.Bounds()
	minArea := int(float64(wb.Dx()*wb.Dy()) * n.h.CropMinAreaRatio)

	bright := autoContrast(work)
	box, ok := maskBounds(bright, 210)

	if !ok || box.Dx()*box.Dy() < minArea {
		edges := autoContrast(edgeMap(work))
		box, ok = maskBounds(edges, 48)
	}
	if !ok || box.Dx()*box.Dy() < minArea {
		return img
	}

	pad := maxSide(work) * 2 / 100
	box = image.Rect(box.Min.X-pad, box.Min.Y-pad, box.Max.X+pad, box.Max.Y+pad).Intersect(wb)

	// Scale the box back onto the full-resolution image.
	ib := img.Bounds()
	sx := float64(ib.Dx()) / float64(wb.Dx())
	sy := float64(ib.Dy()) / float64(wb.Dy())
	full := image.Rect(
		int(float64(box.Min.X)*sx),
		int(float64(box.Min.Y)*sy),
		int(float64(box.Max.X)*sx),
		int(float64(box.Max.Y)*sy),
	)
	return imaging.Crop(img, full)
}

// Orient produces the upright, flattened version of one crop candidate:
// best-of-four rotation, optional perspective correction, optional
// engine-reported orientation fixup, optional fine deskew.
func (n *Normalizer) Orient(ctx context.Context, img *image.NRGBA) *image.NRGBA {
	out := n.bestRotation(ctx, img)
	if n.cfg.Perspective {
		out = n.perspectiveCorrect(out)
	}
	out = n.engineOrient(ctx, out)
	if n.cfg.Deskew {
		out = n.deskew(out)
	}
	return out
}

// bestRotation scores a cheap recognition pass on each 90-degree rotation
// of a downscaled, binarized copy and keeps the winner. Ties resolve to
// the first candidate reaching the maximum, in 0/90/180/270 order.
func (n *Normalizer) bestRotation(ctx context.Context, img *image.NRGBA) *image.NRGBA {
	rotations := []*image.NRGBA{
		img,
		imaging.Rotate90(img),
		imaging.Rotate180(img),
		imaging.Rotate270(img),
	}

	best := img
	bestScore := -1.0
	for i, candidate := range rotations {
		work := autoContrast(scaleToMax(candidate, 1100))
		bin := binarize(work, otsuThreshold(work))

		parsed, err := n.rec.Recognize(ctx, bin, RecognizeConfig{PageSegMode: 6})
		if err != nil {
			continue
		}
		score := rotationScore(n.h, parsed.Text, parsed.AvgConfidence)
		n.logger.Debug("rotation candidate scored", "rotation", i*90, "score", score)
		if score > bestScore {
			bestScore = score
			best = candidate
		}
	}
	return best
}

// engineOrient applies a residual quad rotation reported by the engine's
// orientation detection, when the engine supports it.
func (n *Normalizer) engineOrient(ctx context.Context, img *image.NRGBA) *image.NRGBA {
	od, ok := n.rec.(OrientationDetector)
	if !ok {
		return img
	}
	angle, err := od.DetectOrientation(ctx, img)
	if err != nil {
		return img
	}
	switch angle {
	case 90:
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	}
	return img
}

// deskew sweeps a small angle range and picks the rotation that maximizes
// the sum of squared row-to-row differences in a binarized row-darkness
// histogram: sharply separated horizontal text rows score highest. The
// chosen angle is applied to the full-resolution image.
func (n *Normalizer) deskew(img *image.NRGBA) *image.NRGBA {
	maxDeg := n.h.DeskewMaxDegrees
	step := n.h.DeskewStepDegrees
	if maxDeg < 0.5 {
		maxDeg = 0.5
	}
	if step < 0.25 {
		step = 0.25
	}

	work := autoContrast(scaleToMax(img, 1200))
	bin := binarize(work, otsuThreshold(work))

	bestAngle := 0.0
	bestScore := -1.0
	for angle := -maxDeg; angle <= maxDeg+1e-9; angle += step {
		rotated := imaging.Rotate(bin, angle, color.White)
		score := rowProjectionScore(rotated)
		if score > bestScore {
			bestScore = score
			bestAngle = angle
		}
	}

	if bestAngle > -0.01 && bestAngle < 0.01 {
		return img
	}
	return imaging.Rotate(img, bestAngle, color.White)
}

// Variants derives the recognizer inputs from the oriented image: a
// denoised base, a sharpened copy, a high-pass copy for faint thermal
// print, and binarized copies at the Otsu threshold plus fixed fallbacks.
// Fast mode keeps only the first three.
func (n *Normalizer) Variants(img *image.NRGBA) []*image.NRGBA {
	upscaled := img
	b := img.Bounds()
	if minSide(img) < n.h.MaxImageSide {
		upscaled = imaging.Resize(img, b.Dx()*2, b.Dy()*2, imaging.Lanczos)
	}

	equalized := equalize(autoContrast(upscaled))
	denoised := medianFilter3(equalized)

	sharpened := imaging.Sharpen(denoised, 2.0)

	blurred := imaging.Blur(denoised, 1.2)
	highpass := autoContrast(subtractImages(denoised, blurred))

	variants := []*image.NRGBA{denoised, sharpened, highpass}
	if n.cfg.FastMode {
		return variants
	}

	variants = append(variants, binarize(denoised, otsuThreshold(denoised)))
	for _, thr := range n.h.FallbackThresholds {
		variants = append(variants, binarize(denoised, uint8(thr)))
	}
	return variants
}
