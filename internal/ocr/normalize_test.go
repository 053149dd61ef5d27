package ocr

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"

	"github.com/sizemo/ocreceipt/internal/models"
)

// scriptRec scripts recognition results for tests.
type scriptRec struct {
	fn func(img image.Image, cfg RecognizeConfig) (PassResult, error)
}

func (s scriptRec) Recognize(_ context.Context, img image.Image, cfg RecognizeConfig) (PassResult, error) {
	return s.fn(img, cfg)
}

// orientRec additionally reports an engine-detected orientation.
type orientRec struct {
	scriptRec
	angle int
	err   error
}

func (o orientRec) DetectOrientation(_ context.Context, _ image.Image) (int, error) {
	return o.angle, o.err
}

func grayImage(w, h int, v uint8) *image.NRGBA {
	return imaging.New(w, h, color.NRGBA{R: v, G: v, B: v, A: 255})
}

// fillRect paints a gray rectangle into an NRGBA image.
func fillRect(img *image.NRGBA, r image.Rectangle, v uint8) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
}

func newTestNormalizer(cfg models.OCRConfig, rec Recognizer) *Normalizer {
	return NewNormalizer(cfg, models.DefaultHeuristics(), rec, nil)
}

func TestBestRotationPicksHighestScoringCandidate(t *testing.T) {
	// Empty text makes the rotation score equal the pass confidence.
	confs := []float64{10, 50, 50, 40}
	call := 0
	rec := scriptRec{fn: func(_ image.Image, _ RecognizeConfig) (PassResult, error) {
		conf := confs[call]
		call++
		return PassResult{AvgConfidence: conf}, nil
	}}
	n := newTestNormalizer(models.OCRConfig{}, rec)

	out := n.bestRotation(context.Background(), grayImage(60, 30, 128))

	require.Equal(t, 4, call)
	// 90 and 180 degrees tie at 50; the first candidate reaching the
	// maximum wins, so the result has swapped dimensions.
	require.Equal(t, 30, out.Bounds().Dx())
	require.Equal(t, 60, out.Bounds().Dy())
}

func TestBestRotationKeywordsOutweighRawConfidence(t *testing.T) {
	// The upright pass reads receipt keywords at lower engine confidence
	// than the garbled rotations; the keyword term must still make the
	// upright image win.
	call := 0
	rec := scriptRec{fn: func(_ image.Image, _ RecognizeConfig) (PassResult, error) {
		call++
		if call == 1 {
			return PassResult{Text: "SUBTOTAL 10.00 TOTAL 10.80", AvgConfidence: 40}, nil
		}
		return PassResult{Text: "#@!%", AvgConfidence: 45}, nil
	}}
	n := newTestNormalizer(models.OCRConfig{}, rec)

	img := grayImage(60, 30, 128)
	require.Same(t, img, n.bestRotation(context.Background(), img))
}

func TestBestRotationKeepsInputWhenEveryPassFails(t *testing.T) {
	rec := scriptRec{fn: func(_ image.Image, _ RecognizeConfig) (PassResult, error) {
		return PassResult{}, errors.New("engine down")
	}}
	n := newTestNormalizer(models.OCRConfig{}, rec)

	img := grayImage(60, 30, 128)
	out := n.bestRotation(context.Background(), img)

	require.Same(t, img, out)
}

func TestEngineOrientAppliesReportedAngle(t *testing.T) {
	rec := orientRec{angle: 90}
	n := newTestNormalizer(models.OCRConfig{}, rec)

	out := n.engineOrient(context.Background(), grayImage(60, 30, 128))

	// A reported 90-degree residual is undone with the inverse rotation.
	require.Equal(t, 30, out.Bounds().Dx())
	require.Equal(t, 60, out.Bounds().Dy())
}

func TestEngineOrientIgnoresDetectorErrors(t *testing.T) {
	rec := orientRec{angle: 90, err: errors.New("osd unavailable")}
	n := newTestNormalizer(models.OCRConfig{}, rec)

	img := grayImage(60, 30, 128)
	require.Same(t, img, n.engineOrient(context.Background(), img))
}

func TestEngineOrientSkipsPlainRecognizers(t *testing.T) {
	rec := scriptRec{fn: func(_ image.Image, _ RecognizeConfig) (PassResult, error) {
		return PassResult{}, nil
	}}
	n := newTestNormalizer(models.OCRConfig{}, rec)

	img := grayImage(60, 30, 128)
	require.Same(t, img, n.engineOrient(context.Background(), img))
}

func TestCropCandidatesDisabled(t *testing.T) {
	n := newTestNormalizer(models.OCRConfig{AutoCrop: false}, scriptRec{})

	base := grayImage(200, 200, 20)
	require.Len(t, n.CropCandidates(base), 1)
}

func TestCropCandidatesUniformImageYieldsNoCrop(t *testing.T) {
	n := newTestNormalizer(models.OCRConfig{AutoCrop: true}, scriptRec{})

	// A uniformly bright image has a mask covering everything, so the
	// crop matches the full bounds and only the base is returned.
	base := grayImage(200, 200, 230)
	require.Len(t, n.CropCandidates(base), 1)
}

func TestCropCandidatesBrightReceiptOnDarkBackground(t *testing.T) {
	n := newTestNormalizer(models.OCRConfig{AutoCrop: true}, scriptRec{})

	base := grayImage(200, 200, 20)
	fillRect(base, image.Rect(40, 40, 160, 160), 230)

	candidates := n.CropCandidates(base)
	require.Len(t, candidates, 2)

	cropped := candidates[1]
	// The bright box plus a 2 percent pad on each side.
	require.Less(t, cropped.Bounds().Dx(), 140)
	require.Greater(t, cropped.Bounds().Dx(), 110)
	require.Less(t, cropped.Bounds().Dy(), 140)
	require.Greater(t, cropped.Bounds().Dy(), 110)
}

func TestCropCandidatesRejectsTinyBox(t *testing.T) {
	n := newTestNormalizer(models.OCRConfig{AutoCrop: true}, scriptRec{})

	// 20x20 bright pixels out of 200x200 is 1 percent of the area, well
	// under the minimum ratio, so the crop is rejected.
	base := grayImage(200, 200, 20)
	fillRect(base, image.Rect(90, 90, 110, 110), 230)

	require.Len(t, n.CropCandidates(base), 1)
}

func TestVariantsFastMode(t *testing.T) {
	n := newTestNormalizer(models.OCRConfig{FastMode: true}, scriptRec{})

	variants := n.Variants(grayImage(100, 80, 128))
	require.Len(t, variants, 3)

	// Small inputs are upscaled 2x before filtering.
	for _, v := range variants {
		require.Equal(t, 200, v.Bounds().Dx())
		require.Equal(t, 160, v.Bounds().Dy())
	}
}

func TestVariantsThoroughModeAddsBinarizations(t *testing.T) {
	n := newTestNormalizer(models.OCRConfig{FastMode: false}, scriptRec{})

	// Three filtered variants, one Otsu binarization, two fixed fallbacks.
	variants := n.Variants(grayImage(100, 80, 128))
	require.Len(t, variants, 6)
}
