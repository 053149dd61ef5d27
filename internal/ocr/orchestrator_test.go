package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sizemo/ocreceipt/internal/models"
)

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestOrchestrator(cfg models.OCRConfig, rec Recognizer) *Orchestrator {
	h := models.DefaultHeuristics()
	return NewOrchestrator(cfg, h, rec, NewNormalizer(cfg, h, rec, nil), nil)
}

func TestRunUnreadableImageYieldsEmptyResult(t *testing.T) {
	rec := scriptRec{fn: func(_ image.Image, _ RecognizeConfig) (PassResult, error) {
		return PassResult{}, errors.New("engine down")
	}}
	o := newTestOrchestrator(models.OCRConfig{FastMode: true}, rec)

	res, err := o.Run(context.Background(), pngBytes(t, grayImage(50, 50, 200)), "image/png")
	require.NoError(t, err)
	require.Empty(t, res.Text)
	require.Empty(t, res.Lines)
	require.Zero(t, res.AvgConfidence)
}

func TestRunRejectsUndecodableData(t *testing.T) {
	o := newTestOrchestrator(models.OCRConfig{FastMode: true}, scriptRec{})

	_, err := o.Run(context.Background(), []byte("not an image"), "image/jpeg")
	require.Error(t, err)
}

func TestRunPrefersReadableCropCandidate(t *testing.T) {
	// A bright receipt region on a dark background produces two crop
	// candidates. The recognizer reads the cropped one (and its region
	// slices, all narrower than 300px after the 2x upscale) and returns
	// noise for the full frame.
	rec := scriptRec{fn: func(img image.Image, _ RecognizeConfig) (PassResult, error) {
		if img.Bounds().Dx() >= 300 {
			return PassResult{Text: "zzzz", AvgConfidence: 10}, nil
		}
		return PassResult{
			Text:          "TOTAL 9.99",
			Lines:         []Line{{Text: "TOTAL 9.99", Confidence: 85}},
			AvgConfidence: 85,
		}, nil
	}}
	cfg := models.OCRConfig{FastMode: true, AutoCrop: true}
	o := newTestOrchestrator(cfg, rec)

	base := grayImage(200, 200, 20)
	fillRect(base, image.Rect(40, 40, 160, 160), 230)

	res, err := o.Run(context.Background(), pngBytes(t, base), "image/png")
	require.NoError(t, err)
	require.Equal(t, "TOTAL 9.99", res.Text)
	require.InDelta(t, 85, res.AvgConfidence, 0.001)
	require.Equal(t, "TOTAL 9.99", res.TopText)
	require.Equal(t, "TOTAL 9.99", res.BottomNumbersText)
}

func TestRunKeepsBestLayoutPass(t *testing.T) {
	// Fast mode runs PSM 6 and PSM 4 over each variant; the PSM 4 pass
	// reads more text and must win the primary slot.
	rec := scriptRec{fn: func(_ image.Image, cfg RecognizeConfig) (PassResult, error) {
		if cfg.PageSegMode == 4 {
			return PassResult{Text: "SUBTOTAL 10.00 TOTAL 10.80", AvgConfidence: 80}, nil
		}
		return PassResult{Text: "10.80", AvgConfidence: 80}, nil
	}}
	o := newTestOrchestrator(models.OCRConfig{FastMode: true}, rec)

	res, err := o.Run(context.Background(), pngBytes(t, grayImage(80, 120, 200)), "image/png")
	require.NoError(t, err)
	require.Equal(t, "SUBTOTAL 10.00 TOTAL 10.80", res.Text)
}

func TestResultAllLines(t *testing.T) {
	res := Result{
		Lines:              []Line{{Text: "a"}},
		TopLines:           []Line{{Text: "b"}},
		BottomLines:        []Line{{Text: "c"}},
		BottomNumbersLines: []Line{{Text: "d"}},
	}
	all := res.AllLines()
	require.Len(t, all, 4)
	require.Equal(t, "a", all[0].Text)
	require.Equal(t, "d", all[3].Text)
}

func TestResultBestPassConfidence(t *testing.T) {
	res := Result{AvgConfidence: 40, TopConfidence: 72.5, BottomConfidence: 55}
	require.InDelta(t, 72.5, res.BestPassConfidence(), 0.001)
}

func TestIsPDF(t *testing.T) {
	require.True(t, isPDF([]byte("%PDF-1.7 ..."), "application/octet-stream"))
	require.True(t, isPDF([]byte{0xff, 0xd8}, "application/pdf"))
	require.False(t, isPDF([]byte{0xff, 0xd8, 0xff, 0xe0}, "image/jpeg"))
}

func TestLayoutConfigs(t *testing.T) {
	require.Len(t, layoutConfigs(true), 2)
	require.Len(t, layoutConfigs(false), 3)
	require.Len(t, numberConfigs(true), 1)
	require.Len(t, numberConfigs(false), 2)
}
