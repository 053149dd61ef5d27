package ocr

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine runs recognition through the tesseract C API via
// gosseract. A fresh client is created per pass; tesseract clients are not
// safe for concurrent reuse and the single-worker pipeline keeps the cost
// negligible next to recognition itself.
type TesseractEngine struct {
	language string
	timeout  time.Duration
	logger   *slog.Logger
}

// NewTesseractEngine creates the production recognizer.
func NewTesseractEngine(language string, timeout time.Duration, logger *slog.Logger) *TesseractEngine {
	if language == "" {
		language = "eng"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TesseractEngine{language: language, timeout: timeout, logger: logger}
}

// Recognize runs one pass and groups recognized text into lines with
// per-line confidence. Engine failures and timeouts degrade to an empty
// result; they never propagate.
func (t *TesseractEngine) Recognize(ctx context.Context, img image.Image, cfg RecognizeConfig) (PassResult, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return PassResult{}, nil
	}

	type outcome struct {
		res PassResult
		err error
	}
	ch := make(chan outcome, 1)

	go func() {
		res, err := t.recognizeBytes(buf.Bytes(), cfg)
		ch <- outcome{res: res, err: err}
	}()

	timer := time.NewTimer(t.timeout)
	defer timer.Stop()

	select {
	case out := <-ch:
		if out.err != nil {
			t.logger.Debug("recognition pass failed", "psm", cfg.PageSegMode, "error", out.err)
			return PassResult{}, nil
		}
		return out.res, nil
	case <-ctx.Done():
		t.logger.Debug("recognition pass canceled", "psm", cfg.PageSegMode)
		return PassResult{}, nil
	case <-timer.C:
		t.logger.Debug("recognition pass timed out", "psm", cfg.PageSegMode, "timeout", t.timeout)
		return PassResult{}, nil
	}
}

func (t *TesseractEngine) recognizeBytes(data []byte, cfg RecognizeConfig) (PassResult, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.language); err != nil {
		return PassResult{}, err
	}
	if cfg.PageSegMode > 0 {
		if err := client.SetPageSegMode(gosseract.PageSegMode(cfg.PageSegMode)); err != nil {
			return PassResult{}, err
		}
	}
	if cfg.Whitelist != "" {
		if err := client.SetWhitelist(cfg.Whitelist); err != nil {
			return PassResult{}, err
		}
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return PassResult{}, err
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return PassResult{}, err
	}

	var (
		lines []Line
		texts []string
		sum   float64
	)
	for _, box := range boxes {
		text := strings.TrimSpace(box.Word)
		if text == "" || box.Confidence < 0 {
			continue
		}
		conf := round2(box.Confidence)
		lines = append(lines, Line{Text: text, Confidence: conf})
		texts = append(texts, text)
		sum += conf
	}

	res := PassResult{Text: strings.Join(texts, "\n"), Lines: lines}
	if len(lines) > 0 {
		res.AvgConfidence = round2(sum / float64(len(lines)))
	}
	return res, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
