package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// PageCount returns the number of pages in a PDF document.
func PageCount(data []byte) (int, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()
	return doc.NumPage(), nil
}

// RenderPage rasterizes one page at the given scale (1.0 = 72 DPI).
func RenderPage(data []byte, pageIndex int, scale float64) (image.Image, error) {
	if pageIndex < 0 {
		return nil, fmt.Errorf("page index must be >= 0")
	}
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	if pageIndex >= doc.NumPage() {
		return nil, fmt.Errorf("pdf page %d out of range", pageIndex)
	}
	img, err := doc.ImageDPI(pageIndex, 72*scale)
	if err != nil {
		return nil, fmt.Errorf("render pdf page %d: %w", pageIndex, err)
	}
	return img, nil
}

// RenderPagePNG rasterizes one page and encodes it as PNG, used by the
// receipt preview endpoint.
func RenderPagePNG(data []byte, pageIndex int, scale float64) ([]byte, error) {
	img, err := RenderPage(data, pageIndex, scale)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode pdf preview: %w", err)
	}
	return buf.Bytes(), nil
}

// runPDF runs the full per-page pipeline on up to MaxPDFPages rendered
// pages and merges the results: text and lines concatenate, confidences
// average, merchant/top context comes from the first page and total/
// bottom context from the last.
func (o *Orchestrator) runPDF(ctx context.Context, data []byte) (Result, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return Result{}, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	if pages == 0 {
		return Result{}, fmt.Errorf("pdf contains no renderable pages")
	}
	if o.cfg.MaxPDFPages > 0 && pages > o.cfg.MaxPDFPages {
		pages = o.cfg.MaxPDFPages
	}

	var perPage []Result
	for i := 0; i < pages; i++ {
		img, err := doc.ImageDPI(i, 72*o.cfg.PDFScale)
		if err != nil {
			return Result{}, fmt.Errorf("render pdf page %d: %w", i, err)
		}
		perPage = append(perPage, o.runBitmap(ctx, o.norm.BaselineImage(img)))
	}

	var (
		texts   []string
		lines   []Line
		confSum float64
	)
	for _, page := range perPage {
		if page.Text != "" {
			texts = append(texts, page.Text)
		}
		lines = append(lines, page.Lines...)
		confSum += page.AvgConfidence
	}

	first := perPage[0]
	last := perPage[len(perPage)-1]

	return Result{
		Text:          strings.Join(texts, "\n"),
		Lines:         lines,
		AvgConfidence: round2(confSum / float64(len(perPage))),

		TopText:       first.TopText,
		TopLines:      first.TopLines,
		TopConfidence: first.TopConfidence,

		BottomText:       last.BottomText,
		BottomLines:      last.BottomLines,
		BottomConfidence: last.BottomConfidence,
	}, nil
}
