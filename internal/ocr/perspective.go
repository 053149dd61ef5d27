package ocr

import (
	"image"
	"math"
)

// perspectiveCorrect warps the receipt to a flat rectangle when a
// plausible 4-corner outline is found. The outline comes from the extreme
// corners of the bright-paper mask; quads whose implied rectangle is
// smaller than PerspectiveMinSide are ignored and the image passes through
// unchanged.
func (n *Normalizer) perspectiveCorrect(img *image.NRGBA) *image.NRGBA {
	work := scaleToMax(img, 1400)
	quad, ok := detectQuad(autoContrast(work))
	if !ok {
		return img
	}

	tl, tr, br, bl := quad[0], quad[1], quad[2], quad[3]
	dstW := int(math.Max(dist(br, bl), dist(tr, tl)))
	dstH := int(math.Max(dist(tr, br), dist(tl, bl)))
	minEdge := n.h.PerspectiveMinSide
	if dstW < minEdge || dstH < minEdge {
		return img
	}

	// Map destination pixels back into the source quad and sample.
	m, ok := homography(
		[4]point{{0, 0}, {float64(dstW - 1), 0}, {float64(dstW - 1), float64(dstH - 1)}, {0, float64(dstH - 1)}},
		quad,
	)
	if !ok {
		return img
	}
	return warp(work, m, dstW, dstH)
}

type point struct{ x, y float64 }

func dist(a, b point) float64 {
	return math.Hypot(a.x-b.x, a.y-b.y)
}

// detectQuad finds the extreme corners of the bright region: the receipt
// paper dominates the mask, so min/max of x+y and x-y give its corners in
// top-left, top-right, bottom-right, bottom-left order.
func detectQuad(img *image.NRGBA) ([4]point, bool) {
	b := img.Bounds()
	var quad [4]point
	minSum, maxSum := math.Inf(1), math.Inf(-1)
	minDiff, maxDiff := math.Inf(1), math.Inf(-1)
	found := false

	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for x := 0; x < b.Dx(); x++ {
			if row[x*4] <= 210 {
				continue
			}
			found = true
			sum := float64(x + y)
			diff := float64(x - y)
			if sum < minSum {
				minSum = sum
				quad[0] = point{float64(x), float64(y)} // top-left
			}
			if sum > maxSum {
				maxSum = sum
				quad[2] = point{float64(x), float64(y)} // bottom-right
			}
			if diff > maxDiff {
				maxDiff = diff
				quad[1] = point{float64(x), float64(y)} // top-right
			}
			if diff < minDiff {
				minDiff = diff
				quad[3] = point{float64(x), float64(y)} // bottom-left
			}
		}
	}
	return quad, found
}

// homography solves the 8-parameter projective transform taking src[i] to
// dst[i], returned row-major with m[8] fixed at 1.
func homography(src, dst [4]point) ([9]float64, bool) {
	var a [8][9]float64
	for i := 0; i < 4; i++ {
		s, d := src[i], dst[i]
		a[2*i] = [9]float64{s.x, s.y, 1, 0, 0, 0, -d.x * s.x, -d.x * s.y, d.x}
		a[2*i+1] = [9]float64{0, 0, 0, s.x, s.y, 1, -d.y * s.x, -d.y * s.y, d.y}
	}

	// Gaussian elimination with partial pivoting.
	for col := 0; col < 8; col++ {
		pivot := col
		for r := col + 1; r < 8; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-9 {
			return [9]float64{}, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		for r := 0; r < 8; r++ {
			if r == col {
				continue
			}
			f := a[r][col] / a[col][col]
			for c := col; c < 9; c++ {
				a[r][c] -= f * a[col][c]
			}
		}
	}

	var m [9]float64
	for i := 0; i < 8; i++ {
		m[i] = a[i][8] / a[i][i]
	}
	m[8] = 1
	return m, true
}

// warp samples the source through the homography with bilinear filtering.
func warp(src *image.NRGBA, m [9]float64, w, h int) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	sb := src.Bounds()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fx, fy := float64(x), float64(y)
			den := m[6]*fx + m[7]*fy + m[8]
			if den == 0 {
				continue
			}
			sx := (m[0]*fx + m[1]*fy + m[2]) / den
			sy := (m[3]*fx + m[4]*fy + m[5]) / den

			v := sampleBilinear(src, sb, sx, sy)
			i := y*out.Stride + x*4
			out.Pix[i] = v
			out.Pix[i+1] = v
			out.Pix[i+2] = v
			out.Pix[i+3] = 255
		}
	}
	return out
}

func sampleBilinear(src *image.NRGBA, b image.Rectangle, sx, sy float64) uint8 {
	if sx < 0 {
		sx = 0
	}
	if sy < 0 {
		sy = 0
	}
	if sx > float64(b.Dx()-1) {
		sx = float64(b.Dx() - 1)
	}
	if sy > float64(b.Dy()-1) {
		sy = float64(b.Dy() - 1)
	}

	x0, y0 := int(sx), int(sy)
	x1, y1 := x0+1, y0+1
	if x1 >= b.Dx() {
		x1 = x0
	}
	if y1 >= b.Dy() {
		y1 = y0
	}
	fx, fy := sx-float64(x0), sy-float64(y0)

	p00 := float64(src.Pix[y0*src.Stride+x0*4])
	p10 := float64(src.Pix[y0*src.Stride+x1*4])
	p01 := float64(src.Pix[y1*src.Stride+x0*4])
	p11 := float64(src.Pix[y1*src.Stride+x1*4])

	top := p00*(1-fx) + p10*fx
	bot := p01*(1-fx) + p11*fx
	return uint8(top*(1-fy) + bot*fy)
}
