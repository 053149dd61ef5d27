package ocr

import (
	"image"
	"sort"

	"github.com/disintegration/imaging"
)

// All helpers below assume grayscale NRGBA images (R=G=B), which is what
// every normalizer stage produces; the red channel is read as brightness.

func maxSide(img *image.NRGBA) int {
	b := img.Bounds()
	if b.Dx() > b.Dy() {
		return b.Dx()
	}
	return b.Dy()
}

func minSide(img *image.NRGBA) int {
	b := img.Bounds()
	if b.Dx() < b.Dy() {
		return b.Dx()
	}
	return b.Dy()
}

// scaleToMax downscales so the long side is at most limit. Images already
// within the limit are returned as-is.
func scaleToMax(img *image.NRGBA, limit int) *image.NRGBA {
	side := maxSide(img)
	if limit <= 0 || side <= limit {
		return img
	}
	b := img.Bounds()
	scale := float64(limit) / float64(side)
	return imaging.Resize(img, int(float64(b.Dx())*scale), int(float64(b.Dy())*scale), imaging.Lanczos)
}

// histogram counts pixels per brightness bucket.
func histogram(img *image.NRGBA) [256]int {
	var hist [256]int
	b := img.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for x := 0; x < b.Dx(); x++ {
			hist[row[x*4]]++
		}
	}
	return hist
}

// autoContrast linearly stretches brightness so the darkest pixel maps to
// 0 and the brightest to 255.
func autoContrast(img *image.NRGBA) *image.NRGBA {
	hist := histogram(img)
	lo, hi := 0, 255
	for lo < 256 && hist[lo] == 0 {
		lo++
	}
	for hi > 0 && hist[hi] == 0 {
		hi--
	}
	if lo >= hi {
		return img
	}

	var lut [256]uint8
	scale := 255.0 / float64(hi-lo)
	for i := range lut {
		v := float64(i-lo) * scale
		if v < 0 {
			v = 0
		} else if v > 255 {
			v = 255
		}
		lut[i] = uint8(v)
	}
	return applyLUT(img, lut)
}

// equalize remaps brightness through the cumulative histogram, spreading
// the tonal range of washed-out thermal receipts.
func equalize(img *image.NRGBA) *image.NRGBA {
	hist := histogram(img)
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return img
	}

	var lut [256]uint8
	cum := 0
	for i := range hist {
		cum += hist[i]
		lut[i] = uint8(cum * 255 / total)
	}
	return applyLUT(img, lut)
}

func applyLUT(img *image.NRGBA, lut [256]uint8) *image.NRGBA {
	out := imaging.Clone(img)
	b := out.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := out.Pix[y*out.Stride : y*out.Stride+b.Dx()*4]
		for x := 0; x < b.Dx(); x++ {
			v := lut[row[x*4]]
			row[x*4] = v
			row[x*4+1] = v
			row[x*4+2] = v
		}
	}
	return out
}

// binarize maps pixels below thr to black and the rest to white.
func binarize(img *image.NRGBA, thr uint8) *image.NRGBA {
	out := imaging.Clone(img)
	b := out.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := out.Pix[y*out.Stride : y*out.Stride+b.Dx()*4]
		for x := 0; x < b.Dx(); x++ {
			v := uint8(0)
			if row[x*4] >= thr {
				v = 255
			}
			row[x*4] = v
			row[x*4+1] = v
			row[x*4+2] = v
		}
	}
	return out
}

// otsuThreshold computes the threshold maximizing between-class variance.
func otsuThreshold(img *image.NRGBA) uint8 {
	hist := histogram(img)
	total := 0
	sumTotal := 0
	for i, h := range hist {
		total += h
		sumTotal += i * h
	}
	if total == 0 {
		return 160
	}

	threshold := 160
	sumB, wB := 0, 0
	varMax := -1.0
	for i := 0; i < 256; i++ {
		wB += hist[i]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += i * hist[i]
		mB := float64(sumB) / float64(wB)
		mF := float64(sumTotal-sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > varMax {
			varMax = between
			threshold = i
		}
	}
	return uint8(threshold)
}

// medianFilter3 removes salt-and-pepper noise with a 3x3 median.
func medianFilter3(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return img
	}
	out := imaging.Clone(img)
	var window [9]int
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			k := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					window[k] = int(img.Pix[(y+dy)*img.Stride+(x+dx)*4])
					k++
				}
			}
			sort.Ints(window[:])
			v := uint8(window[4])
			i := y*out.Stride + x*4
			out.Pix[i] = v
			out.Pix[i+1] = v
			out.Pix[i+2] = v
		}
	}
	return out
}

// subtractImages computes a-b per pixel, clamped at zero. With b a blurred
// copy of a this is a high-pass filter that isolates fine text strokes.
func subtractImages(a, b *image.NRGBA) *image.NRGBA {
	out := imaging.Clone(a)
	ab, bb := a.Bounds(), b.Bounds()
	w, h := ab.Dx(), ab.Dy()
	if bb.Dx() < w {
		w = bb.Dx()
	}
	if bb.Dy() < h {
		h = bb.Dy()
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := int(a.Pix[y*a.Stride+x*4]) - int(b.Pix[y*b.Stride+x*4])
			if d < 0 {
				d = 0
			}
			i := y*out.Stride + x*4
			out.Pix[i] = uint8(d)
			out.Pix[i+1] = uint8(d)
			out.Pix[i+2] = uint8(d)
		}
	}
	return out
}

// edgeMap builds a coarse gradient-magnitude map for the auto-crop
// fallback path.
func edgeMap(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := imaging.Clone(img)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := int(img.Pix[y*img.Stride+x*4])
			g := 0
			if x+1 < w {
				g = abs(v - int(img.Pix[y*img.Stride+(x+1)*4]))
			}
			if y+1 < h {
				if gy := abs(v - int(img.Pix[(y+1)*img.Stride+x*4])); gy > g {
					g = gy
				}
			}
			if g > 255 {
				g = 255
			}
			i := y*out.Stride + x*4
			out.Pix[i] = uint8(g)
			out.Pix[i+1] = uint8(g)
			out.Pix[i+2] = uint8(g)
		}
	}
	return out
}

// maskBounds returns the bounding box of pixels brighter than thr.
func maskBounds(img *image.NRGBA, thr uint8) (image.Rectangle, bool) {
	b := img.Bounds()
	minX, minY := b.Dx(), b.Dy()
	maxX, maxY := -1, -1
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for x := 0; x < b.Dx(); x++ {
			if row[x*4] > thr {
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}
	if maxX < 0 {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// rowProjectionScore sums squared differences between adjacent rows' dark
// pixel counts. Upright text produces alternating dense/empty rows, so a
// correctly deskewed image scores highest.
func rowProjectionScore(img *image.NRGBA) float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	prev := 0
	score := 0.0
	for y := 0; y < h; y++ {
		count := 0
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			if row[x*4] < 128 {
				count++
			}
		}
		if y > 0 {
			d := float64(count - prev)
			score += d * d
		}
		prev = count
	}
	return score
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
