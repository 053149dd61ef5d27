package ocr

import (
	"image"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOtsuThresholdSplitsBimodalImage(t *testing.T) {
	// Four equal quadrants at 30, 60, 200 and 230. The cleanest split
	// puts both dark quadrants in the background, so the threshold lands
	// on the brightest dark value.
	img := grayImage(8, 8, 30)
	fillRect(img, image.Rect(4, 0, 8, 4), 60)
	fillRect(img, image.Rect(0, 4, 4, 8), 200)
	fillRect(img, image.Rect(4, 4, 8, 8), 230)

	require.EqualValues(t, 60, otsuThreshold(img))
}

func TestOtsuThresholdEmptyImage(t *testing.T) {
	require.EqualValues(t, 160, otsuThreshold(image.NewNRGBA(image.Rect(0, 0, 0, 0))))
}

func TestBinarizeSeparatesAtThreshold(t *testing.T) {
	img := grayImage(4, 2, 40)
	fillRect(img, image.Rect(0, 1, 4, 2), 220)

	bin := binarize(img, 128)
	require.EqualValues(t, 0, bin.NRGBAAt(0, 0).R)
	require.EqualValues(t, 255, bin.NRGBAAt(0, 1).R)
}

func TestAutoContrastStretchesFullRange(t *testing.T) {
	img := grayImage(4, 2, 50)
	fillRect(img, image.Rect(0, 1, 4, 2), 150)

	out := autoContrast(img)
	require.EqualValues(t, 0, out.NRGBAAt(0, 0).R)
	require.EqualValues(t, 255, out.NRGBAAt(0, 1).R)
}

func TestMaskBoundsFindsBrightBox(t *testing.T) {
	img := grayImage(50, 50, 10)
	fillRect(img, image.Rect(12, 8, 30, 40), 240)

	box, ok := maskBounds(img, 210)
	require.True(t, ok)
	require.Equal(t, image.Rect(12, 8, 30, 40), box)
}

func TestMaskBoundsNothingAboveThreshold(t *testing.T) {
	_, ok := maskBounds(grayImage(10, 10, 100), 210)
	require.False(t, ok)
}

func TestSubtractImagesClampsAtZero(t *testing.T) {
	a := grayImage(3, 3, 100)
	b := grayImage(3, 3, 160)

	out := subtractImages(a, b)
	require.EqualValues(t, 0, out.NRGBAAt(1, 1).R)

	out = subtractImages(b, a)
	require.EqualValues(t, 60, out.NRGBAAt(1, 1).R)
}

func TestScaleToMaxOnlyDownscales(t *testing.T) {
	small := grayImage(100, 50, 128)
	require.Same(t, small, scaleToMax(small, 1600))

	big := grayImage(3200, 1600, 128)
	scaled := scaleToMax(big, 1600)
	require.Equal(t, 1600, scaled.Bounds().Dx())
	require.Equal(t, 800, scaled.Bounds().Dy())
}
