package engines

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"

	"go.vrtcore.dev/internal/testutils"
)

func checkerboard(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/4+y/4)%2 == 0 {
				img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{A: 255})
			}
		}
	}
	return img
}

func TestPixelmatchIdenticalImages(t *testing.T) {
	testutils.SmallTest(t)

	img := checkerboard(32, 32)
	result := Pixelmatch.Compare(img, img, "", DefaultConfig())
	assert.Empty(t, result.Error)
	assert.Equal(t, 1.0, result.Similarity)
	assert.Equal(t, 0.0, result.DiffPercent)
	if assert.NotNil(t, result.DiffPixels) {
		assert.Equal(t, 0, *result.DiffPixels)
	}
}

func TestPixelmatchSinglePixelDiff(t *testing.T) {
	testutils.SmallTest(t)

	a := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	b := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			a.SetNRGBA(x, y, white)
			b.SetNRGBA(x, y, white)
		}
	}
	b.SetNRGBA(5, 5, color.NRGBA{A: 255}) // flip one pixel to black

	cfg := DefaultConfig()
	cfg.IncludeAA = true // a lone flipped pixel in a solid field looks like an AA edge; count it anyway
	result := Pixelmatch.Compare(a, b, "", cfg)
	assert.Empty(t, result.Error)
	if assert.NotNil(t, result.DiffPixels) {
		assert.Equal(t, 1, *result.DiffPixels)
	}
	assert.InDelta(t, 1.0, result.DiffPercent, 0.01)
}

func TestPixelmatchDimensionMismatchErrors(t *testing.T) {
	testutils.SmallTest(t)

	a := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	b := image.NewNRGBA(image.Rect(0, 0, 5, 5))
	result := Pixelmatch.Compare(a, b, "", DefaultConfig())
	assert.NotEmpty(t, result.Error)
}
