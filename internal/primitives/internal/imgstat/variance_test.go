package imgstat

import (
	"image"
	"image/color"
	"testing"
)

func solidImage(size int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func checkerboardImage(size int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}
	return img
}

func TestLaplacianVariance_FlatImageIsZero(t *testing.T) {
	flat := solidImage(32, color.RGBA{100, 100, 100, 255})
	if v := LaplacianVariance(flat); v != 0 {
		t.Fatalf("expected zero variance for a flat image, got %v", v)
	}
}

func TestLaplacianVariance_SharpEdgesExceedsFlat(t *testing.T) {
	flat := solidImage(32, color.RGBA{100, 100, 100, 255})
	sharp := checkerboardImage(32)

	flatVar := LaplacianVariance(flat)
	sharpVar := LaplacianVariance(sharp)
	if sharpVar <= flatVar {
		t.Fatalf("expected checkerboard variance (%v) > flat variance (%v)", sharpVar, flatVar)
	}
}

func TestSpatialBlurRatio_FlatImageIsFullyLowDetail(t *testing.T) {
	flat := solidImage(16, color.RGBA{50, 50, 50, 255})
	if ratio := SpatialBlurRatio(flat); ratio != 1.0 {
		t.Fatalf("expected ratio 1.0 for a flat image, got %v", ratio)
	}
}

func TestSpatialBlurRatio_CheckerboardIsLowRatio(t *testing.T) {
	sharp := checkerboardImage(16)
	if ratio := SpatialBlurRatio(sharp); ratio > 0.1 {
		t.Fatalf("expected low low-detail ratio for checkerboard, got %v", ratio)
	}
}
