// Package imgstat computes the two blur signals spec.md §4.4 phase 3
// names: a Laplacian-variance statistic and a spatial blur ratio. Pure
// stdlib image math, no external imaging library — see DESIGN.md for
// why this narrow a statistic does not warrant one.
package imgstat

import "image"

// LaplacianVariance approximates the classic variance-of-Laplacian
// sharpness metric on the image's grayscale luminance. Low variance
// indicates few sharp edges, i.e. a blurry image.
func LaplacianVariance(img image.Image) float64 {
	gray := toGray(img)
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	var sum, sumSq float64
	var n int
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			center := gray[y*w+x]
			lap := -4*float64(center) +
				float64(gray[(y-1)*w+x]) + float64(gray[(y+1)*w+x]) +
				float64(gray[y*w+x-1]) + float64(gray[y*w+x+1])
			sum += lap
			sumSq += lap * lap
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)
	return sumSq/float64(n) - mean*mean
}

// SpatialBlurRatio estimates the fraction of the image where the local
// gradient magnitude falls below a low-detail threshold — a second,
// independent signal from the frequency-domain-style variance metric,
// per spec.md's "combining two signals" requirement.
func SpatialBlurRatio(img image.Image) float64 {
	gray := toGray(img)
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 2 || h < 2 {
		return 0
	}

	const lowDetailThreshold = 8.0
	var lowDetail, total int
	for y := 0; y < h-1; y++ {
		for x := 0; x < w-1; x++ {
			dx := float64(gray[y*w+x+1]) - float64(gray[y*w+x])
			dy := float64(gray[(y+1)*w+x]) - float64(gray[y*w+x])
			grad := dx*dx + dy*dy
			if grad < lowDetailThreshold*lowDetailThreshold {
				lowDetail++
			}
			total++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(lowDetail) / float64(total)
}

// toGray flattens img to a row-major []uint8 luminance buffer.
func toGray(img image.Image) []uint8 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := make([]uint8, w*h)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			lum := (299*r + 587*g + 114*b) / 1000
			out[i] = uint8(lum >> 8)
			i++
		}
	}
	return out
}
