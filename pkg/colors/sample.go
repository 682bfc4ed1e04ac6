// sample.go — Pixel sampling over image regions.
package colors

import (
	"cmp"
	"image"
	"image/color"
	"math"
	"slices"
)

const (
	// ExtremesSampleBudget bounds how many pixels ExtractExtremes inspects.
	ExtremesSampleBudget = 1000
	// DominantSampleBudget bounds how many pixels ExtractDominantColors inspects.
	DominantSampleBudget = 2000
	// BucketStep is the per-channel quantisation used to group similar colors.
	BucketStep = 32
)

// Extremes holds the lightest and darkest sampled colors of a region.
type Extremes struct {
	Light RGB
	Dark  RGB
}

// NeutralExtremes is returned when a region has no pixels to inspect.
var NeutralExtremes = Extremes{Light: White, Dark: Black}

// stride returns the sampling step for a region of n pixels so that at
// most budget pixels are visited. It depends only on n.
func stride(n, budget int) int {
	return max(1, n/budget)
}

// visit calls fn for every stride-th pixel of region in row-major order.
// The region is clipped to the image bounds first.
func visit(img image.Image, region image.Rectangle, budget int, fn func(c color.NRGBA)) {
	region = region.Intersect(img.Bounds())
	w, h := region.Dx(), region.Dy()
	n := w * h
	if n <= 0 {
		return
	}
	step := stride(n, budget)
	for i := 0; i < n; i += step {
		x := region.Min.X + i%w
		y := region.Min.Y + i/w
		fn(color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA))
	}
}

// ExtractExtremes returns the highest- and lowest-luminance colors among the
// sampled pixels of region. An empty region yields NeutralExtremes.
func ExtractExtremes(img image.Image, region image.Rectangle) Extremes {
	if img == nil {
		return NeutralExtremes
	}
	var (
		out      Extremes
		lightLum = -1.0
		darkLum  = 2.0
	)
	visit(img, region, ExtremesSampleBudget, func(px color.NRGBA) {
		c := RGB{px.R, px.G, px.B}
		l := Luminance(c)
		if l > lightLum {
			lightLum, out.Light = l, c
		}
		if l < darkLum {
			darkLum, out.Dark = l, c
		}
	})
	if lightLum < 0 {
		return NeutralExtremes
	}
	return out
}

type bucket struct {
	count int
	first RGB
	order int
}

// ExtractDominantColors returns up to k representative colors of region,
// most frequent first. Transparent, near-white, near-black and
// low-saturation pixels are ignored. Each color returned is the first raw
// pixel seen in its bucket, not the bucket centre.
func ExtractDominantColors(img image.Image, k int, region image.Rectangle) []RGB {
	if img == nil || k <= 0 {
		return nil
	}
	buckets := make(map[RGB]*bucket)
	visit(img, region, DominantSampleBudget, func(px color.NRGBA) {
		if !qualifies(px) {
			return
		}
		key := RGB{quantize(px.R), quantize(px.G), quantize(px.B)}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{first: RGB{px.R, px.G, px.B}, order: len(buckets)}
			buckets[key] = b
		}
		b.count++
	})

	ranked := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		ranked = append(ranked, b)
	}
	slices.SortFunc(ranked, func(a, b *bucket) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return cmp.Compare(a.order, b.order)
	})

	out := make([]RGB, 0, min(k, len(ranked)))
	for _, b := range ranked[:min(k, len(ranked))] {
		out = append(out, b.first)
	}
	return out
}

func qualifies(px color.NRGBA) bool {
	if px.A < 128 {
		return false
	}
	if px.R > 245 && px.G > 245 && px.B > 245 {
		return false
	}
	if px.R < 10 && px.G < 10 && px.B < 10 {
		return false
	}
	hi := max(px.R, px.G, px.B)
	lo := min(px.R, px.G, px.B)
	return hi-lo >= 20
}

// quantize rounds v to the nearest multiple of BucketStep. 255 maps to 256,
// which is clamped into the top bucket.
func quantize(v uint8) uint8 {
	q := math.Floor(float64(v)/BucketStep+0.5) * BucketStep
	return uint8(min(q, 255))
}
