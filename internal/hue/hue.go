// Package hue derives the article's visual theme hue from its embedding
// centroid. Purely cosmetic and total: it never fails, falling back to a
// default hue when there are no vectors to work with.
package hue

import "math"

// DefaultHue is used when an article has no embedding vectors.
const DefaultHue = 200.0

// Extractor maps a set of embedding vectors to one hue scalar in [0,360).
type Extractor struct {
	fallback float64
}

// New creates an Extractor with the given fallback hue. Out-of-range
// fallbacks are replaced with DefaultHue.
func New(fallback float64) *Extractor {
	if fallback < 0 || fallback >= 360 {
		fallback = DefaultHue
	}
	return &Extractor{fallback: fallback}
}

// Extract projects the centroid of the vectors onto a fixed cos/sin
// reference basis and converts the resulting angle to degrees. The same
// content always yields the same hue; an empty set yields the fallback.
func (e *Extractor) Extract(vectors [][]float32) float64 {
	if len(vectors) == 0 {
		return e.fallback
	}

	dim := len(vectors[0])
	centroid := make([]float64, dim)
	for _, v := range vectors {
		for d, x := range v {
			centroid[d] += float64(x)
		}
	}
	for d := range centroid {
		centroid[d] /= float64(len(vectors))
	}

	// Fixed reference basis: component d contributes at angle d*phi. The
	// golden-angle spacing keeps the two projections independent for any
	// dimensionality.
	const phi = 2.39996322972865332 // golden angle in radians
	var a, b float64
	for d, x := range centroid {
		a += x * math.Cos(phi*float64(d))
		b += x * math.Sin(phi*float64(d))
	}

	if a == 0 && b == 0 {
		return e.fallback
	}

	deg := math.Atan2(b, a) * 180 / math.Pi
	deg = math.Mod(deg+360, 360)
	if deg >= 360 {
		deg = 0
	}
	return deg
}
