// Package curve maps sun altitude to a target brightness percentage through
// a three-segment piecewise-linear function.
package curve

import (
	"fmt"
	"math"
)

// Curve is a validated altitude→brightness mapping. Below SunDownAlt the
// output is pinned to MinBrightness, above SunHighAlt to MaxBrightness, and
// linear in between. The zero value is not usable; construct with New.
type Curve struct {
	minBrightness float64
	maxBrightness float64
	sunDownAlt    float64
	sunHighAlt    float64
}

// New validates the bounds and returns a Curve.
func New(minBrightness, maxBrightness, sunDownAlt, sunHighAlt float64) (Curve, error) {
	if minBrightness > maxBrightness {
		return Curve{}, fmt.Errorf("min_brightness %v exceeds max_brightness %v", minBrightness, maxBrightness)
	}
	if sunDownAlt >= sunHighAlt {
		return Curve{}, fmt.Errorf("sun_down_alt %v must be below sun_high_alt %v", sunDownAlt, sunHighAlt)
	}
	return Curve{
		minBrightness: minBrightness,
		maxBrightness: maxBrightness,
		sunDownAlt:    sunDownAlt,
		sunHighAlt:    sunHighAlt,
	}, nil
}

// Target returns the pre-offset brightness for a sun altitude in degrees.
// The result is a real percentage; quantization happens at actuation time.
func (c Curve) Target(altitude float64) float64 {
	switch {
	case altitude <= c.sunDownAlt:
		return c.minBrightness
	case altitude >= c.sunHighAlt:
		return c.maxBrightness
	default:
		progress := (altitude - c.sunDownAlt) / (c.sunHighAlt - c.sunDownAlt)
		return c.minBrightness + progress*(c.maxBrightness-c.minBrightness)
	}
}

// Quantize converts a final (offset-applied) brightness into the integer
// percentage actually sent to devices: round half away from zero, then clamp
// to the configured bounds. The offset is unbounded, so clamping happens
// here and nowhere earlier.
func (c Curve) Quantize(brightness float64) int {
	v := math.Round(brightness)
	v = math.Max(c.minBrightness, math.Min(c.maxBrightness, v))
	return int(v)
}

// Min returns the configured minimum brightness.
func (c Curve) Min() float64 { return c.minBrightness }

// Max returns the configured maximum brightness.
func (c Curve) Max() float64 { return c.maxBrightness }
