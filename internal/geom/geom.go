package geom

import "math"

// Point is a page-space coordinate in CSS pixels.
type Point struct {
	X float64
	Y float64
}

func (p Point) Add(o Point) Point {
	return Point{X: p.X + o.X, Y: p.Y + o.Y}
}

func (p Point) Sub(o Point) Point {
	return Point{X: p.X - o.X, Y: p.Y - o.Y}
}

func (p Point) Mul(s float64) Point {
	return Point{X: p.X * s, Y: p.Y * s}
}

// Lerp returns the affine combination p + (o-p)*t.
func (p Point) Lerp(o Point, t float64) Point {
	return Point{X: p.X + (o.X-p.X)*t, Y: p.Y + (o.Y-p.Y)*t}
}

// Dist returns the Euclidean distance between p and o.
func (p Point) Dist(o Point) float64 {
	return math.Hypot(o.X-p.X, o.Y-p.Y)
}

// Angle returns the direction from p to o in radians.
func (p Point) Angle(o Point) float64 {
	return math.Atan2(o.Y-p.Y, o.X-p.X)
}

// Polar returns the point at distance r from p in direction theta.
func (p Point) Polar(theta, r float64) Point {
	return Point{X: p.X + math.Cos(theta)*r, Y: p.Y + math.Sin(theta)*r}
}

// Size is a viewport extent.
type Size struct {
	Width  float64
	Height float64
}

// Box is an element bounding box in page coordinates.
type Box struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func (b Box) Center() Point {
	return Point{X: b.X + b.Width/2, Y: b.Y + b.Height/2}
}

// At returns the point at fractional offsets (fx, fy) inside the box.
func (b Box) At(fx, fy float64) Point {
	return Point{X: b.X + b.Width*fx, Y: b.Y + b.Height*fy}
}

// Clamp keeps p inside the viewport with inset pixels of margin on every side.
// A viewport smaller than twice the inset collapses to its center line.
func Clamp(p Point, s Size, inset float64) Point {
	return Point{
		X: clamp1(p.X, inset, s.Width-inset),
		Y: clamp1(p.Y, inset, s.Height-inset),
	}
}

func clamp1(v, lo, hi float64) float64 {
	if hi < lo {
		return (lo + hi) / 2
	}
	return math.Max(lo, math.Min(hi, v))
}
