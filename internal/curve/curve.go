// Package curve builds randomized control paths between two points and
// evaluates them by repeated linear interpolation.
package curve

import (
	"math"
	"math/rand"

	"github.com/user/slidegate/internal/geom"
)

const (
	// segmentLength is the travel distance that earns one more segment.
	segmentLength = 80.0
	// lateralSpread is the maximum perpendicular swing as a fraction of
	// the total distance, split evenly to each side of the axis.
	lateralSpread = 0.15
)

// Build returns start, segments-1 perturbed interior points, and end, where
// segments = min(complexity, max(2, floor(distance/80))). Interior points
// sit on the start->end axis at i/segments and are pushed sideways by a
// random share of the distance, so longer moves wobble more.
func Build(rng *rand.Rand, start, end geom.Point, complexity int) []geom.Point {
	distance := start.Dist(end)
	segments := int(math.Floor(distance / segmentLength))
	if segments < 2 {
		segments = 2
	}
	if complexity < segments {
		segments = complexity
	}

	points := make([]geom.Point, 0, segments+1)
	points = append(points, start)

	perp := start.Angle(end) + math.Pi/2
	for i := 1; i < segments; i++ {
		base := start.Lerp(end, float64(i)/float64(segments))
		offset := (rng.Float64() - 0.5) * distance * lateralSpread
		points = append(points, base.Polar(perp, offset))
	}

	return append(points, end)
}

// Evaluate returns the point at parameter t by collapsing consecutive pairs
// until one point is left (De Casteljau). A single point is returned as is.
func Evaluate(t float64, points []geom.Point) geom.Point {
	switch len(points) {
	case 0:
		return geom.Point{}
	case 1:
		return points[0]
	}

	work := make([]geom.Point, len(points))
	copy(work, points)
	for n := len(work) - 1; n > 0; n-- {
		for i := 0; i < n; i++ {
			work[i] = work[i].Lerp(work[i+1], t)
		}
	}
	return work[0]
}
