// Package noise provides a seeded two dimensional gradient noise field used
// for smooth, organic pointer jitter.
package noise

import (
	"math"
	"math/rand"
)

// Perlin is a 2D gradient noise field. The zero value is not usable; build
// one with NewPerlin.
type Perlin struct {
	// perm holds a 256 entry permutation duplicated to 512 entries so
	// lattice hashing never needs a range check.
	perm [512]int
}

// NewPerlin shuffles the lattice permutation with rng (Fisher-Yates).
// Two fields built from identically seeded sources are identical.
func NewPerlin(rng *rand.Rand) *Perlin {
	p := &Perlin{}
	var base [256]int
	for i := range base {
		base[i] = i
	}
	for i := 255; i > 0; i-- {
		j := rng.Intn(i + 1)
		base[i], base[j] = base[j], base[i]
	}
	for i := 0; i < 512; i++ {
		p.perm[i] = base[i&255]
	}
	return p
}

// Noise samples the field at (x, y). Output is roughly in [-1, 1].
func (p *Perlin) Noise(x, y float64) float64 {
	fx, fy := math.Floor(x), math.Floor(y)
	xi := int(fx) & 255
	yi := int(fy) & 255

	x -= fx
	y -= fy

	u := fade(x)
	v := fade(y)

	a := p.perm[xi] + yi
	aa := p.perm[a]
	ab := p.perm[a+1]
	b := p.perm[xi+1] + yi
	ba := p.perm[b]
	bb := p.perm[b+1]

	return lerp(v,
		lerp(u, grad(p.perm[aa], x, y), grad(p.perm[ba], x-1, y)),
		lerp(u, grad(p.perm[ab], x, y-1), grad(p.perm[bb], x-1, y-1)),
	)
}

// fade is the quintic smoothstep 6t^5 - 15t^4 + 10t^3.
func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(t, a, b float64) float64 {
	return a + t*(b-a)
}

func grad(hash int, x, y float64) float64 {
	h := hash & 15
	u := y
	if h < 8 {
		u = x
	}
	var v float64
	switch {
	case h < 4:
		v = y
	case h == 12 || h == 14:
		v = x
	}
	if h&1 != 0 {
		u = -u
	}
	if h&2 != 0 {
		v = -v
	}
	return u + v
}
