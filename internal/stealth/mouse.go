// Package stealth synthesizes human-looking pointer input: curved, eased
// moves with smooth noise jitter, idle drift, hover fidgeting, clicks and a
// slow-fast-slow drag gesture for slide-to-unlock challenges.
package stealth

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/user/slidegate/internal/geom"
	"github.com/user/slidegate/internal/logging"
	"github.com/user/slidegate/internal/noise"
)

// Mouse is the trajectory synthesizer for one session. It keeps its own
// belief of the pointer position and never reads device state back. A
// Mouse is not safe for concurrent use; primitives run strictly in order.
type Mouse struct {
	cfg      Config
	pointer  Pointer
	viewport Viewport
	clock    Clock
	rng      *rand.Rand
	noise    *noise.Perlin
	logger   *zap.SugaredLogger

	pos      geom.Point
	velocity geom.Point
	noiseOff geom.Point
}

// Option customizes a Mouse at construction.
type Option func(*Mouse)

// WithRand injects the random source. The noise permutation and every
// randomized parameter are drawn from it, so a fixed seed replays a session.
func WithRand(rng *rand.Rand) Option {
	return func(m *Mouse) { m.rng = rng }
}

func WithClock(c Clock) Option {
	return func(m *Mouse) { m.clock = c }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(m *Mouse) { m.logger = l }
}

// New builds a Mouse bound to a pointer surface and viewport. The starting
// position is a random point away from the origin.
func New(cfg Config, pointer Pointer, viewport Viewport, opts ...Option) *Mouse {
	m := &Mouse{
		cfg:      cfg,
		pointer:  pointer,
		viewport: viewport,
		clock:    RealClock(),
		logger:   logging.Logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	m.noise = noise.NewPerlin(m.rng)
	m.pos = geom.Point{
		X: cfg.Mouse.StartArea.Draw(m.rng),
		Y: cfg.Mouse.StartArea.Draw(m.rng),
	}
	m.noiseOff = geom.Point{X: m.rng.Float64() * 1000, Y: m.rng.Float64() * 1000}
	return m
}

// Position is the synthesizer's belief of where the pointer is.
func (m *Mouse) Position() geom.Point {
	return m.pos
}

// Velocity is the damped per-step displacement of the last move.
func (m *Mouse) Velocity() geom.Point {
	return m.velocity
}

// NoiseOffset is the current cursor into the noise field.
func (m *Mouse) NoiseOffset() geom.Point {
	return m.noiseOff
}

// Config returns the tuning the Mouse was built with.
func (m *Mouse) Config() Config {
	return m.cfg
}

// ThinkDelay simulates a user thinking before performing an action
func (m *Mouse) ThinkDelay(ctx context.Context, r Range) error {
	return m.sleep(ctx, r.Draw(m.rng))
}

// Chance reports true with probability p, drawn from the session source.
func (m *Mouse) Chance(p float64) bool {
	return m.rng.Float64() < p
}

// Uniform draws from r using the session source.
func (m *Mouse) Uniform(r Range) float64 {
	return r.Draw(m.rng)
}

// UniformInt draws from r using the session source.
func (m *Mouse) UniformInt(r IntRange) int {
	return r.Draw(m.rng)
}

// Initialize puts the pointer at the seeded start position and wanders a
// little so the first real move never starts from a fixed coordinate.
func (m *Mouse) Initialize(ctx context.Context) error {
	if err := m.pointer.MoveTo(ctx, m.pos, 1); err != nil {
		return err
	}
	return m.RandomWander(ctx, 3)
}

func (m *Mouse) sleep(ctx context.Context, millis float64) error {
	if millis <= 0 {
		return nil
	}
	return m.clock.Sleep(ctx, ms(millis))
}

func (m *Mouse) clamp(p geom.Point) geom.Point {
	return geom.Clamp(p, m.viewport.Bounds(), m.cfg.Mouse.ViewportInset)
}

// sampleNoise reads the field along a diagonal so x and y offsets never
// hit the zero-valued lattice together.
func (m *Mouse) sampleNoise(offset float64) float64 {
	return m.noise.Noise(offset*0.1, offset*0.15)
}

// tremor returns a uniform value in [-intensity, intensity].
func (m *Mouse) tremor(intensity float64) float64 {
	return (m.rng.Float64() - 0.5) * 2 * intensity
}

func (m *Mouse) randomAngle() float64 {
	return m.rng.Float64() * 2 * math.Pi
}

// place moves the pointer to p and records it as the new position once
// the move went through.
func (m *Mouse) place(ctx context.Context, p geom.Point, steps int) error {
	if err := m.pointer.MoveTo(ctx, p, steps); err != nil {
		return err
	}
	m.pos = p
	return nil
}
