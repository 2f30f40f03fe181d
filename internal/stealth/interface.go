package stealth

import (
	"context"
	"time"

	"github.com/user/slidegate/internal/easing"
	"github.com/user/slidegate/internal/geom"
)

// Pointer performs raw pointer input on the page. Every call may block and
// may fail; failures are handed back to the caller untouched.
type Pointer interface {
	// MoveTo moves to p, interpolating linearly over steps sub-moves.
	MoveTo(ctx context.Context, p geom.Point, steps int) error
	Press(ctx context.Context) error
	Release(ctx context.Context) error
	// Click presses at p and releases after press has elapsed.
	Click(ctx context.Context, p geom.Point, press time.Duration) error
}

// Viewport reports the visible page size used for clamping.
type Viewport interface {
	Bounds() geom.Size
}

// Clock suspends the caller. Tests swap in a virtual clock.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// BoxProvider resolves an element bounding box at the moment it is needed.
type BoxProvider interface {
	Box(ctx context.Context) (geom.Box, error)
}

// StaticBox is a BoxProvider for a box that is already known.
type StaticBox geom.Box

func (b StaticBox) Box(context.Context) (geom.Box, error) {
	return geom.Box(b), nil
}

// MoveOptions tunes a single MoveTo. Zero values fall back to Config.
type MoveOptions struct {
	Duration  time.Duration
	Steps     int
	Overshoot bool
	Easing    easing.Func
}

// ClickOptions tunes Click. A zero Press draws from Mouse.ClickPressTime.
type ClickOptions struct {
	Press time.Duration
}

type realClock struct{}

// RealClock sleeps on the wall clock and wakes early when ctx is done.
func RealClock() Clock {
	return realClock{}
}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
