package stealth

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/user/slidegate/internal/geom"
)

type eventKind string

const (
	evMove    eventKind = "move"
	evPress   eventKind = "press"
	evRelease eventKind = "release"
	evClick   eventKind = "click"
)

type pointerEvent struct {
	Kind  eventKind
	At    geom.Point
	Steps int
	Press time.Duration
}

// recordingPointer implements Pointer and records every call in order.
type recordingPointer struct {
	events []pointerEvent
	// failOn makes the n-th call (1-based) return err.
	failOn int
	err    error
}

func (p *recordingPointer) record(e pointerEvent) error {
	p.events = append(p.events, e)
	if p.failOn > 0 && len(p.events) == p.failOn {
		return p.err
	}
	return nil
}

func (p *recordingPointer) MoveTo(_ context.Context, at geom.Point, steps int) error {
	return p.record(pointerEvent{Kind: evMove, At: at, Steps: steps})
}

func (p *recordingPointer) Press(context.Context) error {
	return p.record(pointerEvent{Kind: evPress})
}

func (p *recordingPointer) Release(context.Context) error {
	return p.record(pointerEvent{Kind: evRelease})
}

func (p *recordingPointer) Click(_ context.Context, at geom.Point, press time.Duration) error {
	return p.record(pointerEvent{Kind: evClick, At: at, Press: press})
}

func (p *recordingPointer) count(kind eventKind) int {
	n := 0
	for _, e := range p.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (p *recordingPointer) indexOf(kind eventKind) int {
	for i, e := range p.events {
		if e.Kind == kind {
			return i
		}
	}
	return -1
}

func (p *recordingPointer) moves() []geom.Point {
	var out []geom.Point
	for _, e := range p.events {
		if e.Kind == evMove {
			out = append(out, e.At)
		}
	}
	return out
}

// virtualClock advances time without sleeping.
type virtualClock struct {
	sleeps  []time.Duration
	elapsed time.Duration
}

func (c *virtualClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.elapsed += d
	return nil
}

type fixedViewport geom.Size

func (v fixedViewport) Bounds() geom.Size {
	return geom.Size(v)
}

var testViewport = fixedViewport{Width: 1440, Height: 900}

func setupMouse(t *testing.T, seed int64) (*Mouse, *recordingPointer, *virtualClock) {
	t.Helper()
	return setupMouseWithConfig(t, seed, DefaultConfig())
}

func setupMouseWithConfig(t *testing.T, seed int64, cfg Config) (*Mouse, *recordingPointer, *virtualClock) {
	t.Helper()
	ptr := &recordingPointer{}
	clock := &virtualClock{}
	m := New(cfg, ptr, testViewport,
		WithRand(rand.New(rand.NewSource(seed))),
		WithClock(clock),
	)
	return m, ptr, clock
}
