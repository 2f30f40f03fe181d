package stealth

import (
	"context"
	"math"
	"time"

	"github.com/user/slidegate/internal/curve"
	"github.com/user/slidegate/internal/easing"
	"github.com/user/slidegate/internal/geom"
)

const (
	// velocityDamping weights the newest displacement in the velocity estimate.
	velocityDamping = 0.7
	// jitterSpeedGain scales jitter with instantaneous speed.
	jitterSpeedGain = 0.3
	// minSpeedMultiplier keeps step delays positive on the fastest steps.
	minSpeedMultiplier = 0.1
)

var (
	stepVariance       = Range{0.7, 1.4}
	correctionVariance = Range{0.85, 1.15}
)

// MoveTo travels from the current position to target along a randomized
// curve. With opts.Overshoot it may pass the target and correct back. On
// return the position equals target (clamped to the viewport) exactly.
func (m *Mouse) MoveTo(ctx context.Context, target geom.Point, opts MoveOptions) error {
	mc := m.cfg.Mouse
	target = m.clamp(target)

	duration := opts.Duration
	if duration <= 0 {
		duration = ms(mc.MoveDuration.Draw(m.rng))
	}
	steps := opts.Steps
	if steps <= 0 {
		steps = mc.MoveSteps.Draw(m.rng)
	}
	ease := opts.Easing
	if ease == nil {
		ease = easing.InOutCubic
	}

	start := m.pos
	distance := start.Dist(target)
	jitter := math.Min(mc.BaseJitter*(1+distance/mc.JitterDistance), mc.MaxJitter)

	finalTarget := target
	overshoot := opts.Overshoot && m.rng.Float64() < mc.OvershootChance
	if overshoot {
		finalTarget = target.Polar(start.Angle(target), mc.OvershootDistance.Draw(m.rng))
	}

	m.logger.Debugf("move (%.1f, %.1f) -> (%.1f, %.1f) steps=%d duration=%v overshoot=%t",
		start.X, start.Y, target.X, target.Y, steps, duration, overshoot)

	path := curve.Build(m.rng, start, finalTarget, 4)
	interval := float64(duration) / float64(time.Millisecond) / float64(steps)

	m.noiseOff.X += mc.NoiseAdvance.Draw(m.rng)
	m.noiseOff.Y += mc.NoiseAdvance.Draw(m.rng)

	for i := 1; i <= steps; i++ {
		progress := float64(i) / float64(steps)
		eased := ease(progress)
		p := curve.Evaluate(eased, path)

		speed := math.Abs(eased-float64(i-1)/float64(steps)) * float64(steps)
		scale := jitter * (1 + speed*jitterSpeedGain)
		p.X += m.sampleNoise(m.noiseOff.X+float64(i)*0.2) * scale
		p.Y += m.sampleNoise(m.noiseOff.Y+float64(i)*0.2) * scale

		pos := m.clamp(p)
		m.velocity = pos.Sub(m.pos).Mul(velocityDamping)
		if err := m.place(ctx, pos, 1); err != nil {
			return err
		}

		speedMultiplier := math.Max(1-speed*0.2, minSpeedMultiplier)
		if err := m.sleep(ctx, interval*stepVariance.Draw(m.rng)*speedMultiplier); err != nil {
			return err
		}

		if m.rng.Float64() < m.cfg.Timing.MicroPauseChance {
			if err := m.sleep(ctx, m.cfg.Timing.MicroPauseDuration.Draw(m.rng)); err != nil {
				return err
			}
		}
	}

	if overshoot {
		return m.correctOvershoot(ctx, finalTarget, target)
	}

	return m.place(ctx, target, mc.SnapSteps.Draw(m.rng))
}

// correctOvershoot eases back from an overshot point onto the real target
// with a small tremor. The final step lands on to exactly.
func (m *Mouse) correctOvershoot(ctx context.Context, from, to geom.Point) error {
	mc := m.cfg.Mouse
	steps := mc.CorrectionSteps.Draw(m.rng)
	duration := mc.CorrectionDuration.Draw(m.rng)
	path := curve.Build(m.rng, from, to, 2)

	for i := 1; i <= steps; i++ {
		pos := to
		if i < steps {
			p := curve.Evaluate(easing.OutQuad(float64(i)/float64(steps)), path)
			pos = m.clamp(geom.Point{
				X: p.X + m.tremor(mc.CorrectionTremor),
				Y: p.Y + m.tremor(mc.CorrectionTremor),
			})
		}
		if err := m.place(ctx, pos, 1); err != nil {
			return err
		}
		if err := m.sleep(ctx, duration/float64(steps)*correctionVariance.Draw(m.rng)); err != nil {
			return err
		}
	}
	return nil
}

// MicroDrift fidgets around the current position in a few small random
// steps. rangePx <= 0 draws the range from IdleDriftRange.
func (m *Mouse) MicroDrift(ctx context.Context, rangePx float64) error {
	mc := m.cfg.Mouse
	if rangePx <= 0 {
		rangePx = mc.IdleDriftRange.Draw(m.rng)
	}
	steps := mc.DriftSteps.Draw(m.rng)
	total := mc.DriftDuration.Draw(m.rng)

	for i := 0; i < steps; i++ {
		dist := m.rng.Float64() * rangePx / float64(steps)
		pos := m.clamp(m.pos.Polar(m.randomAngle(), dist))
		if err := m.place(ctx, pos, 1); err != nil {
			return err
		}
		if err := m.sleep(ctx, total/float64(steps)); err != nil {
			return err
		}
	}
	return nil
}

// RandomWander moves to count random points inside the viewport, pausing
// after each one. count <= 0 is treated as 1.
func (m *Mouse) RandomWander(ctx context.Context, count int) error {
	mc := m.cfg.Mouse
	if count <= 0 {
		count = 1
	}
	for i := 0; i < count; i++ {
		vp := m.viewport.Bounds()
		target := geom.Point{
			X: Range{mc.WanderInset, vp.Width - mc.WanderInset}.Draw(m.rng),
			Y: Range{mc.WanderInset, vp.Height - mc.WanderInset}.Draw(m.rng),
		}
		err := m.MoveTo(ctx, target, MoveOptions{
			Duration: ms(mc.WanderDuration.Draw(m.rng)),
			Easing:   easing.InOutCubic,
		})
		if err != nil {
			return err
		}
		if err := m.sleep(ctx, mc.WanderPause.Draw(m.rng)); err != nil {
			return err
		}
	}
	return nil
}

// HoverJitter jiggles around center count times. Each jiggle may turn into
// an attention detour: a move to a nearby point, a pause and a move back.
// count <= 0 draws from HoverJitterCount.
func (m *Mouse) HoverJitter(ctx context.Context, center geom.Point, count int) error {
	mc := m.cfg.Mouse
	hc := m.cfg.Humanization
	if count <= 0 {
		count = mc.HoverJitterCount.Draw(m.rng)
	}

	for i := 0; i < count; i++ {
		radius := mc.HoverJitterRadius.Draw(m.rng)
		pos := m.clamp(center.Polar(m.randomAngle(), radius))
		if err := m.place(ctx, pos, mc.HoverSteps.Draw(m.rng)); err != nil {
			return err
		}
		if err := m.sleep(ctx, mc.HoverJitterDelay.Draw(m.rng)); err != nil {
			return err
		}

		if m.rng.Float64() >= hc.AttentionWander {
			continue
		}
		away := center.Polar(m.randomAngle(), hc.WanderDistance.Draw(m.rng))
		if err := m.MoveTo(ctx, away, MoveOptions{Duration: ms(hc.WanderDuration.Draw(m.rng))}); err != nil {
			return err
		}
		if err := m.sleep(ctx, hc.AttentionPause.Draw(m.rng)); err != nil {
			return err
		}
		if err := m.MoveTo(ctx, center, MoveOptions{Duration: ms(hc.WanderDuration.Draw(m.rng))}); err != nil {
			return err
		}
	}
	return nil
}

// Click nudges the pointer by a sub-pixel amount, clicks with a randomized
// press time and drifts slightly afterwards. There are no retries.
func (m *Mouse) Click(ctx context.Context, opts ClickOptions) error {
	mc := m.cfg.Mouse
	press := opts.Press
	if press <= 0 {
		press = time.Duration(mc.ClickPressTime.Draw(m.rng)) * time.Millisecond
	}

	at := m.clamp(geom.Point{
		X: m.pos.X + m.tremor(mc.ClickAdjust),
		Y: m.pos.Y + m.tremor(mc.ClickAdjust),
	})
	if err := m.place(ctx, at, 1); err != nil {
		return err
	}
	if err := m.sleep(ctx, mc.ClickSettle.Draw(m.rng)); err != nil {
		return err
	}

	m.logger.Debugf("click (%.1f, %.1f) press=%v", at.X, at.Y, press)
	if err := m.pointer.Click(ctx, at, press); err != nil {
		return err
	}

	if err := m.sleep(ctx, mc.PostClickPause.Draw(m.rng)); err != nil {
		return err
	}
	drift := m.clamp(geom.Point{
		X: at.X + m.tremor(mc.PostClickDrift),
		Y: at.Y + m.tremor(mc.PostClickDrift),
	})
	return m.place(ctx, drift, 1)
}
