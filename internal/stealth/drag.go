package stealth

import (
	"context"
	"math"

	"github.com/user/slidegate/internal/easing"
	"github.com/user/slidegate/internal/geom"
)

// DragSlider grabs the handle and drags it horizontally so the pointer is
// released at exactly (targetX, handle center y). Travel follows a
// slow-fast-slow profile with noise, tremor, a vertical wave and occasional
// stutters, and may overshoot and correct before the release.
func (m *Mouse) DragSlider(ctx context.Context, handle BoxProvider, targetX float64) error {
	sc := m.cfg.Slider

	box, err := handle.Box(ctx)
	if err != nil {
		return err
	}
	start := box.Center()

	if err := m.sleep(ctx, m.cfg.Timing.ThinkingPause.Draw(m.rng)); err != nil {
		return err
	}

	steps := sc.DragSteps.Draw(m.rng)
	interval := sc.DragDuration.Draw(m.rng) / float64(steps)

	err = m.MoveTo(ctx, start, MoveOptions{
		Overshoot: true,
		Duration:  ms(sc.ApproachDuration.Draw(m.rng)),
		Easing:    easing.InOutQuart,
	})
	if err != nil {
		return err
	}
	// MoveTo clamps; grab where the pointer actually is.
	start = m.pos

	if err := m.sleep(ctx, sc.SettlePause.Draw(m.rng)); err != nil {
		return err
	}
	if err := m.pointer.Press(ctx); err != nil {
		return err
	}
	if err := m.sleep(ctx, sc.GripPause.Draw(m.rng)); err != nil {
		return err
	}

	totalDistance := targetX - start.X
	wavePeriod := sc.WavePeriods.Draw(m.rng)
	waveAmplitude := sc.WaveAmplitude.Draw(m.rng)

	m.logger.Debugf("drag from x=%.1f to x=%.1f steps=%d", start.X, targetX, steps)

	m.noiseOff.X++
	m.noiseOff.Y++

	for i := 1; i <= steps; i++ {
		progress := float64(i) / float64(steps)
		x := start.X + totalDistance*dragProgress(progress, sc.EaseInEnd, sc.EaseOutStart)

		wave := math.Sin(progress*math.Pi*wavePeriod) * waveAmplitude
		pos := m.clamp(geom.Point{
			X: x + m.tremor(sc.TremorIntensity) + m.sampleNoise(m.noiseOff.X+float64(i)*0.12)*sc.NoiseScale,
			Y: start.Y + wave + m.tremor(sc.VerticalTremor),
		})
		if err := m.place(ctx, pos, 1); err != nil {
			return err
		}

		if m.rng.Float64() < sc.StutterChance {
			if err := m.sleep(ctx, sc.StutterDuration.Draw(m.rng)); err != nil {
				return err
			}
		}
		jitter := Range{1 - sc.StepJitter, 1 + sc.StepJitter}
		if err := m.sleep(ctx, interval*jitter.Draw(m.rng)); err != nil {
			return err
		}
	}

	if m.rng.Float64() < sc.OvershootChance {
		if err := m.overshootDrag(ctx, start.Y, targetX); err != nil {
			return err
		}
	}

	final := m.clamp(geom.Point{X: targetX, Y: start.Y})
	if err := m.place(ctx, final, sc.SnapSteps.Draw(m.rng)); err != nil {
		return err
	}
	if err := m.sleep(ctx, sc.ReleasePause.Draw(m.rng)); err != nil {
		return err
	}
	if err := m.pointer.Release(ctx); err != nil {
		return err
	}
	return m.sleep(ctx, sc.SettleAfter.Draw(m.rng))
}

// overshootDrag carries the handle past targetX, pauses, and eases back.
// Every point is clamped so a correction near the viewport edge stays visible.
func (m *Mouse) overshootDrag(ctx context.Context, y, targetX float64) error {
	sc := m.cfg.Slider
	over := m.clamp(geom.Point{
		X: targetX + sc.OvershootRange.Draw(m.rng),
		Y: y + m.tremor(sc.OvershootWobble),
	})
	if err := m.place(ctx, over, sc.OvershootSteps.Draw(m.rng)); err != nil {
		return err
	}
	if err := m.sleep(ctx, sc.OvershootPause.Draw(m.rng)); err != nil {
		return err
	}

	steps := sc.CorrectionSteps.Draw(m.rng)
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		pos := m.clamp(geom.Point{
			X: over.X + (targetX-over.X)*easing.OutQuad(t),
			Y: y + m.tremor(sc.CorrectionTremor),
		})
		if err := m.place(ctx, pos, 1); err != nil {
			return err
		}
		if err := m.sleep(ctx, sc.CorrectionPause.Draw(m.rng)); err != nil {
			return err
		}
	}
	return nil
}

// dragProgress is the three phase drag profile: quadratic ease-in below
// easeInEnd, linear up to easeOutStart, quadratic ease-out to the end.
func dragProgress(p, easeInEnd, easeOutStart float64) float64 {
	switch {
	case p < easeInEnd:
		return easing.InQuad(p/easeInEnd) * easeInEnd
	case p > easeOutStart:
		tail := 1 - easeOutStart
		return easeOutStart + easing.OutQuad((p-easeOutStart)/tail)*tail
	default:
		return p
	}
}
