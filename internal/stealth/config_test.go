package stealth

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRange_DrawWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	r := Range{Min: 400, Max: 800}
	for i := 0; i < 1000; i++ {
		v := r.Draw(rng)
		assert.GreaterOrEqual(t, v, 400.0)
		assert.LessOrEqual(t, v, 800.0)
	}
}

func TestRange_Degenerate(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.Equal(t, 5.0, Range{Min: 5, Max: 5}.Draw(rng))
	assert.Equal(t, 5.0, Range{Min: 5, Max: 1}.Draw(rng))
	assert.Equal(t, 3, IntRange{Min: 3, Max: 3}.Draw(rng))
	assert.Equal(t, 3, IntRange{Min: 3, Max: -1}.Draw(rng))
}

func TestIntRange_CoversBothEnds(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	r := IntRange{Min: 1, Max: 3}
	seen := map[int]bool{}
	for i := 0; i < 500; i++ {
		v := r.Draw(rng)
		assert.GreaterOrEqual(t, v, 1)
		assert.LessOrEqual(t, v, 3)
		seen[v] = true
	}
	assert.Len(t, seen, 3)
}

func TestDefaultConfig_RangesOrdered(t *testing.T) {
	cfg := DefaultConfig()
	ranges := map[string]Range{
		"MoveDuration":       cfg.Mouse.MoveDuration,
		"OvershootDistance":  cfg.Mouse.OvershootDistance,
		"CorrectionDuration": cfg.Mouse.CorrectionDuration,
		"HoverJitterRadius":  cfg.Mouse.HoverJitterRadius,
		"IdleDriftRange":     cfg.Mouse.IdleDriftRange,
		"DragDuration":       cfg.Slider.DragDuration,
		"OvershootRange":     cfg.Slider.OvershootRange,
		"StutterDuration":    cfg.Slider.StutterDuration,
		"WavePeriods":        cfg.Slider.WavePeriods,
		"WaveAmplitude":      cfg.Slider.WaveAmplitude,
		"ThinkingPause":      cfg.Timing.ThinkingPause,
		"WanderDistance":     cfg.Humanization.WanderDistance,
	}
	for name, r := range ranges {
		assert.LessOrEqual(t, r.Min, r.Max, name)
	}
	assert.Less(t, cfg.Slider.EaseInEnd, cfg.Slider.EaseOutStart)
	assert.Equal(t, 0.15, cfg.Slider.EaseInEnd)
	assert.Equal(t, 0.88, cfg.Slider.EaseOutStart)
}
