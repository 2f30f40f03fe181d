package stealth

import (
	"math/rand"
	"time"
)

// Range is a closed interval [Min, Max]. Durations are in milliseconds.
type Range struct {
	Min float64
	Max float64
}

// Draw returns a uniform sample from the interval.
func (r Range) Draw(rng *rand.Rand) float64 {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// IntRange is a closed integer interval [Min, Max].
type IntRange struct {
	Min int
	Max int
}

// Draw returns a uniform integer in [Min, Max], both ends included.
func (r IntRange) Draw(rng *rand.Rand) int {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rng.Intn(r.Max-r.Min+1)
}

func ms(v float64) time.Duration {
	return time.Duration(v * float64(time.Millisecond))
}

// MouseConfig tunes point-to-point motion, hover and click primitives.
type MouseConfig struct {
	MoveDuration      Range
	MoveSteps         IntRange
	BaseJitter        float64
	MaxJitter         float64
	JitterDistance    float64 // travel distance that doubles the base jitter
	OvershootChance   float64
	OvershootDistance Range
	NoiseAdvance      Range

	CorrectionSteps    IntRange
	CorrectionDuration Range
	CorrectionTremor   float64
	SnapSteps          IntRange

	HoverJitterCount  IntRange
	HoverJitterRadius Range
	HoverJitterDelay  Range
	HoverSteps        IntRange

	IdleDriftChance float64
	IdleDriftRange  Range
	DriftSteps      IntRange
	DriftDuration   Range
	WanderDuration  Range
	WanderPause     Range
	WanderInset     float64
	ViewportInset   float64
	StartArea       Range

	ClickPressTime IntRange
	ClickAdjust    float64
	ClickSettle    Range
	PostClickPause Range
	PostClickDrift float64
}

// SliderConfig tunes the drag-to-unlock gesture.
type SliderConfig struct {
	DragSteps        IntRange
	DragDuration     Range
	ApproachDuration Range
	SettlePause      Range
	GripPause        Range

	// Progress breakpoints of the slow-fast-slow profile.
	EaseInEnd    float64
	EaseOutStart float64

	NoiseScale      float64
	TremorIntensity float64
	VerticalTremor  float64
	WavePeriods     Range
	WaveAmplitude   Range
	StutterChance   float64
	StutterDuration Range
	StepJitter      float64 // +/- share applied to each step interval

	OvershootChance  float64
	OvershootRange   Range
	OvershootWobble  float64
	OvershootSteps   IntRange
	OvershootPause   Range
	CorrectionSteps  IntRange
	CorrectionPause  Range
	CorrectionTremor float64

	SnapSteps    IntRange
	ReleasePause Range
	SettleAfter  Range
}

// TimingConfig holds pauses used around motion primitives.
type TimingConfig struct {
	InitialPageLoad    Range
	PageExploration    Range
	PostClickDelay     Range
	MicroPauseChance   float64
	MicroPauseDuration Range
	ThinkingPause      Range
	ObservationPause   Range
	ReadingPause       Range
}

// HumanizationConfig holds attention and pre-action behaviour.
type HumanizationConfig struct {
	AttentionWander  float64
	WanderDistance   Range
	WanderDuration   Range
	AttentionPause   Range
	PreActionDelay   Range
	ExplorationMoves IntRange
}

// Config is the full, read-only tuning of a Mouse.
type Config struct {
	Mouse        MouseConfig
	Slider       SliderConfig
	Timing       TimingConfig
	Humanization HumanizationConfig
}

// DefaultConfig returns the tuning the synthesizer ships with.
func DefaultConfig() Config {
	return Config{
		Mouse: MouseConfig{
			MoveDuration:      Range{400, 800},
			MoveSteps:         IntRange{25, 45},
			BaseJitter:        2.0,
			MaxJitter:         4.5,
			JitterDistance:    600,
			OvershootChance:   0.8,
			OvershootDistance: Range{10, 25},
			NoiseAdvance:      Range{0.05, 0.15},

			CorrectionSteps:    IntRange{6, 12},
			CorrectionDuration: Range{120, 250},
			CorrectionTremor:   0.5,
			SnapSteps:          IntRange{1, 3},

			HoverJitterCount:  IntRange{3, 6},
			HoverJitterRadius: Range{2, 6},
			HoverJitterDelay:  Range{50, 150},
			HoverSteps:        IntRange{1, 2},

			IdleDriftChance: 0.3,
			IdleDriftRange:  Range{5, 15},
			DriftSteps:      IntRange{3, 6},
			DriftDuration:   Range{150, 300},
			WanderDuration:  Range{500, 1000},
			WanderPause:     Range{100, 400},
			WanderInset:     100,
			ViewportInset:   10,
			StartArea:       Range{50, 150},

			ClickPressTime: IntRange{60, 120},
			ClickAdjust:    0.5,
			ClickSettle:    Range{20, 60},
			PostClickPause: Range{50, 120},
			PostClickDrift: 2,
		},
		Slider: SliderConfig{
			DragSteps:        IntRange{70, 110},
			DragDuration:     Range{1000, 1600},
			ApproachDuration: Range{400, 700},
			SettlePause:      Range{100, 250},
			GripPause:        Range{50, 120},

			EaseInEnd:    0.15,
			EaseOutStart: 0.88,

			NoiseScale:      1.5,
			TremorIntensity: 0.7,
			VerticalTremor:  0.5,
			WavePeriods:     Range{2, 3.5},
			WaveAmplitude:   Range{1, 3},
			StutterChance:   0.15,
			StutterDuration: Range{30, 90},
			StepJitter:      0.25,

			OvershootChance:  0.75,
			OvershootRange:   Range{-12, 18},
			OvershootWobble:  2,
			OvershootSteps:   IntRange{3, 6},
			OvershootPause:   Range{60, 140},
			CorrectionSteps:  IntRange{4, 7},
			CorrectionPause:  Range{15, 35},
			CorrectionTremor: 0.3,

			SnapSteps:    IntRange{2, 4},
			ReleasePause: Range{40, 100},
			SettleAfter:  Range{100, 250},
		},
		Timing: TimingConfig{
			InitialPageLoad:    Range{1500, 3000},
			PageExploration:    Range{2000, 4000},
			PostClickDelay:     Range{400, 800},
			MicroPauseChance:   0.1,
			MicroPauseDuration: Range{20, 60},
			ThinkingPause:      Range{300, 700},
			ObservationPause:   Range{500, 1000},
			ReadingPause:       Range{800, 1500},
		},
		Humanization: HumanizationConfig{
			AttentionWander:  0.2,
			WanderDistance:   Range{20, 50},
			WanderDuration:   Range{200, 400},
			AttentionPause:   Range{100, 250},
			PreActionDelay:   Range{150, 400},
			ExplorationMoves: IntRange{3, 6},
		},
	}
}
