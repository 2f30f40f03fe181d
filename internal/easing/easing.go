// Package easing maps normalized progress t in [0,1] to eased progress.
package easing

import "math"

// Func remaps normalized progress.
type Func func(t float64) float64

const (
	backC1 = 1.70158
	backC3 = backC1 + 1
)

// InOutCubic accelerates through the first half and decelerates through the second.
func InOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// InBack pulls back below 0 before accelerating toward 1.
func InBack(t float64) float64 {
	return backC3*t*t*t - backC1*t*t
}

// OutBack overshoots past 1 before settling on it.
func OutBack(t float64) float64 {
	s := t - 1
	return 1 + backC3*s*s*s + backC1*s*s
}

func InQuad(t float64) float64 {
	return t * t
}

func OutQuad(t float64) float64 {
	return 1 - (1-t)*(1-t)
}

func InOutQuad(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return 1 - math.Pow(-2*t+2, 2)/2
}

func InOutQuart(t float64) float64 {
	if t < 0.5 {
		return 8 * t * t * t * t
	}
	s := t - 1
	return 1 - 8*s*s*s*s
}

// Linear is the identity.
func Linear(t float64) float64 {
	return t
}

var named = map[string]Func{
	"linear":         Linear,
	"easeInOutCubic": InOutCubic,
	"easeInBack":     InBack,
	"easeOutBack":    OutBack,
	"easeInQuad":     InQuad,
	"easeOutQuad":    OutQuad,
	"easeInOutQuad":  InOutQuad,
	"easeInOutQuart": InOutQuart,
}

// ByName looks up an easing function by its conventional name, e.g. "easeInOutCubic".
func ByName(name string) (Func, bool) {
	f, ok := named[name]
	return f, ok
}
