package scheduler

import (
	"github.com/user/slidegate/internal/logging"
)

// Limiter is the attempt budget of a run. The solver asks it before every
// challenge attempt.
type Limiter struct {
	MaxActions int
	Count      int
}

func New(max int) *Limiter {
	return &Limiter{MaxActions: max}
}

// ShouldWait reports whether the budget is used up.
func (l *Limiter) ShouldWait() bool {
	if l.Count >= l.MaxActions {
		logging.Logger.Warnf("Attempt budget of %d reached, stopping", l.MaxActions)
		return true
	}
	return false
}

func (l *Limiter) Increment() {
	l.Count++
}

// Remaining is the number of attempts left, never negative.
func (l *Limiter) Remaining() int {
	if l.Count >= l.MaxActions {
		return 0
	}
	return l.MaxActions - l.Count
}
