// Package solver drives a slide-to-unlock challenge end to end: it browses
// the page like a person would, opens the challenge, finds the drop target
// in the slider image and drags the handle onto it.
package solver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/user/slidegate/internal/anomaly"
	"github.com/user/slidegate/internal/browser"
	"github.com/user/slidegate/internal/easing"
	"github.com/user/slidegate/internal/geom"
	"github.com/user/slidegate/internal/logging"
	"github.com/user/slidegate/internal/scheduler"
	"github.com/user/slidegate/internal/stealth"
	"github.com/user/slidegate/internal/storage"
)

const (
	OriginalScreenshot = "slider-original.png"
	ResultScreenshot   = "slider-result.png"
)

// ErrNoAttempts is returned by Run when the budget allows no attempt at all.
var ErrNoAttempts = errors.New("attempt budget is empty")

// Page is the part of the browser the solver needs besides the pointer.
type Page interface {
	Element(ctx context.Context, selector string) (browser.Element, error)
	ScrollBy(ctx context.Context, dy float64) error
	Navigate(ctx context.Context, url string) error
}

// Recorder keeps attempt history. *storage.Store satisfies it.
type Recorder interface {
	StartAttempt(seed int64, startedAt time.Time) (string, error)
	FinishAttempt(id string, r storage.Result) error
	LogActivity(attemptID, actionType, metadata string) error
}

type Options struct {
	// URL is opened before each attempt. Empty keeps the current tab as is.
	URL            string
	ButtonSelector string
	SliderSelector string
	HandleSelector string
	ScreenshotDir  string
	Seed           int64
}

// Outcome describes a completed attempt.
type Outcome struct {
	AttemptID string
	Sample    anomaly.Sample
	Mapping   anomaly.Mapping
	Original  string
	Result    string
}

type Solver struct {
	opts     Options
	page     Page
	mouse    *stealth.Mouse
	detector *anomaly.Detector
	recorder Recorder
	limiter  *scheduler.Limiter
	logger   *zap.SugaredLogger
	now      func() time.Time
}

type Option func(*Solver)

func WithRecorder(r Recorder) Option {
	return func(s *Solver) { s.recorder = r }
}

func WithLimiter(l *scheduler.Limiter) Option {
	return func(s *Solver) { s.limiter = l }
}

func New(opts Options, page Page, mouse *stealth.Mouse, detector *anomaly.Detector, extra ...Option) *Solver {
	s := &Solver{
		opts:     opts,
		page:     page,
		mouse:    mouse,
		detector: detector,
		limiter:  scheduler.New(1),
		logger:   logging.Logger,
		now:      time.Now,
	}
	for _, o := range extra {
		o(s)
	}
	return s
}

// Run initializes the pointer and attempts the challenge until one attempt
// succeeds or the budget is spent. It returns the last attempt error.
func (s *Solver) Run(ctx context.Context) (*Outcome, error) {
	s.logger.Info("Initializing pointer...")
	if err := s.mouse.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialize pointer: %w", err)
	}

	var lastErr error
	for !s.limiter.ShouldWait() {
		s.limiter.Increment()
		out, err := s.Attempt(ctx)
		if err == nil {
			s.logger.Info("All steps completed successfully")
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, err
		}
		s.logger.Errorf("Attempt failed: %v (%d left)", err, s.limiter.Remaining())
	}
	if lastErr == nil {
		return nil, ErrNoAttempts
	}
	return nil, lastErr
}

// Attempt runs the flow once and records it.
func (s *Solver) Attempt(ctx context.Context) (*Outcome, error) {
	id := s.begin()
	out := &Outcome{AttemptID: id}

	err := s.attempt(ctx, out)
	s.finish(id, out, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Solver) attempt(ctx context.Context, out *Outcome) error {
	if s.opts.URL != "" {
		s.logger.Infof("Navigating to %s", s.opts.URL)
		if err := s.page.Navigate(ctx, s.opts.URL); err != nil {
			return fmt.Errorf("navigate: %w", err)
		}
		if err := s.mouse.ThinkDelay(ctx, s.mouse.Config().Timing.InitialPageLoad); err != nil {
			return err
		}
	}

	s.logger.Info("Page loaded, acting naturally...")
	if err := s.explore(ctx); err != nil {
		return fmt.Errorf("explore page: %w", err)
	}

	s.logger.Info("Clicking challenge button...")
	if err := s.clickGate(ctx, out.AttemptID); err != nil {
		return fmt.Errorf("click challenge button: %w", err)
	}

	s.logger.Info("Solving slider challenge...")
	if err := s.solveSlider(ctx, out); err != nil {
		return fmt.Errorf("solve slider: %w", err)
	}
	return nil
}

// explore scrolls a little and wanders before touching anything.
func (s *Solver) explore(ctx context.Context) error {
	amount := math.Round(s.mouse.Uniform(stealth.Range{Min: 30, Max: 80}))
	if err := s.page.ScrollBy(ctx, amount); err != nil {
		return err
	}
	return s.mouse.RandomWander(ctx, s.mouse.UniformInt(stealth.IntRange{Min: 2, Max: 3}))
}

func (s *Solver) clickGate(ctx context.Context, attemptID string) error {
	button, err := s.page.Element(ctx, s.opts.ButtonSelector)
	if err != nil {
		return err
	}
	box, err := button.Box(ctx)
	if err != nil {
		return err
	}
	center := box.Center().Add(s.offset(2))
	cfg := s.mouse.Config()

	// Long trips go through a loose waypoint first.
	from := s.mouse.Position()
	if distance := from.Dist(center); distance > 150 {
		waypoint := from.Polar(from.Angle(center), distance*s.mouse.Uniform(stealth.Range{Min: 0.4, Max: 0.6})).Add(s.offset(40))
		if err := s.move(ctx, waypoint, stealth.Range{Min: 350, Max: 600}, false); err != nil {
			return err
		}
		if err := s.mouse.ThinkDelay(ctx, stealth.Range{Min: 100, Max: 250}); err != nil {
			return err
		}
	}

	if err := s.move(ctx, center.Add(s.offset(30)), stealth.Range{Min: 300, Max: 500}, false); err != nil {
		return err
	}
	if err := s.mouse.ThinkDelay(ctx, stealth.Range{Min: 150, Max: 350}); err != nil {
		return err
	}
	if err := s.move(ctx, center, stealth.Range{Min: 400, Max: 700}, true); err != nil {
		return err
	}

	if err := s.mouse.HoverJitter(ctx, center, 0); err != nil {
		return err
	}
	if err := s.mouse.ThinkDelay(ctx, cfg.Humanization.PreActionDelay); err != nil {
		return err
	}
	if err := s.mouse.Click(ctx, stealth.ClickOptions{}); err != nil {
		return err
	}
	pos := s.mouse.Position()
	s.record(attemptID, "click", fmt.Sprintf("%s at (%.1f, %.1f)", s.opts.ButtonSelector, pos.X, pos.Y))

	s.logger.Info("Button clicked, waiting for challenge...")
	if err := s.mouse.ThinkDelay(ctx, stealth.Range{Min: 1200, Max: 2000}); err != nil {
		return err
	}
	return s.mouse.MicroDrift(ctx, 0)
}

func (s *Solver) solveSlider(ctx context.Context, out *Outcome) error {
	timing := s.mouse.Config().Timing

	slider, err := s.page.Element(ctx, s.opts.SliderSelector)
	if err != nil {
		return err
	}
	if err := s.mouse.ThinkDelay(ctx, timing.ObservationPause); err != nil {
		return err
	}

	box, err := slider.Box(ctx)
	if err != nil {
		return err
	}
	examine := box.At(
		s.mouse.Uniform(stealth.Range{Min: 0.3, Max: 0.7}),
		s.mouse.Uniform(stealth.Range{Min: 0.2, Max: 0.5}),
	)
	if err := s.mouse.MoveTo(ctx, examine, stealth.MoveOptions{Duration: s.millis(stealth.Range{Min: 400, Max: 700})}); err != nil {
		return err
	}
	if err := s.mouse.ThinkDelay(ctx, stealth.Range{Min: 300, Max: 600}); err != nil {
		return err
	}

	shot, err := slider.Screenshot(ctx)
	if err != nil {
		return fmt.Errorf("capture slider: %w", err)
	}
	if out.Original, err = s.save(shot, OriginalScreenshot); err != nil {
		return err
	}
	s.logger.Infof("Screenshot saved as %s", out.Original)

	sample, found, err := s.detector.FindFirstAnomaly(ctx, shot)
	if err != nil {
		return fmt.Errorf("scan slider image: %w", err)
	}
	if !found {
		return anomaly.ErrNoAnomaly
	}
	out.Sample = sample
	out.Mapping = anomaly.MapToPage(box, sample, s.detector.Config().OffsetPixels)

	s.logger.Infof("Anomaly X position: %.2fpx", out.Mapping.AnomalyPageX)
	s.logger.Infof("Offset: %.2fpx (%v pixels)", out.Mapping.OffsetPageX, s.detector.Config().OffsetPixels)
	s.logger.Infof("Final target X: %.2fpx", out.Mapping.TargetPageX)

	handle, err := s.page.Element(ctx, s.opts.HandleSelector)
	if err != nil {
		return err
	}
	if err := s.mouse.DragSlider(ctx, handle, out.Mapping.TargetPageX); err != nil {
		return err
	}
	s.record(out.AttemptID, "drag", fmt.Sprintf("released at x=%.2f", out.Mapping.TargetPageX))

	if err := s.mouse.ThinkDelay(ctx, timing.PostClickDelay); err != nil {
		return err
	}

	shot, err = slider.Screenshot(ctx)
	if err != nil {
		return fmt.Errorf("capture result: %w", err)
	}
	if out.Result, err = s.save(shot, ResultScreenshot); err != nil {
		return err
	}
	s.logger.Infof("Challenge complete, %s saved", out.Result)
	return nil
}

func (s *Solver) move(ctx context.Context, to geom.Point, duration stealth.Range, overshoot bool) error {
	return s.mouse.MoveTo(ctx, to, stealth.MoveOptions{
		Duration:  s.millis(duration),
		Overshoot: overshoot,
		Easing:    easing.InOutCubic,
	})
}

// offset draws a point with both coordinates in [-r, r].
func (s *Solver) offset(r float64) geom.Point {
	span := stealth.Range{Min: -r, Max: r}
	return geom.Point{X: s.mouse.Uniform(span), Y: s.mouse.Uniform(span)}
}

func (s *Solver) millis(r stealth.Range) time.Duration {
	return time.Duration(s.mouse.Uniform(r) * float64(time.Millisecond))
}

// save re-encodes a PNG capture into the screenshot directory.
func (s *Solver) save(png []byte, name string) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(png))
	if err != nil {
		return "", fmt.Errorf("decode screenshot: %w", err)
	}
	dir := s.opts.ScreenshotDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := imaging.Save(img, path); err != nil {
		return "", fmt.Errorf("save %s: %w", name, err)
	}
	return path, nil
}

func (s *Solver) begin() string {
	if s.recorder == nil {
		return ""
	}
	id, err := s.recorder.StartAttempt(s.opts.Seed, s.now())
	if err != nil {
		s.logger.Warnf("could not record attempt start: %v", err)
	}
	return id
}

func (s *Solver) finish(id string, out *Outcome, err error) {
	if s.recorder == nil || id == "" {
		return
	}
	res := storage.Result{
		FinishedAt: s.now(),
		Found:      out.Sample.ImageWidth > 0,
		AnomalyX:   out.Sample.X,
		AnomalyY:   out.Sample.Y,
		TargetX:    out.Mapping.TargetPageX,
		Outcome:    storage.OutcomeReleased,
		Err:        err,
	}
	if err != nil {
		res.Outcome = storage.OutcomeFailed
	}
	if err := s.recorder.FinishAttempt(id, res); err != nil {
		s.logger.Warnf("could not record attempt %s: %v", id, err)
	}
}

func (s *Solver) record(attemptID, action, metadata string) {
	if s.recorder == nil || attemptID == "" {
		return
	}
	if err := s.recorder.LogActivity(attemptID, action, metadata); err != nil {
		s.logger.Warnf("could not log %s: %v", action, err)
	}
}
