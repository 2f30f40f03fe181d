package solver

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/slidegate/internal/anomaly"
	"github.com/user/slidegate/internal/browser"
	"github.com/user/slidegate/internal/geom"
	"github.com/user/slidegate/internal/scheduler"
	"github.com/user/slidegate/internal/stealth"
	"github.com/user/slidegate/internal/storage"
)

const (
	buttonSel = ".gate"
	sliderSel = ".canvas"
	handleSel = ".handle"
)

type fakeElement struct {
	box   geom.Box
	shots [][]byte
	taken int
}

func (e *fakeElement) Box(context.Context) (geom.Box, error) {
	return e.box, nil
}

func (e *fakeElement) Screenshot(context.Context) ([]byte, error) {
	shot := e.shots[e.taken%len(e.shots)]
	e.taken++
	return shot, nil
}

type fakePage struct {
	elements  map[string]*fakeElement
	missing   error
	scrolls   []float64
	navigated []string
}

func (p *fakePage) Element(_ context.Context, selector string) (browser.Element, error) {
	el, ok := p.elements[selector]
	if !ok {
		return nil, p.missing
	}
	return el, nil
}

func (p *fakePage) ScrollBy(_ context.Context, dy float64) error {
	p.scrolls = append(p.scrolls, dy)
	return nil
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.navigated = append(p.navigated, url)
	return nil
}

type pointerEvent struct {
	kind string
	at   geom.Point
}

type recordingPointer struct {
	events []pointerEvent
}

func (r *recordingPointer) MoveTo(_ context.Context, p geom.Point, _ int) error {
	r.events = append(r.events, pointerEvent{"move", p})
	return nil
}

func (r *recordingPointer) Press(context.Context) error {
	r.events = append(r.events, pointerEvent{kind: "press"})
	return nil
}

func (r *recordingPointer) Release(context.Context) error {
	r.events = append(r.events, pointerEvent{kind: "release"})
	return nil
}

func (r *recordingPointer) Click(_ context.Context, p geom.Point, _ time.Duration) error {
	r.events = append(r.events, pointerEvent{"click", p})
	return nil
}

func (r *recordingPointer) index(kind string) int {
	for i, e := range r.events {
		if e.kind == kind {
			return i
		}
	}
	return -1
}

type noSleep struct{}

func (noSleep) Sleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

type viewport struct{}

func (viewport) Bounds() geom.Size {
	return geom.Size{Width: 1440, Height: 900}
}

type memRecorder struct {
	started  int
	finished []storage.Result
	activity []string
}

func (m *memRecorder) StartAttempt(int64, time.Time) (string, error) {
	m.started++
	return "attempt-" + string(rune('0'+m.started)), nil
}

func (m *memRecorder) FinishAttempt(_ string, r storage.Result) error {
	m.finished = append(m.finished, r)
	return nil
}

func (m *memRecorder) LogActivity(_, action, _ string) error {
	m.activity = append(m.activity, action)
	return nil
}

// sliderPNG is a white canvas with a dark notch whose rightmost column is notchX.
func sliderPNG(t *testing.T, width, height, notchX int) []byte {
	t.Helper()
	img := imaging.New(width, height, color.White)
	if notchX >= 0 {
		for x := notchX - 10; x <= notchX; x++ {
			for y := height / 3; y < 2*height/3; y++ {
				img.Set(x, y, color.NRGBA{40, 40, 40, 255})
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

type fixture struct {
	page     *fakePage
	pointer  *recordingPointer
	recorder *memRecorder
	solver   *Solver
	dir      string
}

func setup(t *testing.T, shot []byte, budget int) *fixture {
	t.Helper()
	f := &fixture{
		page: &fakePage{
			elements: map[string]*fakeElement{
				buttonSel: {box: geom.Box{X: 600, Y: 500, Width: 60, Height: 40}},
				sliderSel: {box: geom.Box{X: 100, Y: 300, Width: 300, Height: 60}, shots: [][]byte{shot}},
				handleSel: {box: geom.Box{X: 100, Y: 390, Width: 40, Height: 20}},
			},
			missing: errors.New("element not found"),
		},
		pointer:  &recordingPointer{},
		recorder: &memRecorder{},
		dir:      t.TempDir(),
	}
	mouse := stealth.New(stealth.DefaultConfig(), f.pointer, viewport{},
		stealth.WithRand(rand.New(rand.NewSource(7))),
		stealth.WithClock(noSleep{}),
	)
	f.solver = New(Options{
		URL:            "http://localhost:8080",
		ButtonSelector: buttonSel,
		SliderSelector: sliderSel,
		HandleSelector: handleSel,
		ScreenshotDir:  f.dir,
		Seed:           7,
	}, f.page, mouse, anomaly.New(anomaly.DefaultConfig(), anomaly.ImagingDecoder{}),
		WithRecorder(f.recorder),
		WithLimiter(scheduler.New(budget)),
	)
	return f
}

func TestRun_DragsHandleOntoTarget(t *testing.T) {
	f := setup(t, sliderPNG(t, 300, 60, 200), 1)

	out, err := f.solver.Run(context.Background())
	require.NoError(t, err)

	// Scale 1: anomaly at 100+200, minus the 30px bias.
	assert.Equal(t, 200, out.Sample.X)
	assert.Equal(t, 300.0, out.Mapping.AnomalyPageX)
	assert.Equal(t, 270.0, out.Mapping.TargetPageX)

	press, release := f.pointer.index("press"), f.pointer.index("release")
	require.Greater(t, press, 0)
	require.Greater(t, release, press)
	assert.Equal(t, geom.Point{X: 120, Y: 400}, f.pointer.events[press-1].at)
	assert.Equal(t, geom.Point{X: 270, Y: 400}, f.pointer.events[release-1].at)

	assert.Equal(t, []string{"http://localhost:8080"}, f.page.navigated)
	require.Len(t, f.page.scrolls, 1)
	assert.GreaterOrEqual(t, f.page.scrolls[0], 30.0)
	assert.LessOrEqual(t, f.page.scrolls[0], 80.0)

	for _, name := range []string{OriginalScreenshot, ResultScreenshot} {
		_, err := os.Stat(filepath.Join(f.dir, name))
		assert.NoError(t, err, name)
	}
	assert.Equal(t, filepath.Join(f.dir, ResultScreenshot), out.Result)
	assert.Equal(t, 2, f.page.elements[sliderSel].taken)
}

func TestRun_ClicksGateBeforeDragging(t *testing.T) {
	f := setup(t, sliderPNG(t, 300, 60, 200), 1)
	_, err := f.solver.Run(context.Background())
	require.NoError(t, err)

	click := f.pointer.index("click")
	require.GreaterOrEqual(t, click, 0)
	assert.Less(t, click, f.pointer.index("press"))

	// Center jitter, hover radius and click adjustment.
	center := geom.Point{X: 630, Y: 520}
	assert.LessOrEqual(t, center.Dist(f.pointer.events[click].at), 2*1.5+6+1)
}

func TestRun_ScaledScreenshot(t *testing.T) {
	// A 2x device scale doubles the image against the page box.
	f := setup(t, sliderPNG(t, 600, 120, 400), 1)
	out, err := f.solver.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0.5, out.Mapping.Scale)
	assert.Equal(t, 300.0, out.Mapping.AnomalyPageX)
	assert.Equal(t, 285.0, out.Mapping.TargetPageX)
}

func TestRun_RecordsAttempt(t *testing.T) {
	f := setup(t, sliderPNG(t, 300, 60, 200), 1)
	_, err := f.solver.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, f.recorder.finished, 1)
	res := f.recorder.finished[0]
	assert.Equal(t, storage.OutcomeReleased, res.Outcome)
	assert.True(t, res.Found)
	assert.Equal(t, 200, res.AnomalyX)
	assert.Equal(t, 270.0, res.TargetX)
	assert.NoError(t, res.Err)
	assert.Equal(t, []string{"click", "drag"}, f.recorder.activity)
}

func TestRun_NoAnomaly(t *testing.T) {
	f := setup(t, sliderPNG(t, 300, 60, -1), 1)

	_, err := f.solver.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, anomaly.ErrNoAnomaly)
	assert.Equal(t, -1, f.pointer.index("press"), "no drag without a target")

	require.Len(t, f.recorder.finished, 1)
	assert.Equal(t, storage.OutcomeFailed, f.recorder.finished[0].Outcome)
	assert.False(t, f.recorder.finished[0].Found)
}

func TestRun_RetriesWithinBudget(t *testing.T) {
	f := setup(t, sliderPNG(t, 300, 60, 200), 3)
	delete(f.page.elements, buttonSel)

	_, err := f.solver.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, f.page.missing)
	assert.Contains(t, err.Error(), "click challenge button")
	assert.Len(t, f.page.navigated, 3)
	assert.Equal(t, 3, f.recorder.started)
}

func TestRun_EmptyBudget(t *testing.T) {
	f := setup(t, sliderPNG(t, 300, 60, 200), 0)
	_, err := f.solver.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoAttempts)
}

func TestRun_CanceledContext(t *testing.T) {
	f := setup(t, sliderPNG(t, 300, 60, 200), 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.solver.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.page.navigated)
}

func TestSave_RejectsNonImage(t *testing.T) {
	f := setup(t, []byte("not an image"), 1)
	_, err := f.solver.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode screenshot")
}

func TestSliderPNGHelper(t *testing.T) {
	img, err := imaging.Decode(bytes.NewReader(sliderPNG(t, 30, 9, 20)))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 30, 9), img.Bounds())
}
