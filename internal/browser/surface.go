package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/user/slidegate/internal/geom"
	"github.com/user/slidegate/internal/stealth"
)

// ErrNoLayout is returned for an element that has no box on the page.
var ErrNoLayout = errors.New("element has no layout box")

// Element is a located page element.
type Element interface {
	stealth.BoxProvider
	// Screenshot captures the element as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
}

// Surface adapts a rod page to the synthesizer's Pointer and Viewport and
// gives the solver element lookup, scrolling and navigation.
type Surface struct {
	page    *rod.Page
	clock   stealth.Clock
	bounds  geom.Size
	timeout time.Duration
}

// NewSurface wraps page. bounds is the viewport used for clamping until
// RefreshBounds reads the real one.
func NewSurface(page *rod.Page, bounds geom.Size) *Surface {
	return &Surface{
		page:    page,
		clock:   stealth.RealClock(),
		bounds:  bounds,
		timeout: 10 * time.Second,
	}
}

// Mouse events are dispatched through the page's own context, so ctx is
// checked before each one.

func (s *Surface) MoveTo(ctx context.Context, p geom.Point, steps int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if steps < 1 {
		steps = 1
	}
	return s.page.Mouse.MoveLinear(proto.Point{X: p.X, Y: p.Y}, steps)
}

func (s *Surface) Press(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.page.Mouse.Down(proto.InputMouseButtonLeft, 1)
}

func (s *Surface) Release(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.page.Mouse.Up(proto.InputMouseButtonLeft, 1)
}

func (s *Surface) Click(ctx context.Context, p geom.Point, press time.Duration) error {
	if err := s.MoveTo(ctx, p, 1); err != nil {
		return err
	}
	if err := s.Press(ctx); err != nil {
		return err
	}
	if err := s.clock.Sleep(ctx, press); err != nil {
		// Never leave the button held down.
		_ = s.page.Mouse.Up(proto.InputMouseButtonLeft, 1)
		return err
	}
	return s.page.Mouse.Up(proto.InputMouseButtonLeft, 1)
}

func (s *Surface) Bounds() geom.Size {
	return s.bounds
}

// RefreshBounds reads the layout viewport size from the page.
func (s *Surface) RefreshBounds(ctx context.Context) error {
	res, err := s.page.Context(ctx).Eval(`() => ({ w: window.innerWidth, h: window.innerHeight })`)
	if err != nil {
		return err
	}
	size := sizeOf(res.Value)
	if size.Width > 0 && size.Height > 0 {
		s.bounds = size
	}
	return nil
}

func sizeOf(v gson.JSON) geom.Size {
	return geom.Size{Width: v.Get("w").Num(), Height: v.Get("h").Num()}
}

// Element waits up to ten seconds for selector to match a visible element.
func (s *Surface) Element(ctx context.Context, selector string) (Element, error) {
	waitCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	page := s.page.Context(waitCtx)
	el, err := page.Element(selector)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", selector, err)
	}
	if err := el.WaitVisible(); err != nil {
		return nil, fmt.Errorf("wait for %s to be visible: %w", selector, err)
	}
	return &element{el: el.Context(ctx)}, nil
}

// ScrollBy scrolls the window smoothly by dy pixels.
func (s *Surface) ScrollBy(ctx context.Context, dy float64) error {
	_, err := s.page.Context(ctx).Eval(`(amount) => window.scrollBy({ top: amount, behavior: "smooth" })`, dy)
	return err
}

func (s *Surface) Navigate(ctx context.Context, url string) error {
	page := s.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return err
	}
	return page.WaitLoad()
}

type element struct {
	el *rod.Element
}

func (e *element) Box(ctx context.Context) (geom.Box, error) {
	shape, err := e.el.Context(ctx).Shape()
	if err != nil {
		return geom.Box{}, err
	}
	box := shape.Box()
	if box == nil {
		return geom.Box{}, ErrNoLayout
	}
	return geom.Box{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height}, nil
}

func (e *element) Screenshot(ctx context.Context) ([]byte, error) {
	return e.el.Context(ctx).Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
}
