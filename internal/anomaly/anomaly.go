// Package anomaly locates the drop target of a slider challenge in a
// captured image: the first pixel, in column scan order, that is not
// near-white.
package anomaly

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/slidegate/internal/geom"
	"github.com/user/slidegate/internal/logging"
)

// ErrNoAnomaly means the whole image passed the brightness test.
var ErrNoAnomaly = errors.New("no anomaly found in the slider image")

// ErrMalformedRaster means a decoder produced pixel data that cannot be
// scanned. It is a decoding failure, not an empty image.
var ErrMalformedRaster = errors.New("malformed raster")

// Direction is the order in which columns are visited.
type Direction string

const (
	RightToLeft Direction = "right-to-left"
	LeftToRight Direction = "left-to-right"
)

// ParseDirection accepts the names used in configuration.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case RightToLeft, LeftToRight:
		return d, nil
	case "":
		return RightToLeft, nil
	}
	return "", fmt.Errorf("unknown scan direction %q", s)
}

// Config controls the scan.
type Config struct {
	// WhiteThreshold: a pixel with any of r, g, b below it is an anomaly.
	WhiteThreshold uint8
	// OffsetPixels is the calibration bias, in image pixels, subtracted
	// from the found column when mapping to the page.
	OffsetPixels float64
	Direction    Direction
}

func DefaultConfig() Config {
	return Config{
		WhiteThreshold: 250,
		OffsetPixels:   30,
		Direction:      RightToLeft,
	}
}

// Raster is decoded pixel data, row-major, Channels bytes per pixel with
// r, g, b in the first three.
type Raster struct {
	Pix      []byte
	Width    int
	Height   int
	Channels int
}

// Validate checks the raster holds at least Width*Height pixels of r, g, b.
func (r Raster) Validate() error {
	switch {
	case r.Width <= 0 || r.Height <= 0:
		return fmt.Errorf("%w: size %dx%d", ErrMalformedRaster, r.Width, r.Height)
	case r.Channels < 3:
		return fmt.Errorf("%w: %d channels", ErrMalformedRaster, r.Channels)
	case len(r.Pix) < r.Width*r.Height*r.Channels:
		return fmt.Errorf("%w: %d bytes for %dx%dx%d", ErrMalformedRaster, len(r.Pix), r.Width, r.Height, r.Channels)
	}
	return nil
}

// Decoder turns an encoded image into a Raster.
type Decoder interface {
	Decode(ctx context.Context, buf []byte) (Raster, error)
}

// Sample is the first anomalous pixel together with image metadata.
type Sample struct {
	X, Y        int
	R, G, B     uint8
	ImageWidth  int
	ImageHeight int
	Channels    int
}

type Detector struct {
	cfg     Config
	decoder Decoder
}

func New(cfg Config, decoder Decoder) *Detector {
	if cfg.Direction == "" {
		cfg.Direction = RightToLeft
	}
	return &Detector{cfg: cfg, decoder: decoder}
}

func (d *Detector) Config() Config {
	return d.cfg
}

// IsAnomaly reports whether any channel is darker than the white threshold.
func (d *Detector) IsAnomaly(r, g, b uint8) bool {
	t := d.cfg.WhiteThreshold
	return r < t || g < t || b < t
}

// FindFirstAnomaly decodes buf and scans columns in the configured order,
// each column top to bottom. ok is false when no pixel qualifies. Decoder
// errors are returned as is.
func (d *Detector) FindFirstAnomaly(ctx context.Context, buf []byte) (Sample, bool, error) {
	raster, err := d.decoder.Decode(ctx, buf)
	if err != nil {
		return Sample{}, false, err
	}
	if err := raster.Validate(); err != nil {
		return Sample{}, false, err
	}
	logging.Logger.Infof("Scanning %dx%d image %s...", raster.Width, raster.Height, d.cfg.Direction)

	s, ok := d.Scan(raster)
	if ok {
		logging.Logger.Infof("First anomaly found at (%d, %d) - RGB(%d, %d, %d)", s.X, s.Y, s.R, s.G, s.B)
	}
	return s, ok, nil
}

// Scan runs the column search over an already decoded raster. A raster
// that fails Validate has no anomaly.
func (d *Detector) Scan(r Raster) (Sample, bool) {
	if r.Validate() != nil {
		return Sample{}, false
	}

	x, step, stop := r.Width-1, -1, -1
	if d.cfg.Direction == LeftToRight {
		x, step, stop = 0, 1, r.Width
	}

	for ; x != stop; x += step {
		for y := 0; y < r.Height; y++ {
			idx := (y*r.Width + x) * r.Channels
			red, green, blue := r.Pix[idx], r.Pix[idx+1], r.Pix[idx+2]
			if d.IsAnomaly(red, green, blue) {
				return Sample{
					X: x, Y: y,
					R: red, G: green, B: blue,
					ImageWidth:  r.Width,
					ImageHeight: r.Height,
					Channels:    r.Channels,
				}, true
			}
		}
	}
	return Sample{}, false
}

// Mapping is the page-space drag target derived from a Sample.
type Mapping struct {
	Scale        float64
	AnomalyPageX float64
	OffsetPageX  float64
	TargetPageX  float64
}

// MapToPage converts the sample column to a page x coordinate inside box,
// the on-screen bounds of the scanned element, and applies the offset bias.
func MapToPage(box geom.Box, s Sample, offsetPixels float64) Mapping {
	if s.ImageWidth <= 0 {
		return Mapping{}
	}
	scale := box.Width / float64(s.ImageWidth)
	anomalyX := box.X + float64(s.X)*scale
	offset := offsetPixels * scale
	return Mapping{
		Scale:        scale,
		AnomalyPageX: anomalyX,
		OffsetPageX:  offset,
		TargetPageX:  anomalyX - offset,
	}
}
