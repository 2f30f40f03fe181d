package anomaly

import (
	"bytes"
	"context"

	"github.com/disintegration/imaging"
)

// ImagingDecoder decodes PNG, JPEG, GIF, BMP and TIFF buffers into 4-channel
// NRGBA rasters.
type ImagingDecoder struct{}

func (ImagingDecoder) Decode(ctx context.Context, buf []byte) (Raster, error) {
	if err := ctx.Err(); err != nil {
		return Raster{}, err
	}
	img, err := imaging.Decode(bytes.NewReader(buf))
	if err != nil {
		return Raster{}, err
	}
	// Clone normalizes to *image.NRGBA anchored at the origin with a tight stride.
	nrgba := imaging.Clone(img)
	b := nrgba.Bounds()
	return Raster{
		Pix:      nrgba.Pix,
		Width:    b.Dx(),
		Height:   b.Dy(),
		Channels: 4,
	}, nil
}
