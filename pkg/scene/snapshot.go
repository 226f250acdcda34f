package scene

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"time"

	xdraw "golang.org/x/image/draw"

	errs "github.com/matzehuels/chromascribe/pkg/errors"
	"github.com/matzehuels/chromascribe/pkg/observability"
)

// Snapshot encodes the retained frame as PNG. The frame is whatever the last
// render produced, so a snapshot never triggers a repaint.
func (c *Canvas) Snapshot(ctx context.Context) ([]byte, error) {
	start := time.Now()
	img := c.SnapshotImage()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		err = errs.Wrap(errs.ErrCodeSnapshot, err, "encode snapshot")
		observability.Canvas().OnSnapshot(ctx, 0, time.Since(start), err)
		return nil, err
	}
	d := time.Since(start)
	c.logger.Debug("snapshot captured", "bytes", buf.Len(), "duration", d)
	observability.Canvas().OnSnapshot(ctx, buf.Len(), d, nil)
	return buf.Bytes(), nil
}

// Thumbnail returns the frame scaled so its longer side is at most maxSide
// pixels. Frames already small enough are returned at full size.
func (c *Canvas) Thumbnail(maxSide int) *image.RGBA {
	src := c.SnapshotImage()
	return Fit(src, maxSide)
}

// Fit scales img down so its longer side is at most maxSide.
func Fit(img image.Image, maxSide int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSide > 0 && (w > maxSide || h > maxSide) {
		if w >= h {
			w, h = maxSide, max(1, h*maxSide/w)
		} else {
			w, h = max(1, w*maxSide/h), maxSide
		}
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// DecodePNG decodes a PNG, for example an evolve result used as backdrop.
func DecodePNG(data []byte) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "decode png")
	}
	return img, nil
}
