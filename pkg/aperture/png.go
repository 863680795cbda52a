package aperture

import (
	"bytes"
	"image/color"

	"github.com/fogleman/gg"

	errs "github.com/matzehuels/leafshift/pkg/errors"
)

// PNGOption configures PNG rendering.
type PNGOption func(*pngRenderer)

type pngRenderer struct {
	svgRenderer
}

// WithPNGSVGOptions applies SVG options (title, scale, grid) to the PNG.
func WithPNGSVGOptions(opts ...SVGOption) PNGOption {
	return func(r *pngRenderer) {
		for _, opt := range opts {
			opt(&r.svgRenderer)
		}
	}
}

// RenderPNG rasterizes the layers with the same geometry as [RenderSVG].
func RenderPNG(layers []Layer, opts ...PNGOption) ([]byte, error) {
	r := pngRenderer{svgRenderer: newSVGRenderer()}
	for _, opt := range opts {
		opt(&r)
	}

	s := r.scale
	w, h := int(2*XLimit*s), int((2*YLimit+titleMargin)*s)
	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	if r.title != "" {
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(r.title, float64(w)/2, titleMargin*s/2, 0.5, 0.5)
	}

	// Plot origin at the centre of the plot area, Y up.
	dc.Push()
	dc.Translate(XLimit*s, (titleMargin+YLimit)*s)
	dc.Scale(s, -s)

	if r.grid {
		dc.SetRGB255(0xe0, 0xe0, 0xe0)
		dc.SetLineWidth(0.5)
		for x := -XLimit; x <= XLimit; x += 50 {
			dc.DrawLine(x, -YLimit, x, YLimit)
			dc.Stroke()
		}
		for y := -200.0; y <= 200; y += 50 {
			dc.DrawLine(-XLimit, y, XLimit, y)
			dc.Stroke()
		}
	}

	for _, l := range layers {
		drawLayer(dc, l)
	}
	dc.Pop()

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "encode png")
	}
	return buf.Bytes(), nil
}

func drawLayer(dc *gg.Context, l Layer) {
	alpha := l.alpha()
	for _, leaf := range l.Aperture.Leaves {
		a := alpha * leaf.Shade
		c := leaf.Corners
		dc.NewSubPath()
		dc.MoveTo(c[0].X, c[0].Y)
		for _, p := range c[1:] {
			dc.LineTo(p.X, p.Y)
		}
		dc.ClosePath()
		setColor(dc, leaf.Fill, a)
		dc.FillPreserve()
		setColor(dc, colorOutline, a)
		dc.SetLineWidth(0.5)
		dc.Stroke()
	}

	dc.SetDash(4, 3)
	for _, j := range l.Aperture.Jaws {
		drawLine(dc, j, alpha)
	}
	drawLine(dc, l.Aperture.Axis, 1)
	dc.SetDash()
}

func drawLine(dc *gg.Context, ln Line, alpha float64) {
	setColor(dc, ln.Color, alpha)
	dc.SetLineWidth(1)
	dc.DrawLine(ln.From.X, ln.From.Y, ln.To.X, ln.To.Y)
	dc.Stroke()
}

func setColor(dc *gg.Context, c color.RGBA, alpha float64) {
	dc.SetRGBA(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255, alpha)
}
