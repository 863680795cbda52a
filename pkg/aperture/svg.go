package aperture

import (
	"bytes"
	"fmt"
	"html"
	"image/color"
)

// DefaultScale is the default number of pixels per millimetre.
const DefaultScale = 1.5

// titleMargin is the space above the plot reserved for the title (mm).
const titleMargin = 20.0

// SVGOption configures SVG rendering.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	title string
	scale float64
	grid  bool
}

// WithTitle draws a title above the plot.
func WithTitle(s string) SVGOption { return func(r *svgRenderer) { r.title = s } }

// WithScale sets the pixels per millimetre.
func WithScale(s float64) SVGOption {
	return func(r *svgRenderer) {
		if s > 0 {
			r.scale = s
		}
	}
}

// WithGrid draws a 50 mm grid behind the leaves.
func WithGrid() SVGOption { return func(r *svgRenderer) { r.grid = true } }

func newSVGRenderer(opts ...SVGOption) svgRenderer {
	r := svgRenderer{scale: DefaultScale}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// RenderSVG draws the layers in order, later layers on top.
func RenderSVG(layers []Layer, opts ...SVGOption) []byte {
	r := newSVGRenderer(opts...)

	w, h := 2*XLimit, 2*YLimit+titleMargin
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%.1f %.1f %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		-XLimit, -YLimit-titleMargin, w, h, w*r.scale, h*r.scale)
	fmt.Fprintf(&buf, `  <rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="white"/>`+"\n",
		-XLimit, -YLimit-titleMargin, w, h)

	if r.title != "" {
		fmt.Fprintf(&buf, `  <text x="0" y="%.1f" text-anchor="middle" font-family="sans-serif" font-size="11">%s</text>`+"\n",
			-YLimit-titleMargin/3, html.EscapeString(r.title))
	}

	// Plot coordinates have Y up.
	buf.WriteString(`  <g transform="scale(1,-1)">` + "\n")
	if r.grid {
		renderGrid(&buf)
	}
	for _, l := range layers {
		renderLayer(&buf, l)
	}
	buf.WriteString("  </g>\n")
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func renderGrid(buf *bytes.Buffer) {
	buf.WriteString(`    <g stroke="#e0e0e0" stroke-width="0.5">` + "\n")
	for x := -XLimit; x <= XLimit; x += 50 {
		fmt.Fprintf(buf, `      <line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>`+"\n", x, -YLimit, x, YLimit)
	}
	for y := -200.0; y <= 200; y += 50 {
		fmt.Fprintf(buf, `      <line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>`+"\n", -XLimit, y, XLimit, y)
	}
	buf.WriteString("    </g>\n")
}

func renderLayer(buf *bytes.Buffer, l Layer) {
	a := l.Aperture
	alpha := l.alpha()
	fmt.Fprintf(buf, `    <g class="aperture" data-family="%s">`+"\n", a.Family)
	for _, leaf := range a.Leaves {
		c := leaf.Corners
		fmt.Fprintf(buf, `      <polygon points="%.2f,%.2f %.2f,%.2f %.2f,%.2f %.2f,%.2f" fill="%s" fill-opacity="%.2f" stroke="%s" stroke-width="0.5" stroke-opacity="%.2f"/>`+"\n",
			c[0].X, c[0].Y, c[1].X, c[1].Y, c[2].X, c[2].Y, c[3].X, c[3].Y,
			hex(leaf.Fill), alpha*leaf.Shade, hex(colorOutline), alpha*leaf.Shade)
	}
	for _, j := range a.Jaws {
		renderLine(buf, j, alpha)
	}
	renderLine(buf, a.Axis, 1)
	buf.WriteString("    </g>\n")
}

func renderLine(buf *bytes.Buffer, ln Line, alpha float64) {
	fmt.Fprintf(buf, `      <line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-opacity="%.2f" stroke-width="1" stroke-dasharray="4 3"/>`+"\n",
		ln.From.X, ln.From.Y, ln.To.X, ln.To.Y, hex(ln.Color), alpha)
}

func hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
