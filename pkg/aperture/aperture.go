// Package aperture turns MLC leaf and jaw positions into drawable shapes.
//
// [Build] derives one rectangle per leaf from the family's boundary table and
// the control point state: bank B leaves extend 185 mm to the left of their
// tip, bank A leaves to the right. Jaw positions become dashed lines and the
// central axis is always present. The result is plain geometry in millimetres
// (Y up); [RenderSVG] and [RenderPNG] draw one or more apertures on top of
// each other, each with its own opacity, so a source and converted field can
// be compared in one picture.
package aperture

import (
	"image/color"

	errs "github.com/matzehuels/leafshift/pkg/errors"
	"github.com/matzehuels/leafshift/pkg/mlc"
	"github.com/matzehuels/leafshift/pkg/rtplan"
)

// LeafLength is the physical length of a leaf in X (mm).
const LeafLength = 185.0

// Plot limits in mm.
const (
	XLimit = 250.0
	YLimit = 210.0
)

// Point is a position in mm.
type Point struct {
	X, Y float64
}

// Leaf is the rectangle covered by one leaf.
type Leaf struct {
	Bank    mlc.Bank
	Pair    int
	Corners [4]Point
	Fill    color.RGBA

	// Shade scales the layer opacity; bank A is drawn at half.
	Shade float64
}

// Line is a dashed reference line.
type Line struct {
	From, To Point
	Color    color.RGBA
	Label    string
}

// Aperture is the drawable outline of one control point.
type Aperture struct {
	Family mlc.Family
	Closed bool
	Leaves []Leaf
	Jaws   []Line
	Axis   Line
}

// Jaws holds the X and Y jaw pairs of a control point. Nil means absent.
type Jaws struct {
	X []float64
	Y []float64
}

var (
	colorSkyBlue    = color.RGBA{0x87, 0xce, 0xeb, 0xff}
	colorLightGreen = color.RGBA{0x90, 0xee, 0x90, 0xff}
	colorSalmon     = color.RGBA{0xfa, 0x80, 0x72, 0xff}
	colorKhaki      = color.RGBA{0xf0, 0xe6, 0x8c, 0xff}
	colorLightCoral = color.RGBA{0xf0, 0x80, 0x80, 0xff}
	colorLightPink  = color.RGBA{0xff, 0xb6, 0xc1, 0xff}
	colorJaw        = color.RGBA{0xff, 0x00, 0x00, 0xff}
	colorAxis       = color.RGBA{0x80, 0x80, 0x80, 0xff}
	colorOutline    = color.RGBA{0x00, 0x00, 0x00, 0xff}
)

// palette returns the alternating leaf colours of a family.
func palette(f mlc.Family, closed bool) [2]color.RGBA {
	switch {
	case closed:
		return [2]color.RGBA{colorLightCoral, colorLightPink}
	case f == mlc.HD:
		return [2]color.RGBA{colorSalmon, colorKhaki}
	default:
		return [2]color.RGBA{colorSkyBlue, colorLightGreen}
	}
}

// Build returns the aperture of state (120 leaf positions, bank B first) on
// an MLC of family f.
func Build(state []float64, jaws Jaws, f mlc.Family) (Aperture, error) {
	edges, err := mlc.Boundaries(f)
	if err != nil {
		return Aperture{}, err
	}
	if err := mlc.ValidateState(state); err != nil {
		return Aperture{}, err
	}
	for _, j := range [][]float64{jaws.X, jaws.Y} {
		if j != nil && len(j) != 2 {
			return Aperture{}, errs.New(errs.ErrCodeInvalidAperture, "jaw positions must come in pairs, got %d", len(j))
		}
	}

	a := build(state, edges, f, false)
	if jaws.X != nil {
		for i, x := range jaws.X {
			a.Jaws = append(a.Jaws, Line{From: Point{x, -YLimit}, To: Point{x, YLimit}, Color: colorJaw, Label: jawLabel("X", i)})
		}
	}
	if jaws.Y != nil {
		for i, y := range jaws.Y {
			a.Jaws = append(a.Jaws, Line{From: Point{-XLimit, y}, To: Point{XLimit, y}, Color: colorJaw, Label: jawLabel("Y", i)})
		}
	}
	return a, nil
}

// FromBeam builds the aperture of control point cp of b. Jaws not listed at
// cp carry over from earlier control points.
func FromBeam(b *rtplan.Beam, cp int, f mlc.Family) (Aperture, error) {
	if cp < 0 || cp >= len(b.ControlPoints) {
		return Aperture{}, errs.New(errs.ErrCodeInvalidInput, "beam %d has no control point %d", b.Number, cp)
	}
	leaves := b.ControlPoints[cp].Leaves
	if !b.ControlPoints[cp].HasLeaves() {
		return Aperture{}, errs.New(errs.ErrCodeMissingAperture,
			"no MLC positions at control point %d of beam %d", b.ControlPoints[cp].Index, b.Number)
	}
	x, y := b.JawsAt(cp)
	return Build(leaves, Jaws{X: x, Y: y}, f)
}

// Closed returns a fully closed aperture of family f. It is shown in place of
// a converted field that the target MLC cannot reproduce.
func Closed(f mlc.Family) (Aperture, error) {
	edges, err := mlc.Boundaries(f)
	if err != nil {
		return Aperture{}, err
	}
	return build(make([]float64, mlc.LeafCount), edges, f, true), nil
}

func build(state, edges []float64, f mlc.Family, closed bool) Aperture {
	colors := palette(f, closed)
	a := Aperture{
		Family: f,
		Closed: closed,
		Leaves: make([]Leaf, 0, mlc.LeafCount),
		Axis:   Line{From: Point{0, -YLimit}, To: Point{0, YLimit}, Color: colorAxis},
	}
	for _, bank := range []mlc.Bank{mlc.BankB, mlc.BankA} {
		for pair := 0; pair < mlc.PairsPerBank; pair++ {
			tip := state[bank.Leaf(pair)]
			lo, hi := edges[pair], edges[pair+1]
			back, shade := tip-LeafLength, 1.0
			if bank == mlc.BankA {
				back, shade = tip+LeafLength, 0.5
			}
			a.Leaves = append(a.Leaves, Leaf{
				Bank:    bank,
				Pair:    pair,
				Corners: [4]Point{{tip, lo}, {back, lo}, {back, hi}, {tip, hi}},
				Fill:    colors[pair%2],
				Shade:   shade,
			})
		}
	}
	return a
}

func jawLabel(axis string, i int) string {
	if i == 0 {
		return "Jaw " + axis
	}
	return ""
}

// Layer is one aperture drawn with the given opacity (0-1].
type Layer struct {
	Aperture Aperture
	Alpha    float64
}

func (l Layer) alpha() float64 {
	if l.Alpha <= 0 || l.Alpha > 1 {
		return 1
	}
	return l.Alpha
}
