// Package convert rewrites an RT Plan from one MLC family to the other.
//
// A conversion identifies the source collimator from the first leaf boundary
// of the first beam, then for every beam sets the target machine identity,
// replaces the boundary table and remaps the leaf positions of each effective
// control point. Finally the plan is marked unapproved, its review fields are
// cleared, the study, series and instance UIDs are regenerated and the label
// records the conversion direction.
//
// The input plan is never modified: [Converter.Convert] works on a deep copy
// and returns nothing but an error when any control point is rejected.
//
//	conv := convert.New(linac.Defaults(), logger)
//	res, err := conv.Convert(ctx, plan)
//	if err != nil {
//	    return err
//	}
//	for _, w := range res.Warnings {
//	    logger.Warn(w.Message)
//	}
package convert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/leafshift/pkg/errors"
	"github.com/matzehuels/leafshift/pkg/linac"
	"github.com/matzehuels/leafshift/pkg/mlc"
	"github.com/matzehuels/leafshift/pkg/rtplan"
)

// ApprovalUnapproved is written to converted plans.
const ApprovalUnapproved = "UNAPPROVED"

// Direction is the pair of collimator families involved in a conversion.
type Direction struct {
	Source mlc.Family `json:"source"`
	Target mlc.Family `json:"target"`
}

// Label returns the RTPlanLabel written to converted plans.
func (d Direction) Label() string {
	if d.Source == mlc.HD {
		return "AdaptHD2M"
	}
	return "AdaptM2HD"
}

func (d Direction) String() string {
	return fmt.Sprintf("%s -> %s", d.Source, d.Target)
}

// Result is a converted plan.
type Result struct {
	Plan      *rtplan.Plan
	Direction Direction

	// ControlPoints counts the control points whose leaves were remapped.
	ControlPoints int

	Warnings []errs.Warning
}

// Converter converts plans using a fixed linac configuration.
// It holds no mutable state and may be shared between goroutines.
type Converter struct {
	linacs   linac.Config
	logger   *log.Logger
	newUID   func() string
	progress ProgressFunc
}

// ProgressFunc is called after each beam with the beam number and how many
// of total beams are done.
type ProgressFunc func(beam, done, total int)

// Option configures a Converter.
type Option func(*Converter)

// WithProgress reports per-beam progress to fn.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Converter) {
		if fn != nil {
			c.progress = fn
		}
	}
}

// New returns a Converter that writes the machine identities in linacs.
// A nil logger uses log.Default().
func New(linacs linac.Config, logger *log.Logger, opts ...Option) *Converter {
	if logger == nil {
		logger = log.Default()
	}
	c := &Converter{
		linacs:   linacs,
		logger:   logger,
		newUID:   rtplan.NewUID,
		progress: func(int, int, int) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EffectiveControlPoints returns how many control points of a beam are
// converted. A beam declaring exactly two control points is a static field
// whose second point repeats the first, so only one is processed. A missing
// declaration falls back to the listed control points, and the result never
// exceeds them.
func EffectiveControlPoints(b *rtplan.Beam) int {
	n := b.NumberOfControlPoints
	if n <= 0 {
		n = len(b.ControlPoints)
	}
	if n == 2 {
		n = 1
	}
	if n > len(b.ControlPoints) {
		n = len(b.ControlPoints)
	}
	return n
}

// Identify returns the conversion direction for p.
func Identify(p *rtplan.Plan) (Direction, error) {
	if !p.IsRTPlan() {
		return Direction{}, errs.New(errs.ErrCodeNotRTPlan, "modality is %q", p.Modality)
	}
	first, ok := p.FirstBoundary()
	if !ok {
		return Direction{}, errs.New(errs.ErrCodeUnidentifiableFamily, "first beam has no MLC leaf boundaries")
	}
	src, ok := mlc.Identify(first)
	if !ok {
		return Direction{}, errs.New(errs.ErrCodeUnidentifiableFamily, "first leaf boundary %g matches no known MLC", first)
	}
	return Direction{Source: src, Target: src.Target()}, nil
}

// Convert returns a converted copy of p. The conversion runs to completion
// once started; ctx is not consulted between beams.
func (c *Converter) Convert(_ context.Context, p *rtplan.Plan) (*Result, error) {
	start := time.Now()

	dir, err := Identify(p)
	if err != nil {
		return nil, err
	}
	machine, err := c.linacs.Machine(dir.Target)
	if err != nil {
		return nil, err
	}
	boundaries := mlc.MustBoundaries(dir.Target)

	out := p.Clone()
	res := &Result{Plan: out, Direction: dir}

	for bi := range out.Beams {
		b := &out.Beams[bi]
		b.DeviceSerialNumber = machine.DeviceSerialNumber
		b.TreatmentMachineName = machine.TreatmentMachineName

		if b.HasMLC() {
			b.Boundaries = append([]float64(nil), boundaries...)
		} else {
			res.Warnings = append(res.Warnings,
				errs.NewWarning(errs.ErrCodeMissingCollimator, "beam %d has no MLC device", b.Number))
		}

		n := EffectiveControlPoints(b)
		for ci := 0; ci < n; ci++ {
			cp := &b.ControlPoints[ci]
			cp.TableTop.Clear()

			if !cp.HasLeaves() {
				w := errs.NewWarning(errs.ErrCodeMissingAperture,
					"no MLC positions at control point %d of beam %d", cp.Index, b.Number)
				res.Warnings = append(res.Warnings, w)
				c.logger.Warn("control point without MLC positions", "beam", b.Number, "cp", cp.Index)
				continue
			}

			leaves, err := remap(dir, cp.Leaves)
			if err != nil {
				return nil, withContext(err, b.Number, cp.Index)
			}
			cp.Leaves = leaves
			res.ControlPoints++
		}
		c.logger.Debug("converted beam", "beam", b.Number, "cps", n)
		c.progress(b.Number, bi+1, len(out.Beams))
	}

	finalize(out, dir, c.newUID)

	c.logger.Info("converted plan",
		"direction", dir.String(),
		"beams", len(out.Beams),
		"cps", res.ControlPoints,
		"warnings", len(res.Warnings),
		"duration", time.Since(start))
	return res, nil
}

func remap(dir Direction, leaves []float64) ([]float64, error) {
	if dir.Source == mlc.Millennium {
		if err := mlc.CheckFitsHD(leaves); err != nil {
			return nil, err
		}
		return mlc.ToHD(leaves)
	}
	return mlc.ToMillennium(leaves)
}

// withContext adds the beam and control point to remap errors. Field range
// errors are rebuilt so their Details read (leaf, opposite, cp, beam).
func withContext(err error, beam, cp int) error {
	var e *errs.Error
	if errs.Is(err, errs.ErrCodeFieldExceedsRange) && errors.As(err, &e) && len(e.Details) >= 2 {
		return errs.New(errs.ErrCodeFieldExceedsRange,
			"leaf %d does not match leaf %d at control point %d of beam %d",
			e.Details[0], e.Details[1], cp, beam)
	}
	return fmt.Errorf("beam %d control point %d: %w", beam, cp, err)
}

// Reidentify gives p new study, series and instance UIDs. Every conversion
// result handed out must carry its own, including one served from a cache.
func (c *Converter) Reidentify(p *rtplan.Plan) {
	reidentify(p, c.newUID)
}

func reidentify(p *rtplan.Plan, newUID func() string) {
	p.SOPInstanceUID = newUID()
	p.SeriesInstanceUID = newUID()
	p.StudyInstanceUID = newUID()
}

func finalize(p *rtplan.Plan, dir Direction, newUID func() string) {
	p.ApprovalStatus = ApprovalUnapproved
	p.ReviewDate.Clear()
	p.ReviewTime.Clear()
	p.ReviewerName.Clear()

	reidentify(p, newUID)

	if p.Label.Set {
		p.Label.Value = dir.Label()
	}
	p.ReferencedPlans = nil
}
