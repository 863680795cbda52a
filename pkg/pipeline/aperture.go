package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/matzehuels/leafshift/pkg/aperture"
	"github.com/matzehuels/leafshift/pkg/cache"
	"github.com/matzehuels/leafshift/pkg/convert"
	errs "github.com/matzehuels/leafshift/pkg/errors"
	"github.com/matzehuels/leafshift/pkg/observability"
	"github.com/matzehuels/leafshift/pkg/rtplan"
)

type cachedAperture struct {
	Data      []byte            `json:"data"`
	Direction convert.Direction `json:"direction"`
	Beam      int               `json:"beam"`
	Rejected  bool              `json:"rejected,omitempty"`
	Reason    *cachedReason     `json:"reason,omitempty"`
}

type cachedReason struct {
	Code    errs.Code `json:"code"`
	Message string    `json:"message"`
	Details []any     `json:"details,omitempty"`
}

// Aperture renders the MLC aperture of one control point of the plan in
// input, optionally overlaid with its converted counterpart.
func (r *Runner) Aperture(ctx context.Context, input []byte, opts ApertureOptions) (*ApertureResult, error) {
	start := time.Now()
	res, err := r.apertureWithCache(ctx, input, opts)
	observability.Conversion().OnRenderComplete(ctx, opts.Format, time.Since(start), err)
	return res, err
}

func (r *Runner) apertureWithCache(ctx context.Context, input []byte, opts ApertureOptions) (*ApertureResult, error) {
	if opts.Format == "" {
		opts.Format = FormatSVG
	}
	if err := ValidateFormat(opts.Format); err != nil {
		return nil, err
	}

	plan, err := rtplan.Parse(input)
	if err != nil {
		return nil, err
	}
	dir, err := convert.Identify(plan)
	if err != nil {
		return nil, err
	}
	idx, err := selectBeam(plan, opts.Beam)
	if err != nil {
		return nil, err
	}
	beam := &plan.Beams[idx]

	snapshot := r.Linacs.Snapshot()
	keyOpts := cache.ApertureKeyOpts{
		Beam:         beam.Number,
		ControlPoint: opts.ControlPoint,
		Format:       opts.Format,
		Converted:    opts.Converted,
		Scale:        opts.Scale,
		Grid:         opts.Grid,
	}
	if opts.Converted {
		if keyOpts.LinacHash, err = hashLinacs(snapshot); err != nil {
			return nil, err
		}
	}
	key := r.Keyer.ApertureKey(cache.Hash(input), keyOpts)

	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		var cached cachedAperture
		if err := json.Unmarshal(data, &cached); err == nil {
			observability.Cache().OnCacheHit(ctx, "aperture")
			res := &ApertureResult{
				Data:      cached.Data,
				Format:    opts.Format,
				Direction: cached.Direction,
				Beam:      cached.Beam,
				Rejected:  cached.Rejected,
				CacheHit:  true,
			}
			if cached.Reason != nil {
				res.Reason = &errs.Error{Code: cached.Reason.Code, Message: cached.Reason.Message, Details: cached.Reason.Details}
			}
			return res, nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, "aperture")

	src, err := aperture.FromBeam(beam, opts.ControlPoint, dir.Source)
	if err != nil {
		return nil, err
	}

	res := &ApertureResult{Format: opts.Format, Direction: dir, Beam: beam.Number}
	layers := []aperture.Layer{{Aperture: src, Alpha: 1}}
	title := fmt.Sprintf("Beam %d %s, control point %d, %s", beam.Number, beam.Name, opts.ControlPoint, dir.Source)

	if opts.Converted {
		layers[0].Alpha = SourceAlpha
		title = fmt.Sprintf("Beam %d %s, control point %d, %s", beam.Number, beam.Name, opts.ControlPoint, dir)

		converted, cerr := convert.New(snapshot, r.Logger).Convert(ctx, plan)
		switch {
		case cerr == nil:
			dst, err := aperture.FromBeam(&converted.Plan.Beams[idx], opts.ControlPoint, dir.Target)
			if err != nil {
				return nil, err
			}
			layers = append(layers, aperture.Layer{Aperture: dst, Alpha: ConvertedAlpha})
		case errs.IsPlanError(cerr):
			closed, err := aperture.Closed(dir.Target)
			if err != nil {
				return nil, err
			}
			layers = append(layers, aperture.Layer{Aperture: closed, Alpha: ConvertedAlpha})
			res.Rejected, res.Reason = true, cerr
			r.Logger.Debug("conversion rejected, drawing closed aperture", "beam", beam.Number, "error", cerr)
		default:
			return nil, cerr
		}
	}

	svgOpts := []aperture.SVGOption{aperture.WithTitle(title), aperture.WithScale(opts.Scale)}
	if opts.Grid {
		svgOpts = append(svgOpts, aperture.WithGrid())
	}
	if opts.Format == FormatPNG {
		res.Data, err = aperture.RenderPNG(layers, aperture.WithPNGSVGOptions(svgOpts...))
		if err != nil {
			return nil, err
		}
	} else {
		res.Data = aperture.RenderSVG(layers, svgOpts...)
	}

	cached := cachedAperture{Data: res.Data, Direction: res.Direction, Beam: res.Beam, Rejected: res.Rejected}
	if res.Reason != nil {
		cached.Reason = &cachedReason{Code: errs.GetCode(res.Reason), Message: errs.UserMessage(res.Reason)}
		var e *errs.Error
		if errors.As(res.Reason, &e) {
			cached.Reason.Details = e.Details
		}
	}
	if data, err := json.Marshal(cached); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLAperture); err == nil {
			observability.Cache().OnCacheSet(ctx, "aperture", len(data))
		}
	}
	return res, nil
}

// selectBeam returns the index of the beam with the given number, or of the
// first beam when number is zero.
func selectBeam(p *rtplan.Plan, number int) (int, error) {
	if len(p.Beams) == 0 {
		return 0, errs.New(errs.ErrCodeInvalidInput, "plan has no beams")
	}
	if number == 0 {
		return 0, nil
	}
	for i := range p.Beams {
		if p.Beams[i].Number == number {
			return i, nil
		}
	}
	return 0, errs.New(errs.ErrCodeNotFound, "beam %d not found", number)
}
