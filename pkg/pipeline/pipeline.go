// Package pipeline provides the conversion pipeline shared by the CLI and
// the HTTP server.
//
// A [Runner] takes the raw bytes of an RT Plan record and returns the bytes
// of the converted record. Around the conversion itself it looks up and
// stores results in a [cache.Cache], records every attempt in a
// [history.Store] and reports events to the registered observability hooks.
// Centralizing this keeps both entry points consistent.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger, pipeline.WithLinacs(store))
//	res, err := runner.Convert(ctx, data, pipeline.ConvertOptions{Name: "RP.T3.dcm"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile(res.OutputName, res.Output, 0644)
//
// Aperture previews go through the same runner:
//
//	img, err := runner.Aperture(ctx, data, pipeline.ApertureOptions{
//	    Beam:      1,
//	    Format:    pipeline.FormatSVG,
//	    Converted: true,
//	})
package pipeline

import (
	"time"

	"github.com/matzehuels/leafshift/pkg/convert"
	errs "github.com/matzehuels/leafshift/pkg/errors"
)

// Format constants for aperture images.
const (
	FormatSVG = "svg"
	FormatPNG = "png"
)

// ValidFormats is the set of supported aperture image formats.
var ValidFormats = map[string]bool{
	FormatSVG: true,
	FormatPNG: true,
}

// ValidateFormat checks that format is a supported image format.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errs.New(errs.ErrCodeInvalidFormat, "invalid format %q: must be svg or png", format)
	}
	return nil
}

// ContentType returns the MIME type of an image format.
func ContentType(format string) string {
	if format == FormatPNG {
		return "image/png"
	}
	return "image/svg+xml"
}

// =============================================================================
// Conversion
// =============================================================================

// ConvertOptions configures one conversion.
type ConvertOptions struct {
	// Name is the input file name. It is used for the output name and the
	// history entry; it is never opened.
	Name string

	// Refresh skips the cache lookup.
	Refresh bool

	// Progress, when set, is called after each converted beam. It is not
	// called for results served from the cache.
	Progress convert.ProgressFunc
}

// Result is a converted record.
type Result struct {
	// Output is the encoded converted record.
	Output []byte

	// OutputName is the suggested file name for Output.
	OutputName string

	Direction     convert.Direction
	Beams         int
	ControlPoints int
	Warnings      []errs.Warning

	// OutputUID is the SOPInstanceUID of the converted record.
	OutputUID string

	// InputHash is the SHA-256 digest of the input bytes.
	InputHash string

	CacheHit bool
	Duration time.Duration
}

// cachedResult is the cache representation of a Result.
type cachedResult struct {
	Output        []byte            `json:"output"`
	Direction     convert.Direction `json:"direction"`
	Beams         int               `json:"beams"`
	ControlPoints int               `json:"control_points"`
	Warnings      []errs.Warning    `json:"warnings,omitempty"`
	OutputUID     string            `json:"output_uid"`
}

// =============================================================================
// Aperture preview
// =============================================================================

// Opacities of the source and converted layers of an overlay.
const (
	SourceAlpha    = 0.35
	ConvertedAlpha = 0.8
)

// ApertureOptions selects and styles one aperture image.
type ApertureOptions struct {
	// Beam is the beam number. Zero selects the first beam.
	Beam int

	// ControlPoint is the position in the beam's control point sequence.
	ControlPoint int

	// Format is svg (default) or png.
	Format string

	// Converted overlays the converted aperture on the source one. When the
	// plan cannot be converted a closed aperture of the target family is
	// drawn instead.
	Converted bool

	Scale float64
	Grid  bool
}

// ApertureResult is a rendered aperture image.
type ApertureResult struct {
	Data   []byte
	Format string

	Direction convert.Direction
	Beam      int

	// Rejected is set when a converted overlay was requested but the
	// target MLC cannot reproduce the field. Reason holds the rejection.
	Rejected bool
	Reason   error

	CacheHit bool
}

// ContentType returns the MIME type of the image.
func (r *ApertureResult) ContentType() string {
	return ContentType(r.Format)
}
