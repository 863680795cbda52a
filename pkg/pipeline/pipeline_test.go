package pipeline

import (
	"bytes"
	"context"
	"image/png"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/leafshift/pkg/cache"
	errs "github.com/matzehuels/leafshift/pkg/errors"
	"github.com/matzehuels/leafshift/pkg/history"
	"github.com/matzehuels/leafshift/pkg/linac"
	"github.com/matzehuels/leafshift/pkg/mlc"
	"github.com/matzehuels/leafshift/pkg/observability"
	"github.com/matzehuels/leafshift/pkg/rtplan/rtplantest"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func millenniumRecord(t *testing.T, leaves ...[]float64) []byte {
	t.Helper()
	return rtplantest.Encode(t, rtplantest.NewPlan(mlc.MustBoundaries(mlc.Millennium), leaves...))
}

func newFileRunner(t *testing.T, opts ...Option) *Runner {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	r := NewRunner(c, nil, quietLogger(), opts...)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"svg", false},
		{"png", false},
		{"pdf", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", ContentType(FormatPNG))
	assert.Equal(t, "image/svg+xml", ContentType(FormatSVG))
}

func TestNewRunnerDefaults(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	assert.NotNil(t, r.Cache)
	assert.NotNil(t, r.Keyer)
	assert.NotNil(t, r.Logger)
	assert.Equal(t, linac.Defaults(), r.Linacs.Snapshot())
	assert.Equal(t, history.Nop{}, r.History)
	assert.Equal(t, cache.TTLConversion, r.TTL)
	assert.NoError(t, r.Close())
}

func TestConvertMillenniumToHD(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	input := millenniumRecord(t, rtplantest.Inner(20))

	res, err := r.Convert(context.Background(), input, ConvertOptions{Name: "/data/RP.T3.dcm"})
	require.NoError(t, err)

	assert.Equal(t, mlc.Millennium, res.Direction.Source)
	assert.Equal(t, mlc.HD, res.Direction.Target)
	assert.Equal(t, "RP.T3_AdaptM2HD.dcm", res.OutputName)
	assert.Equal(t, 1, res.Beams)
	assert.Equal(t, 1, res.ControlPoints)
	assert.Empty(t, res.Warnings)
	assert.False(t, res.CacheHit)
	assert.Equal(t, cache.Hash(input), res.InputHash)

	out := rtplantest.Parse(t, res.Output)
	assert.Equal(t, res.OutputUID, out.SOPInstanceUID)
	assert.Equal(t, "AdaptM2HD", out.Label.Value)
	assert.Equal(t, "UNAPPROVED", out.ApprovalStatus)
	assert.Equal(t, "TrueBeam3", out.Beams[0].TreatmentMachineName)
	assert.Equal(t, mlc.MustBoundaries(mlc.HD), out.Beams[0].Boundaries)
}

func TestConvertDefaultOutputName(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	res, err := r.Convert(context.Background(), millenniumRecord(t, rtplantest.Inner(20)), ConvertOptions{})
	require.NoError(t, err)
	assert.Equal(t, "RTPLAN_AdaptM2HD.dcm", res.OutputName)
}

func TestConvertRejections(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	tests := []struct {
		name  string
		input []byte
		code  errs.Code
	}{
		{"garbage", []byte("not a dicom file"), errs.ErrCodeInvalidRecord},
		{"field exceeds", millenniumRecord(t, rtplantest.Open(20)), errs.ErrCodeFieldExceedsRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Convert(context.Background(), tt.input, ConvertOptions{Name: "RP.dcm"})
			assert.Nil(t, res)
			assert.True(t, errs.Is(err, tt.code), "got %v", err)
		})
	}
}

func TestConvertProgress(t *testing.T) {
	ctx := context.Background()
	r := newFileRunner(t)
	input := millenniumRecord(t, rtplantest.Inner(20))

	var beams []int
	opts := ConvertOptions{Progress: func(beam, done, total int) { beams = append(beams, beam) }}
	_, err := r.Convert(ctx, input, opts)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, beams)

	res, err := r.Convert(ctx, input, opts)
	require.NoError(t, err)
	assert.True(t, res.CacheHit)
	assert.Equal(t, []int{1}, beams, "cached results report no beam progress")
}

func TestConvertCaches(t *testing.T) {
	ctx := context.Background()
	r := newFileRunner(t)
	input := millenniumRecord(t, rtplantest.Inner(20))

	first, err := r.Convert(ctx, input, ConvertOptions{Name: "RP.dcm"})
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := r.Convert(ctx, input, ConvertOptions{Name: "RP.dcm"})
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Direction, second.Direction)
	assert.Equal(t, first.OutputName, second.OutputName)

	a, b := rtplantest.Parse(t, first.Output), rtplantest.Parse(t, second.Output)
	assert.NotEqual(t, first.OutputUID, second.OutputUID)
	assert.Equal(t, second.OutputUID, b.SOPInstanceUID)
	assert.NotEqual(t, a.SOPInstanceUID, b.SOPInstanceUID)
	assert.NotEqual(t, a.SeriesInstanceUID, b.SeriesInstanceUID)
	assert.NotEqual(t, a.StudyInstanceUID, b.StudyInstanceUID)
	assert.Equal(t, a.Label, b.Label)
	assert.Equal(t, a.Beams, b.Beams)

	refreshed, err := r.Convert(ctx, input, ConvertOptions{Name: "RP.dcm", Refresh: true})
	require.NoError(t, err)
	assert.False(t, refreshed.CacheHit)
	assert.NotEqual(t, first.OutputUID, refreshed.OutputUID)
}

func TestConvertFollowsLinacUpdates(t *testing.T) {
	ctx := context.Background()
	store := linac.NewStore(linac.Defaults(), "")
	r := newFileRunner(t, WithLinacs(store))
	input := millenniumRecord(t, rtplantest.Inner(20))

	_, err := r.Convert(ctx, input, ConvertOptions{})
	require.NoError(t, err)

	_, err = store.Update(mlc.HD, linac.Machine{DeviceSerialNumber: "7001", TreatmentMachineName: "Edge1"})
	require.NoError(t, err)

	res, err := r.Convert(ctx, input, ConvertOptions{})
	require.NoError(t, err)
	assert.False(t, res.CacheHit, "a new linac configuration must not reuse cached output")

	out := rtplantest.Parse(t, res.Output)
	assert.Equal(t, "Edge1", out.Beams[0].TreatmentMachineName)
	assert.Equal(t, "7001", out.Beams[0].DeviceSerialNumber)
}

func TestConvertRecordsHistory(t *testing.T) {
	ctx := context.Background()
	h, err := history.OpenSQLite(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	r := NewRunner(nil, nil, quietLogger(), WithHistory(h))
	defer r.Close()

	_, err = r.Convert(ctx, millenniumRecord(t, rtplantest.Inner(20)), ConvertOptions{Name: "ok.dcm"})
	require.NoError(t, err)
	_, err = r.Convert(ctx, millenniumRecord(t, rtplantest.Open(20)), ConvertOptions{Name: "bad.dcm"})
	require.Error(t, err)

	entries, err := r.RecentHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	bad, ok := entries[0], entries[1]
	assert.Equal(t, "bad.dcm", bad.InputName)
	assert.False(t, bad.OK())
	assert.Equal(t, errs.ErrCodeFieldExceedsRange, bad.Code)
	assert.Empty(t, bad.Source)

	assert.Equal(t, "ok.dcm", ok.InputName)
	assert.True(t, ok.OK())
	assert.Equal(t, "Millenium", ok.Source)
	assert.Equal(t, "HD", ok.Target)
	assert.Equal(t, 1, ok.Beams)
	assert.NotEmpty(t, ok.OutputUID)
}

type countingHooks struct {
	observability.NoopConversionHooks
	starts, completes, failures int
}

func (h *countingHooks) OnConvertStart(context.Context, string, int) { h.starts++ }

func (h *countingHooks) OnConvertComplete(_ context.Context, _ string, _, _ int, _ time.Duration, err error) {
	h.completes++
	if err != nil {
		h.failures++
	}
}

func TestConvertReportsHooks(t *testing.T) {
	observability.Reset()
	defer observability.Reset()
	hooks := &countingHooks{}
	observability.SetConversionHooks(hooks)

	r := NewRunner(nil, nil, quietLogger())
	_, _ = r.Convert(context.Background(), millenniumRecord(t, rtplantest.Inner(20)), ConvertOptions{})
	_, _ = r.Convert(context.Background(), []byte("garbage"), ConvertOptions{})

	assert.Equal(t, 2, hooks.starts)
	assert.Equal(t, 2, hooks.completes)
	assert.Equal(t, 1, hooks.failures)
}

func TestApertureSource(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	res, err := r.Aperture(context.Background(), millenniumRecord(t, rtplantest.Open(20)), ApertureOptions{})
	require.NoError(t, err)

	assert.Equal(t, FormatSVG, res.Format)
	assert.Equal(t, "image/svg+xml", res.ContentType())
	assert.Equal(t, 1, res.Beam)
	assert.False(t, res.Rejected)

	svg := string(res.Data)
	assert.Equal(t, 1, strings.Count(svg, `class="aperture"`))
	assert.Contains(t, svg, `data-family="Millennium"`)
}

func TestApertureConvertedOverlay(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	res, err := r.Aperture(context.Background(), millenniumRecord(t, rtplantest.Inner(20)),
		ApertureOptions{Beam: 1, Converted: true})
	require.NoError(t, err)

	assert.False(t, res.Rejected)
	svg := string(res.Data)
	assert.Equal(t, 2, strings.Count(svg, `class="aperture"`))
	assert.Contains(t, svg, `data-family="HD"`)
	assert.Contains(t, svg, "Millennium -&gt; HD")
}

func TestApertureRejectedShowsClosed(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	res, err := r.Aperture(context.Background(), millenniumRecord(t, rtplantest.Open(20)),
		ApertureOptions{Converted: true})
	require.NoError(t, err)

	assert.True(t, res.Rejected)
	assert.True(t, errs.Is(res.Reason, errs.ErrCodeFieldExceedsRange))
	assert.Contains(t, string(res.Data), "#f08080", "closed aperture colours")
}

func TestApertureCachesRejection(t *testing.T) {
	ctx := context.Background()
	r := newFileRunner(t)
	input := millenniumRecord(t, rtplantest.Open(20))
	opts := ApertureOptions{Converted: true}

	first, err := r.Aperture(ctx, input, opts)
	require.NoError(t, err)
	second, err := r.Aperture(ctx, input, opts)
	require.NoError(t, err)

	assert.False(t, first.CacheHit)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Data, second.Data)
	assert.True(t, second.Rejected)
	assert.True(t, errs.Is(second.Reason, errs.ErrCodeFieldExceedsRange))
}

func TestAperturePNG(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	res, err := r.Aperture(context.Background(), millenniumRecord(t, rtplantest.Inner(20)),
		ApertureOptions{Format: FormatPNG, Scale: 1, Grid: true})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, 500, img.Bounds().Dx())
}

func TestApertureErrors(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	input := millenniumRecord(t, rtplantest.Inner(20))
	tests := []struct {
		name string
		opts ApertureOptions
		code errs.Code
	}{
		{"bad format", ApertureOptions{Format: "pdf"}, errs.ErrCodeInvalidFormat},
		{"unknown beam", ApertureOptions{Beam: 9}, errs.ErrCodeNotFound},
		{"control point out of range", ApertureOptions{ControlPoint: 3}, errs.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Aperture(context.Background(), input, tt.opts)
			assert.True(t, errs.Is(err, tt.code), "got %v", err)
		})
	}
}
