package i18n

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	errs "github.com/matzehuels/leafshift/pkg/errors"
)

func TestMatch(t *testing.T) {
	tr := Default()
	tests := []struct {
		in   string
		want language.Tag
	}{
		{"", Spanish},
		{"es", Spanish},
		{"en", English},
		{"en-US,en;q=0.9", English},
		{"es-AR,es;q=0.8,en;q=0.5", Spanish},
		{"fr-FR,en;q=0.5", English},
		{"de", Spanish},
		{"!!", Spanish},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tr.Match(tt.in), "Match(%q)", tt.in)
	}
}

func TestErrorFieldExceedsRange(t *testing.T) {
	tr := Default()
	err := errs.New(errs.ErrCodeFieldExceedsRange,
		"leaf %d does not match leaf %d at control point %d of beam %d", 3, 63, 0, 2)

	es := tr.Error(Spanish, err)
	assert.Equal(t, "El campo no entra en el TrueBeam 3.\nDiscrepancia encontrada: lámina 3 no coincide con lámina 63 en el punto de control 0 del haz 2", es)

	en := tr.Error(English, fmt.Errorf("convert: %w", err))
	assert.Contains(t, en, "leaf 3 does not match leaf 63 at control point 0 of beam 2")
}

func TestErrorWithoutArgs(t *testing.T) {
	tr := Default()
	err := errs.New(errs.ErrCodeNotRTPlan, "modality is %q", "CT")
	assert.Equal(t, "El archivo DICOM no es un archivo de plan de radioterapia (RTPLAN)", tr.Error(Spanish, err))
	assert.Equal(t, "The DICOM file is not a radiotherapy plan (RTPLAN)", tr.Error(English, err))
}

func TestErrorFallbacks(t *testing.T) {
	tr := Default()

	// Code outside the catalog keeps its own message.
	assert.Equal(t, "boom", tr.Error(Spanish, errs.New(errs.ErrCodeInternal, "boom")))

	// Missing details keep the original message.
	short := errs.New(errs.ErrCodeFieldExceedsRange, "leaf %d does not match leaf %d", 1, 61)
	assert.Equal(t, "leaf 1 does not match leaf 61", tr.Error(English, short))

	// Plain errors.
	assert.Equal(t, "plain", tr.Error(English, errors.New("plain")))
	assert.Equal(t, "", tr.Error(English, nil))
}

func TestWarning(t *testing.T) {
	tr := Default()
	w := errs.NewWarning(errs.ErrCodeMissingAperture, "no MLC at control point %d of beam %d", 4, 1)
	assert.Equal(t, "No existe MLC en BeamLimitingDevicePositionSequence para el punto de control 4 del haz 1", tr.Warning(Spanish, w))
	assert.Equal(t, []string{"No MLC in BeamLimitingDevicePositionSequence at control point 4 of beam 1"}, tr.Warnings(English, []errs.Warning{w}))
}

func TestText(t *testing.T) {
	tr := Default()
	assert.Equal(t, "Plan converted from Millennium to HD", tr.Text(English, "ui.converted", "Millennium", "HD"))
	assert.Equal(t, "3 advertencias", tr.Text(Spanish, "ui.warnings", 3))
	assert.Equal(t, "ui.unknown", tr.Text(English, "ui.unknown"))
	assert.True(t, tr.Has("ui.saved"))
	assert.False(t, tr.Has("ui.unknown"))
}

func TestNewRejectsBadCatalog(t *testing.T) {
	_, err := New([]byte(`[[message]]
key = "x"
args = 0
es = "hola"
`))
	require.Error(t, err)

	_, err = New([]byte(`not = [toml`))
	require.Error(t, err)
}

func TestWarningDetailsFromJSON(t *testing.T) {
	w := errs.Warning{Code: errs.ErrCodeMissingAperture, Message: "x", Details: []any{float64(2), float64(5)}}
	assert.Equal(t, "No MLC in BeamLimitingDevicePositionSequence at control point 2 of beam 5", Default().Warning(English, w))
}
