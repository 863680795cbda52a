// Package rtplantest builds small RT Plan records for tests.
package rtplantest

import (
	"testing"

	"github.com/matzehuels/leafshift/pkg/rtplan"
)

// Open returns leaf positions for a symmetric field: bank B at -half and
// bank A at +half.
func Open(half float64) []float64 {
	out := make([]float64, 120)
	for i := 0; i < 60; i++ {
		out[i] = -half
		out[60+i] = half
	}
	return out
}

// Inner returns a Millennium aperture that fits the HD field: pairs 10-49
// open at +/-half, the outer pairs closed at 0.
func Inner(half float64) []float64 {
	out := make([]float64, 120)
	for i := 10; i < 50; i++ {
		out[i] = -half
		out[60+i] = half
	}
	return out
}

// Closed returns leaf positions with every pair closed at x.
func Closed(x float64) []float64 {
	out := make([]float64, 120)
	for i := range out {
		out[i] = x
	}
	return out
}

// NewPlan returns an approved single-beam plan with the given MLC boundaries
// and one control point per leaves slice. The first control point carries
// jaws and table-top values.
func NewPlan(boundaries []float64, leaves ...[]float64) *rtplan.Plan {
	beam := rtplan.Beam{
		Number:                1,
		Name:                  "Field 1",
		DeviceSerialNumber:    "1111",
		TreatmentMachineName:  "OldLinac",
		NumberOfControlPoints: len(leaves),
		Boundaries:            append([]float64(nil), boundaries...),
	}
	for i, l := range leaves {
		cp := rtplan.ControlPoint{
			Index:  i,
			Leaves: append([]float64(nil), l...),
		}
		if i == 0 {
			cp.JawX = []float64{-50, 50}
			cp.JawY = []float64{-60, 60}
			cp.TableTop = rtplan.TableTop{
				Lateral:      rtplan.NumberOf(10),
				Longitudinal: rtplan.NumberOf(20.5),
				Vertical:     rtplan.NumberOf(-30),
			}
		}
		beam.ControlPoints = append(beam.ControlPoints, cp)
	}

	return &rtplan.Plan{
		Modality:          rtplan.ModalityRTPlan,
		SOPClassUID:       rtplan.RTPlanStorage,
		SOPInstanceUID:    rtplan.NewUID(),
		SeriesInstanceUID: rtplan.NewUID(),
		StudyInstanceUID:  rtplan.NewUID(),
		PatientID:         "PAT001",
		PatientName:       "Doe^Jane",
		Label:             rtplan.Text{Set: true, Value: "PLAN1"},
		ApprovalStatus:    "APPROVED",
		ReviewDate:        rtplan.Text{Set: true, Value: "20240101"},
		ReviewTime:        rtplan.Text{Set: true, Value: "120000"},
		ReviewerName:      rtplan.Text{Set: true, Value: "Smith^John"},
		ReferencedPlans: []rtplan.ReferencedPlan{
			{SOPClassUID: rtplan.RTPlanStorage, SOPInstanceUID: rtplan.NewUID()},
		},
		Beams: []rtplan.Beam{beam},
	}
}

// Encode encodes p, failing the test on error.
func Encode(tb testing.TB, p *rtplan.Plan) []byte {
	tb.Helper()
	data, err := rtplan.Encode(p)
	if err != nil {
		tb.Fatalf("encode plan: %v", err)
	}
	return data
}

// Parse decodes data, failing the test on error.
func Parse(tb testing.TB, data []byte) *rtplan.Plan {
	tb.Helper()
	p, err := rtplan.Parse(data)
	if err != nil {
		tb.Fatalf("parse plan: %v", err)
	}
	return p
}
