// Package rtplan reads and writes the parts of a DICOM RT Plan that a
// collimator conversion touches.
//
// [Read] decodes the record into a [Plan]. The Plan keeps the original bytes,
// so [Encode] re-reads them and writes back only the modelled attributes;
// every other attribute is emitted unchanged. Plans built in memory (no
// original bytes) are encoded from scratch with a minimal file meta group.
//
// MLC data is located by RTBeamLimitingDeviceType ("MLCX"), not by position
// in the device sequences. Jaws are read from the ASYMX/X and ASYMY/Y items.
package rtplan

// Modality of an RT Plan record.
const ModalityRTPlan = "RTPLAN"

// RTPlanStorage is the RT Plan Storage SOP class.
const RTPlanStorage = "1.2.840.10008.5.1.4.1.1.481.5"

// Device types in BeamLimitingDeviceSequence.
const (
	DeviceMLCX  = "MLCX"
	DeviceASYMX = "ASYMX"
	DeviceASYMY = "ASYMY"
	DeviceX     = "X"
	DeviceY     = "Y"
)

// Text is an optional string attribute. Set is false when the attribute is
// absent from the record.
type Text struct {
	Set   bool
	Value string
}

// Clear empties the attribute if it is present.
func (t *Text) Clear() {
	if t.Set {
		t.Value = ""
	}
}

// Number is an optional decimal-string attribute. Set is false when the
// attribute is absent; Empty marks an attribute present without a value.
type Number struct {
	Set   bool
	Empty bool
	Value float64
}

// Clear empties the attribute if it is present.
func (n *Number) Clear() {
	if n.Set {
		n.Empty = true
		n.Value = 0
	}
}

// NumberOf returns a present Number holding v.
func NumberOf(v float64) Number {
	return Number{Set: true, Value: v}
}

// TableTop holds the table-top position of a control point.
type TableTop struct {
	Lateral      Number
	Longitudinal Number
	Vertical     Number
}

// Clear empties every present table-top attribute.
func (t *TableTop) Clear() {
	t.Lateral.Clear()
	t.Longitudinal.Clear()
	t.Vertical.Clear()
}

// ControlPoint is one control point of a beam.
type ControlPoint struct {
	Index    int
	TableTop TableTop

	// Leaves holds the MLC positions, bank B then bank A. Nil when the
	// control point has no MLC item, empty when the item lists no positions.
	Leaves []float64

	// JawX and JawY hold the two jaw positions, nil when absent.
	JawX []float64
	JawY []float64
}

// HasLeaves reports whether the control point carries MLC positions.
func (cp *ControlPoint) HasLeaves() bool {
	return len(cp.Leaves) > 0
}

// Beam is one treatment beam.
type Beam struct {
	Number int
	Name   string

	DeviceSerialNumber   string
	TreatmentMachineName string

	// NumberOfControlPoints is the declared count, which may differ from
	// len(ControlPoints).
	NumberOfControlPoints int

	// Boundaries holds the MLC leaf boundaries. Nil when the beam declares
	// no MLC device.
	Boundaries []float64

	ControlPoints []ControlPoint
}

// HasMLC reports whether the beam declares an MLC device.
func (b *Beam) HasMLC() bool {
	return b.Boundaries != nil
}

// JawsAt returns the jaw positions in effect at control point i. Jaws not
// listed at i carry over from the nearest earlier control point.
func (b *Beam) JawsAt(i int) (x, y []float64) {
	if i >= len(b.ControlPoints) {
		i = len(b.ControlPoints) - 1
	}
	for j := i; j >= 0 && (x == nil || y == nil); j-- {
		cp := b.ControlPoints[j]
		if x == nil && cp.JawX != nil {
			x = cp.JawX
		}
		if y == nil && cp.JawY != nil {
			y = cp.JawY
		}
	}
	return x, y
}

// ReferencedPlan is one item of ReferencedRTPlanSequence.
type ReferencedPlan struct {
	SOPClassUID    string
	SOPInstanceUID string
}

// Plan is the modelled subset of an RT Plan record.
type Plan struct {
	Modality    string
	SOPClassUID string

	SOPInstanceUID    string
	SeriesInstanceUID string
	StudyInstanceUID  string

	PatientID   string
	PatientName string

	Label          Text
	ApprovalStatus string
	ReviewDate     Text
	ReviewTime     Text
	ReviewerName   Text

	ReferencedPlans []ReferencedPlan

	Beams []Beam

	raw []byte
}

// IsRTPlan reports whether the modality is RTPLAN.
func (p *Plan) IsRTPlan() bool {
	return p.Modality == ModalityRTPlan
}

// FirstBoundary returns the first MLC leaf boundary of the first beam.
func (p *Plan) FirstBoundary() (float64, bool) {
	if len(p.Beams) == 0 || len(p.Beams[0].Boundaries) == 0 {
		return 0, false
	}
	return p.Beams[0].Boundaries[0], true
}

// Beam returns the beam with the given number.
func (p *Plan) Beam(number int) (*Beam, bool) {
	for i := range p.Beams {
		if p.Beams[i].Number == number {
			return &p.Beams[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy of p. The original record bytes are shared, as
// they are never modified.
func (p *Plan) Clone() *Plan {
	c := *p
	c.ReferencedPlans = append([]ReferencedPlan(nil), p.ReferencedPlans...)
	c.Beams = make([]Beam, len(p.Beams))
	for i, b := range p.Beams {
		nb := b
		nb.Boundaries = cloneFloats(b.Boundaries)
		nb.ControlPoints = make([]ControlPoint, len(b.ControlPoints))
		for j, cp := range b.ControlPoints {
			ncp := cp
			ncp.Leaves = cloneFloats(cp.Leaves)
			ncp.JawX = cloneFloats(cp.JawX)
			ncp.JawY = cloneFloats(cp.JawY)
			nb.ControlPoints[j] = ncp
		}
		c.Beams[i] = nb
	}
	return &c
}

func cloneFloats(v []float64) []float64 {
	if v == nil {
		return nil
	}
	return append([]float64(nil), v...)
}
