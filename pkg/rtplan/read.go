package rtplan

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	errs "github.com/matzehuels/leafshift/pkg/errors"
)

// Read decodes an RT Plan record from r.
func Read(r io.Reader) (*Plan, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidRecord, err, "read record")
	}
	return Parse(data)
}

// Parse decodes an RT Plan record held in memory. The returned Plan keeps a
// reference to data, which must not be modified afterwards.
func Parse(data []byte) (*Plan, error) {
	ds, err := parseDataset(data)
	if err != nil {
		return nil, err
	}

	p, err := decode(ds.Elements)
	if err != nil {
		return nil, err
	}
	p.raw = data
	return p, nil
}

func parseDataset(data []byte) (dicom.Dataset, error) {
	ds, err := dicom.Parse(bytes.NewReader(data), int64(len(data)), nil)
	if err != nil {
		return dicom.Dataset{}, errs.Wrap(errs.ErrCodeInvalidRecord, err, "parse DICOM record")
	}
	return ds, nil
}

func decode(elems []*dicom.Element) (*Plan, error) {
	p := &Plan{
		Modality:          text(elems, tag.Modality).Value,
		SOPClassUID:       text(elems, tag.SOPClassUID).Value,
		SOPInstanceUID:    text(elems, tag.SOPInstanceUID).Value,
		SeriesInstanceUID: text(elems, tag.SeriesInstanceUID).Value,
		StudyInstanceUID:  text(elems, tag.StudyInstanceUID).Value,
		PatientID:         text(elems, tag.PatientID).Value,
		PatientName:       text(elems, tag.PatientName).Value,
		Label:             text(elems, tag.RTPlanLabel),
		ApprovalStatus:    text(elems, tag.ApprovalStatus).Value,
		ReviewDate:        text(elems, tag.ReviewDate),
		ReviewTime:        text(elems, tag.ReviewTime),
		ReviewerName:      text(elems, tag.ReviewerName),
	}

	for _, item := range items(elems, tag.ReferencedRTPlanSequence) {
		p.ReferencedPlans = append(p.ReferencedPlans, ReferencedPlan{
			SOPClassUID:    text(item, tag.ReferencedSOPClassUID).Value,
			SOPInstanceUID: text(item, tag.ReferencedSOPInstanceUID).Value,
		})
	}

	for i, item := range items(elems, tag.BeamSequence) {
		b, err := decodeBeam(item)
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidRecord, err, "beam item %d", i)
		}
		p.Beams = append(p.Beams, b)
	}
	return p, nil
}

func decodeBeam(elems []*dicom.Element) (Beam, error) {
	var err error
	b := Beam{
		Name:                 text(elems, tag.BeamName).Value,
		DeviceSerialNumber:   text(elems, tag.DeviceSerialNumber).Value,
		TreatmentMachineName: text(elems, tag.TreatmentMachineName).Value,
	}
	if b.Number, err = integer(elems, tag.BeamNumber); err != nil {
		return b, err
	}
	if b.NumberOfControlPoints, err = integer(elems, tag.NumberOfControlPoints); err != nil {
		return b, err
	}

	for _, dev := range items(elems, tag.BeamLimitingDeviceSequence) {
		if deviceType(dev) != DeviceMLCX {
			continue
		}
		if b.Boundaries, err = numbers(dev, tag.LeafPositionBoundaries); err != nil {
			return b, err
		}
		if b.Boundaries == nil {
			b.Boundaries = []float64{}
		}
		break
	}

	for _, item := range items(elems, tag.ControlPointSequence) {
		cp, err := decodeControlPoint(item)
		if err != nil {
			return b, err
		}
		b.ControlPoints = append(b.ControlPoints, cp)
	}
	return b, nil
}

func decodeControlPoint(elems []*dicom.Element) (ControlPoint, error) {
	var cp ControlPoint
	var err error
	if cp.Index, err = integer(elems, tag.ControlPointIndex); err != nil {
		return cp, err
	}
	if cp.TableTop.Lateral, err = number(elems, tag.TableTopLateralPosition); err != nil {
		return cp, err
	}
	if cp.TableTop.Longitudinal, err = number(elems, tag.TableTopLongitudinalPosition); err != nil {
		return cp, err
	}
	if cp.TableTop.Vertical, err = number(elems, tag.TableTopVerticalPosition); err != nil {
		return cp, err
	}

	for _, dev := range items(elems, tag.BeamLimitingDevicePositionSequence) {
		pos, err := numbers(dev, tag.LeafJawPositions)
		if err != nil {
			return cp, err
		}
		switch deviceType(dev) {
		case DeviceMLCX:
			if pos == nil {
				pos = []float64{}
			}
			cp.Leaves = pos
		case DeviceASYMX, DeviceX:
			cp.JawX = pos
		case DeviceASYMY, DeviceY:
			cp.JawY = pos
		}
	}
	return cp, nil
}

// =============================================================================
// Element Access
// =============================================================================

func find(elems []*dicom.Element, t tag.Tag) *dicom.Element {
	for _, e := range elems {
		if e.Tag == t {
			return e
		}
	}
	return nil
}

func stringsOf(e *dicom.Element) []string {
	if e == nil || e.Value == nil {
		return nil
	}
	switch v := e.Value.GetValue().(type) {
	case []string:
		out := make([]string, 0, len(v))
		for _, s := range v {
			out = append(out, strings.TrimRight(s, " \x00"))
		}
		return out
	case []int:
		out := make([]string, len(v))
		for i, n := range v {
			out[i] = strconv.Itoa(n)
		}
		return out
	case []float64:
		out := make([]string, len(v))
		for i, f := range v {
			out[i] = formatDS(f)
		}
		return out
	}
	return nil
}

func text(elems []*dicom.Element, t tag.Tag) Text {
	e := find(elems, t)
	if e == nil {
		return Text{}
	}
	return Text{Set: true, Value: strings.Join(stringsOf(e), `\`)}
}

func numbers(elems []*dicom.Element, t tag.Tag) ([]float64, error) {
	e := find(elems, t)
	if e == nil {
		return nil, nil
	}
	raw := stringsOf(e)
	if len(raw) == 0 || (len(raw) == 1 && strings.TrimSpace(raw[0]) == "") {
		return nil, nil
	}
	out := make([]float64, len(raw))
	for i, s := range raw {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidRecord, err, "%s value %d", tagName(t), i)
		}
		out[i] = f
	}
	return out, nil
}

func number(elems []*dicom.Element, t tag.Tag) (Number, error) {
	if find(elems, t) == nil {
		return Number{}, nil
	}
	v, err := numbers(elems, t)
	if err != nil {
		return Number{}, err
	}
	if len(v) == 0 {
		return Number{Set: true, Empty: true}, nil
	}
	return Number{Set: true, Value: v[0]}, nil
}

func integer(elems []*dicom.Element, t tag.Tag) (int, error) {
	raw := stringsOf(find(elems, t))
	if len(raw) == 0 || strings.TrimSpace(raw[0]) == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw[0]))
	if err != nil {
		return 0, errs.Wrap(errs.ErrCodeInvalidRecord, err, "%s", tagName(t))
	}
	return n, nil
}

func items(elems []*dicom.Element, t tag.Tag) [][]*dicom.Element {
	e := find(elems, t)
	if e == nil || e.Value == nil {
		return nil
	}
	seq, ok := e.Value.GetValue().([]*dicom.SequenceItemValue)
	if !ok {
		return nil
	}
	out := make([][]*dicom.Element, 0, len(seq))
	for _, item := range seq {
		if el, ok := item.GetValue().([]*dicom.Element); ok {
			out = append(out, el)
		}
	}
	return out
}

func deviceType(elems []*dicom.Element) string {
	return strings.ToUpper(strings.TrimSpace(text(elems, tag.RTBeamLimitingDeviceType).Value))
}

func tagName(t tag.Tag) string {
	if info, err := tag.Find(t); err == nil {
		return info.Name
	}
	return t.String()
}

func formatDS(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
