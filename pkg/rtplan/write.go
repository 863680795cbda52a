package rtplan

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	errs "github.com/matzehuels/leafshift/pkg/errors"
)

// ExplicitVRLittleEndian is the transfer syntax used for plans built in memory.
const ExplicitVRLittleEndian = "1.2.840.10008.1.2.1"

// Encode returns p as a DICOM Part 10 file.
func Encode(p *Plan) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write writes p to w as a DICOM Part 10 file. Attributes that are not
// modelled by Plan, and modelled attributes whose value did not change, are
// written exactly as read.
func Write(w io.Writer, p *Plan) error {
	var ds dicom.Dataset
	if p.raw != nil {
		parsed, err := parseDataset(p.raw)
		if err != nil {
			return err
		}
		ds = parsed
	} else {
		meta, err := newMeta(p)
		if err != nil {
			return err
		}
		ds.Elements = meta
	}

	if err := applyPlan(&ds.Elements, p); err != nil {
		return err
	}

	if err := dicom.Write(w, ds, dicom.SkipVRVerification(), dicom.SkipValueTypeVerification()); err != nil {
		return errs.Wrap(errs.ErrCodeInternal, err, "write DICOM record")
	}
	return nil
}

func newMeta(p *Plan) ([]*dicom.Element, error) {
	class := p.SOPClassUID
	if class == "" {
		class = RTPlanStorage
	}
	var out []*dicom.Element
	for _, m := range []struct {
		t    tag.Tag
		data any
	}{
		{tag.FileMetaInformationVersion, []byte{0x00, 0x01}},
		{tag.MediaStorageSOPClassUID, []string{class}},
		{tag.MediaStorageSOPInstanceUID, []string{p.SOPInstanceUID}},
		{tag.TransferSyntaxUID, []string{ExplicitVRLittleEndian}},
	} {
		e, err := dicom.NewElement(m.t, m.data)
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInternal, err, "build file meta")
		}
		out = append(out, e)
	}
	return out, nil
}

// =============================================================================
// Plan Level
// =============================================================================

func applyPlan(list *[]*dicom.Element, p *Plan) error {
	class := p.SOPClassUID
	if class == "" && p.raw == nil {
		class = RTPlanStorage
	}
	texts := []struct {
		t tag.Tag
		v Text
	}{
		{tag.Modality, present(p.Modality)},
		{tag.SOPClassUID, present(class)},
		{tag.SOPInstanceUID, present(p.SOPInstanceUID)},
		{tag.SeriesInstanceUID, present(p.SeriesInstanceUID)},
		{tag.StudyInstanceUID, present(p.StudyInstanceUID)},
		{tag.PatientID, present(p.PatientID)},
		{tag.PatientName, present(p.PatientName)},
		{tag.RTPlanLabel, p.Label},
		{tag.ApprovalStatus, present(p.ApprovalStatus)},
		{tag.ReviewDate, p.ReviewDate},
		{tag.ReviewTime, p.ReviewTime},
		{tag.ReviewerName, p.ReviewerName},
	}
	for _, f := range texts {
		if !f.v.Set {
			continue
		}
		if _, err := putStrings(list, f.t, []string{f.v.Value}); err != nil {
			return err
		}
	}

	if p.SOPInstanceUID != "" && find(*list, tag.MediaStorageSOPInstanceUID) != nil {
		if _, err := putStrings(list, tag.MediaStorageSOPInstanceUID, []string{p.SOPInstanceUID}); err != nil {
			return err
		}
	}

	if err := applyReferencedPlans(list, p.ReferencedPlans); err != nil {
		return err
	}

	beams := items(*list, tag.BeamSequence)
	if find(*list, tag.BeamSequence) == nil {
		if len(p.Beams) == 0 {
			return nil
		}
		beams = make([][]*dicom.Element, len(p.Beams))
	}
	if len(beams) != len(p.Beams) {
		return errs.New(errs.ErrCodeInternal, "plan has %d beams but record has %d", len(p.Beams), len(beams))
	}

	rebuild := find(*list, tag.BeamSequence) == nil
	for i := range p.Beams {
		changed, err := applyBeam(&beams[i], &p.Beams[i])
		if err != nil {
			return fmt.Errorf("beam %d: %w", p.Beams[i].Number, err)
		}
		rebuild = rebuild || changed
	}
	if rebuild {
		return setSequence(list, tag.BeamSequence, beams)
	}
	return nil
}

func applyReferencedPlans(list *[]*dicom.Element, refs []ReferencedPlan) error {
	if len(refs) == 0 {
		remove(list, tag.ReferencedRTPlanSequence)
		return nil
	}
	if find(*list, tag.ReferencedRTPlanSequence) != nil && len(items(*list, tag.ReferencedRTPlanSequence)) == len(refs) {
		return nil
	}
	seq := make([][]*dicom.Element, len(refs))
	for i, r := range refs {
		if _, err := putStrings(&seq[i], tag.ReferencedSOPClassUID, []string{r.SOPClassUID}); err != nil {
			return err
		}
		if _, err := putStrings(&seq[i], tag.ReferencedSOPInstanceUID, []string{r.SOPInstanceUID}); err != nil {
			return err
		}
	}
	return setSequence(list, tag.ReferencedRTPlanSequence, seq)
}

// =============================================================================
// Beam Level
// =============================================================================

// applyBeam writes b into the beam item. It reports whether elements were
// added to the item.
func applyBeam(item *[]*dicom.Element, b *Beam) (bool, error) {
	changed := false
	mark := func(c bool, err error) error {
		changed = changed || c
		return err
	}

	if err := mark(putStrings(item, tag.BeamNumber, []string{strconv.Itoa(b.Number)})); err != nil {
		return false, err
	}
	for _, f := range []struct {
		t tag.Tag
		v string
	}{
		{tag.BeamName, b.Name},
		{tag.DeviceSerialNumber, b.DeviceSerialNumber},
		{tag.TreatmentMachineName, b.TreatmentMachineName},
	} {
		if f.v == "" {
			continue
		}
		if err := mark(putStrings(item, f.t, []string{f.v})); err != nil {
			return false, err
		}
	}
	if b.NumberOfControlPoints > 0 || find(*item, tag.NumberOfControlPoints) != nil {
		if err := mark(putStrings(item, tag.NumberOfControlPoints, []string{strconv.Itoa(b.NumberOfControlPoints)})); err != nil {
			return false, err
		}
	}

	if err := mark(applyDevices(item, b)); err != nil {
		return false, err
	}

	cps := items(*item, tag.ControlPointSequence)
	created := find(*item, tag.ControlPointSequence) == nil
	if created {
		if len(b.ControlPoints) == 0 {
			return changed, nil
		}
		cps = make([][]*dicom.Element, len(b.ControlPoints))
	}
	if len(cps) != len(b.ControlPoints) {
		return false, errs.New(errs.ErrCodeInternal, "beam has %d control points but record has %d", len(b.ControlPoints), len(cps))
	}
	rebuild := created
	for i := range b.ControlPoints {
		c, err := applyControlPoint(&cps[i], &b.ControlPoints[i])
		if err != nil {
			return false, fmt.Errorf("control point %d: %w", b.ControlPoints[i].Index, err)
		}
		rebuild = rebuild || c
	}
	if rebuild {
		if err := setSequence(item, tag.ControlPointSequence, cps); err != nil {
			return false, err
		}
		changed = changed || created
	}
	return changed, nil
}

// applyDevices writes the MLC boundaries into BeamLimitingDeviceSequence,
// creating the sequence (jaws plus MLC) for plans built in memory.
func applyDevices(item *[]*dicom.Element, b *Beam) (bool, error) {
	if b.Boundaries == nil {
		return false, nil
	}

	devs := items(*item, tag.BeamLimitingDeviceSequence)
	created := find(*item, tag.BeamLimitingDeviceSequence) == nil
	if created {
		for _, typ := range []string{DeviceASYMX, DeviceASYMY} {
			var dev []*dicom.Element
			if _, err := putStrings(&dev, tag.RTBeamLimitingDeviceType, []string{typ}); err != nil {
				return false, err
			}
			if _, err := putStrings(&dev, tag.NumberOfLeafJawPairs, []string{"1"}); err != nil {
				return false, err
			}
			devs = append(devs, dev)
		}
	}

	idx := -1
	for i, dev := range devs {
		if deviceType(dev) == DeviceMLCX {
			idx = i
			break
		}
	}
	rebuild := created
	if idx < 0 {
		var dev []*dicom.Element
		if _, err := putStrings(&dev, tag.RTBeamLimitingDeviceType, []string{DeviceMLCX}); err != nil {
			return false, err
		}
		pairs := len(b.Boundaries) - 1
		if pairs < 0 {
			pairs = 0
		}
		if _, err := putStrings(&dev, tag.NumberOfLeafJawPairs, []string{strconv.Itoa(pairs)}); err != nil {
			return false, err
		}
		devs = append(devs, dev)
		idx = len(devs) - 1
		rebuild = true
	}

	c, err := putNumbers(&devs[idx], tag.LeafPositionBoundaries, b.Boundaries)
	if err != nil {
		return false, err
	}
	if rebuild || c {
		if err := setSequence(item, tag.BeamLimitingDeviceSequence, devs); err != nil {
			return false, err
		}
	}
	return created, nil
}

// =============================================================================
// Control Point Level
// =============================================================================

func applyControlPoint(item *[]*dicom.Element, cp *ControlPoint) (bool, error) {
	changed := false

	c, err := putStrings(item, tag.ControlPointIndex, []string{strconv.Itoa(cp.Index)})
	if err != nil {
		return false, err
	}
	changed = changed || c

	for _, f := range []struct {
		t tag.Tag
		v Number
	}{
		{tag.TableTopLateralPosition, cp.TableTop.Lateral},
		{tag.TableTopLongitudinalPosition, cp.TableTop.Longitudinal},
		{tag.TableTopVerticalPosition, cp.TableTop.Vertical},
	} {
		if !f.v.Set {
			continue
		}
		if f.v.Empty {
			c, err = putStrings(item, f.t, nil)
		} else {
			c, err = putNumbers(item, f.t, []float64{f.v.Value})
		}
		if err != nil {
			return false, err
		}
		changed = changed || c
	}

	positions := []struct {
		types []string
		v     []float64
	}{
		{[]string{DeviceASYMX, DeviceX}, cp.JawX},
		{[]string{DeviceASYMY, DeviceY}, cp.JawY},
		{[]string{DeviceMLCX}, cp.Leaves},
	}

	devs := items(*item, tag.BeamLimitingDevicePositionSequence)
	created := find(*item, tag.BeamLimitingDevicePositionSequence) == nil
	rebuild := false
	for _, pos := range positions {
		if pos.v == nil {
			continue
		}
		idx := -1
		for i, dev := range devs {
			if containsString(pos.types, deviceType(dev)) {
				idx = i
				break
			}
		}
		if idx < 0 {
			var dev []*dicom.Element
			if _, err := putStrings(&dev, tag.RTBeamLimitingDeviceType, []string{pos.types[0]}); err != nil {
				return false, err
			}
			devs = append(devs, dev)
			idx = len(devs) - 1
			rebuild = true
		}
		c, err := putNumbers(&devs[idx], tag.LeafJawPositions, pos.v)
		if err != nil {
			return false, err
		}
		rebuild = rebuild || c
	}
	if rebuild {
		if err := setSequence(item, tag.BeamLimitingDevicePositionSequence, devs); err != nil {
			return false, err
		}
		changed = changed || created
	}
	return changed, nil
}

// =============================================================================
// Element Mutation
// =============================================================================

func present(s string) Text {
	return Text{Set: s != "", Value: s}
}

// putStrings sets the string values of tag t, adding the element when it is
// missing. Values equal to the current ones leave the element untouched. It
// reports whether an element was added.
func putStrings(list *[]*dicom.Element, t tag.Tag, vals []string) (bool, error) {
	if vals == nil {
		vals = []string{}
	}
	if e := find(*list, t); e != nil {
		if equalStrings(stringsOf(e), vals) {
			return false, nil
		}
		v, err := dicom.NewValue(vals)
		if err != nil {
			return false, errs.Wrap(errs.ErrCodeInternal, err, "set %s", tagName(t))
		}
		e.Value = v
		return false, nil
	}
	e, err := dicom.NewElement(t, vals)
	if err != nil {
		return false, errs.Wrap(errs.ErrCodeInternal, err, "create %s", tagName(t))
	}
	insertSorted(list, e)
	return true, nil
}

// putNumbers sets decimal-string values, leaving the element untouched when
// the parsed values are already equal.
func putNumbers(list *[]*dicom.Element, t tag.Tag, vals []float64) (bool, error) {
	if cur, err := numbers(*list, t); err == nil && find(*list, t) != nil && equalFloats(cur, vals) {
		return false, nil
	}
	s := make([]string, len(vals))
	for i, v := range vals {
		s[i] = formatDS(v)
	}
	return putStrings(list, t, s)
}

// setSequence replaces (or adds) a sequence with the given items.
func setSequence(list *[]*dicom.Element, t tag.Tag, seq [][]*dicom.Element) error {
	if seq == nil {
		seq = [][]*dicom.Element{}
	}
	if e := find(*list, t); e != nil {
		v, err := dicom.NewValue(seq)
		if err != nil {
			return errs.Wrap(errs.ErrCodeInternal, err, "set %s", tagName(t))
		}
		e.Value = v
		e.ValueLength = tag.VLUndefinedLength
		return nil
	}
	e, err := dicom.NewElement(t, seq)
	if err != nil {
		return errs.Wrap(errs.ErrCodeInternal, err, "create %s", tagName(t))
	}
	e.ValueLength = tag.VLUndefinedLength
	insertSorted(list, e)
	return nil
}

func remove(list *[]*dicom.Element, t tag.Tag) {
	out := (*list)[:0]
	for _, e := range *list {
		if e.Tag != t {
			out = append(out, e)
		}
	}
	*list = out
}

func insertSorted(list *[]*dicom.Element, e *dicom.Element) {
	l := *list
	i := sort.Search(len(l), func(i int) bool { return tagLess(e.Tag, l[i].Tag) })
	l = append(l, nil)
	copy(l[i+1:], l[i:])
	l[i] = e
	*list = l
}

func tagLess(a, b tag.Tag) bool {
	if a.Group != b.Group {
		return a.Group < b.Group
	}
	return a.Element < b.Element
}

func equalStrings(a, b []string) bool {
	a, b = dropEmpty(a), dropEmpty(b)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func dropEmpty(v []string) []string {
	if len(v) == 1 && v[0] == "" {
		return nil
	}
	return v
}

func equalFloats(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func containsString(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
