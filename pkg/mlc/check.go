package mlc

import (
	errs "github.com/matzehuels/leafshift/pkg/errors"
)

// outerPairs lists the bank B pairs of a Millennium aperture that lie outside
// the HD field (Y beyond +/-110 mm).
var outerPairs = func() []int {
	out := make([]int, 0, 20)
	for i := 0; i < 10; i++ {
		out = append(out, i)
	}
	for i := 50; i < 60; i++ {
		out = append(out, i)
	}
	return out
}()

// Mismatch names a facing pair that is open where it must be closed.
type Mismatch struct {
	Leaf     int
	Opposite int
}

// OuterMismatches returns every outer pair of the Millennium aperture m that
// is not closed, in ascending leaf order.
func OuterMismatches(m []float64) []Mismatch {
	var out []Mismatch
	for _, i := range outerPairs {
		if m[i] != m[i+PairsPerBank] {
			out = append(out, Mismatch{Leaf: i, Opposite: i + PairsPerBank})
		}
	}
	return out
}

// CheckFitsHD reports whether the Millennium aperture m can be reproduced on
// an HD collimator. It returns a FIELD_EXCEEDS_TARGET_RANGE error naming the
// first open outer pair; the error Details are (leaf, opposite).
func CheckFitsHD(m []float64) error {
	if err := ValidateState(m); err != nil {
		return err
	}
	if mm := OuterMismatches(m); len(mm) > 0 {
		return errs.New(errs.ErrCodeFieldExceedsRange,
			"leaf %d does not match leaf %d", mm[0].Leaf, mm[0].Opposite)
	}
	return nil
}
