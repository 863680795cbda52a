package mlc

import "math"

// MinSeparation is the smallest gap between two facing leaves that is not
// flagged on import. Facing leaves are either exactly closed or at least this
// far apart after [ToMillennium].
const MinSeparation = 0.55

// roundingStep is the widening applied when rounding pulls a pair back under
// MinSeparation.
const roundingStep = 0.1

// anchor ties one Millennium leaf to the two adjacent HD leaves hd and hd+1.
type anchor struct {
	hd, mil int
}

// span copies HD leaves first..last from Millennium leaf i+offset.
type span struct {
	first, last, offset int
}

// Bank B tables. Bank A uses the same tables shifted by PairsPerBank.
var (
	anchors = [...]anchor{
		{0, 9},
		{14, 22}, {16, 23}, {18, 24}, {20, 25}, {22, 26}, {24, 27}, {26, 28}, {28, 29},
		{30, 30}, {32, 31}, {34, 32}, {36, 33}, {38, 34}, {40, 35}, {42, 36}, {44, 37},
		{58, 50},
	}

	spans = [...]span{
		{2, 13, 8},
		{46, 57, -8},
	}

	// clamps fill Millennium leaves first..last from a single HD leaf.
	clamps = [...]struct{ first, last, hd int }{
		{0, 8, 0},
		{51, 59, 59},
	}
)

// ToHD converts a Millennium aperture to the equivalent HD aperture.
// Each anchor leaf is copied into two HD leaves and the spans are copied
// one to one. The result is rounded to 0.1 mm.
func ToHD(m []float64) ([]float64, error) {
	if err := ValidateState(m); err != nil {
		return nil, err
	}

	hd := make([]float64, LeafCount)
	for _, bank := range []Bank{BankB, BankA} {
		base := bank.Leaf(0)
		for _, a := range anchors {
			v := m[base+a.mil]
			hd[base+a.hd] = v
			hd[base+a.hd+1] = v
		}
		for _, s := range spans {
			for i := s.first; i <= s.last; i++ {
				hd[base+i] = m[base+i+s.offset]
			}
		}
	}

	for i := range hd {
		hd[i] = Round(hd[i])
	}
	return hd, nil
}

// ToMillennium converts an HD aperture to the equivalent Millennium aperture.
// Anchor leaves take the mean of their two HD leaves, spans are copied back,
// and the outer Millennium leaves beyond the HD field copy the outermost HD
// leaf. Facing leaves are then separated to at least [MinSeparation] unless
// they are exactly closed, and the result is rounded to 0.1 mm.
func ToMillennium(h []float64) ([]float64, error) {
	if err := ValidateState(h); err != nil {
		return nil, err
	}

	m := make([]float64, LeafCount)
	for _, bank := range []Bank{BankB, BankA} {
		base := bank.Leaf(0)
		for _, a := range anchors {
			m[base+a.mil] = (h[base+a.hd] + h[base+a.hd+1]) / 2
		}
		for _, s := range spans {
			for i := s.first; i <= s.last; i++ {
				m[base+i+s.offset] = h[base+i]
			}
		}
		for _, c := range clamps {
			for i := c.first; i <= c.last; i++ {
				m[base+i] = h[base+c.hd]
			}
		}
	}

	separate(m)
	for i := range m {
		m[i] = Round(m[i])
	}
	widenRounded(m)
	return m, nil
}

// separate pushes facing leaves that are open but closer than MinSeparation
// apart, symmetrically, so that the gap becomes exactly MinSeparation.
func separate(m []float64) {
	for i := 0; i < PairsPerBank; i++ {
		b, a := m[i], m[i+PairsPerBank]
		gap := math.Abs(a - b)
		if a == b || gap >= MinSeparation {
			continue
		}
		adj := (MinSeparation - gap) / 2
		if b <= a {
			m[i], m[i+PairsPerBank] = b-adj, a+adj
		} else {
			m[i], m[i+PairsPerBank] = b+adj, a-adj
		}
	}
}

// widenRounded restores the minimum gap for pairs that rounding to 0.1 mm
// pulled back under it (a 0.55 mm gap can round to 0.5 mm). The leaf on the
// positive side moves outwards by one rounding step.
func widenRounded(m []float64) {
	for i := 0; i < PairsPerBank; i++ {
		b, a := m[i], m[i+PairsPerBank]
		if a == b || math.Abs(a-b) >= MinSeparation-1e-9 {
			continue
		}
		if b <= a {
			m[i+PairsPerBank] = Round(a + roundingStep)
		} else {
			m[i] = Round(b + roundingStep)
		}
	}
}

// Round rounds v to 0.1 mm, resolving ties to the even digit.
func Round(v float64) float64 {
	return math.RoundToEven(v*10) / 10
}
