package mlc

import (
	"math"
	"strings"

	errs "github.com/matzehuels/leafshift/pkg/errors"
)

const (
	// PairsPerBank is the number of leaves in one bank.
	PairsPerBank = 60

	// LeafCount is the length of an aperture state (both banks).
	LeafCount = 2 * PairsPerBank

	// BoundaryCount is the number of leaf edges along Y.
	BoundaryCount = PairsPerBank + 1

	identifyTolerance = 1e-6
)

// Family identifies a collimator model.
type Family int

const (
	Unknown Family = iota
	Millennium
	HD
)

// String returns the display name of the family.
func (f Family) String() string {
	switch f {
	case Millennium:
		return "Millennium"
	case HD:
		return "HD"
	}
	return "unknown"
}

// Key returns the name used for the family in linac configuration files.
// Millennium keeps the historical "Millenium" spelling.
func (f Family) Key() string {
	switch f {
	case Millennium:
		return "Millenium"
	case HD:
		return "HD"
	}
	return ""
}

// Target returns the family a plan on f is converted to.
func (f Family) Target() Family {
	switch f {
	case Millennium:
		return HD
	case HD:
		return Millennium
	}
	return Unknown
}

// MarshalText encodes the family as its configuration key.
func (f Family) MarshalText() ([]byte, error) {
	if f == Unknown {
		return nil, errs.New(errs.ErrCodeUnknownFamily, "cannot encode unknown collimator family")
	}
	return []byte(f.Key()), nil
}

// UnmarshalText decodes a family name accepted by [ParseFamily].
func (f *Family) UnmarshalText(b []byte) error {
	v, err := ParseFamily(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// ParseFamily parses a family name. Matching is case-insensitive and accepts
// both spellings of Millennium as well as the single-letter forms.
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "millennium", "millenium", "m", "mlc120", "millennium120":
		return Millennium, nil
	case "hd", "h", "hd120", "hdmlc":
		return HD, nil
	}
	return Unknown, errs.New(errs.ErrCodeUnknownFamily, "collimator family %q not recognized, must be Millenium or HD", s)
}

// Families lists the supported families in display order.
func Families() []Family {
	return []Family{Millennium, HD}
}

var millenniumBoundaries = [BoundaryCount]float64{
	-200, -190, -180, -170, -160, -150, -140, -130, -120, -110,
	-100, -95, -90, -85, -80, -75, -70, -65, -60, -55,
	-50, -45, -40, -35, -30, -25, -20, -15, -10, -5,
	0, 5, 10, 15, 20, 25, 30, 35, 40, 45,
	50, 55, 60, 65, 70, 75, 80, 85, 90, 95,
	100, 110, 120, 130, 140, 150, 160, 170, 180, 190,
	200,
}

var hdBoundaries = [BoundaryCount]float64{
	-110, -105, -100, -95, -90, -85, -80, -75, -70, -65,
	-60, -55, -50, -45, -40, -37.5, -35, -32.5, -30, -27.5,
	-25, -22.5, -20, -17.5, -15, -12.5, -10, -7.5, -5, -2.5,
	0, 2.5, 5, 7.5, 10, 12.5, 15, 17.5, 20, 22.5,
	25, 27.5, 30, 32.5, 35, 37.5, 40, 45, 50, 55,
	60, 65, 70, 75, 80, 85, 90, 95, 100, 105,
	110,
}

// Boundaries returns the 61 leaf boundaries of f in ascending order.
// The returned slice is a fresh copy.
func Boundaries(f Family) ([]float64, error) {
	var src *[BoundaryCount]float64
	switch f {
	case Millennium:
		src = &millenniumBoundaries
	case HD:
		src = &hdBoundaries
	default:
		return nil, errs.New(errs.ErrCodeUnknownFamily, "collimator family %q not recognized, must be Millenium or HD", f.String())
	}
	out := make([]float64, BoundaryCount)
	copy(out, src[:])
	return out, nil
}

// MustBoundaries is like [Boundaries] but panics on an unknown family.
func MustBoundaries(f Family) []float64 {
	b, err := Boundaries(f)
	if err != nil {
		panic(err)
	}
	return b
}

// FieldLimit returns the half-extent in Y covered by the leaves of f.
func FieldLimit(f Family) float64 {
	switch f {
	case Millennium:
		return millenniumBoundaries[BoundaryCount-1]
	case HD:
		return hdBoundaries[BoundaryCount-1]
	}
	return 0
}

// Identify returns the family whose first leaf boundary equals first.
func Identify(first float64) (Family, bool) {
	switch {
	case math.Abs(first-millenniumBoundaries[0]) < identifyTolerance:
		return Millennium, true
	case math.Abs(first-hdBoundaries[0]) < identifyTolerance:
		return HD, true
	}
	return Unknown, false
}

// ValidateBoundaries checks that b is a complete boundary table.
func ValidateBoundaries(b []float64) error {
	if len(b) != BoundaryCount {
		return errs.New(errs.ErrCodeInvalidAperture, "there must be %d leaf edges for %d leaves per bank, got %d", BoundaryCount, PairsPerBank, len(b))
	}
	for i := 1; i < len(b); i++ {
		if b[i] <= b[i-1] {
			return errs.New(errs.ErrCodeInvalidAperture, "leaf edges must be strictly increasing at index %d", i)
		}
	}
	return nil
}

// Bank selects one side of the collimator.
type Bank int

const (
	BankB Bank = iota // pairs stored at indices 0-59
	BankA             // pairs stored at indices 60-119
)

// String returns "A" or "B".
func (b Bank) String() string {
	if b == BankA {
		return "A"
	}
	return "B"
}

// Leaf returns the aperture index of pair in bank b.
func (b Bank) Leaf(pair int) int {
	return int(b)*PairsPerBank + pair
}

// Positions returns the slice of state belonging to bank b.
func (b Bank) Positions(state []float64) []float64 {
	start := int(b) * PairsPerBank
	return state[start : start+PairsPerBank]
}

// Opposite returns the index of the leaf facing leaf i.
func Opposite(i int) int {
	if i < PairsPerBank {
		return i + PairsPerBank
	}
	return i - PairsPerBank
}

// ValidateState checks that state has exactly [LeafCount] finite positions.
func ValidateState(state []float64) error {
	if len(state) != LeafCount {
		return errs.New(errs.ErrCodeInvalidAperture, "aperture must have %d leaf positions, got %d", LeafCount, len(state))
	}
	for i, v := range state {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errs.New(errs.ErrCodeInvalidAperture, "leaf %d position is not a finite number", i)
		}
	}
	return nil
}
