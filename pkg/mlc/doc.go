// Package mlc holds the geometry of the two supported multi-leaf collimators
// and the arithmetic that moves an aperture from one to the other.
//
// # Families
//
// A [Family] identifies a collimator model:
//
//   - [Millennium]: 60 leaf pairs, 10 mm outer and 5 mm central leaves, Y in [-200, 200]
//   - [HD]: 60 leaf pairs, 5 mm outer and 2.5 mm central leaves, Y in [-110, 110]
//
// Both have 61 leaf boundaries. The first boundary alone identifies the family
// (see [Identify]).
//
// # Aperture State
//
// An aperture is a []float64 of [LeafCount] positions in millimetres: bank B
// pairs 0-59 first, then bank A pairs 0-59. Pair i of bank B faces index i+60.
//
// # Remapping
//
// [ToHD] and [ToMillennium] translate one control point at a time. Both
// directions use fixed anchor and span tables; the round trip is lossy in the
// anchor regions because one Millennium leaf covers two HD leaves.
//
// [CheckFitsHD] must pass before [ToHD]: the ten outermost Millennium pairs on
// each side lie beyond the HD field and can only be reproduced when closed.
package mlc
