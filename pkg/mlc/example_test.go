package mlc_test

import (
	"fmt"

	"github.com/matzehuels/leafshift/pkg/mlc"
)

func ExampleIdentify() {
	f, ok := mlc.Identify(-110)
	fmt.Println(f, ok, "->", f.Target())
	// Output: HD true -> Millennium
}

func ExampleToHD() {
	m := make([]float64, mlc.LeafCount)
	for i := 0; i < mlc.PairsPerBank; i++ {
		m[i], m[i+mlc.PairsPerBank] = -20, 20
	}
	// Outer pairs beyond the HD field must be closed.
	for _, i := range []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 50, 51, 52, 53, 54, 55, 56, 57, 58, 59} {
		m[i], m[i+mlc.PairsPerBank] = 0, 0
	}
	if err := mlc.CheckFitsHD(m); err != nil {
		fmt.Println(err)
		return
	}

	hd, _ := mlc.ToHD(m)
	fmt.Println(hd[14], hd[15], hd[74], hd[75])
	// Output: -20 -20 20 20
}

func ExampleCheckFitsHD() {
	m := make([]float64, mlc.LeafCount)
	m[4], m[64] = -1, 1
	fmt.Println(mlc.CheckFitsHD(m))
	// Output: FIELD_EXCEEDS_TARGET_RANGE: leaf 4 does not match leaf 64
}
