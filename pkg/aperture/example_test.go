package aperture_test

import (
	"fmt"

	"github.com/matzehuels/leafshift/pkg/aperture"
	"github.com/matzehuels/leafshift/pkg/mlc"
)

func ExampleBuild() {
	state := make([]float64, mlc.LeafCount)
	for i := 0; i < mlc.PairsPerBank; i++ {
		state[i], state[i+mlc.PairsPerBank] = -10, 10
	}
	a, err := aperture.Build(state, aperture.Jaws{X: []float64{-15, 15}}, mlc.HD)
	if err != nil {
		panic(err)
	}
	first := a.Leaves[0]
	fmt.Println(len(a.Leaves), first.Bank, first.Corners[0], first.Corners[2])
	fmt.Println(len(a.Jaws), a.Jaws[0].Label)
	// Output:
	// 120 B {-10 -110} {-195 -105}
	// 2 Jaw X
}
