package skeletal

// Influence is one authored joint/weight pair of a vertex.
type Influence struct {
	Joint  uint32
	Weight float32
}

// PackInfluences fits authored influences into the fixed vertex slots.
//
// Up to MaxInfluences influences are copied unchanged, unused slots stay zero.
// Beyond that the first MaxInfluences in authored order are kept, the rest are
// discarded, and the kept weights are rescaled to sum to 1. The cut is by
// position, not by magnitude.
func PackInfluences(in []Influence) (joints [MaxInfluences]uint32, weights [MaxInfluences]float32) {
	n := len(in)
	if n > MaxInfluences {
		n = MaxInfluences
	}
	for i := 0; i < n; i++ {
		joints[i] = in[i].Joint
		weights[i] = in[i].Weight
	}
	if len(in) <= MaxInfluences {
		return joints, weights
	}

	var sum float32
	for _, w := range weights {
		sum += w
	}
	if sum > 0 {
		for i := range weights {
			weights[i] /= sum
		}
	}
	return joints, weights
}
