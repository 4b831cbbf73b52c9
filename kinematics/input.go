package kinematics

// Input wraps the position of a single joint: radians for revolute joints,
// model units (typically meters) for prismatic ones.
type Input struct {
	Value float64
}

// Limit represents the allowed range of motion of one joint.
type Limit struct {
	Min float64
	Max float64
}

// FloatsToInputs wraps a slice of floats in Inputs.
func FloatsToInputs(positions []float64) []Input {
	inputs := make([]Input, len(positions))
	for i, f := range positions {
		inputs[i] = Input{f}
	}
	return inputs
}

// InputsToFloats unwraps Inputs to raw float positions.
func InputsToFloats(inputs []Input) []float64 {
	positions := make([]float64, len(inputs))
	for i, inp := range inputs {
		positions[i] = inp.Value
	}
	return positions
}
