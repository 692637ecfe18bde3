package neuralnet

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
)

// CheckGradients compares the backpropagated gradient of the squared error
// (prediction - target)^2 against a central finite-difference estimate and
// returns the largest absolute difference. Dropout is disabled and the
// model's parameters are left unchanged.
func CheckGradients(m *MICPredictor, x []float64, target float64) float64 {
	saved := m.parameters()
	defer func() {
		m.setParameters(saved)
		m.ZeroGrads()
	}()

	m.ZeroGrads()
	out, _ := m.Forward(x, false)
	m.Backward(2*(out-target), nil)
	analytic := m.gradients()

	numeric := fd.Gradient(nil, func(p []float64) float64 {
		m.setParameters(p)
		o, _ := m.Forward(x, false)
		return (o - target) * (o - target)
	}, saved, &fd.Settings{
		Formula: fd.Central,
		// Concurrent would race on the shared forward cache.
		Concurrent: false,
	})

	var maxDiff float64
	for i := range analytic {
		maxDiff = math.Max(maxDiff, math.Abs(analytic[i]-numeric[i]))
	}
	return maxDiff
}
