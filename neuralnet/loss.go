package neuralnet

import "math"

// LossFunction defines the interface for computing loss and its gradient.
type LossFunction interface {
	// Compute returns the loss value given the model output and target.
	Compute(output []float64, target []float64) float64
	// Gradient returns the gradient ∂L/∂output for each output value.
	Gradient(output []float64, target []float64) []float64
}

// CrossEntropy implements categorical cross-entropy loss over softmax probabilities.
type CrossEntropy struct{}

// Compute returns the cross-entropy loss.
func (ce *CrossEntropy) Compute(output []float64, target []float64) float64 {
	var loss float64
	for i := range output {
		p := output[i]
		if p < 1e-15 {
			p = 1e-15
		}
		loss -= target[i] * math.Log(p)
	}
	return loss
}

// Gradient returns the derivative of cross-entropy wrt the softmax logits: (output - target).
func (ce *CrossEntropy) Gradient(output []float64, target []float64) []float64 {
	grad := make([]float64, len(output))
	for i := range output {
		grad[i] = output[i] - target[i]
	}
	return grad
}

// MSE is the mean squared error used for log2 MIC regression.
type MSE struct{}

func (m *MSE) Compute(output []float64, target []float64) float64 {
	if len(output) == 0 {
		return 0
	}
	var loss float64
	for i := range output {
		d := output[i] - target[i]
		loss += d * d
	}
	return loss / float64(len(output))
}

func (m *MSE) Gradient(output []float64, target []float64) []float64 {
	grad := make([]float64, len(output))
	n := float64(len(output))
	for i := range output {
		grad[i] = 2 * (output[i] - target[i]) / n
	}
	return grad
}

// Softmax returns exp-normalised probabilities. The maximum is subtracted
// first so large logits do not overflow.
func Softmax(output []float64) []float64 {
	probs := make([]float64, len(output))
	if len(output) == 0 {
		return probs
	}
	max := output[0]
	for _, v := range output[1:] {
		if v > max {
			max = v
		}
	}
	var sum float64
	for i, v := range output {
		probs[i] = math.Exp(v - max)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// OneHot encodes a class index as a vector of numClasses.
func OneHot(label, numClasses int) []float64 {
	v := make([]float64, numClasses)
	if label >= 0 && label < numClasses {
		v[label] = 1
	}
	return v
}
