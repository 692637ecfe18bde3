package neuralnet

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Adversary predicts a confounder class (country or family) from the
// predictor's hidden representation. Training the predictor against it
// pushes the hidden representation to carry less confounder signal.
type Adversary struct {
	Layer  *Layer
	Params Params

	loss  CrossEntropy
	probs []float64
}

func NewAdversary(nHidden, numClasses int, params Params) *Adversary {
	a := &Adversary{
		Layer:  NewLayer(nHidden, numClasses),
		Params: params,
	}
	a.InitialiseWeightsAndBiases(0)
	return a
}

func (a *Adversary) InitialiseWeightsAndBiases(seed int64) {
	a.Layer.initialise(rand.New(rand.NewSource(seed)))
}

func (a *Adversary) NumClasses() int {
	return a.Layer.Out()
}

// Forward returns class probabilities for a hidden representation.
func (a *Adversary) Forward(hidden []float64) []float64 {
	x := mat.NewVecDense(len(hidden), append([]float64(nil), hidden...))
	z := a.Layer.forward(x)
	a.probs = Softmax(z.RawVector().Data)
	return append([]float64(nil), a.probs...)
}

// Loss is the cross entropy of the last Forward against label.
func (a *Adversary) Loss(label int) float64 {
	return a.loss.Compute(a.probs, OneHot(label, a.NumClasses()))
}

// Backward accumulates gradients for the last Forward against label and
// returns dL/dhidden.
func (a *Adversary) Backward(label int) []float64 {
	grad := a.loss.Gradient(a.probs, OneHot(label, a.NumClasses()))
	dx := a.Layer.backward(mat.NewVecDense(len(grad), grad))
	return append([]float64(nil), dx.RawVector().Data...)
}

func (a *Adversary) ZeroGrads() {
	a.Layer.ZeroGrads()
}
