package neuralnet

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Layer is a fully connected layer z = Wx + b. Gradients accumulate across
// Backward calls until the optimizer consumes them.
type Layer struct {
	Weights *mat.Dense    // out x in
	Bias    *mat.VecDense // out

	WeightGrads *mat.Dense
	BiasGrads   *mat.VecDense

	WeightVelocities *mat.Dense
	BiasVelocities   *mat.VecDense

	input *mat.VecDense
}

func NewLayer(in, out int) *Layer {
	return &Layer{
		Weights:          mat.NewDense(out, in, nil),
		Bias:             mat.NewVecDense(out, nil),
		WeightGrads:      mat.NewDense(out, in, nil),
		BiasGrads:        mat.NewVecDense(out, nil),
		WeightVelocities: mat.NewDense(out, in, nil),
		BiasVelocities:   mat.NewVecDense(out, nil),
	}
}

func (l *Layer) In() int {
	_, c := l.Weights.Dims()
	return c
}

func (l *Layer) Out() int {
	r, _ := l.Weights.Dims()
	return r
}

// initialise draws Xavier-uniform weights and standard normal biases.
func (l *Layer) initialise(rng *rand.Rand) {
	out, in := l.Weights.Dims()
	for i := 0; i < out; i++ {
		for j := 0; j < in; j++ {
			l.Weights.Set(i, j, xavierInit(rng, in, out))
		}
		l.Bias.SetVec(i, rng.NormFloat64())
	}
	l.WeightVelocities.Zero()
	l.BiasVelocities.Zero()
	l.ZeroGrads()
}

func (l *Layer) forward(x *mat.VecDense) *mat.VecDense {
	l.input = x
	z := mat.NewVecDense(l.Out(), nil)
	z.MulVec(l.Weights, x)
	z.AddVec(z, l.Bias)
	return z
}

// backward accumulates dL/dW and dL/db for the last forward input and
// returns dL/dx.
func (l *Layer) backward(dz *mat.VecDense) *mat.VecDense {
	// [N * 1] x [1 * M] => [N * M]
	var outer mat.Dense
	outer.Outer(1, dz, l.input)
	l.WeightGrads.Add(l.WeightGrads, &outer)
	l.BiasGrads.AddVec(l.BiasGrads, dz)

	// [M * N] x [N * 1] => [M * 1]
	dx := mat.NewVecDense(l.In(), nil)
	dx.MulVec(l.Weights.T(), dz)
	return dx
}

func (l *Layer) ZeroGrads() {
	l.WeightGrads.Zero()
	l.BiasGrads.Zero()
}

func xavierInit(rng *rand.Rand, numInputs int, numOutputs int) float64 {
	limit := math.Sqrt(6.0 / float64(numInputs+numOutputs))
	return 2*rng.Float64()*limit - limit
}

// dropout zeroes each unit with probability p and rescales survivors by
// 1/(1-p). It returns the mask applied so backward can reuse it.
func dropout(rng *rand.Rand, v *mat.VecDense, p float64) *mat.VecDense {
	mask := mat.NewVecDense(v.Len(), nil)
	if p >= 1 {
		v.Zero()
		return mask
	}
	scale := 1 / (1 - p)
	for i := 0; i < v.Len(); i++ {
		if rng.Float64() >= p {
			mask.SetVec(i, scale)
		}
	}
	v.MulElemVec(v, mask)
	return mask
}

func activate(f ActivationFunction, z *mat.VecDense) *mat.VecDense {
	a := mat.NewVecDense(z.Len(), nil)
	for i := 0; i < z.Len(); i++ {
		a.SetVec(i, f.Activate(z.AtVec(i)))
	}
	return a
}

// activationGrad returns upstream ⊙ f'(z).
func activationGrad(f ActivationFunction, z, upstream *mat.VecDense) *mat.VecDense {
	d := mat.NewVecDense(z.Len(), nil)
	for i := 0; i < z.Len(); i++ {
		d.SetVec(i, upstream.AtVec(i)*f.Derivative(z.AtVec(i)))
	}
	return d
}

// Debug
func (l *Layer) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Linear(%d -> %d)\n", l.In(), l.Out()))
	sb.WriteString(fmt.Sprintf("Bias: %v\n", l.Bias.RawVector().Data))
	return sb.String()
}
