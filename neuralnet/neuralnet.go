package neuralnet

import (
	"fmt"
	"math/rand"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// MICPredictor is a three-layer feed-forward regressor:
// in -> hid1 -> hid2 -> out, activation after every layer and dropout after
// both hidden activations. The prediction is output unit 0.
type MICPredictor struct {
	Layers []*Layer
	Params Params

	hidden ActivationFunction
	output ActivationFunction
	rng    *rand.Rand

	// forward cache
	z     [3]*mat.VecDense
	masks [2]*mat.VecDense
}

func NewMICPredictor(nFeat, nHid1, nHid2, outDim int, params Params, hidden, output ActivationFunction) *MICPredictor {
	if hidden == nil {
		hidden = NewLeakyReLU(DefaultLeakySlope)
	}
	if output == nil {
		output = NewLeakyReLU(DefaultLeakySlope)
	}
	m := &MICPredictor{
		Layers: []*Layer{
			NewLayer(nFeat, nHid1),
			NewLayer(nHid1, nHid2),
			NewLayer(nHid2, outDim),
		},
		Params: params,
		hidden: hidden,
		output: output,
	}
	m.InitialiseWeightsAndBiases(0)
	return m
}

// InitialiseWeightsAndBiases re-draws all parameters from seed. The same
// seed also drives the dropout masks.
func (m *MICPredictor) InitialiseWeightsAndBiases(seed int64) {
	m.rng = rand.New(rand.NewSource(seed))
	for _, l := range m.Layers {
		l.initialise(m.rng)
	}
}

func (m *MICPredictor) InputSize() int {
	return m.Layers[0].In()
}

func (m *MICPredictor) HiddenSize() int {
	return m.Layers[1].Out()
}

// Forward runs x through the network. With training set, dropout is applied
// and the masks are kept for Backward. It returns the scalar prediction and
// the second hidden representation.
func (m *MICPredictor) Forward(x []float64, training bool) (float64, []float64) {
	if len(x) != m.InputSize() {
		panic(fmt.Sprintf("neuralnet: input has %d values, model expects %d", len(x), m.InputSize()))
	}
	in := mat.NewVecDense(len(x), append([]float64(nil), x...))

	m.z[0] = m.Layers[0].forward(in)
	a1 := activate(m.hidden, m.z[0])
	m.masks[0] = m.maybeDropout(a1, training)

	m.z[1] = m.Layers[1].forward(a1)
	a2 := activate(m.hidden, m.z[1])
	m.masks[1] = m.maybeDropout(a2, training)

	m.z[2] = m.Layers[2].forward(a2)
	out := m.output.Activate(m.z[2].AtVec(0))

	hidden := make([]float64, a2.Len())
	copy(hidden, a2.RawVector().Data)
	return out, hidden
}

func (m *MICPredictor) maybeDropout(a *mat.VecDense, training bool) *mat.VecDense {
	if !training || m.Params.DropoutRate <= 0 {
		return nil
	}
	return dropout(m.rng, a, m.Params.DropoutRate)
}

// Backward accumulates gradients for the last Forward call. dOut is dL/dprediction;
// dHidden, when not nil, is an extra gradient on the hidden representation
// (the adversarial term).
func (m *MICPredictor) Backward(dOut float64, dHidden []float64) {
	outDim := m.Layers[2].Out()
	dz3 := mat.NewVecDense(outDim, nil)
	dz3.SetVec(0, dOut*m.output.Derivative(m.z[2].AtVec(0)))

	dh := m.Layers[2].backward(dz3)
	if dHidden != nil {
		dh.AddVec(dh, mat.NewVecDense(len(dHidden), append([]float64(nil), dHidden...)))
	}
	if m.masks[1] != nil {
		dh.MulElemVec(dh, m.masks[1])
	}
	dz2 := activationGrad(m.hidden, m.z[1], dh)

	da1 := m.Layers[1].backward(dz2)
	if m.masks[0] != nil {
		da1.MulElemVec(da1, m.masks[0])
	}
	dz1 := activationGrad(m.hidden, m.z[0], da1)
	m.Layers[0].backward(dz1)
}

func (m *MICPredictor) ZeroGrads() {
	for _, l := range m.Layers {
		l.ZeroGrads()
	}
}

// Predict runs an evaluation forward pass.
func (m *MICPredictor) Predict(x []float64) float64 {
	out, _ := m.Forward(x, false)
	return out
}

// parameters flattens every weight and bias, layer by layer.
func (m *MICPredictor) parameters() []float64 {
	var p []float64
	for _, l := range m.Layers {
		p = append(p, l.Weights.RawMatrix().Data...)
		p = append(p, l.Bias.RawVector().Data...)
	}
	return p
}

func (m *MICPredictor) setParameters(p []float64) {
	off := 0
	for _, l := range m.Layers {
		w := l.Weights.RawMatrix().Data
		off += copy(w, p[off:off+len(w)])
		b := l.Bias.RawVector().Data
		off += copy(b, p[off:off+len(b)])
	}
}

func (m *MICPredictor) gradients() []float64 {
	var g []float64
	for _, l := range m.Layers {
		g = append(g, l.WeightGrads.RawMatrix().Data...)
		g = append(g, l.BiasGrads.RawVector().Data...)
	}
	return g
}

func (m *MICPredictor) String() string {
	var sb strings.Builder
	for i, layer := range m.Layers {
		sb.WriteString(fmt.Sprintf("Layer %d: %s", i, layer.String()))
	}
	return sb.String()
}
