package neuralnet

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"

	"amrnet/data"
)

func randomInput(rng *rand.Rand, n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = rng.Float64()
	}
	return x
}

func TestForwardShapes(t *testing.T) {
	m := NewMICPredictor(5, 4, 3, 2, NewParams(0.01), nil, nil)
	out, hidden := m.Forward(randomInput(rand.New(rand.NewSource(1)), 5), false)
	assert.False(t, math.IsNaN(out))
	assert.Len(t, hidden, 3)
	assert.Equal(t, 5, m.InputSize())
	assert.Equal(t, 3, m.HiddenSize())
}

func TestForwardPanicsOnWrongInputSize(t *testing.T) {
	m := NewMICPredictor(5, 4, 3, 1, NewParams(0.01), nil, nil)
	assert.Panics(t, func() { m.Forward([]float64{1, 2}, false) })
}

func TestInitialiseIsSeeded(t *testing.T) {
	a := NewMICPredictor(6, 4, 3, 1, NewParams(0.01), nil, nil)
	b := NewMICPredictor(6, 4, 3, 1, NewParams(0.01), nil, nil)
	assert.Equal(t, a.parameters(), b.parameters())

	b.InitialiseWeightsAndBiases(7)
	assert.NotEqual(t, a.parameters(), b.parameters())
}

func TestXavierBounds(t *testing.T) {
	m := NewMICPredictor(10, 20, 5, 1, NewParams(0.01), nil, nil)
	limit := math.Sqrt(6.0 / float64(10+20))
	for _, w := range m.Layers[0].Weights.RawMatrix().Data {
		assert.LessOrEqual(t, math.Abs(w), limit)
	}
}

func TestEvaluationIgnoresDropout(t *testing.T) {
	params := NewParamsFull(0.01, 1, 0, 0, 0.5)
	m := NewMICPredictor(4, 8, 8, 1, params, nil, nil)
	x := []float64{0.1, 0.2, 0.3, 0.4}
	first := m.Predict(x)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Predict(x))
	}
}

func TestCheckGradients(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	m := NewMICPredictor(6, 5, 4, 1, NewParams(0.01), Tanh{}, Linear{})
	m.InitialiseWeightsAndBiases(3)
	before := m.parameters()

	diff := CheckGradients(m, randomInput(rng, 6), 1.5)
	assert.Less(t, diff, 1e-5)
	assert.Equal(t, before, m.parameters(), "parameters must be restored")
}

func TestAdversarialGradientReachesFirstLayer(t *testing.T) {
	m := NewMICPredictor(3, 4, 4, 1, NewParams(0.01), Tanh{}, Linear{})
	x := []float64{0.3, -0.2, 0.9}
	m.Forward(x, false)
	m.Backward(0, []float64{1, 1, 1, 1})

	var total float64
	for _, g := range m.Layers[0].WeightGrads.RawMatrix().Data {
		total += math.Abs(g)
	}
	assert.Greater(t, total, 0.0)
	for _, g := range m.Layers[2].WeightGrads.RawMatrix().Data {
		assert.Equal(t, 0.0, g)
	}
}

func TestTrainingReducesLoss(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	m := NewMICPredictor(3, 8, 8, 1, NewParams(0.01), nil, nil)
	sgd := &SGD{}

	xs := make([][]float64, 20)
	ys := make([]float64, 20)
	for i := range xs {
		xs[i] = randomInput(rng, 3)
		ys[i] = 1 + xs[i][0] + 2*xs[i][1]
	}
	loss := func() float64 {
		var l float64
		for i := range xs {
			d := m.Predict(xs[i]) - ys[i]
			l += d * d
		}
		return l / float64(len(xs))
	}

	start := loss()
	for epoch := 0; epoch < 200; epoch++ {
		for i := range xs {
			out, _ := m.Forward(xs[i], true)
			m.Backward(2*(out-ys[i]), nil)
			require.NoError(t, sgd.Apply(&m.Params, m.Layers, 1))
		}
	}
	assert.Less(t, loss(), start)
}

func TestAdversary(t *testing.T) {
	a := NewAdversary(4, 3, NewParams(0.1))
	hidden := []float64{0.5, -0.1, 0.2, 0.8}
	probs := a.Forward(hidden)
	require.Len(t, probs, 3)
	var sum float64
	for _, p := range probs {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	before := a.Loss(2)
	dh := a.Backward(2)
	assert.Len(t, dh, 4)
	require.NoError(t, (&SGD{}).Apply(&a.Params, []*Layer{a.Layer}, 1))
	a.Forward(hidden)
	assert.Less(t, a.Loss(2), before)
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	m := NewMICPredictor(4, 3, 2, 1, NewParams(0.01), nil, nil)
	m.InitialiseWeightsAndBiases(42)
	require.NoError(t, m.Save(dir))

	other := NewMICPredictor(4, 3, 2, 1, NewParams(0.01), nil, nil)
	require.NoError(t, other.Load(dir))
	assert.Equal(t, m.parameters(), other.parameters())

	wrong := NewMICPredictor(5, 3, 2, 1, NewParams(0.01), nil, nil)
	assert.Error(t, wrong.Load(dir))
}

func TestLoadFloat32Weights(t *testing.T) {
	dir := t.TempDir()
	m := NewMICPredictor(2, 1, 1, 1, NewParams(0.01), nil, nil)
	require.NoError(t, m.Save(dir))

	w, _ := layerFiles(dir, "predictor", 0)
	f32 := tensor.New(tensor.WithShape(1, 2), tensor.WithBacking([]float32{0.5, -1.5}))
	require.NoError(t, data.WriteNpy(w, f32))

	require.NoError(t, m.Load(dir))
	assert.Equal(t, []float64{0.5, -1.5}, m.Layers[0].Weights.RawMatrix().Data)
}
