package data

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func testGenerator(t *testing.T, labels2 []int, opts GeneratorOptions) *DataGenerator {
	t.Helper()
	features, err := NewMatrix([][]float64{
		{1, 1, 1},
		{2, 2, 2},
		{3, 3, 3},
		{4, 4, 4},
	})
	require.NoError(t, err)
	g, err := NewDataGenerator(features, []float64{-2, -1, 1, 3}, labels2, opts)
	require.NoError(t, err)
	return g
}

func TestGeneratorGlobalNode(t *testing.T) {
	g := testGenerator(t, nil, DefaultGeneratorOptions())
	assert.Equal(t, 4, g.NNodes())
	assert.Equal(t, 4, g.NSamples())

	s, err := g.NextSample()
	require.NoError(t, err)
	assert.Equal(t, []int{4, 1}, []int(s.Features.Shape()))
	assert.Equal(t, []float64{1, 1, 1, GlobalNodeValue}, s.Vector())
	assert.False(t, s.HasLabel2)
}

func TestGeneratorWithoutGlobalNode(t *testing.T) {
	opts := DefaultGeneratorOptions()
	opts.GlobalNode = false
	g := testGenerator(t, nil, opts)
	assert.Equal(t, 3, g.NNodes())

	opts = DefaultGeneratorOptions()
	opts.PreConvolved = true
	g = testGenerator(t, nil, opts)
	assert.Equal(t, 3, g.NNodes())
}

func TestGeneratorLabelShift(t *testing.T) {
	g := testGenerator(t, nil, DefaultGeneratorOptions())
	// min(|labels|) is 1
	assert.Equal(t, 1.0, g.Shift())
	assert.Equal(t, []float64{-1, 0, 2, 4}, g.Labels())
}

func TestGeneratorAutoReset(t *testing.T) {
	g := testGenerator(t, []int{0, 1, 2, 3}, DefaultGeneratorOptions())
	for round := 0; round < 2; round++ {
		for i := 0; i < 4; i++ {
			s, err := g.NextSample()
			require.NoError(t, err)
			assert.Equal(t, i, s.Label2)
			assert.True(t, s.HasLabel2)
		}
		assert.Equal(t, 0, g.Cursor())
	}
}

func TestGeneratorExhausted(t *testing.T) {
	opts := DefaultGeneratorOptions()
	opts.AutoReset = false
	g := testGenerator(t, nil, opts)
	for i := 0; i < 4; i++ {
		_, err := g.NextSample()
		require.NoError(t, err)
	}
	assert.Equal(t, 4, g.Cursor())
	_, err := g.NextSample()
	assert.ErrorIs(t, err, ErrExhausted)

	g.Reset()
	s, err := g.NextSample()
	require.NoError(t, err)
	assert.Equal(t, -1.0, s.Label)
}

func TestGeneratorShuffleKeepsAlignment(t *testing.T) {
	opts := DefaultGeneratorOptions()
	opts.Rand = rand.New(rand.NewSource(5))
	g := testGenerator(t, []int{0, 1, 2, 3}, opts)
	shifted := map[int]float64{0: -1, 1: 0, 2: 2, 3: 4}

	for round := 0; round < 3; round++ {
		g.Shuffle()
		seen := map[int]bool{}
		for i := 0; i < g.NSamples(); i++ {
			s, err := g.NextSample()
			require.NoError(t, err)
			// feature value k+1 belongs to label index k
			k := int(s.Vector()[0]) - 1
			assert.Equal(t, k, s.Label2)
			assert.Equal(t, shifted[k], s.Label)
			seen[k] = true
		}
		assert.Len(t, seen, 4)
	}
}

func TestGeneratorLengthMismatch(t *testing.T) {
	features, err := NewMatrix([][]float64{{1}, {2}})
	require.NoError(t, err)

	_, err = NewDataGenerator(features, []float64{1}, nil, DefaultGeneratorOptions())
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = NewDataGenerator(features, []float64{1, 2}, []int{0}, DefaultGeneratorOptions())
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestGeneratorFloat32Features(t *testing.T) {
	features := tensor.New(tensor.WithShape(2, 2), tensor.WithBacking([]float32{1, 2, 3, 4}))
	g, err := NewDataGenerator(features, []float64{1, 2}, nil, GeneratorOptions{AutoReset: true})
	require.NoError(t, err)
	assert.Equal(t, 2, g.NNodes())

	first, err := g.NextSample()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, first.Vector())
	second, err := g.NextSample()
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, second.Vector())
}

func TestGeneratorUnsupportedDtype(t *testing.T) {
	features := tensor.New(tensor.WithShape(2, 1), tensor.WithBacking([]int{1, 2}))
	_, err := NewDataGenerator(features, []float64{1, 2}, nil, DefaultGeneratorOptions())
	assert.Error(t, err)

	_, err = Vector(features)
	assert.Error(t, err)
}
