package data

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// GlobalNodeValue is appended to every feature vector when the global node is on.
const GlobalNodeValue = 0.5

var (
	// ErrLengthMismatch is returned when features and label series differ in length.
	ErrLengthMismatch = errors.New("features and labels are of different length")
	// ErrExhausted is returned by NextSample past the last sample when
	// auto reset is off.
	ErrExhausted = errors.New("generator exhausted")
)

type GeneratorOptions struct {
	// AutoReset rewinds the cursor after the last sample is served.
	AutoReset bool
	// GlobalNode appends GlobalNodeValue to every feature vector.
	GlobalNode bool
	// PreConvolved serves feature rows as they are.
	PreConvolved bool
	// Rand drives Shuffle. A source seeded with 0 is used when nil.
	Rand *rand.Rand
}

func DefaultGeneratorOptions() GeneratorOptions {
	return GeneratorOptions{AutoReset: true, GlobalNode: true}
}

// Sample is one isolate served by a DataGenerator.
type Sample struct {
	// Features is an (n_nodes, 1) column.
	Features *tensor.Dense
	Label    float64
	// Label2 is only meaningful when HasLabel2 is set.
	Label2    int
	HasLabel2 bool
}

// Vector returns the sample's features as a plain slice.
func (s Sample) Vector() []float64 {
	return s.Features.Float64s()
}

// DataGenerator serves samples one at a time in a reshufflable order.
type DataGenerator struct {
	features []*tensor.Dense
	labels   []float64
	labels2  []int
	shift    float64

	autoReset bool
	nNodes    int
	n         int
	index     []int
	rng       *rand.Rand
}

// NewDataGenerator wraps a samples x nodes feature tensor, one label per
// sample and optional secondary class labels (nil when absent). Labels are
// shifted up by min(|labels|) so a leaky-ReLU output layer can reach them.
func NewDataGenerator(features *tensor.Dense, labels []float64, labels2 []int, opts GeneratorOptions) (*DataGenerator, error) {
	rows, err := Rows(features)
	if err != nil {
		return nil, err
	}
	if len(rows) != len(labels) {
		return nil, errors.Wrapf(ErrLengthMismatch, "%d features, %d labels", len(rows), len(labels))
	}
	if len(labels) == 0 {
		return nil, errors.New("no samples")
	}
	if labels2 != nil && len(labels2) != len(labels) {
		return nil, errors.Wrapf(ErrLengthMismatch, "%d labels_2, %d labels", len(labels2), len(labels))
	}

	g := &DataGenerator{
		features:  parseFeatures(rows, opts.GlobalNode && !opts.PreConvolved),
		shift:     labelShift(labels),
		autoReset: opts.AutoReset,
		rng:       opts.Rand,
	}
	g.labels = make([]float64, len(labels))
	for i, l := range labels {
		g.labels[i] = l + g.shift
	}
	if labels2 != nil {
		g.labels2 = append([]int(nil), labels2...)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(0))
	}
	g.nNodes = g.features[0].Shape()[0]
	g.index = make([]int, len(labels))
	for i := range g.index {
		g.index[i] = i
	}
	return g, nil
}

func parseFeatures(rows [][]float64, globalNode bool) []*tensor.Dense {
	out := make([]*tensor.Dense, len(rows))
	for i, r := range rows {
		if globalNode {
			r = append(r, GlobalNodeValue)
		}
		out[i] = tensor.New(tensor.WithShape(len(r), 1), tensor.WithBacking(r))
	}
	return out
}

func labelShift(labels []float64) float64 {
	shift := math.Inf(1)
	for _, l := range labels {
		shift = math.Min(shift, math.Abs(l))
	}
	return shift
}

func (g *DataGenerator) NNodes() int { return g.nNodes }

func (g *DataGenerator) NSamples() int { return len(g.labels) }

// Cursor is the number of samples served since the last reset.
func (g *DataGenerator) Cursor() int { return g.n }

// Shift is the amount added to every raw label.
func (g *DataGenerator) Shift() float64 { return g.shift }

func (g *DataGenerator) HasLabels2() bool { return g.labels2 != nil }

// NextSample returns the sample under the cursor and advances it. With auto
// reset, serving the last sample rewinds the cursor to 0.
func (g *DataGenerator) NextSample() (Sample, error) {
	if g.n >= len(g.labels) {
		return Sample{}, ErrExhausted
	}
	g.n++
	s := g.sample(g.n - 1)
	if g.n == len(g.labels) && g.autoReset {
		g.Reset()
	}
	return s, nil
}

func (g *DataGenerator) sample(i int) Sample {
	s := Sample{Features: g.features[i], Label: g.labels[i]}
	if g.labels2 != nil {
		s.Label2 = g.labels2[i]
		s.HasLabel2 = true
	}
	return s
}

// Reset rewinds the cursor to the first sample.
func (g *DataGenerator) Reset() {
	g.n = 0
}

// Shuffle reorders features, labels and labels_2 by one random permutation.
// The cursor is left where it is.
func (g *DataGenerator) Shuffle() {
	g.rng.Shuffle(len(g.index), func(i, j int) {
		g.index[i], g.index[j] = g.index[j], g.index[i]
	})

	features := make([]*tensor.Dense, len(g.features))
	labels := make([]float64, len(g.labels))
	for j, i := range g.index {
		features[j] = g.features[i]
		labels[j] = g.labels[i]
	}
	if g.labels2 != nil {
		labels2 := make([]int, len(g.labels2))
		for j, i := range g.index {
			labels2[j] = g.labels2[i]
		}
		g.labels2 = labels2
	}
	g.features = features
	g.labels = labels
}

// Labels returns a copy of the shifted labels in serving order.
func (g *DataGenerator) Labels() []float64 {
	return append([]float64(nil), g.labels...)
}
