package neuralnet

import "errors"

var ErrInvalidBatchSize = errors.New("invalid batch size")

// Optimizer applies averaged accumulated gradients to a set of layers.
type Optimizer interface {
	Apply(params *Params, layers []*Layer, batchSize int) error
}

// SGD implements stochastic gradient descent with momentum and L2 weight decay.
type SGD struct{}

// Apply updates every layer from its accumulated gradients and then clears them:
//   v = momentum*v - lr*(g/batchSize + L2*w)
//   w = w + v
// Biases are not regularised.
func (o *SGD) Apply(params *Params, layers []*Layer, batchSize int) error {
	if batchSize <= 0 {
		return ErrInvalidBatchSize
	}
	scale := 1 / float64(batchSize)
	for _, l := range layers {
		w := l.Weights.RawMatrix().Data
		gw := l.WeightGrads.RawMatrix().Data
		vw := l.WeightVelocities.RawMatrix().Data
		for k := range w {
			vw[k] = params.MomentumCoefficient*vw[k] - params.Lr*(gw[k]*scale+params.L2*w[k])
			w[k] += vw[k]
		}

		b := l.Bias.RawVector().Data
		gb := l.BiasGrads.RawVector().Data
		vb := l.BiasVelocities.RawVector().Data
		for k := range b {
			vb[k] = params.MomentumCoefficient*vb[k] - params.Lr*gb[k]*scale
			b[k] += vb[k]
		}
		l.ZeroGrads()
	}
	return nil
}
