package neuralnet

import (
	"fmt"
	"math"
)

// DefaultLeakySlope matches the negative slope most frameworks default to.
const DefaultLeakySlope = 0.01

// ActivationFunction is an element-wise nonlinearity and its derivative.
type ActivationFunction interface {
	Activate(x float64) float64
	Derivative(x float64) float64
}

// ReLU is max(x, 0).
type ReLU struct{}

func (r ReLU) Activate(x float64) float64 {
	return math.Max(x, 0)
}

func (r ReLU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

// LeakyReLU passes positive inputs and scales negative ones by alpha.
type LeakyReLU struct {
	alpha float64
}

func NewLeakyReLU(alpha float64) LeakyReLU {
	return LeakyReLU{alpha: alpha}
}

func (l LeakyReLU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return l.alpha * x
}

func (l LeakyReLU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return l.alpha
}

// Sigmoid is the logistic function.
type Sigmoid struct{}

func (s Sigmoid) Activate(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func (s Sigmoid) Derivative(x float64) float64 {
	sigmoid := s.Activate(x)
	return sigmoid * (1 - sigmoid)
}

// Tanh is the hyperbolic tangent.
type Tanh struct{}

func (t Tanh) Activate(x float64) float64 {
	return math.Tanh(x)
}

func (t Tanh) Derivative(x float64) float64 {
	tanh := t.Activate(x)
	return 1 - tanh*tanh
}

// Linear is the identity.
type Linear struct{}

func (t Linear) Activate(x float64) float64 {
	return x
}

func (t Linear) Derivative(x float64) float64 {
	return 1
}

// ActivationByName resolves the names accepted in training configs.
// An empty name means leaky ReLU.
func ActivationByName(name string) (ActivationFunction, error) {
	switch name {
	case "", "leaky_relu":
		return NewLeakyReLU(DefaultLeakySlope), nil
	case "relu":
		return ReLU{}, nil
	case "sigmoid":
		return Sigmoid{}, nil
	case "tanh":
		return Tanh{}, nil
	case "linear":
		return Linear{}, nil
	}
	return nil, fmt.Errorf("unknown activation %q", name)
}
