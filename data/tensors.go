package data

import (
	"os"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// ReadNpy loads a NumPy array. float32 arrays are widened to float64 so
// the rest of the package only deals with one dtype.
func ReadNpy(path string) (*tensor.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	t := new(tensor.Dense)
	if err := t.ReadNpy(f); err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	if t.Dtype() == tensor.Float64 {
		return t, nil
	}
	backing, err := float64s(t)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return tensor.New(tensor.WithShape(t.Shape().Clone()...), tensor.WithBacking(backing)), nil
}

// float64s returns the values of t as float64, widening float32.
func float64s(t *tensor.Dense) ([]float64, error) {
	switch t.Dtype() {
	case tensor.Float64:
		return t.Float64s(), nil
	case tensor.Float32:
		src := t.Float32s()
		dst := make([]float64, len(src))
		for i, v := range src {
			dst[i] = float64(v)
		}
		return dst, nil
	}
	return nil, errors.Errorf("unsupported dtype %v", t.Dtype())
}

// WriteNpy stores t at path.
func WriteNpy(path string, t *tensor.Dense) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer f.Close()
	if err := t.WriteNpy(f); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}

// NewMatrix builds a samples x nodes tensor from rows of equal length.
func NewMatrix(rows [][]float64) (*tensor.Dense, error) {
	if len(rows) == 0 {
		return nil, errors.New("no rows")
	}
	cols := len(rows[0])
	backing := make([]float64, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, errors.Errorf("row %d has %d values, want %d", i, len(r), cols)
		}
		backing = append(backing, r...)
	}
	return tensor.New(tensor.WithShape(len(rows), cols), tensor.WithBacking(backing)), nil
}

// NewVector builds a 1-D tensor.
func NewVector(v []float64) *tensor.Dense {
	return tensor.New(tensor.WithShape(len(v)), tensor.WithBacking(append([]float64(nil), v...)))
}

// Rows splits a 2-D float64 or float32 tensor into float64 copies of its rows.
func Rows(t *tensor.Dense) ([][]float64, error) {
	shape := t.Shape()
	if shape.Dims() != 2 {
		return nil, errors.Errorf("expected a 2-D tensor, got shape %v", shape)
	}
	n, m := shape[0], shape[1]
	data, err := float64s(t)
	if err != nil {
		return nil, err
	}
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = append([]float64(nil), data[i*m:(i+1)*m]...)
	}
	return rows, nil
}

// Vector returns the values of a 1-D tensor, or of a column/row 2-D tensor.
func Vector(t *tensor.Dense) ([]float64, error) {
	shape := t.Shape()
	switch {
	case shape.Dims() == 1:
	case shape.Dims() == 2 && (shape[0] == 1 || shape[1] == 1):
	default:
		return nil, errors.Errorf("expected a vector, got shape %v", shape)
	}
	v, err := float64s(t)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), v...), nil
}

// ArgmaxRows returns, per row, the index of the first maximum. One-hot rows
// become class indices.
func ArgmaxRows(t *tensor.Dense) ([]int, error) {
	rows, err := Rows(t)
	if err != nil {
		return nil, err
	}
	idx := make([]int, len(rows))
	for i, r := range rows {
		idx[i] = argmax(r)
	}
	return idx, nil
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
