package trainer

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"amrnet/data"
)

type partition struct {
	features *tensor.Dense
	labels   []float64
	labels2  []int
}

// splitValidation holds out a random fraction of the training split. The
// validation partition is nil when fraction is 0. At least one sample stays
// on each side.
func splitValidation(s *data.Split, labels2 []int, fraction float64, rng *rand.Rand) (*partition, *partition, error) {
	rows, err := data.Rows(s.Features)
	if err != nil {
		return nil, nil, errors.Wrap(err, "training features")
	}
	labels, err := data.Vector(s.Labels)
	if err != nil {
		return nil, nil, errors.Wrap(err, "training labels")
	}
	if len(rows) != len(labels) {
		return nil, nil, errors.Wrapf(data.ErrLengthMismatch, "%d training features, %d labels", len(rows), len(labels))
	}
	if labels2 != nil && len(labels2) != len(labels) {
		return nil, nil, errors.Wrapf(data.ErrLengthMismatch, "%d training labels_2, %d labels", len(labels2), len(labels))
	}

	nVal := int(math.Round(fraction * float64(len(rows))))
	if fraction > 0 && nVal == 0 {
		nVal = 1
	}
	if nVal >= len(rows) {
		nVal = len(rows) - 1
	}
	if nVal <= 0 {
		return &partition{features: s.Features, labels: labels, labels2: labels2}, nil, nil
	}

	perm := rng.Perm(len(rows))
	build := func(idx []int) (*partition, error) {
		p := &partition{labels: make([]float64, len(idx))}
		featureRows := make([][]float64, len(idx))
		if labels2 != nil {
			p.labels2 = make([]int, len(idx))
		}
		for j, i := range idx {
			featureRows[j] = rows[i]
			p.labels[j] = labels[i]
			if labels2 != nil {
				p.labels2[j] = labels2[i]
			}
		}
		features, err := data.NewMatrix(featureRows)
		if err != nil {
			return nil, err
		}
		p.features = features
		return p, nil
	}

	validation, err := build(perm[:nVal])
	if err != nil {
		return nil, nil, err
	}
	train, err := build(perm[nVal:])
	if err != nil {
		return nil, nil, err
	}
	return train, validation, nil
}
