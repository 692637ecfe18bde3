package neuralnet

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"

	"amrnet/data"
)

// Save writes every predictor parameter to dir as .npy files.
func (m *MICPredictor) Save(dir string) error {
	return saveLayers(dir, "predictor", m.Layers)
}

// Load reads parameters written by Save. Shapes must match the model.
func (m *MICPredictor) Load(dir string) error {
	return loadLayers(dir, "predictor", m.Layers)
}

func (a *Adversary) Save(dir string) error {
	return saveLayers(dir, "adversary", []*Layer{a.Layer})
}

func (a *Adversary) Load(dir string) error {
	return loadLayers(dir, "adversary", []*Layer{a.Layer})
}

func layerFiles(dir, prefix string, i int) (string, string) {
	return filepath.Join(dir, fmt.Sprintf("%s_layer%d_weight.npy", prefix, i)),
		filepath.Join(dir, fmt.Sprintf("%s_layer%d_bias.npy", prefix, i))
}

func saveLayers(dir, prefix string, layers []*Layer) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}
	for i, l := range layers {
		wPath, bPath := layerFiles(dir, prefix, i)
		w := tensor.New(
			tensor.WithShape(l.Out(), l.In()),
			tensor.WithBacking(append([]float64(nil), l.Weights.RawMatrix().Data...)),
		)
		if err := data.WriteNpy(wPath, w); err != nil {
			return err
		}
		b := tensor.New(
			tensor.WithShape(l.Out()),
			tensor.WithBacking(append([]float64(nil), l.Bias.RawVector().Data...)),
		)
		if err := data.WriteNpy(bPath, b); err != nil {
			return err
		}
	}
	return nil
}

func loadLayers(dir, prefix string, layers []*Layer) error {
	for i, l := range layers {
		wPath, bPath := layerFiles(dir, prefix, i)
		w, err := data.ReadNpy(wPath)
		if err != nil {
			return err
		}
		if !w.Shape().Eq(tensor.Shape{l.Out(), l.In()}) {
			return errors.Errorf("%s: shape %v, model expects (%d, %d)", wPath, w.Shape(), l.Out(), l.In())
		}
		b, err := data.ReadNpy(bPath)
		if err != nil {
			return err
		}
		if b.Shape().TotalSize() != l.Out() {
			return errors.Errorf("%s: shape %v, model expects (%d)", bPath, b.Shape(), l.Out())
		}
		l.Weights = mat.NewDense(l.Out(), l.In(), append([]float64(nil), w.Float64s()...))
		l.Bias = mat.NewVecDense(l.Out(), append([]float64(nil), b.Float64s()...))
		l.WeightVelocities.Zero()
		l.BiasVelocities.Zero()
		l.ZeroGrads()
	}
	return nil
}
