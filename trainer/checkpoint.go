package trainer

import (
	"io/ioutil"
	"math"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"amrnet/data"
	"amrnet/metrics"
	"amrnet/neuralnet"
)

const checkpointFile = "checkpoint.yaml"

// Checkpoint describes a saved model: the config it was trained with and
// what is needed to map its outputs back to log2 MIC.
type Checkpoint struct {
	Config           Config  `yaml:"config"`
	InputSize        int     `yaml:"input_size"`
	LabelShift       float64 `yaml:"label_shift"`
	AdversaryClasses int     `yaml:"adversary_classes,omitempty"`
}

// SaveCheckpoint writes the trained parameters and checkpoint.yaml to dir.
func SaveCheckpoint(dir string, t *Trainer) error {
	if t.model == nil {
		return errors.New("nothing to save: trainer has not run")
	}
	if err := t.model.Save(dir); err != nil {
		return err
	}
	c := Checkpoint{
		Config:     t.cfg,
		InputSize:  t.model.InputSize(),
		LabelShift: t.LabelShift(),
	}
	if t.adversary != nil {
		if err := t.adversary.Save(dir); err != nil {
			return err
		}
		c.AdversaryClasses = t.adversary.NumClasses()
	}
	buf, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encoding checkpoint")
	}
	path := filepath.Join(dir, checkpointFile)
	return errors.Wrapf(ioutil.WriteFile(path, buf, 0644), "writing %s", path)
}

// LoadCheckpoint rebuilds the predictor saved in dir.
func LoadCheckpoint(dir string) (*Checkpoint, *neuralnet.MICPredictor, error) {
	path := filepath.Join(dir, checkpointFile)
	buf, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "reading %s", path)
	}
	c := &Checkpoint{Config: DefaultConfig()}
	if err := yaml.Unmarshal(buf, c); err != nil {
		return nil, nil, errors.Wrapf(err, "parsing %s", path)
	}
	activation, err := neuralnet.ActivationByName(c.Config.Activation)
	if err != nil {
		return nil, nil, err
	}
	model := neuralnet.NewMICPredictor(c.InputSize, c.Config.Hidden1, c.Config.Hidden2, c.Config.OutDim,
		c.Config.Params(), activation, neuralnet.NewLeakyReLU(neuralnet.DefaultLeakySlope))
	if err := model.Load(dir); err != nil {
		return nil, nil, err
	}
	return c, model, nil
}

// Prediction is one row of a predictions file.
type Prediction struct {
	Index   int     `csv:"index"`
	Isolate string  `csv:"isolate"`
	Log2MIC float64 `csv:"log2_mic"`
	MIC     float64 `csv:"mic"`
	// Call is "R" or "S" when the checkpoint names a drug.
	Call string `csv:"call"`
}

// Predict runs the model over every row of split. isolates, when it has one
// entry per row, labels the predictions.
func (c *Checkpoint) Predict(model *neuralnet.MICPredictor, split *data.Split, isolates []string) ([]*Prediction, error) {
	n := split.Features.Shape()[0]
	g, err := data.NewDataGenerator(split.Features, make([]float64, n), nil, data.GeneratorOptions{
		AutoReset:    true,
		GlobalNode:   c.Config.GlobalNode,
		PreConvolved: split.Convolved,
	})
	if err != nil {
		return nil, err
	}
	if g.NNodes() != model.InputSize() {
		return nil, errors.Errorf("features have %d nodes, model expects %d", g.NNodes(), model.InputSize())
	}
	boundary, hasBreakpoint := metrics.Breakpoint(c.Config.Drug)

	preds := make([]*Prediction, 0, n)
	for i := 0; i < n; i++ {
		s, err := g.NextSample()
		if err != nil {
			return nil, err
		}
		logMIC := model.Predict(s.Vector()) - c.LabelShift
		p := &Prediction{Index: i, Log2MIC: logMIC, MIC: math.Pow(2, logMIC)}
		if len(isolates) == n {
			p.Isolate = isolates[i]
		}
		if hasBreakpoint {
			p.Call = "S"
			if metrics.ResistantOrSensitive([]float64{logMIC}, boundary)[0] == metrics.Resistant {
				p.Call = "R"
			}
		}
		preds = append(preds, p)
	}
	return preds, nil
}

// WritePredictions stores predictions as CSV.
func WritePredictions(path string, preds []*Prediction) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer f.Close()
	return errors.Wrapf(gocsv.MarshalFile(&preds, f), "writing %s", path)
}
