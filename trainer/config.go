package trainer

import (
	"io/ioutil"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"amrnet/metrics"
	"amrnet/neuralnet"
)

// AdversaryConfig enables adversarial training against a confounder label.
type AdversaryConfig struct {
	// Labels is "countries", "families" or empty to disable the adversary.
	Labels       string  `yaml:"labels"`
	Lambda       float64 `yaml:"lambda"`
	LearningRate float64 `yaml:"learning_rate"`
}

func (a AdversaryConfig) Enabled() bool {
	return a.Labels != ""
}

type Config struct {
	DataDir    string `yaml:"data_dir"`
	K          int    `yaml:"k"`
	GlobalNode bool   `yaml:"global_node"`

	Hidden1    int     `yaml:"hidden_1"`
	Hidden2    int     `yaml:"hidden_2"`
	OutDim     int     `yaml:"out_dim"`
	Dropout    float64 `yaml:"dropout"`
	Activation string  `yaml:"activation"`
	Seed       int64   `yaml:"seed"`

	Epochs       int     `yaml:"epochs"`
	LearningRate float64 `yaml:"learning_rate"`
	LrDecay      float64 `yaml:"lr_decay"`
	LrSchedule   string  `yaml:"lr_schedule"`
	WarmupEpochs int     `yaml:"warmup_epochs"`
	L2           float64 `yaml:"l2"`
	Momentum     float64 `yaml:"momentum"`

	ValidationFraction float64 `yaml:"validation_fraction"`
	GradientBatch      int     `yaml:"gradient_batch"`
	// Drug selects the breakpoint used for R/S calls, e.g. "cro".
	Drug string `yaml:"drug"`

	SummaryFile   string `yaml:"summary_file"`
	PlotDir       string `yaml:"plot_dir"`
	CheckpointDir string `yaml:"checkpoint_dir"`

	Adversary AdversaryConfig `yaml:"adversary"`
}

func DefaultConfig() Config {
	return Config{
		GlobalNode:         true,
		Hidden1:            64,
		Hidden2:            32,
		OutDim:             1,
		Dropout:            0.2,
		Activation:         "leaky_relu",
		Epochs:             100,
		LearningRate:       0.0001,
		LrDecay:            1,
		LrSchedule:         "none",
		ValidationFraction: 0.1,
		GradientBatch:      metrics.DefaultGradientBatch,
		Adversary: AdversaryConfig{
			Lambda:       1,
			LearningRate: 0.0001,
		},
	}
}

// LoadConfig reads a YAML file over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	buf, err := ioutil.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "reading %s", path)
	}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing %s", path)
	}
	return cfg, nil
}

// Save writes cfg as YAML.
func (c Config) Save(path string) error {
	buf, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encoding config")
	}
	return errors.Wrapf(ioutil.WriteFile(path, buf, 0644), "writing %s", path)
}

// ValidateModel checks only the architecture fields, for commands that
// build a model without training data.
func (c Config) ValidateModel() error {
	switch {
	case c.Hidden1 <= 0 || c.Hidden2 <= 0 || c.OutDim <= 0:
		return errors.New("layer sizes must be positive")
	case c.Dropout < 0 || c.Dropout >= 1:
		return errors.New("dropout must be in [0, 1)")
	}
	_, err := neuralnet.ActivationByName(c.Activation)
	return err
}

func (c Config) Validate() error {
	if err := c.ValidateModel(); err != nil {
		return err
	}
	switch {
	case c.DataDir == "":
		return errors.New("data_dir is required")
	case c.K < 0:
		return errors.New("k must not be negative")
	case c.Epochs <= 0:
		return errors.New("epochs must be positive")
	case c.LearningRate <= 0:
		return errors.New("learning_rate must be positive")
	case c.ValidationFraction < 0 || c.ValidationFraction >= 1:
		return errors.New("validation_fraction must be in [0, 1)")
	}
	switch c.LrSchedule {
	case "", "none", "cosine", "exponential":
	default:
		return errors.Errorf("unknown lr_schedule %q", c.LrSchedule)
	}
	if c.Drug != "" {
		if _, ok := metrics.Breakpoint(c.Drug); !ok {
			return errors.Errorf("no breakpoint for drug %q", c.Drug)
		}
	}
	switch c.Adversary.Labels {
	case "", "countries", "families":
	default:
		return errors.Errorf("adversary labels must be countries or families, got %q", c.Adversary.Labels)
	}
	return nil
}

// Params returns the predictor's optimisation parameters.
func (c Config) Params() neuralnet.Params {
	p := neuralnet.NewParamsFull(c.LearningRate, c.LrDecay, c.L2, c.Momentum, c.Dropout)
	p.WarmupSteps = c.WarmupEpochs
	p.LrSchedule = c.LrSchedule
	if c.WarmupEpochs > 0 {
		p.InitialLr = 0
	}
	return p
}

// AdversaryParams returns the adversary's optimisation parameters. It
// follows the predictor's schedule with its own learning rate.
func (c Config) AdversaryParams() neuralnet.Params {
	lr := c.Adversary.LearningRate
	if lr <= 0 {
		lr = c.LearningRate
	}
	p := c.Params()
	p.Lr = lr
	p.TargetLr = lr
	if c.WarmupEpochs == 0 {
		p.InitialLr = lr
	}
	p.DropoutRate = 0
	return p
}
