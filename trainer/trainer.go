package trainer

import (
	"context"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"amrnet/data"
	"amrnet/metrics"
	"amrnet/neuralnet"
)

// Trainer runs the epoch loop for one MICPredictor, optionally trained
// against an Adversary that predicts a confounder from the hidden layer.
type Trainer struct {
	cfg    Config
	logger *zap.Logger
	rng    *rand.Rand

	model     *neuralnet.MICPredictor
	adversary *neuralnet.Adversary
	optimizer neuralnet.Optimizer

	train, validation, test *data.DataGenerator

	accumulator *metrics.MetricAccumulator
}

// EpochResult is the aggregate of one epoch. Losses are mean squared errors
// and accuracies essential agreement on the raw log2 MIC scale.
type EpochResult struct {
	Epoch             int
	TrainingLoss      float64
	TrainingAcc       float64
	TestingLoss       float64
	TestingAcc        float64
	ValidationLoss    float64
	ValidationAcc     float64
	AdversaryAccuracy float64
	LearningRate      float64
}

func (r EpochResult) values() []float64 {
	return []float64{
		r.TrainingLoss, r.TrainingAcc,
		r.TestingLoss, r.TestingAcc,
		r.ValidationLoss, r.ValidationAcc,
	}
}

// New validates cfg and prepares a trainer. Data is loaded by Run.
func New(cfg Config, logger *zap.Logger) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trainer{
		cfg:         cfg,
		logger:      logger,
		rng:         rand.New(rand.NewSource(cfg.Seed)),
		optimizer:   &neuralnet.SGD{},
		accumulator: metrics.NewMetricAccumulator(cfg.GradientBatch, logger),
	}, nil
}

func (t *Trainer) Model() *neuralnet.MICPredictor { return t.model }

func (t *Trainer) Adversary() *neuralnet.Adversary { return t.adversary }

func (t *Trainer) Accumulator() *metrics.MetricAccumulator { return t.accumulator }

// LabelShift is the offset the training generator added to raw labels; the
// model predicts on that shifted scale.
func (t *Trainer) LabelShift() float64 { return t.train.Shift() }

// Run loads the data, trains for the configured number of epochs and writes
// the summary, plots and checkpoint that the config asks for. Cancelling ctx
// stops training between epochs and returns the context's error.
func (t *Trainer) Run(ctx context.Context) ([]EpochResult, error) {
	if err := t.prepare(); err != nil {
		return nil, err
	}

	var results []EpochResult
	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := t.runEpoch(epoch)
		if err != nil {
			return results, err
		}
		results = append(results, res)

		if err := t.accumulator.Add(res.values()); err != nil {
			return results, err
		}
		if t.cfg.SummaryFile != "" {
			if err := data.WriteEpochResults(epoch, res.values(), t.cfg.SummaryFile); err != nil {
				return results, err
			}
		}
		t.logger.Info("epoch complete",
			zap.Int("epoch", epoch),
			zap.Float64("lr", res.LearningRate),
			zap.Float64("training_data_loss", res.TrainingLoss),
			zap.Float64("training_data_acc", res.TrainingAcc),
			zap.Float64("testing_data_loss", res.TestingLoss),
			zap.Float64("testing_data_acc", res.TestingAcc),
			zap.Float64("validation_data_loss", res.ValidationLoss),
			zap.Float64("validation_data_acc", res.ValidationAcc),
		)
		if t.adversary != nil {
			t.logger.Debug("adversary", zap.Int("epoch", epoch), zap.Float64("testing_accuracy", res.AdversaryAccuracy))
		}
		if epoch%t.accumulator.GradientBatch() == 0 {
			t.accumulator.LogGradients(epoch)
		}
	}

	if err := t.logCategoricalAgreement(); err != nil {
		return results, err
	}
	if err := t.finish(); err != nil {
		return results, err
	}
	return results, nil
}

func (t *Trainer) prepare() error {
	cfg := t.cfg
	trainSplit, err := data.LoadTrainingData(cfg.DataDir, cfg.K)
	if err != nil {
		return err
	}
	testSplit, err := data.LoadTestingData(cfg.DataDir, cfg.K)
	if err != nil {
		return err
	}

	var trainLabels2, testLabels2 []int
	if cfg.Adversary.Enabled() {
		trainLabels2, testLabels2, err = data.LoadLabels2(cfg.DataDir,
			cfg.Adversary.Labels == "countries", cfg.Adversary.Labels == "families")
		if err != nil {
			return err
		}
	}

	opts := data.GeneratorOptions{
		AutoReset:    true,
		GlobalNode:   cfg.GlobalNode,
		PreConvolved: trainSplit.Convolved,
		Rand:         t.rng,
	}

	train, validation, err := splitValidation(trainSplit, trainLabels2, cfg.ValidationFraction, t.rng)
	if err != nil {
		return err
	}
	if t.train, err = data.NewDataGenerator(train.features, train.labels, train.labels2, opts); err != nil {
		return errors.Wrap(err, "training data")
	}
	if validation != nil {
		if t.validation, err = data.NewDataGenerator(validation.features, validation.labels, validation.labels2, opts); err != nil {
			return errors.Wrap(err, "validation data")
		}
	}

	testLabels, err := data.Vector(testSplit.Labels)
	if err != nil {
		return errors.Wrap(err, "testing labels")
	}
	if t.test, err = data.NewDataGenerator(testSplit.Features, testLabels, testLabels2, opts); err != nil {
		return errors.Wrap(err, "testing data")
	}
	if t.test.NNodes() != t.train.NNodes() {
		return errors.Errorf("testing data has %d nodes, training data %d", t.test.NNodes(), t.train.NNodes())
	}

	activation, err := neuralnet.ActivationByName(cfg.Activation)
	if err != nil {
		return err
	}
	t.model = neuralnet.NewMICPredictor(t.train.NNodes(), cfg.Hidden1, cfg.Hidden2, cfg.OutDim,
		cfg.Params(), activation, neuralnet.NewLeakyReLU(neuralnet.DefaultLeakySlope))
	t.model.InitialiseWeightsAndBiases(cfg.Seed)

	if cfg.Adversary.Enabled() {
		classes := numClasses(trainLabels2, testLabels2)
		t.adversary = neuralnet.NewAdversary(cfg.Hidden2, classes, cfg.AdversaryParams())
		t.adversary.InitialiseWeightsAndBiases(cfg.Seed)
	}

	t.logger.Info("data loaded",
		zap.Int("training_samples", t.train.NSamples()),
		zap.Int("testing_samples", t.test.NSamples()),
		zap.Int("validation_samples", samples(t.validation)),
		zap.Int("nodes", t.train.NNodes()),
		zap.Bool("adversary", t.adversary != nil),
	)
	return nil
}

func samples(g *data.DataGenerator) int {
	if g == nil {
		return 0
	}
	return g.NSamples()
}

func numClasses(label2s ...[]int) int {
	max := 0
	for _, ls := range label2s {
		for _, l := range ls {
			if l > max {
				max = l
			}
		}
	}
	return max + 1
}

func (t *Trainer) runEpoch(epoch int) (EpochResult, error) {
	lr := t.model.Params.LearningRateAt(epoch-1, t.cfg.Epochs)
	t.model.Params.Lr = lr
	if t.adversary != nil {
		t.adversary.Params.Lr = t.adversary.Params.LearningRateAt(epoch-1, t.cfg.Epochs)
	}

	t.train.Shuffle()
	t.train.Reset()
	for i := 0; i < t.train.NSamples(); i++ {
		s, err := t.train.NextSample()
		if err != nil {
			return EpochResult{}, err
		}
		if err := t.step(s); err != nil {
			return EpochResult{}, err
		}
	}

	res := EpochResult{Epoch: epoch, LearningRate: lr}
	var err error
	if res.TrainingLoss, res.TrainingAcc, _, err = t.evaluate(t.train); err != nil {
		return res, err
	}
	if res.TestingLoss, res.TestingAcc, res.AdversaryAccuracy, err = t.evaluate(t.test); err != nil {
		return res, err
	}
	res.ValidationLoss, res.ValidationAcc = math.NaN(), math.NaN()
	if t.validation != nil {
		if res.ValidationLoss, res.ValidationAcc, _, err = t.evaluate(t.validation); err != nil {
			return res, err
		}
	}
	if math.IsNaN(res.TrainingLoss) {
		return res, errors.Errorf("epoch %d: training loss is NaN", epoch)
	}
	return res, nil
}

// step trains on one sample. With an adversary, the adversary learns to
// predict the confounder while the predictor receives the reversed
// adversary gradient scaled by lambda.
func (t *Trainer) step(s data.Sample) error {
	out, hidden := t.model.Forward(s.Vector(), true)
	dOut := 2 * (out - s.Label)

	var dHidden []float64
	if t.adversary != nil && s.HasLabel2 {
		t.adversary.Forward(hidden)
		dHidden = t.adversary.Backward(s.Label2)
		for i := range dHidden {
			dHidden[i] *= -t.cfg.Adversary.Lambda
		}
		if err := t.optimizer.Apply(&t.adversary.Params, []*neuralnet.Layer{t.adversary.Layer}, 1); err != nil {
			return err
		}
	}
	t.model.Backward(dOut, dHidden)
	return t.optimizer.Apply(&t.model.Params, t.model.Layers, 1)
}

// evaluate returns loss and accuracy over every sample of g without dropout,
// on the raw log2 MIC scale, plus adversary accuracy when it applies.
func (t *Trainer) evaluate(g *data.DataGenerator) (float64, float64, float64, error) {
	predicted, measured, advProbs, advLabels, err := t.predictAll(g)
	if err != nil {
		return 0, 0, 0, err
	}
	loss := (&neuralnet.MSE{}).Compute(predicted, measured)
	acc, err := metrics.EssentialAgreement(predicted, measured)
	if err != nil {
		return 0, 0, 0, err
	}
	advAcc := math.NaN()
	if len(advProbs) > 0 {
		if advAcc, err = metrics.CountryAccuracy(advProbs, advLabels); err != nil {
			return 0, 0, 0, err
		}
	}
	return loss, acc, advAcc, nil
}

func (t *Trainer) predictAll(g *data.DataGenerator) ([]float64, []float64, [][]float64, []int, error) {
	predicted := make([]float64, 0, g.NSamples())
	measured := make([]float64, 0, g.NSamples())
	var advProbs [][]float64
	var advLabels []int

	g.Reset()
	for i := 0; i < g.NSamples(); i++ {
		s, err := g.NextSample()
		if err != nil {
			return nil, nil, nil, nil, err
		}
		out, hidden := t.model.Forward(s.Vector(), false)
		predicted = append(predicted, out-t.train.Shift())
		measured = append(measured, s.Label-g.Shift())
		if t.adversary != nil && s.HasLabel2 {
			advProbs = append(advProbs, t.adversary.Forward(hidden))
			advLabels = append(advLabels, s.Label2)
		}
	}
	return predicted, measured, advProbs, advLabels, nil
}

func (t *Trainer) logCategoricalAgreement() error {
	if t.cfg.Drug == "" {
		return nil
	}
	boundary, _ := metrics.Breakpoint(t.cfg.Drug)
	predicted, measured, _, _, err := t.predictAll(t.test)
	if err != nil {
		return err
	}
	p := metrics.ResistantOrSensitive(predicted, boundary)
	m := metrics.ResistantOrSensitive(measured, boundary)
	ca, err := metrics.CategoricalAgreement(p, m)
	if err != nil {
		return err
	}
	vme, err := metrics.VeryMajorErrorRate(p, m)
	if err != nil {
		return err
	}
	me, err := metrics.MajorErrorRate(p, m)
	if err != nil {
		return err
	}
	t.logger.Info("testing data categorical agreement",
		zap.String("drug", t.cfg.Drug),
		zap.Float64("breakpoint", boundary),
		zap.Float64("categorical_agreement", ca),
		zap.Float64("very_major_error_rate", vme),
		zap.Float64("major_error_rate", me),
	)
	return nil
}

func (t *Trainer) finish() error {
	if dir := t.cfg.PlotDir; dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "creating %s", dir)
		}
		if err := t.accumulator.SavePlot(filepath.Join(dir, "loss.png"), "Loss",
			metrics.TrainingLoss, metrics.TestingLoss); err != nil {
			return err
		}
		if err := t.accumulator.SavePlot(filepath.Join(dir, "accuracy.png"), "Accuracy",
			metrics.TrainingAcc, metrics.TestingAcc); err != nil {
			return err
		}
	}
	if dir := t.cfg.CheckpointDir; dir != "" {
		if err := SaveCheckpoint(dir, t); err != nil {
			return err
		}
		t.logger.Info("checkpoint saved", zap.String("dir", dir))
	}
	return nil
}
