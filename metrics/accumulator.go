package metrics

import (
	"math"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultGradientBatch is the trailing window used for slopes and averages.
const DefaultGradientBatch = 10

// Series names one of the four tracked epoch metrics.
type Series int

const (
	TrainingLoss Series = iota
	TrainingAcc
	TestingLoss
	TestingAcc
	numSeries
)

func (s Series) String() string {
	switch s {
	case TrainingLoss:
		return "Training Data Loss"
	case TrainingAcc:
		return "Training Data Accuracy"
	case TestingLoss:
		return "Testing Data Loss"
	case TestingAcc:
		return "Testing Data Accuracy"
	}
	return "Unknown"
}

// MetricAccumulator records per-epoch loss and accuracy for the training and
// testing data together with the trailing slope of each series. Series are
// append-only.
type MetricAccumulator struct {
	gradientBatch int
	values        [numSeries][]float64
	grads         [numSeries][]float64
	logger        *zap.Logger
}

// NewMetricAccumulator returns an accumulator with the given trailing window;
// non-positive values fall back to DefaultGradientBatch. A nil logger
// discards output.
func NewMetricAccumulator(gradientBatch int, logger *zap.Logger) *MetricAccumulator {
	if gradientBatch <= 0 {
		gradientBatch = DefaultGradientBatch
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetricAccumulator{gradientBatch: gradientBatch, logger: logger}
}

func (a *MetricAccumulator) GradientBatch() int {
	return a.gradientBatch
}

// Add records one epoch: training loss, training accuracy, testing loss and
// testing accuracy. Extra values (validation) are ignored.
func (a *MetricAccumulator) Add(epochResults []float64) error {
	if len(epochResults) < int(numSeries) {
		return errors.Errorf("epoch results: got %d values, want at least %d", len(epochResults), numSeries)
	}
	for s := Series(0); s < numSeries; s++ {
		a.values[s] = append(a.values[s], epochResults[s])
	}
	for s := Series(0); s < numSeries; s++ {
		a.grads[s] = append(a.grads[s], a.MetricGradient(a.values[s]))
	}
	return nil
}

// Len is the number of epochs recorded.
func (a *MetricAccumulator) Len() int {
	return len(a.values[TrainingLoss])
}

// Values returns a copy of a metric series.
func (a *MetricAccumulator) Values(s Series) []float64 {
	return append([]float64(nil), a.values[s]...)
}

// Gradients returns a copy of the slope series of a metric.
func (a *MetricAccumulator) Gradients(s Series) []float64 {
	return append([]float64(nil), a.grads[s]...)
}

func (a *MetricAccumulator) window(x []float64) []float64 {
	if len(x) > a.gradientBatch {
		return x[len(x)-a.gradientBatch:]
	}
	return x
}

// MetricGradient is (last - first) / len over the trailing window, rounded
// to two decimals.
func (a *MetricAccumulator) MetricGradient(x []float64) float64 {
	data := a.window(x)
	if len(data) == 0 {
		return 0
	}
	g := (data[len(data)-1] - data[0]) / float64(len(data))
	if math.IsNaN(g) || math.IsInf(g, 0) {
		return g
	}
	rounded, err := stats.Round(g, 2)
	if err != nil {
		return g
	}
	return rounded
}

// AvgGradient is the mean of the trailing window, 0 when x is empty.
func (a *MetricAccumulator) AvgGradient(x []float64) float64 {
	data := a.window(x)
	if len(data) == 0 {
		return 0
	}
	mean, err := stats.Mean(data)
	if err != nil {
		return 0
	}
	return mean
}

// AverageGradients returns AvgGradient of each slope series.
func (a *MetricAccumulator) AverageGradients() [4]float64 {
	var avg [4]float64
	for s := Series(0); s < numSeries; s++ {
		avg[s] = a.AvgGradient(a.grads[s])
	}
	return avg
}

// LogGradients logs the average slope of every series over the last window.
func (a *MetricAccumulator) LogGradients(epoch int) {
	lastEpoch := epoch - a.gradientBatch
	if lastEpoch < 0 {
		lastEpoch = 0
	}
	avg := a.AverageGradients()
	a.logger.Info("average gradient",
		zap.Int("epoch", epoch),
		zap.Int("since_epoch", lastEpoch),
		zap.Float64("training_data_loss_gradient", avg[TrainingLoss]),
		zap.Float64("training_data_accuracy_gradient", avg[TrainingAcc]),
		zap.Float64("testing_data_loss_gradient", avg[TestingLoss]),
		zap.Float64("testing_data_accuracy_gradient", avg[TestingAcc]),
	)
}
