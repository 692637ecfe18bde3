package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestAccumulatorAdd(t *testing.T) {
	a := NewMetricAccumulator(3, nil)
	require.NoError(t, a.Add([]float64{4, 10, 5, 8}))
	require.NoError(t, a.Add([]float64{3, 20, 4, 9}))
	require.NoError(t, a.Add([]float64{2, 30, 4, 12}))
	require.NoError(t, a.Add([]float64{1, 50, 3, 14, 99, 99}))

	assert.Equal(t, 4, a.Len())
	assert.Equal(t, []float64{4, 3, 2, 1}, a.Values(TrainingLoss))
	assert.Equal(t, []float64{8, 9, 12, 14}, a.Values(TestingAcc))

	// window 3: [4] -> 0, [4 3] -> -0.5, [4 3 2] -> -0.67, [3 2 1] -> -0.67
	assert.Equal(t, []float64{0, -0.5, -0.67, -0.67}, a.Gradients(TrainingLoss))
	// [10] -> 0, [10 20] -> 5, [10 20 30] -> 6.67, [20 30 50] -> 10
	assert.Equal(t, []float64{0, 5, 6.67, 10}, a.Gradients(TrainingAcc))
}

func TestAccumulatorAddTooFew(t *testing.T) {
	a := NewMetricAccumulator(0, nil)
	assert.Equal(t, DefaultGradientBatch, a.GradientBatch())
	assert.Error(t, a.Add([]float64{1, 2, 3}))
	assert.Equal(t, 0, a.Len())
}

func TestAccumulatorCopies(t *testing.T) {
	a := NewMetricAccumulator(2, nil)
	require.NoError(t, a.Add([]float64{1, 2, 3, 4}))
	v := a.Values(TrainingLoss)
	v[0] = 100
	assert.Equal(t, []float64{1}, a.Values(TrainingLoss))
}

func TestAvgGradient(t *testing.T) {
	a := NewMetricAccumulator(2, nil)
	assert.Equal(t, 0.0, a.AvgGradient(nil))
	assert.Equal(t, 2.5, a.AvgGradient([]float64{100, 2, 3}))
}

func TestLogGradients(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	a := NewMetricAccumulator(2, zap.New(core))
	require.NoError(t, a.Add([]float64{4, 10, 5, 8}))
	require.NoError(t, a.Add([]float64{2, 20, 4, 9}))

	a.LogGradients(1)
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, int64(1), fields["epoch"])
	assert.Equal(t, int64(0), fields["since_epoch"])
	// slopes [0, -1] -> -0.5
	assert.Equal(t, -0.5, fields["training_data_loss_gradient"])
	assert.Equal(t, 2.5, fields["training_data_accuracy_gradient"])
}

func TestSavePlot(t *testing.T) {
	a := NewMetricAccumulator(2, nil)
	path := filepath.Join(t.TempDir(), "loss.png")
	assert.Error(t, a.SavePlot(path, "loss", TrainingLoss))

	require.NoError(t, a.Add([]float64{4, 10, 5, 8}))
	require.NoError(t, a.Add([]float64{2, 20, 4, 9}))
	require.NoError(t, a.SavePlot(path, "loss", TrainingLoss, TestingLoss))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
