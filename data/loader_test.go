package data

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func writeFixture(t *testing.T, dir, name string, d *tensor.Dense) {
	t.Helper()
	require.NoError(t, WriteNpy(filepath.Join(dir, name), d))
}

func fixtureDir(t *testing.T) string {
	t.Helper()
	PurgeCaches()
	dir := t.TempDir()

	features, err := NewMatrix([][]float64{{0, 1}, {1, 0}, {1, 1}})
	require.NoError(t, err)
	writeFixture(t, dir, "training_features.npy", features)
	writeFixture(t, dir, "testing_features.npy", features)
	writeFixture(t, dir, "training_labels.npy", NewVector([]float64{-1, 0, 2}))
	writeFixture(t, dir, "testing_labels.npy", NewVector([]float64{1, 1, 1}))

	convolved, err := NewMatrix([][]float64{{5, 5, 5}, {6, 6, 6}, {7, 7, 7}})
	require.NoError(t, err)
	writeFixture(t, dir, "2_convolved_training_features.npy", convolved)

	countries, err := NewMatrix([][]float64{{0, 1, 0}, {1, 0, 0}, {0, 0, 1}})
	require.NoError(t, err)
	writeFixture(t, dir, "training_countries.npy", countries)
	writeFixture(t, dir, "testing_countries.npy", countries)

	csv := "isolate,country,year,extra\nA1,UK,2015,x\nB2,US,2016,y\n"
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "training_metadata.csv"), []byte(csv), 0644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "testing_metadata.csv"), []byte(csv), 0644))
	return dir
}

func TestLoadTrainingData(t *testing.T) {
	dir := fixtureDir(t)

	s, err := LoadTrainingData(dir, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, []int(s.Features.Shape()))
	labels, err := Vector(s.Labels)
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, 0, 2}, labels)
	assert.False(t, s.Convolved)

	conv, err := LoadTrainingData(dir, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3}, []int(conv.Features.Shape()))
	assert.True(t, conv.Convolved)
}

func TestLoadTrainingDataIsCached(t *testing.T) {
	dir := fixtureDir(t)

	first, err := LoadTrainingData(dir, 0)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, "training_features.npy")))

	second, err := LoadTrainingData(dir, 0)
	require.NoError(t, err)
	assert.Same(t, first, second)

	// A different argument evicts the single cached entry.
	_, err = LoadTrainingData(dir, 2)
	require.NoError(t, err)
	_, err = LoadTrainingData(dir, 0)
	assert.Error(t, err)
}

func TestLoadTestingDataMissing(t *testing.T) {
	PurgeCaches()
	_, err := LoadTestingData(t.TempDir(), 0)
	assert.Error(t, err)
}

func TestLoadFloat32Features(t *testing.T) {
	PurgeCaches()
	dir := t.TempDir()
	f32 := tensor.New(tensor.WithShape(2, 2), tensor.WithBacking([]float32{1, 2, 3, 4}))
	writeFixture(t, dir, "testing_features.npy", f32)
	writeFixture(t, dir, "testing_labels.npy", NewVector([]float64{0, 1}))

	s, err := LoadTestingData(dir, 0)
	require.NoError(t, err)
	rows, err := Rows(s.Features)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, rows)
}

func TestLoadMetadata(t *testing.T) {
	dir := fixtureDir(t)
	training, testing, err := LoadMetadata(dir)
	require.NoError(t, err)
	require.Len(t, training, 2)
	assert.Len(t, testing, 2)
	assert.Equal(t, "A1", training[0].Isolate)
	assert.Equal(t, "US", training[1].Country)
	assert.Equal(t, "2016", training[1].Year)
}

func TestLoadLabels2(t *testing.T) {
	dir := fixtureDir(t)
	training, testing, err := LoadLabels2(dir, true, false)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 2}, training)
	assert.Equal(t, []int{1, 0, 2}, testing)

	_, _, err = LoadLabels2(dir, true, true)
	assert.Equal(t, ErrLabelChoice, err)
	_, _, err = LoadLabels2(dir, false, false)
	assert.Equal(t, ErrLabelChoice, err)

	// no families files in the fixture
	_, _, err = LoadLabels2(dir, false, true)
	assert.Error(t, err)
}

func TestArgmaxRowsFirstMaximum(t *testing.T) {
	m, err := NewMatrix([][]float64{{1, 1, 0}, {0, 2, 2}})
	require.NoError(t, err)
	idx, err := ArgmaxRows(m)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, idx)
}
