package data

import (
	"io/ioutil"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteEpochResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.tsv")

	require.NoError(t, WriteEpochResults(1, []float64{1.5, 40, 2, 35, 2.5, 30}, path))
	require.NoError(t, WriteEpochResults(2, []float64{1.25, 45, 1.75, 38, math.NaN(), math.NaN()}, path))

	raw, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "epoch\ttraining_data_loss\ttraining_data_acc\ttesting_data_loss\ttesting_data_acc\tvalidation_data_loss\tvalidation_data_acc", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1\t1.5\t"))

	rows, err := ReadEpochResults(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[1].Epoch)
	assert.Equal(t, 1.75, rows[1].TestingDataLoss)
	assert.True(t, math.IsNaN(rows[1].ValidationDataAcc))
}

func TestWriteEpochResultsWrongLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.tsv")
	assert.Error(t, WriteEpochResults(1, []float64{1, 2, 3, 4}, path))
}
