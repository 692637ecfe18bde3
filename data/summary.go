package data

import (
	"encoding/csv"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
)

// EpochRow is one line of the epoch summary file.
type EpochRow struct {
	Epoch              int     `csv:"epoch"`
	TrainingDataLoss   float64 `csv:"training_data_loss"`
	TrainingDataAcc    float64 `csv:"training_data_acc"`
	TestingDataLoss    float64 `csv:"testing_data_loss"`
	TestingDataAcc     float64 `csv:"testing_data_acc"`
	ValidationDataLoss float64 `csv:"validation_data_loss"`
	ValidationDataAcc  float64 `csv:"validation_data_acc"`
}

// WriteEpochResults appends one tab-separated row to summaryFile. results
// holds training, testing and validation loss/accuracy in that order. The
// header is written only when the file is created.
func WriteEpochResults(epoch int, results []float64, summaryFile string) error {
	if len(results) != 6 {
		return errors.Errorf("epoch results: got %d values, want 6", len(results))
	}
	_, err := os.Stat(summaryFile)
	create := os.IsNotExist(err)

	f, err := os.OpenFile(summaryFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrapf(err, "opening %s", summaryFile)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = '\t'
	out := gocsv.NewSafeCSVWriter(w)

	rows := []*EpochRow{{
		Epoch:              epoch,
		TrainingDataLoss:   results[0],
		TrainingDataAcc:    results[1],
		TestingDataLoss:    results[2],
		TestingDataAcc:     results[3],
		ValidationDataLoss: results[4],
		ValidationDataAcc:  results[5],
	}}
	if create {
		err = gocsv.MarshalCSV(&rows, out)
	} else {
		err = gocsv.MarshalCSVWithoutHeaders(&rows, out)
	}
	return errors.Wrapf(err, "writing %s", summaryFile)
}

// ReadEpochResults parses a summary file written by WriteEpochResults.
func ReadEpochResults(summaryFile string) ([]*EpochRow, error) {
	f, err := os.Open(summaryFile)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", summaryFile)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	var rows []*EpochRow
	if err := gocsv.UnmarshalCSV(r, &rows); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", summaryFile)
	}
	return rows, nil
}
