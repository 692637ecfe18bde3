package metrics

import (
	"math"
	"strings"

	"github.com/pkg/errors"
)

// Categorical calls.
const (
	Sensitive = 0
	Resistant = 1
)

// Breakpoints are the EUCAST resistance breakpoints (mg/L) for Neisseria
// gonorrhoeae: azithromycin, cefixime, ciprofloxacin, ceftriaxone.
var Breakpoints = map[string]float64{
	"azm": 1,
	"cfx": 0.125,
	"cip": 0.06,
	"cro": 0.125,
}

// Breakpoint looks up a drug code case-insensitively.
func Breakpoint(drug string) (float64, bool) {
	b, ok := Breakpoints[strings.ToLower(drug)]
	return b, ok
}

// ErrLengthMismatch is returned when predictions and labels differ in length.
var ErrLengthMismatch = errors.New("predictions and labels are of unequal lengths")

// CountryAccuracy is the percentage of rows whose highest-scoring class
// equals the label.
func CountryAccuracy(predictions [][]float64, labels []int) (float64, error) {
	if len(predictions) != len(labels) {
		return 0, ErrLengthMismatch
	}
	if len(labels) == 0 {
		return 0, errors.New("no predictions")
	}
	correct := 0
	for i, p := range predictions {
		if argmax(p) == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(labels)) * 100, nil
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// ResistantOrSensitive converts log2 MICs to categorical calls against a
// breakpoint on the linear scale.
func ResistantOrSensitive(mic []float64, boundary float64) []int {
	calls := make([]int, len(mic))
	for i, m := range mic {
		if math.Pow(2, m) <= boundary {
			calls[i] = Sensitive
		} else {
			calls[i] = Resistant
		}
	}
	return calls
}

// EssentialAgreement is the percentage of predictions within one doubling
// dilution (one log2 unit) of the measured MIC.
func EssentialAgreement(predicted, measured []float64) (float64, error) {
	if len(predicted) != len(measured) {
		return 0, ErrLengthMismatch
	}
	if len(predicted) == 0 {
		return 0, errors.New("no predictions")
	}
	agree := 0
	for i := range predicted {
		if math.Abs(predicted[i]-measured[i]) <= 1 {
			agree++
		}
	}
	return float64(agree) / float64(len(predicted)) * 100, nil
}

// CategoricalAgreement is the percentage of matching R/S calls.
func CategoricalAgreement(predicted, measured []int) (float64, error) {
	if len(predicted) != len(measured) {
		return 0, ErrLengthMismatch
	}
	if len(predicted) == 0 {
		return 0, errors.New("no predictions")
	}
	agree := 0
	for i := range predicted {
		if predicted[i] == measured[i] {
			agree++
		}
	}
	return float64(agree) / float64(len(predicted)) * 100, nil
}

// VeryMajorErrorRate is the percentage of resistant isolates called sensitive.
// It is 0 when no isolate is resistant.
func VeryMajorErrorRate(predicted, measured []int) (float64, error) {
	return errorRate(predicted, measured, Resistant, Sensitive)
}

// MajorErrorRate is the percentage of sensitive isolates called resistant.
// It is 0 when no isolate is sensitive.
func MajorErrorRate(predicted, measured []int) (float64, error) {
	return errorRate(predicted, measured, Sensitive, Resistant)
}

func errorRate(predicted, measured []int, truth, wrong int) (float64, error) {
	if len(predicted) != len(measured) {
		return 0, ErrLengthMismatch
	}
	total, errs := 0, 0
	for i := range measured {
		if measured[i] != truth {
			continue
		}
		total++
		if predicted[i] == wrong {
			errs++
		}
	}
	if total == 0 {
		return 0, nil
	}
	return float64(errs) / float64(total) * 100, nil
}
