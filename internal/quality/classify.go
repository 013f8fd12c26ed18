package quality

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Classifier is a pre-trained binary classifier. Implementations must be safe
// for concurrent use.
type Classifier interface {
	// Classify returns the predicted label and the per-class probabilities,
	// ordered by class.
	Classify(features []float64) (label int, probabilities []float64, err error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(features []float64) (int, []float64, error)

func (f ClassifierFunc) Classify(features []float64) (int, []float64, error) {
	return f(features)
}

// Human-readable verdicts.
const (
	LabelSafe    = "Safe for consumption"
	LabelNotSafe = "Not safe for consumption"

	summarySafe    = "The water meets quality standards based on the provided parameters."
	summaryNotSafe = "The water does not meet quality standards and may pose health risks."
)

// ClassificationResult is the post-processed classifier output.
type ClassificationResult struct {
	Label      int
	Prediction string
	Summary    string
	// Confidence is the highest class probability as a percentage,
	// rounded to two decimal places.
	Confidence float64
}

// Safe reports whether the sample was classified as drinkable.
func (r ClassificationResult) Safe() bool {
	return r.Label == 1
}

var errNoProbabilities = errors.New("classifier returned no probabilities")

// Classify runs c on v and post-processes the output.
// Any classifier failure is returned as an *InferenceError.
func Classify(c Classifier, v FeatureVector) (ClassificationResult, error) {
	label, probs, err := c.Classify(v.Slice())
	if err != nil {
		return ClassificationResult{}, &InferenceError{Err: err}
	}
	if len(probs) == 0 {
		return ClassificationResult{}, &InferenceError{Err: errNoProbabilities}
	}

	res := ClassificationResult{Label: label}
	switch label {
	case 1:
		res.Prediction, res.Summary = LabelSafe, summarySafe
	case 0:
		res.Prediction, res.Summary = LabelNotSafe, summaryNotSafe
	default:
		return ClassificationResult{}, &InferenceError{Err: fmt.Errorf("unexpected class label %d", label)}
	}

	conf, err := confidence(probs)
	if err != nil {
		return ClassificationResult{}, &InferenceError{Err: err}
	}
	res.Confidence = conf
	return res, nil
}

func confidence(probs []float64) (float64, error) {
	best := math.Inf(-1)
	for _, p := range probs {
		if math.IsNaN(p) {
			return 0, errors.New("classifier returned NaN probability")
		}
		best = math.Max(best, p)
	}
	// FormatFloat rounds the exact binary value, sending ties to even.
	pct, err := strconv.ParseFloat(strconv.FormatFloat(best*100, 'f', 2, 64), 64)
	if err != nil {
		return 0, err
	}
	return math.Min(math.Max(pct, 0), 100), nil
}
