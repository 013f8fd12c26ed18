package quality

import (
	"strconv"
	"strings"
)

// Envelope statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Details echoes the validated readings.
type Details struct {
	PH        float64 `json:"ph"`
	Turbidity float64 `json:"turbidity"`
	Nitrate   float64 `json:"nitrate"`
	Lead      float64 `json:"lead"`
	Oxygen    float64 `json:"oxygen"`
}

// Envelope is the single value returned to the HTTP boundary. Exactly one of
// the success fields or Message is populated, depending on Status.
type Envelope struct {
	Status          string   `json:"status"`
	Prediction      string   `json:"prediction,omitempty"`
	Confidence      string   `json:"confidence,omitempty"`
	Summary         string   `json:"-"`
	Details         *Details `json:"details,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	Message         string   `json:"message,omitempty"`
}

// OK reports whether e is a success envelope.
func (e Envelope) OK() bool {
	return e.Status == StatusSuccess
}

// StatusLine is the one-line outcome shown above the form.
func (e Envelope) StatusLine() string {
	if e.OK() {
		return e.Prediction + " (Confidence: " + e.Confidence + ")"
	}
	return "Error: " + e.Message
}

// Compose builds a success envelope.
func Compose(v FeatureVector, res ClassificationResult, recs []string) Envelope {
	d := v.Details()
	return Envelope{
		Status:          StatusSuccess,
		Prediction:      res.Prediction,
		Confidence:      FormatConfidence(res.Confidence),
		Summary:         res.Summary,
		Details:         &d,
		Recommendations: recs,
	}
}

// Failure builds an error envelope carrying message.
func Failure(message string) Envelope {
	return Envelope{Status: StatusError, Message: message}
}

// ErrorEnvelope builds the error envelope for err, hiding anything that is not
// a validation error.
func ErrorEnvelope(err error) Envelope {
	return Failure(PublicMessage(err))
}

// FormatConfidence renders a percentage with at least one decimal digit,
// e.g. 92 -> "92.0%", 66.67 -> "66.67%".
func FormatConfidence(pct float64) string {
	s := strconv.FormatFloat(pct, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s + "%"
}
