// Package quality implements the water sample pipeline: input validation,
// classification, rule-based recommendations and response composition.
package quality

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Parameter names, in feature vector order.
const (
	ParamPH        = "ph"
	ParamTurbidity = "turbidity"
	ParamNitrate   = "nitrate"
	ParamLead      = "lead"
	ParamOxygen    = "oxygen"
)

// Parameters lists the measured parameters in the order the classifier expects.
var Parameters = [NumFeatures]string{ParamPH, ParamTurbidity, ParamNitrate, ParamLead, ParamOxygen}

// NumFeatures is the length of a feature vector.
const NumFeatures = 5

// FeatureVector holds validated readings in the order of Parameters.
type FeatureVector [NumFeatures]float64

func (v FeatureVector) PH() float64        { return v[0] }
func (v FeatureVector) Turbidity() float64 { return v[1] }
func (v FeatureVector) Nitrate() float64   { return v[2] }
func (v FeatureVector) Lead() float64      { return v[3] }
func (v FeatureVector) Oxygen() float64    { return v[4] }

// Value returns the reading for the named parameter.
func (v FeatureVector) Value(param string) (float64, bool) {
	for i, name := range Parameters {
		if name == param {
			return v[i], true
		}
	}
	return 0, false
}

// Slice returns a copy of the vector as a slice for the classifier.
func (v FeatureVector) Slice() []float64 {
	out := make([]float64, NumFeatures)
	copy(out, v[:])
	return out
}

// Details returns the readings keyed by parameter name.
func (v FeatureVector) Details() Details {
	return Details{
		PH:        v[0],
		Turbidity: v[1],
		Nitrate:   v[2],
		Lead:      v[3],
		Oxygen:    v[4],
	}
}

// RawInput is an unvalidated set of readings as submitted by a caller.
type RawInput interface {
	Get(name string) (string, bool)
}

// Values is a RawInput backed by a plain map.
type Values map[string]string

func (v Values) Get(name string) (string, bool) {
	s, ok := v[name]
	return s, ok
}

// FormInput adapts submitted form values. Only the first value of a field counts.
type FormInput url.Values

func (f FormInput) Get(name string) (string, bool) {
	vs, ok := f[name]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

type domainCheck struct {
	param  string
	ok     func(float64) bool
	reason string
}

var domainChecks = []domainCheck{
	{ParamPH, func(x float64) bool { return x >= 0 && x <= 14 }, "pH must be between 0 and 14"},
	{ParamTurbidity, nonNegative, "Turbidity cannot be negative"},
	{ParamNitrate, nonNegative, "Nitrate level cannot be negative"},
	{ParamLead, nonNegative, "Lead concentration cannot be negative"},
	{ParamOxygen, nonNegative, "Dissolved oxygen cannot be negative"},
}

func nonNegative(x float64) bool { return x >= 0 }

// Validate parses the five readings and checks their domains.
// Missing fields default to 0. The first violated constraint is reported.
func Validate(raw RawInput) (FeatureVector, error) {
	var v FeatureVector
	for i, param := range Parameters {
		x, err := parseReading(raw, param)
		if err != nil {
			return FeatureVector{}, err
		}
		v[i] = x
	}

	for _, check := range domainChecks {
		x, _ := v.Value(check.param)
		if !check.ok(x) {
			return FeatureVector{}, &ValidationError{Field: check.param, Reason: check.reason}
		}
	}
	return v, nil
}

func parseReading(raw RawInput, param string) (float64, error) {
	s, ok := raw.Get(param)
	if !ok {
		return 0, nil
	}

	x, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, &ValidationError{
			Field:  param,
			Reason: fmt.Sprintf("invalid numeric input for %s: %q", param, s),
		}
	}
	return x, nil
}
