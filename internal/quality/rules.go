package quality

// Comparison is the relation a reading must have with a rule threshold for
// the rule to fire.
type Comparison int

const (
	Below Comparison = iota
	Above
)

func (c Comparison) holds(x, threshold float64) bool {
	if c == Below {
		return x < threshold
	}
	return x > threshold
}

// Rule is one remediation advisory.
// Rules that share a non-empty Group are mutually exclusive; the first one
// that fires wins.
type Rule struct {
	Parameter  string
	Comparison Comparison
	Threshold  float64
	Message    string
	Group      string
}

// FallbackRecommendation is returned when no rule fires.
const FallbackRecommendation = "All parameters are within acceptable ranges."

// DefaultRules is the advisory table, in parameter order.
var DefaultRules = []Rule{
	{ParamPH, Below, 6.5, "pH is too acidic. Consider using a neutralizing filter.", "ph"},
	{ParamPH, Above, 8.5, "pH is too alkaline. Consider using an acid injection system.", "ph"},
	{ParamTurbidity, Above, 5, "High turbidity detected. Consider using a sediment filter or flocculation treatment.", ""},
	{ParamNitrate, Above, 10, "Nitrate levels exceed WHO standards. Consider reverse osmosis or ion exchange treatment.", ""},
	{ParamLead, Above, 10, "Lead concentration exceeds safe limits. Use activated carbon filtration or reverse osmosis.", ""},
	{ParamOxygen, Below, 5, "Low dissolved oxygen levels. Consider aeration or oxygenation treatment.", ""},
}

// Recommend evaluates DefaultRules against v.
func Recommend(v FeatureVector) []string {
	return RecommendWith(DefaultRules, v)
}

// RecommendWith evaluates rules in order against v. The result is never empty.
func RecommendWith(rules []Rule, v FeatureVector) []string {
	var out []string
	fired := make(map[string]bool)

	for _, r := range rules {
		if r.Group != "" && fired[r.Group] {
			continue
		}
		x, ok := v.Value(r.Parameter)
		if !ok || !r.Comparison.holds(x, r.Threshold) {
			continue
		}
		out = append(out, r.Message)
		if r.Group != "" {
			fired[r.Group] = true
		}
	}

	if len(out) == 0 {
		return []string{FallbackRecommendation}
	}
	return out
}
