// Package predict holds the fixed-coefficient outcome models.
//
// Both models sum named factor contributions into a log-odds value, turn it into a
// probability and clamp it to the configured range. Confidence follows the magnitude of the
// log-odds, not how much data the inputs were built from.
package predict

import (
	"math"
	"sort"

	"github.com/pable/go-cs-coach/internal/model"
)

// combine builds a PredictionResult from factor contributions.
func combine(kind string, factors []model.Factor, clamp, lo, hi float64) model.PredictionResult {
	var l float64
	for i := range factors {
		factors[i].Input = round6(factors[i].Input)
		factors[i].Contribution = round6(factors[i].Contribution)
		l += factors[i].Contribution
	}
	l = math.Max(-clamp, math.Min(clamp, l))

	p := 1 / (1 + math.Exp(-l))
	p = math.Max(lo, math.Min(hi, p))

	sort.SliceStable(factors, func(i, j int) bool {
		ai, aj := math.Abs(factors[i].Contribution), math.Abs(factors[j].Contribution)
		if ai != aj {
			return ai > aj
		}
		return factors[i].Name < factors[j].Name
	})

	return model.PredictionResult{
		Kind:        kind,
		Probability: round6(p),
		LogOdds:     round6(l),
		Confidence:  round6(Confidence(l)),
		Factors:     factors,
	}
}

// Confidence maps log-odds to [0,1): 0 for a coin flip, approaching 1 as the situation
// becomes decisive.
func Confidence(logOdds float64) float64 {
	return math.Tanh(math.Abs(logOdds) / 2)
}

func clampf(x, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, x)) }

func capi(n, limit int) int {
	if n > limit {
		return limit
	}
	return n
}

func round6(x float64) float64 { return math.Round(x*1e6) / 1e6 }
