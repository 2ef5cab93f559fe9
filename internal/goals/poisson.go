// Package goals models the goal distribution of a fixture with independent
// Poisson processes per side, producing a most likely scoreline and the
// standard market probabilities.
package goals

import (
	"fmt"
	"math"

	"matchpredict/internal/features"
)

const (
	homeAdvantage = 1.05
	minLambda     = 0.2
	maxLambda     = 4.0
	maxGridGoals  = 6
	defaultRate   = 1.3
)

// Scoreline is a concrete final score.
type Scoreline struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

func (s Scoreline) String() string { return fmt.Sprintf("%d-%d", s.Home, s.Away) }

// Forecast is the goal-model output for one fixture.
type Forecast struct {
	ExpectedHomeGoals float64   `json:"expectedHomeGoals"`
	ExpectedAwayGoals float64   `json:"expectedAwayGoals"`
	MostLikelyScore   Scoreline `json:"mostLikelyScore"`
	Over2_5Prob       float64   `json:"over2_5Probability"`
	BothTeamsScore    float64   `json:"bothTeamsScoreProbability"`
}

// Model forecasts goals from the record's attacking and defensive per-game
// rates. A side's expected rate averages its own scoring with the
// opposition's conceding; the home side gets the home-advantage boost.
func Model(rec features.MatchRecord) Forecast {
	lambdaHome := clampRate(avg(rate(rec.Home.GoalsPerGame), rate(rec.Away.GoalsAgainstPerGame)) * homeAdvantage)
	lambdaAway := clampRate(avg(rate(rec.Away.GoalsPerGame), rate(rec.Home.GoalsAgainstPerGame)))
	return ForRates(lambdaHome, lambdaAway)
}

// ForRates builds the forecast directly from per-side expected goal rates.
func ForRates(lambdaHome, lambdaAway float64) Forecast {
	lambdaHome = clampRate(lambdaHome)
	lambdaAway = clampRate(lambdaAway)

	homePMF := PMF(lambdaHome, maxGridGoals)
	awayPMF := PMF(lambdaAway, maxGridGoals)

	return Forecast{
		ExpectedHomeGoals: lambdaHome,
		ExpectedAwayGoals: lambdaAway,
		MostLikelyScore:   mostLikelyScore(homePMF, awayPMF),
		Over2_5Prob:       overProb(lambdaHome + lambdaAway),
		BothTeamsScore:    bothScoreProb(homePMF, awayPMF),
	}
}

// PMF returns Poisson probabilities for k = 0..maxK using the recurrence
// p0 = e^-lambda, pk = pk-1 * lambda / k.
func PMF(lambda float64, maxK int) []float64 {
	pmf := make([]float64, maxK+1)
	pmf[0] = math.Exp(-lambda)
	for k := 1; k <= maxK; k++ {
		pmf[k] = pmf[k-1] * lambda / float64(k)
	}
	return pmf
}

// mostLikelyScore scans the joint grid under independence. Ascending loops
// with a strict comparison make ties resolve to the lowest home then away
// goal count.
func mostLikelyScore(homePMF, awayPMF []float64) Scoreline {
	best := Scoreline{}
	bestProb := -1.0
	for h := 0; h <= maxGridGoals; h++ {
		for a := 0; a <= maxGridGoals; a++ {
			if p := homePMF[h] * awayPMF[a]; p > bestProb {
				best, bestProb = Scoreline{Home: h, Away: a}, p
			}
		}
	}
	return best
}

// overProb is P(total goals > 2.5) for a Poisson total.
func overProb(lambdaTotal float64) float64 {
	pmf := PMF(lambdaTotal, 2)
	return clamp01(1 - (pmf[0] + pmf[1] + pmf[2]))
}

// bothScoreProb is P(home >= 1 and away >= 1) under independence.
func bothScoreProb(homePMF, awayPMF []float64) float64 {
	p0h, p0a := homePMF[0], awayPMF[0]
	return clamp01(1 - p0h - p0a + p0h*p0a)
}

// rate substitutes the league-average rate for missing stats.
func rate(v float64) float64 {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return defaultRate
	}
	return v
}

func avg(a, b float64) float64 { return (a + b) / 2 }

func clampRate(lambda float64) float64 {
	if math.IsNaN(lambda) {
		return minLambda
	}
	if lambda < minLambda {
		return minLambda
	}
	if lambda > maxLambda {
		return maxLambda
	}
	return lambda
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
