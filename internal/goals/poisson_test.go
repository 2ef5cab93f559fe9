package goals

import (
	"math"
	"testing"

	"matchpredict/internal/features"
)

func TestPMFSumsToNearlyOne(t *testing.T) {
	for _, lambda := range []float64{0.2, 1.3, 2.7, 4.0} {
		pmf := PMF(lambda, 20)
		var sum float64
		for _, p := range pmf {
			sum += p
		}
		if sum < 0.999 {
			t.Errorf("PMF(%v) mass over 0..20 = %v", lambda, sum)
		}
	}
}

func TestPMFRecurrence(t *testing.T) {
	pmf := PMF(2, 4)
	if math.Abs(pmf[0]-math.Exp(-2)) > 1e-12 {
		t.Errorf("p0 = %v", pmf[0])
	}
	// p3 = e^-2 * 2^3 / 3!
	want := math.Exp(-2) * 8 / 6
	if math.Abs(pmf[3]-want) > 1e-12 {
		t.Errorf("p3 = %v, want %v", pmf[3], want)
	}
}

func TestForRatesScenario(t *testing.T) {
	f := ForRates(1.5, 1.2)

	if f.ExpectedHomeGoals != 1.5 || f.ExpectedAwayGoals != 1.2 {
		t.Errorf("lambdas = %v/%v", f.ExpectedHomeGoals, f.ExpectedAwayGoals)
	}
	if f.MostLikelyScore != (Scoreline{Home: 1, Away: 1}) {
		t.Errorf("most likely score = %v, want 1-1", f.MostLikelyScore)
	}
	if f.Over2_5Prob < 0.45 || f.Over2_5Prob > 0.60 {
		t.Errorf("over 2.5 = %v, want mid-range for total 2.7", f.Over2_5Prob)
	}
	if f.BothTeamsScore <= 0 || f.BothTeamsScore >= 1 {
		t.Errorf("BTTS = %v", f.BothTeamsScore)
	}
}

func TestMostLikelyScoreTieBreaksLow(t *testing.T) {
	// lambda = 1 means p0 == p1 exactly; the tie must resolve to 0.
	f := ForRates(1, 1)
	if f.MostLikelyScore != (Scoreline{Home: 0, Away: 0}) {
		t.Errorf("most likely score = %v, want 0-0 on tie", f.MostLikelyScore)
	}
}

func TestLambdaClamping(t *testing.T) {
	f := ForRates(0.01, 100)
	if f.ExpectedHomeGoals != minLambda {
		t.Errorf("home lambda = %v, want clamped to %v", f.ExpectedHomeGoals, minLambda)
	}
	if f.ExpectedAwayGoals != maxLambda {
		t.Errorf("away lambda = %v, want clamped to %v", f.ExpectedAwayGoals, maxLambda)
	}
}

func TestModelUsesHomeAdvantageAndDefense(t *testing.T) {
	rec := features.MatchRecord{
		Home: features.TeamSnapshot{GoalsPerGame: 2.0, GoalsAgainstPerGame: 1.0},
		Away: features.TeamSnapshot{GoalsPerGame: 1.0, GoalsAgainstPerGame: 2.0},
	}
	f := Model(rec)

	wantHome := (2.0 + 2.0) / 2 * homeAdvantage
	wantAway := (1.0 + 1.0) / 2
	if math.Abs(f.ExpectedHomeGoals-wantHome) > 1e-12 {
		t.Errorf("home lambda = %v, want %v", f.ExpectedHomeGoals, wantHome)
	}
	if math.Abs(f.ExpectedAwayGoals-wantAway) > 1e-12 {
		t.Errorf("away lambda = %v, want %v", f.ExpectedAwayGoals, wantAway)
	}
}

func TestModelDefaultsMissingRates(t *testing.T) {
	f := Model(features.MatchRecord{})
	want := defaultRate * homeAdvantage
	if math.Abs(f.ExpectedHomeGoals-want) > 1e-12 {
		t.Errorf("home lambda = %v, want %v", f.ExpectedHomeGoals, want)
	}
	if f.ExpectedAwayGoals != defaultRate {
		t.Errorf("away lambda = %v, want %v", f.ExpectedAwayGoals, defaultRate)
	}
}

func TestScorelineString(t *testing.T) {
	if s := (Scoreline{Home: 2, Away: 1}).String(); s != "2-1" {
		t.Errorf("String = %q", s)
	}
}
