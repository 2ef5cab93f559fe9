// Package confidence scores how much a prediction should be trusted,
// combining data quality, model certainty, recent historical accuracy and
// contextual match factors into a single value floored at 0.3.
package confidence

import (
	"math"
	"time"

	"matchpredict/internal/ensemble"
	"matchpredict/internal/features"
	"matchpredict/internal/model"
)

// Breakdown exposes the individual confidence factors alongside the
// weighted overall score.
type Breakdown struct {
	DataQuality        float64 `json:"dataQuality"`
	ModelCertainty     float64 `json:"modelCertainty"`
	HistoricalAccuracy float64 `json:"historicalAccuracy"`
	ContextualFactors  float64 `json:"contextualFactors"`
	Overall            float64 `json:"overall"`
}

// Weights for the four factors. They should sum to 1.
type Weights struct {
	DataQuality        float64 `yaml:"dataQuality"`
	ModelCertainty     float64 `yaml:"modelCertainty"`
	HistoricalAccuracy float64 `yaml:"historicalAccuracy"`
	ContextualFactors  float64 `yaml:"contextualFactors"`
}

// DefaultWeights returns the production factor weights.
func DefaultWeights() Weights {
	return Weights{
		DataQuality:        0.25,
		ModelCertainty:     0.30,
		HistoricalAccuracy: 0.30,
		ContextualFactors:  0.15,
	}
}

// OutcomeRecord is one reconciled prediction from the history store.
type OutcomeRecord struct {
	At        time.Time     `json:"at"`
	Predicted model.Outcome `json:"predicted"`
	Actual    model.Outcome `json:"actual"`
	Correct   bool          `json:"correct"`
}

// History supplies recent reconciled outcomes, most recent last.
type History interface {
	RecentOutcomes(n int) ([]OutcomeRecord, error)
}

const (
	// overallFloor keeps reported confidence from reading as certainty of
	// failure; anything below it is indistinguishable noise.
	overallFloor  = 0.3
	historyWindow = 20
	// thinFormGames marks a form string too short to trust.
	thinFormGames = 3
)

// Scorer computes confidence breakdowns.
type Scorer struct {
	weights Weights
	history History
}

// NewScorer creates a scorer. history may be nil, in which case the
// historical factor stays at the cold-start value.
func NewScorer(weights Weights, history History) *Scorer {
	return &Scorer{weights: weights, history: history}
}

// Score computes the confidence breakdown for one prediction.
func (s *Scorer) Score(rec features.MatchRecord, ens ensemble.Result) Breakdown {
	_, maxProb := ens.Probs.Max()

	b := Breakdown{
		DataQuality:        s.dataQuality(rec),
		ModelCertainty:     modelCertainty(maxProb, ens.Probs.Spread()),
		HistoricalAccuracy: s.historicalAccuracy(),
		ContextualFactors:  contextualFactors(rec),
	}
	overall := b.DataQuality*s.weights.DataQuality +
		b.ModelCertainty*s.weights.ModelCertainty +
		b.HistoricalAccuracy*s.weights.HistoricalAccuracy +
		b.ContextualFactors*s.weights.ContextualFactors
	b.Overall = clamp01(overall)
	if b.Overall < overallFloor {
		b.Overall = overallFloor
	}
	return b
}

// dataQuality starts at 1 and shrinks multiplicatively for each missing or
// thin input block.
func (s *Scorer) dataQuality(rec features.MatchRecord) float64 {
	q := 1.0
	if formGames(rec.Home.LastFiveResults) < thinFormGames {
		q *= 0.8
	}
	if formGames(rec.Away.LastFiveResults) < thinFormGames {
		q *= 0.8
	}
	if len(rec.HeadToHead) == 0 {
		q *= 0.85
	}
	if rec.Home.PointsPerGame <= 0 || rec.Away.PointsPerGame <= 0 ||
		rec.Home.LeaguePosition <= 0 || rec.Away.LeaguePosition <= 0 {
		q *= 0.85
	}
	return q
}

func modelCertainty(maxProb, spread float64) float64 {
	switch {
	case maxProb >= 0.6:
		return 0.9
	case maxProb >= 0.5:
		return 0.75
	case spread < 0.15:
		return 0.5
	default:
		return 0.7
	}
}

// historicalAccuracy is a recency-weighted hit rate over the last reconciled
// outcomes. Cold start, an error, or no history at all scores neutral 0.5.
func (s *Scorer) historicalAccuracy() float64 {
	if s.history == nil {
		return 0.5
	}
	records, err := s.history.RecentOutcomes(historyWindow)
	if err != nil || len(records) == 0 {
		return 0.5
	}
	var hits, total float64
	for i, r := range records {
		w := float64(i + 1) // most recent last, weighted highest
		total += w
		if r.Correct {
			hits += w
		}
	}
	return hits / total
}

func contextualFactors(rec features.MatchRecord) float64 {
	f := 1.0
	for _, snap := range []features.TeamSnapshot{rec.Home, rec.Away} {
		if d := snap.DaysSinceLastMatch; d > 0 && (d < 3 || d > 21) {
			f -= 0.15
		}
		if t := snap.ManagerTenureDays; t > 0 && t < 30 {
			f -= 0.1
		}
	}
	if rec.Weather != nil && rec.Weather.Impact > 0.5 {
		f -= 0.2
	}
	return clamp01(f)
}

func formGames(results string) int { return len(results) }

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
