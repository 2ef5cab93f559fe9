// Package engine orchestrates a prediction request: build the feature
// vector, fan the vector out to every loaded model concurrently, blend the
// survivors, score confidence, and attach the goal forecast.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"matchpredict/internal/confidence"
	"matchpredict/internal/ensemble"
	"matchpredict/internal/features"
	"matchpredict/internal/goals"
	"matchpredict/internal/model"
)

// MetricsSink is the small observation surface the engine needs. A nil sink
// is valid and records nothing.
type MetricsSink interface {
	PredictionsInc()
	ModelFailuresInc()
	ModelTimeoutsInc()
	EnsembleExhaustedInc()
	FeatureDefaultsAdd(n int)
	LatencyObserve(seconds float64)
	ConfidenceObserve(score float64)
}

// PredictionResult is the engine's complete answer for one fixture.
type PredictionResult struct {
	MatchID               string                 `json:"matchId"`
	HomeWinProb           float64                `json:"homeWinProbability"`
	DrawProb              float64                `json:"drawProbability"`
	AwayWinProb           float64                `json:"awayWinProbability"`
	PredictedOutcome      string                 `json:"predictedOutcome"`
	Confidence            float64                `json:"confidence"`
	ConfidenceBreakdown   confidence.Breakdown   `json:"confidenceBreakdown"`
	ModelVersion          string                 `json:"modelVersion,omitempty"`
	PerModelContributions map[string]model.Probs `json:"perModelContributions"`
	GoalForecast          goals.Forecast         `json:"goalForecast"`
	GeneratedAt           time.Time              `json:"generatedAt"`
}

// Engine evaluates match records against a fixed model registry.
type Engine struct {
	registry *model.Registry
	weights  ensemble.Weights
	scorer   *confidence.Scorer
	timeout  time.Duration
	metrics  MetricsSink
}

// New creates an engine. metrics may be nil.
func New(registry *model.Registry, weights ensemble.Weights, scorer *confidence.Scorer, timeout time.Duration, metrics MetricsSink) *Engine {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Engine{
		registry: registry,
		weights:  weights,
		scorer:   scorer,
		timeout:  timeout,
		metrics:  metrics,
	}
}

// Predict runs the full pipeline for one match record. When every model
// fails it returns ensemble.ErrEnsembleExhausted and no partial result.
func (e *Engine) Predict(ctx context.Context, rec features.MatchRecord) (*PredictionResult, error) {
	start := time.Now()

	vector, defaulted := features.Vector(rec)
	if len(defaulted) > 0 {
		log.Warn().
			Str("matchId", rec.MatchID).
			Strs("slots", defaulted).
			Msg("feature vector incomplete, defaults applied")
		e.featureDefaultsAdd(len(defaulted))
	}

	results := e.fanOut(ctx, rec.MatchID, vector)
	if len(results) == 0 {
		e.ensembleExhaustedInc()
		return nil, ensemble.ErrEnsembleExhausted
	}

	blended, err := ensemble.Combine(results, e.weights)
	if err != nil {
		e.ensembleExhaustedInc()
		return nil, err
	}

	breakdown := e.scorer.Score(rec, blended)
	forecast := goals.Model(rec)

	e.predictionsInc()
	e.latencyObserve(time.Since(start).Seconds())
	e.confidenceObserve(breakdown.Overall)

	return &PredictionResult{
		MatchID:               rec.MatchID,
		HomeWinProb:           blended.Probs[model.OutcomeHome],
		DrawProb:              blended.Probs[model.OutcomeDraw],
		AwayWinProb:           blended.Probs[model.OutcomeAway],
		PredictedOutcome:      blended.Outcome.String(),
		Confidence:            breakdown.Overall,
		ConfidenceBreakdown:   breakdown,
		ModelVersion:          e.registry.Version(),
		PerModelContributions: blended.Contributions,
		GoalForecast:          forecast,
		GeneratedAt:           time.Now().UTC(),
	}, nil
}

// fanOut runs every model concurrently under its own timeout and collects
// the successes. Failures are logged and counted, never retried.
func (e *Engine) fanOut(ctx context.Context, matchID string, vector []float64) []model.InferenceResult {
	models := e.registry.Models()
	results := make([]model.InferenceResult, 0, len(models))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, m := range models {
		m := m
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, e.timeout)
			defer cancel()

			res, err := m.Predict(callCtx, vector)
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					e.modelTimeoutsInc()
				}
				e.modelFailuresInc()
				log.Warn().
					Err(err).
					Str("matchId", matchID).
					Str("model", m.Name()).
					Msg("model excluded from ensemble")
				return nil // a single model failing never fails the group
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (e *Engine) predictionsInc() {
	if e.metrics != nil {
		e.metrics.PredictionsInc()
	}
}

func (e *Engine) modelFailuresInc() {
	if e.metrics != nil {
		e.metrics.ModelFailuresInc()
	}
}

func (e *Engine) modelTimeoutsInc() {
	if e.metrics != nil {
		e.metrics.ModelTimeoutsInc()
	}
}

func (e *Engine) ensembleExhaustedInc() {
	if e.metrics != nil {
		e.metrics.EnsembleExhaustedInc()
	}
}

func (e *Engine) featureDefaultsAdd(n int) {
	if e.metrics != nil {
		e.metrics.FeatureDefaultsAdd(n)
	}
}

func (e *Engine) latencyObserve(s float64) {
	if e.metrics != nil {
		e.metrics.LatencyObserve(s)
	}
}

func (e *Engine) confidenceObserve(s float64) {
	if e.metrics != nil {
		e.metrics.ConfidenceObserve(s)
	}
}
