package engine

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"matchpredict/internal/confidence"
	"matchpredict/internal/ensemble"
	"matchpredict/internal/features"
	"matchpredict/internal/model"
)

type fakePredictor struct {
	name  string
	kind  model.Kind
	probs model.Probs
	err   error
	delay time.Duration
}

func (f *fakePredictor) Name() string     { return f.name }
func (f *fakePredictor) Kind() model.Kind { return f.kind }

func (f *fakePredictor) Predict(ctx context.Context, _ []float64) (model.InferenceResult, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return model.InferenceResult{}, &model.InferenceError{Model: f.name, Err: ctx.Err()}
		}
	}
	if f.err != nil {
		return model.InferenceResult{}, f.err
	}
	outcome, conf := f.probs.Max()
	return model.InferenceResult{
		Model:      f.name,
		Kind:       f.kind,
		Probs:      f.probs,
		Outcome:    outcome,
		Confidence: conf,
	}, nil
}

func newTestEngine(models ...model.Predictor) *Engine {
	registry := model.NewRegistry("test@1.0.0", models...)
	scorer := confidence.NewScorer(confidence.DefaultWeights(), nil)
	return New(registry, ensemble.DefaultWeights(), scorer, time.Second, nil)
}

func strongHomeRecord() features.MatchRecord {
	return features.MatchRecord{
		MatchID: "match-1",
		Home: features.TeamSnapshot{
			LastFiveResults:    "WWWWW",
			PointsPerGame:      2.6,
			GoalsPerGame:       2.4,
			LeaguePosition:     1,
			DaysSinceLastMatch: 7,
			ManagerTenureDays:  800,
		},
		Away: features.TeamSnapshot{
			LastFiveResults:    "LLLLL",
			PointsPerGame:      0.4,
			GoalsPerGame:       0.6,
			LeaguePosition:     20,
			DaysSinceLastMatch: 7,
			ManagerTenureDays:  800,
		},
		HeadToHead: []features.HeadToHead{{Result: "HOME", HomeGoals: 3, AwayGoals: 0}},
	}
}

func TestPredictStrongHomeScenario(t *testing.T) {
	eng := newTestEngine(
		&fakePredictor{name: "gbdt", kind: model.KindTreeEnsemble, probs: model.Probs{0.7, 0.2, 0.1}},
		&fakePredictor{name: "logreg", kind: model.KindLinear, probs: model.Probs{0.6, 0.25, 0.15}},
	)

	result, err := eng.Predict(context.Background(), strongHomeRecord())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	if result.PredictedOutcome != "HOME" {
		t.Errorf("outcome = %q, want HOME", result.PredictedOutcome)
	}
	sum := result.HomeWinProb + result.DrawProb + result.AwayWinProb
	if math.Abs(sum-1) > 1e-6 {
		t.Errorf("probabilities sum to %v", sum)
	}
	if result.HomeWinProb <= result.DrawProb || result.HomeWinProb <= result.AwayWinProb {
		t.Errorf("home prob %v not dominant over %v/%v",
			result.HomeWinProb, result.DrawProb, result.AwayWinProb)
	}
	if result.Confidence < 0.3 || result.Confidence > 1 {
		t.Errorf("confidence = %v", result.Confidence)
	}
	// Blended home prob 0.667 >= 0.6 puts model certainty in the top tier.
	if result.ConfidenceBreakdown.ModelCertainty < 0.75 {
		t.Errorf("model certainty = %v, want >= 0.75", result.ConfidenceBreakdown.ModelCertainty)
	}
	if result.ModelVersion != "test@1.0.0" {
		t.Errorf("model version = %q", result.ModelVersion)
	}
	if len(result.PerModelContributions) != 2 {
		t.Errorf("contributions = %v", result.PerModelContributions)
	}
	if result.GoalForecast.ExpectedHomeGoals <= result.GoalForecast.ExpectedAwayGoals {
		t.Errorf("goal forecast %v/%v should favor the home side",
			result.GoalForecast.ExpectedHomeGoals, result.GoalForecast.ExpectedAwayGoals)
	}
	if result.GeneratedAt.IsZero() {
		t.Error("GeneratedAt not set")
	}
}

func TestPredictWithRealTreeEnsemble(t *testing.T) {
	// One tree per class over the 30-slot vector: class 0 keys on home
	// form (slot 0), class 2 on away form (slot 1), class 1 stays flat.
	// WWWWW vs LLLLL lands scores (2, 0, -2).
	split := func(featureIdx int) map[string]any {
		return map[string]any{
			"split_indices":    []int{featureIdx, 0, 0},
			"split_conditions": []float64{0.5, 0, 0},
			"left_children":    []int{1, -1, -1},
			"right_children":   []int{2, -1, -1},
			"default_left":     []int{1, 0, 0},
			"base_weights":     []float64{0, -2, 2},
		}
	}
	leaf := map[string]any{
		"split_indices":    []int{0},
		"split_conditions": []float64{0},
		"left_children":    []int{-1},
		"right_children":   []int{-1},
		"default_left":     []int{0},
		"base_weights":     []float64{0},
	}
	artifact := map[string]any{
		"model_name":   "mini-gbdt",
		"num_classes":  3,
		"num_features": features.NumFeatures,
		"tree_info":    []int{0, 1, 2},
		"trees":        []any{split(0), leaf, split(1)},
	}

	dir := t.TempDir()
	raw, err := json.Marshal(artifact)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "mini-gbdt.json"), raw, 0o600); err != nil {
		t.Fatal(err)
	}

	registry, err := model.Load(dir, model.LoadOptions{DisableTensorModels: true})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(registry.Models()) != 1 {
		t.Fatalf("loaded %d models, want 1", len(registry.Models()))
	}

	scorer := confidence.NewScorer(confidence.DefaultWeights(), nil)
	eng := New(registry, ensemble.DefaultWeights(), scorer, time.Second, nil)

	result, err := eng.Predict(context.Background(), strongHomeRecord())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if result.PredictedOutcome != "HOME" {
		t.Errorf("outcome = %q, want HOME", result.PredictedOutcome)
	}
	if result.HomeWinProb < 0.8 {
		t.Errorf("home prob = %v, want softmax(2,0,-2) dominance", result.HomeWinProb)
	}
}

func TestPredictSurvivesSingleModelFailure(t *testing.T) {
	eng := newTestEngine(
		&fakePredictor{name: "gbdt", kind: model.KindTreeEnsemble, probs: model.Probs{0.5, 0.3, 0.2}},
		&fakePredictor{name: "net", kind: model.KindTensorGraph,
			err: &model.InferenceError{Model: "net", Err: errors.New("session gone")}},
	)

	result, err := eng.Predict(context.Background(), strongHomeRecord())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(result.PerModelContributions) != 1 {
		t.Errorf("contributions = %v, want only the surviving model", result.PerModelContributions)
	}
	if _, ok := result.PerModelContributions["gbdt"]; !ok {
		t.Error("surviving model missing from contributions")
	}
}

func TestPredictTimesOutSlowModel(t *testing.T) {
	registry := model.NewRegistry("",
		&fakePredictor{name: "fast", kind: model.KindTreeEnsemble, probs: model.Probs{0.5, 0.3, 0.2}},
		&fakePredictor{name: "slow", kind: model.KindTensorGraph,
			probs: model.Probs{0.1, 0.1, 0.8}, delay: time.Second},
	)
	scorer := confidence.NewScorer(confidence.DefaultWeights(), nil)
	eng := New(registry, ensemble.DefaultWeights(), scorer, 20*time.Millisecond, nil)

	result, err := eng.Predict(context.Background(), strongHomeRecord())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if _, ok := result.PerModelContributions["slow"]; ok {
		t.Error("timed-out model should be excluded from the ensemble")
	}
	if result.PredictedOutcome != "HOME" {
		t.Errorf("outcome = %q, want the fast model's HOME", result.PredictedOutcome)
	}
}

func TestPredictEmptyRegistryIsExhausted(t *testing.T) {
	eng := newTestEngine()
	_, err := eng.Predict(context.Background(), strongHomeRecord())
	if !errors.Is(err, ensemble.ErrEnsembleExhausted) {
		t.Fatalf("err = %v, want ErrEnsembleExhausted", err)
	}
}

func TestPredictAllModelsFailingIsExhausted(t *testing.T) {
	eng := newTestEngine(
		&fakePredictor{name: "a", kind: model.KindTreeEnsemble,
			err: &model.InferenceError{Model: "a", Err: errors.New("boom")}},
		&fakePredictor{name: "b", kind: model.KindLinear,
			err: &model.InferenceError{Model: "b", Err: errors.New("boom")}},
	)
	result, err := eng.Predict(context.Background(), strongHomeRecord())
	if !errors.Is(err, ensemble.ErrEnsembleExhausted) {
		t.Fatalf("err = %v, want ErrEnsembleExhausted", err)
	}
	if result != nil {
		t.Error("exhausted request must not return a partial result")
	}
}
