// Package ensemble blends the probability triples of the available models
// into a single prediction using fixed per-kind weights, renormalized over
// whichever models actually produced output.
package ensemble

import (
	"errors"

	"matchpredict/internal/model"
)

// ErrEnsembleExhausted is returned when no model produced a usable
// prediction. The request fails; there is no partial result.
var ErrEnsembleExhausted = errors.New("ensemble exhausted: no model produced a prediction")

// Weights maps a model kind to its blend weight.
type Weights map[model.Kind]float64

// DefaultWeights is the production blend: the tree ensemble dominates with
// the linear and tensor models as secondaries.
func DefaultWeights() Weights {
	return Weights{
		model.KindTreeEnsemble: 0.5,
		model.KindLinear:       0.25,
		model.KindTensorGraph:  0.25,
	}
}

// fallbackWeight applies to kinds missing from the weight table.
const fallbackWeight = 0.25

// Result is the blended ensemble output.
type Result struct {
	Probs         model.Probs            `json:"probabilities"`
	Outcome       model.Outcome          `json:"outcome"`
	Confidence    float64                `json:"confidence"`
	Contributions map[string]model.Probs `json:"contributions"`
	TopModel      string                 `json:"topModel"`
}

// Combine blends the given per-model results. Weights renormalize over the
// models present, so a degraded ensemble keeps the same relative balance.
func Combine(results []model.InferenceResult, weights Weights) (Result, error) {
	if len(results) == 0 {
		return Result{}, ErrEnsembleExhausted
	}

	var blended model.Probs
	var totalWeight float64
	contributions := make(map[string]model.Probs, len(results))
	topModel := ""
	topConfidence := -1.0

	for _, res := range results {
		w, ok := weights[res.Kind]
		if !ok {
			w = fallbackWeight
		}
		for i, p := range res.Probs {
			blended[i] += w * p
		}
		totalWeight += w
		contributions[res.Model] = res.Probs
		if res.Confidence > topConfidence {
			topModel, topConfidence = res.Model, res.Confidence
		}
	}

	if totalWeight > 0 {
		for i := range blended {
			blended[i] /= totalWeight
		}
	}
	blended = blended.Normalized()
	outcome, conf := blended.Max()

	return Result{
		Probs:         blended,
		Outcome:       outcome,
		Confidence:    conf,
		Contributions: contributions,
		TopModel:      topModel,
	}, nil
}
