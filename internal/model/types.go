// Package model loads and evaluates prediction model artifacts: gradient
// boosted tree ensembles and logistic-regression coefficients exported as
// JSON, and tensor-graph models evaluated through the onnxruntime binding.
// All models share the Predictor interface and produce a probability triple
// over the three match outcomes.
package model

import (
	"context"
	"math"
)

// Kind identifies the family a model artifact belongs to. The ensemble
// combiner assigns blend weights per kind.
type Kind string

const (
	KindTreeEnsemble Kind = "tree_ensemble"
	KindLinear       Kind = "linear"
	KindTensorGraph  Kind = "tensor_graph"
)

// Outcome is a match result class. The numeric values match the training
// pipeline's label encoding and the class axis of every model output.
type Outcome int

const (
	OutcomeHome Outcome = 0
	OutcomeDraw Outcome = 1
	OutcomeAway Outcome = 2
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHome:
		return "HOME"
	case OutcomeDraw:
		return "DRAW"
	case OutcomeAway:
		return "AWAY"
	default:
		return "UNKNOWN"
	}
}

// ParseOutcome maps a result string back to its class.
func ParseOutcome(s string) (Outcome, bool) {
	switch s {
	case "HOME":
		return OutcomeHome, true
	case "DRAW":
		return OutcomeDraw, true
	case "AWAY":
		return OutcomeAway, true
	default:
		return 0, false
	}
}

// Probs is a probability triple indexed by Outcome.
type Probs [3]float64

func (p Probs) Sum() float64 {
	return p[0] + p[1] + p[2]
}

// Normalized rescales the triple to sum to 1. A zero or non-finite sum
// yields the uniform distribution rather than NaN.
func (p Probs) Normalized() Probs {
	sum := p.Sum()
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return Probs{1.0 / 3, 1.0 / 3, 1.0 / 3}
	}
	return Probs{p[0] / sum, p[1] / sum, p[2] / sum}
}

// Max returns the most probable outcome and its probability. Ties resolve
// to the lowest class index.
func (p Probs) Max() (Outcome, float64) {
	best, bestProb := OutcomeHome, p[0]
	for i := 1; i < len(p); i++ {
		if p[i] > bestProb {
			best, bestProb = Outcome(i), p[i]
		}
	}
	return best, bestProb
}

// Spread is the gap between the largest and smallest component, a cheap
// measure of how decisive the distribution is.
func (p Probs) Spread() float64 {
	lo, hi := p[0], p[0]
	for _, v := range p[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return hi - lo
}

// InferenceResult is the output of a single model evaluation.
type InferenceResult struct {
	Model      string  `json:"model"`
	Kind       Kind    `json:"kind"`
	Probs      Probs   `json:"probabilities"`
	Outcome    Outcome `json:"outcome"`
	Confidence float64 `json:"confidence"`
}

// Predictor is implemented by every loaded model artifact.
type Predictor interface {
	Name() string
	Kind() Kind
	Predict(ctx context.Context, features []float64) (InferenceResult, error)
}

// softmax converts raw class scores to probabilities, shifting by the max
// score for numeric stability.
func softmax(scores [3]float64) Probs {
	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}
	var exps [3]float64
	var sum float64
	for i, s := range scores {
		exps[i] = math.Exp(s - maxScore)
		sum += exps[i]
	}
	return Probs{exps[0] / sum, exps[1] / sum, exps[2] / sum}
}

func resultFor(name string, kind Kind, p Probs) InferenceResult {
	p = p.Normalized()
	outcome, conf := p.Max()
	return InferenceResult{
		Model:      name,
		Kind:       kind,
		Probs:      p,
		Outcome:    outcome,
		Confidence: conf,
	}
}
