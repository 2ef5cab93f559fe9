package model

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LinearModel evaluates logistic-regression coefficients exported by the
// training pipeline as JSON: one coefficient row and intercept per class,
// softmax over the class scores.
type LinearModel struct {
	name         string
	coefficients [3][]float64
	intercepts   [3]float64
	numFeatures  int
}

type linearFile struct {
	ModelName    string      `json:"model_name"`
	ModelType    string      `json:"model_type"`
	NumClasses   int         `json:"num_classes"`
	InputDim     int         `json:"input_dim"`
	Coefficients [][]float64 `json:"coefficients"`
	Intercepts   []float64   `json:"intercepts"`
}

// LoadLinearModel reads and validates a coefficient export.
func LoadLinearModel(path string) (*LinearModel, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &ModelLoadError{Path: path, Err: err}
	}
	var file linearFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, &ModelLoadError{Path: path, Err: err}
	}
	if file.NumClasses != numClasses {
		return nil, loadErrorf(path, "num_classes %d, want %d", file.NumClasses, numClasses)
	}
	if len(file.Coefficients) != numClasses {
		return nil, loadErrorf(path, "got %d coefficient rows, want %d", len(file.Coefficients), numClasses)
	}
	if len(file.Intercepts) != numClasses {
		return nil, loadErrorf(path, "got %d intercepts, want %d", len(file.Intercepts), numClasses)
	}

	m := &LinearModel{numFeatures: file.InputDim}
	for i, row := range file.Coefficients {
		if len(row) != file.InputDim {
			return nil, loadErrorf(path, "class %d: %d coefficients, want %d", i, len(row), file.InputDim)
		}
		m.coefficients[i] = row
		m.intercepts[i] = file.Intercepts[i]
	}

	m.name = file.ModelName
	if m.name == "" {
		m.name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return m, nil
}

func (m *LinearModel) Name() string { return m.name }
func (m *LinearModel) Kind() Kind   { return KindLinear }

func (m *LinearModel) Predict(_ context.Context, features []float64) (InferenceResult, error) {
	if len(features) != m.numFeatures {
		return InferenceResult{}, &InferenceError{
			Model: m.name,
			Err:   fmt.Errorf("got %d features, want %d", len(features), m.numFeatures),
		}
	}
	var scores [3]float64
	for c := 0; c < numClasses; c++ {
		s := m.intercepts[c]
		for i, coef := range m.coefficients[c] {
			s += coef * features[i]
		}
		scores[c] = s
	}
	return resultFor(m.name, KindLinear, softmax(scores)), nil
}
