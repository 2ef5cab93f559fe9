package model

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

const numClasses = 3

// TreeEnsemble evaluates a gradient boosted tree model exported as JSON.
// Each tree contributes its leaf weight to one class score; the scores are
// softmaxed into a probability triple. Evaluation is dependency-free so the
// engine never needs a tree runtime at inference time.
type TreeEnsemble struct {
	name        string
	numFeatures int
	trees       []tree
	treeInfo    []int
}

type tree struct {
	splitIndices    []int
	splitConditions []float64
	leftChildren    []int
	rightChildren   []int
	defaultLeft     []int
	baseWeights     []float64
}

type treeEnsembleFile struct {
	ModelName   string     `json:"model_name"`
	NumClasses  int        `json:"num_classes"`
	NumFeatures int        `json:"num_features"`
	TreeInfo    []int      `json:"tree_info"`
	Trees       []treeFile `json:"trees"`
}

type treeFile struct {
	SplitIndices    []int     `json:"split_indices"`
	SplitConditions []float64 `json:"split_conditions"`
	LeftChildren    []int     `json:"left_children"`
	RightChildren   []int     `json:"right_children"`
	DefaultLeft     []int     `json:"default_left"`
	BaseWeights     []float64 `json:"base_weights"`
}

// LoadTreeEnsemble reads and validates a tree-ensemble JSON export.
func LoadTreeEnsemble(path string) (*TreeEnsemble, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &ModelLoadError{Path: path, Err: err}
	}
	var file treeEnsembleFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, &ModelLoadError{Path: path, Err: err}
	}
	return newTreeEnsemble(path, file)
}

func newTreeEnsemble(path string, file treeEnsembleFile) (*TreeEnsemble, error) {
	if file.NumClasses != numClasses {
		return nil, loadErrorf(path, "num_classes %d, want %d", file.NumClasses, numClasses)
	}
	if len(file.Trees) == 0 {
		return nil, loadErrorf(path, "no trees")
	}
	if len(file.TreeInfo) != len(file.Trees) {
		return nil, loadErrorf(path, "tree_info has %d entries for %d trees", len(file.TreeInfo), len(file.Trees))
	}
	for i, class := range file.TreeInfo {
		if class < 0 || class >= numClasses {
			return nil, loadErrorf(path, "tree %d: class %d out of range", i, class)
		}
	}

	trees := make([]tree, len(file.Trees))
	for i, tf := range file.Trees {
		t, err := newTree(path, i, tf, file.NumFeatures)
		if err != nil {
			return nil, err
		}
		trees[i] = t
	}

	name := file.ModelName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &TreeEnsemble{
		name:        name,
		numFeatures: file.NumFeatures,
		trees:       trees,
		treeInfo:    file.TreeInfo,
	}, nil
}

func newTree(path string, idx int, tf treeFile, numFeatures int) (tree, error) {
	n := len(tf.SplitIndices)
	if len(tf.SplitConditions) != n || len(tf.LeftChildren) != n ||
		len(tf.RightChildren) != n || len(tf.DefaultLeft) != n || len(tf.BaseWeights) != n {
		return tree{}, loadErrorf(path, "tree %d: array length mismatch", idx)
	}
	if n == 0 {
		return tree{}, loadErrorf(path, "tree %d: empty", idx)
	}
	for node := 0; node < n; node++ {
		left, right := tf.LeftChildren[node], tf.RightChildren[node]
		if left == -1 && right == -1 {
			continue // leaf
		}
		if left < 0 || left >= n || right < 0 || right >= n {
			return tree{}, loadErrorf(path, "tree %d node %d: child out of range", idx, node)
		}
		if fi := tf.SplitIndices[node]; fi < 0 || fi >= numFeatures {
			return tree{}, loadErrorf(path, "tree %d node %d: feature index %d out of range", idx, node, fi)
		}
	}
	return tree{
		splitIndices:    tf.SplitIndices,
		splitConditions: tf.SplitConditions,
		leftChildren:    tf.LeftChildren,
		rightChildren:   tf.RightChildren,
		defaultLeft:     tf.DefaultLeft,
		baseWeights:     tf.BaseWeights,
	}, nil
}

func (e *TreeEnsemble) Name() string { return e.name }
func (e *TreeEnsemble) Kind() Kind   { return KindTreeEnsemble }

func (e *TreeEnsemble) Predict(_ context.Context, features []float64) (InferenceResult, error) {
	if len(features) != e.numFeatures {
		return InferenceResult{}, &InferenceError{
			Model: e.name,
			Err:   fmt.Errorf("got %d features, want %d", len(features), e.numFeatures),
		}
	}
	var scores [3]float64
	for i, t := range e.trees {
		scores[e.treeInfo[i]] += t.walk(features)
	}
	return resultFor(e.name, KindTreeEnsemble, softmax(scores)), nil
}

// walk descends the tree and returns the leaf weight. The step bound guards
// against cyclic child links surviving validation.
func (t *tree) walk(features []float64) float64 {
	node := 0
	for steps := 0; steps <= len(t.leftChildren); steps++ {
		left, right := t.leftChildren[node], t.rightChildren[node]
		if left == -1 && right == -1 {
			return t.baseWeights[node]
		}
		v := features[t.splitIndices[node]]
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			if t.defaultLeft[node] != 0 {
				node = left
			} else {
				node = right
			}
		case v < t.splitConditions[node]:
			node = left
		default:
			node = right
		}
	}
	return t.baseWeights[node]
}
