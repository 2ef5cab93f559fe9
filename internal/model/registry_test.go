package model

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, dir, name string, v any) {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), raw, 0o600))
}

func TestRegistryLoadMixedDirectory(t *testing.T) {
	dir := t.TempDir()

	writeJSON(t, dir, "gbdt.json", treeEnsembleFile{
		ModelName:   "gbdt",
		NumClasses:  3,
		NumFeatures: 2,
		TreeInfo:    []int{0},
		Trees:       []treeFile{validLeafTree()},
	})
	writeJSON(t, dir, "logreg.json", linearFile{
		ModelName:    "logreg",
		NumClasses:   3,
		InputDim:     2,
		Coefficients: [][]float64{{0, 0}, {0, 0}, {0, 0}},
		Intercepts:   []float64{0, 0, 0},
	})
	writeJSON(t, dir, "metadata.json", metadataFile{
		ModelName: "match_predictor",
		Version:   "3.1.0",
	})
	// Malformed artifact: must be skipped without failing the others.
	writeJSON(t, dir, "broken.json", treeEnsembleFile{
		NumClasses: 3,
		TreeInfo:   []int{9},
		Trees:      []treeFile{validLeafTree()},
	})
	// Unrelated JSON: silently ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.json"), []byte(`{"a":1}`), 0o600))

	r, err := Load(dir, LoadOptions{DisableTensorModels: true})
	require.NoError(t, err)

	require.Len(t, r.Models(), 2)
	require.Len(t, r.Skipped(), 1)
	require.Equal(t, "match_predictor@3.1.0", r.Version())

	kinds := map[Kind]bool{}
	for _, m := range r.Models() {
		kinds[m.Kind()] = true
	}
	require.True(t, kinds[KindTreeEnsemble])
	require.True(t, kinds[KindLinear])
}

func TestRegistryLoadMissingDirectory(t *testing.T) {
	r, err := Load(filepath.Join(t.TempDir(), "nope"), LoadOptions{DisableTensorModels: true})
	require.NoError(t, err)
	require.Empty(t, r.Models())
}

func TestRegistryRejectsDuplicateModelNames(t *testing.T) {
	dir := t.TempDir()

	// Two healthy artifacts sharing a model_name: only the first loaded
	// may register, since contributions are keyed by name.
	writeJSON(t, dir, "a.json", treeEnsembleFile{
		ModelName:   "predictor",
		NumClasses:  3,
		NumFeatures: 2,
		TreeInfo:    []int{0},
		Trees:       []treeFile{validLeafTree()},
	})
	writeJSON(t, dir, "b.json", linearFile{
		ModelName:    "predictor",
		NumClasses:   3,
		InputDim:     2,
		Coefficients: [][]float64{{0, 0}, {0, 0}, {0, 0}},
		Intercepts:   []float64{0, 0, 0},
	})

	r, err := Load(dir, LoadOptions{DisableTensorModels: true})
	require.NoError(t, err)
	require.Len(t, r.Models(), 1)
	require.Len(t, r.Skipped(), 1)
	require.ErrorContains(t, r.Skipped()[0], "duplicate model name")
}

func TestRegistrySkipsTensorModelsWhenDisabled(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "net.onnx"), []byte("not a real model"), 0o600))

	r, err := Load(dir, LoadOptions{DisableTensorModels: true})
	require.NoError(t, err)
	require.Empty(t, r.Models())
	require.Empty(t, r.Skipped())
}
