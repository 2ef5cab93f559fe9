package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// Registry holds the set of loaded model artifacts. It is built once at
// startup and never mutated afterwards; swapping models means restarting.
type Registry struct {
	models  []Predictor
	version string
	skipped []error
}

// LoadOptions controls model directory scanning.
type LoadOptions struct {
	// TensorRuntimeLib is the path to the shared onnxruntime library.
	// Empty means the platform default lookup.
	TensorRuntimeLib string
	// DisableTensorModels skips .onnx artifacts entirely.
	DisableTensorModels bool
}

type metadataFile struct {
	ModelName string `json:"model_name"`
	Version   string `json:"version"`
}

// artifactProbe distinguishes JSON artifact flavors by their top-level keys.
type artifactProbe struct {
	Trees        json.RawMessage `json:"trees"`
	Coefficients json.RawMessage `json:"coefficients"`
}

// NewRegistry builds a registry from explicit models, for tests and embedders.
func NewRegistry(version string, models ...Predictor) *Registry {
	return &Registry{models: models, version: version}
}

// Load scans dir for model artifacts. Individual artifact failures are
// logged and skipped; a missing or empty directory yields an empty registry,
// which is legal and simply makes every prediction fail with an exhausted
// ensemble.
func Load(dir string, opts LoadOptions) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("dir", dir).Msg("model directory missing, starting with no models")
			return &Registry{}, nil
		}
		return nil, fmt.Errorf("read model dir %s: %w", dir, err)
	}

	tensorReady := false
	if !opts.DisableTensorModels {
		if err := InitTensorRuntime(opts.TensorRuntimeLib); err != nil {
			log.Warn().Err(err).Msg("tensor runtime unavailable, skipping tensor models")
		} else {
			tensorReady = true
		}
	}

	r := &Registry{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		switch {
		case strings.HasSuffix(entry.Name(), ".onnx"):
			if !tensorReady {
				log.Warn().Str("path", path).Msg("skipping tensor model, runtime not initialized")
				continue
			}
			m, err := LoadTensorModel(path)
			r.add(path, m, err)
		case entry.Name() == "metadata.json":
			r.readMetadata(path)
		case strings.HasSuffix(entry.Name(), ".json"):
			r.addJSON(path)
		}
	}
	return r, nil
}

func (r *Registry) addJSON(path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		r.add(path, nil, &ModelLoadError{Path: path, Err: err})
		return
	}
	var probe artifactProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		r.add(path, nil, &ModelLoadError{Path: path, Err: err})
		return
	}
	switch {
	case probe.Trees != nil:
		m, err := LoadTreeEnsemble(path)
		r.add(path, m, err)
	case probe.Coefficients != nil:
		m, err := LoadLinearModel(path)
		r.add(path, m, err)
	default:
		log.Debug().Str("path", path).Msg("ignoring JSON file without model payload")
	}
}

// add records one load attempt. err takes priority so a typed nil predictor
// never enters the model list. Names must be unique: contribution maps and
// persisted results are keyed by name, so a second artifact with the same
// name is excluded rather than allowed to shadow the first.
func (r *Registry) add(path string, m Predictor, err error) {
	if err == nil {
		for _, existing := range r.models {
			if existing.Name() == m.Name() {
				err = loadErrorf(path, "duplicate model name %q", m.Name())
				break
			}
		}
	}
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("model artifact excluded")
		r.skipped = append(r.skipped, err)
		return
	}
	log.Info().Str("model", m.Name()).Str("kind", string(m.Kind())).Msg("model registered")
	r.models = append(r.models, m)
}

func (r *Registry) readMetadata(path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("metadata unreadable")
		return
	}
	var meta metadataFile
	if err := json.Unmarshal(raw, &meta); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("metadata malformed")
		return
	}
	if meta.ModelName != "" && meta.Version != "" {
		r.version = meta.ModelName + "@" + meta.Version
	} else if meta.Version != "" {
		r.version = meta.Version
	}
}

// Models returns the loaded predictors in load order.
func (r *Registry) Models() []Predictor { return r.models }

// Version reports the model version from metadata.json, or "" if none.
func (r *Registry) Version() string { return r.version }

// Skipped returns the load errors for excluded artifacts.
func (r *Registry) Skipped() []error { return r.skipped }

// Close releases any model holding external resources.
func (r *Registry) Close() error {
	var firstErr error
	for _, m := range r.models {
		if closer, ok := m.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
