package model

import "fmt"

// ModelLoadError reports a model artifact that could not be loaded. The
// registry logs it and excludes the artifact for the process lifetime.
type ModelLoadError struct {
	Path string
	Err  error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("model load %s: %v", e.Path, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

func loadErrorf(path, format string, args ...any) *ModelLoadError {
	return &ModelLoadError{Path: path, Err: fmt.Errorf(format, args...)}
}

// InferenceError reports a single model failing on one request. The model
// is excluded from that request's ensemble only.
type InferenceError struct {
	Model string
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference %s: %v", e.Model, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }
