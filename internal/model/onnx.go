package model

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	ort "github.com/yalue/onnxruntime_go"
)

type outputKind int

const (
	outputProbability outputKind = iota
	outputScores
	outputLabel
)

// labelDominantProb is the probability assigned to the winning class when a
// tensor graph only exposes a label output and the triple must be
// synthesized. The remainder splits evenly across the other two classes.
const labelDominantProb = 0.7

// TensorModel evaluates an ONNX artifact through a persistent onnxruntime
// session. The session is created once at load; Run calls are serialized
// because DynamicAdvancedSession is not safe for concurrent Run.
type TensorModel struct {
	name       string
	inputName  string
	outputName string
	kind       outputKind
	session    *ort.DynamicAdvancedSession
	mu         sync.Mutex
}

var ortInit struct {
	once sync.Once
	err  error
}

// InitTensorRuntime initializes the shared onnxruntime library once per
// process. libraryPath may be empty to use the platform default lookup.
func InitTensorRuntime(libraryPath string) error {
	ortInit.once.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		ortInit.err = ort.InitializeEnvironment()
	})
	return ortInit.err
}

// LoadTensorModel opens an ONNX artifact, inspects its outputs to decide how
// to interpret them, and creates the inference session.
func LoadTensorModel(path string) (*TensorModel, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, &ModelLoadError{Path: path, Err: err}
	}
	if len(inputs) != 1 {
		return nil, loadErrorf(path, "got %d inputs, want 1", len(inputs))
	}

	outputName, kind, err := selectOutput(path, outputs)
	if err != nil {
		return nil, err
	}

	session, err := ort.NewDynamicAdvancedSession(path,
		[]string{inputs[0].Name}, []string{outputName}, nil)
	if err != nil {
		return nil, &ModelLoadError{Path: path, Err: err}
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	log.Info().
		Str("model", name).
		Str("input", inputs[0].Name).
		Str("output", outputName).
		Int("outputKind", int(kind)).
		Msg("tensor model loaded")

	return &TensorModel{
		name:       name,
		inputName:  inputs[0].Name,
		outputName: outputName,
		kind:       kind,
		session:    session,
	}, nil
}

// selectOutput picks the most informative output head: a float tensor with a
// class dimension of 3 is a probability head, any other float tensor is raw
// scores, and an integer tensor is a bare label.
func selectOutput(path string, outputs []ort.InputOutputInfo) (string, outputKind, error) {
	var firstFloat, firstInt *ort.InputOutputInfo
	for i := range outputs {
		out := &outputs[i]
		if out.OrtValueType != ort.ONNXTypeTensor {
			continue
		}
		switch out.DataType {
		case ort.TensorElementDataTypeFloat, ort.TensorElementDataTypeDouble:
			if shapeContains(out.Dimensions, 3) {
				return out.Name, outputProbability, nil
			}
			if firstFloat == nil {
				firstFloat = out
			}
		case ort.TensorElementDataTypeInt32, ort.TensorElementDataTypeInt64:
			if firstInt == nil {
				firstInt = out
			}
		}
	}
	if firstFloat != nil {
		return firstFloat.Name, outputScores, nil
	}
	if firstInt != nil {
		return firstInt.Name, outputLabel, nil
	}
	return "", 0, loadErrorf(path, "no usable output tensor")
}

func shapeContains(dims ort.Shape, want int64) bool {
	for _, d := range dims {
		if d == want {
			return true
		}
	}
	return false
}

func (m *TensorModel) Name() string { return m.name }
func (m *TensorModel) Kind() Kind   { return KindTensorGraph }

func (m *TensorModel) Predict(ctx context.Context, features []float64) (InferenceResult, error) {
	row := make([]float32, len(features))
	for i, v := range features {
		row[i] = float32(v)
	}
	input, err := ort.NewTensor(ort.NewShape(1, int64(len(row))), row)
	if err != nil {
		return InferenceResult{}, &InferenceError{Model: m.name, Err: err}
	}

	// The call owns the input tensor from here: a timed-out run keeps
	// using it in the background, so it must not be freed before the
	// session finishes with it.
	probs, err := runDetached(ctx, func() (Probs, error) {
		defer input.Destroy()
		m.mu.Lock()
		defer m.mu.Unlock()
		outputs := []ort.Value{nil}
		if err := m.session.Run([]ort.Value{input}, outputs); err != nil {
			return Probs{}, err
		}
		defer outputs[0].Destroy()
		return m.extract(outputs[0])
	})
	if err != nil {
		return InferenceResult{}, &InferenceError{Model: m.name, Err: err}
	}
	return resultFor(m.name, KindTensorGraph, probs), nil
}

// runDetached executes fn on its own goroutine and waits for the result or
// the context deadline. The session cannot be cancelled mid-run, so an
// abandoned call keeps running in the background; fn owns every resource it
// touches and releases them itself when it eventually returns.
func runDetached(ctx context.Context, fn func() (Probs, error)) (Probs, error) {
	type runOut struct {
		probs Probs
		err   error
	}
	done := make(chan runOut, 1)
	go func() {
		probs, err := fn()
		done <- runOut{probs: probs, err: err}
	}()

	select {
	case out := <-done:
		return out.probs, out.err
	case <-ctx.Done():
		return Probs{}, ctx.Err()
	}
}

func (m *TensorModel) extract(value ort.Value) (Probs, error) {
	switch t := value.(type) {
	case *ort.Tensor[float32]:
		data := t.GetData()
		if len(data) < numClasses {
			return Probs{}, fmt.Errorf("output has %d values, want %d", len(data), numClasses)
		}
		return m.floatTriple(float64(data[0]), float64(data[1]), float64(data[2])), nil
	case *ort.Tensor[float64]:
		data := t.GetData()
		if len(data) < numClasses {
			return Probs{}, fmt.Errorf("output has %d values, want %d", len(data), numClasses)
		}
		return m.floatTriple(data[0], data[1], data[2]), nil
	case *ort.Tensor[int64]:
		data := t.GetData()
		if len(data) == 0 {
			return Probs{}, fmt.Errorf("empty label output")
		}
		return labelTriple(int(data[0])), nil
	case *ort.Tensor[int32]:
		data := t.GetData()
		if len(data) == 0 {
			return Probs{}, fmt.Errorf("empty label output")
		}
		return labelTriple(int(data[0])), nil
	default:
		return Probs{}, fmt.Errorf("unsupported output tensor type %T", value)
	}
}

// floatTriple normalizes a float output into probabilities. Raw margin heads
// can emit negatives, which a plain rescale would mangle, so those go
// through softmax instead.
func (m *TensorModel) floatTriple(a, b, c float64) Probs {
	p := Probs{a, b, c}
	for _, v := range p {
		if v < 0 || math.IsNaN(v) {
			return softmax([3]float64{a, b, c})
		}
	}
	return p.Normalized()
}

func labelTriple(label int) Probs {
	if label < 0 || label >= numClasses {
		return Probs{1.0 / 3, 1.0 / 3, 1.0 / 3}
	}
	rest := (1 - labelDominantProb) / 2
	p := Probs{rest, rest, rest}
	p[label] = labelDominantProb
	return p
}

// Close releases the onnxruntime session.
func (m *TensorModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		m.session.Destroy()
		m.session = nil
	}
	return nil
}
