// Package tflite runs the screening model through the TensorFlow Lite C API.
// Building it requires libtensorflowlite_c.
package tflite

import (
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-tflite"

	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/inference"
)

// Runtime wraps a loaded interpreter. Not safe for concurrent use; the
// inference.Classifier serializes calls.
type Runtime struct {
	model       *tflite.Model
	options     *tflite.InterpreterOptions
	interpreter *tflite.Interpreter
}

// Load reads the model artifact once and validates its input and output tensors.
func Load(path string, threads int) (*Runtime, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model artifact: %w", err)
	}

	model := tflite.NewModelFromFile(path)
	if model == nil {
		return nil, fmt.Errorf("model artifact %s is not a valid tflite model", path)
	}

	options := tflite.NewInterpreterOptions()
	if threads > 0 {
		options.SetNumThread(threads)
	}

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		options.Delete()
		model.Delete()
		return nil, errors.New("creating tflite interpreter")
	}

	rt := &Runtime{model: model, options: options, interpreter: interpreter}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		rt.Close()
		return nil, fmt.Errorf("allocating tensors: status %v", status)
	}
	if err := rt.checkShapes(); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (r *Runtime) checkShapes() error {
	in := r.interpreter.GetInputTensor(0)
	if in == nil {
		return errors.New("model has no input tensor")
	}
	if in.Type() != tflite.Float32 {
		return fmt.Errorf("model input type %v, want float32", in.Type())
	}
	want := []int{1, inference.InputSize, inference.InputSize, inference.Channels}
	if in.NumDims() != len(want) {
		return fmt.Errorf("model input rank %d, want %d", in.NumDims(), len(want))
	}
	for i, d := range want {
		if in.Dim(i) != d {
			return fmt.Errorf("model input dim %d is %d, want %d", i, in.Dim(i), d)
		}
	}

	out := r.interpreter.GetOutputTensor(0)
	if out == nil {
		return errors.New("model has no output tensor")
	}
	if out.Type() != tflite.Float32 {
		return fmt.Errorf("model output type %v, want float32", out.Type())
	}
	return nil
}

// Predict copies input into the input tensor, invokes the model and returns the first output value.
func (r *Runtime) Predict(input []float32) (float32, error) {
	if len(input) != inference.InputLen {
		return 0, fmt.Errorf("input length %d, want %d", len(input), inference.InputLen)
	}

	in := r.interpreter.GetInputTensor(0)
	copy(in.Float32s(), input)

	if status := r.interpreter.Invoke(); status != tflite.OK {
		return 0, fmt.Errorf("invoke: status %v", status)
	}

	out := r.interpreter.GetOutputTensor(0).Float32s()
	if len(out) == 0 {
		return 0, errors.New("empty model output")
	}
	return out[0], nil
}

func (r *Runtime) Close() error {
	if r.interpreter != nil {
		r.interpreter.Delete()
		r.interpreter = nil
	}
	if r.options != nil {
		r.options.Delete()
		r.options = nil
	}
	if r.model != nil {
		r.model.Delete()
		r.model = nil
	}
	return nil
}
