package model

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Server owns a loaded checkpoint and its preallocated tensors. Runs are
// serialized because every call writes into the same input tensor.
type Server struct {
	Labels *Labels

	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// Load builds an inference session from the checkpoint at checkpointPath.
func Load(checkpointPath string, labels *Labels, opts ...Option) (*Server, error) {
	cfg := &loadConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if _, err := os.Stat(checkpointPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCheckpointMissing, checkpointPath)
		}
		return nil, fmt.Errorf("failed to stat checkpoint: %w", err)
	}

	if err := labels.VerifyCheckpoint(checkpointPath); err != nil {
		return nil, err
	}

	if cfg.libraryPath != "" {
		ort.SetSharedLibraryPath(cfg.libraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}

	inputName, outputName, err := resolveIO(checkpointPath, labels, cfg)
	if err != nil {
		return nil, err
	}

	size := int64(labels.ImageSize)
	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(labels.Len())))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	var options *ort.SessionOptions
	if cfg.intraOpThreads > 0 {
		options, err = ort.NewSessionOptions()
		if err != nil {
			inputTensor.Destroy()
			outputTensor.Destroy()
			return nil, fmt.Errorf("failed to create session options: %w", err)
		}
		defer options.Destroy()

		if err := options.SetIntraOpNumThreads(cfg.intraOpThreads); err != nil {
			inputTensor.Destroy()
			outputTensor.Destroy()
			return nil, fmt.Errorf("failed to set intra-op threads: %w", err)
		}
	}

	session, err := ort.NewAdvancedSession(checkpointPath,
		[]string{inputName}, []string{outputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		options)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Server{
		Labels:       labels,
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// resolveIO picks the input and output names and checks their shapes against
// the label set.
func resolveIO(checkpointPath string, labels *Labels, cfg *loadConfig) (string, string, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(checkpointPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to inspect checkpoint: %w", err)
	}

	input, err := pickIO(inputs, cfg.inputName, "input")
	if err != nil {
		return "", "", err
	}
	output, err := pickIO(outputs, cfg.outputName, "output")
	if err != nil {
		return "", "", err
	}

	if err := checkDims(input.Dimensions, []int64{1, 3, int64(labels.ImageSize), int64(labels.ImageSize)}); err != nil {
		return "", "", fmt.Errorf("input %q: %w", input.Name, err)
	}
	if err := checkDims(output.Dimensions, []int64{1, int64(labels.Len())}); err != nil {
		return "", "", fmt.Errorf("output %q for %d labels (%s): %w", output.Name, labels.Len(), labels.Version, err)
	}

	return input.Name, output.Name, nil
}

func pickIO(infos []ort.InputOutputInfo, name, kind string) (ort.InputOutputInfo, error) {
	if len(infos) == 0 {
		return ort.InputOutputInfo{}, fmt.Errorf("%w: checkpoint has no %s", ErrArchitectureMismatch, kind)
	}
	if name == "" {
		return infos[0], nil
	}
	for _, info := range infos {
		if info.Name == name {
			return info, nil
		}
	}
	return ort.InputOutputInfo{}, fmt.Errorf("%w: checkpoint has no %s named %q", ErrArchitectureMismatch, kind, name)
}

// checkDims compares a declared shape with the expected one. Dynamic axes
// (negative sizes) match anything.
func checkDims(got ort.Shape, want []int64) error {
	if len(got) != len(want) {
		return fmt.Errorf("%w: shape %v, want %v", ErrArchitectureMismatch, got, want)
	}
	for i := range want {
		if got[i] >= 0 && got[i] != want[i] {
			return fmt.Errorf("%w: shape %v, want %v", ErrArchitectureMismatch, got, want)
		}
	}
	return nil
}

// Classify runs one image through the network and returns the top class.
func (s *Server) Classify(ctx context.Context, img image.Image) (Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return Prediction{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}

	if err := Preprocess(img, s.Labels.ImageSize, s.inputTensor.GetData()); err != nil {
		return Prediction{}, fmt.Errorf("failed to preprocess image: %w", err)
	}

	if err := s.session.Run(); err != nil {
		return Prediction{}, fmt.Errorf("%w: %v", ErrInference, err)
	}

	return s.Labels.Top(s.outputTensor.GetData())
}

// Close releases the session and the ONNX environment.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inputTensor != nil {
		s.inputTensor.Destroy()
		s.inputTensor = nil
	}
	if s.outputTensor != nil {
		s.outputTensor.Destroy()
		s.outputTensor = nil
	}
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}
	ort.DestroyEnvironment()
}
