package model

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// DefaultImageSize is the square input edge used when the label file omits it.
const DefaultImageSize = 224

//go:embed labels.json
var defaultLabels []byte

// DefaultLabels returns the label set shipped with the binary.
func DefaultLabels() (*Labels, error) {
	return ParseLabels(defaultLabels)
}

func LoadLabels(path string) (*Labels, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	return ParseLabels(data)
}

// ParseLabels decodes and validates a label file.
func ParseLabels(data []byte) (*Labels, error) {
	var labels Labels
	if err := json.Unmarshal(data, &labels); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLabels, err)
	}

	if len(labels.Classes) == 0 {
		return nil, fmt.Errorf("%w: no classes", ErrInvalidLabels)
	}

	seen := make(map[string]int, len(labels.Classes))
	for i, name := range labels.Classes {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: empty class name at index %d", ErrInvalidLabels, i)
		}
		if j, ok := seen[name]; ok {
			return nil, fmt.Errorf("%w: %q appears at index %d and %d", ErrInvalidLabels, name, j, i)
		}
		seen[name] = i
	}

	if labels.ImageSize == 0 {
		labels.ImageSize = DefaultImageSize
	}
	if labels.ImageSize < 0 {
		return nil, fmt.Errorf("%w: image size %d", ErrInvalidLabels, labels.ImageSize)
	}
	labels.CheckpointSHA256 = strings.ToLower(labels.CheckpointSHA256)

	return &labels, nil
}

func (l *Labels) Len() int {
	return len(l.Classes)
}

// Top picks the highest scoring class from a row of network outputs. Scores
// are logits; the confidence is their softmax at the winning index.
func (l *Labels) Top(scores []float32) (Prediction, error) {
	if len(scores) != len(l.Classes) {
		return Prediction{}, fmt.Errorf("%w: %d scores for %d classes", ErrArchitectureMismatch, len(scores), len(l.Classes))
	}

	maxIdx := 0
	maxVal := scores[0]
	for i, val := range scores {
		if val > maxVal {
			maxVal = val
			maxIdx = i
		}
	}

	var sum float64
	for _, val := range scores {
		sum += math.Exp(float64(val - maxVal))
	}

	return Prediction{
		Class:      l.Classes[maxIdx],
		Index:      maxIdx,
		Confidence: float32(1 / sum),
	}, nil
}

// VerifyCheckpoint checks the checkpoint digest against the one pinned in the
// label file. It is a no-op when no digest is pinned.
func (l *Labels) VerifyCheckpoint(path string) error {
	if l.CheckpointSHA256 == "" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("failed to hash checkpoint: %w", err)
	}

	actual := hex.EncodeToString(h.Sum(nil))
	if actual != l.CheckpointSHA256 {
		return fmt.Errorf("%w: labels %s expect sha256 %s, got %s", ErrCheckpointMismatch, l.Version, l.CheckpointSHA256, actual)
	}
	return nil
}
