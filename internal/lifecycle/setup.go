package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Brownie44l1/pokedex-api/internal/model"
)

// Ensurer makes sure a remote asset exists locally.
type Ensurer interface {
	Ensure(ctx context.Context, url, dest string) (bool, error)
}

// LoadFunc turns a local checkpoint and its labels into a classifier.
type LoadFunc func(checkpointPath string, labels *model.Labels) (Classifier, error)

// Assets locates the checkpoint and its label set.
type Assets struct {
	URL            string
	CheckpointPath string
	// LabelsFile overrides the embedded label set when set.
	LabelsFile string
}

// ONNXLoader loads checkpoints with onnxruntime.
func ONNXLoader(opts ...model.Option) LoadFunc {
	return func(checkpointPath string, labels *model.Labels) (Classifier, error) {
		srv, err := model.Load(checkpointPath, labels, opts...)
		if err != nil {
			return nil, err
		}
		return srv, nil
	}
}

// FetchAndLoad returns the initializer used at startup: download the
// checkpoint if missing, then load it with its label set.
func FetchAndLoad(assets Assets, ensurer Ensurer, load LoadFunc, logger *slog.Logger) Initializer {
	return func(ctx context.Context) (Classifier, error) {
		fetched, err := ensurer.Ensure(ctx, assets.URL, assets.CheckpointPath)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch checkpoint: %w", err)
		}
		if !fetched {
			logger.Info("Using existing checkpoint", "path", assets.CheckpointPath)
		}

		labels, err := loadLabels(assets.LabelsFile)
		if err != nil {
			return nil, err
		}

		logger.Info("Loading model",
			"path", assets.CheckpointPath,
			"labels", labels.Version,
			"classes", labels.Len(),
			"image_size", labels.ImageSize)

		classifier, err := load(assets.CheckpointPath, labels)
		if err != nil {
			// A fresh download that cannot be loaded would otherwise be
			// reused by every later start.
			if fetched {
				if rmErr := os.Remove(assets.CheckpointPath); rmErr != nil {
					logger.Warn("Failed to remove unusable checkpoint", "path", assets.CheckpointPath, "error", rmErr)
				} else {
					logger.Warn("Removed unusable checkpoint", "path", assets.CheckpointPath)
				}
			}
			return nil, fmt.Errorf("failed to load model: %w", err)
		}
		return classifier, nil
	}
}

func loadLabels(path string) (*model.Labels, error) {
	if path == "" {
		return model.DefaultLabels()
	}
	return model.LoadLabels(path)
}
