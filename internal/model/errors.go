package model

import "errors"

// Sentinel errors for model loading and inference.
var (
	// ErrCheckpointMissing indicates the checkpoint file does not exist.
	ErrCheckpointMissing = errors.New("model: checkpoint not found")

	// ErrCheckpointMismatch indicates the checkpoint digest differs from the one
	// recorded in the label file.
	ErrCheckpointMismatch = errors.New("model: checkpoint does not match label set")

	// ErrArchitectureMismatch indicates the network's input or output shape is
	// incompatible with the label set.
	ErrArchitectureMismatch = errors.New("model: architecture mismatch")

	// ErrInvalidLabels indicates the label file is malformed.
	ErrInvalidLabels = errors.New("model: invalid label set")

	// ErrClosed indicates the server was closed.
	ErrClosed = errors.New("model: server closed")

	// ErrInference indicates the forward pass failed.
	ErrInference = errors.New("model: inference failed")
)
