// Package lifecycle splits startup into an initialization phase, which
// downloads and loads the model, and a serving phase gated on its outcome.
package lifecycle

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/Brownie44l1/pokedex-api/internal/model"
)

// Classifier is a loaded model as seen by the serving phase.
type Classifier interface {
	Classify(ctx context.Context, img image.Image) (model.Prediction, error)
	Close()
}

// Initializer produces the classifier. It runs exactly once.
type Initializer func(ctx context.Context) (Classifier, error)

// State is the phase the process is in.
type State int

const (
	StateIdle State = iota
	StateInitializing
	StateReady
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Lifecycle owns the classifier and the readiness flag.
type Lifecycle struct {
	init    Initializer
	logger  *slog.Logger
	onReady func()

	mu         sync.RWMutex
	state      State
	classifier Classifier
	err        error
	done       chan struct{}
}

type Option func(*Lifecycle)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Lifecycle) {
		l.logger = logger
	}
}

// WithReadyHook registers fn to run once the classifier is available.
func WithReadyHook(fn func()) Option {
	return func(l *Lifecycle) {
		l.onReady = fn
	}
}

func New(init Initializer, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		init:   init,
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run executes the initialization phase and blocks until it finishes.
func (l *Lifecycle) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.state != StateIdle {
		l.mu.Unlock()
		return ErrAlreadyStarted
	}
	l.state = StateInitializing
	l.mu.Unlock()

	start := time.Now()
	l.logger.Info("Initializing model")

	classifier, err := l.init(ctx)

	l.mu.Lock()
	if l.state == StateClosed {
		close(l.done)
		l.mu.Unlock()
		if classifier != nil {
			classifier.Close()
		}
		return ErrNotReady
	}
	if err != nil {
		l.state = StateFailed
		l.err = err
	} else {
		l.state = StateReady
		l.classifier = classifier
	}
	close(l.done)
	l.mu.Unlock()

	if err != nil {
		l.logger.Error("Model initialization failed", "error", err)
		return fmt.Errorf("%w: %w", ErrInitFailed, err)
	}

	l.logger.Info("Model ready", "duration", time.Since(start).Round(time.Millisecond))
	if l.onReady != nil {
		l.onReady()
	}
	return nil
}

// Classifier returns the loaded classifier, or ErrNotReady / ErrInitFailed.
func (l *Lifecycle) Classifier() (Classifier, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	switch l.state {
	case StateReady:
		return l.classifier, nil
	case StateFailed:
		return nil, fmt.Errorf("%w: %w", ErrInitFailed, l.err)
	default:
		return nil, ErrNotReady
	}
}

// State reports the current phase and, when failed, the cause.
func (l *Lifecycle) State() (State, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state, l.err
}

// Done is closed when the initialization phase finishes either way.
func (l *Lifecycle) Done() <-chan struct{} {
	return l.done
}

// Close releases the classifier. Requests arriving afterwards get ErrNotReady.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.classifier != nil {
		l.classifier.Close()
		l.classifier = nil
	}
	if l.state == StateIdle {
		close(l.done)
	}
	l.state = StateClosed
}
