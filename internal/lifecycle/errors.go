package lifecycle

import "errors"

var (
	// ErrNotReady indicates initialization is still running.
	ErrNotReady = errors.New("lifecycle: model is not ready")

	// ErrInitFailed indicates initialization finished with an error.
	ErrInitFailed = errors.New("lifecycle: initialization failed")

	// ErrAlreadyStarted is returned by a second call to Run.
	ErrAlreadyStarted = errors.New("lifecycle: already started")
)
