package handlers

import (
	"errors"
	"net/http"

	"github.com/Brownie44l1/pokedex-api/internal/lifecycle"
)

// ErrBadInput indicates the request did not carry a decodable image.
var ErrBadInput = errors.New("bad input")

// statusFor maps a request error to its HTTP status: client mistakes are 4xx,
// an unavailable model is 503 and anything else is a 500.
func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrBadInput):
		return http.StatusBadRequest
	case errors.Is(err, lifecycle.ErrNotReady), errors.Is(err, lifecycle.ErrInitFailed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
