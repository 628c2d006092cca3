package fetch

import "errors"

// Sentinel errors for Ensure. Use errors.Is to check for them.
var (
	// ErrNetwork indicates the transfer failed in transit.
	ErrNetwork = errors.New("fetch: network error")

	// ErrBadStatus indicates the server answered with a non-2xx status.
	ErrBadStatus = errors.New("fetch: unexpected status")

	// ErrStorage indicates a local filesystem operation failed.
	ErrStorage = errors.New("fetch: storage error")

	// ErrNoSource indicates the destination is missing and no URL was given.
	ErrNoSource = errors.New("fetch: no source URL")
)
