package config

import "errors"

// ErrInvalid indicates the configuration failed parsing or validation.
var ErrInvalid = errors.New("config: invalid configuration")
