package config

import "errors"

// ErrMissingEnv indicates that a required environment variable is unset or
// empty. The variable name is attached by wrapping.
var ErrMissingEnv = errors.New("missing required env var")
