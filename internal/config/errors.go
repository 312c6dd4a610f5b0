package config

import "errors"

// Domain errors - DRY principle: defined once, used everywhere
var ErrInvalidConfig = errors.New("invalid configuration")
