package serialization

import "errors"

// Domain errors - DRY principle: defined once, used everywhere
var (
	ErrUnknownFormat = errors.New("unknown serialization format")
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
	ErrShortFrame    = errors.New("frame shorter than its header")
	ErrChecksum      = errors.New("frame checksum mismatch")
)
