package transceiver

import "errors"

// Domain errors - DRY principle: defined once, used everywhere
var (
	ErrPortMismatch  = errors.New("frame addressed to another port")
	ErrNotConnected  = errors.New("transmitter is not connected")
	ErrAlreadyServed = errors.New("receiver is already serving")
)
