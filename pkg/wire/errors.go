package wire

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is the class of errors caused by bad caller input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrPayloadTooLarge indicates the payload exceeds PayloadSize.
	ErrPayloadTooLarge = fmt.Errorf("payload larger than %d bytes: %w", PayloadSize, ErrInvalidArgument)
)

// FramingError reports a frame which doesn't fit the envelope.
type FramingError struct {
	Len int
}

// Error implements error.
func (e *FramingError) Error() string {
	return fmt.Sprintf("frame too short: %d bytes, expect %d", e.Len, FrameSize)
}
