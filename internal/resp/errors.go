package resp

import (
	"errors"
	"fmt"
)

var (
	// ErrProtocol is wrapped by every decode error
	ErrProtocol = errors.New("resp: protocol error")

	ErrInvalidEnding  = fmt.Errorf("%w: invalid line ending", ErrProtocol)
	ErrInvalidLength  = fmt.Errorf("%w: invalid length", ErrProtocol)
	ErrUnknownType    = fmt.Errorf("%w: unknown type", ErrProtocol)
	ErrInvalidPayload = fmt.Errorf("%w: invalid payload", ErrProtocol)
	ErrTooLarge       = fmt.Errorf("%w: bulk length exceeds limit", ErrProtocol)

	// ErrTruncated reports that the stream ended in the middle of a frame
	ErrTruncated = fmt.Errorf("%w: truncated frame", ErrProtocol)
)

// MaxBulkLength is the largest bulk payload the decoder accepts, 512 MiB
const MaxBulkLength = 512 * 1024 * 1024

// SyntaxError locates a decode failure in the stream
type SyntaxError struct {
	Offset int64 // byte offset of the value that failed, counted from the first fed byte
	Err    error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%v at offset %d", e.Err, e.Offset)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}
