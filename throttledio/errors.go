/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttledio

import (
	"errors"
	"fmt"
)

// ErrInvalidRateLimit is returned by constructors when the rate limit is not acceptable.
var ErrInvalidRateLimit = errors.New("invalid rate limit")

// ErrInvalidRange is returned by ReadRange and WriteRange when offset and length are out of the buffer bounds.
var ErrInvalidRange = errors.New("offset and length are out of buffer bounds")

// ErrInterrupted is matched (via errors.Is) by InterruptedError.
var ErrInterrupted = errors.New("throttling wait interrupted")

// InterruptedError is returned by read and write methods when the context passed in options
// is done while the call waits for the throughput to fall under the rate limit.
// Nothing is read or written in this case.
type InterruptedError struct {
	Inner error
}

func (e *InterruptedError) Error() string {
	return fmt.Sprintf("i/o aborted, %s: %s", ErrInterrupted.Error(), e.Inner.Error())
}

// Unwrap returns the next error in the error chain.
func (e *InterruptedError) Unwrap() error {
	return e.Inner
}

// Is reports whether target is ErrInterrupted.
func (e *InterruptedError) Is(target error) bool {
	return target == ErrInterrupted
}

func checkRange(bufLen, off, n int) error {
	if off < 0 || n < 0 || off > bufLen || n > bufLen-off {
		return fmt.Errorf("%w: offset %d, length %d, buffer length %d", ErrInvalidRange, off, n, bufLen)
	}
	return nil
}
