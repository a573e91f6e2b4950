package download

import "errors"

// Sentinel errors for the download package.
var (
	// ErrTransport is a retryable network or server-side failure.
	ErrTransport = errors.New("transport error")

	// ErrTransferTimeout is returned when a single attempt exceeds its timeout.
	ErrTransferTimeout = errors.New("transfer attempt timed out")

	// ErrHTTPStatus is a non-retryable client error status from the host.
	ErrHTTPStatus = errors.New("unexpected http status")

	// ErrSizeMismatch is returned when a finished transfer has the wrong byte count.
	ErrSizeMismatch = errors.New("size mismatch")

	// ErrRetryExhausted is returned after the last permitted attempt fails.
	ErrRetryExhausted = errors.New("retries exhausted")

	// ErrCancelled is returned when a job is cancelled before it finishes.
	ErrCancelled = errors.New("download cancelled")

	// ErrInvalidTransition is returned for a status change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrJobNotFound is returned when a job id is not in the active registry.
	ErrJobNotFound = errors.New("job not found")
)

// Retryable reports whether err is worth another attempt.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransport) ||
		errors.Is(err, ErrTransferTimeout) ||
		errors.Is(err, ErrSizeMismatch)
}
