// ABOUTME: Error kinds reported by the decode job queue
// ABOUTME: Distinguishes readiness, acquisition, decode failure and decode crash
package decodequeue

import (
	"errors"
	"fmt"
)

var (
	// ErrDecoderNotReady is returned by Tick while no backend is attached.
	// It is never used to reject a job.
	ErrDecoderNotReady = errors.New("decoder is not ready")

	// ErrInvalidRequest rejects requests without a name or with zero or two byte sources
	ErrInvalidRequest = errors.New("invalid decode request")

	// ErrClosed rejects jobs submitted to or still queued in a closed scheduler
	ErrClosed = errors.New("decode scheduler closed")

	// ErrSampleSize rejects runs whose metadata carries an unusable sample size
	ErrSampleSize = errors.New("unsupported sample size")
)

// AcquisitionError reports that a request's bytes could not be obtained
type AcquisitionError struct {
	Name string
	Href string
	Err  error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("failed to acquire %s from %s: %v", e.Name, e.Href, e.Err)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// DecodeFailure reports a decode run that completed with an exit status.
// Error returns the decoder's message unchanged.
type DecodeFailure struct {
	Name    string
	Code    int
	Message string
}

func (e *DecodeFailure) Error() string {
	return e.Message
}

// DecodeCrash reports a decode call that failed before producing metadata.
// Error returns the underlying error's text unchanged.
type DecodeCrash struct {
	Name string
	Err  error
}

func (e *DecodeCrash) Error() string {
	return e.Err.Error()
}

func (e *DecodeCrash) Unwrap() error {
	return e.Err
}
