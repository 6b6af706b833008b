package models

import (
	"errors"
	"fmt"
)

// Soft failures surfaced during scanning. Both cause a candidate to be
// skipped, never a cycle to abort.
var (
	ErrStaleData   = errors.New("market data is stale")
	ErrMissingData = errors.New("market data not available")
)

// ConnectionError is a transport-level failure establishing or keeping
// a stream. Recovery (reconnect, backoff) belongs to the caller.
type ConnectionError struct {
	Exchange string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: connection failed: %v", e.Exchange, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// DecodeError marks a single inbound message that could not be parsed
// into a canonical event. Always recovered locally: log, skip, go on.
type DecodeError struct {
	Exchange string
	Payload  string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decode failed: %v", e.Exchange, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
