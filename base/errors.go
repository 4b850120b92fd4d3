// Copyright © 2023 Sloan Childers
package base

import "errors"

var (
	// ErrSourceExhausted is fatal: the capture loop stops and the process exits.
	ErrSourceExhausted = errors.New("source exhausted")
	ErrSourceClosed    = errors.New("source closed")
	// ErrWriterOpen is recoverable: the recorder drops frames and retries.
	ErrWriterOpen    = errors.New("writer open failed")
	ErrNoFrame       = errors.New("no frame captured yet")
	ErrInvalidPlugin = errors.New("unknown camera plugin")
)
