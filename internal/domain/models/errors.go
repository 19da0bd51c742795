package models

import "errors"

var (
	// ErrDataUnavailable means ingestion was exhausted and no fallback applied.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrInsufficientData means fewer points than a component's minimum.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidRecord marks a raw row that failed coercion. It is skipped, never fatal.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrNotFound means the persistence layer has nothing for the request.
	ErrNotFound = errors.New("not found")
)
