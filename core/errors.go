package core

import "errors"

// Errors shared by the stores and the run lifecycle. Callers match them with
// errors.Is; the returned errors carry additional context.
var (
	ErrRunExists           = errors.New("skald: run directory already exists")
	ErrRunClosed           = errors.New("skald: run is closed")
	ErrInvalidName         = errors.New("skald: invalid name")
	ErrInvalidValue        = errors.New("skald: invalid value")
	ErrTypeConflict        = errors.New("skald: column type conflict")
	ErrColumnExists        = errors.New("skald: column already exists")
	ErrUnsupportedFormat   = errors.New("skald: unsupported file format")
	ErrUnsupportedStrategy = errors.New("skald: unsupported persistence strategy")
)
