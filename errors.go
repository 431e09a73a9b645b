package skald

import "github.com/skald-logger/skald/core"

var (
	ErrRunExists           = core.ErrRunExists
	ErrRunClosed           = core.ErrRunClosed
	ErrInvalidName         = core.ErrInvalidName
	ErrInvalidValue        = core.ErrInvalidValue
	ErrTypeConflict        = core.ErrTypeConflict
	ErrColumnExists        = core.ErrColumnExists
	ErrUnsupportedFormat   = core.ErrUnsupportedFormat
	ErrUnsupportedStrategy = core.ErrUnsupportedStrategy
)
