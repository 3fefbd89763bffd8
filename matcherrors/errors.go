package matcherrors

import "errors"

// Deck and engine sentinel errors. Kept in their own package so the content,
// game and ws packages can share them without import cycles.
var (
	ErrInvalidGridSize   = errors.New("invalid grid size")
	ErrEmptyContentPool  = errors.New("content pool is empty")
	ErrDuplicateContent  = errors.New("content pool has duplicate entries")
	ErrNoGameInProgress  = errors.New("no game in progress")
	ErrRateLimited       = errors.New("too many clicks")
	ErrStorageNotEnabled = errors.New("telemetry storage not configured")
)
