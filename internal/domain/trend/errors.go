package trend

import "errors"

// Error taxonomy of the trending engine
var (
	// ErrInvalidEventKind rejects an ingestion call with an unknown event type
	ErrInvalidEventKind = errors.New("invalid event kind")

	// ErrStoreUnavailable wraps any failed or timed out score store call
	ErrStoreUnavailable = errors.New("score store unavailable")

	// ErrMalformedRecord marks a single snapshot or event payload that failed to parse
	ErrMalformedRecord = errors.New("malformed record")

	// ErrCellCompute marks a failed grid cell recomputation
	ErrCellCompute = errors.New("grid cell computation failed")

	// ErrPassInProgress is returned when a grid pass is requested while another is running
	ErrPassInProgress = errors.New("grid pass already in progress")
)
